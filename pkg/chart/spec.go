// Package chart describes report charts and renders them to PNG files.
package chart

import (
	"fmt"
	"strconv"

	"shopfloor/internal/model"
	"shopfloor/pkg/calc"
)

// Kind chart kind
type Kind string

const (
	KindShare   Kind = "share"   // percent per label, drawn instead of a pie
	KindBar     Kind = "bar"     // one series
	KindGrouped Kind = "grouped" // several series side by side
)

// Series one coloured bar series, aligned with Spec.Labels
type Series struct {
	Name   string
	Values []float64
}

// Spec renderer independent chart description
type Spec struct {
	Title  string
	Path   string
	Kind   Kind
	Labels []string
	Series []Series
	YLabel string
	YMax   float64 // 0 means automatic
}

// Empty reports whether a chart has nothing to draw
func (s Spec) Empty() bool {
	if len(s.Labels) == 0 || len(s.Series) == 0 {
		return true
	}
	for _, ser := range s.Series {
		for _, v := range ser.Values {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// Validate checks that every series has one value per label
func (s Spec) Validate() error {
	for _, ser := range s.Series {
		if len(ser.Values) != len(s.Labels) {
			return fmt.Errorf("chart %q: series %q has %d values for %d labels", s.Title, ser.Name, len(ser.Values), len(s.Labels))
		}
	}
	return nil
}

// Share share chart of a pie table
func Share(title, path string, t model.PieTable) Spec {
	labels := make([]string, 0, len(t))
	values := make([]float64, 0, len(t))
	for _, s := range t {
		labels = append(labels, fmt.Sprintf("%s (%.1f%%)", s.Label, s.Percent))
		values = append(values, s.Percent)
	}
	return Spec{
		Title:  title,
		Path:   path,
		Kind:   KindShare,
		Labels: labels,
		Series: []Series{{Name: "Share", Values: values}},
		YLabel: "Percent",
		YMax:   100,
	}
}

// MachineBars minute bars of a machine table
func MachineBars(title, path string, t model.MachineTable) Spec {
	labels := make([]string, 0, len(t))
	values := make([]float64, 0, len(t))
	for _, r := range t {
		labels = append(labels, r.Machine)
		values = append(values, float64(r.Minutes))
	}
	return Spec{
		Title:  title,
		Path:   path,
		Kind:   KindBar,
		Labels: labels,
		Series: []Series{{Name: "Duration (Minutes)", Values: values}},
		YLabel: "Duration (Minutes)",
	}
}

// ReasonBars minute bars of the reasons of one machine
func ReasonBars(title, path string, rows model.MachineReasonTable) Spec {
	labels := make([]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, r.Reason)
		values = append(values, float64(r.Minutes))
	}
	return Spec{
		Title:  title,
		Path:   path,
		Kind:   KindBar,
		Labels: labels,
		Series: []Series{{Name: "Duration (Minutes)", Values: values}},
		YLabel: "Duration (Minutes)",
	}
}

// TopBottom least stopped machines and most stopped machines in one chart,
// one series each so they get different colours
func TopBottom(title, path string, bottom, top model.MachineTable) Spec {
	n := len(bottom) + len(top)
	labels := make([]string, 0, n)
	least := make([]float64, n)
	most := make([]float64, n)
	for i, r := range bottom {
		labels = append(labels, r.Machine)
		least[i] = float64(r.Minutes)
	}
	for i, r := range top {
		labels = append(labels, r.Machine)
		most[len(bottom)+i] = float64(r.Minutes)
	}
	return Spec{
		Title:  title,
		Path:   path,
		Kind:   KindGrouped,
		Labels: labels,
		Series: []Series{
			{Name: "Least stopped", Values: least},
			{Name: "Most stopped", Values: most},
		},
		YLabel: "Duration (Minutes)",
	}
}

// Weekly grouped bars of a weekly comparison: reasons on the axis, one
// series per week
func Weekly(title, path string, c calc.WeeklyComparison) Spec {
	series := make([]Series, 0, len(c.Weeks))
	for _, w := range c.Weeks {
		values := make([]float64, 0, len(c.Reasons))
		for _, reason := range c.Reasons {
			values = append(values, float64(c.Value(w, reason).Minutes))
		}
		series = append(series, Series{Name: "Week " + strconv.Itoa(w), Values: values})
	}
	return Spec{
		Title:  title,
		Path:   path,
		Kind:   KindGrouped,
		Labels: append([]string(nil), c.Reasons...),
		Series: series,
		YLabel: "Duration (Minutes)",
	}
}

// OEE metric bars of one weekly average
func OEE(title, path string, a model.OEEAverage) Spec {
	return Spec{
		Title:  title,
		Path:   path,
		Kind:   KindBar,
		Labels: []string{"OEE", "Performance", "Availability", "Quality"},
		Series: []Series{{Name: "Average", Values: []float64{a.OEE, a.Performance, a.Availability, a.Quality}}},
		YMax:   1,
	}
}
