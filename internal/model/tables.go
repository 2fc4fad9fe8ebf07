package model

import (
	"strconv"
	"time"
)

// Duration accumulated stoppage time. Minutes is always Seconds/60 truncated.
type Duration struct {
	Seconds float64 `json:"seconds"`
	Minutes int64   `json:"minutes"`
}

// NewDuration derives the minute column from seconds
func NewDuration(seconds float64) Duration {
	return Duration{Seconds: seconds, Minutes: int64(seconds / 60)}
}

func (d Duration) fields() []string {
	return []string{strconv.FormatFloat(d.Seconds, 'f', -1, 64), strconv.FormatInt(d.Minutes, 10)}
}

var durationHeader = []string{"Duration (Seconds)", "Duration (Minutes)"}

// Tabular is implemented by every aggregate table for export
type Tabular interface {
	Header() []string
	Records() [][]string
	Len() int
}

// ReasonDuration total duration of one stoppage reason
type ReasonDuration struct {
	Reason string `json:"stoppage_reason"`
	Duration
}

// StopTimeTable rows keyed by stoppage reason
type StopTimeTable []ReasonDuration

func (t StopTimeTable) Len() int { return len(t) }

func (t StopTimeTable) Header() []string {
	return append([]string{"Stoppage Name"}, durationHeader...)
}

func (t StopTimeTable) Records() [][]string {
	out := make([][]string, 0, len(t))
	for _, r := range t {
		out = append(out, append([]string{r.Reason}, r.fields()...))
	}
	return out
}

// TotalSeconds sum of all rows
func (t StopTimeTable) TotalSeconds() float64 {
	var total float64
	for _, r := range t {
		total += r.Seconds
	}
	return total
}

// SectionDuration duration attributed to a section
type SectionDuration struct {
	Section string `json:"section"`
	Duration
}

// SectionTable rows keyed by section
type SectionTable []SectionDuration

func (t SectionTable) Len() int { return len(t) }

func (t SectionTable) Header() []string {
	return append([]string{"Section"}, durationHeader...)
}

func (t SectionTable) Records() [][]string {
	out := make([][]string, 0, len(t))
	for _, r := range t {
		out = append(out, append([]string{r.Section}, r.fields()...))
	}
	return out
}

// MachineDuration total duration of one machine
type MachineDuration struct {
	Machine string `json:"machine_code"`
	Duration
}

// MachineTable rows keyed by machine code
type MachineTable []MachineDuration

func (t MachineTable) Len() int { return len(t) }

func (t MachineTable) Header() []string {
	return append([]string{"Machine Code"}, durationHeader...)
}

func (t MachineTable) Records() [][]string {
	out := make([][]string, 0, len(t))
	for _, r := range t {
		out = append(out, append([]string{r.Machine}, r.fields()...))
	}
	return out
}

// MachineReasonDuration duration of one (machine, reason) pair
type MachineReasonDuration struct {
	Machine string `json:"machine_code"`
	Reason  string `json:"stoppage_reason"`
	Duration
}

// MachineReasonTable rows keyed by (machine, reason)
type MachineReasonTable []MachineReasonDuration

func (t MachineReasonTable) Len() int { return len(t) }

func (t MachineReasonTable) Header() []string {
	return append([]string{"Machine Code", "Stoppage Name"}, durationHeader...)
}

func (t MachineReasonTable) Records() [][]string {
	out := make([][]string, 0, len(t))
	for _, r := range t {
		out = append(out, append([]string{r.Machine, r.Reason}, r.fields()...))
	}
	return out
}

// GroupStop duration of a reason for one group value (section or machine) in one week
type GroupStop struct {
	Group  string `json:"group"`
	Week   int    `json:"week"`
	Reason string `json:"stoppage_reason"`
	Duration
}

// GroupStopTable top stops per group
type GroupStopTable []GroupStop

func (t GroupStopTable) Len() int { return len(t) }

func (t GroupStopTable) Header() []string {
	return append([]string{"Group", "Week", "Stoppage Name"}, durationHeader...)
}

func (t GroupStopTable) Records() [][]string {
	out := make([][]string, 0, len(t))
	for _, r := range t {
		out = append(out, append([]string{r.Group, strconv.Itoa(r.Week), r.Reason}, r.fields()...))
	}
	return out
}

// PieSlice one slice of a share chart
type PieSlice struct {
	Label   string  `json:"label"`
	Minutes int64   `json:"minutes"`
	Percent float64 `json:"percent"`
}

// PieTable slices sorted by percent descending
type PieTable []PieSlice

func (t PieTable) Len() int { return len(t) }

func (t PieTable) Header() []string {
	return []string{"Label", "Duration (Minutes)", "Percent"}
}

func (t PieTable) Records() [][]string {
	out := make([][]string, 0, len(t))
	for _, r := range t {
		out = append(out, []string{r.Label, strconv.FormatInt(r.Minutes, 10), strconv.FormatFloat(r.Percent, 'f', 2, 64)})
	}
	return out
}

// OEEAverage mean metrics of one ISO week
type OEEAverage struct {
	Week                int     `json:"week"`
	Records             int     `json:"records"`
	OEE                 float64 `json:"oee"`
	Performance         float64 `json:"performance"`
	Availability        float64 `json:"availability"`
	Quality             float64 `json:"quality"`
	ScheduledDowntime   float64 `json:"scheduled_downtime"`
	UnscheduledDowntime float64 `json:"unscheduled_downtime"`
}

// OEETable weekly averages sorted by week
type OEETable []OEEAverage

func (t OEETable) Len() int { return len(t) }

func (t OEETable) Header() []string {
	return []string{"Week", "Records", "OEE", "Performance", "Availability", "Quality", "Scheduled Downtime", "Unscheduled Downtime"}
}

func (t OEETable) Records() [][]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	out := make([][]string, 0, len(t))
	for _, r := range t {
		out = append(out, []string{
			strconv.Itoa(r.Week), strconv.Itoa(r.Records),
			f(r.OEE), f(r.Performance), f(r.Availability), f(r.Quality),
			f(r.ScheduledDowntime), f(r.UnscheduledDowntime),
		})
	}
	return out
}

// EventTable raw events, used for the latest week export
type EventTable []DowntimeEvent

func (t EventTable) Len() int { return len(t) }

func (t EventTable) Header() []string {
	return append([]string{"Machine Code", "Stoppage Name", "Start Time", "End Time", "Section", "Week"}, durationHeader...)
}

func (t EventTable) Records() [][]string {
	out := make([][]string, 0, len(t))
	for _, e := range t {
		out = append(out, []string{
			e.MachineCode, e.Reason,
			e.Start.Format(time.DateTime), e.End.Format(time.DateTime),
			e.Section, strconv.Itoa(e.Week),
			strconv.FormatInt(e.DurationSeconds, 10), strconv.FormatInt(e.DurationMinutes(), 10),
		})
	}
	return out
}
