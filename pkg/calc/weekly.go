package calc

import (
	"sort"

	"shopfloor/internal/model"
)

// WeeklyPoint one bar of a grouped weekly chart
type WeeklyPoint struct {
	Week   int    `json:"week"`
	Reason string `json:"stoppage_reason"`
	model.Duration
}

// WeeklyComparison a full week x reason grid of one group value
type WeeklyComparison struct {
	Group   string        `json:"group"`
	Weeks   []int         `json:"weeks"`
	Reasons []string      `json:"reasons"`
	Points  []WeeklyPoint `json:"points"` // week major, reason minor
}

// Value duration of a (week, reason) cell, zero when outside the grid
func (c WeeklyComparison) Value(week int, reason string) model.Duration {
	for _, p := range c.Points {
		if p.Week == week && p.Reason == reason {
			return p.Duration
		}
	}
	return model.Duration{}
}

// BuildWeeklyComparison groups a multi week top stops table by group value.
// The reason axis of a group is the union of its reasons over all weeks, in
// first seen order, or ordered by the latest week duration when sortByLastWeek
// is set. Missing (week, reason) cells are filled with zero.
func BuildWeeklyComparison(rows model.GroupStopTable, sortByLastWeek bool) []WeeklyComparison {
	out := make([]WeeklyComparison, 0)
	if len(rows) == 0 {
		return out
	}

	type cell struct {
		week   int
		reason string
	}
	type acc struct {
		weeks   map[int]struct{}
		reasons []string
		seen    map[string]struct{}
		values  map[cell]float64
	}

	groups := make(map[string]*acc)
	var order []string
	for _, r := range rows {
		g, ok := groups[r.Group]
		if !ok {
			g = &acc{weeks: map[int]struct{}{}, seen: map[string]struct{}{}, values: map[cell]float64{}}
			groups[r.Group] = g
			order = append(order, r.Group)
		}
		g.weeks[r.Week] = struct{}{}
		if _, ok := g.seen[r.Reason]; !ok {
			g.seen[r.Reason] = struct{}{}
			g.reasons = append(g.reasons, r.Reason)
		}
		g.values[cell{r.Week, r.Reason}] += r.Seconds
	}
	sort.Strings(order)

	for _, name := range order {
		g := groups[name]
		weeks := make([]int, 0, len(g.weeks))
		for w := range g.weeks {
			weeks = append(weeks, w)
		}
		sort.Ints(weeks)

		reasons := append([]string(nil), g.reasons...)
		if sortByLastWeek {
			last := weeks[len(weeks)-1]
			sort.SliceStable(reasons, func(i, j int) bool {
				return g.values[cell{last, reasons[i]}] > g.values[cell{last, reasons[j]}]
			})
		}

		points := make([]WeeklyPoint, 0, len(weeks)*len(reasons))
		for _, w := range weeks {
			for _, reason := range reasons {
				points = append(points, WeeklyPoint{Week: w, Reason: reason, Duration: model.NewDuration(g.values[cell{w, reason}])})
			}
		}
		out = append(out, WeeklyComparison{Group: name, Weeks: weeks, Reasons: reasons, Points: points})
	}
	return out
}
