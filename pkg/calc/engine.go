// Package calc holds the downtime aggregation transforms. Every transform is
// pure: it reads its input slice and returns a new, never nil, table.
package calc

import (
	"context"
	"sort"

	"shopfloor/internal/model"
	"shopfloor/pkg/logger"
)

// GroupKey selects the grouping column of the top stops tables
type GroupKey string

const (
	GroupBySection GroupKey = "section"
	GroupByMachine GroupKey = "machine"
)

// Valid reports whether k is a known grouping column
func (k GroupKey) Valid() bool {
	return k == GroupBySection || k == GroupByMachine
}

func (k GroupKey) value(e model.DowntimeEvent) string {
	if k == GroupByMachine {
		return e.MachineCode
	}
	return e.Section
}

// DefaultTopN rows kept per group by TopStopsPerGroup, also the upper bound
const DefaultTopN = 10

// Engine aggregation transforms bound to the section machine counts
type Engine struct {
	ctx         context.Context
	counts      map[string]int
	workingTime string
	topN        int
}

// NewEngine creates an engine. counts is copied; workingTime is the stoppage
// reason that denotes productive time.
func NewEngine(counts map[string]int, workingTime string, topN int) *Engine {
	cp := make(map[string]int, len(counts))
	for k, v := range counts {
		cp[k] = v
	}
	if topN <= 0 || topN > DefaultTopN {
		topN = DefaultTopN
	}
	return &Engine{ctx: context.Background(), counts: cp, workingTime: workingTime, topN: topN}
}

// WithContext returns a copy of the engine that logs under ctx
func (e *Engine) WithContext(ctx context.Context) *Engine {
	cp := *e
	cp.ctx = ctx
	return &cp
}

// WorkingTime the sentinel reason excluded from downtime totals
func (e *Engine) WorkingTime() string {
	return e.workingTime
}

// MachineCount configured machine count of a section
func (e *Engine) MachineCount(section string) (int, bool) {
	c, ok := e.counts[section]
	return c, ok
}

// StopTimeSum totals duration per stoppage reason, longest first
func (e *Engine) StopTimeSum(events []model.DowntimeEvent) model.StopTimeTable {
	logger.DebugCtx(e.ctx, "calculating stop time sum over %d events", len(events))
	out := model.StopTimeTable{}
	if len(events) == 0 {
		return out
	}

	sums, order := sumBy(events, func(ev model.DowntimeEvent) string { return ev.Reason })
	for _, reason := range order {
		out = append(out, model.ReasonDuration{Reason: reason, Duration: model.NewDuration(sums[reason])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// PartMachineAverage totals non working duration per section and divides it by
// the section machine count. Sections without a positive count keep the raw sum.
// The quotient is not rounded.
func (e *Engine) PartMachineAverage(events []model.DowntimeEvent) model.SectionTable {
	logger.DebugCtx(e.ctx, "calculating per machine average by section over %d events", len(events))
	out := model.SectionTable{}
	if len(events) == 0 {
		return out
	}

	sums, order := sumBy(e.withoutWorkingTime(events), func(ev model.DowntimeEvent) string { return ev.Section })
	sort.Strings(order)
	for _, section := range order {
		seconds := sums[section]
		if count, ok := e.counts[section]; ok && count > 0 {
			seconds = seconds / float64(count)
		}
		out = append(out, model.SectionDuration{Section: section, Duration: model.NewDuration(seconds)})
	}
	return out
}

// MachineStopTimes totals non working duration per machine, least first
func (e *Engine) MachineStopTimes(events []model.DowntimeEvent) model.MachineTable {
	logger.DebugCtx(e.ctx, "calculating machine stop times over %d events", len(events))
	out := model.MachineTable{}
	if len(events) == 0 {
		return out
	}

	sums, order := sumBy(e.withoutWorkingTime(events), func(ev model.DowntimeEvent) string { return ev.MachineCode })
	for _, machine := range order {
		out = append(out, model.MachineDuration{Machine: machine, Duration: model.NewDuration(sums[machine])})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes < out[j].Minutes
		}
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds < out[j].Seconds
		}
		return out[i].Machine < out[j].Machine
	})
	return out
}

// MachineStopTypeSummary totals duration per (machine, reason), in key order
func (e *Engine) MachineStopTypeSummary(events []model.DowntimeEvent) model.MachineReasonTable {
	logger.DebugCtx(e.ctx, "calculating machine stop type summary over %d events", len(events))
	out := model.MachineReasonTable{}
	if len(events) == 0 {
		return out
	}

	type key struct{ machine, reason string }
	sums := make(map[key]float64)
	for _, ev := range events {
		sums[key{ev.MachineCode, ev.Reason}] += float64(ev.DurationSeconds)
	}
	for k, v := range sums {
		out = append(out, model.MachineReasonDuration{Machine: k.machine, Reason: k.reason, Duration: model.NewDuration(v)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Machine != out[j].Machine {
			return out[i].Machine < out[j].Machine
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

// TopStopsPerGroup keeps, for every value of key, the topN longest reasons of
// the target week. Rows are ordered by duration descending.
func (e *Engine) TopStopsPerGroup(events []model.DowntimeEvent, key GroupKey, week int) model.GroupStopTable {
	logger.DebugCtx(e.ctx, "calculating top %d stops by %s for week %d", e.topN, key, week)
	out := model.GroupStopTable{}
	if len(events) == 0 {
		return out
	}
	if !key.Valid() {
		logger.ErrorCtx(e.ctx, "unknown grouping column: %q", key)
		return out
	}

	type gk struct{ group, reason string }
	sums := make(map[gk]float64)
	for _, ev := range events {
		if ev.Week != week {
			continue
		}
		sums[gk{key.value(ev), ev.Reason}] += float64(ev.DurationSeconds)
	}
	if len(sums) == 0 {
		return out
	}

	all := make(model.GroupStopTable, 0, len(sums))
	for k, v := range sums {
		all = append(all, model.GroupStop{Group: k.group, Week: week, Reason: k.reason, Duration: model.NewDuration(v)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Seconds != all[j].Seconds {
			return all[i].Seconds > all[j].Seconds
		}
		if all[i].Group != all[j].Group {
			return all[i].Group < all[j].Group
		}
		return all[i].Reason < all[j].Reason
	})

	kept := make(map[string]int)
	for _, row := range all {
		if kept[row.Group] >= e.topN {
			continue
		}
		kept[row.Group]++
		out = append(out, row)
	}
	return out
}

// TopStopsAcrossWeeks concatenates TopStopsPerGroup for each week
func (e *Engine) TopStopsAcrossWeeks(events []model.DowntimeEvent, key GroupKey, weeks []int) model.GroupStopTable {
	out := model.GroupStopTable{}
	for _, w := range weeks {
		out = append(out, e.TopStopsPerGroup(events, key, w)...)
	}
	return out
}

// PartAverageStopTimes per reason duration of one section divided by its
// machine count. Each event is divided and truncated to whole seconds before
// summing. A missing or zero count leaves durations undivided.
func (e *Engine) PartAverageStopTimes(events []model.DowntimeEvent, section string) model.StopTimeTable {
	logger.DebugCtx(e.ctx, "calculating per machine average stop times for %s", section)
	out := model.StopTimeTable{}
	if len(events) == 0 {
		return out
	}

	count, ok := e.counts[section]
	if !ok || count <= 0 {
		count = 1
	}

	sums := make(map[string]int64)
	var order []string
	for _, ev := range events {
		if ev.Section != section {
			continue
		}
		if _, seen := sums[ev.Reason]; !seen {
			order = append(order, ev.Reason)
		}
		sums[ev.Reason] += int64(float64(ev.DurationSeconds) / float64(count))
	}
	for _, reason := range order {
		out = append(out, model.ReasonDuration{Reason: reason, Duration: model.NewDuration(float64(sums[reason]))})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func (e *Engine) withoutWorkingTime(events []model.DowntimeEvent) []model.DowntimeEvent {
	out := make([]model.DowntimeEvent, 0, len(events))
	for _, ev := range events {
		if ev.Reason != e.workingTime {
			out = append(out, ev)
		}
	}
	return out
}

// sumBy sums seconds per key and returns keys in first seen order
func sumBy(events []model.DowntimeEvent, key func(model.DowntimeEvent) string) (map[string]float64, []string) {
	sums := make(map[string]float64)
	order := make([]string, 0)
	for _, ev := range events {
		k := key(ev)
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += float64(ev.DurationSeconds)
	}
	return sums, order
}
