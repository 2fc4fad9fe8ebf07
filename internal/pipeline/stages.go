package pipeline

import (
	"context"
	"fmt"

	"shopfloor/internal/model"
	"shopfloor/pkg/calc"
	"shopfloor/pkg/loader"
	"shopfloor/pkg/logger"
	"shopfloor/pkg/section"
)

// Loaded output of the load stage
type Loaded struct {
	Downtime *loader.DowntimeSource
	Metrics  *loader.MetricsSource
	Faulty   []string
	Messages []string
}

// Prepared output of the prepare stage
type Prepared struct {
	Events       []model.DowntimeEvent // faulty machines removed, sections assigned
	Metrics      []model.MachineMetricRecord
	Weeks        []int
	LatestWeek   int
	LatestEvents []model.DowntimeEvent
	Sections     []string
}

// Computed aggregate tables of a run
type Computed struct {
	Weeks           []int `json:"weeks"`
	LatestWeek      int   `json:"latest_week"`
	ComparisonWeeks []int `json:"comparison_weeks"`

	StopTimeSum      model.StopTimeTable      `json:"stop_time_sum"`
	SectionAverage   model.SectionTable       `json:"section_machine_average"`
	MachineStopTimes model.MachineTable       `json:"machine_stop_times"`
	MachineStopTypes model.MachineReasonTable `json:"machine_stop_types"`

	Sections        []string                       `json:"sections"`
	SectionAverages map[string]model.StopTimeTable `json:"section_reason_averages"`

	TopStopsBySection model.GroupStopTable `json:"top_stops_by_section"`
	TopStopsByMachine model.GroupStopTable `json:"top_stops_by_machine"`

	WeeklyBySection []calc.WeeklyComparison `json:"weekly_by_section"`
	WeeklyByMachine []calc.WeeklyComparison `json:"weekly_by_machine"`

	OEE          model.OEETable   `json:"oee"`
	LatestEvents model.EventTable `json:"-"`
}

// Load reads both sources and the optional faulty list, then validates them.
// A failed faulty list is logged and treated as empty.
func Load(ctx context.Context, opts Options) (*Loaded, error) {
	dr := loader.LoadDowntime(ctx, opts.DowntimeFile)
	if !dr.Success {
		return nil, fmt.Errorf("%w: %s", ErrLoad, dr.Message)
	}
	mr := loader.LoadMetrics(ctx, opts.MetricsFile)
	if !mr.Success {
		return nil, fmt.Errorf("%w: %s", ErrLoad, mr.Message)
	}

	out := &Loaded{
		Downtime: dr.Source,
		Metrics:  mr.Source,
		Faulty:   []string{},
		Messages: []string{dr.Message, mr.Message},
	}

	if opts.FaultyFile != "" {
		fr := loader.LoadFaultyMachines(ctx, opts.FaultyFile)
		if fr.Success {
			out.Faulty = fr.Machines
		} else {
			logger.WarnCtx(ctx, "continuing without faulty machine list: %s", fr.Message)
		}
		out.Messages = append(out.Messages, fr.Message)
	}

	ok, msg := loader.ValidateSources(out.Downtime, out.Metrics)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrValidation, msg)
	}
	logger.InfoCtx(ctx, "sources validated: %s", msg)
	out.Messages = append(out.Messages, msg)
	return out, nil
}

// Prepare removes faulty machines, assigns sections and picks the latest week
func Prepare(ctx context.Context, in *Loaded, assigner *section.Assigner) *Prepared {
	events := assigner.Apply(calc.ExcludeMachines(in.Downtime.Events, in.Faulty))
	metrics := calc.ExcludeMetricMachines(in.Metrics.Records, in.Faulty)
	if removed := in.Downtime.Len() - len(events); removed > 0 {
		logger.InfoCtx(ctx, "excluded %d events of %d faulty machines", removed, len(in.Faulty))
	}

	weeks := calc.Weeks(events)
	out := &Prepared{
		Events:       events,
		Metrics:      metrics,
		Weeks:        weeks,
		LatestEvents: []model.DowntimeEvent{},
		Sections:     assigner.Names(),
	}
	if latest, ok := calc.LatestWeek(weeks); ok {
		out.LatestWeek = latest
		out.LatestEvents = calc.FilterWeek(events, latest)
		logger.InfoCtx(ctx, "latest week: %d, events: %d", latest, len(out.LatestEvents))
	} else {
		logger.WarnCtx(ctx, "no week found in downtime data")
	}
	return out
}

// Compute runs every transform. Totals use the latest week; top stops and
// the weekly comparison use the comparison window of the full event table.
// A transform that panics yields its empty table.
func Compute(ctx context.Context, in *Prepared, engine *calc.Engine, opts Options) *Computed {
	engine = engine.WithContext(ctx)
	latest := in.LatestEvents
	window := calc.LastWeeks(in.Weeks, opts.ComparisonWeeks)

	out := &Computed{
		Weeks:           append([]int{}, in.Weeks...),
		LatestWeek:      in.LatestWeek,
		ComparisonWeeks: window,
		Sections:        append([]string{}, in.Sections...),
		SectionAverages: make(map[string]model.StopTimeTable, len(in.Sections)),
		LatestEvents:    append(model.EventTable{}, latest...),
	}

	out.StopTimeSum = guard(ctx, "stop time sum", model.StopTimeTable{}, func() model.StopTimeTable {
		return engine.StopTimeSum(latest)
	})
	out.SectionAverage = guard(ctx, "section machine average", model.SectionTable{}, func() model.SectionTable {
		return engine.PartMachineAverage(latest)
	})
	out.MachineStopTimes = guard(ctx, "machine stop times", model.MachineTable{}, func() model.MachineTable {
		return engine.MachineStopTimes(latest)
	})
	out.MachineStopTypes = guard(ctx, "machine stop types", model.MachineReasonTable{}, func() model.MachineReasonTable {
		return engine.MachineStopTypeSummary(latest)
	})
	for _, name := range in.Sections {
		out.SectionAverages[name] = guard(ctx, "section average "+name, model.StopTimeTable{}, func() model.StopTimeTable {
			return engine.PartAverageStopTimes(latest, name)
		})
	}

	out.TopStopsBySection = guard(ctx, "top stops by section", model.GroupStopTable{}, func() model.GroupStopTable {
		return engine.TopStopsPerGroup(in.Events, calc.GroupBySection, in.LatestWeek)
	})
	out.TopStopsByMachine = guard(ctx, "top stops by machine", model.GroupStopTable{}, func() model.GroupStopTable {
		return engine.TopStopsPerGroup(in.Events, calc.GroupByMachine, in.LatestWeek)
	})

	out.WeeklyBySection = guard(ctx, "weekly comparison by section", []calc.WeeklyComparison{}, func() []calc.WeeklyComparison {
		return calc.BuildWeeklyComparison(engine.TopStopsAcrossWeeks(in.Events, calc.GroupBySection, window), opts.SortByLastWeek)
	})
	out.WeeklyByMachine = guard(ctx, "weekly comparison by machine", []calc.WeeklyComparison{}, func() []calc.WeeklyComparison {
		return calc.BuildWeeklyComparison(engine.TopStopsAcrossWeeks(in.Events, calc.GroupByMachine, window), opts.SortByLastWeek)
	})

	out.OEE = guard(ctx, "oee weekly averages", model.OEETable{}, func() model.OEETable {
		return calc.OEEWeeklyAverages(in.Metrics)
	})
	return out
}

// guard runs one transform and recovers a panic into the empty value
func guard[T any](ctx context.Context, name string, empty T, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "transform %s failed, using empty table: %v", name, r)
			out = empty
		}
	}()
	return fn()
}
