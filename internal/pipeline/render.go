package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"shopfloor/internal/model"
	"shopfloor/pkg/calc"
	"shopfloor/pkg/chart"
	"shopfloor/pkg/export"
	"shopfloor/pkg/logger"
	"shopfloor/pkg/report"
)

// Rendered written artifacts of a run
type Rendered struct {
	Artifacts []string `json:"artifacts"`
	Failed    []string `json:"failed"`
}

// Plan lists the charts of a computed run in drawing order. Charts without
// data are left out.
func Plan(c *Computed, layout *report.Layout, opts Options) []chart.Spec {
	specs := make([]chart.Spec, 0)
	add := func(s chart.Spec) {
		if !s.Empty() {
			specs = append(specs, s)
		}
	}

	title := "All Machines Total"
	add(chart.Share(title, layout.ChartPath(title, report.CategoryGeneral),
		calc.PieShares(calc.ReasonShares(c.StopTimeSum), opts.PieThreshold)))

	title = "All Sections (Per Machine)"
	add(chart.Share(title, layout.ChartPath(title, report.CategorySections, report.DirLatestWeek),
		calc.PieShares(calc.SectionShares(c.SectionAverage), opts.PieThreshold)))

	for _, name := range c.Sections {
		title := name + " (Per Machine)"
		add(chart.Share(title, layout.ChartPath(title, report.CategorySections, report.DirPerMachineAvg),
			calc.PieShares(calc.ReasonShares(c.SectionAverages[name]), opts.PieThreshold)))
	}

	title = fmt.Sprintf("Top %d Most Stopped Machines", opts.ChartMachines)
	add(chart.MachineBars(title, layout.ChartPath(title, report.CategoryGeneral), calc.Tail(c.MachineStopTimes, opts.ChartMachines)))
	title = fmt.Sprintf("Top %d Least Stopped Machines", opts.ChartMachines)
	add(chart.MachineBars(title, layout.ChartPath(title, report.CategoryGeneral), calc.Head(c.MachineStopTimes, opts.ChartMachines)))

	bottom, top := calc.TopBottomMachines(c.MachineStopTimes, opts.TopBottomCount)
	title = fmt.Sprintf("Least %d and Most %d Stopped Machines", len(bottom), len(top))
	add(chart.TopBottom(title, layout.ChartPath(title, report.CategoryGeneral), bottom, top))

	for _, m := range machineReasons(c.MachineStopTypes) {
		title := m.machine + " - Stoppage Times"
		add(chart.ReasonBars(title, layout.ChartPath(title, report.CategoryMachines, report.DirLatestWeek), m.rows))
	}

	weeks := strconv.Itoa(len(c.ComparisonWeeks))
	for _, w := range c.WeeklyBySection {
		title := w.Group + " - " + weeks + " Weeks"
		add(chart.Weekly(title, layout.ChartPath(title, report.CategorySections, report.DirWeekly), w))
	}
	for _, w := range c.WeeklyByMachine {
		title := w.Group + " - " + weeks + " Weeks"
		add(chart.Weekly(title, layout.ChartPath(title, report.CategoryMachines, report.DirWeekly), w))
	}

	for _, a := range c.OEE {
		title := fmt.Sprintf("Week %d OEE Metrics", a.Week)
		add(chart.OEE(title, layout.ChartPath(title, report.CategoryOEE, report.DirOEEGeneral), a))
	}
	return specs
}

type machineRows struct {
	machine string
	rows    model.MachineReasonTable
}

// machineReasons splits a (machine, reason) table per machine, skipping
// machines whose total is zero minutes
func machineReasons(t model.MachineReasonTable) []machineRows {
	out := make([]machineRows, 0)
	for i := 0; i < len(t); {
		j := i
		var total int64
		for j < len(t) && t[j].Machine == t[i].Machine {
			total += t[j].Minutes
			j++
		}
		if total > 0 {
			out = append(out, machineRows{machine: t[i].Machine, rows: t[i:j]})
		}
		i = j
	}
	return out
}

// Render draws the planned charts and writes the exports. Failures are
// logged and skipped; cancellation is checked before every chart.
func Render(ctx context.Context, c *Computed, renderer chart.Renderer, opts Options, progress func(percent int, message string)) (*Rendered, error) {
	layout := report.NewLayout(opts.OutputRoot)
	out := &Rendered{Artifacts: []string{}, Failed: []string{}}

	if opts.ExportLatestWeek {
		path := layout.LatestWeekExportPath()
		if err := safely(func() error {
			return export.WriteXLSX(path, []export.Sheet{{Name: "Latest Week", Table: c.LatestEvents}})
		}); err != nil {
			logger.ErrorCtx(ctx, "latest week export failed: %v", err)
			out.Failed = append(out.Failed, path)
		} else {
			logger.InfoCtx(ctx, "latest week exported: %s", path)
			out.Artifacts = append(out.Artifacts, path)
		}
	}

	if opts.SaveCharts && renderer != nil {
		specs := Plan(c, layout, opts)
		for i, spec := range specs {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			if err := safely(func() error { return renderer.Render(spec) }); err != nil {
				logger.ErrorCtx(ctx, "chart %q skipped: %v", spec.Title, err)
				out.Failed = append(out.Failed, spec.Path)
			} else {
				out.Artifacts = append(out.Artifacts, spec.Path)
			}
			if progress != nil {
				progress(50+45*(i+1)/len(specs), fmt.Sprintf("Rendered %d of %d charts", i+1, len(specs)))
			}
		}
	}

	if opts.ExportSummary {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		path := layout.SummaryPath()
		if err := safely(func() error { return export.WriteXLSX(path, summarySheets(c)) }); err != nil {
			logger.ErrorCtx(ctx, "summary export failed: %v", err)
			out.Failed = append(out.Failed, path)
		} else {
			out.Artifacts = append(out.Artifacts, path)
		}

		for _, s := range summaryCSVs(c) {
			path := layout.TablePath(s.Name, report.CategoryGeneral)
			if err := safely(func() error { return export.WriteCSV(path, s.Table) }); err != nil {
				logger.ErrorCtx(ctx, "csv export %q failed: %v", s.Name, err)
				out.Failed = append(out.Failed, path)
				continue
			}
			out.Artifacts = append(out.Artifacts, path)
		}
	}
	return out, nil
}

// safely turns a panic raised while writing an artifact into an error
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// summaryCSVs tables also published as plain csv for spreadsheet-less consumers
func summaryCSVs(c *Computed) []export.Sheet {
	return []export.Sheet{
		{Name: "Stop Time Sum", Table: c.StopTimeSum},
		{Name: "Machine Stop Times", Table: c.MachineStopTimes},
	}
}

func summarySheets(c *Computed) []export.Sheet {
	sheets := []export.Sheet{
		{Name: "Stop Time Sum", Table: c.StopTimeSum},
		{Name: "Section Average", Table: c.SectionAverage},
		{Name: "Machine Stop Times", Table: c.MachineStopTimes},
		{Name: "Machine Stop Types", Table: c.MachineStopTypes},
		{Name: "Top Stops by Section", Table: c.TopStopsBySection},
		{Name: "Top Stops by Machine", Table: c.TopStopsByMachine},
		{Name: "OEE", Table: c.OEE},
	}
	for _, name := range c.Sections {
		sheets = append(sheets, export.Sheet{Name: name, Table: c.SectionAverages[name]})
	}
	return sheets
}
