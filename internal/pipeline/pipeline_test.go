package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfloor/internal/model"
	"shopfloor/pkg/chart"
	"shopfloor/pkg/config"
	"shopfloor/pkg/report"
)

const testDowntime = `Machine Code,Stoppage Name,Start Time,End Time
CT.D01,FAULT,2024-01-08 08:00:00,2024-01-08 09:00:00
CT.D02,SETUP,2024-01-15 08:00:00,2024-01-15 08:30:00
CT.D01,FAULT,2024-01-15 10:00:00,2024-01-15 11:00:00
IM.K01,WORKING TIME,2024-01-15 06:00:00,2024-01-15 14:00:00
XX.BAD,FAULT,2024-01-15 06:00:00,2024-01-15 23:00:00
`

const testMetrics = `Machine Code,Date,Working Time,Scheduled Downtime,Unscheduled Downtime,OEE,Performance,Availability,Quality
CT.D01,2024-01-08,420,30,15,0.7,0.9,0.8,0.97
CT.D02,2024-01-15,400,0,20,0.6,0.8,0.9,0.9
IM.K01,2024-01-15,480,0,0,0.8,0.9,0.95,1
`

// fakeRenderer records specs instead of drawing them
type fakeRenderer struct {
	mu     sync.Mutex
	specs  []chart.Spec
	failOn  string
	panicOn string
	onCall  func()
}

func (r *fakeRenderer) Render(spec chart.Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onCall != nil {
		r.onCall()
	}
	if spec.Title == r.failOn {
		return errors.New("boom")
	}
	if spec.Title == r.panicOn {
		panic("plotter blew up")
	}
	r.specs = append(r.specs, spec)
	return nil
}

func (r *fakeRenderer) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s.Title)
	}
	return out
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Input = config.InputConfig{
		DowntimeFile: write(t, dir, "downtime.csv", testDowntime),
		MetricsFile:  write(t, dir, "metrics.csv", testMetrics),
		FaultyFile:   write(t, dir, "faulty.txt", "XX.BAD\n"),
	}
	cfg.Output.Root = filepath.Join(dir, "Reports")
	cfg.Output.SaveCharts = true
	cfg.Output.ExportLatestWeek = true
	cfg.Output.ExportSummary = true
	cfg.Sections = []config.SectionConfig{
		{Name: "CNC", Machines: []string{"CT.D01", "CT.D02"}},
		{Name: "Injection", Machines: []string{"IM.K01"}},
	}
	return OptionsFromConfig(cfg)
}

func TestPipeline_Run(t *testing.T) {
	opts := testOptions(t)
	renderer := &fakeRenderer{}

	var mu sync.Mutex
	var events []model.Progress
	res, err := New(renderer).Run(context.Background(), opts, func(p model.Progress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"XX.BAD"}, res.Loaded.Faulty)
	assert.Len(t, res.Prepared.Events, 4, "faulty machines are excluded")
	assert.Equal(t, []int{2, 3}, res.Prepared.Weeks)
	assert.Equal(t, 3, res.Prepared.LatestWeek)

	c := res.Computed
	require.Len(t, c.StopTimeSum, 3)
	assert.Equal(t, "WORKING TIME", c.StopTimeSum[0].Reason)
	require.Len(t, c.MachineStopTimes, 2)
	assert.Equal(t, "CT.D02", c.MachineStopTimes[0].Machine)
	assert.Equal(t, int64(60), c.MachineStopTimes[1].Minutes)
	require.Len(t, c.SectionAverage, 1)
	assert.Equal(t, 2700.0, c.SectionAverage[0].Seconds)
	assert.Equal(t, []int{2, 3}, c.ComparisonWeeks)
	assert.Len(t, c.OEE, 2)
	assert.Len(t, c.LatestEvents, 3)
	for _, row := range c.TopStopsByMachine {
		assert.Equal(t, 3, row.Week)
	}

	titles := renderer.titles()
	assert.Contains(t, titles, "All Machines Total")
	assert.Contains(t, titles, "All Sections (Per Machine)")
	assert.Contains(t, titles, "CNC (Per Machine)")
	assert.Contains(t, titles, "CT.D01 - Stoppage Times")
	assert.Contains(t, titles, "CT.D01 - 2 Weeks")
	assert.Contains(t, titles, "Week 2 OEE Metrics")

	layout := report.NewLayout(opts.OutputRoot)
	assert.Contains(t, res.Rendered.Artifacts, layout.LatestWeekExportPath())
	assert.Contains(t, res.Rendered.Artifacts, layout.SummaryPath())
	assert.FileExists(t, layout.SummaryPath())
	assert.FileExists(t, layout.TablePath("Machine Stop Times", report.CategoryGeneral))
	assert.Empty(t, res.Rendered.Failed)

	require.NotEmpty(t, events)
	assert.Equal(t, 10, events[0].Percent)
	assert.Equal(t, StageDone, events[len(events)-1].Stage)
	assert.Equal(t, 100, events[len(events)-1].Percent)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Percent, events[i-1].Percent)
	}
}

func TestPipeline_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Options)
		want   error
	}{
		{"missing downtime", func(o *Options) { o.DowntimeFile = filepath.Join(t.TempDir(), "none.csv") }, ErrLoad},
		{"missing metrics", func(o *Options) { o.MetricsFile = filepath.Join(t.TempDir(), "none.csv") }, ErrLoad},
		{"no shared machines", func(o *Options) {
			o.MetricsFile = write(t, t.TempDir(), "m.csv", "Machine Code,Date,Working Time,Scheduled Downtime,Unscheduled Downtime,OEE,Performance,Availability,Quality\n"+
				"ZZ.1,2024-01-08,1,1,1,1,1,1,1\n")
		}, ErrValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions(t)
			tc.mutate(&opts)
			res, err := New(&fakeRenderer{}).Run(context.Background(), opts, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), err.Error())
			assert.Nil(t, res.Computed)
		})
	}
}

func TestPipeline_MissingFaultyListIsIgnored(t *testing.T) {
	opts := testOptions(t)
	opts.FaultyFile = filepath.Join(t.TempDir(), "none.txt")
	opts.SaveCharts = false

	res, err := New(nil).Run(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Loaded.Faulty)
	assert.Len(t, res.Prepared.Events, 5)
}

func TestPipeline_Cancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := New(&fakeRenderer{}).Run(ctx, testOptions(t), nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, res.Loaded)
	})

	t.Run("during render", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		renderer := &fakeRenderer{onCall: cancel}

		res, err := New(renderer).Run(ctx, testOptions(t), nil)
		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, res.Computed, "computed tables survive cancellation")
		assert.Len(t, renderer.titles(), 1, "no chart is drawn after cancellation")
	})
}

func TestRender_FailedChartIsSkipped(t *testing.T) {
	opts := testOptions(t)
	opts.ExportLatestWeek = false
	opts.ExportSummary = false
	renderer := &fakeRenderer{failOn: "All Machines Total"}

	res, err := New(renderer).Run(context.Background(), opts, nil)
	require.NoError(t, err)

	layout := report.NewLayout(opts.OutputRoot)
	assert.Equal(t, []string{layout.ChartPath("All Machines Total", report.CategoryGeneral)}, res.Rendered.Failed)
	assert.NotEmpty(t, res.Rendered.Artifacts)
}

func TestRender_PanickingChartIsSkipped(t *testing.T) {
	opts := testOptions(t)
	opts.ExportLatestWeek = false
	opts.ExportSummary = false
	renderer := &fakeRenderer{panicOn: "All Machines Total"}

	res, err := New(renderer).Run(context.Background(), opts, nil)
	require.NoError(t, err)

	layout := report.NewLayout(opts.OutputRoot)
	assert.Equal(t, []string{layout.ChartPath("All Machines Total", report.CategoryGeneral)}, res.Rendered.Failed)
	assert.NotEmpty(t, renderer.titles(), "later charts are still drawn")
}

func TestSafely(t *testing.T) {
	err := safely(func() error { panic("bad sheet") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad sheet")

	assert.NoError(t, safely(func() error { return nil }))
	assert.EqualError(t, safely(func() error { return errors.New("disk full") }), "disk full")
}

func TestGuard(t *testing.T) {
	got := guard(context.Background(), "panics", model.StopTimeTable{}, func() model.StopTimeTable {
		var m map[string]int
		m["x"] = 1
		return nil
	})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	ok := guard(context.Background(), "fine", 0, func() int { return 7 })
	assert.Equal(t, 7, ok)
}

func TestOptions_WithRequest(t *testing.T) {
	base := OptionsFromConfig(config.Default())
	yes, no := true, false
	threshold, bad := 7.5, 150.0

	out := base.WithRequest(model.RunRequest{
		DowntimeFile:  "d.xlsx",
		SaveCharts:    &yes,
		ExportSummary: &no,
		PieThreshold:  &threshold,
	})
	assert.Equal(t, "d.xlsx", out.DowntimeFile)
	assert.Equal(t, base.MetricsFile, out.MetricsFile)
	assert.True(t, out.SaveCharts)
	assert.False(t, out.ExportSummary)
	assert.Equal(t, 7.5, out.PieThreshold)

	out = base.WithRequest(model.RunRequest{PieThreshold: &bad})
	assert.Equal(t, config.DefaultPieThreshold, out.PieThreshold)
}

func TestOptions_CheckInputs(t *testing.T) {
	dir := t.TempDir()
	opts := Options{InputDir: dir}

	testCases := []struct {
		name string
		req  model.RunRequest
		ok   bool
	}{
		{"no overrides", model.RunRequest{}, true},
		{"inside", model.RunRequest{DowntimeFile: filepath.Join(dir, "d.xlsx")}, true},
		{"nested", model.RunRequest{MetricsFile: filepath.Join(dir, "2024", "m.csv")}, true},
		{"parent", model.RunRequest{DowntimeFile: filepath.Join(dir, "..", "d.xlsx")}, false},
		{"absolute elsewhere", model.RunRequest{FaultyFile: "/etc/passwd"}, false},
		{"sibling prefix", model.RunRequest{MetricsFile: dir + "-other/m.csv"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := opts.CheckInputs(tc.req)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInputOutsideDir)
		})
	}

	assert.NoError(t, Options{}.CheckInputs(model.RunRequest{DowntimeFile: "d.xlsx"}), "empty dir is the working directory")
}

func TestPlan_SkipsEmptyCharts(t *testing.T) {
	layout := report.NewLayout(t.TempDir())
	specs := Plan(&Computed{SectionAverages: map[string]model.StopTimeTable{}}, layout, OptionsFromConfig(config.Default()))
	assert.Empty(t, specs)

	rows := machineReasons(model.MachineReasonTable{
		{Machine: "A", Reason: "FAULT", Duration: model.NewDuration(30)},
		{Machine: "B", Reason: "FAULT", Duration: model.NewDuration(120)},
		{Machine: "B", Reason: "SETUP", Duration: model.NewDuration(60)},
	})
	require.Len(t, rows, 1, "machines below one minute are skipped")
	assert.Equal(t, "B", rows[0].machine)
	assert.Len(t, rows[0].rows, 2)
}

func TestPlan_MachineChartsUseChartMachines(t *testing.T) {
	layout := report.NewLayout(t.TempDir())
	var machines model.MachineTable
	for i, code := range []string{"A", "B", "C", "D", "E", "F"} {
		machines = append(machines, model.MachineDuration{Machine: code, Duration: model.NewDuration(float64(60 * (i + 1)))})
	}

	opts := OptionsFromConfig(config.Default())
	opts.TopN = 2
	opts.ChartMachines = 4
	specs := Plan(&Computed{MachineStopTimes: machines, SectionAverages: map[string]model.StopTimeTable{}}, layout, opts)

	byTitle := make(map[string]chart.Spec)
	for _, s := range specs {
		byTitle[s.Title] = s
	}
	most, ok := byTitle["Top 4 Most Stopped Machines"]
	require.True(t, ok)
	assert.Equal(t, []string{"C", "D", "E", "F"}, most.Labels)
	least, ok := byTitle["Top 4 Least Stopped Machines"]
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C", "D"}, least.Labels)
}
