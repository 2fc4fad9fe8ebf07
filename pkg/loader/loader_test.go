package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shopfloor/internal/model"
)

const downtimeCSV = `Machine Code,Stoppage Name,Start Time,End Time
CT.D01,SETUP,2024-01-08 08:00:00,2024-01-08 08:10:30
CT.D01,BREAKDOWN,2024-01-09 10:00:00,2024-01-09 09:00:00

IM.K01,WORKING TIME,2024-01-15 06:00:00,2024-01-15 14:00:00
`

const metricsCSV = `Machine Code;Date;Working Time;Scheduled Downtime;Unscheduled Downtime;OEE;Performance;Availability;Quality
CT.D01;08.01.2024;420;30;15,5;0,75;0,9;85%;0,98
IM.K01;15.01.2024;480;0;0;0,8;0,85;0,95;1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDowntime_CSV(t *testing.T) {
	res := LoadDowntime(context.Background(), writeFile(t, "downtime.csv", downtimeCSV))
	require.True(t, res.Success, res.Message)
	require.Equal(t, 3, res.Source.Len())
	assert.Equal(t, "Downtime data loaded successfully. 3 rows read.", res.Message)
	assert.Equal(t, DowntimeColumns, res.Source.Columns)

	first := res.Source.Events[0]
	assert.Equal(t, "CT.D01", first.MachineCode)
	assert.Equal(t, "SETUP", first.Reason)
	assert.Equal(t, time.Date(2024, 1, 8, 8, 0, 0, 0, time.Local), first.Start)
	assert.Equal(t, int64(630), first.DurationSeconds)
	assert.Equal(t, int64(10), first.DurationMinutes())
	assert.Equal(t, 2, first.Week)

	assert.Equal(t, int64(0), res.Source.Events[1].DurationSeconds, "negative durations are clamped")
	assert.Equal(t, 3, res.Source.Events[2].Week)
}

func TestLoadDowntime_Aliases(t *testing.T) {
	content := "İş Merkezi Kodu,Duruş Adı,Duruş Başlangıç Tarih,Duruş Bitiş Tarih\nCT.D01,SETUP,2024-01-08 08:00,2024-01-08 08:01\n"
	res := LoadDowntime(context.Background(), writeFile(t, "downtime.csv", content))
	require.True(t, res.Success, res.Message)
	assert.Equal(t, int64(60), res.Source.Events[0].DurationSeconds)
}

func TestLoadDowntime_Failures(t *testing.T) {
	testCases := []struct {
		name     string
		file     string
		content  string
		contains string
	}{
		{"missing column", "d.csv", "Machine Code,Stoppage Name,Start Time\nA,B,2024-01-01\n", "missing required columns: End Time"},
		{"bad timestamp", "d.csv", "Machine Code,Stoppage Name,Start Time,End Time\nA,B,yesterday,2024-01-01\n", "row 2: Start Time"},
		{"empty machine", "d.csv", "Machine Code,Stoppage Name,Start Time,End Time\n,B,2024-01-01,2024-01-01\n", "row 2: empty Machine Code"},
		{"empty file", "d.csv", "", ErrEmptyTable.Error()},
		{"unsupported format", "d.json", "{}", ErrUnsupportedFormat.Error()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := LoadDowntime(context.Background(), writeFile(t, tc.file, tc.content))
			assert.False(t, res.Success)
			assert.Nil(t, res.Source)
			assert.Contains(t, res.Message, tc.contains)
		})
	}

	res := LoadDowntime(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "failed to load downtime data")
}

func TestLoadDowntime_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downtime.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{ColMachineCode, ColStoppageName, ColStartTime, ColEndTime}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"CT.D02", "SETUP", "2024-02-05 07:00:00", "2024-02-05 07:30:00"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	res := LoadDowntime(context.Background(), path)
	require.True(t, res.Success, res.Message)
	require.Equal(t, 1, res.Source.Len())
	assert.Equal(t, int64(1800), res.Source.Events[0].DurationSeconds)
	assert.Equal(t, 6, res.Source.Events[0].Week)
}

func TestLoadMetrics_SemicolonDecimalComma(t *testing.T) {
	res := LoadMetrics(context.Background(), writeFile(t, "metrics.csv", metricsCSV))
	require.True(t, res.Success, res.Message)
	require.Equal(t, 2, res.Source.Len())

	r := res.Source.Records[0]
	assert.Equal(t, "CT.D01", r.MachineCode)
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.Local), r.Date)
	assert.Equal(t, 2, r.Week())
	assert.Equal(t, 15.5, r.UnscheduledDowntime)
	assert.Equal(t, 0.75, r.OEE)
	assert.InDelta(t, 0.85, r.Availability, 1e-9)
	assert.Equal(t, 1.0, res.Source.Records[1].Quality)
}

func TestLoadMetrics_BadNumber(t *testing.T) {
	content := "Machine Code,Date,Working Time,Scheduled Downtime,Unscheduled Downtime,OEE,Performance,Availability,Quality\n" +
		"CT.D01,2024-01-08,abc,0,0,0,0,0,0\n"
	res := LoadMetrics(context.Background(), writeFile(t, "metrics.csv", content))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "row 2: Working Time")
}

func TestLoadMetrics_BlankCellsAreMissing(t *testing.T) {
	content := "Machine Code,Date,Working Time,Scheduled Downtime,Unscheduled Downtime,OEE,Performance,Availability,Quality\n" +
		"CT.D01,2023-01-02,1,0.1,0.1,,0.9,0.9,0.9\n" +
		"CT.D02,2023-01-03,1,0.1,0.1,0.5,0.9,,0.9\n"
	res := LoadMetrics(context.Background(), writeFile(t, "metrics.csv", content))
	require.True(t, res.Success, res.Message)
	require.Equal(t, 2, res.Source.Len())
	assert.Equal(t, 2, res.Source.Blanks)

	first := res.Source.Records[0]
	assert.False(t, first.Has(model.MetricOEE))
	assert.True(t, first.Has(model.MetricPerformance))
	assert.Equal(t, 0.9, first.Performance)

	second := res.Source.Records[1]
	assert.True(t, second.Has(model.MetricOEE))
	assert.False(t, second.Has(model.MetricAvailability))
	assert.Equal(t, 0.5, second.OEE)
}

func TestLoadFaultyMachines(t *testing.T) {
	res := LoadFaultyMachines(context.Background(), writeFile(t, "faulty.txt", "CT.D01\n\n  IM.K01  \nCT.D01\n"))
	require.True(t, res.Success)
	assert.Equal(t, []string{"CT.D01", "IM.K01"}, res.Machines)

	res = LoadFaultyMachines(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.False(t, res.Success)
	assert.Empty(t, res.Machines)
	assert.Contains(t, res.Message, "failed to load faulty machine list")
}

func TestParseNumber(t *testing.T) {
	testCases := []struct {
		in   string
		want float64
		err  bool
	}{
		{"12", 12, false},
		{"12,5", 12.5, false},
		{"12.5", 12.5, false},
		{"85%", 0.85, false},
		{"1 200", 1200, false},
		{"", 0, true},
		{"n/a", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseNumber(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestParseTime_Serial(t *testing.T) {
	got, err := parseTime("45299.5")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Date(2024, 1, 8, 12, 0, 0, 0, time.Local), got, time.Second)
}

func TestValidateSources(t *testing.T) {
	ctx := context.Background()
	downtime := LoadDowntime(ctx, writeFile(t, "downtime.csv", downtimeCSV)).Source
	metrics := LoadMetrics(ctx, writeFile(t, "metrics.csv", metricsCSV)).Source

	ok, msg := ValidateSources(downtime, metrics)
	assert.True(t, ok)
	assert.Equal(t, "2 common machine codes found.", msg)

	ok, msg = ValidateSources(nil, metrics)
	assert.False(t, ok)
	assert.Equal(t, "Downtime data is empty or invalid.", msg)

	ok, msg = ValidateSources(nil, nil)
	assert.False(t, ok)
	assert.Equal(t, "Downtime data is empty or invalid.\nMachine metrics data is empty or invalid.", msg)

	other := &MetricsSource{Columns: MetricsColumns, Records: []model.MachineMetricRecord{{MachineCode: "ZZ.999"}}}
	ok, msg = ValidateSources(downtime, other)
	assert.False(t, ok)
	assert.Contains(t, msg, "No machine code is shared")

	partial := &DowntimeSource{Columns: DowntimeColumns[:2], Events: downtime.Events}
	ok, msg = ValidateSources(partial, metrics)
	assert.False(t, ok)
	assert.Equal(t, "Downtime data is missing columns: Start Time, End Time", msg)
}
