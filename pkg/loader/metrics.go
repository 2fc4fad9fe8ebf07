package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"shopfloor/internal/model"
	"shopfloor/pkg/logger"
)

// MetricsSource loaded machine metrics table
type MetricsSource struct {
	Path    string
	Columns []string
	Records []model.MachineMetricRecord
	// Blanks number of empty numeric cells
	Blanks int
}

// Len number of records, 0 for a nil source
func (s *MetricsSource) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// MetricsLoadResult outcome of LoadMetrics
type MetricsLoadResult struct {
	Success bool
	Source  *MetricsSource
	Message string
}

// LoadMetrics reads per machine, per day metrics from a .csv or .xlsx file
func LoadMetrics(ctx context.Context, path string) *MetricsLoadResult {
	logger.InfoCtx(ctx, "loading machine metrics: %s", path)

	src, err := loadMetrics(path)
	if err != nil {
		msg := fmt.Sprintf("failed to load machine metrics: %v", err)
		logger.ErrorCtx(ctx, "%s", msg)
		return &MetricsLoadResult{Success: false, Message: msg}
	}

	logger.InfoCtx(ctx, "machine metrics loaded, rows: %d", len(src.Records))
	if src.Blanks > 0 {
		logger.WarnCtx(ctx, "machine metrics: %d blank numeric cells left out of averages", src.Blanks)
	}
	return &MetricsLoadResult{
		Success: true,
		Source:  src,
		Message: fmt.Sprintf("Machine metrics loaded successfully. %d rows read.", len(src.Records)),
	}
}

func loadMetrics(path string) (*MetricsSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}

	idx, missing := resolveColumns(t, MetricsColumns)
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	records := make([]model.MachineMetricRecord, 0, len(t.Rows))
	blanks := 0
	for i, row := range t.Rows {
		line := i + 2
		rec := model.MachineMetricRecord{MachineCode: t.Cell(row, idx[ColMachineCode])}
		if rec.MachineCode == "" {
			return nil, fmt.Errorf("row %d: empty %s", line, ColMachineCode)
		}
		if rec.Date, err = parseTime(t.Cell(row, idx[ColDate])); err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", line, ColDate, err)
		}

		numbers := []struct {
			col   string
			field model.MetricField
			dst   *float64
		}{
			{ColWorkingTime, model.MetricWorkingTime, &rec.WorkingTime},
			{ColScheduledDowntime, model.MetricScheduledDowntime, &rec.ScheduledDowntime},
			{ColUnscheduledDowntime, model.MetricUnscheduledDowntime, &rec.UnscheduledDowntime},
			{ColOEE, model.MetricOEE, &rec.OEE},
			{ColPerformance, model.MetricPerformance, &rec.Performance},
			{ColAvailability, model.MetricAvailability, &rec.Availability},
			{ColQuality, model.MetricQuality, &rec.Quality},
		}
		for _, n := range numbers {
			cell := t.Cell(row, idx[n.col])
			if cell == "" {
				// blank cells are left out of the averages
				rec.Missing |= n.field
				blanks++
				continue
			}
			v, err := parseNumber(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", line, n.col, err)
			}
			*n.dst = v
		}
		records = append(records, rec)
	}

	return &MetricsSource{Path: path, Columns: canonicalColumns(t, MetricsColumns), Records: records, Blanks: blanks}, nil
}
