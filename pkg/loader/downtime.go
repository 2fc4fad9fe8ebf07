package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"shopfloor/internal/model"
	"shopfloor/pkg/logger"
)

// DowntimeSource loaded downtime table
type DowntimeSource struct {
	Path    string
	Columns []string // canonical columns present in the file
	Events  []model.DowntimeEvent
}

// Len number of events, 0 for a nil source
func (s *DowntimeSource) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Events)
}

// DowntimeLoadResult outcome of LoadDowntime. Source is nil when Success is false.
type DowntimeLoadResult struct {
	Success bool
	Source  *DowntimeSource
	Message string
}

// LoadDowntime reads machine stoppage events from a .csv or .xlsx file
func LoadDowntime(ctx context.Context, path string) *DowntimeLoadResult {
	logger.InfoCtx(ctx, "loading downtime data: %s", path)

	src, err := loadDowntime(ctx, path)
	if err != nil {
		msg := fmt.Sprintf("failed to load downtime data: %v", err)
		logger.ErrorCtx(ctx, "%s", msg)
		return &DowntimeLoadResult{Success: false, Message: msg}
	}

	logger.InfoCtx(ctx, "downtime data loaded, rows: %d", len(src.Events))
	return &DowntimeLoadResult{
		Success: true,
		Source:  src,
		Message: fmt.Sprintf("Downtime data loaded successfully. %d rows read.", len(src.Events)),
	}
}

func loadDowntime(ctx context.Context, path string) (*DowntimeSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}

	idx, missing := resolveColumns(t, DowntimeColumns)
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	events := make([]model.DowntimeEvent, 0, len(t.Rows))
	clamped := 0
	for i, row := range t.Rows {
		line := i + 2 // header is line 1
		machine := t.Cell(row, idx[ColMachineCode])
		reason := t.Cell(row, idx[ColStoppageName])
		if machine == "" {
			return nil, fmt.Errorf("row %d: empty %s", line, ColMachineCode)
		}
		if reason == "" {
			return nil, fmt.Errorf("row %d: empty %s", line, ColStoppageName)
		}
		start, err := parseTime(t.Cell(row, idx[ColStartTime]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", line, ColStartTime, err)
		}
		end, err := parseTime(t.Cell(row, idx[ColEndTime]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", line, ColEndTime, err)
		}
		if end.Before(start) {
			clamped++
		}
		events = append(events, model.NewDowntimeEvent(machine, reason, start, end))
	}
	if clamped > 0 {
		logger.WarnCtx(ctx, "%d downtime rows end before they start, counted as zero duration", clamped)
	}

	return &DowntimeSource{Path: path, Columns: canonicalColumns(t, DowntimeColumns), Events: events}, nil
}
