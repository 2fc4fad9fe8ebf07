package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"shopfloor/internal/model"
	"shopfloor/pkg/config"
)

// ErrInputOutsideDir an override names a file outside the input directory
var ErrInputOutsideDir = errors.New("input file outside the input directory")

// Options inputs and parameters of one run
type Options struct {
	DowntimeFile string
	MetricsFile  string
	FaultyFile   string // optional
	InputDir     string // confines request overrides, "" is the working directory

	OutputRoot       string
	SaveCharts       bool
	ExportLatestWeek bool
	ExportSummary    bool

	PieThreshold    float64
	TopN            int
	ChartMachines   int
	TopBottomCount  int
	ComparisonWeeks int
	WorkingTime     string
	SortByLastWeek  bool

	Sections []config.SectionConfig
}

// OptionsFromConfig run options of a loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DowntimeFile:     cfg.Input.DowntimeFile,
		MetricsFile:      cfg.Input.MetricsFile,
		FaultyFile:       cfg.Input.FaultyFile,
		InputDir:         cfg.Input.Dir,
		OutputRoot:       cfg.Output.Root,
		SaveCharts:       cfg.Output.SaveCharts,
		ExportLatestWeek: cfg.Output.ExportLatestWeek,
		ExportSummary:    cfg.Output.ExportSummary,
		PieThreshold:     cfg.Analysis.PieThreshold,
		TopN:             cfg.Analysis.TopN,
		ChartMachines:    cfg.Analysis.ChartMachines,
		TopBottomCount:   cfg.Analysis.TopBottomCount,
		ComparisonWeeks:  cfg.Analysis.ComparisonWeeks,
		WorkingTime:      cfg.Analysis.WorkingTimeReason,
		SortByLastWeek:   cfg.Analysis.SortByLastWeek,
		Sections:         append([]config.SectionConfig(nil), cfg.Sections...),
	}
}

// WithRequest returns a copy of o with the non empty request fields applied
func (o Options) WithRequest(req model.RunRequest) Options {
	if req.DowntimeFile != "" {
		o.DowntimeFile = req.DowntimeFile
	}
	if req.MetricsFile != "" {
		o.MetricsFile = req.MetricsFile
	}
	if req.FaultyFile != "" {
		o.FaultyFile = req.FaultyFile
	}
	if req.SaveCharts != nil {
		o.SaveCharts = *req.SaveCharts
	}
	if req.ExportLatestWeek != nil {
		o.ExportLatestWeek = *req.ExportLatestWeek
	}
	if req.ExportSummary != nil {
		o.ExportSummary = *req.ExportSummary
	}
	if req.PieThreshold != nil && *req.PieThreshold > 0 && *req.PieThreshold < 100 {
		o.PieThreshold = *req.PieThreshold
	}
	return o
}

// CheckInputs rejects request file overrides that resolve outside InputDir
func (o Options) CheckInputs(req model.RunRequest) error {
	dir := o.InputDir
	if dir == "" {
		dir = "."
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	for _, p := range []string{req.DowntimeFile, req.MetricsFile, req.FaultyFile} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: %s", ErrInputOutsideDir, p)
		}
	}
	return nil
}
