// Package pipeline runs one downtime report: load, prepare, compute, render.
// Each stage returns a new record and never mutates the previous one.
package pipeline

import (
	"context"
	"errors"
	"time"

	"shopfloor/internal/model"
	"shopfloor/pkg/calc"
	"shopfloor/pkg/chart"
	"shopfloor/pkg/logger"
	"shopfloor/pkg/section"
)

var (
	// ErrLoad a source could not be read
	ErrLoad = errors.New("load failed")
	// ErrValidation the sources cannot be analysed together
	ErrValidation = errors.New("validation failed")
)

// Stage names reported in progress events
const (
	StageLoad    = "load"
	StagePrepare = "prepare"
	StageCompute = "compute"
	StageRender  = "render"
	StageDone    = "done"
)

// ProgressFunc receives progress events, it must not block
type ProgressFunc func(model.Progress)

// Result every stage record of a finished run
type Result struct {
	Loaded   *Loaded
	Prepared *Prepared
	Computed *Computed
	Rendered *Rendered
}

// Pipeline runs reports with one chart renderer
type Pipeline struct {
	renderer chart.Renderer
}

// New creates a pipeline. A nil renderer disables chart output.
func New(renderer chart.Renderer) *Pipeline {
	return &Pipeline{renderer: renderer}
}

// Run executes every stage. Cancellation is checked between stages and between
// charts; files written before cancellation stay on disk. A partial result is
// returned together with a cancellation error.
func (p *Pipeline) Run(ctx context.Context, opts Options, progress ProgressFunc) (*Result, error) {
	emit := func(stage string, percent int, msg string) {
		if progress != nil {
			progress(model.Progress{RunID: logger.RunID(ctx), Stage: stage, Percent: percent, Message: msg, Time: time.Now()})
		}
	}
	res := &Result{}
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return res, err
	}

	emit(StageLoad, 10, "Loading data...")
	loaded, err := Load(ctx, opts)
	if err != nil {
		logger.ErrorCtx(ctx, "run stopped: %v", err)
		return res, err
	}
	res.Loaded = loaded
	if err := ctx.Err(); err != nil {
		return res, err
	}

	emit(StagePrepare, 20, "Preparing data...")
	assigner := section.NewAssigner(opts.Sections)
	res.Prepared = Prepare(ctx, loaded, assigner)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	emit(StageCompute, 30, "Calculating...")
	engine := calc.NewEngine(assigner.MachineCounts(), opts.WorkingTime, opts.TopN)
	res.Computed = Compute(ctx, res.Prepared, engine, opts)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	emit(StageRender, 50, "Creating charts...")
	res.Rendered, err = Render(ctx, res.Computed, p.renderer, opts, func(percent int, msg string) {
		emit(StageRender, percent, msg)
	})
	if err != nil {
		return res, err
	}

	logger.InfoCtx(ctx, "run finished in %v, artifacts: %d, failed: %d",
		time.Since(started).Round(time.Millisecond), len(res.Rendered.Artifacts), len(res.Rendered.Failed))
	emit(StageDone, 100, "Analysis completed!")
	return res, nil
}
