package main

import (
	"context"
	"fmt"
	"time"

	"shopfloor/internal/jobs"
	"shopfloor/internal/model"
	"shopfloor/internal/service"
	"shopfloor/pkg/logger"
)

func (app *Application) initJobs() error {
	if !app.config.Schedule.Enabled {
		logger.InfoCtx(app.ctx, "Report schedule disabled, skipping background task registration")
		return nil
	}
	if app.runService == nil {
		return fmt.Errorf("run service not initialized")
	}

	manager := jobs.NewManager(app.ctx)
	manager.Register(newReportJob(app.config.Schedule.Interval, app.config.Schedule.Align, app.runService))

	app.jobsManager = manager
	return nil
}

// reportJob periodically generates the full report from the configured inputs.
type reportJob struct {
	interval   time.Duration
	align      bool
	runService *service.RunService
}

func newReportJob(interval time.Duration, align bool, svc *service.RunService) jobs.Job {
	return &reportJob{
		interval:   interval,
		align:      align,
		runService: svc,
	}
}

func (j *reportJob) Name() string {
	return "scheduled-report"
}

func (j *reportJob) Interval() time.Duration {
	return j.interval
}

func (j *reportJob) AlignToInterval() bool {
	return j.align
}

func (j *reportJob) Run(ctx context.Context) error {
	if j.runService == nil {
		return fmt.Errorf("run service not configured")
	}

	run, err := j.runService.Start(ctx, model.RunRequest{Trigger: model.TriggerSchedule})
	if err != nil {
		return fmt.Errorf("failed to start scheduled report: %w", err)
	}

	finished, err := j.runService.Wait(ctx, run.ID)
	if err != nil {
		return err
	}
	if finished.Status != model.RunStatusCompleted {
		return fmt.Errorf("scheduled report %s ended with status %s: %s", finished.ID, finished.Status, finished.Message)
	}
	logger.InfoCtx(ctx, "scheduled report %s completed, artifacts: %d", finished.ID, len(finished.Artifacts))
	return nil
}
