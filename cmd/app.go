package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"shopfloor/app/handler"
	"shopfloor/internal/jobs"
	"shopfloor/internal/model"
	"shopfloor/internal/pipeline"
	"shopfloor/internal/service"
	"shopfloor/pkg/config"
	"shopfloor/pkg/logger"
	"shopfloor/pkg/report"

	"github.com/gin-gonic/gin"
)

// Application manages the lifecycle of the entire application
type Application struct {
	// Infrastructure components
	config     *config.Config
	configPath string
	layout     *report.Layout

	// Pipeline and service layer
	pipeline   *pipeline.Pipeline
	runService *service.RunService

	// Handler layer
	reportHandler *handler.ReportHandler
	runHandler    *handler.RunHandler
	jobHandler    *handler.JobHandler

	// HTTP server
	httpServer *http.Server
	ginEngine  *gin.Engine

	// Background tasks
	jobsManager *jobs.Manager

	// Context management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Background task cleanup functions
	cleanupFuncs []func()
}

// NewApplication creates a new Application instance. An empty configPath
// falls back to CONFIG_PATH and then config/config.yaml.
func NewApplication(configPath string) *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		configPath:   configPath,
		ctx:          ctx,
		cancel:       cancel,
		cleanupFuncs: make([]func(), 0),
	}
}

// Initialize initializes all application components
func (app *Application) Initialize() error {
	return app.initialize(true)
}

// InitializeOnce initializes the components needed for a single CLI run
func (app *Application) InitializeOnce() error {
	return app.initialize(false)
}

func (app *Application) initialize(server bool) error {
	var err error

	// Initialize components in order
	steps := []struct {
		name string
		fn   func() error
	}{
		{"Configuration", app.initConfig},
		{"Logging", app.initLogger},
		{"Output Layout", app.initLayout},
		{"Pipeline", app.initPipeline},
		{"Service Layer", app.initServices},
	}
	if server {
		steps = append(steps, []struct {
			name string
			fn   func() error
		}{
			{"Background Tasks", app.initJobs},
			{"Handler Layer", app.initHandlers},
			{"HTTP Server", app.initHTTPServer},
		}...)
	}

	for _, step := range steps {
		logger.InfoCtx(app.ctx, "Initializing %s...", step.name)
		if err = step.fn(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		logger.InfoCtx(app.ctx, "%s initialized successfully", step.name)
	}

	logger.InfoCtx(app.ctx, "Application initialization completed")
	return nil
}

// Start starts all application components
func (app *Application) Start() error {
	logger.InfoCtx(app.ctx, "Starting application components...")

	// 1. Start background tasks
	if app.jobsManager != nil {
		logger.InfoCtx(app.ctx, "Starting background task manager")
		app.jobsManager.Start()
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.jobsManager.Wait()
		}()
	}

	// 2. Start HTTP server
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		logger.InfoCtx(app.ctx, "HTTP server listening on: %s", app.httpServer.Addr)
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalCtx(app.ctx, "HTTP server error: %v", err)
		}
	}()

	logger.InfoCtx(app.ctx, "All components started successfully")
	return nil
}

// RunOnce runs one report in the foreground and returns its final state
func (app *Application) RunOnce(ctx context.Context, req model.RunRequest) error {
	req.Trigger = model.TriggerCLI
	run, err := app.runService.Start(ctx, req)
	if err != nil {
		return err
	}
	logger.InfoCtx(ctx, "report run %s started", run.ID)

	finished, err := app.runService.Wait(ctx, run.ID)
	if err != nil {
		return err
	}
	logger.InfoCtx(ctx, "report run %s %s: %s", finished.ID, finished.Status, finished.Message)
	for _, path := range finished.Artifacts {
		logger.InfoCtx(ctx, "artifact: %s", path)
	}
	switch {
	case finished.Error != "":
		return fmt.Errorf("%s", finished.Error)
	case finished.Status != model.RunStatusCompleted:
		return fmt.Errorf("report run %s ended with status %s", finished.ID, finished.Status)
	}
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown(timeout time.Duration) error {
	logger.InfoCtx(app.ctx, "Starting graceful shutdown (timeout: %v)...", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 1. Cancel all background tasks
	logger.InfoCtx(app.ctx, "Canceling background tasks...")
	app.cancel()
	if app.jobsManager != nil {
		app.jobsManager.Stop()
	}

	// 2. Stop HTTP server (stop accepting new requests)
	if app.httpServer != nil {
		logger.InfoCtx(app.ctx, "Shutting down HTTP server...")
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorCtx(app.ctx, "HTTP server shutdown error: %v", err)
		}
	}

	// 3. Wait for runs and background tasks to complete
	logger.InfoCtx(app.ctx, "Waiting for background tasks to complete...")
	done := make(chan struct{})
	go func() {
		if app.runService != nil {
			app.runService.Shutdown()
		}
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoCtx(app.ctx, "All background tasks completed")
	case <-shutdownCtx.Done():
		logger.WarnCtx(app.ctx, "Shutdown timeout, some tasks may not have completed")
	}

	// 4. Execute all cleanup functions (in reverse registration order)
	logger.InfoCtx(app.ctx, "Executing cleanup functions...")
	for i := len(app.cleanupFuncs) - 1; i >= 0; i-- {
		app.cleanupFuncs[i]()
	}

	logger.InfoCtx(app.ctx, "Graceful shutdown completed")
	return nil
}

// registerCleanup registers cleanup function
func (app *Application) registerCleanup(cleanup func()) {
	app.cleanupFuncs = append(app.cleanupFuncs, cleanup)
}
