package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"shopfloor/app/handler"
	"shopfloor/app/router"
	"shopfloor/internal/pipeline"
	"shopfloor/internal/service"
	"shopfloor/pkg/chart"
	"shopfloor/pkg/config"
	"shopfloor/pkg/logger"
	"shopfloor/pkg/report"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if app.configPath != "" {
		cfg, err := config.Load(app.configPath)
		if err != nil {
			return err
		}
		config.GlobalConfig = cfg
	} else if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.InfoCtx(app.ctx, "Logging system has been closed")
		logger.Sync()
	})
	return nil
}

// initLayout prepares the output root
func (app *Application) initLayout() error {
	app.layout = report.NewLayout(app.config.Output.Root)
	if err := os.MkdirAll(app.layout.Root(), 0755); err != nil {
		return fmt.Errorf("failed to create output root %s: %w", app.layout.Root(), err)
	}
	return nil
}

// initPipeline creates the report pipeline with the PNG renderer
func (app *Application) initPipeline() error {
	renderer := chart.NewPlotRenderer(float64(app.config.Output.ChartWidthInch), float64(app.config.Output.ChartHeightInch))
	app.pipeline = pipeline.New(renderer)
	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	app.runService = service.NewRunService(
		app.ctx,
		app.pipeline,
		pipeline.OptionsFromConfig(app.config),
		app.config.Runs.History,
	)
	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.reportHandler = handler.NewReportHandler(report.NewCatalogue(app.layout))
	app.runHandler = handler.NewRunHandler(app.runService)
	app.jobHandler = handler.NewJobHandler(app.jobsManager)
	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	gin.SetMode(app.config.Server.Mode)
	app.ginEngine = gin.New()

	r := router.NewRouter(app.reportHandler, app.runHandler, app.jobHandler, app.layout.Root())
	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}
