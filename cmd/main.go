package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopfloor/internal/model"
	"shopfloor/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "config file path (default $CONFIG_PATH or config/config.yaml)")
	once := flag.Bool("once", false, "run one report and exit instead of serving HTTP")
	downtime := flag.String("downtime", "", "downtime file, overrides input.downtime_file")
	metrics := flag.String("metrics", "", "machine metrics file, overrides input.metrics_file")
	faulty := flag.String("faulty", "", "faulty machine list, overrides input.faulty_file")
	flag.Parse()

	// Create application instance
	app := NewApplication(*configPath)

	if *once {
		if err := app.InitializeOnce(); err != nil {
			logger.FatalCtx(context.Background(), "Application initialization failed: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		err := app.RunOnce(ctx, model.RunRequest{DowntimeFile: *downtime, MetricsFile: *metrics, FaultyFile: *faulty})
		stop()
		app.Shutdown(30 * time.Second)
		if err != nil {
			logger.ErrorCtx(context.Background(), "Report run failed: %v", err)
			os.Exit(1)
		}
		return
	}

	// Initialize all components
	if err := app.Initialize(); err != nil {
		logger.FatalCtx(context.Background(), "Application initialization failed: %v", err)
	}

	// Start all components
	if err := app.Start(); err != nil {
		logger.FatalCtx(app.ctx, "Application startup failed: %v", err)
	}

	// Wait for exit signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.InfoCtx(app.ctx, "Received exit signal: %v", sig)

	// Graceful shutdown (30 seconds timeout)
	if err := app.Shutdown(30 * time.Second); err != nil {
		logger.ErrorCtx(app.ctx, "Application shutdown failed: %v", err)
		os.Exit(1)
	}

	logger.InfoCtx(app.ctx, "Application safely exited")
}
