package router

import (
	"shopfloor/app/handler"
	"shopfloor/app/middleware"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	reportHandler *handler.ReportHandler
	runHandler    *handler.RunHandler
	jobHandler    *handler.JobHandler
	outputRoot    string
}

// NewRouter creates a new Router
func NewRouter(reportHandler *handler.ReportHandler, runHandler *handler.RunHandler, jobHandler *handler.JobHandler, outputRoot string) *Router {
	return &Router{
		reportHandler: reportHandler,
		runHandler:    runHandler,
		jobHandler:    jobHandler,
		outputRoot:    outputRoot,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	api := engine.Group("/api/v1")
	{
		// Report catalogue
		api.GET("/reports", r.reportHandler.List)

		// Report runs
		runs := api.Group("/runs")
		{
			runs.POST("", r.runHandler.Start)                // Start run (cancels the active one)
			runs.GET("", r.runHandler.List)                  // List runs
			runs.GET("/:id", r.runHandler.Get)               // Run status
			runs.GET("/:id/tables", r.runHandler.Tables)     // Aggregate tables
			runs.POST("/:id/cancel", r.runHandler.Cancel)    // Cancel run
			runs.GET("/:id/progress", r.runHandler.Progress) // Progress (WebSocket)
		}

		// Scheduled jobs
		if r.jobHandler != nil {
			api.GET("/jobs", r.jobHandler.List)
		}
	}

	// Generated artifacts
	if r.outputRoot != "" {
		engine.Static("/files", r.outputRoot)
	}

	// Health check
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
