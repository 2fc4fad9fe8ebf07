package handler

import (
	"net/http"

	"shopfloor/internal/jobs"

	"github.com/gin-gonic/gin"
)

// JobHandler exposes scheduled job state
type JobHandler struct {
	manager *jobs.Manager
}

// NewJobHandler creates job handler, manager may be nil when scheduling is off
func NewJobHandler(manager *jobs.Manager) *JobHandler {
	return &JobHandler{manager: manager}
}

// List lists background jobs
// @Summary List jobs
// @Tags jobs
// @Produce json
// @Success 200 {array} jobs.Status
// @Router /api/v1/jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	if h.manager == nil {
		c.JSON(http.StatusOK, []jobs.Status{})
		return
	}
	c.JSON(http.StatusOK, h.manager.Statuses())
}
