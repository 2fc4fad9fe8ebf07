package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"shopfloor/internal/model"
	"shopfloor/internal/service"
	"shopfloor/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// writeWait deadline of one websocket write
const writeWait = 10 * time.Second

// RunHandler handles report runs
type RunHandler struct {
	runService *service.RunService
}

// NewRunHandler creates run handler
func NewRunHandler(runService *service.RunService) *RunHandler {
	return &RunHandler{runService: runService}
}

// Start starts a report run
// @Summary Start run
// @Description Start a report run, cancelling the active one. The body may override input files and output flags.
// @Tags runs
// @Accept json
// @Produce json
// @Param request body model.RunRequest false "Overrides"
// @Success 202 {object} model.RunResponse
// @Router /api/v1/runs [post]
func (h *RunHandler) Start(c *gin.Context) {
	var req model.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Trigger = model.TriggerAPI

	run, err := h.runService.Start(c.Request.Context(), req)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to start run: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, model.RunResponse{ID: run.ID, Status: run.Status})
}

// List lists kept runs
// @Summary List runs
// @Tags runs
// @Produce json
// @Success 200 {array} model.Run
// @Router /api/v1/runs [get]
func (h *RunHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.runService.List())
}

// Get gets one run
// @Summary Get run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.Run
// @Router /api/v1/runs/{id} [get]
func (h *RunHandler) Get(c *gin.Context) {
	run, err := h.runService.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// Tables returns the aggregate tables of a run
// @Summary Get run tables
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} pipeline.Computed
// @Router /api/v1/runs/{id}/tables [get]
func (h *RunHandler) Tables(c *gin.Context) {
	tables, err := h.runService.Tables(c.Param("id"))
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, tables)
	}
}

// Cancel cancels a run
// @Summary Cancel run
// @Tags runs
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]string
// @Router /api/v1/runs/{id}/cancel [post]
func (h *RunHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	err := h.runService.Cancel(id)
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRunFinished):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		logger.InfoCtx(c.Request.Context(), "run cancel requested, run_id: %s", id)
		c.JSON(http.StatusOK, gin.H{"message": "run cancelled"})
	}
}

// Progress streams progress events of a run over WebSocket
// @Summary Run progress
// @Description WebSocket stream of progress events, closed when the run finishes
// @Tags runs
// @Param id path string true "Run ID"
// @Router /api/v1/runs/{id}/progress [get]
func (h *RunHandler) Progress(c *gin.Context) {
	events, unsubscribe, err := h.runService.Subscribe(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	defer unsubscribe()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to upgrade to websocket: %v", err)
		return
	}
	defer ws.Close()

	// reader detects a closed client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case p, ok := <-events:
			if !ok {
				ws.SetWriteDeadline(time.Now().Add(writeWait))
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
				return
			}
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(p); err != nil {
				logger.WarnCtx(c.Request.Context(), "progress stream closed: %v", err)
				return
			}
		}
	}
}
