package handler

import (
	"net/http"

	"shopfloor/pkg/logger"
	"shopfloor/pkg/report"

	"github.com/gin-gonic/gin"
)

// ReportHandler lists generated artifacts
type ReportHandler struct {
	catalogue *report.Catalogue
}

// NewReportHandler creates report handler
func NewReportHandler(catalogue *report.Catalogue) *ReportHandler {
	return &ReportHandler{catalogue: catalogue}
}

// List lists report files, newest first
// @Summary List reports
// @Description List generated chart images and tables, optionally filtered by category and type
// @Tags reports
// @Produce json
// @Param category query string false "General, Sections, Machines or OEE"
// @Param type query string false "image or table"
// @Success 200 {array} report.Entry
// @Router /api/v1/reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	entries, err := h.catalogue.Scan(c.Request.Context())
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to scan reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	category := c.Query("category")
	typ := c.Query("type")
	if category == "" && typ == "" {
		c.JSON(http.StatusOK, entries)
		return
	}

	filtered := make([]report.Entry, 0, len(entries))
	for _, e := range entries {
		if category != "" && string(e.Category) != category {
			continue
		}
		if typ != "" && string(e.Type) != typ {
			continue
		}
		filtered = append(filtered, e)
	}
	c.JSON(http.StatusOK, filtered)
}
