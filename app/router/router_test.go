package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfloor/app/handler"
	"shopfloor/internal/pipeline"
	"shopfloor/internal/service"
	"shopfloor/pkg/report"
)

func TestRouter_Setup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	root := t.TempDir()
	layout := report.NewLayout(root)
	chart := layout.ChartPath("All Machines Total", report.CategoryGeneral)
	require.NoError(t, os.MkdirAll(filepath.Dir(chart), 0755))
	require.NoError(t, os.WriteFile(chart, []byte("png"), 0644))

	svc := service.NewRunService(context.Background(), pipeline.New(nil), pipeline.Options{}, 5)
	r := NewRouter(
		handler.NewReportHandler(report.NewCatalogue(layout)),
		handler.NewRunHandler(svc),
		handler.NewJobHandler(nil),
		root,
	)
	engine := gin.New()
	r.Setup(engine)

	testCases := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/reports", http.StatusOK},
		{http.MethodGet, "/api/v1/runs", http.StatusOK},
		{http.MethodGet, "/api/v1/jobs", http.StatusOK},
		{http.MethodGet, "/api/v1/runs/none", http.StatusNotFound},
		{http.MethodPost, "/api/v1/runs", http.StatusBadRequest},
		{http.MethodGet, "/files/General/All%20Machines%20Total.png", http.StatusOK},
		{http.MethodGet, "/files/General/none.png", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.code, w.Code)
		})
	}
}
