package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfloor/internal/model"
	"shopfloor/pkg/report"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	downtime := write("downtime.csv", "Machine Code,Stoppage Name,Start Time,End Time\n"+
		"CT.D01,FAULT,2024-01-15 08:00:00,2024-01-15 09:00:00\n")
	metrics := write("metrics.csv", "Machine Code,Date,Working Time,Scheduled Downtime,Unscheduled Downtime,OEE,Performance,Availability,Quality\n"+
		"CT.D01,2024-01-15,420,30,15,0.7,0.9,0.8,0.97\n")
	root := filepath.Join(dir, "Reports")

	cfg := strings.Join([]string{
		"input:",
		"  downtime_file: " + downtime,
		"  metrics_file: " + metrics,
		"output:",
		"  root: " + root,
		"  export_summary: true",
		"sections:",
		"  - name: CNC",
		"    machines: [CT.D01]",
	}, "\n")
	return write("config.yaml", cfg), root
}

func TestApplication_RunOnce(t *testing.T) {
	path, root := writeTestConfig(t)

	app := NewApplication(path)
	require.NoError(t, app.InitializeOnce())
	defer app.Shutdown(5 * time.Second)

	assert.Nil(t, app.httpServer, "no server in one shot mode")
	require.NoError(t, app.RunOnce(context.Background(), model.RunRequest{}))
	assert.FileExists(t, report.NewLayout(root).SummaryPath())

	err := app.RunOnce(context.Background(), model.RunRequest{DowntimeFile: filepath.Join(root, "none.csv")})
	assert.Error(t, err)
}

func TestApplication_InitializeServer(t *testing.T) {
	path, _ := writeTestConfig(t)

	app := NewApplication(path)
	require.NoError(t, app.Initialize())
	defer app.Shutdown(5 * time.Second)

	require.NotNil(t, app.httpServer)
	assert.Equal(t, ":8090", app.httpServer.Addr)
	assert.Nil(t, app.jobsManager, "schedule is disabled by default")
	assert.NotNil(t, app.runHandler)
}

func TestApplication_MissingConfig(t *testing.T) {
	app := NewApplication(filepath.Join(t.TempDir(), "none.yaml"))
	err := app.InitializeOnce()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Configuration")
}
