package model

import "time"

// RunStatus report run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"   // Pending
	RunStatusRunning   RunStatus = "RUNNING"   // Running
	RunStatusCompleted RunStatus = "COMPLETED" // Completed
	RunStatusFailed    RunStatus = "FAILED"    // Failed
	RunStatusCancelled RunStatus = "CANCELLED" // Cancelled
)

// Terminal reports whether the status is final
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// RunTrigger what started a run
type RunTrigger string

const (
	TriggerAPI      RunTrigger = "api"
	TriggerSchedule RunTrigger = "schedule"
	TriggerCLI      RunTrigger = "cli"
)

// Progress one progress event of a run
type Progress struct {
	RunID   string    `json:"run_id,omitempty"`
	Stage   string    `json:"stage"`
	Percent int       `json:"percent"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Run report run model
type Run struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	Trigger     RunTrigger `json:"trigger"`
	Request     RunRequest `json:"request"`
	Progress    Progress   `json:"progress"`
	Message     string     `json:"message,omitempty"`
	Error       string     `json:"error,omitempty"`
	Artifacts   []string   `json:"artifacts,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunRequest optional overrides of the configured inputs and flags
type RunRequest struct {
	DowntimeFile     string   `json:"downtime_file,omitempty"`
	MetricsFile      string   `json:"metrics_file,omitempty"`
	FaultyFile       string   `json:"faulty_file,omitempty"`
	SaveCharts       *bool    `json:"save_charts,omitempty"`
	ExportLatestWeek *bool    `json:"export_latest_week,omitempty"`
	ExportSummary    *bool    `json:"export_summary,omitempty"`
	PieThreshold     *float64 `json:"pie_threshold,omitempty"`

	Trigger RunTrigger `json:"-"`
}

// RunResponse start run response
type RunResponse struct {
	ID     string    `json:"id"`
	Status RunStatus `json:"status"`
}
