package model

import "time"

// OtherSection is assigned to machine codes that no configured section lists
const OtherSection = "Other"

// DowntimeEvent one stoppage interval of a machine
type DowntimeEvent struct {
	MachineCode     string    `json:"machine_code"`
	Reason          string    `json:"stoppage_reason"`
	Start           time.Time `json:"start_time"`
	End             time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	Week            int       `json:"week"`
	Section         string    `json:"section"`
}

// NewDowntimeEvent builds an event and derives its duration and ISO week.
// An end before the start yields a zero duration.
func NewDowntimeEvent(machine, reason string, start, end time.Time) DowntimeEvent {
	seconds := int64(end.Sub(start) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	return DowntimeEvent{
		MachineCode:     machine,
		Reason:          reason,
		Start:           start,
		End:             end,
		DurationSeconds: seconds,
		Week:            ISOWeek(start),
	}
}

// DurationMinutes whole minutes of the event, truncated
func (e DowntimeEvent) DurationMinutes() int64 {
	return e.DurationSeconds / 60
}

// MachineMetricRecord per machine, per day operational metrics
type MachineMetricRecord struct {
	MachineCode         string    `json:"machine_code"`
	Date                time.Time `json:"date"`
	WorkingTime         float64   `json:"working_time"`
	ScheduledDowntime   float64   `json:"scheduled_downtime"`
	UnscheduledDowntime float64   `json:"unscheduled_downtime"`
	OEE                 float64   `json:"oee"`
	Performance         float64   `json:"performance"`
	Availability        float64   `json:"availability"`
	Quality             float64   `json:"quality"`
	// Missing numeric fields that were blank in the source
	Missing MetricField `json:"missing,omitempty"`
}

// MetricField one numeric column of a metrics record
type MetricField uint8

const (
	MetricWorkingTime MetricField = 1 << iota
	MetricScheduledDowntime
	MetricUnscheduledDowntime
	MetricOEE
	MetricPerformance
	MetricAvailability
	MetricQuality
)

// Has reports whether field f was present in the source
func (r MachineMetricRecord) Has(f MetricField) bool {
	return r.Missing&f == 0
}

// Week ISO week of the record date
func (r MachineMetricRecord) Week() int {
	return ISOWeek(r.Date)
}

// ISOWeek returns the ISO 8601 week number (1..53) of t
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}
