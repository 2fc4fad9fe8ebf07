package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Downtime source columns
const (
	ColMachineCode  = "Machine Code"
	ColStoppageName = "Stoppage Name"
	ColStartTime    = "Start Time"
	ColEndTime      = "End Time"
)

// Metrics source columns
const (
	ColDate                = "Date"
	ColWorkingTime         = "Working Time"
	ColScheduledDowntime   = "Scheduled Downtime"
	ColUnscheduledDowntime = "Unscheduled Downtime"
	ColOEE                 = "OEE"
	ColPerformance         = "Performance"
	ColAvailability        = "Availability"
	ColQuality             = "Quality"
)

var (
	DowntimeColumns = []string{ColMachineCode, ColStoppageName, ColStartTime, ColEndTime}
	MetricsColumns  = []string{
		ColMachineCode, ColDate, ColWorkingTime, ColScheduledDowntime, ColUnscheduledDowntime,
		ColOEE, ColPerformance, ColAvailability, ColQuality,
	}
)

// aliases accepted for each canonical column, including the headers of the
// plant's ERP exports
var aliases = map[string][]string{
	ColMachineCode:         {"İş Merkezi Kodu", "Makina Kodu", "Work Center Code"},
	ColStoppageName:        {"Duruş Adı", "Stoppage Reason", "Reason"},
	ColStartTime:           {"Duruş Başlangıç Tarih", "Start"},
	ColEndTime:             {"Duruş Bitiş Tarih", "End"},
	ColDate:                {"Tarih"},
	ColWorkingTime:         {"Çalışma Zamanı"},
	ColScheduledDowntime:   {"Planlı Duruş", "Planned Downtime"},
	ColUnscheduledDowntime: {"Plansız Duruş", "Unplanned Downtime"},
	ColOEE:                 {"Oee"},
	ColPerformance:         {"Performans"},
	ColAvailability:        {"Kullanılabilirlik"},
	ColQuality:             {"Kalite"},
}

// resolveColumns maps each required canonical column to its index in t.
// The returned slice lists the canonical names that could not be found.
func resolveColumns(t *Table, required []string) (map[string]int, []string) {
	idx := make(map[string]int, len(required))
	var missing []string
	for _, name := range required {
		col := t.Column(name)
		for _, alias := range aliases[name] {
			if col >= 0 {
				break
			}
			col = t.Column(alias)
		}
		if col < 0 {
			missing = append(missing, name)
			continue
		}
		idx[name] = col
	}
	return idx, missing
}

// canonicalColumns returns the canonical names present in t
func canonicalColumns(t *Table, required []string) []string {
	idx, _ := resolveColumns(t, required)
	present := make([]string, 0, len(idx))
	for _, name := range required {
		if _, ok := idx[name]; ok {
			present = append(present, name)
		}
	}
	return present
}

var timeLayouts = []string{
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	time.DateOnly,
	"02.01.2006",
	"02/01/2006",
}

// parseTime accepts the usual export layouts and spreadsheet serial numbers
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		// Serial dates carry no zone; keep the wall clock in local time
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}

// parseNumber accepts decimal commas and percent suffixes
func parseNumber(v string) (float64, error) {
	if v == "" {
		return 0, fmt.Errorf("empty value")
	}
	s := strings.ReplaceAll(v, " ", "")
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", v)
	}
	if percent {
		f /= 100
	}
	return f, nil
}
