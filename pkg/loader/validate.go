package loader

import (
	"fmt"
	"strings"
)

// ValidateSources gates the pipeline on the two loaded sources. It checks
// emptiness, required columns and that both sources share machine codes.
func ValidateSources(downtime *DowntimeSource, metrics *MetricsSource) (bool, string) {
	var messages []string
	valid := true

	if downtime.Len() == 0 {
		valid = false
		messages = append(messages, "Downtime data is empty or invalid.")
	} else if missing := missingColumns(downtime.Columns, DowntimeColumns); len(missing) > 0 {
		valid = false
		messages = append(messages, fmt.Sprintf("Downtime data is missing columns: %s", strings.Join(missing, ", ")))
	}

	if metrics.Len() == 0 {
		valid = false
		messages = append(messages, "Machine metrics data is empty or invalid.")
	} else if missing := missingColumns(metrics.Columns, MetricsColumns); len(missing) > 0 {
		valid = false
		messages = append(messages, fmt.Sprintf("Machine metrics data is missing columns: %s", strings.Join(missing, ", ")))
	}

	if valid {
		common := CommonMachines(downtime, metrics)
		if len(common) == 0 {
			valid = false
			messages = append(messages, "No machine code is shared between downtime data and machine metrics.")
		} else {
			messages = append(messages, fmt.Sprintf("%d common machine codes found.", len(common)))
		}
	}

	return valid, strings.Join(messages, "\n")
}

// CommonMachines machine codes present in both sources
func CommonMachines(downtime *DowntimeSource, metrics *MetricsSource) map[string]struct{} {
	inMetrics := make(map[string]struct{}, metrics.Len())
	if metrics != nil {
		for _, r := range metrics.Records {
			inMetrics[r.MachineCode] = struct{}{}
		}
	}
	common := make(map[string]struct{})
	if downtime != nil {
		for _, e := range downtime.Events {
			if _, ok := inMetrics[e.MachineCode]; ok {
				common[e.MachineCode] = struct{}{}
			}
		}
	}
	return common
}

func missingColumns(have, required []string) []string {
	set := make(map[string]bool, len(have))
	for _, c := range have {
		set[c] = true
	}
	var missing []string
	for _, c := range required {
		if !set[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
