package calc

import (
	"sort"

	"shopfloor/internal/model"
)

// OtherBucket label of the merged below-threshold slice
const OtherBucket = "Other"

// Share a labelled minute total fed into PieShares
type Share struct {
	Label   string
	Minutes int64
}

// ReasonShares shares keyed by stoppage reason
func ReasonShares(t model.StopTimeTable) []Share {
	out := make([]Share, 0, len(t))
	for _, r := range t {
		out = append(out, Share{Label: r.Reason, Minutes: r.Minutes})
	}
	return out
}

// SectionShares shares keyed by section
func SectionShares(t model.SectionTable) []Share {
	out := make([]Share, 0, len(t))
	for _, r := range t {
		out = append(out, Share{Label: r.Section, Minutes: r.Minutes})
	}
	return out
}

// PieShares converts minute totals into percentages. Slices under threshold
// percent are merged into one "Other" slice when that slice is non zero. The
// result is sorted by percent descending and sums to 100 for a positive total.
func PieShares(shares []Share, threshold float64) model.PieTable {
	out := model.PieTable{}
	var total int64
	for _, s := range shares {
		total += s.Minutes
	}
	if total <= 0 {
		return out
	}

	var other int64
	for _, s := range shares {
		pct := float64(s.Minutes) / float64(total) * 100
		if pct < threshold {
			other += s.Minutes
			continue
		}
		out = append(out, model.PieSlice{Label: s.Label, Minutes: s.Minutes, Percent: pct})
	}
	if other > 0 {
		out = append(out, model.PieSlice{Label: OtherBucket, Minutes: other, Percent: float64(other) / float64(total) * 100})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Percent > out[j].Percent })
	return out
}

// TopBottomMachines returns the n least and n most stopped machines of an
// ascending MachineTable. The two slices never share a row.
func TopBottomMachines(t model.MachineTable, n int) (bottom, top model.MachineTable) {
	bottom, top = model.MachineTable{}, model.MachineTable{}
	if n <= 0 || len(t) == 0 {
		return bottom, top
	}
	b := n
	if b > len(t) {
		b = len(t)
	}
	bottom = append(bottom, t[:b]...)

	start := len(t) - n
	if start < b {
		start = b
	}
	top = append(top, t[start:]...)
	return bottom, top
}

// Head first n rows of a machine table
func Head(t model.MachineTable, n int) model.MachineTable {
	if n > len(t) {
		n = len(t)
	}
	if n < 0 {
		n = 0
	}
	return append(model.MachineTable{}, t[:n]...)
}

// Tail last n rows of a machine table
func Tail(t model.MachineTable, n int) model.MachineTable {
	if n > len(t) {
		n = len(t)
	}
	if n < 0 {
		n = 0
	}
	return append(model.MachineTable{}, t[len(t)-n:]...)
}
