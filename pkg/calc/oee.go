package calc

import (
	"sort"

	"shopfloor/internal/model"
)

// oeeFactors averaged columns, in OEEAverage field order
var oeeFactors = []struct {
	field model.MetricField
	value func(model.MachineMetricRecord) float64
}{
	{model.MetricOEE, func(r model.MachineMetricRecord) float64 { return r.OEE }},
	{model.MetricPerformance, func(r model.MachineMetricRecord) float64 { return r.Performance }},
	{model.MetricAvailability, func(r model.MachineMetricRecord) float64 { return r.Availability }},
	{model.MetricQuality, func(r model.MachineMetricRecord) float64 { return r.Quality }},
	{model.MetricScheduledDowntime, func(r model.MachineMetricRecord) float64 { return r.ScheduledDowntime }},
	{model.MetricUnscheduledDowntime, func(r model.MachineMetricRecord) float64 { return r.UnscheduledDowntime }},
}

type oeeAccumulator struct {
	records int
	sums    [6]float64
	counts  [6]int
}

func (a *oeeAccumulator) average(i int) float64 {
	if a.counts[i] == 0 {
		return 0
	}
	return a.sums[i] / float64(a.counts[i])
}

// OEEWeeklyAverages mean OEE factors per ISO week of the metric dates.
// Each factor is averaged over the records where it is present; a factor
// blank for a whole week averages to 0.
func OEEWeeklyAverages(records []model.MachineMetricRecord) model.OEETable {
	out := model.OEETable{}
	if len(records) == 0 {
		return out
	}

	acc := make(map[int]*oeeAccumulator)
	for _, r := range records {
		w := r.Week()
		a, ok := acc[w]
		if !ok {
			a = &oeeAccumulator{}
			acc[w] = a
		}
		a.records++
		for i, f := range oeeFactors {
			if r.Has(f.field) {
				a.sums[i] += f.value(r)
				a.counts[i]++
			}
		}
	}

	for w, a := range acc {
		out = append(out, model.OEEAverage{
			Week:                w,
			Records:             a.records,
			OEE:                 a.average(0),
			Performance:         a.average(1),
			Availability:        a.average(2),
			Quality:             a.average(3),
			ScheduledDowntime:   a.average(4),
			UnscheduledDowntime: a.average(5),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out
}
