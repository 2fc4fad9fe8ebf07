package calc

import (
	"sort"

	"shopfloor/internal/model"
)

// Weeks sorted distinct ISO weeks of the events
func Weeks(events []model.DowntimeEvent) []int {
	set := make(map[int]struct{})
	for _, e := range events {
		set[e.Week] = struct{}{}
	}
	weeks := make([]int, 0, len(set))
	for w := range set {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}

// LatestWeek last entry of a sorted week list
func LatestWeek(weeks []int) (int, bool) {
	if len(weeks) == 0 {
		return 0, false
	}
	return weeks[len(weeks)-1], true
}

// LastWeeks up to n most recent weeks, ascending
func LastWeeks(weeks []int, n int) []int {
	if n <= 0 || len(weeks) == 0 {
		return []int{}
	}
	if n > len(weeks) {
		n = len(weeks)
	}
	out := make([]int, n)
	copy(out, weeks[len(weeks)-n:])
	return out
}

// FilterWeek events of a single week
func FilterWeek(events []model.DowntimeEvent, week int) []model.DowntimeEvent {
	out := make([]model.DowntimeEvent, 0)
	for _, e := range events {
		if e.Week == week {
			out = append(out, e)
		}
	}
	return out
}

// ExcludeMachines drops events of the listed machines
func ExcludeMachines(events []model.DowntimeEvent, machines []string) []model.DowntimeEvent {
	if len(machines) == 0 {
		return append([]model.DowntimeEvent(nil), events...)
	}
	skip := toSet(machines)
	out := make([]model.DowntimeEvent, 0, len(events))
	for _, e := range events {
		if _, ok := skip[e.MachineCode]; !ok {
			out = append(out, e)
		}
	}
	return out
}

// ExcludeMetricMachines drops metric records of the listed machines
func ExcludeMetricMachines(records []model.MachineMetricRecord, machines []string) []model.MachineMetricRecord {
	if len(machines) == 0 {
		return append([]model.MachineMetricRecord(nil), records...)
	}
	skip := toSet(machines)
	out := make([]model.MachineMetricRecord, 0, len(records))
	for _, r := range records {
		if _, ok := skip[r.MachineCode]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
