// Package section maps machine codes to organizational sections.
package section

import (
	"go.uber.org/zap"

	"shopfloor/internal/model"
	"shopfloor/pkg/config"
	"shopfloor/pkg/logger"
)

type entry struct {
	name     string
	machines map[string]struct{}
	count    int
}

// Assigner resolves the section of a machine code from an ordered section list
type Assigner struct {
	sections []entry
}

// NewAssigner builds an assigner. The first section listing a code wins; codes
// listed under several sections are reported once here.
func NewAssigner(sections []config.SectionConfig) *Assigner {
	a := &Assigner{sections: make([]entry, 0, len(sections))}
	owner := make(map[string]string)

	for _, s := range sections {
		e := entry{name: s.Name, machines: make(map[string]struct{}, len(s.Machines)), count: s.Count()}
		for _, code := range s.Machines {
			e.machines[code] = struct{}{}
			if first, ok := owner[code]; ok && first != s.Name {
				logger.Warn("machine listed under several sections, first wins",
					zap.String("machine", code), zap.String("section", first), zap.String("ignored", s.Name))
				continue
			}
			owner[code] = s.Name
		}
		a.sections = append(a.sections, e)
	}
	return a
}

// Assign returns the first section containing code, or "Other"
func (a *Assigner) Assign(code string) string {
	for _, s := range a.sections {
		if _, ok := s.machines[code]; ok {
			return s.name
		}
	}
	return model.OtherSection
}

// Names section names in configuration order
func (a *Assigner) Names() []string {
	names := make([]string, 0, len(a.sections))
	for _, s := range a.sections {
		names = append(names, s.name)
	}
	return names
}

// MachineCounts returns a fresh copy of the section machine counts
func (a *Assigner) MachineCounts() map[string]int {
	counts := make(map[string]int, len(a.sections))
	for _, s := range a.sections {
		counts[s.name] = s.count
	}
	return counts
}

// Apply returns copies of events with their Section filled in
func (a *Assigner) Apply(events []model.DowntimeEvent) []model.DowntimeEvent {
	out := make([]model.DowntimeEvent, len(events))
	for i, e := range events {
		e.Section = a.Assign(e.MachineCode)
		out[i] = e
	}
	return out
}
