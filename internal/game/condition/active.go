package condition

import (
	"fmt"
	"sort"
)

// ActiveCondition tracks one applied status on a combatant.
type ActiveCondition struct {
	Def               *StatusDef
	Stacks            int
	DurationRemaining int // -1 = permanent
}

// Status is a plain snapshot of one active status.
type Status struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Stacks   int    `json:"stacks"`
	Duration int    `json:"duration"`
}

// ActiveSet tracks all statuses currently applied to one combatant.
// It is not safe for concurrent use; the caller must serialise access.
type ActiveSet struct {
	conditions map[string]*ActiveCondition
}

// NewActiveSet creates an empty ActiveSet.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{conditions: make(map[string]*ActiveCondition)}
}

// Apply adds or updates a status on this combatant.
// If the status is already present, stacks are incremented (capped at MaxStacks).
// If MaxStacks == 0 (unstackable), stacks is always stored as 1.
// duration is rounds remaining; use -1 for permanent.
//
// Precondition: def must not be nil.
// Postcondition: Has(def.ID) is true; DurationRemaining is max(existing, duration) on re-apply.
func (s *ActiveSet) Apply(def *StatusDef, stacks, duration int) error {
	if def == nil {
		return fmt.Errorf("Apply: def must not be nil")
	}
	if def.DurationType == DurationPermanent {
		duration = -1
	}
	if stacks < 1 {
		stacks = 1
	}

	if existing, ok := s.conditions[def.ID]; ok {
		if def.MaxStacks > 0 {
			existing.Stacks = min(existing.Stacks+stacks, def.MaxStacks)
		}
		if duration > existing.DurationRemaining {
			existing.DurationRemaining = duration
		}
		return nil
	}

	effective := 1
	if def.MaxStacks > 0 {
		effective = min(stacks, def.MaxStacks)
	}
	s.conditions[def.ID] = &ActiveCondition{
		Def:               def,
		Stacks:            effective,
		DurationRemaining: duration,
	}
	return nil
}

// Remove deletes the status with the given ID. Removing an absent status is a no-op.
//
// Postcondition: Has(id) is false.
func (s *ActiveSet) Remove(id string) {
	delete(s.conditions, id)
}

// Clear removes every status.
func (s *ActiveSet) Clear() {
	clear(s.conditions)
}

// Tick decrements the DurationRemaining of all "rounds" statuses by 1 and
// removes the ones that reach 0. Permanent statuses are not affected.
//
// Postcondition: For every id in the returned (sorted) slice, Has(id) is false.
func (s *ActiveSet) Tick() []string {
	var expired []string
	for id, ac := range s.conditions {
		if ac.Def.DurationType != DurationRounds || ac.DurationRemaining < 0 {
			continue
		}
		ac.DurationRemaining--
		if ac.DurationRemaining <= 0 {
			expired = append(expired, id)
			delete(s.conditions, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// Has reports whether the status with id is currently active.
func (s *ActiveSet) Has(id string) bool {
	_, ok := s.conditions[id]
	return ok
}

// Stacks returns the current stack count for status id, or 0 if not present.
func (s *ActiveSet) Stacks(id string) int {
	if ac, ok := s.conditions[id]; ok {
		return ac.Stacks
	}
	return 0
}

// Len returns the number of active statuses.
func (s *ActiveSet) Len() int { return len(s.conditions) }

// All returns the active statuses sorted by ID.
// The slice is a new allocation but the pointed-to values are shared; callers must not modify them.
func (s *ActiveSet) All() []*ActiveCondition {
	out := make([]*ActiveCondition, 0, len(s.conditions))
	for _, ac := range s.conditions {
		out = append(out, ac)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Def.ID < out[j].Def.ID })
	return out
}

// Snapshot returns plain copies of the active statuses sorted by ID.
func (s *ActiveSet) Snapshot() []Status {
	all := s.All()
	out := make([]Status, 0, len(all))
	for _, ac := range all {
		out = append(out, Status{ID: ac.Def.ID, Name: ac.Def.Name, Stacks: ac.Stacks, Duration: ac.DurationRemaining})
	}
	return out
}
