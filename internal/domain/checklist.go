package domain

import "sort"

// CompletionState is the per-period progress derived from a log and the session check set.
type CompletionState string

const (
	StateNotStarted CompletionState = "not_started"
	StateInProgress CompletionState = "in_progress"
	StateCompleted  CompletionState = "completed"
)

// StepChecklist is the session-only set of checked step IDs for one period.
// It is display state and is never persisted with the DailyLog.
type StepChecklist struct {
	checked map[string]struct{}
}

// NewStepChecklist returns a checklist with ids already checked.
func NewStepChecklist(ids ...string) StepChecklist {
	c := StepChecklist{checked: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		c.checked[id] = struct{}{}
	}
	return c
}

// ChecklistFor seeds the checklist the way a freshly opened session sees it:
// every step checked when the period is already complete, none otherwise.
func ChecklistFor(log DailyLog, p Period, steps []RoutineStep) StepChecklist {
	if !log.IsCompleted(p) {
		return NewStepChecklist()
	}
	ids := make([]string, 0, len(steps))
	for _, s := range steps {
		ids = append(ids, s.ID)
	}
	return NewStepChecklist(ids...)
}

// Toggle flips id and returns the new checklist; the receiver is not modified.
func (c StepChecklist) Toggle(id string) StepChecklist {
	next := NewStepChecklist(c.IDs()...)
	if _, ok := next.checked[id]; ok {
		delete(next.checked, id)
	} else {
		next.checked[id] = struct{}{}
	}
	return next
}

// Checked reports whether id is checked.
func (c StepChecklist) Checked(id string) bool {
	_, ok := c.checked[id]
	return ok
}

// IDs returns the checked IDs sorted.
func (c StepChecklist) IDs() []string {
	out := make([]string, 0, len(c.checked))
	for id := range c.checked {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CheckedOf counts how many of steps are checked. IDs not in steps are ignored.
func (c StepChecklist) CheckedOf(steps []RoutineStep) int {
	n := 0
	for _, s := range steps {
		if c.Checked(s.ID) {
			n++
		}
	}
	return n
}

// CanComplete is the guard for InProgress -> Completed: every step of the routine is checked.
func (c StepChecklist) CanComplete(steps []RoutineStep) bool {
	return c.CheckedOf(steps) == len(steps)
}

// State derives the completion state of p.
func State(log DailyLog, p Period, c StepChecklist, steps []RoutineStep) CompletionState {
	if log.IsCompleted(p) {
		return StateCompleted
	}
	if c.CheckedOf(steps) > 0 {
		return StateInProgress
	}
	return StateNotStarted
}
