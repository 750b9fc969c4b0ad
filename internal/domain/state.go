package domain

import "fmt"

// RunState is a stage of the single linear run
type RunState string

const (
	StatePlanned           RunState = "planned"
	StateTransferred       RunState = "transferred"
	StateValidated         RunState = "validated"
	StateDeletionDecided   RunState = "deletion-decided"
	StateBulkAttempted     RunState = "bulk-attempted"
	StateBulkExecuted      RunState = "bulk-executed"
	StateSelectiveFallback RunState = "selective-fallback"
	StateSelectiveExecuted RunState = "selective-executed"
	StateSkipped           RunState = "skipped"
)

var runTransitions = map[RunState][]RunState{
	"":                     {StatePlanned},
	StatePlanned:           {StateTransferred, StateSkipped},
	StateTransferred:       {StateValidated},
	StateValidated:         {StateDeletionDecided, StateSkipped},
	StateDeletionDecided:   {StateBulkAttempted, StateSelectiveExecuted, StateSkipped},
	StateBulkAttempted:     {StateBulkExecuted, StateSelectiveFallback},
	StateSelectiveFallback: {StateSelectiveExecuted},
}

// IsTerminal reports whether no further transition is possible
func (s RunState) IsTerminal() bool {
	return len(runTransitions[s]) == 0 && s != ""
}

// CanTransition reports whether next may follow s
func (s RunState) CanTransition(next RunState) bool {
	for _, allowed := range runTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RunTrail records the states a run went through
type RunTrail struct {
	states []RunState
}

// Current returns the latest state, empty before the run is planned
func (t *RunTrail) Current() RunState {
	if len(t.states) == 0 {
		return ""
	}
	return t.states[len(t.states)-1]
}

// Advance moves to next or fails with ErrIllegalTransition
func (t *RunTrail) Advance(next RunState) error {
	cur := t.Current()
	if !cur.CanTransition(next) {
		return fmt.Errorf("%w: %q -> %q", ErrIllegalTransition, cur, next)
	}
	t.states = append(t.states, next)
	return nil
}

// States returns a copy of the recorded states
func (t *RunTrail) States() []RunState {
	out := make([]RunState, len(t.states))
	copy(out, t.states)
	return out
}
