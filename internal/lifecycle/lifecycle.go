// Package lifecycle tracks the phase of an install or uninstall run and
// rejects transitions the engine must never take.
package lifecycle

import (
	"fmt"
	"slices"
)

// State is a run phase.
type State string

// Install phases.
const (
	Loaded     State = "loaded"
	Resolved   State = "resolved"
	Selected   State = "selected"
	Executing  State = "executing"
	Committed  State = "committed"
	RolledBack State = "rolled-back"
)

// Uninstall phases.
const (
	LogLoaded State = "log-loaded"
	Inverting State = "inverting"
	Removed   State = "removed"
)

var transitions = map[State][]State{
	Loaded:    {Resolved},
	Resolved:  {Selected},
	Selected:  {Executing},
	Executing: {Committed, RolledBack},
	LogLoaded: {Inverting},
	Inverting: {Removed},
}

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// TransitionError reports a forbidden phase change.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid run transition %s -> %s", e.From, e.To)
}

// Machine holds the current phase of one run.
type Machine struct {
	current State
	history []State
}

// New starts a machine in state start.
func New(start State) *Machine {
	return &Machine{current: start, history: []State{start}}
}

// Current returns the current phase.
func (m *Machine) Current() State { return m.current }

// History returns every phase the run has been in, oldest first.
func (m *Machine) History() []State { return slices.Clone(m.history) }

// To moves the run to next.
func (m *Machine) To(next State) error {
	if !slices.Contains(transitions[m.current], next) {
		return &TransitionError{From: m.current, To: next}
	}
	m.current = next
	m.history = append(m.history, next)
	return nil
}
