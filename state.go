package storecheck

import "fmt"

// RunState is the position of a run in its lifecycle.
type RunState int

const (
	StateIdle RunState = iota
	StateNavigating
	StateAsserting
	StateInteracting
	StateCompleted
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNavigating:
		return "navigating"
	case StateAsserting:
		return "asserting"
	case StateInteracting:
		return "interacting"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// canTransition encodes Idle -> Navigating -> (Asserting|Interacting|Navigating)*
// -> Completed|Failed. Failed is reachable from every live state, including
// Idle when the session cannot be opened.
func canTransition(from, to RunState) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StateFailed:
		return true
	case StateNavigating:
		return true
	case StateAsserting, StateInteracting, StateCompleted:
		return from != StateIdle
	default:
		return false
	}
}
