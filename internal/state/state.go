// Package state models the lifecycle of one profile form submission.
package state

// State represents a step of the profile update workflow.
type State string

const (
	// StateReceived is the initial state of a submitted form.
	StateReceived State = "received"
	// StateValidated means structural and domain checks have run.
	StateValidated State = "validated"
	// StatePersisted means the submitted values were written.
	StatePersisted State = "persisted"
	// StateRejected means validation failed and nothing was written.
	StateRejected State = "rejected"
)

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == StatePersisted || s == StateRejected
}
