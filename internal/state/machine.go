package state

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition indicates that a requested transition is not allowed.
var ErrInvalidTransition = errors.New("invalid state transition")

// TransitionRecorder observes transitions, labelled by the submitted form name.
type TransitionRecorder func(form, from, to string)

// Machine tracks a single submission. It lives for one request and is not safe for concurrent use.
type Machine struct {
	form     string
	current  State
	recorder TransitionRecorder
}

// NewMachine starts a submission of form in StateReceived.
func NewMachine(form string, recorder TransitionRecorder) *Machine {
	if recorder == nil {
		recorder = func(string, string, string) {}
	}

	return &Machine{
		form:     form,
		current:  StateReceived,
		recorder: recorder,
	}
}

// Current returns the state the submission is in.
func (m *Machine) Current() State {
	return m.current
}

// TransitionTo moves the submission to next after checking the transition table.
func (m *Machine) TransitionTo(next State) error {
	if !IsTransitionAllowed(m.current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.current, next)
	}

	from := m.current
	m.current = next
	m.recorder(m.form, string(from), string(next))

	return nil
}
