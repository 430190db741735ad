package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "received to validated", from: StateReceived, to: StateValidated, expected: true},
		{name: "validated to persisted", from: StateValidated, to: StatePersisted, expected: true},
		{name: "validated to rejected", from: StateValidated, to: StateRejected, expected: true},
		{name: "received to persisted skips validation", from: StateReceived, to: StatePersisted, expected: false},
		{name: "received to rejected skips validation", from: StateReceived, to: StateRejected, expected: false},
		{name: "persisted is terminal", from: StatePersisted, to: StateValidated, expected: false},
		{name: "rejected is terminal", from: StateRejected, to: StatePersisted, expected: false},
		{name: "unknown state", from: State("unknown"), to: StateValidated, expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
