package state

// validTransitions contains the permitted transitions of the workflow.
var validTransitions = map[State][]State{
	StateReceived: {
		StateValidated,
	},
	StateValidated: {
		StatePersisted,
		StateRejected,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
