package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	form, from, to string
}

func TestMachineRecordsTransitions(t *testing.T) {
	var got []recorded
	m := NewMachine("setting_form", func(form, from, to string) {
		got = append(got, recorded{form, from, to})
	})

	assert.Equal(t, StateReceived, m.Current())
	require.NoError(t, m.TransitionTo(StateValidated))
	require.NoError(t, m.TransitionTo(StatePersisted))

	assert.True(t, m.Current().Terminal())
	assert.Equal(t, []recorded{
		{"setting_form", "received", "validated"},
		{"setting_form", "validated", "persisted"},
	}, got)
}

func TestMachineRejectsInvalidTransition(t *testing.T) {
	calls := 0
	m := NewMachine("account_form", func(string, string, string) { calls++ })

	err := m.TransitionTo(StatePersisted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateReceived, m.Current())
	assert.Zero(t, calls)
}

func TestMachineWithoutRecorder(t *testing.T) {
	m := NewMachine("notification_form", nil)
	require.NoError(t, m.TransitionTo(StateValidated))
	require.NoError(t, m.TransitionTo(StateRejected))
	assert.ErrorIs(t, m.TransitionTo(StatePersisted), ErrInvalidTransition)
}
