package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFSMHappyPath walks idle through running to completed.
func TestFSMHappyPath(t *testing.T) {
	fsm := NewFSM()
	require.Equal(t, StateIdle, fsm.State())
	require.False(t, fsm.State().IsTerminal())

	state, err := fsm.ProcessEvent(LaunchEvent{})
	require.NoError(t, err)
	require.Equal(t, StateRunning, state)

	state, err = fsm.ProcessEvent(ExitEvent{Code: 0})
	require.NoError(t, err)
	require.Equal(t, StateCompleted, state)
	require.True(t, state.IsTerminal())

	history := fsm.Transitions()
	require.Len(t, history, 2)
	require.Equal(t, "launch", history[0].Event)
	require.Equal(t, "exit", history[1].Event)
}

// TestFSMNonzeroExit verifies a nonzero exit lands in failed.
func TestFSMNonzeroExit(t *testing.T) {
	fsm := NewFSM()

	_, err := fsm.ProcessEvent(LaunchEvent{})
	require.NoError(t, err)

	state, err := fsm.ProcessEvent(ExitEvent{Code: 3})
	require.NoError(t, err)
	require.Equal(t, StateFailed, state)
}

// TestFSMCancelWinsOverExit verifies a cancellation observed while running
// takes precedence over the exit report that follows it.
func TestFSMCancelWinsOverExit(t *testing.T) {
	fsm := NewFSM()

	_, err := fsm.ProcessEvent(LaunchEvent{})
	require.NoError(t, err)

	state, err := fsm.ProcessEvent(CancelEvent{Reason: "interrupt"})
	require.NoError(t, err)
	require.Equal(t, StateInterrupted, state)

	// The child's exit code arrives after the cancellation; it must not
	// overwrite the interrupted state.
	state, err = fsm.ProcessEvent(ExitEvent{Code: 0})
	require.NoError(t, err)
	require.Equal(t, StateInterrupted, state)

	// The ignored exit leaves no transition record.
	require.Len(t, fsm.Transitions(), 2)
}

// TestFSMDuplicateCancel verifies repeated cancellations after a terminal
// transition are silent no-ops.
func TestFSMDuplicateCancel(t *testing.T) {
	fsm := NewFSM()

	_, err := fsm.ProcessEvent(LaunchEvent{})
	require.NoError(t, err)

	_, err = fsm.ProcessEvent(CancelEvent{Reason: "interrupt"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		state, err := fsm.ProcessEvent(CancelEvent{Reason: "interrupt"})
		require.NoError(t, err)
		require.Equal(t, StateInterrupted, state)
	}
	require.Len(t, fsm.Transitions(), 2)
}

// TestFSMSpawnFailed verifies a spawn failure is only legal from idle.
func TestFSMSpawnFailed(t *testing.T) {
	fsm := NewFSM()

	state, err := fsm.ProcessEvent(SpawnFailedEvent{
		Err: errors.New("executable not found"),
	})
	require.NoError(t, err)
	require.Equal(t, StateFailed, state)

	// Already terminal; a launch must be rejected.
	_, err = fsm.ProcessEvent(LaunchEvent{})
	require.Error(t, err)
	require.Equal(t, StateFailed, fsm.State())
}

// TestFSMInvalidTransitions covers the rejected edges.
func TestFSMInvalidTransitions(t *testing.T) {
	t.Run("cancel before launch", func(t *testing.T) {
		fsm := NewFSM()
		_, err := fsm.ProcessEvent(CancelEvent{})
		require.Error(t, err)
		require.Equal(t, StateIdle, fsm.State())
	})

	t.Run("exit before launch", func(t *testing.T) {
		fsm := NewFSM()
		_, err := fsm.ProcessEvent(ExitEvent{Code: 0})
		require.Error(t, err)
		require.Equal(t, StateIdle, fsm.State())
	})

	t.Run("double launch", func(t *testing.T) {
		fsm := NewFSM()
		_, err := fsm.ProcessEvent(LaunchEvent{})
		require.NoError(t, err)
		_, err = fsm.ProcessEvent(LaunchEvent{})
		require.Error(t, err)
		require.Equal(t, StateRunning, fsm.State())
	})

	t.Run("spawn failure after launch", func(t *testing.T) {
		fsm := NewFSM()
		_, err := fsm.ProcessEvent(LaunchEvent{})
		require.NoError(t, err)
		_, err = fsm.ProcessEvent(SpawnFailedEvent{
			Err: errors.New("late"),
		})
		require.Error(t, err)
	})
}

// TestStateString covers the state and status name mappings.
func TestStateString(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "running", StateRunning.String())
	require.Equal(t, "completed", StateCompleted.String())
	require.Equal(t, "failed", StateFailed.String())
	require.Equal(t, "interrupted", StateInterrupted.String())
	require.Equal(t, "unknown", State(99).String())

	require.Equal(t, "completed", StatusCompleted.String())
	require.Equal(t, "failed", StatusFailed.String())
	require.Equal(t, "interrupted", StatusInterrupted.String())
	require.Equal(t, "unknown", Status(99).String())
}
