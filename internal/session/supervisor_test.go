//go:build !windows

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// shellAgent returns a config that runs the task brief as a shell script,
// which lets each test pick its exit behavior.
func shellAgent() *AgentConfig {
	return &AgentConfig{
		Command: "/bin/sh",
		Args:    []string{"-c"},
	}
}

// TestSupervisorCompleted verifies a zero exit maps to a completed outcome.
func TestSupervisorCompleted(t *testing.T) {
	sup := NewSupervisor(shellAgent(), nil)

	outcome, err := sup.Run(context.Background(), "exit 0")
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, outcome.Status)
	require.Equal(t, 0, outcome.ExitCode.UnwrapOr(-1))
}

// TestSupervisorNonzeroExit verifies the agent's exit code is preserved in
// the failure.
func TestSupervisorNonzeroExit(t *testing.T) {
	sup := NewSupervisor(shellAgent(), nil)

	outcome, err := sup.Run(context.Background(), "exit 3")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 3, exitErr.Code)

	require.Equal(t, StatusFailed, outcome.Status)
	require.Equal(t, 3, outcome.ExitCode.UnwrapOr(-1))
}

// TestSupervisorSpawnFailure verifies a missing executable produces a spawn
// error with no exit code.
func TestSupervisorSpawnFailure(t *testing.T) {
	sup := NewSupervisor(&AgentConfig{
		Command: "/nonexistent/agent-binary",
	}, nil)

	outcome, err := sup.Run(context.Background(), "review")
	require.Error(t, err)

	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	require.Equal(t, "/nonexistent/agent-binary", spawnErr.Path)

	require.Equal(t, StatusFailed, outcome.Status)
	require.True(t, outcome.ExitCode.IsNone())
}

// TestSupervisorContextCancel verifies cancelling the context while the
// agent is alive terminates it and reports an interrupted outcome.
func TestSupervisorContextCancel(t *testing.T) {
	sup := NewSupervisor(shellAgent(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	outcome, err := sup.Run(ctx, "sleep 30")
	require.ErrorIs(t, err, ErrInterrupted)

	require.Equal(t, StatusInterrupted, outcome.Status)

	// The agent must not have run out its sleep.
	require.Less(t, time.Since(start), 5*time.Second)
}

// TestSupervisorErrorUnwrapping verifies the error chain surfaces the wrapped
// cause for callers using errors.Is and errors.As.
func TestSupervisorErrorUnwrapping(t *testing.T) {
	spawnErr := &SpawnError{
		Path: "claude",
		Err:  errors.New("permission denied"),
	}
	require.ErrorContains(t, spawnErr, "claude")
	require.ErrorContains(t, spawnErr, "permission denied")
	require.EqualError(t, errors.Unwrap(spawnErr), "permission denied")

	exitErr := &ExitError{Code: 3}
	require.ErrorContains(t, exitErr, "3")
}
