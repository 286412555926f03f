package session

import (
	"errors"
	"fmt"
)

// ErrInterrupted is returned when an operator-initiated cancellation
// arrived after the agent was spawned. It is surfaced distinctly from a
// failure so operators can tell "the agent erred" from "I stopped it".
var ErrInterrupted = errors.New("review session interrupted")

// SpawnError means the agent executable could not be started at all. The
// session never reaches the running state.
type SpawnError struct {
	// Path is the executable that failed to start.
	Path string

	// Err is the underlying start error.
	Err error
}

// Error returns a human-readable description of the spawn failure.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn review agent %q: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As chains.
func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExitError means the agent process exited nonzero. It is not retried.
type ExitError struct {
	// Code is the agent's exit code.
	Code int
}

// Error returns a human-readable description of the exit failure.
func (e *ExitError) Error() string {
	return fmt.Sprintf("review agent exited with code %d", e.Code)
}
