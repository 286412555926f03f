package session

import (
	"fmt"
	"sync"
	"time"
)

// State enumerates the lifecycle states of one supervised agent execution.
type State uint8

const (
	// StateIdle is the initial state before the agent is launched.
	StateIdle State = iota

	// StateRunning means the agent process is alive.
	StateRunning

	// StateCompleted means the agent exited zero with no cancellation.
	StateCompleted

	// StateFailed means the agent exited nonzero or could not start.
	StateFailed

	// StateInterrupted means a cancellation arrived while the agent was
	// alive. It takes precedence over whatever exit code follows.
	StateInterrupted
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the state is terminal.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateInterrupted:
		return true
	default:
		return false
	}
}

// Event triggers state transitions on the session FSM.
type Event interface {
	sessionEventMarker()
}

// Event types for the session FSM.
type (
	// LaunchEvent is sent when the agent process has started.
	LaunchEvent struct{}

	// CancelEvent is sent when an operator-initiated cancellation
	// arrives while the agent is alive.
	CancelEvent struct {
		// Reason describes what triggered the cancellation, e.g. the
		// signal name or "context cancelled".
		Reason string
	}

	// ExitEvent is sent when the agent process reports its exit code.
	ExitEvent struct {
		Code int
	}

	// SpawnFailedEvent is sent when the agent process could not be
	// started at all.
	SpawnFailedEvent struct {
		Err error
	}
)

// Event marker implementations.
func (LaunchEvent) sessionEventMarker()      {}
func (CancelEvent) sessionEventMarker()      {}
func (ExitEvent) sessionEventMarker()        {}
func (SpawnFailedEvent) sessionEventMarker() {}

// StateTransition records one transition for debugging and the ledger.
type StateTransition struct {
	FromState State
	ToState   State
	Event     string
	Timestamp time.Time
}

// FSM tracks the lifecycle of a single supervised agent execution. Exactly
// one terminal state is produced per session, and a cancellation observed
// while running wins over any later exit report.
type FSM struct {
	mu sync.Mutex

	current     State
	transitions []StateTransition
}

// NewFSM creates a session FSM in the idle state.
func NewFSM() *FSM {
	return &FSM{current: StateIdle}
}

// State returns the current state.
func (f *FSM) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// ProcessEvent handles a session event and returns the new state.
func (f *FSM) ProcessEvent(event Event) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	oldState := f.current
	var (
		newState  State
		eventName string
	)

	switch e := event.(type) {
	case LaunchEvent:
		eventName = "launch"
		if f.current != StateIdle {
			return f.current, fmt.Errorf(
				"cannot launch from state %s", f.current,
			)
		}
		newState = StateRunning

	case CancelEvent:
		eventName = "cancel"

		// A second cancellation after a terminal transition is a
		// no-op, so duplicate signals cannot double-report.
		if f.current.IsTerminal() {
			return f.current, nil
		}
		if f.current != StateRunning {
			return f.current, fmt.Errorf(
				"cannot cancel from state %s", f.current,
			)
		}
		newState = StateInterrupted

	case ExitEvent:
		eventName = "exit"

		// If a cancellation already won, the exit code is ignored.
		if f.current == StateInterrupted {
			return f.current, nil
		}
		if f.current != StateRunning {
			return f.current, fmt.Errorf(
				"cannot record exit from state %s", f.current,
			)
		}
		if e.Code == 0 {
			newState = StateCompleted
		} else {
			newState = StateFailed
		}

	case SpawnFailedEvent:
		eventName = "spawn_failed"
		if f.current != StateIdle {
			return f.current, fmt.Errorf(
				"cannot record spawn failure from state %s",
				f.current,
			)
		}
		newState = StateFailed

	default:
		return f.current, fmt.Errorf("unknown event type: %T", event)
	}

	f.transitions = append(f.transitions, StateTransition{
		FromState: oldState,
		ToState:   newState,
		Event:     eventName,
		Timestamp: time.Now(),
	})

	f.current = newState
	return newState, nil
}

// Transitions returns a copy of the transition history.
func (f *FSM) Transitions() []StateTransition {
	f.mu.Lock()
	defer f.mu.Unlock()

	history := make([]StateTransition, len(f.transitions))
	copy(history, f.transitions)
	return history
}
