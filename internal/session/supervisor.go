package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Status is the terminal outcome of one supervised agent execution.
type Status uint8

const (
	// StatusCompleted means the agent exited zero.
	StatusCompleted Status = iota

	// StatusFailed means the agent exited nonzero or never started.
	StatusFailed

	// StatusInterrupted means the operator cancelled the session while
	// the agent was alive.
	StatusInterrupted
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Outcome is the result of supervising one agent execution. Exactly one is
// produced per session.
type Outcome struct {
	// Status is the terminal status.
	Status Status

	// ExitCode is the agent's exit code, when the agent got far enough
	// to report one.
	ExitCode fn.Option[int]
}

// AgentConfig configures how the external review agent is invoked. The
// rendered task brief is appended as the final argument.
type AgentConfig struct {
	// Command is the agent executable.
	Command string

	// Args are leading arguments placed before the task brief.
	Args []string

	// Env is extra environment appended to the inherited environment.
	Env []string

	// WorkDir is the working directory for the agent process.
	WorkDir string

	// CancelSignals are the signals treated as operator cancellation.
	// Defaults to SIGINT and SIGTERM.
	CancelSignals []os.Signal
}

// DefaultAgentConfig returns the standard agent invocation: the claude CLI
// in non-interactive prompt mode.
func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		Command: "claude",
		Args:    []string{"-p"},
	}
}

// Supervisor launches the external review agent as a subprocess with
// inherited standard streams, forwards cancellation to it, and maps its
// exit status to a session outcome. At most one agent process exists per
// invocation.
type Supervisor struct {
	cfg *AgentConfig
	log *slog.Logger
}

// NewSupervisor creates a supervisor for the given agent configuration.
func NewSupervisor(cfg *AgentConfig, log *slog.Logger) *Supervisor {
	if cfg == nil {
		cfg = DefaultAgentConfig()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Supervisor{cfg: cfg, log: log}
}

// Run executes the agent with the given task brief and blocks until it
// exits or is cancelled. The returned error is nil only for a completed
// session: spawn failures surface as *SpawnError, nonzero exits as
// *ExitError, and cancellations as ErrInterrupted.
func (s *Supervisor) Run(ctx context.Context,
	taskBrief string) (Outcome, error) {

	fsm := NewFSM()

	args := make([]string, 0, len(s.cfg.Args)+1)
	args = append(args, s.cfg.Args...)
	args = append(args, taskBrief)

	cmd := exec.Command(s.cfg.Command, args...)
	cmd.Dir = s.cfg.WorkDir
	cmd.Env = append(os.Environ(), s.cfg.Env...)

	// The agent's interaction stays visible to the operator.
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		fsm.ProcessEvent(SpawnFailedEvent{Err: err})
		return Outcome{
				Status:   StatusFailed,
				ExitCode: fn.None[int](),
			}, &SpawnError{
				Path: s.cfg.Command,
				Err:  err,
			}
	}

	fsm.ProcessEvent(LaunchEvent{})
	s.log.Info("Review agent started",
		"command", s.cfg.Command, "pid", cmd.Process.Pid)

	cancelSigs := s.cfg.CancelSignals
	if len(cancelSigs) == 0 {
		cancelSigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, cancelSigs...)

	// Deregistration must happen exactly once on any terminal
	// transition, so a second signal cannot double-forward.
	done := make(chan struct{})
	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
	}
	defer stop()

	go func() {
		var reason string
		select {
		case sig := <-sigCh:
			reason = sig.String()
		case <-ctx.Done():
			reason = "context cancelled"
		case <-done:
			return
		}

		fsm.ProcessEvent(CancelEvent{Reason: reason})
		s.log.Warn("Cancellation received, terminating review agent",
			"reason", reason)

		// Forward a graceful termination to the child; it owns its
		// own cleanup.
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			s.log.Warn("Failed to signal review agent",
				"error", err)
		}
	}()

	waitErr := cmd.Wait()
	stop()

	// A cancellation observed while running wins over the exit code.
	if fsm.State() == StateInterrupted {
		return Outcome{
			Status:   StatusInterrupted,
			ExitCode: exitCodeOf(waitErr),
		}, ErrInterrupted
	}

	if waitErr == nil {
		fsm.ProcessEvent(ExitEvent{Code: 0})
		s.log.Info("Review agent completed")
		return Outcome{
			Status:   StatusCompleted,
			ExitCode: fn.Some(0),
		}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := exitErr.ExitCode()
		fsm.ProcessEvent(ExitEvent{Code: code})
		return Outcome{
			Status:   StatusFailed,
			ExitCode: fn.Some(code),
		}, &ExitError{Code: code}
	}

	// Wait failed without an exit status (e.g. I/O error on the
	// inherited streams).
	fsm.ProcessEvent(ExitEvent{Code: -1})
	return Outcome{
			Status:   StatusFailed,
			ExitCode: fn.None[int](),
		}, &SpawnError{
			Path: s.cfg.Command,
			Err:  waitErr,
		}
}

// exitCodeOf extracts the exit code from a Wait error, if there is one.
func exitCodeOf(waitErr error) fn.Option[int] {
	if waitErr == nil {
		return fn.Some(0)
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return fn.Some(exitErr.ExitCode())
	}

	return fn.None[int]()
}
