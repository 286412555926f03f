package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/google/uuid"
	"github.com/roasbeef/prsentry/internal/brief"
	"github.com/roasbeef/prsentry/internal/identity"
	"github.com/roasbeef/prsentry/internal/reconcile"
)

// PRContext is the read-only description of the pull request under review.
// It is constructed once per invocation and never mutated.
type PRContext struct {
	RepoOwner   string
	RepoName    string
	PRNumber    int
	BaseRef     string
	HeadRef     string
	AuthorID    int64
	AuthorLogin string
}

// PlatformAPI is the slice of the platform client the controller needs.
type PlatformAPI interface {
	// PullRequest returns a PR by number.
	PullRequest(ctx context.Context, owner, repo string,
		number int) (*github.PullRequest, error)
}

// IdentitySource resolves the acting identity. Satisfied by
// *identity.Resolver.
type IdentitySource interface {
	Resolve(ctx context.Context, owner, repo string) (*identity.Identity,
		error)
}

// Reconciler discards stale pending reviews. Satisfied by
// *reconcile.Reconciler.
type Reconciler interface {
	Reconcile(ctx context.Context, owner, repo string,
		prNumber int) ([]reconcile.DeleteResult, error)
}

// PermissionEvaluator decides the verdict capability. Satisfied by
// *permission.Evaluator.
type PermissionEvaluator interface {
	CanRequestChanges(ctx context.Context, owner, repo string,
		prNumber int) bool
}

// AgentRunner supervises the external agent. Satisfied by *Supervisor.
type AgentRunner interface {
	Run(ctx context.Context, taskBrief string) (Outcome, error)
}

// SessionRecord is what the ledger persists about one session run.
type SessionRecord struct {
	RunID             string
	RepoOwner         string
	RepoName          string
	PRNumber          int
	IdentityKind      string
	IdentityLogin     string
	CanRequestChanges bool
	StartedAt         time.Time
}

// Ledger records session runs for later inspection. Failures are
// observability losses, never control-flow errors; the controller logs and
// moves on.
type Ledger interface {
	// RecordStart persists a new session record.
	RecordStart(ctx context.Context, rec *SessionRecord) error

	// RecordOutcome finalizes a session record with its outcome.
	RecordOutcome(ctx context.Context, runID string, outcome Outcome,
		finishedAt time.Time) error
}

// ControllerDeps bundles the inbound dependencies of the controller so the
// orchestration is testable in isolation.
type ControllerDeps struct {
	Platform    PlatformAPI
	Identity    IdentitySource
	Reconciler  Reconciler
	Permissions PermissionEvaluator
	Agent       AgentRunner

	// Ledger is optional; a nil ledger disables session history.
	Ledger Ledger

	Log *slog.Logger
}

// Controller drives one review session end to end: reconcile stale pending
// reviews, evaluate the verdict capability, render the task brief, then
// supervise the agent to a terminal outcome. The stages are strictly
// sequential; each one's output feeds the next.
type Controller struct {
	deps ControllerDeps

	// targetFiles optionally narrows the brief to specific paths.
	targetFiles []string
}

// ControllerOption is a functional option for configuring a Controller.
type ControllerOption func(*Controller)

// WithTargetFiles narrows the review to the named paths.
func WithTargetFiles(files []string) ControllerOption {
	return func(c *Controller) {
		c.targetFiles = files
	}
}

// NewController creates a controller from its dependencies.
func NewController(deps ControllerDeps, opts ...ControllerOption) *Controller {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	c := &Controller{deps: deps}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run executes one review session against the given PR and returns its
// outcome. Reconciliation failures and identity exhaustion are fatal;
// everything after the spawn is reported through the outcome.
func (c *Controller) Run(ctx context.Context, owner, repo string,
	prNumber int) (Outcome, error) {

	log := c.deps.Log

	// Resolve who we act as. The resolver caches, so the reconciler and
	// evaluator below reuse this result without further API calls.
	id, err := c.deps.Identity.Resolve(ctx, owner, repo)
	if err != nil {
		return Outcome{}, err
	}

	prCtx, err := c.fetchPRContext(ctx, owner, repo, prNumber)
	if err != nil {
		return Outcome{}, err
	}

	// Discard stale pending reviews before anything else so the agent's
	// new review cannot collide with an orphan from a crashed run.
	if _, err := c.deps.Reconciler.Reconcile(
		ctx, owner, repo, prNumber,
	); err != nil {
		return Outcome{}, fmt.Errorf("reconcile pending reviews: %w",
			err)
	}

	canRequest := c.deps.Permissions.CanRequestChanges(
		ctx, owner, repo, prNumber,
	)
	log.Info("Evaluated verdict capability",
		"can_request_changes", canRequest,
		"pr_author", prCtx.AuthorLogin)

	taskBrief, err := brief.Render(brief.Params{
		RepoOwner:         prCtx.RepoOwner,
		RepoName:          prCtx.RepoName,
		PRNumber:          prCtx.PRNumber,
		BaseRef:           prCtx.BaseRef,
		HeadRef:           prCtx.HeadRef,
		CanRequestChanges: canRequest,
		ActingLogin:       id.Login,
		TargetFiles:       c.targetFiles,
	})
	if err != nil {
		return Outcome{}, err
	}

	runID := uuid.NewString()
	c.recordStart(ctx, &SessionRecord{
		RunID:             runID,
		RepoOwner:         owner,
		RepoName:          repo,
		PRNumber:          prNumber,
		IdentityKind:      id.Kind.String(),
		IdentityLogin:     id.Login,
		CanRequestChanges: canRequest,
		StartedAt:         time.Now(),
	})

	outcome, runErr := c.deps.Agent.Run(ctx, taskBrief)

	c.recordOutcome(ctx, runID, outcome)

	return outcome, runErr
}

// fetchPRContext builds the immutable PR description from the platform.
func (c *Controller) fetchPRContext(ctx context.Context, owner, repo string,
	prNumber int) (*PRContext, error) {

	pr, err := c.deps.Platform.PullRequest(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch PR context: %w", err)
	}

	return &PRContext{
		RepoOwner:   owner,
		RepoName:    repo,
		PRNumber:    prNumber,
		BaseRef:     pr.GetBase().GetRef(),
		HeadRef:     pr.GetHead().GetRef(),
		AuthorID:    pr.GetUser().GetID(),
		AuthorLogin: pr.GetUser().GetLogin(),
	}, nil
}

// recordStart writes the session start to the ledger, best-effort.
func (c *Controller) recordStart(ctx context.Context, rec *SessionRecord) {
	if c.deps.Ledger == nil {
		return
	}

	if err := c.deps.Ledger.RecordStart(ctx, rec); err != nil {
		c.deps.Log.Warn("Failed to record session start",
			"run_id", rec.RunID, "error", err)
	}
}

// recordOutcome writes the session outcome to the ledger, best-effort.
func (c *Controller) recordOutcome(ctx context.Context, runID string,
	outcome Outcome) {

	if c.deps.Ledger == nil {
		return
	}

	err := c.deps.Ledger.RecordOutcome(ctx, runID, outcome, time.Now())
	if err != nil {
		c.deps.Log.Warn("Failed to record session outcome",
			"run_id", runID, "error", err)
	}
}
