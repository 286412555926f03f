package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/roasbeef/prsentry/internal/identity"
	"github.com/roasbeef/prsentry/internal/reconcile"
	"github.com/stretchr/testify/require"
)

type ctrlFixture struct {
	platform *ctrlPlatform
	source   *ctrlSource
	recon    *ctrlReconciler
	perms    *ctrlPerms
	agent    *ctrlAgent
	ledger   *ctrlLedger

	// order records the stage sequence across all fakes.
	order *[]string
}

type ctrlPlatform struct {
	fix *ctrlFixture
	pr  *github.PullRequest
	err error
}

func (p *ctrlPlatform) PullRequest(_ context.Context, _, _ string,
	_ int) (*github.PullRequest, error) {

	*p.fix.order = append(*p.fix.order, "fetch-pr")
	return p.pr, p.err
}

type ctrlSource struct {
	fix *ctrlFixture
	id  *identity.Identity
	err error
}

func (s *ctrlSource) Resolve(_ context.Context, _,
	_ string) (*identity.Identity, error) {

	*s.fix.order = append(*s.fix.order, "resolve")
	return s.id, s.err
}

type ctrlReconciler struct {
	fix *ctrlFixture
	err error
}

func (r *ctrlReconciler) Reconcile(_ context.Context, _, _ string,
	_ int) ([]reconcile.DeleteResult, error) {

	*r.fix.order = append(*r.fix.order, "reconcile")
	return nil, r.err
}

type ctrlPerms struct {
	fix *ctrlFixture
	can bool
}

func (p *ctrlPerms) CanRequestChanges(_ context.Context, _, _ string,
	_ int) bool {

	*p.fix.order = append(*p.fix.order, "permissions")
	return p.can
}

type ctrlAgent struct {
	fix     *ctrlFixture
	brief   string
	outcome Outcome
	err     error
}

func (a *ctrlAgent) Run(_ context.Context, taskBrief string) (Outcome,
	error) {

	*a.fix.order = append(*a.fix.order, "agent")
	a.brief = taskBrief
	return a.outcome, a.err
}

type ctrlLedger struct {
	fix      *ctrlFixture
	started  *SessionRecord
	startErr error
	outcome  *Outcome
	runID    string
}

func (l *ctrlLedger) RecordStart(_ context.Context,
	rec *SessionRecord) error {

	*l.fix.order = append(*l.fix.order, "record-start")
	l.started = rec
	return l.startErr
}

func (l *ctrlLedger) RecordOutcome(_ context.Context, runID string,
	outcome Outcome, _ time.Time) error {

	*l.fix.order = append(*l.fix.order, "record-outcome")
	l.runID = runID
	l.outcome = &outcome
	return nil
}

func newCtrlFixture() *ctrlFixture {
	order := make([]string, 0, 8)
	fix := &ctrlFixture{order: &order}

	fix.platform = &ctrlPlatform{
		fix: fix,
		pr: &github.PullRequest{
			Number: github.Ptr(7),
			Base:   &github.PullRequestBranch{Ref: github.Ptr("main")},
			Head: &github.PullRequestBranch{
				Ref: github.Ptr("feature/parser"),
			},
			User: &github.User{
				ID:    github.Ptr(int64(202)),
				Login: github.Ptr("author"),
			},
		},
	}
	fix.source = &ctrlSource{
		fix: fix,
		id: &identity.Identity{
			Kind:  identity.KindUser,
			ID:    101,
			Login: "alice",
		},
	}
	fix.recon = &ctrlReconciler{fix: fix}
	fix.perms = &ctrlPerms{fix: fix, can: true}
	fix.agent = &ctrlAgent{
		fix: fix,
		outcome: Outcome{
			Status:   StatusCompleted,
			ExitCode: fn.Some(0),
		},
	}
	fix.ledger = &ctrlLedger{fix: fix}

	return fix
}

func (f *ctrlFixture) controller(opts ...ControllerOption) *Controller {
	return NewController(ControllerDeps{
		Platform:    f.platform,
		Identity:    f.source,
		Reconciler:  f.recon,
		Permissions: f.perms,
		Agent:       f.agent,
		Ledger:      f.ledger,
	}, opts...)
}

// TestControllerStageOrder verifies the stages run strictly in sequence and
// the final outcome flows through.
func TestControllerStageOrder(t *testing.T) {
	fix := newCtrlFixture()

	outcome, err := fix.controller().Run(
		context.Background(), "acme", "widgets", 7,
	)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, outcome.Status)

	require.Equal(t, []string{
		"resolve", "fetch-pr", "reconcile", "permissions",
		"record-start", "agent", "record-outcome",
	}, *fix.order)
}

// TestControllerBriefContents verifies the rendered brief carries the PR
// context and the verdict constraint into the agent invocation.
func TestControllerBriefContents(t *testing.T) {
	fix := newCtrlFixture()
	fix.perms.can = false

	_, err := fix.controller(
		WithTargetFiles([]string{"internal/parser/lexer.go"}),
	).Run(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)

	require.Contains(t, fix.agent.brief,
		"pull request #7 in acme/widgets")
	require.Contains(t, fix.agent.brief, "Base ref: main")
	require.Contains(t, fix.agent.brief, "Reviewing as: alice")
	require.Contains(t, fix.agent.brief, "internal/parser/lexer.go")
	require.Contains(t, fix.agent.brief,
		`MUST use the "comment only" verdict`)
}

// TestControllerReconcileFatal verifies a reconciliation failure stops the
// session before the agent is spawned.
func TestControllerReconcileFatal(t *testing.T) {
	fix := newCtrlFixture()
	fix.recon.err = errors.New("rate limited")

	_, err := fix.controller().Run(
		context.Background(), "acme", "widgets", 7,
	)
	require.ErrorContains(t, err, "reconcile pending reviews")
	require.NotContains(t, *fix.order, "agent")
	require.Nil(t, fix.ledger.started)
}

// TestControllerIdentityFatal verifies identity exhaustion stops everything.
func TestControllerIdentityFatal(t *testing.T) {
	fix := newCtrlFixture()
	fix.source.id = nil
	fix.source.err = identity.ErrUnresolved

	_, err := fix.controller().Run(
		context.Background(), "acme", "widgets", 7,
	)
	require.ErrorIs(t, err, identity.ErrUnresolved)
	require.Equal(t, []string{"resolve"}, *fix.order)
}

// TestControllerLedgerBestEffort verifies a ledger failure never fails the
// session.
func TestControllerLedgerBestEffort(t *testing.T) {
	fix := newCtrlFixture()
	fix.ledger.startErr = errors.New("disk full")

	outcome, err := fix.controller().Run(
		context.Background(), "acme", "widgets", 7,
	)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, outcome.Status)
	require.Contains(t, *fix.order, "agent")
}

// TestControllerLedgerRecords verifies what the ledger is handed.
func TestControllerLedgerRecords(t *testing.T) {
	fix := newCtrlFixture()
	fix.agent.outcome = Outcome{
		Status:   StatusFailed,
		ExitCode: fn.Some(3),
	}
	fix.agent.err = &ExitError{Code: 3}

	outcome, err := fix.controller().Run(
		context.Background(), "acme", "widgets", 7,
	)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, StatusFailed, outcome.Status)

	require.NotNil(t, fix.ledger.started)
	require.Equal(t, "acme", fix.ledger.started.RepoOwner)
	require.Equal(t, 7, fix.ledger.started.PRNumber)
	require.Equal(t, "user", fix.ledger.started.IdentityKind)
	require.Equal(t, "alice", fix.ledger.started.IdentityLogin)
	require.True(t, fix.ledger.started.CanRequestChanges)
	require.NotEmpty(t, fix.ledger.started.RunID)

	// The outcome record refers to the same run.
	require.Equal(t, fix.ledger.started.RunID, fix.ledger.runID)
	require.NotNil(t, fix.ledger.outcome)
	require.Equal(t, StatusFailed, fix.ledger.outcome.Status)
}

// TestControllerNilLedger verifies history is optional.
func TestControllerNilLedger(t *testing.T) {
	fix := newCtrlFixture()

	ctrl := NewController(ControllerDeps{
		Platform:    fix.platform,
		Identity:    fix.source,
		Reconciler:  fix.recon,
		Permissions: fix.perms,
		Agent:       fix.agent,
	})

	outcome, err := ctrl.Run(context.Background(), "acme", "widgets", 7)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, outcome.Status)
	require.NotContains(t, *fix.order, "record-start")
}
