package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/go-github/v75/github"
	"github.com/roasbeef/prsentry/internal/identity"
	"golang.org/x/sync/errgroup"
)

// PlatformAPI is the slice of the platform client the reconciler needs.
type PlatformAPI interface {
	// ListReviews returns every review on a PR.
	ListReviews(ctx context.Context, owner, repo string,
		number int) ([]*github.PullRequestReview, error)

	// DeletePendingReview deletes a pending review by id.
	DeletePendingReview(ctx context.Context, owner, repo string,
		number int, reviewID int64) error
}

// IdentitySource resolves the acting identity. Satisfied by
// *identity.Resolver.
type IdentitySource interface {
	Resolve(ctx context.Context, owner, repo string) (*identity.Identity,
		error)
}

// DeleteResult records the outcome of one pending-review deletion. The
// batch gathers every outcome rather than aborting on the first failure.
type DeleteResult struct {
	// ReviewID identifies the review that was targeted.
	ReviewID int64

	// Err is nil when the deletion succeeded.
	Err error
}

// Reconciler removes stale pending reviews left behind by a prior run of
// this tool, so a new session starts with at most one live pending review
// per identity per PR.
type Reconciler struct {
	api      PlatformAPI
	resolver IdentitySource
	log      *slog.Logger
}

// NewReconciler creates a reconciler over the given API and identity
// source.
func NewReconciler(api PlatformAPI, resolver IdentitySource,
	log *slog.Logger) *Reconciler {

	if log == nil {
		log = slog.Default()
	}

	return &Reconciler{
		api:      api,
		resolver: resolver,
		log:      log,
	}
}

// Reconcile finds pending reviews on the PR attributable to the acting
// identity and deletes them. The review fetch and identity resolution run
// concurrently; a failure in either aborts reconciliation. Individual
// deletions are best-effort: failures are recorded and logged but never
// propagate.
func (r *Reconciler) Reconcile(ctx context.Context, owner, repo string,
	prNumber int) ([]DeleteResult, error) {

	var (
		reviews []*github.PullRequestReview
		id      *identity.Identity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reviews, err = r.api.ListReviews(gctx, owner, repo, prNumber)
		if err != nil {
			return fmt.Errorf("fetch reviews: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		id, err = r.resolver.Resolve(gctx, owner, repo)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var matched []*github.PullRequestReview
	for _, rv := range reviews {
		if isPending(rv) && Attributable(id, rv) {
			matched = append(matched, rv)
		}
	}

	if len(matched) == 0 {
		r.log.Debug("No stale pending reviews to reconcile",
			"pr", prNumber)
		return nil, nil
	}

	// Delete each matched review independently so one failure cannot
	// block the rest of the batch.
	results := make([]DeleteResult, len(matched))
	var wg sync.WaitGroup
	for i, rv := range matched {
		wg.Add(1)
		go func(i int, reviewID int64) {
			defer wg.Done()

			err := r.api.DeletePendingReview(
				ctx, owner, repo, prNumber, reviewID,
			)
			results[i] = DeleteResult{ReviewID: reviewID, Err: err}
		}(i, rv.GetID())
	}
	wg.Wait()

	deleted := 0
	for _, res := range results {
		if res.Err != nil {
			r.log.Warn("Failed to delete stale pending review",
				"review_id", res.ReviewID, "error", res.Err)
			continue
		}
		deleted++
	}

	r.log.Info("Reconciled stale pending reviews",
		"pr", prNumber, "matched", len(matched), "deleted", deleted)

	return results, nil
}
