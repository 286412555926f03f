package permission

import (
	"context"
	"log/slog"

	"github.com/google/go-github/v75/github"
	"github.com/roasbeef/prsentry/internal/identity"
)

// PlatformAPI is the slice of the platform client the evaluator needs.
type PlatformAPI interface {
	// PullRequest returns a PR by number.
	PullRequest(ctx context.Context, owner, repo string,
		number int) (*github.PullRequest, error)

	// RepoInstallation returns the installation covering a repository.
	RepoInstallation(ctx context.Context, owner,
		repo string) (*github.Installation, error)
}

// IdentitySource resolves the acting identity. Satisfied by
// *identity.Resolver.
type IdentitySource interface {
	Resolve(ctx context.Context, owner, repo string) (*identity.Identity,
		error)
}

// Evaluator decides whether the acting identity may issue a "changes
// requested" verdict on a PR, or must degrade to commenting. It never
// returns an error: any internal failure yields false, since the cautious
// default is comment-only.
type Evaluator struct {
	api      PlatformAPI
	resolver IdentitySource
	log      *slog.Logger
}

// NewEvaluator creates an evaluator over the given API and identity source.
func NewEvaluator(api PlatformAPI, resolver IdentitySource,
	log *slog.Logger) *Evaluator {

	if log == nil {
		log = slog.Default()
	}

	return &Evaluator{
		api:      api,
		resolver: resolver,
		log:      log,
	}
}

// CanRequestChanges reports whether the acting identity is allowed to
// request changes on the given PR. A principal may not block a PR it
// authored; for applications, authorship is judged at the level of the
// installing account, since an app has no independent self.
func (e *Evaluator) CanRequestChanges(ctx context.Context, owner, repo string,
	prNumber int) bool {

	id, err := e.resolver.Resolve(ctx, owner, repo)
	if err != nil {
		e.log.Warn("Permission check failed to resolve identity, "+
			"degrading to comment-only", "error", err)
		return false
	}

	pr, err := e.api.PullRequest(ctx, owner, repo, prNumber)
	if err != nil {
		e.log.Warn("Permission check failed to fetch PR, degrading "+
			"to comment-only", "error", err)
		return false
	}

	author := pr.GetUser()

	switch id.Kind {
	case identity.KindUser, identity.KindBot:
		// Direct self-review prevention by account id.
		return id.ID != author.GetID()

	case identity.KindApp:
		inst := id.Installation
		if inst == nil {
			inst = e.fetchInstallation(ctx, owner, repo)
			if inst == nil {
				return false
			}
		}

		// An app installed on an organization always may request
		// changes; installed on a user account, only when that user
		// did not author the PR.
		if inst.OwnerKind == "Organization" {
			return true
		}
		return inst.OwnerID != author.GetID()

	default:
		return false
	}
}

// fetchInstallation looks up the installation for app identities resolved
// through the application-level probe, which carries no installation info.
// Returns nil on any failure (fail closed).
func (e *Evaluator) fetchInstallation(ctx context.Context, owner,
	repo string) *identity.Installation {

	inst, err := e.api.RepoInstallation(ctx, owner, repo)
	if err != nil {
		e.log.Warn("Permission check failed to fetch installation, "+
			"degrading to comment-only", "error", err)
		return nil
	}

	return &identity.Installation{
		ID:         inst.GetID(),
		OwnerKind:  inst.GetTargetType(),
		OwnerID:    inst.GetAccount().GetID(),
		OwnerLogin: inst.GetAccount().GetLogin(),
		AppID:      inst.GetAppID(),
		AppSlug:    inst.GetAppSlug(),
	}
}
