package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/go-github/v75/github"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrUnresolved is returned when every resolution strategy has been
// exhausted without producing an identity. This is fatal: no review work
// can start without knowing who the session acts as.
var ErrUnresolved = errors.New("unable to resolve acting identity")

// PlatformAPI is the slice of the platform client the resolver needs.
type PlatformAPI interface {
	// AuthenticatedUser returns the user behind the credential.
	AuthenticatedUser(ctx context.Context) (*github.User, error)

	// AuthenticatedApp returns the app behind the credential.
	AuthenticatedApp(ctx context.Context) (*github.App, error)

	// RepoInstallation returns the installation covering a repository.
	RepoInstallation(ctx context.Context, owner,
		repo string) (*github.Installation, error)

	// InstallationByID returns an installation by id.
	InstallationByID(ctx context.Context,
		id int64) (*github.Installation, error)

	// InstallationRepos lists repositories the installation token can
	// access.
	InstallationRepos(ctx context.Context) ([]*github.Repository, error)

	// UserByLogin returns a user by handle.
	UserByLogin(ctx context.Context, login string) (*github.User, error)
}

// Resolver determines the acting principal through an ordered chain of
// probes and caches the result for the lifetime of the process. The cache
// is explicit state owned by whoever constructs the resolver; there are no
// hidden package-level singletons.
type Resolver struct {
	api PlatformAPI

	// installationID is the id embedded in the auth credential, if any.
	// It is the last-resort signal for the installation probe.
	installationID fn.Option[int64]

	log *slog.Logger

	mu     sync.Mutex
	cached map[string]*Identity
}

// ResolverOption is a functional option for configuring a Resolver.
type ResolverOption func(*Resolver)

// WithEmbeddedInstallationID seeds the resolver with an installation id
// parsed out of the credential.
func WithEmbeddedInstallationID(id fn.Option[int64]) ResolverOption {
	return func(r *Resolver) {
		r.installationID = id
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver creates a resolver backed by the given platform API.
func NewResolver(api PlatformAPI, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		api:            api,
		installationID: fn.None[int64](),
		log:            slog.Default(),
		cached:         make(map[string]*Identity),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve determines the acting identity for the given repository. The
// first call performs the probe chain; subsequent calls for the same
// owner/repo pair return the cached identity without touching the network.
func (r *Resolver) Resolve(ctx context.Context, owner,
	repo string) (*Identity, error) {

	key := owner + "/" + repo

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.cached[key]; ok {
		return id, nil
	}

	// The probes are strictly ordered: exactly one auth shape is live in
	// any environment, so the first success wins and later probes are
	// never consulted. Probe failures degrade to the next strategy and
	// never escape this method.
	probes := []struct {
		name string
		run  func(context.Context, string, string) (*Identity, error)
	}{
		{"authenticated-user", r.probeUser},
		{"authenticated-app", r.probeApp},
		{"installation", r.probeInstallation},
	}

	for _, probe := range probes {
		id, err := probe.run(ctx, owner, repo)
		if err != nil {
			r.log.Debug("Identity probe failed",
				"probe", probe.name, "error", err)
			continue
		}

		r.log.Info("Resolved acting identity",
			"probe", probe.name, "kind", id.Kind.String(),
			"login", id.Login, "id", id.ID)

		r.cached[key] = id
		return id, nil
	}

	return nil, ErrUnresolved
}

// probeUser asks the platform "who am I" as a user. Only succeeds for
// personal-access-token auth.
func (r *Resolver) probeUser(ctx context.Context, _, _ string) (*Identity,
	error) {

	user, err := r.api.AuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}

	return &Identity{
		Kind:        KindUser,
		ID:          user.GetID(),
		Login:       user.GetLogin(),
		DisplayName: displayName(user.GetName(), user.GetLogin()),
	}, nil
}

// probeApp asks the platform "which application am I". Only succeeds for
// application-level auth, not installation-scoped tokens.
func (r *Resolver) probeApp(ctx context.Context, _, _ string) (*Identity,
	error) {

	app, err := r.api.AuthenticatedApp(ctx)
	if err != nil {
		return nil, err
	}

	return &Identity{
		Kind:        KindApp,
		ID:          app.GetID(),
		Login:       app.GetSlug(),
		DisplayName: displayName(app.GetName(), app.GetSlug()),
	}, nil
}

// probeInstallation resolves an installation for the repository and from it
// derives either the conventional "{app-slug}[bot]" account or, failing
// that, a synthetic identity built from the application itself.
func (r *Resolver) probeInstallation(ctx context.Context, owner,
	repo string) (*Identity, error) {

	inst, err := r.lookupInstallation(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	instInfo := &Installation{
		ID:         inst.GetID(),
		OwnerKind:  inst.GetTargetType(),
		OwnerID:    inst.GetAccount().GetID(),
		OwnerLogin: inst.GetAccount().GetLogin(),
		AppID:      inst.GetAppID(),
		AppSlug:    inst.GetAppSlug(),
	}

	// Try the conventional bot account first.
	botLogin := inst.GetAppSlug() + "[bot]"
	bot, err := r.api.UserByLogin(ctx, botLogin)
	if err == nil {
		return &Identity{
			Kind:         KindBot,
			ID:           bot.GetID(),
			Login:        bot.GetLogin(),
			DisplayName:  inst.GetAppSlug(),
			Installation: instInfo,
		}, nil
	}

	r.log.Debug("Bot account lookup failed, using app fallback",
		"bot_login", botLogin, "error", err)

	// Synthetic identity from the application's own id and slug.
	return &Identity{
		Kind:         KindApp,
		ID:           inst.GetAppID(),
		Login:        inst.GetAppSlug(),
		DisplayName:  inst.GetAppSlug(),
		Installation: instInfo,
	}, nil
}

// lookupInstallation tries the three installation signals in order: the
// repo-scoped lookup, the first repository accessible to the token, and
// finally an installation id embedded in the credential.
func (r *Resolver) lookupInstallation(ctx context.Context, owner,
	repo string) (*github.Installation, error) {

	inst, err := r.api.RepoInstallation(ctx, owner, repo)
	if err == nil {
		return inst, nil
	}
	r.log.Debug("Repo-scoped installation lookup failed", "error", err)

	repos, err := r.api.InstallationRepos(ctx)
	if err == nil && len(repos) > 0 {
		first := repos[0]
		inst, err = r.api.RepoInstallation(
			ctx, first.GetOwner().GetLogin(), first.GetName(),
		)
		if err == nil {
			return inst, nil
		}
		r.log.Debug("First accessible repo lookup failed",
			"repo", first.GetFullName(), "error", err)
	}

	var lookupErr error
	r.installationID.WhenSome(func(id int64) {
		inst, lookupErr = r.api.InstallationByID(ctx, id)
	})
	if inst != nil && lookupErr == nil {
		return inst, nil
	}

	return nil, fmt.Errorf("no installation found for %s/%s", owner, repo)
}

// displayName prefers the full name, falling back to the handle.
func displayName(name, login string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return login
}
