package platform

import (
	"context"
	"log/slog"

	"github.com/google/go-github/v75/github"
)

// Client is a thin authenticated accessor over the hosting platform's REST
// surface. It exposes exactly the operations the orchestration core needs;
// everything else stays behind the go-github SDK.
type Client struct {
	gh  *github.Client
	log *slog.Logger
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithBaseClient overrides the underlying go-github client. Used by tests
// to point the client at a stub server.
func WithBaseClient(gh *github.Client) Option {
	return func(c *Client) {
		c.gh = gh
	}
}

// NewClient creates a platform client authenticated with the given bearer
// credential.
func NewClient(cred Credential, opts ...Option) *Client {
	c := &Client{
		gh:  github.NewClient(nil).WithAuthToken(cred.Token),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AuthenticatedUser returns the user behind the current credential. This
// only succeeds for personal-access-token auth.
func (c *Client) AuthenticatedUser(ctx context.Context) (*github.User, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return nil, reqErr("get authenticated user", err)
	}

	return user, nil
}

// AuthenticatedApp returns the application behind the current credential.
// This only succeeds for application-level (JWT) auth, not for
// installation-scoped tokens.
func (c *Client) AuthenticatedApp(ctx context.Context) (*github.App, error) {
	app, _, err := c.gh.Apps.Get(ctx, "")
	if err != nil {
		return nil, reqErr("get authenticated app", err)
	}

	return app, nil
}

// RepoInstallation returns the app installation covering the given
// repository.
func (c *Client) RepoInstallation(ctx context.Context, owner,
	repo string) (*github.Installation, error) {

	inst, _, err := c.gh.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		return nil, reqErr("find repo installation", err)
	}

	return inst, nil
}

// InstallationByID returns an installation by its numeric id.
func (c *Client) InstallationByID(ctx context.Context,
	id int64) (*github.Installation, error) {

	inst, _, err := c.gh.Apps.GetInstallation(ctx, id)
	if err != nil {
		return nil, reqErr("get installation", err)
	}

	return inst, nil
}

// InstallationRepos lists the repositories accessible to the current
// installation token. Only the first page is needed by callers, which use
// the first accessible repository as a secondary identity signal.
func (c *Client) InstallationRepos(
	ctx context.Context) ([]*github.Repository, error) {

	repos, _, err := c.gh.Apps.ListRepos(ctx, &github.ListOptions{
		PerPage: 10,
	})
	if err != nil {
		return nil, reqErr("list installation repos", err)
	}

	return repos.Repositories, nil
}

// UserByLogin returns a user by its handle. Used to resolve conventional
// "{app-slug}[bot]" service accounts.
func (c *Client) UserByLogin(ctx context.Context,
	login string) (*github.User, error) {

	user, _, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return nil, reqErr("get user by login", err)
	}

	return user, nil
}

// PullRequest returns a PR by number.
func (c *Client) PullRequest(ctx context.Context, owner, repo string,
	number int) (*github.PullRequest, error) {

	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, reqErr("get pull request", err)
	}

	return pr, nil
}

// ListReviews returns every review attached to a PR, following pagination.
func (c *Client) ListReviews(ctx context.Context, owner, repo string,
	number int) ([]*github.PullRequestReview, error) {

	var all []*github.PullRequestReview
	opts := &github.ListOptions{PerPage: 100}

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(
			ctx, owner, repo, number, opts,
		)
		if err != nil {
			return nil, reqErr("list reviews", err)
		}

		all = append(all, reviews...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// DeletePendingReview deletes a review that is still in the pending state.
func (c *Client) DeletePendingReview(ctx context.Context, owner, repo string,
	number int, reviewID int64) error {

	_, _, err := c.gh.PullRequests.DeletePendingReview(
		ctx, owner, repo, number, reviewID,
	)
	if err != nil {
		return reqErr("delete pending review", err)
	}

	c.log.Debug("Deleted pending review",
		"review_id", reviewID, "pr", number)

	return nil
}
