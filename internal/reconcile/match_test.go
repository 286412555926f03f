package reconcile

import (
	"strings"
	"testing"

	"github.com/google/go-github/v75/github"
	"github.com/roasbeef/prsentry/internal/identity"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// genReview produces a review with an arbitrary author shape.
func genReview(t *rapid.T) *github.PullRequestReview {
	return &github.PullRequestReview{
		ID: github.Ptr(rapid.Int64Range(1, 1<<40).Draw(t, "review_id")),
		State: github.Ptr(rapid.SampledFrom([]string{
			"PENDING", "pending", "APPROVED", "CHANGES_REQUESTED",
			"COMMENTED", "DISMISSED",
		}).Draw(t, "state")),
		User: &github.User{
			ID: github.Ptr(
				rapid.Int64Range(1, 1<<40).Draw(t, "author_id"),
			),
			Login: github.Ptr(rapid.StringMatching(
				`[a-z][a-z0-9-]{0,20}(\[bot\])?`,
			).Draw(t, "author_login")),
			Type: github.Ptr(rapid.SampledFrom(
				[]string{"User", "Bot", "Organization"},
			).Draw(t, "author_type")),
		},
	}
}

// TestAttributableUserExactID asserts a user identity never matches a review
// authored by a different account id, regardless of login or bot flags.
func TestAttributableUserExactID(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := &identity.Identity{
			Kind:  identity.KindUser,
			ID:    rapid.Int64Range(1, 1<<40).Draw(rt, "id"),
			Login: rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "login"),
		}
		rv := genReview(rt)

		got := Attributable(id, rv)
		want := rv.GetUser().GetID() == id.ID
		if got != want {
			rt.Fatalf("user attribution mismatch: got %v, want %v",
				got, want)
		}
	})
}

// TestAttributableAppCoversBots asserts an app identity always claims
// bot-flagged authors.
func TestAttributableAppCoversBots(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		id := &identity.Identity{
			Kind:  identity.KindApp,
			ID:    rapid.Int64Range(1, 1<<40).Draw(rt, "id"),
			Login: rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "login"),
		}
		rv := genReview(rt)

		if isBotAccount(rv.GetUser()) && !Attributable(id, rv) {
			rt.Fatalf("app identity failed to claim bot author %q",
				rv.GetUser().GetLogin())
		}
	})
}

// TestAttributableNilAuthor verifies a review with no author never matches.
func TestAttributableNilAuthor(t *testing.T) {
	rv := &github.PullRequestReview{
		ID:    github.Ptr(int64(1)),
		State: github.Ptr("PENDING"),
	}

	for _, kind := range []identity.Kind{
		identity.KindUser, identity.KindApp, identity.KindBot,
	} {
		id := &identity.Identity{Kind: kind, ID: 1, Login: "x"}
		require.False(t, Attributable(id, rv))
	}
}

// TestIsPendingCaseInsensitive verifies state matching ignores case.
func TestIsPendingCaseInsensitive(t *testing.T) {
	for _, state := range []string{"PENDING", "pending", "Pending"} {
		rv := &github.PullRequestReview{State: github.Ptr(state)}
		require.True(t, isPending(rv), "state %q", state)
	}

	rv := &github.PullRequestReview{State: github.Ptr("APPROVED")}
	require.False(t, isPending(rv))
	require.False(t, isPending(&github.PullRequestReview{}))
}

// TestAttributableBotFragmentIsLowercased verifies the fragment heuristic
// compares case-insensitively in both directions.
func TestAttributableBotFragmentIsLowercased(t *testing.T) {
	id := &identity.Identity{
		Kind:        identity.KindBot,
		ID:          5005,
		Login:       "sentry-review[bot]",
		DisplayName: "Sentry-Review",
	}
	rv := &github.PullRequestReview{
		ID:    github.Ptr(int64(1)),
		State: github.Ptr("PENDING"),
		User: &github.User{
			ID:    github.Ptr(int64(9009)),
			Login: github.Ptr("SENTRY-REVIEW-DEV[bot]"),
			Type:  github.Ptr("Bot"),
		},
	}

	require.True(t, Attributable(id, rv))

	// A non-bot author with a matching login fragment must not match.
	rv.User.Type = github.Ptr("User")
	require.False(t, Attributable(id, rv))
	require.False(t, strings.EqualFold(rv.GetUser().GetLogin(), id.Login))
}
