package reconcile

import (
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/roasbeef/prsentry/internal/identity"
)

// reviewStatePending is the platform's state for a review that was created
// but never submitted.
const reviewStatePending = "PENDING"

// isPending reports whether the review is still in the pending state.
func isPending(rv *github.PullRequestReview) bool {
	return strings.EqualFold(rv.GetState(), reviewStatePending)
}

// isBotAccount reports whether the review author is flagged as a bot
// service account.
func isBotAccount(u *github.User) bool {
	return strings.EqualFold(u.GetType(), "Bot")
}

// Attributable reports whether a pending review can be attributed to the
// acting identity, using a kind-specific rule:
//
//   - app identity: match by id, by login, or by the author being any
//     bot-flagged account. Broadest rule, since apps post through
//     bot-flagged accounts whose concrete id the app never sees.
//   - bot identity: match by login, or by the author being bot-flagged with
//     a login containing the identity's display-name fragment. The fragment
//     containment is a heuristic carried over from the original behavior;
//     two bot accounts sharing a naming fragment will cross-match.
//   - user identity: exact id match only.
func Attributable(id *identity.Identity,
	rv *github.PullRequestReview) bool {

	author := rv.GetUser()
	if author == nil {
		return false
	}

	switch id.Kind {
	case identity.KindApp:
		return author.GetID() == id.ID ||
			author.GetLogin() == id.Login ||
			isBotAccount(author)

	case identity.KindBot:
		if author.GetLogin() == id.Login {
			return true
		}
		fragment := strings.ToLower(id.DisplayName)
		return isBotAccount(author) && fragment != "" &&
			strings.Contains(
				strings.ToLower(author.GetLogin()), fragment,
			)

	case identity.KindUser:
		return author.GetID() == id.ID

	default:
		return false
	}
}
