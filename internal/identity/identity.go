package identity

// Kind enumerates the shapes an acting principal can take. Exactly one of
// the three auth shapes is live in any execution environment: a personal
// access token (user), an application-level JWT (app), or an
// installation-scoped token posting through a bot account.
type Kind uint8

const (
	// KindUser is a human user authenticated with a personal token.
	KindUser Kind = iota

	// KindApp is a registered application acting as itself.
	KindApp

	// KindBot is the service account an installed application posts
	// through, conventionally named "{app-slug}[bot]".
	KindBot
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindApp:
		return "app"
	case KindBot:
		return "bot"
	default:
		return "unknown"
	}
}

// Installation describes the app installation behind an app or bot
// identity. It is consulted by permission evaluation to apply the
// installation-owner self-review rule.
type Installation struct {
	// ID is the platform-assigned installation id.
	ID int64

	// OwnerKind is the account type the app is installed on, either
	// "Organization" or "User".
	OwnerKind string

	// OwnerID is the id of the installing account.
	OwnerID int64

	// OwnerLogin is the handle of the installing account.
	OwnerLogin string

	// AppID is the id of the installed application.
	AppID int64

	// AppSlug is the URL-safe name of the installed application.
	AppSlug string
}

// Identity is the acting principal the orchestration runs as. It is
// resolved at most once per process and immutable afterwards.
type Identity struct {
	// Kind tags which auth shape produced this identity.
	Kind Kind

	// ID is the platform-assigned numeric identifier of the principal.
	// For app identities this is the application id, otherwise a user
	// account id.
	ID int64

	// Login is the principal's handle.
	Login string

	// DisplayName is the human-readable name, used as a matching
	// fragment when attributing pending reviews to bot accounts.
	DisplayName string

	// Installation carries the installation backing an app or bot
	// identity. Nil for user identities, and may be nil for app
	// identities resolved through the application-level probe.
	Installation *Installation
}
