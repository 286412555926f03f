package platform

import (
	"strconv"
	"strings"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Credential is a parsed bearer credential for the hosting platform. Tokens
// minted for installation-scoped runs may carry the installation id as a
// trailing "#<digits>" fragment; the fragment is stripped before the token
// is used for authentication.
type Credential struct {
	// Token is the bare bearer token, with any fragment removed.
	Token string

	// InstallationID is the installation id embedded in the credential,
	// if any. This is only consulted as a last-resort signal during
	// identity resolution.
	InstallationID fn.Option[int64]
}

// ParseCredential splits a raw credential into its token and optional
// embedded installation id.
func ParseCredential(raw string) Credential {
	token, frag, found := strings.Cut(raw, "#")
	if !found {
		return Credential{Token: raw, InstallationID: fn.None[int64]()}
	}

	id, err := strconv.ParseInt(frag, 10, 64)
	if err != nil || id <= 0 {
		// A malformed fragment is treated as part of the token; the
		// platform will reject it if it truly is garbage.
		return Credential{Token: raw, InstallationID: fn.None[int64]()}
	}

	return Credential{Token: token, InstallationID: fn.Some(id)}
}
