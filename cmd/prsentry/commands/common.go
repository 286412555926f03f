package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roasbeef/prsentry/internal/db"
	"github.com/roasbeef/prsentry/internal/identity"
	"github.com/roasbeef/prsentry/internal/platform"
	"github.com/spf13/viper"
)

// newPlatformClient builds the authenticated platform client and the
// identity resolver from the configured credential.
func newPlatformClient() (*platform.Client, *identity.Resolver, error) {
	raw := viper.GetString("github.token")
	if raw == "" {
		return nil, nil, fmt.Errorf("no platform credential " +
			"configured; set GITHUB_TOKEN or github.token")
	}

	cred := platform.ParseCredential(raw)
	client := platform.NewClient(cred)

	resolver := identity.NewResolver(
		client,
		identity.WithEmbeddedInstallationID(cred.InstallationID),
	)

	return client, resolver, nil
}

// splitRepo parses an "owner/name" repository reference.
func splitRepo(ref string) (string, string, error) {
	owner, name, found := strings.Cut(ref, "/")
	if !found || owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected "+
			"owner/name", ref)
	}

	return owner, name, nil
}

// openLedger opens the session ledger, best-effort. A nil store means
// session history is disabled for this run.
func openLedger(log *slog.Logger) *db.Store {
	dbPath := viper.GetString("db_path")
	if dbPath == "" {
		var err error
		dbPath, err = db.DefaultDBPath()
		if err != nil {
			log.Warn("Session ledger disabled", "error", err)
			return nil
		}
	}

	store, err := db.Open(dbPath, log)
	if err != nil {
		log.Warn("Session ledger disabled", "error", err)
		return nil
	}

	return store
}
