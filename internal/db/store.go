package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/roasbeef/prsentry/internal/session"
)

// Store is the session ledger: a small SQLite-backed history of review
// session runs. It implements session.Ledger.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// SessionEntry is one row of session history as read back from the ledger.
type SessionEntry struct {
	RunID             string
	RepoOwner         string
	RepoName          string
	PRNumber          int
	IdentityKind      string
	IdentityLogin     string
	CanRequestChanges bool
	Status            string
	ExitCode          sql.NullInt64
	StartedAt         time.Time
	FinishedAt        sql.NullTime
}

// Open opens the ledger at the given path, applying any pending schema
// migrations.
func Open(dbPath string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	if err := applyMigrations(db, log); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordStart persists a new session record.
//
// NOTE: this is part of the session.Ledger interface.
func (s *Store) RecordStart(ctx context.Context,
	rec *session.SessionRecord) error {

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			run_id, repo_owner, repo_name, pr_number,
			identity_kind, identity_login, can_request_changes,
			started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.RepoOwner, rec.RepoName, rec.PRNumber,
		rec.IdentityKind, rec.IdentityLogin, rec.CanRequestChanges,
		rec.StartedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// RecordOutcome finalizes a session record with its outcome.
//
// NOTE: this is part of the session.Ledger interface.
func (s *Store) RecordOutcome(ctx context.Context, runID string,
	outcome session.Outcome, finishedAt time.Time) error {

	exitCode := sql.NullInt64{}
	outcome.ExitCode.WhenSome(func(code int) {
		exitCode = sql.NullInt64{Int64: int64(code), Valid: true}
	})

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, exit_code = ?, finished_at = ?
		WHERE run_id = ?`,
		outcome.Status.String(), exitCode, finishedAt.Unix(), runID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no session with run id %s", runID)
	}

	return nil
}

// ListSessions returns the most recent session runs, newest first.
func (s *Store) ListSessions(ctx context.Context,
	limit int) ([]SessionEntry, error) {

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, repo_owner, repo_name, pr_number,
			identity_kind, identity_login, can_request_changes,
			COALESCE(status, ''), exit_code,
			started_at, finished_at
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var entries []SessionEntry
	for rows.Next() {
		var (
			entry      SessionEntry
			startedAt  int64
			finishedAt sql.NullInt64
		)

		err := rows.Scan(
			&entry.RunID, &entry.RepoOwner, &entry.RepoName,
			&entry.PRNumber, &entry.IdentityKind,
			&entry.IdentityLogin, &entry.CanRequestChanges,
			&entry.Status, &entry.ExitCode, &startedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		entry.StartedAt = time.Unix(startedAt, 0)
		if finishedAt.Valid {
			entry.FinishedAt = sql.NullTime{
				Time:  time.Unix(finishedAt.Int64, 0),
				Valid: true,
			}
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return entries, nil
}
