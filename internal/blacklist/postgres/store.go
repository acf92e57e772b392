// Package postgres implements the blacklist on the relational store; the
// default backend, durable and reaped alongside the token tables.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"session-lifecycle/internal/blacklist"
)

type Store struct {
	db *sql.DB
}

// NewStore returns a blacklist store backed by the given db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add inserts the entry. Re-blacklisting an already listed hash is a no-op.
func (s *Store) Add(ctx context.Context, e *blacklist.Entry) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO token_blacklist (token_hash, token_kind, reason, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (token_hash) DO NOTHING`,
		e.TokenHash, string(e.TokenKind), e.Reason, e.ExpiresAt, e.CreatedAt); err != nil {
		return fmt.Errorf("blacklist add: %w", err)
	}
	return nil
}

// Contains reports whether the hash is listed and its entry has not lapsed.
// The expiry check makes stale rows harmless between reaper runs.
func (s *Store) Contains(ctx context.Context, tokenHash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM token_blacklist WHERE token_hash = $1 AND expires_at > $2`,
		tokenHash, time.Now().UTC()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blacklist contains: %w", err)
	}
	return true, nil
}

// DeleteExpired removes lapsed entries and returns the count.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM token_blacklist WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("blacklist reap: %w", err)
	}
	return res.RowsAffected()
}

// Close is a no-op; the db handle is owned by the caller.
func (s *Store) Close() error { return nil }
