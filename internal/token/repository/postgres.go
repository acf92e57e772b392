package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"session-lifecycle/internal/token/domain"
)

const tokenColumns = `token_hash, user_id, session_id, device_fingerprint, issued_at, last_used_at, expires_at, rotated_from, revoked`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a refresh-token repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByHash returns the token record for the hash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	t, err := scanToken(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("token get: %w", err)
	}
	return t, nil
}

// Create persists the token record.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+tokenColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)`,
		t.TokenHash, t.UserID, t.SessionID, t.DeviceFingerprint,
		t.IssuedAt, nullTime(t.LastUsedAt), t.ExpiresAt, t.RotatedFrom, t.Revoked); err != nil {
		return fmt.Errorf("token create: %w", err)
	}
	return nil
}

// Rotate inserts the new token, then revokes the old one conditionally, all in
// one transaction. Insert-new-then-revoke-old ordering means an aborted
// transaction never leaves the session without a live token. The conditional
// update makes concurrent rotations of the same token serialize: exactly one
// commits, the rest get ErrRotationConflict.
func (r *PostgresRepository) Rotate(ctx context.Context, oldHash string, usedAt time.Time, newToken *domain.RefreshToken) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("token rotate: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+tokenColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)`,
		newToken.TokenHash, newToken.UserID, newToken.SessionID, newToken.DeviceFingerprint,
		newToken.IssuedAt, nullTime(newToken.LastUsedAt), newToken.ExpiresAt,
		newToken.RotatedFrom, newToken.Revoked); err != nil {
		return fmt.Errorf("token rotate: insert: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, last_used_at = $2
		 WHERE token_hash = $1 AND revoked = FALSE`, oldHash, usedAt)
	if err != nil {
		return fmt.Errorf("token rotate: retire: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("token rotate: rows: %w", err)
	}
	if n == 0 {
		return ErrRotationConflict
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("token rotate: commit: %w", err)
	}
	return nil
}

// RevokeAllBySession revokes every token in the session's rotation chain.
func (r *PostgresRepository) RevokeAllBySession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("token revoke session: %w", err)
	}
	return nil
}

// DeleteByHash removes the token record outright. Used when a presented token
// turns out to be past its expiry.
func (r *PostgresRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("token delete: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens past their expiry and returns the count.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("token reap: %w", err)
	}
	return res.RowsAffected()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	var lastUsed sql.NullTime
	var rotatedFrom sql.NullString
	err := row.Scan(&t.TokenHash, &t.UserID, &t.SessionID, &t.DeviceFingerprint,
		&t.IssuedAt, &lastUsed, &t.ExpiresAt, &rotatedFrom, &t.Revoked)
	if err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t.LastUsedAt = &lastUsed.Time
	}
	if rotatedFrom.Valid {
		t.RotatedFrom = rotatedFrom.String
	}
	return &t, nil
}
