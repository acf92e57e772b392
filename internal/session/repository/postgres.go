package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"session-lifecycle/internal/session/domain"
)

const sessionColumns = `id, user_id, device_fingerprint, device_label, ip_origin, active, created_at, last_activity_at, expires_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session get: %w", err)
	}
	return s, nil
}

// ListActiveByUser returns the user's active sessions, most recently active first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND active
		 ORDER BY last_activity_at DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("session list: %w", err)
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("session list scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateEvictingOldest inserts the session and deactivates over-cap sessions in
// one transaction. The user's active rows are locked first so two concurrent
// creates cannot both count a stale number of sessions. Eviction order is
// least recently active, ties broken by earliest creation.
func (r *PostgresRepository) CreateEvictingOldest(ctx context.Context, s *domain.Session, maxPerUser int) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("session create: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM sessions
		 WHERE user_id = $1 AND active AND expires_at > $2
		 ORDER BY last_activity_at ASC, created_at ASC
		 FOR UPDATE`, s.UserID, s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("session create: lock: %w", err)
	}
	var live []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("session create: scan: %w", err)
		}
		live = append(live, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session create: lock rows: %w", err)
	}

	var evicted []string
	if over := len(live) + 1 - maxPerUser; over > 0 {
		evicted = live[:over]
		for _, id := range evicted {
			if _, err := tx.ExecContext(ctx,
				`UPDATE sessions SET active = FALSE WHERE id = $1`, id); err != nil {
				return nil, fmt.Errorf("session create: evict %s: %w", id, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.DeviceFingerprint, s.DeviceLabel, s.IPOrigin,
		s.Active, s.CreatedAt, s.LastActivityAt, s.ExpiresAt); err != nil {
		return nil, fmt.Errorf("session create: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("session create: commit: %w", err)
	}
	return evicted, nil
}

// Deactivate marks the session with the given id as inactive.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET active = FALSE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("session deactivate: %w", err)
	}
	return nil
}

// DeactivateAllByUser deactivates all of the user's active sessions except exceptID.
func (r *PostgresRepository) DeactivateAllByUser(ctx context.Context, userID, exceptID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE sessions SET active = FALSE
		 WHERE user_id = $1 AND active AND id <> $2
		 RETURNING id`, userID, exceptID)
	if err != nil {
		return nil, fmt.Errorf("session deactivate all: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("session deactivate all scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TouchActivity sets the session's last-activity timestamp.
func (r *PostgresRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("session touch: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and returns the count.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("session reap: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.DeviceFingerprint, &s.DeviceLabel, &s.IPOrigin,
		&s.Active, &s.CreatedAt, &s.LastActivityAt, &s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
