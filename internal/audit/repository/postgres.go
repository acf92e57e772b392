package repository

import (
	"context"
	"database/sql"
	"fmt"

	"session-lifecycle/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit entry.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, session_id, action, ip, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.SessionID, a.Action, a.IP, a.Metadata, a.CreatedAt); err != nil {
		return fmt.Errorf("audit create: %w", err)
	}
	return nil
}

// ListByUser returns the user's audit entries, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, session_id, action, ip, metadata, created_at
		 FROM audit_logs WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit list: %w", err)
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.UserID, &a.SessionID, &a.Action, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit list scan: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
