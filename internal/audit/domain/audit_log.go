package domain

import "time"

// AuditLog represents one lifecycle audit event.
type AuditLog struct {
	ID        string
	UserID    string
	SessionID string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
