package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"session-lifecycle/internal/audit/domain"
	auditrepo "session-lifecycle/internal/audit/repository"
)

// Lifecycle actions recorded by the manager.
const (
	ActionIssue          = "issue"
	ActionRefresh        = "refresh"
	ActionReplayDetected = "replay_detected"
	ActionRevoke         = "revoke"
	ActionRevokeAll      = "revoke_all"
	ActionEvict          = "evict"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action. Used by the
// lifecycle manager's code paths. LogEvent is best-effort: failures are logged
// and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, sessionID, action, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, sessionID, action, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		Action:    action,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s for user %s: %v", action, userID, err)
	}
}

// History returns the user's audit entries, newest first. Unlike LogEvent this
// is a plain read: repository errors are returned to the caller.
func (l *Logger) History(ctx context.Context, userID string, limit, offset int32) ([]*domain.AuditLog, error) {
	if l == nil || l.repo == nil {
		return nil, nil
	}
	return l.repo.ListByUser(ctx, userID, limit, offset)
}
