package lifecycle

import (
	"context"
	"errors"
	"time"
)

// ErrNotSessionOwner is returned when a session exists but belongs to someone
// else. Handlers must collapse it to the same response as an unknown session.
var ErrNotSessionOwner = errors.New("session does not belong to user")

// SessionSummary is the display-safe view of a session exposed to its owner.
// Raw fingerprints are redacted to the label.
type SessionSummary struct {
	SessionID      string    `json:"session_id"`
	DeviceLabel    string    `json:"device_label"`
	IPOrigin       string    `json:"ip_origin"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	Current        bool      `json:"current"`
}

// Admin exposes read/revoke operations to the authenticated session owner.
// The ownership check lives here, not in the Manager: the Manager trusts its
// callers, this API does not.
type Admin struct {
	sessions SessionRepo
	manager  *Manager
}

// NewAdmin returns the owner-facing session admin API.
func NewAdmin(sessions SessionRepo, manager *Manager) *Admin {
	return &Admin{sessions: sessions, manager: manager}
}

// ListSessions returns the user's active sessions, most recently active first.
// currentSessionID marks which entry is the caller's own.
func (a *Admin) ListSessions(ctx context.Context, userID, currentSessionID string) ([]SessionSummary, error) {
	list, err := a.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]SessionSummary, 0, len(list))
	for _, s := range list {
		out = append(out, SessionSummary{
			SessionID:      s.ID,
			DeviceLabel:    s.DeviceLabel,
			IPOrigin:       s.IPOrigin,
			CreatedAt:      s.CreatedAt,
			LastActivityAt: s.LastActivityAt,
			Current:        s.ID == currentSessionID,
		})
	}
	return out, nil
}

// RevokeOne revokes a single session after verifying it belongs to userID.
func (a *Admin) RevokeOne(ctx context.Context, userID, sessionID string) error {
	sess, err := a.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return storeErr(err)
	}
	if sess == nil {
		return ErrTokenInvalid
	}
	if sess.UserID != userID {
		return ErrNotSessionOwner
	}
	return a.manager.Revoke(ctx, sessionID)
}

// RevokeAllButCurrent revokes every session of the user except the one the
// caller is using. Returns how many were revoked.
func (a *Admin) RevokeAllButCurrent(ctx context.Context, userID, currentSessionID string) (int, error) {
	return a.manager.RevokeAll(ctx, userID, currentSessionID)
}
