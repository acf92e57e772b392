// Package lifecycle orchestrates issuance, rotation, validation, and
// revocation of access/refresh credentials bound to device sessions.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"session-lifecycle/internal/audit"
	"session-lifecycle/internal/blacklist"
	"session-lifecycle/internal/event"
	"session-lifecycle/internal/fingerprint"
	"session-lifecycle/internal/policy/engine"
	"session-lifecycle/internal/security"
	sessiondomain "session-lifecycle/internal/session/domain"
	tokendomain "session-lifecycle/internal/token/domain"
	tokenrepo "session-lifecycle/internal/token/repository"
)

// Sentinel errors; handlers map them to HTTP statuses. ErrReplayDetected and
// ErrSessionInactive must never be distinguishable from ErrTokenInvalid in
// anything sent to a caller.
var (
	ErrTokenInvalid     = errors.New("invalid token or session")
	ErrTokenExpired     = errors.New("token expired")
	ErrSessionInactive  = errors.New("session inactive")
	ErrReplayDetected   = errors.New("refresh token replay detected")
	ErrStoreUnavailable = errors.New("storage unavailable")
)

// TokenPair is the outcome of Issue or Refresh: the only moment raw secrets
// exist outside the caller's hands.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

// DeviceInfo is the per-request metadata the fingerprinter consumes.
type DeviceInfo struct {
	UserAgent string
	IPAddress string
}

// SessionRepo is the minimal session repository needed by the manager.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	CreateEvictingOldest(ctx context.Context, s *sessiondomain.Session, maxPerUser int) ([]string, error)
	Deactivate(ctx context.Context, id string) error
	DeactivateAllByUser(ctx context.Context, userID, exceptID string) ([]string, error)
	TouchActivity(ctx context.Context, id string, at time.Time) error
}

// TokenRepo is the minimal refresh-token repository needed by the manager.
type TokenRepo interface {
	GetByHash(ctx context.Context, tokenHash string) (*tokendomain.RefreshToken, error)
	Create(ctx context.Context, t *tokendomain.RefreshToken) error
	Rotate(ctx context.Context, oldHash string, usedAt time.Time, newToken *tokendomain.RefreshToken) error
	RevokeAllBySession(ctx context.Context, sessionID string) error
	DeleteByHash(ctx context.Context, tokenHash string) error
}

// Blacklist is the denylist surface needed by the manager.
type Blacklist interface {
	Add(ctx context.Context, e *blacklist.Entry) error
	Contains(ctx context.Context, tokenHash string) (bool, error)
}

// Manager is the lifecycle state machine. It is the sole writer of the
// session, token, and blacklist stores.
type Manager struct {
	sessions SessionRepo
	tokens   TokenRepo
	denylist Blacklist
	provider *security.TokenProvider
	policy   engine.ReplayEvaluator
	auditLog audit.AuditLogger
	events   event.Emitter
	metrics  *managerMetrics

	refreshTTL          time.Duration
	sessionTTL          time.Duration
	maxSessionsPerUser  int
	escalateAccountWide bool

	nowF func() time.Time
}

// NewManager returns a Manager with the given dependencies. policy, auditLog,
// and events may be nil; replay handling then stays session-only unless
// escalateAccountWide is set.
func NewManager(
	sessions SessionRepo,
	tokens TokenRepo,
	denylist Blacklist,
	provider *security.TokenProvider,
	policy engine.ReplayEvaluator,
	auditLog audit.AuditLogger,
	events event.Emitter,
	refreshTTL, sessionTTL time.Duration,
	maxSessionsPerUser int,
	escalateAccountWide bool,
) *Manager {
	return &Manager{
		sessions:            sessions,
		tokens:              tokens,
		denylist:            denylist,
		provider:            provider,
		policy:              policy,
		auditLog:            auditLog,
		events:              events,
		metrics:             newManagerMetrics(),
		refreshTTL:          refreshTTL,
		sessionTTL:          sessionTTL,
		maxSessionsPerUser:  maxSessionsPerUser,
		escalateAccountWide: escalateAccountWide,
		nowF:                func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a session for an externally verified user identity and mints
// the first access/refresh pair. If the user is at the session cap, the least
// recently active session is evicted and its refresh chain revoked.
func (m *Manager) Issue(ctx context.Context, userID string, dev DeviceInfo) (*TokenPair, error) {
	if userID == "" {
		return nil, ErrTokenInvalid
	}
	now := m.nowF()
	fp := fingerprint.Derive(dev.UserAgent, dev.IPAddress)

	sess := &sessiondomain.Session{
		ID:                uuid.New().String(),
		UserID:            userID,
		DeviceFingerprint: fp.ID(),
		DeviceLabel:       fp.Label(),
		IPOrigin:          fp.NetOrigin,
		Active:            true,
		CreatedAt:         now,
		LastActivityAt:    now,
		ExpiresAt:         now.Add(m.sessionTTL),
	}
	evicted, err := m.sessions.CreateEvictingOldest(ctx, sess, m.maxSessionsPerUser)
	if err != nil {
		return nil, storeErr(err)
	}
	for _, id := range evicted {
		// The evicted session's access tokens die on their own short TTL;
		// revoking the refresh chain cuts off its ability to renew.
		if err := m.tokens.RevokeAllBySession(ctx, id); err != nil {
			return nil, storeErr(err)
		}
		m.metrics.evicted.Add(ctx, 1)
		if m.auditLog != nil {
			m.auditLog.LogEvent(ctx, userID, id, audit.ActionEvict, "session cap exceeded")
		}
		event.EmitAsync(m.events, ctx, m.newEvent(audit.ActionEvict, userID, id, nil))
	}

	secret, err := security.NewOpaqueSecret()
	if err != nil {
		return nil, fmt.Errorf("issue: secret: %w", err)
	}
	refreshExp := now.Add(m.refreshTTL)
	rec := &tokendomain.RefreshToken{
		TokenHash:         security.HashToken(secret),
		UserID:            userID,
		SessionID:         sess.ID,
		DeviceFingerprint: fp.ID(),
		IssuedAt:          now,
		ExpiresAt:         refreshExp,
	}
	if err := m.tokens.Create(ctx, rec); err != nil {
		return nil, storeErr(err)
	}

	access, accessExp, err := m.provider.IssueAccess(userID, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("issue: access token: %w", err)
	}

	m.metrics.issued.Add(ctx, 1)
	if m.auditLog != nil {
		m.auditLog.LogEvent(ctx, userID, sess.ID, audit.ActionIssue, fp.Label())
	}
	event.EmitAsync(m.events, ctx, m.newEvent(audit.ActionIssue, userID, sess.ID, map[string]string{"device": fp.Label()}))

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     secret,
		RefreshExpiresAt: refreshExp,
		SessionID:        sess.ID,
	}, nil
}

// Refresh exchanges a live refresh token for a rotated pair. A revoked token
// presented here means replay: the session and its whole rotation chain are
// revoked and the caller gets ErrReplayDetected (collapsed to a generic
// invalid-credential response at the boundary).
func (m *Manager) Refresh(ctx context.Context, rawRefreshToken, sessionID string, dev DeviceInfo) (*TokenPair, error) {
	if rawRefreshToken == "" || sessionID == "" {
		return nil, ErrTokenInvalid
	}
	now := m.nowF()
	rec, err := m.tokens.GetByHash(ctx, security.HashToken(rawRefreshToken))
	if err != nil {
		return nil, storeErr(err)
	}
	if rec == nil || rec.SessionID != sessionID {
		return nil, ErrTokenInvalid
	}
	if now.After(rec.ExpiresAt) {
		// Already dead by its own clock; drop the row rather than wait for the reaper.
		if err := m.tokens.DeleteByHash(ctx, rec.TokenHash); err != nil {
			return nil, storeErr(err)
		}
		return nil, ErrTokenExpired
	}
	sess, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if sess == nil {
		return nil, ErrTokenInvalid
	}
	if rec.Revoked {
		// Reuse of a retired token. Against a live session this is theft
		// evidence and triggers the cascade; against an already dead session
		// it carries no new information, the state machine is fail-closed.
		if sess.Live(now) {
			return nil, m.handleReplay(ctx, rec, dev)
		}
		return nil, ErrSessionInactive
	}
	if !sess.Live(now) {
		return nil, ErrSessionInactive
	}

	secret, err := security.NewOpaqueSecret()
	if err != nil {
		return nil, fmt.Errorf("refresh: secret: %w", err)
	}
	refreshExp := now.Add(m.refreshTTL)
	next := &tokendomain.RefreshToken{
		TokenHash:         security.HashToken(secret),
		UserID:            rec.UserID,
		SessionID:         sessionID,
		DeviceFingerprint: fingerprint.Derive(dev.UserAgent, dev.IPAddress).ID(),
		IssuedAt:          now,
		ExpiresAt:         refreshExp,
		RotatedFrom:       rec.TokenHash,
	}
	if err := m.tokens.Rotate(ctx, rec.TokenHash, now, next); err != nil {
		if errors.Is(err, tokenrepo.ErrRotationConflict) {
			// A concurrent rotation won the race on this exact token; the
			// loser is indistinguishable from a replay and must not succeed.
			return nil, m.handleReplay(ctx, rec, dev)
		}
		return nil, storeErr(err)
	}
	if err := m.sessions.TouchActivity(ctx, sessionID, now); err != nil {
		log.Printf("lifecycle: touch activity for %s: %v", sessionID, err)
	}

	access, accessExp, err := m.provider.IssueAccess(rec.UserID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("refresh: access token: %w", err)
	}

	m.metrics.rotated.Add(ctx, 1)
	if m.auditLog != nil {
		m.auditLog.LogEvent(ctx, rec.UserID, sessionID, audit.ActionRefresh, "")
	}
	event.EmitAsync(m.events, ctx, m.newEvent(audit.ActionRefresh, rec.UserID, sessionID, nil))

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     secret,
		RefreshExpiresAt: refreshExp,
		SessionID:        sessionID,
	}, nil
}

// handleReplay is the fail-closed compromise response: revoke the session and
// its entire rotation chain, optionally escalating to every session of the
// user per policy. The legitimate owner must re-authenticate.
func (m *Manager) handleReplay(ctx context.Context, rec *tokendomain.RefreshToken, dev DeviceInfo) error {
	escalate := m.escalateAccountWide
	if m.policy != nil {
		res, err := m.policy.EvaluateReplay(ctx, engine.ReplayInput{
			EscalateAccountWide: m.escalateAccountWide,
			SessionFingerprint:  rec.DeviceFingerprint,
			RequestFingerprint:  fingerprint.Derive(dev.UserAgent, dev.IPAddress).ID(),
		})
		if err != nil {
			log.Printf("lifecycle: replay policy: %v", err)
		}
		escalate = res.RevokeUserSessions
	}

	if err := m.tokens.RevokeAllBySession(ctx, rec.SessionID); err != nil {
		return storeErr(err)
	}
	if err := m.sessions.Deactivate(ctx, rec.SessionID); err != nil {
		return storeErr(err)
	}
	if escalate {
		ids, err := m.sessions.DeactivateAllByUser(ctx, rec.UserID, "")
		if err != nil {
			return storeErr(err)
		}
		for _, id := range ids {
			if err := m.tokens.RevokeAllBySession(ctx, id); err != nil {
				return storeErr(err)
			}
		}
	}

	m.metrics.replays.Add(ctx, 1)
	if m.auditLog != nil {
		scope := "session"
		if escalate {
			scope = "account"
		}
		m.auditLog.LogEvent(ctx, rec.UserID, rec.SessionID, audit.ActionReplayDetected, "scope="+scope)
	}
	event.EmitAsync(m.events, ctx, m.newEvent(audit.ActionReplayDetected, rec.UserID, rec.SessionID, map[string]string{
		"escalated": fmt.Sprintf("%t", escalate),
	}))
	return ErrReplayDetected
}

// Revoke deactivates one session and revokes its refresh chain. Access tokens
// already in the wild stay cryptographically valid until their short expiry;
// callers needing immediate effect also call BlacklistAccessToken.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	sess, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return storeErr(err)
	}
	if sess == nil {
		return ErrTokenInvalid
	}
	if err := m.sessions.Deactivate(ctx, sessionID); err != nil {
		return storeErr(err)
	}
	if err := m.tokens.RevokeAllBySession(ctx, sessionID); err != nil {
		return storeErr(err)
	}
	m.metrics.revoked.Add(ctx, 1)
	if m.auditLog != nil {
		m.auditLog.LogEvent(ctx, sess.UserID, sessionID, audit.ActionRevoke, "")
	}
	event.EmitAsync(m.events, ctx, m.newEvent(audit.ActionRevoke, sess.UserID, sessionID, nil))
	return nil
}

// RevokeAll deactivates every active session of the user except
// exceptSessionID (pass "" for all), revoking each session's refresh chain.
// Returns how many sessions were revoked.
func (m *Manager) RevokeAll(ctx context.Context, userID, exceptSessionID string) (int, error) {
	ids, err := m.sessions.DeactivateAllByUser(ctx, userID, exceptSessionID)
	if err != nil {
		return 0, storeErr(err)
	}
	for _, id := range ids {
		if err := m.tokens.RevokeAllBySession(ctx, id); err != nil {
			return 0, storeErr(err)
		}
	}
	m.metrics.revoked.Add(ctx, int64(len(ids)))
	if m.auditLog != nil {
		m.auditLog.LogEvent(ctx, userID, exceptSessionID, audit.ActionRevokeAll, fmt.Sprintf("revoked=%d", len(ids)))
	}
	event.EmitAsync(m.events, ctx, m.newEvent(audit.ActionRevokeAll, userID, exceptSessionID, map[string]string{
		"revoked": fmt.Sprintf("%d", len(ids)),
	}))
	return len(ids), nil
}

// ValidateAccess verifies an access token statelessly (signature, expiry,
// issuer, audience), then checks the denylist. The denylist lookup is the only
// storage touch and is O(1) by token hash.
func (m *Manager) ValidateAccess(ctx context.Context, rawAccessToken string) (*security.AccessClaims, error) {
	claims, err := m.provider.ValidateAccess(rawAccessToken)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	listed, err := m.denylist.Contains(ctx, security.HashToken(rawAccessToken))
	if err != nil {
		return nil, storeErr(err)
	}
	if listed {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// BlacklistAccessToken denylists a still-valid access token so revocation
// takes effect before its natural expiry (explicit logout). Tokens that are
// already invalid or expired are a no-op.
func (m *Manager) BlacklistAccessToken(ctx context.Context, rawAccessToken, reason string) error {
	claims, err := m.provider.ValidateAccess(rawAccessToken)
	if err != nil {
		return nil
	}
	entry := &blacklist.Entry{
		TokenHash: security.HashToken(rawAccessToken),
		TokenKind: blacklist.KindAccess,
		Reason:    reason,
		ExpiresAt: claims.ExpiresAt.Time,
		CreatedAt: m.nowF(),
	}
	if err := m.denylist.Add(ctx, entry); err != nil {
		return storeErr(err)
	}
	return nil
}

func (m *Manager) newEvent(action, userID, sessionID string, metadata map[string]string) *event.Event {
	return &event.Event{
		ID:        uuid.New().String(),
		Action:    action,
		UserID:    userID,
		SessionID: sessionID,
		At:        m.nowF(),
		Metadata:  metadata,
	}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
