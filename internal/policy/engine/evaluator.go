// Package engine decides the blast radius of a compromise response. When a
// revoked refresh token is replayed, the policy answers one question: revoke
// only the affected session's chain, or every session the user holds.
package engine

import "context"

// ReplayInput is the evaluation input for a detected replay.
type ReplayInput struct {
	// EscalateAccountWide is the deployment-level escalation switch.
	EscalateAccountWide bool
	// SessionFingerprint is the device fingerprint recorded on the session.
	SessionFingerprint string
	// RequestFingerprint is the device fingerprint of the replaying request.
	RequestFingerprint string
}

// ReplayResult is the policy decision.
type ReplayResult struct {
	// RevokeUserSessions escalates the cascade from the replayed session's
	// chain to all of the user's sessions.
	RevokeUserSessions bool
}

// ReplayEvaluator evaluates the replay-escalation policy.
type ReplayEvaluator interface {
	EvaluateReplay(ctx context.Context, in ReplayInput) (ReplayResult, error)
	// HealthCheck verifies the policy compiles and evaluates. Run at startup.
	HealthCheck(ctx context.Context) error
}
