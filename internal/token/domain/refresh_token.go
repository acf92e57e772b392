package domain

import "time"

// RefreshToken is the persisted record of an opaque refresh secret.
// Only the SHA-256 hash of the secret is stored; the raw value leaves the
// system exactly once, at issuance or rotation.
type RefreshToken struct {
	TokenHash         string
	UserID            string
	SessionID         string
	DeviceFingerprint string
	IssuedAt          time.Time
	LastUsedAt        *time.Time
	ExpiresAt         time.Time
	// RotatedFrom references the hash of the prior token in the rotation
	// chain; empty for the chain root created at issuance.
	RotatedFrom string
	Revoked     bool
}

// Live reports whether the token can still be exchanged at the given time.
func (t *RefreshToken) Live(now time.Time) bool {
	return t != nil && !t.Revoked && now.Before(t.ExpiresAt)
}
