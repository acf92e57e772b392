package domain

import "time"

// Session represents a device login instance spanning many access-token renewals.
type Session struct {
	ID                string
	UserID            string
	DeviceFingerprint string
	DeviceLabel       string
	IPOrigin          string
	Active            bool
	CreatedAt         time.Time
	LastActivityAt    time.Time
	ExpiresAt         time.Time
}

// Live reports whether the session can still renew tokens at the given time.
func (s *Session) Live(now time.Time) bool {
	return s != nil && s.Active && now.Before(s.ExpiresAt)
}
