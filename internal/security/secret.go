package security

import (
	"crypto/rand"
	"encoding/base64"
)

// secretBytes is the entropy of an opaque refresh secret (256 bits).
const secretBytes = 32

// NewOpaqueSecret returns a high-entropy URL-safe secret for use as a raw
// refresh token. The raw value is returned to the caller exactly once;
// storage holds only HashToken of it.
func NewOpaqueSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
