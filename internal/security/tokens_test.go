package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidateAccess(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	userID, sessionID := "u1", "s1"

	access, exp, err := p.IssueAccess(userID, sessionID)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" {
		t.Fatal("access token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	claims, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.UserID() != userID || claims.SessionID != sessionID {
		t.Errorf("ValidateAccess: got userID=%q sessionID=%q", claims.UserID(), claims.SessionID)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.Equal(exp.Truncate(time.Second)) {
		t.Errorf("ValidateAccess: expiry claim %v, issued expiry %v", claims.ExpiresAt, exp)
	}
}

func TestTokenProvider_ValidateAccessInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	if _, err := p.ValidateAccess("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccess invalid token: want ErrInvalidToken, got %v", err)
	}
	if _, err := p.ValidateAccess(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccess empty token: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccessExpired(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	p := NewTokenProvider(signer, pub, "test-issuer", "test-audience", -1*time.Minute)

	access, _, err := p.IssueAccess("u1", "s1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(access); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("ValidateAccess expired token: want ErrExpiredToken, got %v", err)
	}
}

func TestTokenProvider_ValidateAccessWrongIssuer(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	issuing := NewTokenProvider(signer, pub, "other-issuer", "test-audience", 15*time.Minute)
	validating := NewTokenProvider(signer, pub, "test-issuer", "test-audience", 15*time.Minute)

	access, _, err := issuing.IssueAccess("u1", "s1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := validating.ValidateAccess(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccess wrong issuer: want ErrInvalidToken, got %v", err)
	}
}
