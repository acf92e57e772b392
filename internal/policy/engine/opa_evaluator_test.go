package engine

import (
	"context"
	"testing"
)

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e, err := NewOPAEvaluator("")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_DefaultSessionOnly(t *testing.T) {
	e, err := NewOPAEvaluator("")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	res, err := e.EvaluateReplay(context.Background(), ReplayInput{
		SessionFingerprint: "fp-1",
		RequestFingerprint: "fp-1",
	})
	if err != nil {
		t.Fatalf("EvaluateReplay: %v", err)
	}
	if res.RevokeUserSessions {
		t.Error("same-device replay without escalation flag should stay session-only")
	}
}

func TestOPAEvaluator_EscalateAccountWideFlag(t *testing.T) {
	e, err := NewOPAEvaluator("")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	res, err := e.EvaluateReplay(context.Background(), ReplayInput{EscalateAccountWide: true})
	if err != nil {
		t.Fatalf("EvaluateReplay: %v", err)
	}
	if !res.RevokeUserSessions {
		t.Error("escalation flag should revoke all user sessions")
	}
}

func TestOPAEvaluator_FingerprintMismatchEscalates(t *testing.T) {
	e, err := NewOPAEvaluator("")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	res, err := e.EvaluateReplay(context.Background(), ReplayInput{
		SessionFingerprint: "fp-1",
		RequestFingerprint: "fp-2",
	})
	if err != nil {
		t.Fatalf("EvaluateReplay: %v", err)
	}
	if !res.RevokeUserSessions {
		t.Error("replay from a different device should escalate account-wide")
	}
}

func TestOPAEvaluator_UnknownFingerprintsStaySessionOnly(t *testing.T) {
	e, err := NewOPAEvaluator("")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	res, err := e.EvaluateReplay(context.Background(), ReplayInput{})
	if err != nil {
		t.Fatalf("EvaluateReplay: %v", err)
	}
	if res.RevokeUserSessions {
		t.Error("missing fingerprints must not be treated as a mismatch")
	}
}

func TestNewOPAEvaluator_MissingPolicyFile(t *testing.T) {
	if _, err := NewOPAEvaluator("/nonexistent/replay.rego"); err == nil {
		t.Error("NewOPAEvaluator should fail for a missing policy file")
	}
}
