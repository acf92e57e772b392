package migrate

import (
	"errors"
	"strings"
	"testing"
)

func TestRunRejectsEmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("empty DSN should be rejected")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error %q should name DATABASE_URL", err)
	}
}

func TestRunRejectsBadDirection(t *testing.T) {
	for _, dir := range []string{"", "sideways", "UP", "Down"} {
		if err := Run("postgres://localhost/test", dir); err == nil {
			t.Errorf("direction %q should be rejected", dir)
		}
	}
}

func TestRunRejectsUnparseableDSN(t *testing.T) {
	for _, dsn := range []string{"not-a-dsn", "://localhost/test"} {
		if err := Run(dsn, "up"); err == nil {
			t.Errorf("DSN %q should fail", dsn)
		}
	}
}

func TestErrNoChangeIsComparable(t *testing.T) {
	if ErrNoChange == nil {
		t.Fatal("ErrNoChange must be exported non-nil")
	}
	if !errors.Is(ErrNoChange, ErrNoChange) {
		t.Error("ErrNoChange must work with errors.Is")
	}
}
