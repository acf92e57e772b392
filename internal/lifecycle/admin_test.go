package lifecycle

import (
	"context"
	"errors"
	"testing"
)

func TestAdminListSessionsMarksCurrent(t *testing.T) {
	env := newTestEnv(t, 5, nil, false)
	admin := NewAdmin(env.sessions, env.manager)
	ctx := context.Background()

	a, _ := env.manager.Issue(ctx, "user-1", desktopDevice)
	b, _ := env.manager.Issue(ctx, "user-1", phoneDevice)

	list, err := admin.ListSessions(ctx, "user-1", b.SessionID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	for _, s := range list {
		switch s.SessionID {
		case a.SessionID:
			if s.Current {
				t.Error("other session marked current")
			}
			if s.DeviceLabel != "Chrome on Linux (desktop)" {
				t.Errorf("device label = %q", s.DeviceLabel)
			}
		case b.SessionID:
			if !s.Current {
				t.Error("caller's session not marked current")
			}
		default:
			t.Errorf("unexpected session %s", s.SessionID)
		}
		if s.CreatedAt.IsZero() || s.LastActivityAt.IsZero() {
			t.Errorf("session %s missing timestamps", s.SessionID)
		}
	}
}

func TestAdminListSessionsOmitsRevoked(t *testing.T) {
	env := newTestEnv(t, 5, nil, false)
	admin := NewAdmin(env.sessions, env.manager)
	ctx := context.Background()

	a, _ := env.manager.Issue(ctx, "user-1", desktopDevice)
	b, _ := env.manager.Issue(ctx, "user-1", phoneDevice)
	if err := env.manager.Revoke(ctx, a.SessionID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	list, err := admin.ListSessions(ctx, "user-1", b.SessionID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].SessionID != b.SessionID {
		t.Fatalf("list = %+v, want only the live session", list)
	}
}

func TestAdminRevokeOneVerifiesOwnership(t *testing.T) {
	env := newTestEnv(t, 5, nil, false)
	admin := NewAdmin(env.sessions, env.manager)
	ctx := context.Background()

	mine, _ := env.manager.Issue(ctx, "user-1", desktopDevice)
	theirs, _ := env.manager.Issue(ctx, "user-2", phoneDevice)

	if err := admin.RevokeOne(ctx, "user-1", theirs.SessionID); !errors.Is(err, ErrNotSessionOwner) {
		t.Errorf("foreign session: got %v, want ErrNotSessionOwner", err)
	}
	sess, _ := env.sessions.GetByID(ctx, theirs.SessionID)
	if !sess.Active {
		t.Error("foreign session must not be touched")
	}

	if err := admin.RevokeOne(ctx, "user-1", "no-such-session"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("unknown session: got %v, want ErrTokenInvalid", err)
	}

	if err := admin.RevokeOne(ctx, "user-1", mine.SessionID); err != nil {
		t.Fatalf("revoke own session: %v", err)
	}
	sess, _ = env.sessions.GetByID(ctx, mine.SessionID)
	if sess.Active {
		t.Error("own session should be revoked")
	}
}

func TestAdminRevokeAllButCurrent(t *testing.T) {
	env := newTestEnv(t, 5, nil, false)
	admin := NewAdmin(env.sessions, env.manager)
	ctx := context.Background()

	env.manager.Issue(ctx, "user-1", desktopDevice)
	env.manager.Issue(ctx, "user-1", phoneDevice)
	current, _ := env.manager.Issue(ctx, "user-1", laptopDevice)

	n, err := admin.RevokeAllButCurrent(ctx, "user-1", current.SessionID)
	if err != nil {
		t.Fatalf("revoke others: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked %d, want 2", n)
	}
	list, _ := admin.ListSessions(ctx, "user-1", current.SessionID)
	if len(list) != 1 || !list[0].Current {
		t.Fatalf("list = %+v, want only the current session", list)
	}
}
