package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"session-lifecycle/internal/lifecycle"
	"session-lifecycle/internal/security"
)

type fakeValidator struct {
	claims *security.AccessClaims
	err    error
	seen   string
}

func (f *fakeValidator) ValidateAccess(_ context.Context, raw string) (*security.AccessClaims, error) {
	f.seen = raw
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func authedHandler(t *testing.T, wantUser, wantSession string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			t.Error("identity missing from context")
		}
		if id.UserID != wantUser || id.SessionID != wantSession {
			t.Errorf("identity = %+v", id)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuthPassesValidToken(t *testing.T) {
	v := &fakeValidator{claims: &security.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		SessionID:        "sess-1",
	}}
	h := RequireAuth(v)(authedHandler(t, "user-1", "sess-1"))

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if v.seen != "some-token" {
		t.Errorf("validator saw %q", v.seen)
	}
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	h := RequireAuth(&fakeValidator{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"expired", lifecycle.ErrTokenExpired, http.StatusUnauthorized},
		{"invalid", lifecycle.ErrTokenInvalid, http.StatusUnauthorized},
		{"store down", lifecycle.ErrStoreUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := RequireAuth(&fakeValidator{err: tc.err})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Error("handler should not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
			req.Header.Set("Authorization", "Bearer t")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"BEARER  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := ExtractBearer(req); got != tc.want {
			t.Errorf("ExtractBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
