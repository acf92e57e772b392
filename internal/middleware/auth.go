package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"session-lifecycle/internal/lifecycle"
	"session-lifecycle/internal/security"
)

const bearerPrefix = "bearer "

// AccessValidator validates a raw access token into claims.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, rawAccessToken string) (*security.AccessClaims, error)
}

// RequireAuth rejects requests without a valid Bearer access token and puts
// the caller identity in the request context. Expired tokens get their own
// error code so clients know to refresh; every other failure is the same
// generic response.
func RequireAuth(tokens AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ExtractBearer(r)
			if raw == "" {
				writeAuthError(w, http.StatusUnauthorized, "invalid_credentials")
				return
			}
			claims, err := tokens.ValidateAccess(r.Context(), raw)
			if err != nil {
				switch {
				case errors.Is(err, lifecycle.ErrTokenExpired):
					writeAuthError(w, http.StatusUnauthorized, "token_expired")
				case errors.Is(err, lifecycle.ErrStoreUnavailable):
					writeAuthError(w, http.StatusServiceUnavailable, "service_unavailable")
				default:
					writeAuthError(w, http.StatusUnauthorized, "invalid_credentials")
				}
				return
			}
			ctx := WithIdentity(r.Context(), Identity{
				UserID:    claims.UserID(),
				SessionID: claims.SessionID,
				RawToken:  raw,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractBearer returns the token from the Authorization header, or "" when
// the header is missing or not a Bearer scheme.
func ExtractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func writeAuthError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
