// Package handler implements the HTTP surface over the lifecycle manager.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"session-lifecycle/internal/lifecycle"
)

var validate = validator.New()

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, code string) {
	respond(w, status, map[string]string{"error": code})
}

// decodeJSON decodes the request body into dst and runs struct validation.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// respondLifecycleError maps manager errors onto the wire. Replay, inactive
// session, and ownership failures are deliberately indistinguishable from a
// plain bad credential.
func respondLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable")
	case errors.Is(err, lifecycle.ErrTokenExpired):
		respondError(w, http.StatusUnauthorized, "token_expired")
	case errors.Is(err, lifecycle.ErrTokenInvalid),
		errors.Is(err, lifecycle.ErrReplayDetected),
		errors.Is(err, lifecycle.ErrSessionInactive),
		errors.Is(err, lifecycle.ErrNotSessionOwner):
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}

// clientIP returns the originating address, preferring proxy headers over the
// socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.HasSuffix(host, "]") {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

func deviceInfo(r *http.Request) lifecycle.DeviceInfo {
	return lifecycle.DeviceInfo{
		UserAgent: r.UserAgent(),
		IPAddress: clientIP(r),
	}
}
