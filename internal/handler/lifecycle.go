package handler

import (
	"log"
	"net/http"
	"time"

	"session-lifecycle/internal/lifecycle"
	"session-lifecycle/internal/middleware"
)

// TokenHandler serves the token lifecycle routes: issue, refresh, validate,
// logout.
type TokenHandler struct {
	manager *lifecycle.Manager
}

// NewTokenHandler returns the token lifecycle HTTP handler.
func NewTokenHandler(manager *lifecycle.Manager) *TokenHandler {
	return &TokenHandler{manager: manager}
}

type issueRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	SessionID    string `json:"session_id" validate:"required"`
}

type validateRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

type logoutRequest struct {
	LogoutAll bool `json:"logout_all"`
}

type pairResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	SessionID        string    `json:"session_id"`
	TokenType        string    `json:"token_type"`
}

func newPairResponse(p *lifecycle.TokenPair) pairResponse {
	return pairResponse{
		AccessToken:      p.AccessToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshToken:     p.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiresAt,
		SessionID:        p.SessionID,
		TokenType:        "Bearer",
	}
}

// Issue mints a session and first token pair for an already-authenticated
// user. Internal-only: the caller (login service) vouches for the identity.
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	pair, err := h.manager.Issue(r.Context(), req.UserID, deviceInfo(r))
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respond(w, http.StatusCreated, newPairResponse(pair))
}

// Refresh rotates a refresh token into a new pair.
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	pair, err := h.manager.Refresh(r.Context(), req.RefreshToken, req.SessionID, deviceInfo(r))
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respond(w, http.StatusOK, newPairResponse(pair))
}

// Validate checks an access token for other backend services. Internal-only.
func (h *TokenHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	claims, err := h.manager.ValidateAccess(r.Context(), req.AccessToken)
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"user_id":    claims.UserID(),
		"session_id": claims.SessionID,
		"expires_at": claims.ExpiresAt.Time,
	})
}

// Logout revokes the caller's session and denylists the presented access
// token so it dies before its natural expiry. With {"logout_all": true} every
// session of the user is revoked, not just the current one. The body is
// optional.
func (h *TokenHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	var req logoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request")
			return
		}
	}
	if req.LogoutAll {
		if _, err := h.manager.RevokeAll(r.Context(), id.UserID, ""); err != nil {
			respondLifecycleError(w, err)
			return
		}
	} else if err := h.manager.Revoke(r.Context(), id.SessionID); err != nil {
		respondLifecycleError(w, err)
		return
	}
	if err := h.manager.BlacklistAccessToken(r.Context(), id.RawToken, "logout"); err != nil {
		// Session is already dead; the token dies on its own TTL anyway.
		log.Printf("handler: denylist on logout: %v", err)
	}
	respond(w, http.StatusNoContent, nil)
}
