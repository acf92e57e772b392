package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"session-lifecycle/internal/lifecycle"
	"session-lifecycle/internal/middleware"
)

// SessionHandler serves the owner-facing session management routes.
type SessionHandler struct {
	admin *lifecycle.Admin
}

// NewSessionHandler returns the session management HTTP handler.
func NewSessionHandler(admin *lifecycle.Admin) *SessionHandler {
	return &SessionHandler{admin: admin}
}

// List returns the caller's active sessions, the current one flagged.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	sessions, err := h.admin.ListSessions(r.Context(), id.UserID, id.SessionID)
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// Delete revokes one of the caller's sessions by ID.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := h.admin.RevokeOne(r.Context(), id.UserID, sessionID); err != nil {
		respondLifecycleError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

// RevokeOthers revokes every session of the caller except the current one.
func (h *SessionHandler) RevokeOthers(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	n, err := h.admin.RevokeAllButCurrent(r.Context(), id.UserID, id.SessionID)
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]int{"revoked_sessions": n})
}
