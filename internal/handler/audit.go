package handler

import (
	"net/http"
	"strconv"
	"time"

	"session-lifecycle/internal/audit"
	auditdomain "session-lifecycle/internal/audit/domain"
	"session-lifecycle/internal/middleware"
)

// AuditHandler serves the caller's own audit trail.
type AuditHandler struct {
	log *audit.Logger
}

// NewAuditHandler returns the audit history HTTP handler. log may be nil; the
// history is then empty.
func NewAuditHandler(log *audit.Logger) *AuditHandler {
	return &AuditHandler{log: log}
}

type auditEntry struct {
	Action    string    `json:"action"`
	SessionID string    `json:"session_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns the authenticated user's recent lifecycle events, newest first.
// Supports ?limit= and ?offset=; limit defaults to 50, capped at 200.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	rows, err := h.log.History(r.Context(), id.UserID, int32(limit), int32(offset))
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "service_unavailable")
		return
	}
	entries := make([]auditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, newAuditEntry(row))
	}
	respond(w, http.StatusOK, map[string]any{"events": entries})
}

func newAuditEntry(a *auditdomain.AuditLog) auditEntry {
	return auditEntry{
		Action:    a.Action,
		SessionID: a.SessionID,
		IP:        a.IP,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
