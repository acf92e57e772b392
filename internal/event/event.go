// Package event publishes security events from the lifecycle manager to an
// external stream (SIEM, alerting). Emission is best-effort and never blocks
// or fails a request path.
package event

import (
	"context"
	"time"
)

// Event is one security-relevant lifecycle occurrence, serialized as JSON on the wire.
type Event struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	UserID    string            `json:"user_id"`
	SessionID string            `json:"session_id,omitempty"`
	At        time.Time         `json:"at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Emitter sends events to the stream. A nil Emitter is valid and drops events.
type Emitter interface {
	Emit(ctx context.Context, e *Event) error
	Close() error
}
