package event

import (
	"context"
	"log"
	"time"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server stops before
// closing the emitter, so in-flight async emits can complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine so request handlers are never blocked by
// the stream. Errors are logged, not returned. The goroutine uses a detached
// context with emitTimeout so request cancellation does not abort an in-flight
// emit. emitter and e may be nil; EmitAsync then returns immediately.
func EmitAsync(emitter Emitter, _ context.Context, e *Event) {
	if emitter == nil || e == nil {
		return
	}
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, e); err != nil {
			log.Printf("event: async emit failed: %v", err)
		}
	}()
}
