package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []*Event
	err    error
	done   chan struct{}
}

func (c *captureEmitter) Emit(ctx context.Context, e *Event) error {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	if c.done != nil {
		close(c.done)
	}
	return c.err
}

func (c *captureEmitter) Close() error { return nil }

func TestEmitAsync_Delivers(t *testing.T) {
	em := &captureEmitter{done: make(chan struct{})}
	EmitAsync(em, context.Background(), &Event{Action: "issue", UserID: "u1"})

	select {
	case <-em.done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit never ran")
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.events) != 1 || em.events[0].Action != "issue" {
		t.Errorf("events = %+v", em.events)
	}
}

func TestEmitAsync_NilEmitterAndEvent(t *testing.T) {
	EmitAsync(nil, context.Background(), &Event{})
	EmitAsync(&captureEmitter{}, context.Background(), nil)
}

func TestEmitAsync_ErrorSwallowed(t *testing.T) {
	em := &captureEmitter{err: errors.New("broker down"), done: make(chan struct{})}
	EmitAsync(em, context.Background(), &Event{Action: "revoke"})
	select {
	case <-em.done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit never ran")
	}
}
