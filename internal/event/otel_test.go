package event

import (
	"context"
	"sync"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type recordingProcessor struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (p *recordingProcessor) OnEmit(_ context.Context, r *sdklog.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, r.Clone())
	return nil
}

func (p *recordingProcessor) Enabled(context.Context, sdklog.EnabledParameters) bool { return true }

func (p *recordingProcessor) Shutdown(context.Context) error   { return nil }
func (p *recordingProcessor) ForceFlush(context.Context) error { return nil }

func TestNewOTelEmitterNilProvider(t *testing.T) {
	if e := NewOTelEmitter(nil); e != nil {
		t.Fatal("nil provider should yield nil emitter")
	}
}

func TestOTelEmitterEmitsRecord(t *testing.T) {
	proc := &recordingProcessor{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(proc))
	defer provider.Shutdown(context.Background())

	e := NewOTelEmitter(provider)
	ev := &Event{
		ID:        "ev-1",
		Action:    "token.refresh",
		UserID:    "user-1",
		SessionID: "sess-1",
		At:        time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Metadata:  map[string]string{"device": "Chrome on Linux (desktop)"},
	}
	if err := e.Emit(context.Background(), ev); err != nil {
		t.Fatalf("emit: %v", err)
	}

	proc.mu.Lock()
	defer proc.mu.Unlock()
	if len(proc.records) != 1 {
		t.Fatalf("got %d records, want 1", len(proc.records))
	}
	rec := proc.records[0]
	if rec.Body().AsString() != "token.refresh" {
		t.Errorf("body = %q", rec.Body().AsString())
	}
	if !rec.Timestamp().Equal(ev.At) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), ev.At)
	}
	attrs := map[string]string{}
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	if attrs["user_id"] != "user-1" || attrs["session_id"] != "sess-1" {
		t.Errorf("attributes = %v", attrs)
	}
	if attrs["device"] != "Chrome on Linux (desktop)" {
		t.Errorf("metadata attribute missing: %v", attrs)
	}
}

func TestOTelEmitterNilEvent(t *testing.T) {
	proc := &recordingProcessor{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(proc))
	defer provider.Shutdown(context.Background())

	e := NewOTelEmitter(provider)
	if err := e.Emit(context.Background(), nil); err != nil {
		t.Fatalf("emit nil: %v", err)
	}
	proc.mu.Lock()
	defer proc.mu.Unlock()
	if len(proc.records) != 0 {
		t.Errorf("nil event should emit nothing, got %d records", len(proc.records))
	}
}
