package event

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// OTelEmitter sends security events as OpenTelemetry log records, for
// deployments that ship events through the collector instead of Kafka.
type OTelEmitter struct {
	logger otellog.Logger
}

// NewOTelEmitter returns an emitter over the given provider, or nil when the
// provider is nil so callers can chain it with the Kafka fallback.
func NewOTelEmitter(provider *sdklog.LoggerProvider) *OTelEmitter {
	if provider == nil {
		return nil
	}
	return &OTelEmitter{logger: provider.Logger("session-lifecycle/event")}
}

// Emit converts the event to a log record. Best-effort; the SDK batches and
// drops on backpressure rather than blocking.
func (e *OTelEmitter) Emit(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(ev.Action))
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	attrs := []otellog.KeyValue{
		otellog.String("event_id", ev.ID),
		otellog.String("user_id", ev.UserID),
	}
	if ev.SessionID != "" {
		attrs = append(attrs, otellog.String("session_id", ev.SessionID))
	}
	for k, v := range ev.Metadata {
		attrs = append(attrs, otellog.String(k, v))
	}
	rec.AddAttributes(attrs...)
	e.logger.Emit(ctx, rec)
	return nil
}

// Close is a no-op; the LoggerProvider owns the exporter lifecycle.
func (e *OTelEmitter) Close() error { return nil }
