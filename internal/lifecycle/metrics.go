package lifecycle

import (
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// managerMetrics holds the lifecycle counters. Instruments come from the
// global MeterProvider, so they are no-ops until cmd/server installs one.
type managerMetrics struct {
	issued  metric.Int64Counter
	rotated metric.Int64Counter
	replays metric.Int64Counter
	revoked metric.Int64Counter
	evicted metric.Int64Counter
}

func newManagerMetrics() *managerMetrics {
	meter := otel.Meter("session-lifecycle/lifecycle")
	return &managerMetrics{
		issued:  counter(meter, "lifecycle.sessions.issued", "Sessions issued"),
		rotated: counter(meter, "lifecycle.tokens.rotated", "Refresh tokens rotated"),
		replays: counter(meter, "lifecycle.replays.detected", "Replayed refresh tokens detected"),
		revoked: counter(meter, "lifecycle.sessions.revoked", "Sessions revoked"),
		evicted: counter(meter, "lifecycle.sessions.evicted", "Sessions evicted at the per-user cap"),
	}
}

func counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil || c == nil {
		log.Printf("lifecycle: metric %s: %v", name, err)
		return noop.Int64Counter{}
	}
	return c
}
