package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	ctx := context.Background()
	tel, err := Setup(ctx, Config{ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if tel.Traces == nil || tel.Metrics == nil || tel.Logs == nil {
		t.Fatal("all providers should exist even without a collector")
	}
	if err := tel.Shutdown(ctx); err != nil {
		t.Errorf("shutdown without collector: %v", err)
	}
	// Shutdown must tolerate being called again.
	if err := tel.Shutdown(ctx); err != nil {
		t.Errorf("repeated shutdown: %v", err)
	}
}

func TestSetupInstallsGlobalProviders(t *testing.T) {
	ctx := context.Background()
	oldTraces := otel.GetTracerProvider()
	oldMetrics := otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(oldTraces)
		otel.SetMeterProvider(oldMetrics)
	}()

	tel, err := Setup(ctx, Config{ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer tel.Shutdown(ctx)

	if otel.GetTracerProvider() == oldTraces {
		t.Error("tracer provider not installed globally")
	}
	if otel.GetMeterProvider() == oldMetrics {
		t.Error("meter provider not installed globally")
	}
}

func TestCollectorTarget(t *testing.T) {
	cases := []struct {
		name     string
		endpoint string
		want     string
		wantTLS  bool
		wantErr  bool
	}{
		{"bare host port", "collector:4317", "collector:4317", false, false},
		{"http url", "http://collector:4317", "collector:4317", false, false},
		{"https url", "https://collector:4317", "collector:4317", true, false},
		{"path is dropped", "http://collector:4317/v1/traces", "collector:4317", false, false},
		{"query is dropped", "http://collector:4317?x=1", "collector:4317", false, false},
		{"missing host", "http://", "", false, true},
		{"unparseable", "http://[bad", "", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target, tls, err := collectorTarget(tc.endpoint)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("want error for %q", tc.endpoint)
				}
				return
			}
			if err != nil {
				t.Fatalf("collectorTarget(%q): %v", tc.endpoint, err)
			}
			if target != tc.want || tls != tc.wantTLS {
				t.Errorf("got (%q, %v), want (%q, %v)", target, tls, tc.want, tc.wantTLS)
			}
		})
	}
}
