// Package telemetry wires OpenTelemetry tracing, metrics, and logs with OTLP
// gRPC exporters. With no collector endpoint configured everything degrades to
// no-op providers so instrumented code needs no branches.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Config selects the OTLP collector and how to reach it. An empty Endpoint
// disables export entirely.
type Config struct {
	// Endpoint is the collector address: host:port, or a URL whose path and
	// query are ignored. An https scheme enables TLS unless Insecure is set.
	Endpoint    string
	ServiceName string
	Insecure    bool
}

// Telemetry owns the three signal providers and their exporters.
type Telemetry struct {
	Traces  *sdktrace.TracerProvider
	Metrics *sdkmetric.MeterProvider
	Logs    *sdklog.LoggerProvider

	closers []func(context.Context) error
}

// Setup builds the providers per cfg and installs the tracer and meter
// providers globally. The logger provider is not installed globally; pass
// Telemetry.Logs to the consumers that emit log records.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		t := &Telemetry{
			Traces:  sdktrace.NewTracerProvider(),
			Metrics: sdkmetric.NewMeterProvider(),
			Logs:    sdklog.NewLoggerProvider(),
		}
		t.install()
		return t, nil
	}

	target, tls, err := collectorTarget(endpoint)
	if err != nil {
		return nil, err
	}
	if cfg.Insecure {
		tls = false
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	t := &Telemetry{}
	if err := t.buildExporters(ctx, target, tls, res); err != nil {
		// Release whatever was already constructed before the failure.
		_ = t.Shutdown(ctx)
		return nil, err
	}
	t.install()
	return t, nil
}

func (t *Telemetry) buildExporters(ctx context.Context, target string, tls bool, res *resource.Resource) error {
	traceExp, err := otlptracegrpc.New(ctx, traceOptions(target, tls)...)
	if err != nil {
		return fmt.Errorf("trace exporter: %w", err)
	}
	t.Traces = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	t.closers = append(t.closers, t.Traces.Shutdown)

	metricExp, err := otlpmetricgrpc.New(ctx, metricOptions(target, tls)...)
	if err != nil {
		return fmt.Errorf("metric exporter: %w", err)
	}
	t.Metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(10*time.Second))),
	)
	t.closers = append(t.closers, t.Metrics.Shutdown)

	logExp, err := otlploggrpc.New(ctx, logOptions(target, tls)...)
	if err != nil {
		return fmt.Errorf("log exporter: %w", err)
	}
	t.Logs = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	t.closers = append(t.closers, t.Logs.Shutdown)
	return nil
}

func traceOptions(target string, tls bool) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	if !tls {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts
}

func metricOptions(target string, tls bool) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	if !tls {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return opts
}

func logOptions(target string, tls bool) []otlploggrpc.Option {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(target)}
	if !tls {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	return opts
}

func (t *Telemetry) install() {
	if t.Traces != nil {
		otel.SetTracerProvider(t.Traces)
	}
	if t.Metrics != nil {
		otel.SetMeterProvider(t.Metrics)
	}
}

// Shutdown flushes and stops every constructed provider, newest first.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.closers = nil
	return errors.Join(errs...)
}

// collectorTarget reduces an endpoint string to the host:port the OTLP gRPC
// exporters dial, reporting whether the scheme asked for TLS.
func collectorTarget(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("collector endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("collector endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}
