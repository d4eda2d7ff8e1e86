package otel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	defaultEndpoint = "localhost:4318"
	batchTimeout    = 2 * time.Second
	exportInterval  = 15 * time.Second
)

// Config selects the OTLP/HTTP exporters installed by Init.
type Config struct {
	ServiceName string
	Environment string
	// Endpoint is host:port or an http(s) URL.
	Endpoint string
	Insecure bool
	Headers  map[string]string
	Metrics  bool
	Traces   bool
}

type shutdownFunc func(context.Context) error

// Init installs the global tracer and meter providers. With neither traces
// nor metrics enabled it installs nothing and returns a no-op shutdown.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if strings.TrimSpace(cfg.ServiceName) == "" {
		return nil, fmt.Errorf("service name required for telemetry")
	}
	if !cfg.Traces && !cfg.Metrics {
		return func(context.Context) error { return nil }, nil
	}
	cfg.Endpoint, cfg.Insecure = normalizeEndpoint(cfg.Endpoint, cfg.Insecure)

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	var shutdowns []shutdownFunc
	if cfg.Traces {
		fn, err := installTracing(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		shutdowns = append(shutdowns, fn)
	}
	if cfg.Metrics {
		fn, err := installMetrics(ctx, cfg, res)
		if err != nil {
			for _, prev := range shutdowns {
				_ = prev(ctx)
			}
			return nil, err
		}
		shutdowns = append(shutdowns, fn)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		var first error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			if err := shutdowns[i](ctx); err != nil && first == nil {
				first = err
			}
		}
		return first
	}, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(cfg.ServiceName)}
	if env := strings.TrimSpace(cfg.Environment); env != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentKey.String(env))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}
	return res, nil
}

func installTracing(ctx context.Context, cfg Config, res *resource.Resource) (shutdownFunc, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func installMetrics(ctx context.Context, cfg Config, res *resource.Resource) (shutdownFunc, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// normalizeEndpoint strips an http(s) scheme, which the exporters expect as
// host:port. A plain http scheme forces insecure transport.
func normalizeEndpoint(endpoint string, insecure bool) (string, bool) {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case endpoint == "":
		return defaultEndpoint, insecure
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/"), true
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/"), insecure
	}
	return endpoint, insecure
}

// ParseHeaders converts "key=value,foo=bar" into an exporter header map.
// Malformed pairs are skipped.
func ParseHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			headers[key] = strings.TrimSpace(value)
		}
	}
	return headers
}
