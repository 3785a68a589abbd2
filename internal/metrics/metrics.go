// Package metrics configures the process-wide OpenTelemetry meter
// provider and serves the Prometheus scrape endpoint.
package metrics

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"
)

// MetricProvider is the subset of the SDK meter provider the app holds on
// to after setup.
type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

// NewMetricProvider builds a meter provider from the configured exporter
// backends and installs it as the OTEL global. With no backend configured
// it falls back to an OTLP gRPC exporter driven by the OTEL_* environment.
func NewMetricProvider(options ...OptionFn) MetricProvider {
	ctx := context.Background()

	var cfg Config
	for _, opt := range options {
		cfg = opt(cfg)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = os.Getenv("OTEL_SERVICE_NAME")
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(resource.NewSchemaless(
			semconv.ServiceNameKey.String(serviceName),
		)),
	}
	for _, reader := range readers(ctx, cfg) {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	provider := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(provider)
	return provider
}

// readers builds one reader per configured backend. Exporter construction
// failures are wiring errors and panic.
func readers(ctx context.Context, cfg Config) []sdkmetric.Reader {
	if len(cfg.Provider) == 0 {
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			panic(err)
		}
		return []sdkmetric.Reader{sdkmetric.NewPeriodicReader(exp)}
	}

	var out []sdkmetric.Reader
	for _, p := range cfg.Provider {
		switch p.Provider {
		case PrometheusProvider:
			exp, err := prometheus.New()
			if err != nil {
				panic(err)
			}
			out = append(out, exp)
		case OtelCollector:
			grpcOpts := []otlpmetricgrpc.Option{
				otlpmetricgrpc.WithEndpointURL(p.Endpoint),
				otlpmetricgrpc.WithHeaders(p.Headers),
			}
			if p.Insecure {
				grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
			}
			exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
			if err != nil {
				panic(err)
			}
			out = append(out, sdkmetric.NewPeriodicReader(exp))
		}
	}
	return out
}

// ServePrometheusMetrics blocks serving /metrics on the configured port.
func ServePrometheusMetrics(opt ...PromOptionFn) {
	cfg := PromServerConfig{port: "9090"}
	for _, o := range opt {
		cfg = o(cfg)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("serving metrics at :%s/metrics", cfg.port)
	if err := http.ListenAndServe(":"+cfg.port, mux); err != nil { //nolint:gosec // scrape endpoint, no timeouts needed
		log.Printf("metrics server stopped: %v", err)
	}
}
