// Package apm configures the process-wide OpenTelemetry tracer provider.
//
// The bridge and dev-wallet transports create spans through the otel
// global; this package decides where those spans go. Pick a backend with
// WithProvider, or pass no options to follow the standard OTEL_EXPORTER_*
// environment variables.
package apm

import (
	"context"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/walletgate/internal/logger"
)

// Provider selects a span exporter backend.
type Provider string

const (
	ZipkinProvider   Provider = "ZIPKIN_PROVIDER"
	OTLPGRPCProvider Provider = "OTLP_GRPC_PROVIDER"
	OTLPHTTPProvider Provider = "OTLP_HTTP_PROVIDER"
	ConsoleProvider  Provider = "CONSOLE_PROVIDER"
	EmptyProvider    Provider = "EMPTY_PROVIDER"
)

// TraceProvider is the shutdown handle main holds on to. Stop flushes
// buffered spans before the process exits.
type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

// noopTraceProvider leaves the otel global untouched, so every span the
// transports start is a no-op.
type noopTraceProvider struct{}

func (noopTraceProvider) Stop() error { return nil }

// TracerOptions collects the exporter chosen by the functional options.
type TracerOptions struct {
	exporter           sdktrace.SpanExporter
	tracerProviderName string
	useEmpty           bool
}

// TracerOption configures NewTraceProvider.
type TracerOption func(*TracerOptions)

// WithProvider selects the exporter backend. An unknown provider disables
// tracing rather than failing startup.
func WithProvider(provider Provider, log logger.LoggerInterface) TracerOption {
	switch provider {
	case ZipkinProvider:
		return useZipkin()
	case OTLPGRPCProvider:
		return useOTLPGRPC()
	case OTLPHTTPProvider:
		return useOTLPHTTP()
	case ConsoleProvider:
		return useConsole()
	case EmptyProvider:
		return useEmpty()
	default:
		log.Warn(context.Background(), "unknown tracer provider, tracing disabled", "provider", string(provider))
		return useEmpty()
	}
}

func useEmpty() TracerOption {
	return func(option *TracerOptions) {
		option.useEmpty = true
	}
}

func useConsole() TracerOption {
	return func(option *TracerOptions) {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			panic(err)
		}

		option.exporter = exp
		option.tracerProviderName = string(ConsoleProvider)
	}
}

func useZipkin() TracerOption {
	return func(option *TracerOptions) {
		exp, err := zipkin.New(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
		if err != nil {
			panic(err)
		}

		option.exporter = exp
		option.tracerProviderName = string(ZipkinProvider)
	}
}

func useOTLPGRPC() TracerOption {
	return func(option *TracerOptions) {
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithHeaders(otlpHeadersFromEnv()),
		}
		if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpointURL(endpoint))
		}

		exp, err := otlptracegrpc.New(context.Background(), opts...)
		if err != nil {
			panic(err)
		}

		option.exporter = exp
		option.tracerProviderName = string(OTLPGRPCProvider)
	}
}

func useOTLPHTTP() TracerOption {
	return func(option *TracerOptions) {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithHeaders(otlpHeadersFromEnv()),
		}
		if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
		}

		exp, err := otlptracehttp.New(context.Background(), opts...)
		if err != nil {
			panic(err)
		}

		option.exporter = exp
		option.tracerProviderName = string(OTLPHTTPProvider)
	}
}

// otlpHeadersFromEnv parses OTEL_EXPORTER_OTLP_HEADERS, a comma-separated
// list of key=value pairs.
func otlpHeadersFromEnv() map[string]string {
	headers := make(map[string]string)

	raw := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")
	if raw == "" {
		return headers
	}

	for _, pair := range strings.Split(raw, ",") {
		if key, value, ok := strings.Cut(pair, "="); ok {
			headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}

	return headers
}

// NewTraceProvider installs a tracer provider on the otel global and
// returns its shutdown handle. With no options the OTLP protocol is taken
// from OTEL_EXPORTER_OTLP_PROTOCOL, defaulting to gRPC.
func NewTraceProvider(log logger.LoggerInterface, options ...TracerOption) TraceProvider {
	serviceName := os.Getenv("OTEL_SERVICE_NAME")

	if len(options) == 0 {
		if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "http/protobuf" {
			options = []TracerOption{useOTLPHTTP()}
		} else {
			options = []TracerOption{useOTLPGRPC()}
		}
	}

	opts := &TracerOptions{}

	for _, opt := range options {
		opt(opts)
	}

	if opts.useEmpty {
		return noopTraceProvider{}
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("otel.provider", opts.tracerProviderName),
		))
	if err != nil {
		log.Warn(context.Background(), "building tracer resource", "error", err)
		rsrc = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(opts.exporter),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{
		tp,
	}
}

// Stop flushes pending spans, bounded so a stuck exporter cannot hang
// process exit.
func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	return o.tp.Shutdown(ctx)
}
