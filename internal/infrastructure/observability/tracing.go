package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const tracesPath = "/v1/traces"

// InitTracing installs a global tracer provider exporting over OTLP/HTTP to
// endpoint. An empty endpoint leaves the global no-op provider in place.
func InitTracing(serviceName, endpoint string) func(context.Context) error {
	noop := func(context.Context) error { return nil }

	if endpoint == "" {
		slog.Info("tracing disabled", "reason", "no OTLP endpoint configured")
		return noop
	}

	target, err := tracesURL(endpoint)
	if err != nil {
		slog.Error("invalid OTLP endpoint", "endpoint", endpoint, "error", err)
		return noop
	}

	exporter, err := otlptracehttp.New(context.Background(), otlptracehttp.WithEndpointURL(target))
	if err != nil {
		slog.Error("failed to create trace exporter", "error", err)
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	otel.SetTracerProvider(tp)

	slog.Info("tracing enabled", "service", serviceName, "endpoint", target)
	return tp.Shutdown
}

// tracesURL turns a collector base URL into the traces URL. A base without a
// path gets /v1/traces, as the OTLP environment variable would.
func tracesURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q needs a scheme and host", endpoint)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = tracesPath
	}
	return u.String(), nil
}
