package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/digitallysavvy/claude-code-gateway/internal/retry"
)

// TracerName is the name used for the gateway's tracer.
const TracerName = "claude-code-gateway"

// GetTracer returns a no-op tracer when telemetry is disabled, a custom
// tracer if one was configured, or the global tracer otherwise.
func GetTracer(settings *Settings) trace.Tracer {
	if settings == nil || !settings.IsEnabled {
		return noop.NewTracerProvider().Tracer(TracerName)
	}
	if settings.Tracer != nil {
		return settings.Tracer
	}
	return otel.Tracer(TracerName)
}

// InstallExporter configures the global trace provider to export spans to
// the given OTLP/HTTP endpoint. Connecting to the collector is retried with
// backoff since the collector frequently starts after the gateway in a
// container orchestration environment.
func InstallExporter(ctx context.Context, endpoint string, serviceName string) (func(context.Context) error, error) {
	var exporter *otlptrace.Exporter

	retryCfg := retry.DefaultConfig()
	retryCfg.ShouldRetry = func(error) bool { return true }
	err := retry.Do(ctx, retryCfg, func(ctx context.Context) error {
		client := otlptracehttp.NewClient(otlptracehttp.WithEndpoint(endpoint))
		exp, err := otlptrace.New(ctx, client)
		if err != nil {
			return fmt.Errorf("connect otlp exporter: %w", err)
		}
		exporter = exp
		return nil
	})
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
