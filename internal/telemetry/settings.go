// Package telemetry provides OpenTelemetry tracing for the gateway's
// request/process pipeline: supervisor spawn/exit and translator
// construction are wrapped in spans when telemetry is enabled.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Settings configures telemetry for the gateway. Telemetry is disabled by
// default and must be explicitly enabled via Config.OTELEndpoint.
type Settings struct {
	// IsEnabled controls whether tracing is active.
	IsEnabled bool

	// RecordPrompt is off by default. No span in the gateway reads it:
	// prompt text is never recorded as a span attribute, whatever its value.
	RecordPrompt bool

	// ServiceName identifies this gateway instance in exported spans.
	ServiceName string

	// Tracer is a custom tracer. If nil, the global tracer is used.
	Tracer trace.Tracer
}

// DefaultSettings returns Settings with tracing disabled.
func DefaultSettings() *Settings {
	return &Settings{
		IsEnabled:    false,
		RecordPrompt: false,
		ServiceName:  "claude-code-gateway",
	}
}

// BaseAttributes returns attributes common to every gateway span.
func BaseAttributes(workspace, sessionID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("gateway.workspace", workspace),
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String("gateway.session_id", sessionID))
	}
	return attrs
}
