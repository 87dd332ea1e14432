// Package telemetry provides logging, tracing and metrics for rtxctl.
//
// Structured logging uses zerolog, tracing uses OpenTelemetry with stdout or
// OTLP/gRPC exporters, and metrics are Prometheus collectors on a private
// registry. All three are built from one Config:
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Engine operations open a span per operation and per command attempt:
//
//	ctx, span := tel.Tracer.StartOperationSpan(ctx, host, "config")
//	defer span.End()
//
// Each engine operation logs through a child Logger carrying the operation,
// run ID and trace IDs, stored on the operation context with WithContext.
//
// Run, drift and policy events go to an EventPublisher, which appends them
// to a JSON lines file when telemetry.events is enabled.
//
// A nil or disabled *Metrics records nothing, and neither does a nil
// *EventPublisher, so components can take one unconditionally.
package telemetry
