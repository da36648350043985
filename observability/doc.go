// Package observability wires OpenTelemetry tracing and metrics for the
// service. When disabled, the global no-op providers stay in place and every
// helper here is safe to call.
//
//	shutdown, err := observability.Setup(ctx, cfg)
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "transcription.poll")
//	defer span.End()
package observability
