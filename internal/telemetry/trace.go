package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartRunSpan creates the root span for one premerge run.
//
//	ctx, span := telemetry.StartRunSpan(ctx, "run")
//	defer span.End()
func StartRunSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("premerge")
	ctx, span := tracer.Start(ctx, "premerge."+cmdName)

	span.SetAttributes(
		attribute.String("command", cmdName),
		attribute.String("component", "cli"),
	)

	return ctx, span
}

// StartStepSpan creates a span for one orchestrated step.
func StartStepSpan(ctx context.Context, stepName string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("steps")
	ctx, span := tracer.Start(ctx, "step."+stepName)

	span.SetAttributes(
		attribute.String("step", stepName),
		attribute.String("component", "runner"),
	)

	return ctx, span
}

// RecordResult stores a step result on the span. Failed checks are not
// span errors: the step itself worked.
func RecordResult(span trace.Span, result string, attrs ...attribute.KeyValue) {
	span.SetAttributes(attribute.String("result", result))
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("error", true))
}
