package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "reviewflow"

// StartDecisionSpan starts a span for an approval decision on a level.
func StartDecisionSpan(ctx context.Context, versionID, levelID, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "decision",
		trace.WithAttributes(
			attribute.String("version.id", versionID),
			attribute.String("level.id", levelID),
			attribute.String("decision.action", action),
		),
	)
}

// StartCheckUpdateSpan starts a span for a quality check update and the
// checklist recompute it triggers.
func StartCheckUpdateSpan(ctx context.Context, versionID, checkID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "check_update",
		trace.WithAttributes(
			attribute.String("version.id", versionID),
			attribute.String("check.id", checkID),
		),
	)
}
