package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "boardroom"

// StartSessionSpan starts a span covering one discussion session.
func StartSessionSpan(ctx context.Context, sessionID, topic string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "discussion",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("session.topic", topic),
		),
	)
}

// StartRoundSpan starts a span for one orchestration round.
func StartRoundSpan(ctx context.Context, sessionID string, round int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "round",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("round", round),
		),
	)
}

// StartClassificationSpan starts a span for classifying one decision.
func StartClassificationSpan(ctx context.Context, sessionID, decisionTitle string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "classification",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("decision.title", decisionTitle),
		),
	)
}
