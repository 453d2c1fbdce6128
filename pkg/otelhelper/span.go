package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecordFailure marks span as failed by err. attrs annotate the recorded
// exception event.
func RecordFailure(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// RecordOutcome sets the run status attribute and, on failure, the error.
func RecordOutcome(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String(RunStatusKey, status))

	if err != nil {
		RecordFailure(span, err)

		return
	}

	span.SetStatus(codes.Ok, "")
}
