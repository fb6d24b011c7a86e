package services

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer picks up whichever provider is installed globally at start-up.
var tracer = otel.Tracer("github.com/custodia-labs/docmind/internal/core/services")

// failSpan records err on span and marks it failed.
func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
