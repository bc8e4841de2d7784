package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldDocumentID is the standardized key for document identifiers.
	FieldDocumentID = "document_id"
	// FieldDocumentNumber is the standardized key for human-readable document numbers.
	FieldDocumentNumber = "document_number"
	// FieldAction is the standardized key for transition names.
	FieldAction = "action"
	// FieldActor is the standardized key for the identity performing a transition.
	FieldActor = "actor"
	// FieldOutcome is the standardized key for transition outcome kinds.
	FieldOutcome = "outcome"
	// FieldBatchSize is the standardized key for the number of ids in a batch.
	FieldBatchSize = "batch_size"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies notable log lines for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
)

type contextKey int

const (
	correlationIDKey contextKey = iota
	actorKey
)

// WithCorrelationID attaches a request correlation identifier to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation identifier, if any.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok && id != ""
}

// WithActor attaches the acting identity to ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey, actor)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	if actor, ok := ctx.Value(actorKey).(string); ok && actor != "" {
		fields = append(fields, slog.String(FieldActor, actor))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
