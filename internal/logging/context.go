package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTaskID identifies the task a line belongs to.
	FieldTaskID = "task_id"
	// FieldBatchID identifies one modification batch.
	FieldBatchID = "batch_id"
	// FieldOperation is the kind of modification being applied (add_track, ...).
	FieldOperation = "op"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies warnings and errors.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	taskIDKey contextKey = iota
	batchIDKey
	operationKey
	correlationIDKey
)

// WithTaskID attaches a task id to ctx.
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey, id)
}

// WithBatchID attaches a batch id to ctx.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey, id)
}

// WithOperation attaches the kind of the modification in flight.
func WithOperation(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, operationKey, kind)
}

// WithCorrelationID attaches a correlation id to ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// TaskIDFromContext returns the task id stored in ctx.
func TaskIDFromContext(ctx context.Context) (string, bool) { return stringValue(ctx, taskIDKey) }

// BatchIDFromContext returns the batch id stored in ctx.
func BatchIDFromContext(ctx context.Context) (string, bool) { return stringValue(ctx, batchIDKey) }

// OperationFromContext returns the operation kind stored in ctx.
func OperationFromContext(ctx context.Context) (string, bool) { return stringValue(ctx, operationKey) }

// CorrelationIDFromContext returns the correlation id stored in ctx.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, correlationIDKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := TaskIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTaskID, id))
	}
	if id, ok := BatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if kind, ok := OperationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldOperation, kind))
	}
	if id, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
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
