package services

import "context"

type contextKey string

const (
	operationKey contextKey = "operation"
	modelKindKey contextKey = "model_kind"
	requestIDKey contextKey = "request_id"
)

// WithOperation annotates context with the use-case name (transcribe, translate, ...).
func WithOperation(ctx context.Context, operation string) context.Context {
	if operation == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, operation)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(operationKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithModelKind annotates context with the resource kind serving the request.
func WithModelKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, modelKindKey, kind)
}

// ModelKindFromContext returns the resource kind if present.
func ModelKindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(modelKindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
