package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type contextKey string

const (
	// TraceIDContextKey is the key for storing trace ID in context
	TraceIDContextKey contextKey = "trace_id"
	// DatasetContextKey carries the dataset an operation works on
	DatasetContextKey contextKey = "dataset"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDContextKey)
}

// WithDataset records the dataset name in ctx. Records logged with ctx
// carry it as the dataset attribute.
func WithDataset(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, DatasetContextKey, name)
}

// GetDataset returns the dataset name stored in ctx, if any
func GetDataset(ctx context.Context) string {
	return stringValue(ctx, DatasetContextKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ComponentLogger returns logger tagged with a component field. A nil logger
// means the global one.
func ComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.With("component", component)
}
