package services

import "context"

type contextKey string

const (
	jobIDKey       contextKey = "job_id"
	stageKey       contextKey = "stage"
	collectionKey  contextKey = "collection"
	workerKey      contextKey = "worker_id"
	correlationKey contextKey = "correlation_id"
)

// WithJobID annotates context with the queue job identifier.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the queue job identifier if present.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(jobIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithStage annotates context with the lifecycle stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, stageKey)
}

// WithCollection annotates context with the scheduled collection id.
func WithCollection(ctx context.Context, id string) context.Context {
	return withString(ctx, collectionKey, id)
}

// CollectionFromContext returns the collection id if present.
func CollectionFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, collectionKey)
}

// WithWorkerID annotates context with the id of the claiming worker.
func WithWorkerID(ctx context.Context, id string) context.Context {
	return withString(ctx, workerKey, id)
}

// WorkerIDFromContext returns the worker id if present.
func WorkerIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, workerKey)
}

// WithCorrelationID annotates context with the id shared by every line of
// one job attempt or one scheduler tick.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return withString(ctx, correlationKey, id)
}

// CorrelationIDFromContext extracts the correlation identifier if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, correlationKey)
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
