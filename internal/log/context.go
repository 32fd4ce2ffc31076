// SPDX-License-Identifier: MIT

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	requestIDKey  ctxKey = "request_id"
	taskIDKey     ctxKey = "task_id"
	jobIDKey      ctxKey = "job_id"
	domainIDKey   ctxKey = "domain_id"
	capabilityKey ctxKey = "capability"
)

// ContextWithRequestID stores the provided request ID in the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithTask stores the task correlation fields in the context. Empty
// values are stored as-is and skipped at logging time.
func ContextWithTask(ctx context.Context, taskID, jobID, capability, domainID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, taskIDKey, taskID)
	ctx = context.WithValue(ctx, jobIDKey, jobID)
	ctx = context.WithValue(ctx, capabilityKey, capability)
	return context.WithValue(ctx, domainIDKey, domainID)
}

func stringFromContext(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// RequestIDFromContext extracts the request ID from context if present.
func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, requestIDKey)
}

// TaskIDFromContext extracts the task ID from context if present.
func TaskIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, taskIDKey)
}

// WithContext enriches the supplied logger with correlation fields from context.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	builder := logger.With()
	added := false
	if rid := stringFromContext(ctx, requestIDKey); rid != "" {
		builder = builder.Str(FieldRequestID, rid)
		added = true
	}
	if tid := stringFromContext(ctx, taskIDKey); tid != "" {
		builder = builder.Str(FieldTaskID, tid)
		added = true
	}
	if jid := stringFromContext(ctx, jobIDKey); jid != "" {
		builder = builder.Str(FieldJobID, jid)
		added = true
	}
	if cap := stringFromContext(ctx, capabilityKey); cap != "" {
		builder = builder.Str(FieldCapability, cap)
		added = true
	}
	if did := stringFromContext(ctx, domainIDKey); did != "" {
		builder = builder.Str(FieldDomainID, did)
		added = true
	}
	if !added {
		return logger
	}
	return builder.Logger()
}

// WithComponentFromContext returns a logger annotated with the component name
// and enriched with correlation fields from ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
