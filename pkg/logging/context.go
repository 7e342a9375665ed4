package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey int

const (
	loggerKey contextKey = iota
	runIDKey
)

// WithLogger attaches logger to ctx. A nil logger attaches the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or the default one.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// WithRunID tags every log line of a reconciliation run.
func WithRunID(ctx context.Context, runID string) context.Context {
	ctx = context.WithValue(ctx, runIDKey, runID)
	return WithField(ctx, "run_id", runID)
}

// RunID returns the identifier of the run ctx belongs to.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// WithField narrows the logger in ctx with one more field.
func WithField(ctx context.Context, key string, value any) context.Context {
	logger := FromContext(ctx).With().Interface(key, value).Logger()
	return WithLogger(ctx, &logger)
}

// WithReference adds the external reference being processed.
func WithReference(ctx context.Context, ref string) context.Context {
	return WithField(ctx, "ref", ref)
}

// WithPerson adds the local person identifier being processed.
func WithPerson(ctx context.Context, localID string) context.Context {
	return WithField(ctx, "person_id", localID)
}

// WithDepth adds the generation of the current node relative to the start
// person. It is logged as depth so it never shadows the log level.
func WithDepth(ctx context.Context, depth int) context.Context {
	return WithField(ctx, "depth", depth)
}

// WithOperation names the reconciliation step being run.
func WithOperation(ctx context.Context, operation string) context.Context {
	return WithField(ctx, "operation", operation)
}
