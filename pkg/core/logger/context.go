package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

var loggerCtxKey = contextKey{}

var defaultLogger = zap.NewNop()

// Get returns the logger stored in ctx, or the default logger.
// Safe to call with a nil context.
func Get(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return defaultLogger
	}
	if l, ok := ctx.Value(loggerCtxKey).(*zap.Logger); ok && l != nil {
		return l
	}
	return defaultLogger
}

// With attaches logger to ctx.
func With(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerCtxKey, logger)
}
