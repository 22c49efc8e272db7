// Package logctx carries a zerolog logger through context.Context so that
// run and variant fields set near the command entry point reach every log
// line written below it.
package logctx

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

var (
	mu            sync.RWMutex
	defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// DefaultLogger returns the logger used when a context carries none.
func DefaultLogger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger replaces the fallback logger. The CLI calls it once the
// output format is known.
func SetDefaultLogger(l zerolog.Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// WithLogger attaches logger to ctx. A nil ctx is treated as Background.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx, or the default logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return l
		}
	}
	return DefaultLogger()
}

// WithStr adds a string field to the logger carried by ctx.
func WithStr(ctx context.Context, key, value string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With().Str(key, value).Logger())
}

// WithRunID tags every log line under ctx with the invocation's run id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return WithStr(ctx, "run_id", runID)
}

// WithScheme tags every log line under ctx with a variant label.
func WithScheme(ctx context.Context, label string) context.Context {
	return WithStr(ctx, "scheme", label)
}
