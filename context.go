package tokenlife

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/tokenlife/internal/logctx"
)

// WithLogger attaches a request-scoped logger to ctx. Engine methods log
// through it instead of the logger configured on the [Builder].
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return logctx.Into(ctx, l)
}

// LoggerFrom returns the logger attached with [WithLogger], or slog.Default().
func LoggerFrom(ctx context.Context) *slog.Logger {
	return logctx.From(ctx, nil)
}

func (e *Engine) log(ctx context.Context) *slog.Logger {
	return logctx.From(ctx, e.logger)
}
