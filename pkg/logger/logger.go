package logger

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// New returns the process logger. Local and dev environments log at debug;
// everything else logs info and up. Output is always JSON so transcripts and
// call metadata survive as structured fields instead of interpolated text.
func New(appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", "voice-agent")
}

type ctxKey struct{}

// With stores a logger in context. The HTTP middleware uses this to carry the
// request-scoped logger into service code.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// ShutdownFlush is a hook for draining buffered log output on shutdown. The
// current handler writes synchronously, so there is nothing to drain yet.
func ShutdownFlush(_ context.Context, _ time.Duration) error { return nil }
