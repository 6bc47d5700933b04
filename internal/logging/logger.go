// Package logging defines a minimal structured-logging interface used by
// every server and client component. Implementations wrap a concrete
// backend (here, log/slog); components log only through Logger, and slog is
// imported outside this package only where a backend is constructed (the
// cmd binaries, server wiring and tests).
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "accepted connection", "remote", addr)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given
	// key-value pairs.
	With(args ...any) Logger
}
