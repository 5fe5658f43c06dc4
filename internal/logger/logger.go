// © 2025 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger defines a basic printf-like logging type and a structured
// logger that travels in a [context.Context].
package logger

import (
	"context"
	"io"
	"log/slog"
)

// Logf is the basic logger type: a printf-like func. Like [log.Printf], the
// format need not end in a newline. Logf functions must be safe for concurrent
// use.
type Logf func(format string, args ...any)

// Write implements the [io.Writer] interface.
func (f Logf) Write(p []byte) (n int, err error) {
	f("%s", p)
	return len(p), nil
}

// Logger bundles a structured logger with its level so that programs can
// adjust verbosity at runtime.
type Logger struct {
	Logger *slog.Logger
	Level  *slog.LevelVar
}

// New returns a Logger writing text logs to w at [slog.LevelInfo].
func New(w io.Writer) *Logger {
	level := new(slog.LevelVar)
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
		Level:  level,
	}
}

type ctxKey struct{}

// With returns a new context with the provided Logger attached.
func With(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the Logger attached to this context, if any.
func From(ctx context.Context) (*Logger, bool) {
	l, ok := ctx.Value(ctxKey{}).(*Logger)
	return l, ok
}

// Get returns the Logger attached to this context, or a Logger discarding
// everything if there is none.
func Get(ctx context.Context) *Logger {
	if l, ok := From(ctx); ok {
		return l
	}
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
		Level:  new(slog.LevelVar),
	}
}
