package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/bool64/ctxd"
)

// slogLogger writes ctxd messages with context fields to slog.
type slogLogger struct {
	l *slog.Logger
}

var _ ctxd.Logger = slogLogger{}

func newLogger(w io.Writer, verbose bool) ctxd.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slogLogger{l: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}
}

func (s slogLogger) log(ctx context.Context, level slog.Level, msg string, keysAndValues []interface{}) {
	if !s.l.Enabled(ctx, level) {
		return
	}

	s.l.Log(ctx, level, msg, append(ctxd.Fields(ctx), keysAndValues...)...)
}

func (s slogLogger) Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.log(ctx, slog.LevelDebug, msg, keysAndValues)
}

func (s slogLogger) Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.log(ctx, slog.LevelInfo, msg, keysAndValues)
}

// Important messages are logged regardless of level.
func (s slogLogger) Important(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.l.Log(ctx, slog.LevelError+4, msg, append(ctxd.Fields(ctx), keysAndValues...)...)
}

func (s slogLogger) Warn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.log(ctx, slog.LevelWarn, msg, keysAndValues)
}

func (s slogLogger) Error(ctx context.Context, msg string, keysAndValues ...interface{}) {
	s.log(ctx, slog.LevelError, msg, keysAndValues)
}
