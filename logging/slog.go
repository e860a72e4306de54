package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// SlogLogger 基于 log/slog 的 Logger 实现
type SlogLogger struct {
	inner *slog.Logger
}

// NewSlogLogger 以 text 格式写入 w（nil 时写入 stderr）
func NewSlogLogger(w io.Writer, level Level) *SlogLogger {
	if w == nil {
		w = os.Stderr
	}
	return &SlogLogger{inner: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: toSlogLevel(level)}))}
}

// NewJSONLogger 以 JSON 格式写入 w
func NewJSONLogger(w io.Writer, level Level) *SlogLogger {
	if w == nil {
		w = os.Stderr
	}
	return &SlogLogger{inner: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: toSlogLevel(level)}))}
}

// New 根据格式名称创建 Logger（json|text）
func New(w io.Writer, format string, level Level) Logger {
	if format == "json" {
		return NewJSONLogger(w, level)
	}
	return NewSlogLogger(w, level)
}

func (l *SlogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *SlogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *SlogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *SlogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *SlogLogger) WithFields(fields ...Field) Logger {
	return &SlogLogger{inner: l.inner.With(toArgs(fields)...)}
}

func (l *SlogLogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	l.inner.Log(ctx, level, msg, toArgs(fields)...)
}

func toArgs(fields []Field) []any {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			args = append(args, slog.String(f.Key, err.Error()))
			continue
		}
		args = append(args, slog.Any(f.Key, f.Value))
	}
	return args
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
