// Package logger provides the structured logger shared by the natread
// command and HTTP server.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samcharles93/natread/pkg/nat"
)

// Logger is the logging surface used across natread. It is satisfied by
// the slog-backed implementation returned by New.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithGroup(name string) Logger
	Handler() slog.Handler
}

type slogLogger struct {
	l *slog.Logger
}

func New(h slog.Handler) Logger { return &slogLogger{l: slog.New(h)} }

// Default writes pretty INFO output to stderr.
func Default() Logger { return Pretty(os.Stderr, slog.LevelInfo) }

// Discard drops every record.
func Discard() Logger { return New(slog.DiscardHandler) }

// JSON logs one object per line, with source locations.
func JSON(w io.Writer, level slog.Level) Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true, Level: level}))
}

// Pretty logs colored single lines for terminals.
func Pretty(w io.Writer, level slog.Level) Logger {
	return New(NewPrettyHandler(w, &PrettyOptions{Level: level, Color: isTerminal(w)}))
}

// Setup builds a logger from configuration values. format is "pretty"
// (or empty) or "json".
func Setup(w io.Writer, format, level string) (Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "", "pretty", "text":
		return Pretty(w, lvl), nil
	case "json":
		return JSON(w, lvl), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

type ctxKey struct{}

// FromContext returns the logger stored in ctx, or Default.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return Default()
}

func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger { return &slogLogger{l: s.l.With(args...)} }

func (s *slogLogger) WithGroup(name string) Logger { return &slogLogger{l: s.l.WithGroup(name)} }

func (s *slogLogger) Handler() slog.Handler { return s.l.Handler() }

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// An empty string is INFO.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// DiagnosticSink logs each malformed body record reported by the assembler
// at WARN.
func DiagnosticSink(l Logger) nat.DiagnosticFunc {
	return func(d nat.Diagnostic) {
		l.Warn("anomalous body record",
			"rel", d.Relative,
			"abs", d.Absolute,
			"version", d.Version,
			"size", d.Size,
			"file", d.Source,
			"reason", d.Reason,
		)
	}
}
