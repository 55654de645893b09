// Package logger wraps zerolog behind a context-scoped API. Request
// handlers enrich the context once (request ID, seller, role) and every log
// call downstream picks the fields up automatically.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bitetrack/bitetrack-backend/pkg/env"
)

// Options configures a service logger. Zero values mean info level, stdout,
// and no stack traces on warnings.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	Output      io.Writer
}

// Logger emits structured JSON lines, or a console format when LOG_FORMAT
// is set to "console" for local development.
type Logger struct {
	base      *zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

// New builds the root logger with the service name stamped on every line.
func New(opts Options) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	base := zerolog.New(resolveOutput(opts.Output)).
		With().Timestamp().Str("service", opts.ServiceName).
		Logger().Level(level)

	return &Logger{base: &base, warnStack: opts.WarnStack}
}

// resolveOutput defaults to stdout and honors LOG_FORMAT=console for
// readable local output.
func resolveOutput(w io.Writer) io.Writer {
	if w == nil {
		w = os.Stdout
	}
	if env.Get("LOG_FORMAT", "json") == "console" {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return w
}

// ParseLevel maps a config string to a zerolog level, defaulting to info
// for blank or unrecognized values.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithField returns a context whose logger carries key=value on every
// subsequent line.
func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.attach(ctx, l.fromContext(ctx).With().Interface(key, value).Logger())
}

// WithFields attaches several fields at once.
func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	with := l.fromContext(ctx).With()
	for k, v := range fields {
		with = with.Interface(k, v)
	}
	return l.attach(ctx, with.Logger())
}

// Identity fields stamped by the HTTP middleware.

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithSellerID(ctx context.Context, sellerID string) context.Context {
	return l.WithField(ctx, "seller_id", sellerID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.fromContext(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	evt := l.fromContext(ctx).Warn()
	if l.warnStack {
		evt = evt.Str("stack", stackTrace())
	}
	evt.Msg(msg)
}

// Error always carries a stack trace; errors without one are too expensive
// to chase through async worker logs.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	evt := l.fromContext(ctx).Error().Str("stack", stackTrace())
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg(msg)
}

func (l *Logger) fromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return l.base
	}
	if scoped, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
		return scoped
	}
	return l.base
}

func (l *Logger) attach(ctx context.Context, entry zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, &entry)
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}
