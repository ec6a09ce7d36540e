// Package logger configures zerolog for the session server and carries a
// request scoped logger through context.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const RequestIDField = "request_id"

// Setup installs the global zerolog logger. Pretty console output is used in
// development, JSON everywhere else.
func Setup(env, level string) zerolog.Logger {
	return setup(os.Stdout, env, level)
}

func setup(w io.Writer, env, level string) zerolog.Logger {
	dev := strings.EqualFold(env, "DEV")
	if dev {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zerolog.SetGlobalLevel(parseLevel(level, dev))
	l := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = l
	zerolog.DefaultContextLogger = &log.Logger
	return l
}

func parseLevel(level string, dev bool) zerolog.Level {
	if level != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
			return lvl
		}
	}
	if dev {
		return zerolog.TraceLevel
	}
	return zerolog.InfoLevel
}

// FromContext returns the request logger stored in ctx, or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// WithRequestID returns a context whose logger tags every event with id.
func WithRequestID(ctx context.Context, id string) context.Context {
	l := FromContext(ctx).With().Str(RequestIDField, id).Logger()
	return l.WithContext(ctx)
}

// WithFields returns a context whose logger carries fields on every event.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	l := FromContext(ctx).With().Fields(fields).Logger()
	return l.WithContext(ctx)
}
