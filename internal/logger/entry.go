package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// Fields are structured key/values attached to an Entry.
type Fields map[string]any

// Entry is a log record in one of three explicit shapes. Build it with Msg,
// MsgFields or Err.
type Entry struct {
	msg    string
	fields Fields
	err    error
}

// Msg is an entry with a message only.
func Msg(msg string) Entry {
	return Entry{msg: msg}
}

// MsgFields is an entry with a message and structured fields.
func MsgFields(msg string, fields Fields) Entry {
	return Entry{msg: msg, fields: fields}
}

// Err is an entry describing a failure.
func Err(err error, msg string, fields Fields) Entry {
	return Entry{msg: msg, fields: fields, err: err}
}

// Log writes e at level using the logger carried by ctx.
func Log(ctx context.Context, level zerolog.Level, e Entry) {
	ev := FromContext(ctx).WithLevel(level)
	if ev == nil {
		return
	}
	if e.err != nil {
		ev = ev.Err(e.err)
	}
	if len(e.fields) > 0 {
		ev = ev.Fields(map[string]any(e.fields))
	}
	ev.Msg(e.msg)
}

func Debug(ctx context.Context, e Entry) { Log(ctx, zerolog.DebugLevel, e) }
func Info(ctx context.Context, e Entry)  { Log(ctx, zerolog.InfoLevel, e) }
func Warn(ctx context.Context, e Entry)  { Log(ctx, zerolog.WarnLevel, e) }
func Error(ctx context.Context, e Entry) { Log(ctx, zerolog.ErrorLevel, e) }
