package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.TraceLevel, parseLevel("", true))
	require.Equal(t, zerolog.InfoLevel, parseLevel("", false))
	require.Equal(t, zerolog.WarnLevel, parseLevel("WARN", true))
	require.Equal(t, zerolog.InfoLevel, parseLevel("loud", false))
}

func TestEntryShapes(t *testing.T) {
	var buf bytes.Buffer
	l := setup(&buf, "PROD", "debug")
	ctx := l.WithContext(context.Background())

	Info(ctx, Msg("plain"))
	Warn(ctx, MsgFields("with fields", Fields{"subject": "u-1"}))
	Error(ctx, Err(errors.New("boom"), "failed", Fields{"op": "refresh"}))
	Debug(ctx, Err(errors.New("quiet"), "no fields", nil))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)

	require.Equal(t, "info", lines[0]["level"])
	require.Equal(t, "plain", lines[0]["message"])
	require.NotContains(t, lines[0], "error")

	require.Equal(t, "warn", lines[1]["level"])
	require.Equal(t, "u-1", lines[1]["subject"])

	require.Equal(t, "error", lines[2]["level"])
	require.Equal(t, "boom", lines[2]["error"])
	require.Equal(t, "refresh", lines[2]["op"])

	require.Equal(t, "quiet", lines[3]["error"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := setup(&buf, "PROD", "")
	ctx := l.WithContext(context.Background())

	Debug(ctx, Msg("hidden"))
	Info(ctx, Msg("shown"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "shown", lines[0]["message"])
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := setup(&buf, "PROD", "info")
	ctx := WithRequestID(l.WithContext(context.Background()), "req-42")
	ctx = WithFields(ctx, map[string]any{"path": "/sessions"})

	Info(ctx, Msg("handled"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "req-42", lines[0][RequestIDField])
	require.Equal(t, "/sessions", lines[0]["path"])
}

func TestDevUsesConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	l := setup(&buf, "dev", "")
	ctx := l.WithContext(context.Background())

	Info(ctx, Msg("pretty"))
	require.Contains(t, buf.String(), "pretty")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
