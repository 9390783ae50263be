package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/CZERTAINLY/SessionCore/internal/log"
	"github.com/stretchr/testify/require"
)

func TestConsoleHandler(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(log.NewConsoleHandler(&buf, "SessionCore", slog.LevelInfo))

	logger.Info("Launching server...")
	logger.Info("server exited", "code", 1)
	logger.Warn("forwarding input failed", "error", "broken pipe")
	logger.Debug("hidden")
	logger.With("file", "server.jar").WithGroup("run").Info("started", "attempt", 2)

	require.Equal(t, ""+
		"[SessionCore] Launching server...\n"+
		"[SessionCore] server exited code=1\n"+
		"[SessionCore] WARN forwarding input failed error=\"broken pipe\"\n"+
		"[SessionCore] started file=server.jar run.attempt=2\n",
		buf.String())
}

func TestContextAttrs(t *testing.T) {
	t.Parallel()
	t.Run("console", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(log.FormatConsole, false, &buf, nil)
		ctx := log.ContextAttrs(context.Background(), slog.Group("run", slog.String("id", "abc")))
		ctx = log.ContextAttrs(ctx, slog.Int("pid", 42))
		logger.InfoContext(ctx, "server started")
		require.Equal(t, "[SessionCore] server started run.id=abc pid=42\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(log.FormatJSON, true, nil, &buf)
		ctx := log.ContextAttrs(t.Context(), slog.String("cmd", "run"))
		logger.DebugContext(ctx, "settings")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		require.Equal(t, "settings", rec["msg"])
		require.Equal(t, "run", rec["cmd"])
		require.Equal(t, "DEBUG", rec["level"])
	})

	t.Run("parent untouched", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(log.FormatConsole, false, &buf, nil)
		parent := log.ContextAttrs(t.Context(), slog.Int("a", 1))
		_ = log.ContextAttrs(parent, slog.Int("b", 2))
		logger.InfoContext(parent, "msg")
		require.Equal(t, "[SessionCore] msg a=1\n", buf.String())
	})
}

func TestFprintf(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log.Fprintf(&buf, "Selected: %s", "a.jar")
	require.Equal(t, "[SessionCore] Selected: a.jar\n", buf.String())
}
