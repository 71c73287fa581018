package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func handle(t *testing.T, h slog.Handler, level slog.Level, msg string, attrs ...slog.Attr) {
	t.Helper()
	r := slog.NewRecord(time.Date(2026, 1, 15, 10, 30, 45, 123000000, time.UTC), level, msg, 0)
	r.AddAttrs(attrs...)
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
}

func TestTerminalHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	handle(t, h, slog.LevelInfo, "flow runs filtered", slog.Int("count", 4), slog.String("error", "bad input"))
	output := buf.String()

	for _, want := range []string{"10:30:45.123", "INF", "flow runs filtered", "count=", "4", `"bad input"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestTerminalHandler_Levels(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
		colour   string
	}{
		{slog.LevelDebug, "DBG", ansiCyan},
		{slog.LevelInfo, "INF", ansiGreen},
		{slog.LevelWarn, "WRN", ansiYellow},
		{slog.LevelError, "ERR", ansiRed},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			handle(t, h, tt.level, "msg")

			if !strings.Contains(buf.String(), tt.colour+tt.expected) {
				t.Errorf("expected %s in output, got: %q", tt.expected, buf.String())
			}
		})
	}
}

func TestTerminalHandler_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	if !newTerminalHandler(&buf, nil).Enabled(context.Background(), slog.LevelInfo) {
		t.Error("default level should be INFO")
	}
}

func TestTerminalHandler_CorrelationPrefix(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	handle(t, h, slog.LevelInfo, "request", slog.String(AttrCorrelationID, "3f2a9c1e-7777-4a4a-9999-000000000000"))
	output := buf.String()

	if !strings.Contains(output, "[3f2a9c1e] ") {
		t.Errorf("expected short correlation prefix, got: %s", output)
	}
	if strings.Contains(output, AttrCorrelationID+"=") {
		t.Errorf("correlation id should not repeat as an attribute, got: %s", output)
	}
}

func TestTerminalHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "api")}).WithGroup("http")
	handle(t, h2, slog.LevelInfo, "request",
		slog.String("method", "POST"),
		slog.Group("response", slog.Int("status", 201)),
	)
	output := buf.String()

	for _, want := range []string{"component=", "http.method=", "http.response.status="} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}

	if h.WithGroup("") != slog.Handler(h) {
		t.Error("WithGroup with empty string should return same handler")
	}
}
