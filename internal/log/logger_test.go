package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/helixml/runfilter/internal/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for i, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var data map[string]any
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		out = append(out, data)
	}
	return out
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.NewAppConfigWithOptions(
		config.WithLogLevel("DEBUG"),
		config.WithLogFormat(config.LogFormatJSON),
	)

	NewLogger(cfg, &buf).Debug("debug message")
	lines := decodeLines(t, &buf)
	if lines[0]["msg"] != "debug message" {
		t.Errorf("expected debug message, got %v", lines[0])
	}

	buf.Reset()
	New(&buf, config.LogFormatPretty, "INFO").Info("pretty message")
	if !strings.Contains(buf.String(), "INF") {
		t.Errorf("expected terminal output, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogFormatJSON, "WARN")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	if got := len(decodeLines(t, &buf)); got != 2 {
		t.Errorf("expected 2 log lines, got %d", got)
	}
}

func TestLogger_ContextIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogFormatJSON, "INFO").With("component", "api")

	ctx := WithRequestID(WithCorrelationID(context.Background(), "corr-123"), "req-456")
	logger.InfoContext(ctx, "with ids")
	logger.Info("without ids")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0][AttrCorrelationID] != "corr-123" || lines[0][AttrRequestID] != "req-456" {
		t.Errorf("expected context ids, got %v", lines[0])
	}
	if lines[0]["component"] != "api" {
		t.Errorf("expected component=api, got %v", lines[0]["component"])
	}
	if _, ok := lines[1][AttrCorrelationID]; ok {
		t.Errorf("unexpected correlation id without context: %v", lines[1])
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	if CorrelationID(ctx) != "" || RequestID(ctx) != "" {
		t.Error("empty context should have no ids")
	}

	ctx = WithCorrelationID(ctx, "c")
	ctx = WithRequestID(ctx, "r")
	if CorrelationID(ctx) != "c" {
		t.Errorf("CorrelationID() = %q, want c", CorrelationID(ctx))
	}
	if RequestID(ctx) != "r" {
		t.Errorf("RequestID() = %q, want r", RequestID(ctx))
	}
}

func TestConfigure_SetsDefault(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer
	cfg := config.NewAppConfigWithOptions(config.WithLogFormat(config.LogFormatJSON))
	logger := Configure(cfg, &buf)

	slog.Info("via default")
	if logger != slog.Default() {
		t.Error("Configure should install the logger as default")
	}
	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("expected default logger output, got: %s", buf.String())
	}
}
