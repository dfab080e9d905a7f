package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"wine-dashboard/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_RequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"}).With("component", "catalog")

	logger.InfoContext(WithRequestID(context.Background(), "01HZX"), "query executed")
	logger.Info("no context")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if first["request_id"] != "01HZX" || first["component"] != "catalog" {
		t.Errorf("expected request_id and component, got %v", first)
	}
	if _, ok := second["request_id"]; ok {
		t.Errorf("request_id should be absent without a request context, got %v", second)
	}
}

func TestNewLoggerTo_Formats(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "json"}).Info("hello", "k", "v")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json format should produce JSON: %v", err)
	}
	if entry["msg"] != "hello" || entry["k"] != "v" {
		t.Errorf("unexpected entry: %v", entry)
	}

	buf.Reset()
	NewLoggerTo(&buf, config.LoggerConfig{Level: "info", Format: "text"}).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text format should produce key=value output, got %q", buf.String())
	}

	buf.Reset()
	NewLoggerTo(&buf, config.LoggerConfig{Level: "warn", Format: "text"}).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	if got := GetRequestID(ctx); got != "abc" {
		t.Errorf("GetRequestID() = %q, want %q", got, "abc")
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() on empty context = %q", got)
	}
}

func TestSpan_Nesting(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "GET /api/wines")
	_, child := StartSpan(ctx, "catalog.query")

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace id")
	}
	if child.ParentID != parent.SpanID {
		t.Error("child should reference parent span")
	}
	if GetSpan(ctx) != parent {
		t.Error("context should carry the parent span")
	}
}

func TestSpan_End(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, span := StartSpan(context.Background(), "catalog.query")
	span.SetTag("matched", "3")
	span.SetError(errors.New("boom"))
	span.End(ctx, logger)

	out := buf.String()
	for _, want := range []string{`"operation":"catalog.query"`, `"tag.matched":"3"`, `"status":"ERROR"`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Errorf("span log should contain %s, got %s", want, out)
		}
	}
}
