package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "json", Service: "notifications-service", Writer: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", "event", "probe_failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record above warn, got %d: %s", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["msg"] != "kept" || record["service"] != "notifications-service" || record["event"] != "probe_failed" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hello", "module", "internal/infra/logging")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text record, got %q", buf.String())
	}
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
