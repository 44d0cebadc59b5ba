package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/i474232898/headache-forecast/internal/config"
)

func TestNewProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.AppConfig{AppEnv: "prod", LogLevel: slog.LevelInfo}

	logger := New(&buf, cfg, "headache-forecast", "1.2.3")
	logger.Debug("hidden")
	logger.Info("report fetched", "location", "東京都:")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line (debug filtered), got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["app"] != "headache-forecast" || entry["version"] != "1.2.3" || entry["env"] != "prod" {
		t.Fatalf("unexpected attributes: %v", entry)
	}
	if entry["location"] != "東京都:" {
		t.Fatalf("location = %v", entry["location"])
	}
}

func TestNewDevUsesTint(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.AppConfig{AppEnv: "dev", LogLevel: slog.LevelDebug}

	New(&buf, cfg, "headache-forecast", "dev").Debug("cache miss")

	out := buf.String()
	if !strings.Contains(out, "cache miss") {
		t.Fatalf("missing message: %q", out)
	}
	if json.Valid([]byte(strings.TrimSpace(out))) {
		t.Fatalf("dev logger should not emit JSON: %q", out)
	}
}
