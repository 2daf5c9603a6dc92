package logging

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetLoggerForTest(zerolog.New(&buf).With().Timestamp().Logger().Level(parseLevel(level)))
	return &buf
}

func TestInfoWritesKeyValues(t *testing.T) {
	buf := captureLogs(t, "info")

	Info("export finished", "pages", 3, "cached", false)

	out := buf.String()
	if !strings.Contains(out, "export finished") {
		t.Fatalf("message missing from %q", out)
	}
	if !strings.Contains(out, `"pages":3`) || !strings.Contains(out, `"cached":false`) {
		t.Fatalf("fields missing from %q", out)
	}
}

func TestWarnAndErrorLevels(t *testing.T) {
	buf := captureLogs(t, "warn")

	Info("hidden")
	Warn("settle timeout", "waited_ms", 1500)
	Error("capture failed", "error", errors.New("tainted canvas"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, `"waited_ms":1500`) {
		t.Fatalf("warn fields missing: %q", out)
	}
	if !strings.Contains(out, "tainted canvas") {
		t.Fatalf("error value should be rendered: %q", out)
	}
}

func TestSetLogLevelRaisesVerbosity(t *testing.T) {
	buf := captureLogs(t, "warn")

	SetLogLevel("debug")
	Debug("state transition", "to", "mounting")

	if !strings.Contains(buf.String(), "state transition") {
		t.Fatalf("expected debug output after SetLogLevel, got %q", buf.String())
	}
}

func TestInitLoggerFallsBackOnInvalidLevel(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "itinerary.log")
	InitLogger(logFile, 1, 1, 1, false, "invalid")
	SetLogLevel("invalid")
	Info("hello", "k", "v")
	Warn("warn")
	Error("error")

	if got := current().GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("expected info level fallback, got %s", got)
	}
}
