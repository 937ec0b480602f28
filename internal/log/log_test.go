package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := ParseLevel(tc.in); got != tc.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	t.Setenv("GO_ENV", "")

	var buf bytes.Buffer
	l := New("warn", &buf)

	l.Info("hidden")
	l.Warn("shown", "faces", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "faces=2") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestNew_ProductionUsesJSON(t *testing.T) {
	t.Setenv("GO_ENV", "production")

	var buf bytes.Buffer
	New("info", &buf).Info("frame published", "seq", 7)

	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}
