package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetSink(&buf)
	defer SetSink(os.Stderr)

	logger := New("test")

	SetLevel(Notice)
	logger.Info("hidden info")
	logger.Notice("visible notice")

	SetLevel(Debug)
	logger.Debugf("visible %s", "debug")

	out := buf.String()
	if strings.Contains(out, "hidden info") {
		t.Errorf("Info message should be filtered at Notice level: %q", out)
	}
	if !strings.Contains(out, "visible notice") {
		t.Errorf("Notice message missing: %q", out)
	}
	if !strings.Contains(out, "visible debug") {
		t.Errorf("Debug message missing after SetLevel(Debug): %q", out)
	}
	if !strings.Contains(out, "[test]") {
		t.Errorf("Module name missing from output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected Level
		wantErr  bool
	}{
		{"debug", Debug, false},
		{"INFO", Info, false},
		{"notice", Notice, false},
		{"warning", Warning, false},
		{"error", Error, false},
		{"verbose", Notice, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unexpected error state: %v", err)
			}
			if level != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, level)
			}
		})
	}
}
