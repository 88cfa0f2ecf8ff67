package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"debug", LevelDebug},
		{"TRACE", LevelTrace},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"nonsense", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHasFmtVerb(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"plain message", false},
		{"value is %d", true},
		{"100%% sure", false},
		{"name=%s", true},
		{"trailing %", false},
	}
	for _, tt := range tests {
		if got := hasFmtVerb(tt.in); got != tt.want {
			t.Errorf("hasFmtVerb(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogFormats(t *testing.T) {
	var buf bytes.Buffer
	Init(&Config{Level: LevelDebug, Output: &buf})
	defer Init(nil)

	L_info("count is %d", 3)
	L_debug("attempt", "provider", "hf")
	L_trace("hidden detail")

	out := buf.String()
	for _, want := range []string{"count is 3", "attempt", "provider=hf", "hidden detail"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestSetLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(&Config{Level: LevelInfo, Output: &buf})
	defer Init(nil)

	SetLevel(LevelError)
	L_info("should not appear")
	L_error("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("info line logged at error level:\n%s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("error line missing:\n%s", out)
	}
}
