package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug": DebugLevel,
		"INFO":  InfoLevel,
		"warn":  WarnLevel,
		"error": ErrorLevel,
		"bogus": InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTextFormatFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("warn", "text", &buf)
	t.Cleanup(func() { defaultLogger = nil })

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Errorf("expected warn line, got %q", out)
	}
}

func TestCallerLocation(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("info", "text", &buf)
	var code int
	exit = func(c int) { code = c }
	t.Cleanup(func() {
		defaultLogger = nil
		exit = os.Exit
	})

	Warn("warned")
	Fatal("giving up")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, "logger_test.go:") {
			t.Errorf("line does not report the calling file: %q", line)
		}
	}
	if !strings.Contains(lines[1], "[ERROR] [FATAL] giving up") {
		t.Errorf("unexpected fatal line %q", lines[1])
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("debug", "json", &buf)
	t.Cleanup(func() { defaultLogger = nil })

	Debug("scored %d items", 3)

	var line map[string]string
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output is not a JSON line: %v (%q)", err, buf.String())
	}
	if line["level"] != "debug" || line["msg"] != "scored 3 items" {
		t.Errorf("unexpected line: %v", line)
	}
	if line["time"] == "" {
		t.Error("missing time field")
	}
}

func TestUninitializedLoggerIsSilent(t *testing.T) {
	defaultLogger = nil
	Info("nothing happens")
	Error("still nothing")
}
