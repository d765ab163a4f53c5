package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{"error", LevelError},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn)
	l.SetOutput(&buf)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)
	l.Error("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains filtered lines: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 3") {
		t.Errorf("missing warn line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] shown 4") {
		t.Errorf("missing error line: %q", out)
	}
}

func TestNamedSharesSink(t *testing.T) {
	var buf bytes.Buffer
	root := New(LevelInfo)
	root.SetOutput(&buf)

	child := root.Named("form").Named("validate")
	child.Info("checked %s", "obs_freq")

	if !strings.Contains(buf.String(), "[INFO] form.validate: checked obs_freq") {
		t.Errorf("named output = %q", buf.String())
	}

	root.SetLevel(LevelError)
	buf.Reset()
	child.Warn("dropped")
	if buf.Len() != 0 {
		t.Errorf("child ignored parent level change: %q", buf.String())
	}
}

func TestDiscardAndNil(t *testing.T) {
	d := Discard()
	if d.Enabled(LevelError) {
		t.Error("Discard logger reports Error enabled")
	}
	d.Error("nothing")

	var nilLogger *Logger
	nilLogger.Info("no panic")
	if nilLogger.Enabled(LevelDebug) {
		t.Error("nil logger reports enabled")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ls.log")
	l, closeFn, err := OpenFile(path, LevelDebug)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	l.Debug("to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[DEBUG] to file") {
		t.Errorf("log file = %q", data)
	}

	l, closeFn, err = OpenFile("", LevelDebug)
	if err != nil {
		t.Fatalf("OpenFile empty: %v", err)
	}
	defer closeFn()
	if l.Enabled(LevelError) {
		t.Error("empty path should discard")
	}
}
