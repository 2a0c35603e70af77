package logger

import (
	"bytes"
	"testing"
)

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	l := WriterLogger(&buf)
	l.Log("a", 1)
	l.LogLine(" b")
	if got := buf.String(); got != "a 1 b\n" {
		t.Errorf("got %q", got)
	}
}

func TestBufferedLogger(t *testing.T) {
	l := NewBufferedLogger()
	l.Log("partial")
	l.LogLine("line", "one")
	l.LogLine("line two")

	lines := l.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "partialline one" {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if !l.Contains("two") {
		t.Error("Contains(two) = false")
	}

	l.Reset()
	if l.String() != "" {
		t.Errorf("expected empty after reset, got %q", l.String())
	}
}

func TestPrefixed(t *testing.T) {
	l := NewBufferedLogger()
	Prefixed(l, "[plainbind]").LogLine("formatter error")
	if got := l.Lines()[0]; got != "[plainbind] formatter error" {
		t.Errorf("got %q", got)
	}
}
