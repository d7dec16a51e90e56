package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSlogSinkTextFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSinkWithWriter(Info, "text", &buf)

	sink.Info("hello there")

	if !strings.Contains(buf.String(), "hello there") {
		t.Fatalf("expected message in output, got: %s", buf.String())
	}
}

func TestSlogSinkLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSinkWithWriter(Warn, "text", &buf)

	sink.Info("should not appear")
	sink.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("info should be filtered at warn level, got: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Fatalf("warn should appear, got: %s", out)
	}
}

func TestSlogSinkOffSuppressesEverything(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSinkWithWriter(Off, "text", &buf)

	sink.Critical("nope")
	sink.Error("nope")
	sink.Warn("nope")
	sink.Info("nope")

	if buf.Len() != 0 {
		t.Fatalf("expected no output at Off level, got: %s", buf.String())
	}
}

func TestSlogSinkCriticalTagsSeverity(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSinkWithWriter(Critical, "json", &buf)

	sink.Critical("boom")

	if !strings.Contains(buf.String(), `"severity":"critical"`) {
		t.Fatalf("expected severity=critical attribute, got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"off": Off, "critical": Critical, "error": Error,
		"warn": Warn, "warning": Warn, "info": Info,
		"debug": Debug, "trace": Trace, "unknown": Info, "": Info,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
