package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestComponentLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, Warn)
	defer SetOutput(&bytes.Buffer{}, Error)

	log := With("poller")
	log.Infof("hidden %d", 1)
	log.Warnf("round %d failed", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] [poller] round 3 failed") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   Debug,
		"WARNING": Warn,
		" error ": Error,
		"":        Info,
		"bogus":   Info,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
