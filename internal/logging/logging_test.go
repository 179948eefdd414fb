package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in, zerolog.InfoLevel); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")
	log.Info().Msg("hidden")
	log.Warn().Str("comp", "test").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line must be filtered: %s", out)
	}
	if !strings.Contains(out, `"comp":"test"`) || !strings.Contains(out, "shown") {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestPrintfAdapter(t *testing.T) {
	var buf bytes.Buffer
	p := Printf{Log: NewWithWriter(&buf, "debug", "json"), Level: zerolog.WarnLevel}
	p.Printf("slow query %dms", 1200)
	if !strings.Contains(buf.String(), "slow query 1200ms") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}
