package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json")
	log.Info().Int64("session_id", 7).Msg("session started")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "hireflow" {
		t.Fatalf("service field = %v", line["service"])
	}
	if line["session_id"] != float64(7) {
		t.Fatalf("session_id field = %v", line["session_id"])
	}
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	_ = New(&buf, "loud", "json")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("global level = %v, want info", zerolog.GlobalLevel())
	}
}
