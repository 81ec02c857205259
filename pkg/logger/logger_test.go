package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestInit_JSONOutputWithService(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	opts := OptionsFor("production", "debug", "auth-api")
	opts.Output = &buf
	log := Init(opts)

	log.Debug().Str("user_id", "u1").Msg("user logged in")

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("expected a JSON event, got %q: %v", buf.String(), err)
	}
	if event["service"] != "auth-api" || event["user_id"] != "u1" || event["level"] != "debug" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestInit_LevelFilters(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var buf bytes.Buffer
	log := Init(Options{Level: "warn", Output: &buf})

	log.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}
	log.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatalf("warn must pass at warn level")
	}
}

func TestOptionsFor_PrettyInDevelopment(t *testing.T) {
	if !OptionsFor("development", "info", "").Pretty {
		t.Fatalf("development must use console output")
	}
	if OptionsFor("production", "info", "").Pretty {
		t.Fatalf("production must emit JSON")
	}
}

func TestInit_OnlyFirstCallApplies(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Output: &first})
	log := Init(Options{Output: &second})

	log.Info().Msg("hello")
	if first.Len() == 0 || second.Len() != 0 {
		t.Fatalf("second Init must return the logger built by the first")
	}
}

func TestParseLevel_DefaultsToInfo(t *testing.T) {
	if parseLevel("verbose").String() != "info" {
		t.Fatalf("unknown levels must fall back to info")
	}
}
