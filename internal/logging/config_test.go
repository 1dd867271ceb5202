package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) = %v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "true")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel {
		t.Fatalf("level = %v", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("expected timestamp disabled")
	}
	if !cfg.NoColor {
		t.Fatalf("expected no color")
	}
}

func TestParseBoolIgnoresGarbage(t *testing.T) {
	if _, ok := parseBool("maybe"); ok {
		t.Fatalf("expected garbage to be ignored")
	}
	if v, ok := parseBool("1"); !ok || !v {
		t.Fatalf("expected 1 to parse true")
	}
}

func TestSetLevelRespectsEnv(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	t.Setenv(EnvLogLevel, "")
	if err := SetLevel("warn"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn, got %v", zerolog.GlobalLevel())
	}

	t.Setenv(EnvLogLevel, "error")
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("env level should win, got %v", zerolog.GlobalLevel())
	}

	if err := SetLevel("loud"); err == nil {
		t.Fatalf("expected unknown level error")
	}
	if !ValidLevel("") || ValidLevel("loud") {
		t.Fatalf("unexpected ValidLevel result")
	}
}
