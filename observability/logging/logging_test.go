package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetupWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Service: "marsd", Env: "test", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	logger.Debug("turn executed", slog.String("module", "lending"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"service":  "marsd",
		"env":      "test",
		"severity": "DEBUG",
		"message":  "turn executed",
		"module":   "lending",
	} {
		if got, _ := line[key].(string); got != want {
			t.Fatalf("%s: expected %q, got %q", key, want, got)
		}
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("timestamp missing from %v", line)
	}
}

func TestSetupFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Options{Service: "marsd", Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info line to be filtered, got %q", buf.String())
	}
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestMaskField(t *testing.T) {
	if got := MaskField("module", "lending").Value.String(); got != "lending" {
		t.Fatalf("allowlisted key masked: %q", got)
	}
	if got := MaskField("authorization", "Bearer abc").Value.String(); got != RedactedValue {
		t.Fatalf("expected redaction, got %q", got)
	}
	if got := MaskField("authorization", "").Value.String(); got != "" {
		t.Fatalf("empty value should pass through, got %q", got)
	}
}
