package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_DoesNotPanic(t *testing.T) {
	// Test JSON mode (default)
	Init(false, false)
	log := L()
	log.Info().Msg("test json info")
	log.Debug().Msg("test json debug (should not appear at info level)")

	// Test debug mode
	Init(true, false)
	log = L()
	log.Debug().Msg("test json debug (should appear)")

	// Test human-friendly mode
	Init(false, true)
	log = L()
	log.Info().Msg("test human info")

	// Test debug + human
	Init(true, true)
	log = L()
	log.Debug().Msg("test human debug")
}

func TestInitWriter_PrettyMode(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, false, true)
	if !IsPrettyMode() {
		t.Error("expected pretty mode after human init")
	}
	InitWriter(&buf, false, false)
	if IsPrettyMode() {
		t.Error("expected pretty mode off after JSON init")
	}
	L().Info().Msg("json line")
	if !bytes.Contains(buf.Bytes(), []byte(`"message":"json line"`)) {
		t.Errorf("expected JSON output, got: %s", buf.String())
	}
	Init(false, false)
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	customLogger := zerolog.New(&buf).With().Str("custom", "field").Logger()
	SetLogger(customLogger)

	L().Info().Msg("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"custom":"field"`)) {
		t.Errorf("expected custom field in output, got: %s", buf.String())
	}

	// Reset to default for other tests
	Init(false, false)
}
