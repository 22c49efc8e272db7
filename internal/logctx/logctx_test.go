package logctx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := DefaultLogger()
	SetDefaultLogger(zerolog.New(&buf))
	defer SetDefaultLogger(prev)

	//nolint:staticcheck // nil context is tolerated on purpose
	for _, ctx := range []context.Context{nil, context.Background()} {
		buf.Reset()
		l := FromContext(ctx)
		l.Info().Msg("fallback")
		if !strings.Contains(buf.String(), "fallback") {
			t.Errorf("default logger not used: %q", buf.String())
		}
	}
}

func TestWithLoggerNilContext(t *testing.T) {
	var buf bytes.Buffer
	//nolint:staticcheck // nil context is tolerated on purpose
	ctx := WithLogger(nil, zerolog.New(&buf).With().Str("custom", "field").Logger())
	if ctx == nil {
		t.Fatal("nil context returned")
	}
	l := FromContext(ctx)
	l.Info().Msg("x")
	if !strings.Contains(buf.String(), `"custom":"field"`) {
		t.Errorf("output = %s", buf.String())
	}
}

func TestWithRunIDAndScheme(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctx = WithRunID(ctx, "0d9f")
	ctx = WithScheme(ctx, "cat1_gf16_fast_r5")
	ctx = WithStr(ctx, "phase", "bench")

	l := FromContext(ctx)
	l.Info().Int("reps", 100).Msg("started")

	out := buf.String()
	for _, want := range []string{
		`"run_id":"0d9f"`,
		`"scheme":"cat1_gf16_fast_r5"`,
		`"phase":"bench"`,
		`"reps":100`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestChildContextDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	parent := WithLogger(context.Background(), zerolog.New(&buf))
	_ = WithScheme(parent, "cat5_gf256_short_r3")

	l := FromContext(parent)
	l.Info().Msg("parent")
	if strings.Contains(buf.String(), "scheme") {
		t.Errorf("child field leaked into parent: %s", buf.String())
	}
}
