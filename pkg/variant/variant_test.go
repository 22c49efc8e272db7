package variant

import (
	"errors"
	"testing"
)

func TestAllCount(t *testing.T) {
	all := All()
	if len(all) != 36 {
		t.Fatalf("len(All()) = %d, want 36", len(all))
	}
	seen := make(map[string]bool)
	for _, s := range all {
		if seen[s.Label()] {
			t.Errorf("duplicate label %s", s.Label())
		}
		seen[s.Label()] = true
	}
}

func TestLabel(t *testing.T) {
	s := MustNew(Cat3, GF256, Short, R3)
	if got, want := s.Label(), "cat3_gf256_short_r3"; got != want {
		t.Errorf("Label() = %q, want %q", got, want)
	}
	if got, want := s.ParamLabel(), "cat3-gf256-short-r3"; got != want {
		t.Errorf("ParamLabel() = %q, want %q", got, want)
	}
	if got := Canonical.Label(); got != "cat1_gf16_fast_r5" {
		t.Errorf("Canonical.Label() = %q", got)
	}
}

func TestAxisValues(t *testing.T) {
	tests := []struct {
		cat  Category
		bits int
	}{
		{Cat1, 128},
		{Cat3, 192},
		{Cat5, 256},
	}
	for _, tt := range tests {
		if got := tt.cat.Bits(); got != tt.bits {
			t.Errorf("%s.Bits() = %d, want %d", tt.cat, got, tt.bits)
		}
	}
	if GF2.Size() != 2 || GF16.Size() != 16 || GF256.Size() != 256 {
		t.Error("unexpected field sizes")
	}
	if Short.Flag() != 1 || Fast.Flag() != 0 {
		t.Error("unexpected tradeoff flags")
	}
}

func TestNewRejectsInvalidAxis(t *testing.T) {
	if _, err := New(Category(2), GF16, Fast, R5); !errors.Is(err, ErrInvalidAxis) {
		t.Errorf("New(cat2) error = %v, want ErrInvalidAxis", err)
	}
	if _, err := New(Cat1, Field(3), Fast, R5); !errors.Is(err, ErrInvalidAxis) {
		t.Errorf("New(field 3) error = %v, want ErrInvalidAxis", err)
	}
	if _, err := New(Cat1, GF16, Fast, Rounds(4)); !errors.Is(err, ErrInvalidAxis) {
		t.Errorf("New(r4) error = %v, want ErrInvalidAxis", err)
	}
}

func TestExpandCategory(t *testing.T) {
	got, err := Expand([]string{"cat1"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("len = %d, want 12 (3 fields x 2 tradeoffs x 2 rounds)", len(got))
	}
	for _, s := range got {
		if s.Category() != Cat1 {
			t.Errorf("unexpected scheme %s", s)
		}
	}
}

func TestExpandCategoryField(t *testing.T) {
	got, err := Expand([]string{"cat1_gf2"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	for _, s := range got {
		if s.Category() != Cat1 || s.Field() != GF2 {
			t.Errorf("unexpected scheme %s", s)
		}
	}
}

func TestExpandIsNotHierarchical(t *testing.T) {
	got, err := Expand([]string{"cat1_gf2", "cat3_gf256_short"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := map[string]bool{
		"cat1_gf2_fast_r5":    true,
		"cat1_gf2_fast_r3":    true,
		"cat1_gf2_short_r5":   true,
		"cat1_gf2_short_r3":   true,
		"cat3_gf256_short_r5": true,
		"cat3_gf256_short_r3": true,
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %v", len(got), len(want), got)
	}
	for _, s := range got {
		if !want[s.Label()] {
			t.Errorf("unexpected scheme %s", s)
		}
	}
}

func TestExpandAll(t *testing.T) {
	got, err := Expand([]string{"all"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 36 {
		t.Errorf("len = %d, want 36", len(got))
	}
}

func TestExpandFullLabel(t *testing.T) {
	got, err := Expand([]string{"cat1_gf2_fast_r5"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 1 || got[0].Label() != "cat1_gf2_fast_r5" {
		t.Errorf("got %v", got)
	}
}

func TestExpandOverlappingTokensNoDuplicates(t *testing.T) {
	got, err := Expand([]string{"cat5", "cat5_gf16", "cat5_gf16_fast_r3"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 12 {
		t.Errorf("len = %d, want 12", len(got))
	}
}

func TestExpandInvalidToken(t *testing.T) {
	_, err := Expand([]string{"cat1", "cat2"})
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}

func TestTokens(t *testing.T) {
	// all + 3 cats + 9 fields + 18 tradeoffs + 36 labels
	if got := len(Tokens()); got != 1+3+9+18+36 {
		t.Errorf("len(Tokens()) = %d", got)
	}
}

func TestLookup(t *testing.T) {
	s, err := Lookup("cat5_gf2_short_r3")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if s.Category() != Cat5 || s.Field() != GF2 || s.Tradeoff() != Short || s.Rounds() != R3 {
		t.Errorf("Lookup returned %v", s)
	}

	for _, label := range []string{"cat1", "cat1_gf2", "cat1_gf2_fast", "nope"} {
		if _, err := Lookup(label); !errors.Is(err, ErrUnknownScheme) {
			t.Errorf("Lookup(%q) error = %v, want ErrUnknownScheme", label, err)
		}
	}
}
