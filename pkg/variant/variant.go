// Package variant models the MQOM2 parameter matrix and expands command-line
// filter tokens into concrete schemes.
//
// A scheme is selected along four independent axes: security category, base
// field, size/speed tradeoff and number of rounds. The label of a scheme
// (e.g. "cat1_gf16_fast_r5") is its external identifier: it names
// executables, KAT directories and stats records.
package variant

import (
	"fmt"
	"strconv"
)

// Category is the NIST security category (1, 3 or 5).
type Category int

// Security categories.
const (
	Cat1 Category = 1
	Cat3 Category = 3
	Cat5 Category = 5
)

// Bits returns the classical security strength of the category.
func (c Category) Bits() int {
	switch c {
	case Cat1:
		return 128
	case Cat3:
		return 192
	case Cat5:
		return 256
	default:
		return 0
	}
}

func (c Category) String() string {
	return "cat" + strconv.Itoa(int(c))
}

// Field is the base field, stored as the exponent of its size (GF(2^Field)).
type Field int

// Base fields.
const (
	GF2   Field = 1
	GF16  Field = 4
	GF256 Field = 8
)

// Size returns the number of elements of the field.
func (f Field) Size() int {
	return 1 << uint(f)
}

func (f Field) String() string {
	return "gf" + strconv.Itoa(f.Size())
}

// Tradeoff selects between fast signing and short signatures.
type Tradeoff int

// Tradeoffs. The numeric value is the MQOM2_PARAM_TRADEOFF flag.
const (
	Fast  Tradeoff = 0
	Short Tradeoff = 1
)

// Flag returns the value of the tradeoff build macro.
func (t Tradeoff) Flag() int {
	return int(t)
}

func (t Tradeoff) String() string {
	if t == Short {
		return "short"
	}
	return "fast"
}

// Rounds is the number of rounds of the protocol (3 or 5).
type Rounds int

// Round variants.
const (
	R3 Rounds = 3
	R5 Rounds = 5
)

func (r Rounds) String() string {
	return "r" + strconv.Itoa(int(r))
}

// Axis value sets, in enumeration order.
var (
	Categories = []Category{Cat1, Cat3, Cat5}
	Fields     = []Field{GF16, GF2, GF256}
	Tradeoffs  = []Tradeoff{Fast, Short}
	RoundSets  = []Rounds{R5, R3}
)

// Scheme is one concrete parameterization of the signature scheme.
// Schemes are comparable values and never change once built.
type Scheme struct {
	category Category
	field    Field
	tradeoff Tradeoff
	rounds   Rounds
}

// New returns the scheme for the given axis values.
func New(c Category, f Field, t Tradeoff, r Rounds) (Scheme, error) {
	if c.Bits() == 0 {
		return Scheme{}, fmt.Errorf("%w: category %d", ErrInvalidAxis, int(c))
	}
	switch f {
	case GF2, GF16, GF256:
	default:
		return Scheme{}, fmt.Errorf("%w: field exponent %d", ErrInvalidAxis, int(f))
	}
	if t != Fast && t != Short {
		return Scheme{}, fmt.Errorf("%w: tradeoff %d", ErrInvalidAxis, int(t))
	}
	if r != R3 && r != R5 {
		return Scheme{}, fmt.Errorf("%w: rounds %d", ErrInvalidAxis, int(r))
	}
	return Scheme{category: c, field: f, tradeoff: t, rounds: r}, nil
}

// MustNew is like New but panics on invalid axis values.
func MustNew(c Category, f Field, t Tradeoff, r Rounds) Scheme {
	s, err := New(c, f, t, r)
	if err != nil {
		panic(err)
	}
	return s
}

// Canonical is the scheme whose release instance physically stores the
// shared sources.
var Canonical = Scheme{category: Cat1, field: GF16, tradeoff: Fast, rounds: R5}

// Category returns the security category.
func (s Scheme) Category() Category { return s.category }

// Field returns the base field.
func (s Scheme) Field() Field { return s.field }

// Tradeoff returns the tradeoff.
func (s Scheme) Tradeoff() Tradeoff { return s.tradeoff }

// Rounds returns the round count.
func (s Scheme) Rounds() Rounds { return s.rounds }

// IsZero reports whether s is the zero Scheme.
func (s Scheme) IsZero() bool { return s == Scheme{} }

// Label returns the unique identifier "<cat>_<field>_<tradeoff>_<rounds>".
func (s Scheme) Label() string {
	return s.category.String() + "_" + s.field.String() + "_" + s.tradeoff.String() + "_" + s.rounds.String()
}

// ParamLabel returns the dashed form used by per-variant parameter headers,
// e.g. "cat1-gf16-fast-r5".
func (s Scheme) ParamLabel() string {
	return s.category.String() + "-" + s.field.String() + "-" + s.tradeoff.String() + "-" + s.rounds.String()
}

func (s Scheme) String() string {
	return s.Label()
}

// All returns the full cross-product of the four axes.
func All() []Scheme {
	out := make([]Scheme, 0, len(Categories)*len(Fields)*len(Tradeoffs)*len(RoundSets))
	for _, c := range Categories {
		for _, f := range Fields {
			for _, t := range Tradeoffs {
				for _, r := range RoundSets {
					out = append(out, Scheme{category: c, field: f, tradeoff: t, rounds: r})
				}
			}
		}
	}
	return out
}
