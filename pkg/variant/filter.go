package variant

import (
	"fmt"
	"sort"
)

// Wildcard selects every scheme.
const Wildcard = "all"

// Tokens returns every legal filter token: the wildcard, then every prefix of
// every label at depth 1 to 4.
func Tokens() []string {
	out := []string{Wildcard}
	for _, c := range Categories {
		cat := c.String()
		out = append(out, cat)
		for _, f := range Fields {
			field := cat + "_" + f.String()
			out = append(out, field)
			for _, t := range Tradeoffs {
				trade := field + "_" + t.String()
				out = append(out, trade)
				for _, r := range RoundSets {
					out = append(out, trade+"_"+r.String())
				}
			}
		}
	}
	return out
}

// Labels returns the labels of all schemes.
func Labels() []string {
	all := All()
	out := make([]string, len(all))
	for i, s := range all {
		out[i] = s.Label()
	}
	return out
}

// Validate checks every token against the legal token set.
func Validate(tokens []string) error {
	legal := make(map[string]struct{})
	for _, t := range Tokens() {
		legal[t] = struct{}{}
	}
	var bad []string
	for _, t := range tokens {
		if _, ok := legal[t]; !ok {
			bad = append(bad, t)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("%w: %q", ErrInvalidToken, bad)
	}
	return nil
}

// Expand returns the schemes selected by tokens, in All() order.
//
// A scheme is selected when the token set contains the wildcard, its category
// prefix, its category+field prefix, its category+field+tradeoff prefix or its
// full label. Each test is independent: "cat1_gf2" selects the four gf2
// schemes of category 1 and nothing else.
func Expand(tokens []string) ([]Scheme, error) {
	if err := Validate(tokens); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	has := func(k string) bool {
		_, ok := set[k]
		return ok
	}

	var out []Scheme
	includeAll := has(Wildcard)
	for _, s := range All() {
		cat := s.category.String()
		field := cat + "_" + s.field.String()
		trade := field + "_" + s.tradeoff.String()
		if includeAll || has(cat) || has(field) || has(trade) || has(s.Label()) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Lookup returns the scheme with the exact label.
func Lookup(label string) (Scheme, error) {
	for _, s := range All() {
		if s.Label() == label {
			return s, nil
		}
	}
	return Scheme{}, fmt.Errorf("%w: %q", ErrUnknownScheme, label)
}
