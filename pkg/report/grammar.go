package report

import (
	"fmt"
	"regexp"
	"strconv"
)

// Kind is the expected type of a field value.
type Kind int

// Field kinds.
const (
	KindString Kind = iota // raw captured text
	KindInt                // int64
	KindFloat              // float64, integers widened
	KindPair               // two numeric groups, as [2]float64
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindPair:
		return "pair"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Group names a set of fields that is extracted as a whole.
type Group string

// Field groups. Fields of Required must all be present; a failure in any
// other group drops that whole group from the result.
const (
	Required  Group = "required"
	Cycles    Group = "cycles"
	Breakdown Group = "breakdown"
)

// Field is one grammar entry.
type Field struct {
	Name    string
	Pattern string
	Kind    Kind
	Group   Group
}

type compiledField struct {
	Field
	re *regexp.Regexp
}

// Grammar is an ordered list of fields evaluated against a report.
type Grammar struct {
	fields []compiledField
}

// NewGrammar compiles the field patterns.
func NewGrammar(fields []Field) (*Grammar, error) {
	g := &Grammar{fields: make([]compiledField, 0, len(fields))}
	for _, f := range fields {
		re, err := Compile(f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		if f.Kind == KindPair && re.NumSubexp() != 2 {
			return nil, fmt.Errorf("field %s: pair pattern needs 2 groups, has %d", f.Name, re.NumSubexp())
		}
		if f.Kind != KindPair && re.NumSubexp() != 1 {
			return nil, fmt.Errorf("field %s: pattern needs 1 group, has %d", f.Name, re.NumSubexp())
		}
		g.fields = append(g.fields, compiledField{Field: f, re: re})
	}
	return g, nil
}

// Result is the outcome of evaluating a grammar.
type Result struct {
	// Values maps field names to string, int64, float64 or [2]float64.
	Values map[string]any
	// Dropped lists the optional groups that failed, with the first error.
	Dropped map[Group]error
}

// Has reports whether every field of the group was extracted.
func (r *Result) Has(g Group) bool {
	_, dropped := r.Dropped[g]
	return !dropped
}

// Evaluate runs every field against report. The first failing Required field
// aborts evaluation; failures in other groups only drop their group.
func (g *Grammar) Evaluate(report string) (*Result, error) {
	lines := Lines(report)
	res := &Result{
		Values:  make(map[string]any, len(g.fields)),
		Dropped: make(map[Group]error),
	}
	for _, f := range g.fields {
		if _, dropped := res.Dropped[f.Group]; dropped {
			continue
		}
		v, err := f.extract(lines)
		if err != nil {
			if f.Group == Required {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			res.Dropped[f.Group] = fmt.Errorf("field %s: %w", f.Name, err)
			continue
		}
		res.Values[f.Name] = v
	}
	for _, f := range g.fields {
		if _, dropped := res.Dropped[f.Group]; dropped {
			delete(res.Values, f.Name)
		}
	}
	return res, nil
}

func (f compiledField) extract(lines []string) (any, error) {
	raw, err := matchRaw(lines, f.re)
	if err != nil {
		return nil, err
	}
	switch f.Kind {
	case KindString:
		return raw[0], nil
	case KindInt:
		v, ok := Coerce(raw[0]).(int64)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not an int", ErrType, raw[0])
		}
		return v, nil
	case KindFloat:
		v, ok := toFloat(Coerce(raw[0]))
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a number", ErrType, raw[0])
		}
		return v, nil
	case KindPair:
		a, okA := toFloat(Coerce(raw[0]))
		b, okB := toFloat(Coerce(raw[1]))
		if !okA || !okB {
			return nil, fmt.Errorf("%w: (%q, %q) is not a numeric pair", ErrType, raw[0], raw[1])
		}
		return [2]float64{a, b}, nil
	default:
		return nil, fmt.Errorf("%w: kind %s", ErrType, f.Kind)
	}
}

// matchRaw returns the raw groups of the first fully matching line.
// Groups that did not participate are returned as "".
func matchRaw(lines []string, re *regexp.Regexp) ([]string, error) {
	for _, line := range lines {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return m[1:], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoMatch, re.String())
}
