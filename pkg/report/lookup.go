// Package report extracts structured benchmark records from the textual
// output of the bench executables.
//
// Parsing is line based: a pattern must match a whole line, and the first
// matching line wins. Captured groups are coerced to int64, then float64,
// then left as strings.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Tuple holds the coerced values of a pattern with several capture groups.
type Tuple []any

// Float returns element i as a float64. Integers are widened.
func (t Tuple) Float(i int) (float64, bool) {
	if i >= len(t) {
		return 0, false
	}
	return toFloat(t[i])
}

// Lines splits a report into lines.
func Lines(report string) []string {
	return strings.Split(report, "\n")
}

// Compile anchors pattern so that it only matches whole lines.
func Compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", pattern, err)
	}
	return re, nil
}

// Lookup returns the value captured by pattern on the first fully matching
// line of report. A single group yields a scalar, several groups a Tuple.
// ErrNoMatch is returned when no line matches.
func Lookup(report, pattern string) (any, error) {
	re, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	return lookupLines(Lines(report), re)
}

func lookupLines(lines []string, re *regexp.Regexp) (any, error) {
	raw, err := matchRaw(lines, re)
	if err != nil {
		return nil, err
	}
	values := make(Tuple, len(raw))
	for i, s := range raw {
		values[i] = Coerce(s)
	}
	if len(values) == 1 {
		return values[0], nil
	}
	return values, nil
}

// Coerce converts a captured string to int64 if possible, else float64,
// else returns it unchanged.
func Coerce(s string) any {
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return s
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
