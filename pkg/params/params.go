// Package params renders the per-variant parameters.h header and the
// compiler flags that select a variant in the external build.
package params

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eunmann/mqom2-manage/pkg/variant"
)

// Variant macro names.
const (
	MacroSecurity  = "MQOM2_PARAM_SECURITY"
	MacroBaseField = "MQOM2_PARAM_BASE_FIELD"
	MacroTradeoff  = "MQOM2_PARAM_TRADEOFF"
	MacroNbRounds  = "MQOM2_PARAM_NBROUNDS"

	// DefinePrefix marks compiler flags that select a variant.
	DefinePrefix = "-DMQOM2_PARAM_"

	guard = "__PARAMETERS_H__"
)

// Macro is a single #define, with an optional value.
type Macro struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// Section is a group of macros introduced by an optional comment line.
type Section struct {
	Comment string  `yaml:"comment,omitempty"`
	Macros  []Macro `yaml:"macros"`
}

// Block is a run of sections terminated by a blank line.
type Block struct {
	Sections []Section `yaml:"sections"`
}

// Profile is the set of build-tuning toggles appended after the variant
// macros. The same profile applies to every variant.
type Profile struct {
	Blocks []Block `yaml:"blocks"`
}

// DefaultProfile returns the embedded-target profile: reference field
// arithmetic, bitsliced Rijndael, all memory optimizations and the MUPQ
// platform markers.
func DefaultProfile() Profile {
	return Profile{Blocks: []Block{
		{Sections: []Section{
			{Comment: "Fields conf: ref implementation", Macros: []Macro{{Name: "FIELDS_REF"}}},
			{Comment: "Rijndael conf: bitslice (actually underlying MUPQ implementation for cat1 with the MQOM2_FOR_MUPQ toggle)", Macros: []Macro{{Name: "RIJNDAEL_BITSLICE"}}},
			{Comment: "Options activated for memory optimization", Macros: []Macro{
				{Name: "MEMORY_EFFICIENT_BLC"},
				{Name: "MEMORY_EFFICIENT_PIOP"},
				{Name: "MEMORY_EFFICIENT_KEYGEN"},
				{Name: "USE_ENC_X8"},
				{Name: "USE_XOF_X4"},
			}},
		}},
		{Sections: []Section{
			{Comment: "Specifically target MUPQ", Macros: []Macro{{Name: "MQOM2_FOR_MUPQ"}}},
		}},
		{Sections: []Section{
			{Comment: "Do not mess with sections as the PQM4 framework uses them", Macros: []Macro{{Name: "NO_EMBEDDED_SRAM_SECTION"}}},
		}},
	}}
}

// LoadProfile reads a YAML profile.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

func (p Profile) validate() error {
	for _, b := range p.Blocks {
		for _, s := range b.Sections {
			for _, m := range s.Macros {
				if m.Name == "" || strings.ContainsAny(m.Name, " \t\n") {
					return fmt.Errorf("%w: %q", ErrInvalidMacro, m.Name)
				}
				if strings.HasPrefix(m.Name, "MQOM2_PARAM_") {
					return fmt.Errorf("%w: %s is a variant macro", ErrInvalidMacro, m.Name)
				}
			}
		}
	}
	return nil
}

// Values returns the four variant macros in header order.
func Values(s variant.Scheme) []Macro {
	return []Macro{
		{Name: MacroSecurity, Value: strconv.Itoa(s.Category().Bits())},
		{Name: MacroBaseField, Value: strconv.Itoa(int(s.Field()))},
		{Name: MacroTradeoff, Value: strconv.Itoa(s.Tradeoff().Flag())},
		{Name: MacroNbRounds, Value: strconv.Itoa(int(s.Rounds()))},
	}
}

// Generate renders parameters.h for s with the default profile.
func Generate(s variant.Scheme) string {
	return DefaultProfile().Generate(s)
}

// Generate renders parameters.h for s.
func (p Profile) Generate(s variant.Scheme) string {
	var b strings.Builder
	b.WriteString("#ifndef " + guard + "\n#define " + guard + "\n\n")
	for _, m := range Values(s) {
		writeMacro(&b, m)
	}
	b.WriteString("\n")
	for _, blk := range p.Blocks {
		for _, sec := range blk.Sections {
			if sec.Comment != "" {
				b.WriteString("/* " + sec.Comment + " */\n")
			}
			for _, m := range sec.Macros {
				writeMacro(&b, m)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("#endif /* " + guard + " */\n")
	return b.String()
}

func writeMacro(b *strings.Builder, m Macro) {
	b.WriteString("#define " + m.Name)
	if m.Value != "" {
		b.WriteString(" " + m.Value)
	}
	b.WriteString("\n")
}

// Defines returns the -D flags selecting s.
func Defines(s variant.Scheme) []string {
	vals := Values(s)
	out := make([]string, len(vals))
	for i, m := range vals {
		out[i] = "-D" + m.Name + "=" + m.Value
	}
	return out
}

// CFlags strips any variant selection from base and appends the defines of s.
func CFlags(base string, s variant.Scheme) string {
	var kept []string
	for _, f := range strings.Fields(base) {
		if strings.Contains(f, DefinePrefix) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(append(kept, Defines(s)...), " ")
}
