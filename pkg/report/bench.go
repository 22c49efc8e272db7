package report

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/eunmann/mqom2-manage/pkg/hostinfo"
)

// Pair is a (first, second) measurement such as (mean, std) or (ms, cycles).
// It is encoded as a two-element JSON array.
type Pair [2]float64

// Phase timings grouped by protocol stage, then by sub-phase. Each entry is
// (milliseconds, cycles).
type PhaseBreakdown map[string]map[string]Pair

// BenchmarkRecord is the structured form of one bench report.
type BenchmarkRecord struct {
	Path            string  `json:"path"`
	Name            string  `json:"name"`
	Version         string  `json:"version"`
	InstructionSets string  `json:"instruction_sets"`
	Compilation     string  `json:"compilation"`
	Debug           string  `json:"debug"`
	Correctness     int64   `json:"correctness"`
	KeyGen          Pair    `json:"keygen"`
	Sign            Pair    `json:"sign"`
	Verif           Pair    `json:"verif"`
	PKSize          int64   `json:"pk_size"`
	SKSize          int64   `json:"sk_size"`
	SigSizeMax      int64   `json:"sig_size_max"`
	SigSize         Pair    `json:"sig_size"`
	Timestamp       float64 `json:"timestamp"`

	KeyGenCycles *float64 `json:"keygen_cycles,omitempty"`
	SignCycles   *float64 `json:"sign_cycles,omitempty"`
	VerifCycles  *float64 `json:"verif_cycles,omitempty"`

	Detailed PhaseBreakdown `json:"detailed,omitempty"`

	RunID string         `json:"run_id,omitempty"`
	Host  *hostinfo.Info `json:"host,omitempty"`
}

// stage describes one protocol stage of the detailed breakdown.
type stage struct {
	key    string
	phases [][2]string // sub-phase key, label printed by the bench tool
}

var stages = []stage{
	{key: "expand_mq", phases: [][2]string{
		{"total", "ExpandMQ"},
	}},
	{key: "blc_commit", phases: [][2]string{
		{"total", "BLC.Commit"},
		{"expand_trees", "[BLC.Commit] Expand Trees"},
		{"keysch_commit", "[BLC.Commit] KeySch. Commit"},
		{"seed_commit", "[BLC.Commit] Seed Commit"},
		{"prg", "[BLC.Commit] PRG"},
		{"xof", "[BLC.Commit] XOF"},
		{"arithm", "[BLC.Commit] Arithm"},
		{"global_xof", "[BLC.Commit] Global XOF"},
	}},
	{key: "piop_compute", phases: [][2]string{
		{"total", "PIOP.Compute"},
		{"expand_batching_mat", "[PIOP.Compute] Expand Batching Mat"},
		{"matrix_mult_ext", "[PIOP.Compute] Matrix Mul Ext"},
		{"compute_t1", "[PIOP.Compute] Compute t1"},
		{"compute_p_zi", "[PIOP.Compute] Compute P_zi"},
		{"batch", "[PIOP.Compute] Batch"},
		{"add_masks", "[PIOP.Compute] Add Masks"},
	}},
	{key: "sample_challenge", phases: [][2]string{
		{"total", "Sample Challenge"},
	}},
	{key: "blc_open", phases: [][2]string{
		{"total", "BLC.Open"},
	}},
}

// BenchFields returns the grammar of a bench report run with reps repetitions.
func BenchFields(reps int) []Field {
	fields := []Field{
		{Name: "name", Pattern: `\[API\] Algo Name: (.+)`, Kind: KindString, Group: Required},
		{Name: "version", Pattern: `\[API\] Algo Version: (.+)`, Kind: KindString, Group: Required},
		{Name: "instruction_sets", Pattern: `Instruction Sets:\s*(\S.+)?`, Kind: KindString, Group: Required},
		{Name: "debug", Pattern: `Debug: (.+)`, Kind: KindString, Group: Required},
		{Name: "correctness", Pattern: `Correctness: (.+)/` + strconv.Itoa(reps), Kind: KindInt, Group: Required},
		{Name: "keygen", Pattern: ` - Key Gen: (.+) ms \(std=(.+)\)`, Kind: KindPair, Group: Required},
		{Name: "sign", Pattern: ` - Sign:    (.+) ms \(std=(.+)\)`, Kind: KindPair, Group: Required},
		{Name: "verif", Pattern: ` - Verify:  (.+) ms \(std=(.+)\)`, Kind: KindPair, Group: Required},
		{Name: "pk_size", Pattern: ` - PK size: (.+) B`, Kind: KindInt, Group: Required},
		{Name: "sk_size", Pattern: ` - SK size: (.+) B`, Kind: KindInt, Group: Required},
		{Name: "sig_size_max", Pattern: ` - Signature size \(MAX\): (.+) B`, Kind: KindInt, Group: Required},
		{Name: "sig_size", Pattern: ` - Signature size: (.+) B \(std=(.+)\)`, Kind: KindPair, Group: Required},

		{Name: "keygen_cycles", Pattern: ` - Key Gen: (.+) cycles`, Kind: KindFloat, Group: Cycles},
		{Name: "sign_cycles", Pattern: ` - Sign:    (.+) cycles`, Kind: KindFloat, Group: Cycles},
		{Name: "verif_cycles", Pattern: ` - Verify:  (.+) cycles`, Kind: KindFloat, Group: Cycles},
	}
	for _, st := range stages {
		for _, ph := range st.phases {
			fields = append(fields, Field{
				Name:    breakdownField(st.key, ph[0]),
				Pattern: `.*- ` + regexp.QuoteMeta(ph[1]) + `: (.+?)\s*ms\s*\((.+?)\s*cycles\)`,
				Kind:    KindPair,
				Group:   Breakdown,
			})
		}
	}
	return fields
}

func breakdownField(stageKey, phaseKey string) string {
	return "detailed_" + stageKey + "_" + phaseKey
}

// ParseBench parses a bench report. Required fields must all be present;
// the cycle counters and the detailed breakdown are omitted when the build
// was not instrumented for them.
func ParseBench(output string, reps int) (*BenchmarkRecord, error) {
	g, err := NewGrammar(BenchFields(reps))
	if err != nil {
		return nil, err
	}
	res, err := g.Evaluate(output)
	if err != nil {
		return nil, fmt.Errorf("parse bench report: %w", err)
	}

	v := res.Values
	rec := &BenchmarkRecord{
		Name:            v["name"].(string),
		Version:         v["version"].(string),
		InstructionSets: v["instruction_sets"].(string),
		Debug:           v["debug"].(string),
		Correctness:     v["correctness"].(int64),
		KeyGen:          v["keygen"].([2]float64),
		Sign:            v["sign"].([2]float64),
		Verif:           v["verif"].([2]float64),
		PKSize:          v["pk_size"].(int64),
		SKSize:          v["sk_size"].(int64),
		SigSizeMax:      v["sig_size_max"].(int64),
		SigSize:         v["sig_size"].([2]float64),
	}

	if res.Has(Cycles) {
		rec.KeyGenCycles = floatPtr(v["keygen_cycles"])
		rec.SignCycles = floatPtr(v["sign_cycles"])
		rec.VerifCycles = floatPtr(v["verif_cycles"])
	}

	if res.Has(Breakdown) {
		rec.Detailed = make(PhaseBreakdown, len(stages))
		for _, st := range stages {
			phases := make(map[string]Pair, len(st.phases))
			for _, ph := range st.phases {
				phases[ph[0]] = v[breakdownField(st.key, ph[0])].([2]float64)
			}
			rec.Detailed[st.key] = phases
		}
	}
	return rec, nil
}

func floatPtr(v any) *float64 {
	f := v.(float64)
	return &f
}
