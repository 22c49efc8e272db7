package statslog

import (
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/mqom2-manage/pkg/report"
)

// Row is the flat columnar form of a benchmark record.
type Row struct {
	RunID           string  `parquet:"run_id"`
	Path            string  `parquet:"path"`
	Name            string  `parquet:"name"`
	Version         string  `parquet:"version"`
	InstructionSets string  `parquet:"instruction_sets"`
	Compilation     string  `parquet:"compilation"`
	Debug           string  `parquet:"debug"`
	Correctness     int64   `parquet:"correctness"`
	KeyGenMs        float64 `parquet:"keygen_ms"`
	KeyGenStd       float64 `parquet:"keygen_std"`
	SignMs          float64 `parquet:"sign_ms"`
	SignStd         float64 `parquet:"sign_std"`
	VerifMs         float64 `parquet:"verif_ms"`
	VerifStd        float64 `parquet:"verif_std"`
	PKSize          int64   `parquet:"pk_size"`
	SKSize          int64   `parquet:"sk_size"`
	SigSizeMax      int64   `parquet:"sig_size_max"`
	SigSize         float64 `parquet:"sig_size"`
	SigSizeStd      float64 `parquet:"sig_size_std"`
	Timestamp       float64 `parquet:"timestamp"`

	KeyGenCycles *float64 `parquet:"keygen_cycles,optional"`
	SignCycles   *float64 `parquet:"sign_cycles,optional"`
	VerifCycles  *float64 `parquet:"verif_cycles,optional"`

	// Detailed is the phase breakdown as JSON; empty when absent.
	Detailed string `parquet:"detailed,optional"`
	Hostname string `parquet:"hostname,optional"`
}

// Rows flattens records into parquet rows.
func Rows(recs []report.BenchmarkRecord) ([]Row, error) {
	rows := make([]Row, len(recs))
	for i, r := range recs {
		row := Row{
			RunID:           r.RunID,
			Path:            r.Path,
			Name:            r.Name,
			Version:         r.Version,
			InstructionSets: r.InstructionSets,
			Compilation:     r.Compilation,
			Debug:           r.Debug,
			Correctness:     r.Correctness,
			KeyGenMs:        r.KeyGen[0],
			KeyGenStd:       r.KeyGen[1],
			SignMs:          r.Sign[0],
			SignStd:         r.Sign[1],
			VerifMs:         r.Verif[0],
			VerifStd:        r.Verif[1],
			PKSize:          r.PKSize,
			SKSize:          r.SKSize,
			SigSizeMax:      r.SigSizeMax,
			SigSize:         r.SigSize[0],
			SigSizeStd:      r.SigSize[1],
			Timestamp:       r.Timestamp,
			KeyGenCycles:    r.KeyGenCycles,
			SignCycles:      r.SignCycles,
			VerifCycles:     r.VerifCycles,
		}
		if len(r.Detailed) > 0 {
			data, err := json.Marshal(r.Detailed)
			if err != nil {
				return nil, fmt.Errorf("marshal breakdown of %s: %w", r.Path, err)
			}
			row.Detailed = string(data)
		}
		if r.Host != nil {
			row.Hostname = r.Host.Hostname
		}
		rows[i] = row
	}
	return rows, nil
}

// ExportParquet writes recs to a parquet file at path.
func ExportParquet(path string, recs []report.BenchmarkRecord) error {
	rows, err := Rows(recs)
	if err != nil {
		return err
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}
