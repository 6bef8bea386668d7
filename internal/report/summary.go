package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/orchestrator"
)

// SummaryTitle heads the summary in the log and on the console.
const SummaryTitle = "Hybrid MSA Summary Report"

// Params is the exported form of a msa.ParameterSet.
type Params struct {
	Method    string  `json:"method" yaml:"method" toml:"method"`
	GapOpen   float64 `json:"gap_open" yaml:"gap_open" toml:"gap_open"`
	GapExtend float64 `json:"gap_extend" yaml:"gap_extend" toml:"gap_extend"`
	MaxIter   int     `json:"max_iter" yaml:"max_iter" toml:"max_iter"`
}

func exportParams(p msa.ParameterSet) Params {
	return Params{Method: p.Method, GapOpen: p.GapOpen, GapExtend: p.GapExtend, MaxIter: p.MaxIter}
}

// Summary describes a finished run.
type Summary struct {
	RunID           string  `json:"run_id" yaml:"run_id" toml:"run_id"`
	GeneratedAt     string  `json:"generated_at" yaml:"generated_at" toml:"generated_at"`
	Input           string  `json:"input" yaml:"input" toml:"input"`
	Output          string  `json:"output" yaml:"output" toml:"output"`
	Format          string  `json:"format" yaml:"format" toml:"format"`
	Mode            string  `json:"mode" yaml:"mode" toml:"mode"`
	SeqType         string  `json:"seq_type" yaml:"seq_type" toml:"seq_type"`
	InputSequences  int     `json:"input_sequences" yaml:"input_sequences" toml:"input_sequences"`
	Residues        int     `json:"residues" yaml:"residues" toml:"residues"`
	Chunks          int     `json:"chunks" yaml:"chunks" toml:"chunks"`
	FinalSequences  int     `json:"final_sequences" yaml:"final_sequences" toml:"final_sequences"`
	AlignmentLength int     `json:"alignment_length" yaml:"alignment_length" toml:"alignment_length"`
	Divergence      float64 `json:"divergence" yaml:"divergence" toml:"divergence"`
	ChunkParams     Params  `json:"chunk_params" yaml:"chunk_params" toml:"chunk_params"`
	RefineParams    Params  `json:"refine_params" yaml:"refine_params" toml:"refine_params"`
	Mafft           string  `json:"mafft,omitempty" yaml:"mafft,omitempty" toml:"mafft,omitempty"`
	Muscle          string  `json:"muscle,omitempty" yaml:"muscle,omitempty" toml:"muscle,omitempty"`
	RuntimeSeconds  float64 `json:"runtime_seconds" yaml:"runtime_seconds" toml:"runtime_seconds"`
}

// RunInfo carries the run facts that the pipeline result does not hold.
type RunInfo struct {
	Input  string
	Output string
	Format string
	Mode   msa.Mode
	Mafft  string
	Muscle string
}

// NewSummary builds a Summary from a pipeline result.
func NewSummary(res *orchestrator.Result, info RunInfo) Summary {
	return Summary{
		RunID:           res.RunID,
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		Input:           info.Input,
		Output:          info.Output,
		Format:          info.Format,
		Mode:            string(info.Mode),
		SeqType:         res.SeqType.String(),
		InputSequences:  res.Merged.Len(),
		Residues:        res.Residues,
		Chunks:          res.Chunks,
		FinalSequences:  res.Final.Len(),
		AlignmentLength: res.Final.Columns(),
		Divergence:      float64(res.Divergence),
		ChunkParams:     exportParams(res.ChunkParams),
		RefineParams:    exportParams(res.RefineParams),
		Mafft:           info.Mafft,
		Muscle:          info.Muscle,
		RuntimeSeconds:  res.Elapsed.Seconds(),
	}
}

// Runtime returns the run duration.
func (s Summary) Runtime() time.Duration {
	return time.Duration(s.RuntimeSeconds * float64(time.Second))
}

// Log writes the summary as a single structured record.
func (s Summary) Log(log *logging.Logger) {
	log.Info(SummaryTitle,
		"run_id", s.RunID,
		"input_sequences", s.InputSequences,
		"residues", s.Residues,
		"chunks", s.Chunks,
		"final_sequences", s.FinalSequences,
		"alignment_length", s.AlignmentLength,
		"divergence", s.Divergence,
		"runtime", s.Runtime().Round(time.Millisecond).String(),
	)
}

// WriteText prints the human-readable summary block.
func (s Summary) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	rule := strings.Repeat("=", 50)
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, SummaryTitle)
	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "Input sequences:   %d\n", s.InputSequences)
	fmt.Fprintf(bw, "Residues:          %d\n", s.Residues)
	fmt.Fprintf(bw, "Sequence type:     %s\n", s.SeqType)
	fmt.Fprintf(bw, "Divergence:        %.4f\n", s.Divergence)
	fmt.Fprintf(bw, "Chunks:            %d\n", s.Chunks)
	fmt.Fprintf(bw, "Chunk parameters:  %s (op %g, ep %g, maxiter %d)\n", s.ChunkParams.Method, s.ChunkParams.GapOpen, s.ChunkParams.GapExtend, s.ChunkParams.MaxIter)
	fmt.Fprintf(bw, "Refine parameters: %s (maxiter %d)\n", s.RefineParams.Method, s.RefineParams.MaxIter)
	fmt.Fprintf(bw, "Final sequences:   %d\n", s.FinalSequences)
	fmt.Fprintf(bw, "Alignment length:  %d\n", s.AlignmentLength)
	fmt.Fprintf(bw, "Runtime:           %s\n", s.Runtime().Round(time.Millisecond))
	if s.Output != "" {
		fmt.Fprintf(bw, "Output:            %s (%s)\n", s.Output, s.Format)
	}
	fmt.Fprintln(bw, rule)
	return bw.Flush()
}

// Encode serializes the summary. format is json, yaml, or toml.
func (s Summary) Encode(w io.Writer, format string) error {
	switch format {
	case "json":
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		return enc.Close()
	case "toml":
		if err := toml.NewEncoder(w).Encode(s); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		return nil
	default:
		return msa.InvalidConfig("summary", "unsupported summary format %q (want json, yaml or toml)", format)
	}
}

// SummaryFormat infers the export format from a file extension.
func SummaryFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	case ".toml":
		return "toml", nil
	default:
		return "", msa.InvalidConfig("summary", "cannot infer summary format from %q (use .json, .yaml or .toml)", path)
	}
}

// WriteFile exports the summary to path in the format its extension names.
func (s Summary) WriteFile(path string) error {
	format, err := SummaryFormat(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create summary directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	if err := s.Encode(f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
