// Package tuning maps a sequence type, divergence score, and speed/quality
// mode to concrete parameters for the chunk and refine stages. The mapping
// policy lives in a Table, which is plain data loaded from YAML or TOML.
package tuning

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed default_table.yaml
var defaultTableYAML []byte

// ChunkMethods lists the fast-aligner method hints a table may name.
var ChunkMethods = []string{"auto", "fftns1", "fftns2", "fftnsi", "ginsi", "linsi", "einsi"}

// RefineMethods lists the accurate-aligner method hints a table may name.
var RefineMethods = []string{"refine", "align"}

// Penalties is the per-type chunk-stage setting of a tier.
type Penalties struct {
	Method    string  `yaml:"method" toml:"method"`
	GapOpen   float64 `yaml:"gap_open" toml:"gap_open"`
	GapExtend float64 `yaml:"gap_extend" toml:"gap_extend"`
}

// Tier covers divergence scores below UpTo (and above the previous tier).
type Tier struct {
	UpTo          float64   `yaml:"up_to" toml:"up_to"`
	ChunkMaxIter  int       `yaml:"chunk_max_iter" toml:"chunk_max_iter"`
	RefineMaxIter int       `yaml:"refine_max_iter" toml:"refine_max_iter"`
	RefineMethod  string    `yaml:"refine_method" toml:"refine_method"`
	Nucleotide    Penalties `yaml:"nucleotide" toml:"nucleotide"`
	Protein       Penalties `yaml:"protein" toml:"protein"`
}

// For returns the penalties for a sequence type.
func (t Tier) For(st msa.SeqType) Penalties {
	if st == msa.Protein {
		return t.Protein
	}
	return t.Nucleotide
}

// FastPolicy overrides method and iteration choices in fast mode.
type FastPolicy struct {
	ChunkMethod   string `yaml:"chunk_method" toml:"chunk_method"`
	ChunkMaxIter  int    `yaml:"chunk_max_iter" toml:"chunk_max_iter"`
	RefineMethod  string `yaml:"refine_method" toml:"refine_method"`
	RefineMaxIter int    `yaml:"refine_max_iter" toml:"refine_max_iter"`
}

// Table is the complete tuning policy.
type Table struct {
	// MaxIterCap bounds every stage's iteration count in accurate mode.
	MaxIterCap int        `yaml:"max_iter_cap" toml:"max_iter_cap"`
	Fast       FastPolicy `yaml:"fast" toml:"fast"`
	// Defaults applies at the boundary scores 0 and 1.
	Defaults Tier   `yaml:"defaults" toml:"defaults"`
	Tiers    []Tier `yaml:"tiers" toml:"tiers"`
}

// DefaultTable returns the embedded table. It panics if the embedded file is
// invalid, which only a broken build can cause.
func DefaultTable() Table {
	t, err := DecodeTable(bytes.NewReader(defaultTableYAML), FormatYAML)
	if err != nil {
		panic(fmt.Sprintf("tuning: embedded default table: %v", err))
	}
	return t
}

// Format is a table serialization.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the serialization from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", msa.InvalidConfig("tuning table", "unsupported table extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// LoadTable reads and validates a table file. An empty path returns the
// default table.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return Table{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Table{}, msa.InvalidConfig("tuning table", "open %s: %v", path, err)
	}
	defer f.Close()

	t, err := DecodeTable(f, format)
	if err != nil {
		return Table{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return t, nil
}

// DecodeTable parses and validates a table. Unknown keys are rejected.
func DecodeTable(r io.Reader, format Format) (Table, error) {
	var t Table
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil {
			return Table{}, msa.InvalidConfig("tuning table", "decode yaml: %v", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&t); err != nil {
			return Table{}, msa.InvalidConfig("tuning table", "decode toml: %v", err)
		}
	default:
		return Table{}, msa.InvalidConfig("tuning table", "unsupported format %q", format)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Encode writes the table in the given format.
func (t Table) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(t)
	default:
		return msa.InvalidConfig("tuning table", "unsupported format %q", format)
	}
}

// Validate checks the table for structural problems.
func (t Table) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if t.MaxIterCap < 0 {
		add("max_iter_cap must be >= 0, got %d", t.MaxIterCap)
	}
	if len(t.Tiers) == 0 {
		add("at least one tier is required")
	}
	if !slices.Contains(ChunkMethods, t.Fast.ChunkMethod) {
		add("fast.chunk_method %q is not one of %v", t.Fast.ChunkMethod, ChunkMethods)
	}
	if !slices.Contains(RefineMethods, t.Fast.RefineMethod) {
		add("fast.refine_method %q is not one of %v", t.Fast.RefineMethod, RefineMethods)
	}
	if t.Fast.ChunkMaxIter < 0 || t.Fast.RefineMaxIter < 0 {
		add("fast iteration limits must be >= 0")
	}

	check := func(name string, tier Tier) {
		if tier.ChunkMaxIter < 0 || tier.RefineMaxIter < 0 {
			add("%s: iteration counts must be >= 0", name)
		}
		if !slices.Contains(RefineMethods, tier.RefineMethod) {
			add("%s: refine_method %q is not one of %v", name, tier.RefineMethod, RefineMethods)
		}
		for label, p := range map[string]Penalties{"nucleotide": tier.Nucleotide, "protein": tier.Protein} {
			if !slices.Contains(ChunkMethods, p.Method) {
				add("%s.%s: method %q is not one of %v", name, label, p.Method, ChunkMethods)
			}
			if p.GapOpen < 0 || p.GapExtend < 0 {
				add("%s.%s: gap penalties must be >= 0", name, label)
			}
		}
	}

	check("defaults", t.Defaults)
	prev := 0.0
	for i, tier := range t.Tiers {
		name := fmt.Sprintf("tiers[%d]", i)
		if tier.UpTo <= prev {
			add("%s: up_to %g must be greater than %g", name, tier.UpTo, prev)
		}
		prev = tier.UpTo
		check(name, tier)
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return msa.InvalidConfig("tuning table", "%s", strings.Join(problems, "; "))
	}
	return nil
}
