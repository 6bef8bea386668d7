package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/seqio"
	"github.com/dusk-indust/swiftalign/internal/tuning"
)

// Progress bar modes.
const (
	ProgressAuto   = "auto"
	ProgressAlways = "always"
	ProgressNever  = "never"
)

// ValidProgressModes returns the accepted progress values.
func ValidProgressModes() []string {
	return []string{ProgressAuto, ProgressAlways, ProgressNever}
}

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config key (e.g., "divergence.max_pairs")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Validate checks the Config for invalid values and returns all validation
// errors found. Input and Output are checked by ValidateRun, since not every
// command needs them.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if _, err := seqio.ParseFormat(c.Format); err != nil {
		add("format", c.Format, "must be one of fasta, clustal, phylip")
	}
	if _, err := msa.ParseMode(c.Mode); err != nil {
		add("mode", c.Mode, "must be fast or accurate")
	}
	if c.ChunkSize < 1 {
		add("chunk_size", c.ChunkSize, "must be at least 1")
	}
	if c.Threads < 1 {
		add("threads", c.Threads, "must be at least 1")
	}
	if !logging.IsValidLevel(c.LogLevel) {
		add("log_level", c.LogLevel, fmt.Sprintf("must be one of %v", logging.ValidLevels()))
	}
	if c.Timeout < 0 {
		add("timeout", c.Timeout, "must not be negative")
	}
	if !slices.Contains(ValidProgressModes(), strings.ToLower(c.Progress)) {
		add("progress", c.Progress, fmt.Sprintf("must be one of %v", ValidProgressModes()))
	}
	if c.TuningTable != "" {
		if _, err := tuning.FormatFromPath(c.TuningTable); err != nil {
			add("tuning_table", c.TuningTable, "must end in .yaml, .yml or .toml")
		}
	}
	if c.Summary != "" {
		switch ext := strings.ToLower(summaryExt(c.Summary)); ext {
		case ".json", ".yaml", ".yml", ".toml":
		default:
			add("summary", c.Summary, "must end in .json, .yaml, .yml or .toml")
		}
	}

	d := c.Divergence
	if d.KNucleotide < 1 || d.KNucleotide > 32 {
		add("divergence.k_nucleotide", d.KNucleotide, "must be between 1 and 32")
	}
	if d.KProtein < 1 || d.KProtein > 8 {
		add("divergence.k_protein", d.KProtein, "must be between 1 and 8")
	}
	if d.MaxPairs < 1 {
		add("divergence.max_pairs", d.MaxPairs, "must be at least 1")
	}

	return errs
}

// ValidateRun checks the settings an alignment run needs on top of Validate.
func (c *Config) ValidateRun() error {
	var errs ValidationErrors
	if c.Input == "" {
		errs = append(errs, ValidationError{Field: "input", Value: c.Input, Message: "an input FASTA file is required"})
	}
	if c.Output == "" {
		errs = append(errs, ValidationError{Field: "output", Value: c.Output, Message: "an output alignment file is required"})
	}
	if len(errs) > 0 {
		return &msa.Error{Kind: msa.ErrInvalidConfig, Op: "config", Err: errs}
	}
	return nil
}

func summaryExt(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}
