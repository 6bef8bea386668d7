package orchestrator

import (
	"github.com/dusk-indust/swiftalign/internal/divergence"
	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/tuning"
)

// Config holds runtime configuration for an alignment run.
type Config struct {
	// Mode selects fast or accurate parameter tuning.
	Mode msa.Mode

	// ChunkSize is the maximum number of sequences per chunk.
	ChunkSize int

	// Threads bounds the number of chunks aligned concurrently.
	Threads int

	// ScratchRoot is the parent of the per-run scratch directory. Empty means
	// the OS temp directory.
	ScratchRoot string

	// Divergence configures the divergence estimator. Zero fields take the
	// estimator defaults.
	Divergence divergence.Estimator

	// Tuning is the parameter table. Nil means the embedded default.
	Tuning *tuning.Table
}

// Validate checks the run configuration.
func (c Config) Validate() error {
	if _, err := msa.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.ChunkSize < 1 {
		return msa.InvalidConfig("pipeline", "chunk size must be at least 1, got %d", c.ChunkSize)
	}
	if c.Threads < 1 {
		return msa.InvalidConfig("pipeline", "threads must be at least 1, got %d", c.Threads)
	}
	if c.Tuning != nil {
		if err := c.Tuning.Validate(); err != nil {
			return err
		}
	}
	return nil
}
