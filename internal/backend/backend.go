// Package backend adapts the external aligners to the pipeline. MAFFT serves
// as the fast per-chunk aligner and MUSCLE as the accurate refiner. Every
// invocation goes through a Runner so the orchestration can be tested without
// the binaries installed.
package backend

import (
	"context"

	"github.com/dusk-indust/swiftalign/internal/msa"
)

// Request is one backend invocation.
type Request struct {
	// WorkDir is a scratch directory owned by this invocation alone.
	WorkDir string

	// Type selects nucleotide or protein scoring.
	Type msa.SeqType

	// Records are the sequences to align. For Refine they are the gapped rows
	// of the merged alignment.
	Records []msa.Record

	// Params are the tuned parameters for this stage.
	Params msa.ParameterSet
}

// FastAligner aligns one chunk of unaligned sequences. The result holds one
// gapped row per input record, in input order.
type FastAligner interface {
	Align(ctx context.Context, req Request) ([]msa.Record, error)
}

// AccurateAligner polishes a complete alignment. The result holds one gapped
// row per input record, in input order.
type AccurateAligner interface {
	Refine(ctx context.Context, req Request) ([]msa.Record, error)
}
