package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dusk-indust/swiftalign/internal/backend"
	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/msa"
)

// Refiner polishes a merged alignment with the accurate aligner.
type Refiner struct {
	aligner backend.AccurateAligner
	log     *logging.Logger
}

// NewRefiner creates a Refiner.
func NewRefiner(aligner backend.AccurateAligner, log *logging.Logger) *Refiner {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Refiner{aligner: aligner, log: log}
}

// Refine hands the merged rows to the accurate aligner as the starting
// profile and validates what comes back: N rows of one length, in input
// order, each holding its original residues.
func (r *Refiner) Refine(ctx context.Context, set *msa.SequenceSet, merged msa.Alignment, params msa.ParameterSet, scratch string) (msa.Alignment, error) {
	dir := filepath.Join(scratch, "refine")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return msa.Alignment{}, msa.BackendFailure("refine", err, "create scratch dir")
	}

	out, err := r.aligner.Refine(ctx, backend.Request{
		WorkDir: dir,
		Type:    set.Type(),
		Records: merged.Records(),
		Params:  params,
	})
	if err != nil {
		return msa.Alignment{}, err
	}

	if len(out) != set.Len() {
		return msa.Alignment{}, msa.BackendFailure("refine", nil, "backend returned %d rows for %d sequences", len(out), set.Len())
	}
	rows := make([]msa.Row, len(out))
	for i, rec := range out {
		if len(rec.Seq) != len(out[0].Seq) {
			return msa.Alignment{}, msa.BackendFailure("refine", nil, "row %d has %d columns, row 0 has %d", i, len(rec.Seq), len(out[0].Seq))
		}
		want := set.At(i)
		if msa.Ungap(rec.Seq) != want.Residues {
			return msa.Alignment{}, msa.BackendFailure("refine", nil, "row %d does not match sequence %q (omitted or reordered)", i, want.ID)
		}
		rows[i] = msa.Row{Index: i, ID: want.ID, Gapped: rec.Seq}
	}

	final := msa.Alignment{Rows: rows}
	r.log.Debug("refined", "columns_before", merged.Columns(), "columns_after", final.Columns())
	return final, nil
}
