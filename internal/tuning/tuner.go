package tuning

import (
	"math"

	"github.com/dusk-indust/swiftalign/internal/msa"
)

// Tuner applies a Table.
type Tuner struct {
	table Table
}

// NewTuner returns a Tuner over a validated table.
func NewTuner(t Table) *Tuner {
	return &Tuner{table: t}
}

// Tune returns the chunk-stage and refine-stage parameters. It never fails:
// boundary scores (exactly 0 or 1) and non-finite scores use the table
// defaults.
func (tu *Tuner) Tune(st msa.SeqType, score msa.DivergenceScore, mode msa.Mode) (chunk, refine msa.ParameterSet) {
	tier := tu.Select(score)
	pen := tier.For(st)

	chunk = msa.ParameterSet{
		Mode:      msa.ModeAccurate,
		Method:    pen.Method,
		GapOpen:   pen.GapOpen,
		GapExtend: pen.GapExtend,
		MaxIter:   capIter(tier.ChunkMaxIter, tu.table.MaxIterCap),
	}
	refine = msa.ParameterSet{
		Mode:    msa.ModeAccurate,
		Method:  tier.RefineMethod,
		MaxIter: capIter(tier.RefineMaxIter, tu.table.MaxIterCap),
	}

	if mode == msa.ModeFast {
		fast := tu.table.Fast
		chunk.Mode = msa.ModeFast
		chunk.Method = fast.ChunkMethod
		chunk.MaxIter = capIter(chunk.MaxIter, fast.ChunkMaxIter)
		refine.Mode = msa.ModeFast
		refine.Method = fast.RefineMethod
		refine.MaxIter = capIter(refine.MaxIter, fast.RefineMaxIter)
	}
	return chunk, refine
}

// Select returns the tier a score falls into.
func (tu *Tuner) Select(score msa.DivergenceScore) Tier {
	s := float64(score)
	if math.IsNaN(s) || s <= 0 || s >= 1 {
		return tu.table.Defaults
	}
	for _, tier := range tu.table.Tiers {
		if s < tier.UpTo {
			return tier
		}
	}
	return tu.table.Tiers[len(tu.table.Tiers)-1]
}

// capIter bounds n by limit. A zero limit caps to zero.
func capIter(n, limit int) int {
	if limit < 0 {
		return n
	}
	return min(n, limit)
}
