package orchestrator

import (
	"slices"
	"sort"

	"github.com/dusk-indust/swiftalign/internal/msa"
)

// Merger folds aligned chunks into one alignment, strictly in chunk order.
//
// Folding chunk i appends Cᵢ new columns: existing rows receive Cᵢ trailing
// gaps and the chunk's rows receive leading gaps equal to the prior column
// count. Padding is applied lazily, so each fold costs O(rows in the chunk).
type Merger struct {
	total   int
	next    int
	columns int
	rows    []mergeRow
}

type mergeRow struct {
	index int
	id    string
	lead  int // gap columns before body
	body  string
}

// NewMerger creates a Merger expecting total sequences overall.
func NewMerger(total int) *Merger {
	return &Merger{total: total, rows: make([]mergeRow, 0, total)}
}

// Next returns the chunk index the merger expects to fold next.
func (m *Merger) Next() int { return m.next }

// Columns returns the column count of the alignment folded so far.
func (m *Merger) Columns() int { return m.columns }

// Rows returns the number of rows folded so far.
func (m *Merger) Rows() int { return len(m.rows) }

// Fold appends ac to the alignment. ac must be the next expected chunk.
func (m *Merger) Fold(ac msa.AlignedChunk) error {
	if ac.Index != m.next {
		return msa.MergeInconsistency("merge", "chunk %d folded out of order, expected chunk %d", ac.Index, m.next)
	}
	if len(ac.Rows) != ac.Len() {
		return msa.MergeInconsistency("merge", "chunk %d has %d rows for %d members", ac.Index, len(ac.Rows), ac.Len())
	}
	if len(m.rows)+len(ac.Rows) > m.total {
		return msa.MergeInconsistency("merge", "chunk %d would exceed %d sequences", ac.Index, m.total)
	}

	width := ac.Columns()
	for i, row := range ac.Rows {
		if len(row) != width {
			return msa.MergeInconsistency("merge", "chunk %d row %d has %d columns, expected %d", ac.Index, i, len(row), width)
		}
		if msa.Ungap(row) != ac.Members[i].Residues {
			return msa.MergeInconsistency("merge", "chunk %d row %d does not hold the residues of %q", ac.Index, i, ac.Members[i].ID)
		}
	}

	for i, row := range ac.Rows {
		m.rows = append(m.rows, mergeRow{
			index: ac.Origin(i),
			id:    ac.Members[i].ID,
			lead:  m.columns,
			body:  row,
		})
	}
	m.columns += width
	m.next++
	return nil
}

// Result materializes the merged alignment, rows ordered by original index,
// and verifies coverage and rectangularity.
func (m *Merger) Result() (msa.Alignment, error) {
	if len(m.rows) != m.total {
		return msa.Alignment{}, msa.MergeInconsistency("merge", "merged %d rows, expected %d", len(m.rows), m.total)
	}

	rows := make([]msa.Row, len(m.rows))
	for i, r := range m.rows {
		trail := m.columns - r.lead - len(r.body)
		if trail < 0 {
			return msa.Alignment{}, msa.MergeInconsistency("merge", "row %d overruns %d columns", r.index, m.columns)
		}
		rows[i] = msa.Row{
			Index:  r.index,
			ID:     r.id,
			Gapped: msa.GapRun(r.lead) + r.body + msa.GapRun(trail),
		}
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Index < rows[b].Index })

	for i, r := range rows {
		if r.Index != i {
			return msa.Alignment{}, msa.MergeInconsistency("merge", "row %d holds sequence index %d", i, r.Index)
		}
	}
	aln := msa.Alignment{Rows: rows}
	if !aln.Rectangular() {
		return msa.Alignment{}, msa.MergeInconsistency("merge", "merged alignment is not rectangular")
	}
	return aln, nil
}

// Merge folds a complete set of aligned chunks in index order, regardless of
// the order they are given in. total is the number of sequences covered.
func Merge(chunks []msa.AlignedChunk, total int) (msa.Alignment, error) {
	ordered := slices.Clone(chunks)
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].Index < ordered[b].Index })

	m := NewMerger(total)
	for _, ac := range ordered {
		if err := m.Fold(ac); err != nil {
			return msa.Alignment{}, err
		}
	}
	return m.Result()
}
