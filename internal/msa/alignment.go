package msa

import (
	"fmt"
	"strings"
)

// Gap is the gap character used in every alignment this module produces.
const Gap = '-'

// Chunk is a contiguous, order-preserving slice of a SequenceSet.
type Chunk struct {
	// Index is the chunk's position in the partition (0-based).
	Index int
	// Start is the original index of Members[0].
	Start int
	// Members shares storage with the owning SequenceSet.
	Members []Sequence
}

// Len returns the number of member sequences.
func (c Chunk) Len() int { return len(c.Members) }

// Origin maps a chunk-local index back to the original set index.
func (c Chunk) Origin(local int) int { return c.Start + local }

// AlignedChunk is a Chunk plus one gapped row per member, all of equal length.
type AlignedChunk struct {
	Chunk
	Rows []string
}

// Columns returns the chunk's column count.
func (a AlignedChunk) Columns() int {
	if len(a.Rows) == 0 {
		return 0
	}
	return len(a.Rows[0])
}

// Row is one gapped sequence in an Alignment.
type Row struct {
	Index  int
	ID     string
	Gapped string
}

// Alignment is a rectangular set of gapped rows. It represents both the merged
// alignment and the refined final alignment.
type Alignment struct {
	Rows []Row
}

// Len returns the number of rows.
func (a Alignment) Len() int { return len(a.Rows) }

// Columns returns the length of the first row.
func (a Alignment) Columns() int {
	if len(a.Rows) == 0 {
		return 0
	}
	return len(a.Rows[0].Gapped)
}

// Rectangular reports whether every row has the same length.
func (a Alignment) Rectangular() bool {
	cols := a.Columns()
	for _, r := range a.Rows {
		if len(r.Gapped) != cols {
			return false
		}
	}
	return true
}

// Records converts the alignment to records in row order.
func (a Alignment) Records() []Record {
	out := make([]Record, len(a.Rows))
	for i, r := range a.Rows {
		out[i] = Record{ID: r.ID, Seq: r.Gapped}
	}
	return out
}

// Verify checks the alignment against the set it was built from: one row per
// sequence in canonical order, rectangular shape, and residue preservation.
// It returns a description of the first violation, or "" if none.
func (a Alignment) Verify(set *SequenceSet) string {
	if a.Len() != set.Len() {
		return fmt.Sprintf("row count %d does not match sequence count %d", a.Len(), set.Len())
	}
	cols := a.Columns()
	for i, r := range a.Rows {
		want := set.At(i)
		if r.Index != i || r.ID != want.ID {
			return fmt.Sprintf("row %d holds sequence %q, want %q", i, r.ID, want.ID)
		}
		if len(r.Gapped) != cols {
			return fmt.Sprintf("row %q has %d columns, want %d", r.ID, len(r.Gapped), cols)
		}
		if Ungap(r.Gapped) != want.Residues {
			return fmt.Sprintf("ungapped row %q does not reproduce its original residues", r.ID)
		}
	}
	return ""
}

// Ungap strips gap characters ('-' and '.').
func Ungap(s string) string {
	if strings.IndexAny(s, "-.") < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c != '-' && c != '.' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// GapRun returns n gap characters.
func GapRun(n int) string {
	return strings.Repeat(string(Gap), n)
}
