// Package msa holds the data model shared by every stage of the hybrid
// alignment pipeline: sequences, chunks, tuned parameters, alignments, and the
// error taxonomy.
package msa

import (
	"strings"
)

// SeqType is the residue alphabet of a sequence set.
type SeqType int

const (
	Nucleotide SeqType = iota
	Protein
)

func (t SeqType) String() string {
	switch t {
	case Nucleotide:
		return "nucleotide"
	case Protein:
		return "protein"
	default:
		return "unknown"
	}
}

// nucleotideThreshold is the fraction of ACGTUN residues above which a
// sequence is classified as nucleotide.
const nucleotideThreshold = 0.85

// Record is an identifier plus a residue string, gapped or not. It is the
// unit exchanged with backends and formatters.
type Record struct {
	ID  string
	Seq string
}

// Sequence is one input sequence. It is immutable once loaded.
type Sequence struct {
	ID       string
	Residues string
	Type     SeqType
}

// SequenceSet is the ordered input. Its order is the canonical output order.
type SequenceSet struct {
	seqs []Sequence
	typ  SeqType
}

// NewSequenceSet validates records and builds a set. Residues are upper-cased.
// It fails with ErrInvalidInput on fewer than two records, duplicate or empty
// identifiers, empty or malformed residues, or mixed nucleotide/protein input.
func NewSequenceSet(records []Record) (*SequenceSet, error) {
	if len(records) == 0 {
		return nil, InvalidInput("sequence set", "no sequences supplied")
	}
	if len(records) < 2 {
		return nil, InvalidInput("sequence set", "need at least 2 sequences, got %d", len(records))
	}

	seen := make(map[string]int, len(records))
	seqs := make([]Sequence, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, InvalidInput("sequence set", "sequence %d has an empty identifier", i)
		}
		if prev, dup := seen[r.ID]; dup {
			return nil, InvalidInput("sequence set", "duplicate identifier %q (sequences %d and %d)", r.ID, prev, i)
		}
		seen[r.ID] = i

		residues := strings.ToUpper(r.Seq)
		if residues == "" {
			return nil, InvalidInput("sequence set", "sequence %q is empty", r.ID)
		}
		if pos, c, ok := firstMalformed(residues); !ok {
			return nil, InvalidInput("sequence set", "sequence %q has malformed residue %q at position %d", r.ID, c, pos+1)
		}
		seqs[i] = Sequence{ID: r.ID, Residues: residues, Type: Classify(residues)}
	}

	typ := seqs[0].Type
	for _, s := range seqs[1:] {
		if s.Type != typ {
			return nil, InvalidInput("sequence set", "mixed sequence types: %q is %s but %q is %s",
				seqs[0].ID, typ, s.ID, s.Type)
		}
	}

	return &SequenceSet{seqs: seqs, typ: typ}, nil
}

// Classify infers the type of a single residue string.
func Classify(residues string) SeqType {
	if residues == "" {
		return Nucleotide
	}
	n := 0
	for i := 0; i < len(residues); i++ {
		switch residues[i] {
		case 'A', 'C', 'G', 'T', 'U', 'N', 'a', 'c', 'g', 't', 'u', 'n':
			n++
		}
	}
	if float64(n)/float64(len(residues)) > nucleotideThreshold {
		return Nucleotide
	}
	return Protein
}

// firstMalformed reports the first byte that is neither a letter nor a stop
// codon marker. Gap characters are malformed in unaligned input.
func firstMalformed(s string) (int, byte, bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || c == '*' {
			continue
		}
		return i, c, false
	}
	return 0, 0, true
}

// Len returns the number of sequences.
func (s *SequenceSet) Len() int { return len(s.seqs) }

// Type returns the shared sequence type.
func (s *SequenceSet) Type() SeqType { return s.typ }

// At returns sequence i.
func (s *SequenceSet) At(i int) Sequence { return s.seqs[i] }

// Slice returns sequences [from, to). The result shares storage with the set
// and must not be modified.
func (s *SequenceSet) Slice(from, to int) []Sequence { return s.seqs[from:to:to] }

// Records returns the set as ungapped records in canonical order.
func (s *SequenceSet) Records() []Record {
	out := make([]Record, len(s.seqs))
	for i, seq := range s.seqs {
		out[i] = Record{ID: seq.ID, Seq: seq.Residues}
	}
	return out
}

// TotalResidues returns the summed residue count.
func (s *SequenceSet) TotalResidues() int {
	n := 0
	for _, seq := range s.seqs {
		n += len(seq.Residues)
	}
	return n
}
