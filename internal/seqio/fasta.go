package seqio

import (
	"errors"
	"fmt"
	"io"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/dusk-indust/swiftalign/internal/msa"
)

// LineWidth is the residue line width used for every FASTA file this package writes.
const LineWidth = 60

// ReadFASTA parses FASTA from r. Gapped sequences are read verbatim.
func ReadFASTA(r io.Reader) ([]msa.Record, error) {
	reader := fasta.NewReader(r, linear.NewSeq("", nil, alphabet.Protein))

	var records []msa.Record
	for {
		s, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("fasta record %d: %w", len(records)+1, err)
		}
		l, ok := s.(*linear.Seq)
		if !ok {
			return nil, fmt.Errorf("fasta record %d: unexpected sequence type %T", len(records)+1, s)
		}
		b := make([]byte, len(l.Seq))
		for i, v := range l.Seq {
			b[i] = byte(v)
		}
		records = append(records, msa.Record{ID: l.Name(), Seq: string(b)})
	}
	return records, nil
}

// WriteFASTA writes records as FASTA with LineWidth-wide sequence lines.
// Non-empty output always ends in a newline.
func WriteFASTA(w io.Writer, records []msa.Record) error {
	tw := &tailWriter{w: w}
	writer := fasta.NewWriter(tw, LineWidth)
	for _, r := range records {
		s := linear.NewSeq(r.ID, alphabet.BytesToLetters([]byte(r.Seq)), alphabet.Protein)
		if _, err := writer.Write(s); err != nil {
			return fmt.Errorf("write fasta record %q: %w", r.ID, err)
		}
	}
	if tw.last != 0 && tw.last != '\n' {
		if _, err := tw.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("write fasta: %w", err)
		}
	}
	return nil
}

// tailWriter remembers the last byte written through it.
type tailWriter struct {
	w    io.Writer
	last byte
}

func (t *tailWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if n > 0 {
		t.last = p[n-1]
	}
	return n, err
}
