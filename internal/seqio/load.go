// Package seqio moves sequences and alignments in and out of the pipeline:
// loading input FASTA (plain or compressed), exchanging FASTA with external
// aligners, and serializing final alignments as FASTA, Clustal, or PHYLIP.
package seqio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// LoadFASTA reads every record of a FASTA file. Gzip, xz and zstd inputs
// are decompressed transparently. "-" reads stdin.
func LoadFASTA(path string) ([]msa.Record, error) {
	if path != "-" {
		if _, err := os.Stat(path); err != nil {
			return nil, msa.InvalidInput("load", "input %s: %v", path, err)
		}
	}

	reader, err := fastx.NewReader(seq.Unlimit, path, "")
	if err != nil {
		return nil, msa.InvalidInput("load", "open %s: %v", path, err)
	}
	defer reader.Close()

	var records []msa.Record
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, msa.InvalidInput("load", "read record %d in %s: %v", len(records)+1, path, err)
		}
		// string() copies; the reader reuses its buffers between reads.
		records = append(records, msa.Record{
			ID:  string(record.ID),
			Seq: string(record.Seq.Seq),
		})
	}

	if len(records) == 0 {
		return nil, msa.InvalidInput("load", "no FASTA records in %s", path)
	}
	return records, nil
}

// LoadSet loads a FASTA file and validates it as a SequenceSet.
func LoadSet(path string) (*msa.SequenceSet, error) {
	records, err := LoadFASTA(path)
	if err != nil {
		return nil, err
	}
	set, err := msa.NewSequenceSet(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}
