package backend

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/seqio"
)

// Records are exchanged under positional keys so that arbitrary user IDs
// never reach a tool's command line or name parser.
func key(i int) string { return "s" + strconv.Itoa(i) }

// writeKeyed writes records as FASTA keyed by position. With ungap set the
// residues are written without gap characters.
func writeKeyed(path string, records []msa.Record, ungap bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	keyed := make([]msa.Record, len(records))
	for i, r := range records {
		seq := r.Seq
		if ungap {
			seq = msa.Ungap(seq)
		}
		keyed[i] = msa.Record{ID: key(i), Seq: seq}
	}

	bw := bufio.NewWriter(f)
	if err := seqio.WriteFASTA(bw, keyed); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// readKeyedFile parses a tool's FASTA output file and restores input order.
func readKeyedFile(op, path string, want []msa.Record) ([]msa.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, msa.BackendFailure(op, err, "no output produced")
	}
	defer f.Close()

	got, err := seqio.ReadFASTA(f)
	if err != nil {
		return nil, msa.BackendFailure(op, err, "unparseable output")
	}
	return restoreOrder(op, want, got)
}

// restoreOrder maps keyed output rows back onto the input records. Every key
// must appear exactly once and no unknown keys may appear. Residues are
// upper-cased and the original IDs restored.
func restoreOrder(op string, want, got []msa.Record) ([]msa.Record, error) {
	if len(got) != len(want) {
		return nil, msa.BackendFailure(op, nil, "returned %d rows for %d input sequences", len(got), len(want))
	}

	out := make([]msa.Record, len(want))
	seen := make([]bool, len(want))
	for _, r := range got {
		name, _, _ := strings.Cut(r.ID, " ")
		if !strings.HasPrefix(name, "s") {
			return nil, msa.BackendFailure(op, nil, "unexpected row %q in output", r.ID)
		}
		i, err := strconv.Atoi(name[1:])
		if err != nil || i < 0 || i >= len(want) {
			return nil, msa.BackendFailure(op, nil, "unexpected row %q in output", r.ID)
		}
		if seen[i] {
			return nil, msa.BackendFailure(op, nil, "row %q returned twice", r.ID)
		}
		seen[i] = true
		out[i] = msa.Record{ID: want[i].ID, Seq: strings.ToUpper(r.Seq)}
	}
	return out, nil
}
