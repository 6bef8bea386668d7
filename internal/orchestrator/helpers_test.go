package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/swiftalign/internal/backend"
	"github.com/dusk-indust/swiftalign/internal/msa"
)

// mockFast implements backend.FastAligner with a configurable function and
// records every request it receives.
type mockFast struct {
	mu    sync.Mutex
	reqs  []backend.Request
	align func(ctx context.Context, req backend.Request) ([]msa.Record, error)
}

func (m *mockFast) Align(ctx context.Context, req backend.Request) ([]msa.Record, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	if m.align == nil {
		return padRecords(req.Records), nil
	}
	return m.align(ctx, req)
}

func (m *mockFast) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reqs)
}

// mockAccurate implements backend.AccurateAligner. The zero value returns
// the merged rows unchanged.
type mockAccurate struct {
	mu     sync.Mutex
	called int
	refine func(ctx context.Context, req backend.Request) ([]msa.Record, error)
}

func (m *mockAccurate) Refine(ctx context.Context, req backend.Request) ([]msa.Record, error) {
	m.mu.Lock()
	m.called++
	m.mu.Unlock()
	if m.refine == nil {
		return req.Records, nil
	}
	return m.refine(ctx, req)
}

// padRecords right-pads every record with gaps to the longest length.
func padRecords(recs []msa.Record) []msa.Record {
	width := 0
	for _, r := range recs {
		width = max(width, len(r.Seq))
	}
	out := make([]msa.Record, len(recs))
	for i, r := range recs {
		out[i] = msa.Record{ID: r.ID, Seq: r.Seq + msa.GapRun(width-len(r.Seq))}
	}
	return out
}

func newSet(t *testing.T, seqs ...string) *msa.SequenceSet {
	t.Helper()
	records := make([]msa.Record, len(seqs))
	for i, s := range seqs {
		records[i] = msa.Record{ID: fmt.Sprintf("seq%d", i), Seq: s}
	}
	set, err := msa.NewSequenceSet(records)
	require.NoError(t, err)
	return set
}

// nucleotideSet builds n distinct nucleotide sequences of varying length.
func nucleotideSet(t *testing.T, n int) *msa.SequenceSet {
	t.Helper()
	bases := "ACGT"
	seqs := make([]string, n)
	for i := range seqs {
		b := make([]byte, 8+(i*7)%13)
		for j := range b {
			b[j] = bases[(i*3+j*j+j)%4]
		}
		seqs[i] = string(b)
	}
	return newSet(t, seqs...)
}

func testConfig(t *testing.T) Config {
	return Config{
		Mode:        msa.ModeAccurate,
		ChunkSize:   2,
		Threads:     2,
		ScratchRoot: t.TempDir(),
	}
}
