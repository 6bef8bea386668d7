//go:build e2e

package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/swiftalign/internal/backend"
	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/orchestrator"
	"github.com/dusk-indust/swiftalign/internal/report"
	"github.com/dusk-indust/swiftalign/internal/seqio"
	"github.com/dusk-indust/swiftalign/internal/testutil"
)

// execPipeline wires a Pipeline to the aligner scripts in binDir through the
// real ExecRunner, the way the CLI does.
func execPipeline(t *testing.T, binDir, scratch string) *orchestrator.Pipeline {
	t.Helper()

	runner := &backend.ExecRunner{Timeout: 30 * time.Second}
	log := logging.NopLogger()
	mafft, muscle := backend.NewDetector(backend.Locator{BinDir: binDir}, runner, log).Detect(context.Background())
	require.True(t, mafft.Found(), "mafft: %v", mafft.Err)
	require.True(t, muscle.Found(), "muscle: %v", muscle.Err)
	require.Equal(t, 3, muscle.Major)

	p, err := orchestrator.NewPipeline(orchestrator.Config{
		Mode:        msa.ModeAccurate,
		ChunkSize:   2,
		Threads:     2,
		ScratchRoot: scratch,
	}, orchestrator.Backends{
		Fast:     backend.NewMafft(mafft.Path, runner, log),
		Accurate: backend.NewMuscle(muscle.Path, muscle.Major, runner, log),
	}, log)
	require.NoError(t, err)
	return p
}

// runSample aligns the sample input and drains progress events.
func runSample(t *testing.T, p *orchestrator.Pipeline) (*orchestrator.Result, []orchestrator.ProgressEvent, error) {
	t.Helper()

	set, err := seqio.LoadSet(testutil.SampleFASTA())
	require.NoError(t, err)

	var events []orchestrator.ProgressEvent
	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		for ev := range p.Progress() {
			events = append(events, ev)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := p.Run(ctx, set)
	p.Close()
	<-drainDone
	return res, events, err
}

// TestPipeline_E2E_RelativeBinDir locates the aligners through a bin dir
// given relative to the working directory.
func TestPipeline_E2E_RelativeBinDir(t *testing.T) {
	binDir := testutil.InstallAligners(t, testutil.FakeMafft, testutil.FakeMuscle3)
	input, err := filepath.Abs(testutil.SampleFASTA())
	require.NoError(t, err)
	set, err := seqio.LoadSet(input)
	require.NoError(t, err)

	t.Chdir(filepath.Dir(binDir))
	p := execPipeline(t, filepath.Base(binDir), t.TempDir())
	go func() {
		for range p.Progress() {
		}
	}()
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res, err := p.Run(ctx, set)
	require.NoError(t, err)
	assert.Equal(t, set.Len(), res.Final.Len())
}

// TestPipeline_E2E_ExecBackends runs the whole pipeline against script
// stand-ins for mafft and muscle and checks the merged structure.
func TestPipeline_E2E_ExecBackends(t *testing.T) {
	binDir := testutil.InstallAligners(t, testutil.FakeMafft, testutil.FakeMuscle3)
	scratch := t.TempDir()

	res, events, err := runSample(t, execPipeline(t, binDir, scratch))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, msa.Nucleotide, res.SeqType)
	require.Equal(t, 5, res.Final.Len())
	assert.Equal(t, 30, res.Final.Columns(), "three chunks of width 10 placed side by side")
	assert.True(t, res.Final.Rectangular())

	for i, row := range res.Final.Rows {
		assert.Equal(t, i, row.Index)
	}
	assert.Equal(t, "----------TTGACCAGGT----------", res.Final.Rows[3].Gapped)

	var skipped int
	for _, ev := range events {
		if ev.Stage == orchestrator.StageAlign && ev.Status == orchestrator.ProgressSkipped {
			skipped++
		}
	}
	assert.Equal(t, 1, skipped, "the single-sequence chunk bypasses mafft")

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch directory removed after the run")
}

// TestPipeline_E2E_WritesAllFormats writes the result in every output format
// and the summary in every export format.
func TestPipeline_E2E_WritesAllFormats(t *testing.T) {
	binDir := testutil.InstallAligners(t, testutil.FakeMafft, testutil.FakeMuscle3)

	res, _, err := runSample(t, execPipeline(t, binDir, t.TempDir()))
	require.NoError(t, err)

	out := t.TempDir()
	for _, format := range seqio.Formats() {
		path := filepath.Join(out, "aln."+string(format))
		require.NoError(t, seqio.WriteFile(path, res.Final, format))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "seq5", "format %s", format)
	}

	summary := report.NewSummary(res, report.RunInfo{Input: testutil.SampleFASTA(), Format: "fasta", Mode: msa.ModeAccurate})
	for _, ext := range []string{"json", "yaml", "toml"} {
		require.NoError(t, summary.WriteFile(filepath.Join(out, "summary."+ext)))
	}
	assert.Equal(t, 5, summary.FinalSequences)
	assert.Equal(t, 30, summary.AlignmentLength)
}

// TestPipeline_E2E_BackendFailure checks that a fast aligner failing every
// fallback method aborts the run with a backend error and leaves no scratch.
func TestPipeline_E2E_BackendFailure(t *testing.T) {
	binDir := testutil.InstallAligners(t, testutil.FailingMafft, testutil.FakeMuscle3)
	scratch := t.TempDir()

	res, _, err := runSample(t, execPipeline(t, binDir, scratch))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)
	assert.Contains(t, err.Error(), "all methods failed")

	entries, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
