package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/orchestrator"
)

func testResult() *orchestrator.Result {
	aln := msa.Alignment{Rows: []msa.Row{
		{Index: 0, ID: "a", Gapped: "AC-GT"},
		{Index: 1, ID: "b", Gapped: "ACGGT"},
	}}
	return &orchestrator.Result{
		RunID:        "run-1",
		SeqType:      msa.Nucleotide,
		Divergence:   0.25,
		ChunkParams:  msa.ParameterSet{Mode: msa.ModeAccurate, Method: "einsi", GapOpen: 1.5, GapExtend: 0.2, MaxIter: 1000},
		RefineParams: msa.ParameterSet{Mode: msa.ModeAccurate, Method: "refine", MaxIter: 32},
		Chunks:       1,
		Residues:     9,
		Merged:       aln,
		Final:        aln,
		Elapsed:      1500 * time.Millisecond,
	}
}

func testSummary() Summary {
	return NewSummary(testResult(), RunInfo{Input: "in.fasta", Output: "out.aln", Format: "clustal", Mode: msa.ModeAccurate, Mafft: "7.505"})
}

func TestNewSummary(t *testing.T) {
	s := testSummary()
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, 2, s.InputSequences)
	assert.Equal(t, 9, s.Residues)
	assert.Equal(t, 2, s.FinalSequences)
	assert.Equal(t, 5, s.AlignmentLength)
	assert.Equal(t, "nucleotide", s.SeqType)
	assert.Equal(t, "einsi", s.ChunkParams.Method)
	assert.Equal(t, 1500*time.Millisecond, s.Runtime())
}

func TestSummary_WriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testSummary().WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, SummaryTitle)
	assert.Contains(t, out, "Input sequences:   2")
	assert.Contains(t, out, "Residues:          9")
	assert.Contains(t, out, "Alignment length:  5")
	assert.Contains(t, out, "Runtime:           1.5s")
	assert.Contains(t, out, "out.aln (clustal)")
}

func TestSummary_WriteFileByExtension(t *testing.T) {
	dir := t.TempDir()
	s := testSummary()

	jsonPath := filepath.Join(dir, "summary.json")
	require.NoError(t, s.WriteFile(jsonPath))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var fromJSON Summary
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, s, fromJSON)

	yamlPath := filepath.Join(dir, "nested", "summary.yml")
	require.NoError(t, s.WriteFile(yamlPath))
	data, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	var fromYAML Summary
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, s, fromYAML)

	tomlPath := filepath.Join(dir, "summary.toml")
	require.NoError(t, s.WriteFile(tomlPath))
	data, err = os.ReadFile(tomlPath)
	require.NoError(t, err)
	var fromTOML Summary
	require.NoError(t, toml.Unmarshal(data, &fromTOML))
	assert.Equal(t, s, fromTOML)

	err = s.WriteFile(filepath.Join(dir, "summary.txt"))
	assert.ErrorIs(t, err, msa.ErrInvalidConfig)
}

func TestSummary_Log(t *testing.T) {
	var buf bytes.Buffer
	testSummary().Log(logging.New(&buf, "info", nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, SummaryTitle, rec["msg"])
	assert.EqualValues(t, 5, rec["alignment_length"])
	assert.EqualValues(t, 9, rec["residues"])
}

func TestDrain_FansOutAndCloses(t *testing.T) {
	ch := make(chan orchestrator.ProgressEvent, 4)
	ch <- orchestrator.ProgressEvent{Stage: orchestrator.StageEstimate, Chunk: -1, Status: orchestrator.ProgressComplete, Message: "divergence 0.1000"}
	ch <- orchestrator.ProgressEvent{Stage: orchestrator.StageAlign, Chunk: 0, Status: orchestrator.ProgressComplete, Completed: 1, Total: 2}
	ch <- orchestrator.ProgressEvent{Stage: orchestrator.StageAlign, Chunk: 1, Status: orchestrator.ProgressFailed, Message: "boom"}
	close(ch)

	var console, verbose, logs bytes.Buffer
	wait := Start(ch,
		NewConsoleSink(&console, false),
		NewConsoleSink(&verbose, true),
		NewLogSink(logging.New(&logs, "debug", nil)),
	)
	wait()

	assert.Equal(t, "  ✓ estimate complete (divergence 0.1000)\n", console.String())
	assert.Contains(t, verbose.String(), "chunk 0 complete [1/2]")
	assert.Contains(t, verbose.String(), "chunk 1 failed: boom")

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], `"level":"WARN"`)
	assert.Contains(t, lines[1], `"chunk":0`)
}

func TestBarSink_CompletesOnClose(t *testing.T) {
	var out bytes.Buffer
	bar := NewBarSink(&out)

	bar.Handle(orchestrator.ProgressEvent{Stage: orchestrator.StageTune, Chunk: -1, Status: orchestrator.ProgressComplete})
	assert.Nil(t, bar.bar, "no bar before the first align event")

	bar.Handle(orchestrator.ProgressEvent{Stage: orchestrator.StageAlign, Chunk: 0, Status: orchestrator.ProgressWorking, Total: 3})
	require.NotNil(t, bar.bar)
	bar.Handle(orchestrator.ProgressEvent{Stage: orchestrator.StageAlign, Chunk: 0, Status: orchestrator.ProgressComplete, Completed: 1, Total: 3})
	bar.Handle(orchestrator.ProgressEvent{Stage: orchestrator.StageAlign, Chunk: 1, Status: orchestrator.ProgressSkipped, Completed: 2, Total: 3})

	done := make(chan struct{})
	go func() {
		bar.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return for a bar that missed events")
	}
	assert.True(t, bar.bar.Completed())
}
