// Package orchestrator runs the hybrid alignment pipeline: it partitions a
// sequence set into chunks, aligns the chunks in parallel with the fast
// aligner, folds the partial alignments into one column-consistent alignment,
// and polishes the result with the accurate aligner.
package orchestrator

import (
	"time"

	"github.com/dusk-indust/swiftalign/internal/msa"
)

// Stage identifies a pipeline stage.
type Stage int

const (
	StageClassify Stage = iota
	StageEstimate
	StageTune
	StageChunk
	StageAlign
	StageMerge
	StageRefine
)

func (s Stage) String() string {
	names := [...]string{
		"classify",
		"estimate",
		"tune",
		"chunk",
		"align",
		"merge",
		"refine",
	}
	if s >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// ProgressEvent is emitted to the user during pipeline execution.
type ProgressEvent struct {
	Stage   Stage
	Chunk   int // chunk index, or -1 for stage-level events
	Status  ProgressStatus
	Message string

	// Completed and Total count chunks for align and merge events.
	Completed int
	Total     int

	// Elapsed is the time since the stage started. ETA is the estimated time
	// remaining: the mean time per completed chunk times the chunks left.
	Elapsed time.Duration
	ETA     time.Duration
}

// ProgressStatus is the state of a stage or chunk.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressSkipped  ProgressStatus = "skipped"
	ProgressFailed   ProgressStatus = "failed"
)

// Done reports whether the event marks a finished unit of work.
func (e ProgressEvent) Done() bool {
	return e.Status == ProgressComplete || e.Status == ProgressSkipped
}

// Result is the outcome of a successful run.
type Result struct {
	RunID        string
	SeqType      msa.SeqType
	Divergence   msa.DivergenceScore
	ChunkParams  msa.ParameterSet
	RefineParams msa.ParameterSet
	Chunks       int
	Residues     int
	Merged       msa.Alignment
	Final        msa.Alignment
	Elapsed      time.Duration
}
