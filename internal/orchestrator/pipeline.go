package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/swiftalign/internal/backend"
	"github.com/dusk-indust/swiftalign/internal/divergence"
	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/tuning"
)

// Backends bundles the two external aligners a Pipeline delegates to.
type Backends struct {
	Fast     backend.FastAligner
	Accurate backend.AccurateAligner
}

// Pipeline coordinates a full alignment run: estimate, tune, chunk, align,
// merge, refine. Progress is reported through a ProgressReporter; logging
// goes to the injected logger.
type Pipeline struct {
	cfg       Config
	estimator divergence.Estimator
	tuner     *tuning.Tuner
	aligner   *ChunkAligner
	refiner   *Refiner
	progress  *ProgressReporter
	log       *logging.Logger

	newRunID func() string
}

// NewPipeline validates cfg and wires a Pipeline around the given backends.
func NewPipeline(cfg Config, backends Backends, log *logging.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backends.Fast == nil || backends.Accurate == nil {
		return nil, msa.InvalidConfig("pipeline", "both a fast and an accurate aligner are required")
	}
	if log == nil {
		log = logging.NopLogger()
	}

	table := tuning.DefaultTable()
	if cfg.Tuning != nil {
		table = *cfg.Tuning
	}

	progress := NewProgressReporter()
	return &Pipeline{
		cfg:       cfg,
		estimator: cfg.Divergence,
		tuner:     tuning.NewTuner(table),
		aligner:   NewChunkAligner(backends.Fast, cfg.Threads, progress.Emit, log.WithPhase(StageAlign.String())),
		refiner:   NewRefiner(backends.Accurate, log.WithPhase(StageRefine.String())),
		progress:  progress,
		log:       log,
		newRunID:  uuid.NewString,
	}, nil
}

// Progress returns a channel that emits progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter. Callers should invoke this once the
// final Run has returned.
func (p *Pipeline) Close() {
	p.progress.Close()
}

// Run aligns set. On any failure nothing is returned; partial chunk results
// are discarded and the scratch directory is removed.
func (p *Pipeline) Run(ctx context.Context, set *msa.SequenceSet) (res *Result, err error) {
	if set == nil {
		return nil, msa.InvalidInput("pipeline", "no sequences")
	}

	runID := p.newRunID()
	log := p.log.WithRun(runID)
	start := time.Now()

	log.Info("SwiftAlign pipeline started",
		"sequences", set.Len(),
		"residues", set.TotalResidues(),
		"type", set.Type().String(),
		"mode", string(p.cfg.Mode),
		"chunk_size", p.cfg.ChunkSize,
		"threads", p.cfg.Threads,
	)
	defer func() {
		if err != nil {
			log.Error("pipeline failed", "error", err, "elapsed", time.Since(start).String())
		}
	}()

	p.stageDone(StageClassify, set.Type().String())

	score, err := p.estimator.Estimate(set)
	if err != nil {
		return nil, p.stageFailed(StageEstimate, err)
	}
	p.stageDone(StageEstimate, fmt.Sprintf("divergence %.4f", float64(score)))
	log.Info("divergence estimated", "score", float64(score))

	chunkParams, refineParams := p.tuner.Tune(set.Type(), score, p.cfg.Mode)
	p.stageDone(StageTune, chunkParams.String())
	log.Info("parameters tuned", "chunk", chunkParams.String(), "refine", refineParams.String())

	chunks, err := Split(set, p.cfg.ChunkSize)
	if err != nil {
		return nil, p.stageFailed(StageChunk, err)
	}
	p.stageDone(StageChunk, fmt.Sprintf("%d chunks", len(chunks)))
	log.Info("sequences chunked", "chunks", len(chunks))

	scratch, cleanup, err := newScratchDir(p.cfg.ScratchRoot, runID)
	if err != nil {
		return nil, err
	}
	// Every worker has returned by the time alignAndFold and Refine return,
	// so the tree is no longer in use here.
	defer func() {
		if cerr := cleanup(); cerr != nil {
			log.Warn("failed to remove scratch dir", "dir", scratch, "error", cerr)
		}
	}()

	merged, err := p.alignAndFold(ctx, set, chunks, chunkParams, scratch)
	if err != nil {
		return nil, err
	}
	log.Info("chunks merged", "rows", merged.Len(), "columns", merged.Columns())

	p.progress.Emit(ProgressEvent{Stage: StageRefine, Chunk: -1, Status: ProgressWorking})
	final, err := p.refiner.Refine(ctx, set, merged, refineParams, scratch)
	if err != nil {
		return nil, p.stageFailed(StageRefine, err)
	}
	if msg := final.Verify(set); msg != "" {
		return nil, p.stageFailed(StageRefine, msa.MergeInconsistency("pipeline", "%s", msg))
	}
	p.stageDone(StageRefine, fmt.Sprintf("%d columns", final.Columns()))

	elapsed := time.Since(start)
	log.Info("pipeline finished", "columns", final.Columns(), "elapsed", elapsed.String())

	return &Result{
		RunID:        runID,
		SeqType:      set.Type(),
		Divergence:   score,
		ChunkParams:  chunkParams,
		RefineParams: refineParams,
		Chunks:       len(chunks),
		Residues:     set.TotalResidues(),
		Merged:       merged,
		Final:        final,
		Elapsed:      elapsed,
	}, nil
}

// alignAndFold runs the ChunkAligner and folds its results as they arrive.
// Results that complete ahead of their turn wait in pending until every
// lower-indexed chunk has been folded.
func (p *Pipeline) alignAndFold(ctx context.Context, set *msa.SequenceSet, chunks []msa.Chunk, params msa.ParameterSet, scratch string) (msa.Alignment, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered to len(chunks) so that deliver never blocks a worker.
	results := make(chan msa.AlignedChunk, len(chunks))
	errc := make(chan error, 1)
	go func() {
		errc <- p.aligner.Run(ctx, chunks, set.Type(), params, scratch, func(ac msa.AlignedChunk) {
			results <- ac
		})
		close(results)
	}()

	merger := NewMerger(set.Len())
	pending := make(map[int]msa.AlignedChunk)
	start := time.Now()

	var foldErr error
	for ac := range results {
		if foldErr != nil {
			continue // drain until the workers exit
		}
		pending[ac.Index] = ac
		for {
			next, ok := pending[merger.Next()]
			if !ok {
				break
			}
			delete(pending, next.Index)
			if err := merger.Fold(next); err != nil {
				foldErr = err
				cancel()
				break
			}
			elapsed := time.Since(start)
			p.progress.Emit(ProgressEvent{
				Stage:     StageMerge,
				Chunk:     next.Index,
				Status:    ProgressComplete,
				Completed: merger.Next(),
				Total:     len(chunks),
				Elapsed:   elapsed,
				ETA:       estimateETA(elapsed, merger.Next(), len(chunks)),
			})
		}
	}

	alignErr := <-errc
	switch {
	case foldErr != nil:
		return msa.Alignment{}, p.stageFailed(StageMerge, foldErr)
	case alignErr != nil:
		return msa.Alignment{}, p.stageFailed(StageAlign, alignErr)
	}

	merged, err := merger.Result()
	if err != nil {
		return msa.Alignment{}, p.stageFailed(StageMerge, err)
	}
	p.stageDone(StageMerge, fmt.Sprintf("%d columns", merged.Columns()))
	return merged, nil
}

func (p *Pipeline) stageDone(stage Stage, msg string) {
	p.progress.Emit(ProgressEvent{Stage: stage, Chunk: -1, Status: ProgressComplete, Message: msg})
}

func (p *Pipeline) stageFailed(stage Stage, err error) error {
	p.progress.Emit(ProgressEvent{Stage: stage, Chunk: -1, Status: ProgressFailed, Message: err.Error()})
	return err
}
