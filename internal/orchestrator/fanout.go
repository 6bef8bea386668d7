package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/swiftalign/internal/backend"
	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/msa"
)

// ChunkAligner aligns chunks in parallel on a bounded worker pool. If any
// chunk fails, the derived context is canceled so that chunks not yet started
// never reach the backend and in-flight calls are abandoned promptly.
type ChunkAligner struct {
	aligner    backend.FastAligner
	threads    int
	onProgress func(ProgressEvent)
	log        *logging.Logger
}

// NewChunkAligner creates a ChunkAligner running at most threads chunks at a
// time. onProgress is called synchronously from each worker; it may be nil.
func NewChunkAligner(aligner backend.FastAligner, threads int, onProgress func(ProgressEvent), log *logging.Logger) *ChunkAligner {
	if threads < 1 {
		threads = 1
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &ChunkAligner{
		aligner:    aligner,
		threads:    threads,
		onProgress: onProgress,
		log:        log,
	}
}

// Run aligns every chunk and hands each result to deliver as soon as it is
// ready, in completion order. deliver is called from worker goroutines and
// must be safe for concurrent use. Run returns only after every worker has
// exited; the error is the first chunk failure.
func (c *ChunkAligner) Run(ctx context.Context, chunks []msa.Chunk, t msa.SeqType, params msa.ParameterSet, scratch string, deliver func(msa.AlignedChunk)) error {
	var (
		mu        sync.Mutex // guards completed
		completed int
		start     = time.Now()
		total     = len(chunks)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.threads)

	for _, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			c.emit(ProgressEvent{
				Stage:  StageAlign,
				Chunk:  chunk.Index,
				Status: ProgressWorking,
				Total:  total,
			})

			ac, skipped, err := c.alignOne(gctx, chunk, t, params, scratch)
			if err != nil && gctx.Err() != nil {
				// Canceled because another chunk failed first; that failure
				// is the one reported.
				c.log.Debug("chunk canceled", "chunk", chunk.Index, "error", err)
				return err
			}
			if err != nil {
				c.log.Warn("chunk failed", "chunk", chunk.Index, "size", chunk.Len(), "error", err)
				c.emit(ProgressEvent{
					Stage:   StageAlign,
					Chunk:   chunk.Index,
					Status:  ProgressFailed,
					Message: err.Error(),
					Total:   total,
				})
				return err // triggers context cancellation for other workers
			}

			deliver(ac)

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()

			elapsed := time.Since(start)
			ev := ProgressEvent{
				Stage:     StageAlign,
				Chunk:     chunk.Index,
				Status:    ProgressComplete,
				Completed: done,
				Total:     total,
				Elapsed:   elapsed,
				ETA:       estimateETA(elapsed, done, total),
			}
			if skipped {
				ev.Status = ProgressSkipped
				ev.Message = "single sequence"
			}
			c.emit(ev)
			c.log.Debug("chunk aligned", "chunk", chunk.Index, "size", chunk.Len(), "columns", ac.Columns(), "completed", done, "total", total)
			return nil
		})
	}

	return g.Wait()
}

// alignOne aligns a single chunk in its own scratch sub-directory.
// Single-sequence chunks never reach the backend.
func (c *ChunkAligner) alignOne(ctx context.Context, chunk msa.Chunk, t msa.SeqType, params msa.ParameterSet, scratch string) (msa.AlignedChunk, bool, error) {
	if chunk.Len() == 1 {
		return msa.AlignedChunk{Chunk: chunk, Rows: []string{chunk.Members[0].Residues}}, true, nil
	}

	dir := filepath.Join(scratch, fmt.Sprintf("chunk-%04d", chunk.Index))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return msa.AlignedChunk{}, false, msa.BackendFailure("align", err, "chunk %d: create scratch dir", chunk.Index)
	}

	records := make([]msa.Record, chunk.Len())
	for i, m := range chunk.Members {
		records[i] = msa.Record{ID: m.ID, Seq: m.Residues}
	}

	out, err := c.aligner.Align(ctx, backend.Request{
		WorkDir: dir,
		Type:    t,
		Records: records,
		Params:  params,
	})
	if err != nil {
		return msa.AlignedChunk{}, false, fmt.Errorf("chunk %d: %w", chunk.Index, err)
	}

	rows, err := validateChunk(chunk, out)
	if err != nil {
		return msa.AlignedChunk{}, false, err
	}
	return msa.AlignedChunk{Chunk: chunk, Rows: rows}, false, nil
}

// validateChunk checks that the backend returned one equal-length row per
// member, in member order, with residues intact.
func validateChunk(chunk msa.Chunk, out []msa.Record) ([]string, error) {
	if len(out) != chunk.Len() {
		return nil, msa.BackendFailure("align", nil, "chunk %d: backend returned %d rows for %d sequences", chunk.Index, len(out), chunk.Len())
	}
	rows := make([]string, len(out))
	for i, r := range out {
		if len(r.Seq) != len(out[0].Seq) {
			return nil, msa.BackendFailure("align", nil, "chunk %d: row %d has %d columns, row 0 has %d", chunk.Index, i, len(r.Seq), len(out[0].Seq))
		}
		if msa.Ungap(r.Seq) != chunk.Members[i].Residues {
			return nil, msa.BackendFailure("align", nil, "chunk %d: row %d does not match sequence %q (omitted or reordered)", chunk.Index, i, chunk.Members[i].ID)
		}
		rows[i] = r.Seq
	}
	return rows, nil
}

// emit sends a progress event if a callback is registered.
func (c *ChunkAligner) emit(ev ProgressEvent) {
	if c.onProgress != nil {
		c.onProgress(ev)
	}
}
