// Package report presents pipeline progress and the end-of-run summary. Sinks
// consume the orchestrator's progress events; Summary captures the finished
// run for the log, the console, and an optional export file.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/orchestrator"
)

// Sink consumes progress events. Handle is called from a single goroutine.
type Sink interface {
	Handle(ev orchestrator.ProgressEvent)
	Close()
}

// Drain forwards every event from ch to each sink until ch is closed, then
// closes the sinks.
func Drain(ch <-chan orchestrator.ProgressEvent, sinks ...Sink) {
	for ev := range ch {
		for _, s := range sinks {
			s.Handle(ev)
		}
	}
	for _, s := range sinks {
		s.Close()
	}
}

// Start runs Drain in a goroutine. The returned function blocks until the
// channel has been drained and every sink closed.
func Start(ch <-chan orchestrator.ProgressEvent, sinks ...Sink) (wait func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		Drain(ch, sinks...)
	}()
	return wg.Wait
}

// Compile-time checks.
var (
	_ Sink = (*LogSink)(nil)
	_ Sink = (*ConsoleSink)(nil)
)

// LogSink writes every event to the structured log.
type LogSink struct {
	log *logging.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(log *logging.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Handle(ev orchestrator.ProgressEvent) {
	args := []any{"stage", ev.Stage.String(), "status", string(ev.Status)}
	if ev.Chunk >= 0 {
		args = append(args, "chunk", ev.Chunk)
	}
	if ev.Total > 0 {
		args = append(args, "completed", ev.Completed, "total", ev.Total)
	}
	if ev.ETA > 0 {
		args = append(args, "eta", ev.ETA.String())
	}
	if ev.Message != "" {
		args = append(args, "message", ev.Message)
	}

	switch ev.Status {
	case orchestrator.ProgressFailed:
		s.log.Warn("progress", args...)
	case orchestrator.ProgressWorking, orchestrator.ProgressPending:
		s.log.Debug("progress", args...)
	default:
		s.log.Info("progress", args...)
	}
}

func (s *LogSink) Close() {}

// ConsoleSink prints stage-level events as status lines. With Verbose set it
// prints per-chunk events too.
type ConsoleSink struct {
	w       io.Writer
	verbose bool
}

// NewConsoleSink creates a ConsoleSink writing to w.
func NewConsoleSink(w io.Writer, verbose bool) *ConsoleSink {
	return &ConsoleSink{w: w, verbose: verbose}
}

func (s *ConsoleSink) Handle(ev orchestrator.ProgressEvent) {
	if ev.Chunk >= 0 && !s.verbose {
		return
	}
	if ev.Chunk < 0 && ev.Status == orchestrator.ProgressWorking {
		return
	}
	fmt.Fprintln(s.w, orchestrator.FormatProgress(ev))
}

func (s *ConsoleSink) Close() {}
