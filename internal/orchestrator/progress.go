package orchestrator

import (
	"fmt"
	"time"
)

// progressBuffer is the capacity of the progress channel.
const progressBuffer = 64

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, progressBuffer),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
		// Drop the event if the channel is full.
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	subject := event.Stage.String()
	if event.Chunk >= 0 {
		subject = fmt.Sprintf("chunk %d", event.Chunk)
	}

	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("  ○ %s (pending)", subject)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", subject)
	case ProgressComplete, ProgressSkipped:
		line := fmt.Sprintf("  ✓ %s complete", subject)
		if event.Total > 0 {
			line += fmt.Sprintf(" [%d/%d]", event.Completed, event.Total)
		}
		if event.ETA > 0 {
			line += fmt.Sprintf(" ETA %s", event.ETA.Round(time.Second))
		}
		if event.Message != "" {
			line += " (" + event.Message + ")"
		}
		return line
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", subject, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", subject)
	}
}

// estimateETA returns the mean time per completed unit times the units left.
func estimateETA(elapsed time.Duration, completed, total int) time.Duration {
	if completed <= 0 || completed >= total {
		return 0
	}
	return elapsed / time.Duration(completed) * time.Duration(total-completed)
}
