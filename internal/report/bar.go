package report

import (
	"io"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/dusk-indust/swiftalign/internal/orchestrator"
)

// Compile-time check.
var _ Sink = (*BarSink)(nil)

const barLabel = "aligned chunks: "

// BarSink renders chunk alignment as a progress bar with an EWMA ETA. The
// bar is created on the first align event, once the chunk count is known.
type BarSink struct {
	pbs  *mpb.Progress
	bar  *mpb.Bar
	last time.Time
	now  func() time.Time
}

// NewBarSink creates a BarSink drawing to w.
func NewBarSink(w io.Writer) *BarSink {
	return &BarSink{
		pbs: mpb.New(mpb.WithWidth(40), mpb.WithOutput(w)),
		now: time.Now,
	}
}

func (s *BarSink) Handle(ev orchestrator.ProgressEvent) {
	if ev.Stage != orchestrator.StageAlign {
		return
	}
	if s.bar == nil && ev.Total > 0 {
		s.bar = s.pbs.AddBar(int64(ev.Total),
			mpb.PrependDecorators(
				decor.Name(barLabel, decor.WC{W: len(barLabel), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.EwmaETA(decor.ET_STYLE_GO, 10),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
		s.last = s.now()
	}
	if s.bar == nil {
		return
	}

	switch {
	case ev.Done():
		now := s.now()
		s.bar.EwmaIncrBy(1, now.Sub(s.last))
		s.last = now
	case ev.Status == orchestrator.ProgressFailed:
		s.bar.Abort(false)
	}
}

// Close finishes the bar and waits for the final render. A bar that missed
// events is completed at its current count.
func (s *BarSink) Close() {
	if s.bar != nil && !s.bar.Completed() && !s.bar.Aborted() {
		s.bar.SetTotal(-1, true)
	}
	s.pbs.Wait()
}
