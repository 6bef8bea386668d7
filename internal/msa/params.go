package msa

import (
	"fmt"
	"strings"
)

// DivergenceScore summarizes expected pairwise dissimilarity, in [0, 1].
type DivergenceScore float64

// Mode trades speed for quality.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeAccurate Mode = "accurate"
)

// ParseMode validates a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFast:
		return ModeFast, nil
	case ModeAccurate:
		return ModeAccurate, nil
	default:
		return "", InvalidConfig("mode", "unsupported mode %q (want fast or accurate)", s)
	}
}

// ParameterSet is the tuned configuration for one stage. GapOpen and
// GapExtend are positive penalty magnitudes; zero leaves the backend default.
type ParameterSet struct {
	Mode      Mode
	Method    string
	GapOpen   float64
	GapExtend float64
	MaxIter   int
}

func (p ParameterSet) String() string {
	return fmt.Sprintf("mode=%s method=%s gap_open=%g gap_extend=%g max_iter=%d",
		p.Mode, p.Method, p.GapOpen, p.GapExtend, p.MaxIter)
}
