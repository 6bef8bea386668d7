package backend

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/msa"
)

// Compile-time check.
var _ AccurateAligner = (*Muscle)(nil)

// Muscle runs MUSCLE over the merged alignment. MUSCLE 3 refines the merged
// rows as a profile; MUSCLE 5 has no refine mode, so it realigns the
// ungapped sequences instead.
type Muscle struct {
	path   string
	major  int
	runner Runner
	log    *logging.Logger
}

// NewMuscle creates a Muscle adapter. major is the detected major version;
// zero (unknown) uses MUSCLE 3 syntax.
func NewMuscle(path string, major int, runner Runner, log *logging.Logger) *Muscle {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Muscle{path: path, major: major, runner: runner, log: log.With("tool", MuscleName)}
}

// Refine implements AccurateAligner.
func (m *Muscle) Refine(ctx context.Context, req Request) ([]msa.Record, error) {
	ungapped := m.major >= 5 || req.Params.Method == "align"
	input := filepath.Join(req.WorkDir, "merged.fasta")
	output := filepath.Join(req.WorkDir, "refined.fasta")

	if err := writeKeyed(input, req.Records, ungapped); err != nil {
		return nil, msa.BackendFailure(MuscleName, err, "prepare input")
	}

	args := MuscleArgs(m.major, req.Params, input, output)
	m.log.Debug("running", "major", m.major, "args", args)
	if err := m.runner.Run(ctx, Command{Path: m.path, Args: args, Dir: req.WorkDir}); err != nil {
		return nil, err
	}
	return readKeyedFile(MuscleName, output, req.Records)
}

// MuscleArgs builds the MUSCLE argument list for the given major version.
func MuscleArgs(major int, p msa.ParameterSet, input, output string) []string {
	if major >= 5 {
		return []string{"-align", input, "-output", output}
	}

	args := []string{"-in", input, "-out", output}
	if p.Method != "align" {
		args = append(args, "-refine")
	}
	if p.MaxIter > 0 {
		args = append(args, "-maxiters", strconv.Itoa(p.MaxIter))
	}
	return append(args, "-quiet")
}
