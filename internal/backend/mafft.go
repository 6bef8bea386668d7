package backend

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/seqio"
)

// defaultMaxIterate is passed to iterative MAFFT strategies when the tuned
// parameters leave MaxIter at zero.
const defaultMaxIterate = 1000

// fallbackMethods are tried, in order, after the requested method fails.
var fallbackMethods = []string{"ginsi", "linsi", "auto"}

// Compile-time check.
var _ FastAligner = (*Mafft)(nil)

// Mafft runs MAFFT on a chunk. If the tuned method fails it falls back
// through progressively more conservative strategies before giving up.
type Mafft struct {
	path   string
	runner Runner
	log    *logging.Logger
}

// NewMafft creates a Mafft adapter for the binary at path.
func NewMafft(path string, runner Runner, log *logging.Logger) *Mafft {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Mafft{path: path, runner: runner, log: log.With("tool", MafftName)}
}

// Align implements FastAligner.
func (m *Mafft) Align(ctx context.Context, req Request) ([]msa.Record, error) {
	input := filepath.Join(req.WorkDir, "input.fasta")
	if err := writeKeyed(input, req.Records, true); err != nil {
		return nil, msa.BackendFailure(MafftName, err, "prepare input")
	}

	chain := FallbackChain(req.Params.Method)
	var errs []error
	for _, method := range chain {
		if err := ctx.Err(); err != nil {
			return nil, msa.BackendFailure(MafftName, err, "canceled")
		}

		params := req.Params
		params.Method = method
		rows, err := m.run(ctx, req, params, input)
		if err == nil {
			if method != req.Params.Method {
				m.log.Warn("recovered with fallback method", "requested", req.Params.Method, "method", method)
			}
			return rows, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		m.log.Warn("method failed", "method", method, "error", err)
		errs = append(errs, err)
	}
	return nil, msa.BackendFailure(MafftName, errors.Join(errs...), "all methods failed (%s)", strings.Join(chain, ", "))
}

func (m *Mafft) run(ctx context.Context, req Request, params msa.ParameterSet, input string) ([]msa.Record, error) {
	args, err := MafftArgs(req.Type, params, input)
	if err != nil {
		return nil, err
	}

	var stdout bytes.Buffer
	if err := m.runner.Run(ctx, Command{Path: m.path, Args: args, Dir: req.WorkDir, Stdout: &stdout}); err != nil {
		return nil, err
	}

	got, err := seqio.ReadFASTA(&stdout)
	if err != nil {
		return nil, msa.BackendFailure(MafftName, err, "unparseable output for method %s", params.Method)
	}
	return restoreOrder(MafftName, req.Records, got)
}

// FallbackChain returns the methods tried for a requested method, without
// duplicates. An empty method starts at auto.
func FallbackChain(method string) []string {
	if method == "" {
		method = "auto"
	}
	chain := []string{method}
	for _, m := range fallbackMethods {
		if !slices.Contains(chain, m) {
			chain = append(chain, m)
		}
	}
	return chain
}

// MafftArgs builds the MAFFT argument list for one invocation.
func MafftArgs(t msa.SeqType, p msa.ParameterSet, input string) ([]string, error) {
	args := []string{"--thread", "1", "--inputorder", "--quiet"}
	if t == msa.Nucleotide {
		args = append(args, "--nuc")
	} else {
		args = append(args, "--amino")
	}

	iter := p.MaxIter
	if iter <= 0 {
		iter = defaultMaxIterate
	}
	n := strconv.Itoa(iter)

	switch p.Method {
	case "auto", "":
		args = append(args, "--auto")
	case "fftns1":
		args = append(args, "--retree", "1", "--maxiterate", "0")
	case "fftns2":
		args = append(args, "--retree", "2", "--maxiterate", "0")
	case "fftnsi":
		args = append(args, "--retree", "2", "--maxiterate", n)
	case "ginsi":
		args = append(args, "--globalpair", "--maxiterate", n)
	case "linsi":
		args = append(args, "--localpair", "--maxiterate", n)
	case "einsi":
		args = append(args, "--genafpair", "--maxiterate", n)
	default:
		return nil, msa.InvalidConfig(MafftName, "unknown method %q", p.Method)
	}

	if p.GapOpen > 0 {
		args = append(args, "--op", formatFloat(p.GapOpen))
	}
	if p.GapExtend > 0 {
		args = append(args, "--ep", formatFloat(p.GapExtend))
	}
	return append(args, input), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
