package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/swiftalign/internal/msa"
)

// version is set by goreleaser at build time.
var version = "dev"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2 // bad input, too few sequences, or bad configuration
	exitBackend = 3 // an external aligner failed
	exitMerge   = 4 // internal merge invariant broken
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps an error to the process exit status by its kind.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch msa.KindOf(err) {
	case msa.ErrInvalidInput, msa.ErrInsufficientData, msa.ErrInvalidConfig:
		return exitUsage
	case msa.ErrAlignmentBackend:
		return exitBackend
	case msa.ErrMergeConsistency:
		return exitMerge
	default:
		return exitFailure
	}
}
