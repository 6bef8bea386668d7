package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/dusk-indust/swiftalign/internal/msa"
)

// waitDelay bounds how long a killed process's children may hold its pipes.
const waitDelay = time.Second

// stderrTail is how much of a failing tool's stderr is kept for the error.
const stderrTail = 2048

// Command is a single external process invocation.
type Command struct {
	Path string
	Args []string
	Dir  string

	// Stdout receives the process's standard output. Nil discards it.
	Stdout io.Writer

	// Stderr, if set, also receives the process's standard error.
	Stderr io.Writer
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// Compile-time check.
var _ Runner = (*ExecRunner)(nil)

// ExecRunner runs commands with os/exec. A zero Timeout means no per-call
// limit beyond ctx.
type ExecRunner struct {
	Timeout time.Duration
}

// Run executes cmd and classifies every failure as ErrAlignmentBackend: a
// missing binary, a timeout, cancellation, or a non-zero exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	name := cmdName(cmd.Path)
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	c.WaitDelay = waitDelay
	c.Stdout = cmd.Stdout

	tail := &tailBuffer{max: stderrTail}
	if cmd.Stderr != nil {
		c.Stderr = io.MultiWriter(tail, cmd.Stderr)
	} else {
		c.Stderr = tail
	}

	err := c.Run()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return msa.BackendFailure(name, err, "binary %q not found", cmd.Path)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return msa.BackendFailure(name, ctx.Err(), "timed out")
	case ctx.Err() != nil:
		return msa.BackendFailure(name, ctx.Err(), "canceled")
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return msa.BackendFailure(name, err, "exit status %d: %s", exitErr.ExitCode(), tail.String())
	}
	return msa.BackendFailure(name, err, "run %s", cmd)
}

func cmdName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	s := strings.TrimSpace(string(t.buf))
	if s == "" {
		return "(no stderr)"
	}
	return fmt.Sprintf("%q", s)
}
