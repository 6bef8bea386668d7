package backend

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/dusk-indust/swiftalign/internal/logging"
)

// versionTimeout bounds each version check.
const versionTimeout = 5 * time.Second

var versionRE = regexp.MustCompile(`v?(\d+)\.(\d+)(?:\.(\d+))?`)

// Tool describes a detected aligner binary.
type Tool struct {
	Name    string
	Path    string
	Version string // empty when the version check could not determine it
	Major   int    // 0 when unknown
	Err     error  // set when the binary could not be located
}

// Found reports whether the binary was located.
func (t Tool) Found() bool { return t.Err == nil && t.Path != "" }

func (t Tool) String() string {
	switch {
	case !t.Found():
		return fmt.Sprintf("%s: not found", t.Name)
	case t.Version == "":
		return fmt.Sprintf("%s: %s (version unknown)", t.Name, t.Path)
	default:
		return fmt.Sprintf("%s: %s (v%s)", t.Name, t.Path, t.Version)
	}
}

// versionArgs are the per-tool version flags.
var versionArgs = map[string][]string{
	MafftName:  {"--version"},
	MuscleName: {"-version"},
}

// Detector locates the aligners and checks their versions.
type Detector struct {
	locator Locator
	runner  Runner
	log     *logging.Logger
}

// NewDetector creates a Detector.
func NewDetector(locator Locator, runner Runner, log *logging.Logger) *Detector {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Detector{locator: locator, runner: runner, log: log}
}

// Detect checks mafft and muscle concurrently. It never fails: a missing
// binary is reported through Tool.Err, an unreadable version as unknown.
func (d *Detector) Detect(ctx context.Context) (mafft, muscle Tool) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		mafft = d.detectOne(ctx, MafftName)
	}()
	go func() {
		defer wg.Done()
		muscle = d.detectOne(ctx, MuscleName)
	}()
	wg.Wait()

	d.log.Info("detected aligners", "mafft", mafft.String(), "muscle", muscle.String())
	return mafft, muscle
}

func (d *Detector) detectOne(ctx context.Context, name string) (tool Tool) {
	tool = Tool{Name: name}

	path, err := d.locator.Find(name)
	if err != nil {
		tool.Err = err
		return tool
	}
	tool.Path = path

	defer func() {
		if r := recover(); r != nil {
			d.log.Warn("version check panicked", "tool", name, "panic", r)
			tool.Version, tool.Major = "", 0
		}
	}()

	versionCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	// Both tools print their version to either stream and some builds exit
	// non-zero, so the output is parsed regardless of the exit status.
	var stdout, stderr bytes.Buffer
	if err := d.runner.Run(versionCtx, Command{Path: path, Args: versionArgs[name], Stdout: &stdout, Stderr: &stderr}); err != nil {
		d.log.Debug("version check returned an error", "tool", name, "error", err)
	}
	tool.Version, tool.Major = ParseVersion(stdout.String() + "\n" + stderr.String())
	return tool
}

// ParseVersion extracts the first dotted version number from tool output,
// e.g. "MUSCLE v3.8.31 by Robert C. Edgar" or "v7.520 (2023/Mar/22)".
func ParseVersion(s string) (version string, major int) {
	m := versionRE.FindStringSubmatch(s)
	if m == nil {
		return "", 0
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return "", 0
	}
	version = m[1] + "." + m[2]
	if m[3] != "" {
		version += "." + m[3]
	}
	return version, major
}
