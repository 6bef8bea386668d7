package backend

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/dusk-indust/swiftalign/internal/msa"
)

// Tool names.
const (
	MafftName  = "mafft"
	MuscleName = "muscle"
)

// Locator resolves aligner binaries. An explicit override wins, then BinDir,
// then PATH.
type Locator struct {
	BinDir    string
	Overrides map[string]string
}

// Find returns the absolute path of the named binary. Aligners run with
// their working directory set to a scratch dir, so a relative path would
// resolve against the wrong directory.
func (l Locator) Find(name string) (string, error) {
	if p := l.Overrides[name]; p != "" {
		if isExecutable(p) {
			return absPath(name, p)
		}
		if found, err := exec.LookPath(p); err == nil {
			return absPath(name, found)
		}
		return "", msa.BackendFailure("locate", exec.ErrNotFound, "%s: configured path %q is not executable", name, p)
	}

	if l.BinDir != "" {
		p := filepath.Join(l.BinDir, name)
		if isExecutable(p) {
			return absPath(name, p)
		}
	}

	p, err := exec.LookPath(name)
	if err != nil {
		if l.BinDir != "" {
			return "", msa.BackendFailure("locate", err, "%s not found in %s or PATH", name, l.BinDir)
		}
		return "", msa.BackendFailure("locate", err, "%s not found in PATH", name)
	}
	return absPath(name, p)
}

func absPath(name, p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", msa.BackendFailure("locate", err, "%s: resolving %q", name, p)
	}
	return abs, nil
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode()&0o111 != 0
}
