package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
)

// scratchPrefix names every per-run scratch directory.
const scratchPrefix = "swiftalign-"

// newScratchDir creates <root>/swiftalign-<runID> and returns its absolute
// path. An empty root means the OS temp directory. The returned cleanup
// removes the whole tree.
func newScratchDir(root, runID string) (string, func() error, error) {
	if root == "" {
		root = os.TempDir()
	}
	// Aligners run with the chunk directory as their working directory, so
	// every path handed to them must be absolute.
	root, err := filepath.Abs(root)
	if err != nil {
		return "", nil, fmt.Errorf("resolve scratch root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", nil, fmt.Errorf("create scratch root %s: %w", root, err)
	}

	dir := filepath.Join(root, scratchPrefix+runID)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}
