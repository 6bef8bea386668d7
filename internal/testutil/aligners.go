// Package testutil provides stand-in aligner binaries for tests that drive
// the real exec path.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// FakeMafft prints its last argument, a FASTA file, with every sequence
// right-padded with gaps to the longest length.
const FakeMafft = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "v7.505 (2022/Apr/10)" >&2
	exit 0
fi
for last; do :; done
awk '
/^>/ { n++; ids[n] = $0; seq[n] = ""; next }
{ seq[n] = seq[n] $0 }
END {
	m = 0
	for (i = 1; i <= n; i++) if (length(seq[i]) > m) m = length(seq[i])
	for (i = 1; i <= n; i++) {
		t = seq[i]
		while (length(t) < m) t = t "-"
		print ids[i]
		print t
	}
}' "$last"
`

// FakeMuscle3 behaves like MUSCLE 3.8 asked to refine: it copies -in to -out.
const FakeMuscle3 = `#!/bin/sh
if [ "$1" = "-version" ]; then
	echo "MUSCLE v3.8.31 by Robert C. Edgar"
	exit 0
fi
while [ $# -gt 0 ]; do
	case "$1" in
	-in) in="$2"; shift ;;
	-out) out="$2"; shift ;;
	esac
	shift
done
cp "$in" "$out"
`

// FailingMafft reports a version but fails every alignment.
const FailingMafft = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "v7.505 (2022/Apr/10)" >&2
	exit 0
fi
echo "mafft: simulated failure" >&2
exit 1
`

// SkipIfNoShell skips the test when the tools the stand-ins need are missing.
func SkipIfNoShell(t *testing.T) {
	t.Helper()
	for _, tool := range []string{"sh", "awk", "cp"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not available", tool)
		}
	}
}

// InstallAligners writes executable mafft and muscle scripts into a new
// temporary directory and returns it, for use as a bin dir.
func InstallAligners(t *testing.T, mafft, muscle string) string {
	t.Helper()
	SkipIfNoShell(t)

	dir := t.TempDir()
	for name, script := range map[string]string{"mafft": mafft, "muscle": muscle} {
		if script == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
			t.Fatalf("failed to install %s: %v", name, err)
		}
	}
	return dir
}

// SampleFASTA returns the path of the shared sample input, relative to a
// package directory two levels below the module root.
func SampleFASTA() string {
	return filepath.Join("..", "..", "testdata", "sequences.fasta")
}
