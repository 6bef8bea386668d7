package seqio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/swiftalign/internal/msa"
)

// Format is an alignment output format.
type Format string

const (
	FormatFASTA   Format = "fasta"
	FormatClustal Format = "clustal"
	FormatPHYLIP  Format = "phylip"
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatFASTA, FormatClustal, FormatPHYLIP}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", msa.InvalidConfig("format", "unsupported output format %q (want fasta, clustal or phylip)", s)
}

const (
	clustalBlock = 60
	phylipBlock  = 50
	phylipName   = 10
)

// Write serializes an alignment.
func Write(w io.Writer, aln msa.Alignment, format Format) error {
	if !aln.Rectangular() {
		return msa.MergeInconsistency("format", "refusing to write a non-rectangular alignment")
	}
	switch format {
	case FormatFASTA:
		return WriteFASTA(w, aln.Records())
	case FormatClustal:
		return writeClustal(w, aln)
	case FormatPHYLIP:
		return writePHYLIP(w, aln)
	default:
		return msa.InvalidConfig("format", "unsupported output format %q", format)
	}
}

// WriteFile writes the alignment to path through a temporary file in the
// same directory, renamed into place only after a complete write.
func WriteFile(path string, aln msa.Alignment, format Format) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp output in %s: %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = Write(bw, aln, format); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

func writeClustal(w io.Writer, aln msa.Alignment) error {
	bw := bufio.NewWriter(w)

	width := 16
	for _, r := range aln.Rows {
		width = max(width, len(r.ID)+6)
	}

	fmt.Fprint(bw, "CLUSTAL W multiple sequence alignment\n\n\n")
	cols := aln.Columns()
	for start := 0; start < cols; start += clustalBlock {
		end := min(start+clustalBlock, cols)
		for _, r := range aln.Rows {
			fmt.Fprintf(bw, "%-*s%s\n", width, r.ID, r.Gapped[start:end])
		}
		fmt.Fprintf(bw, "%s%s\n\n", strings.Repeat(" ", width), conservation(aln, start, end))
	}
	return bw.Flush()
}

// conservation marks fully conserved, gap-free columns with '*'.
func conservation(aln msa.Alignment, start, end int) string {
	line := make([]byte, end-start)
	for c := start; c < end; c++ {
		mark := byte('*')
		first := aln.Rows[0].Gapped[c]
		if first == msa.Gap {
			mark = ' '
		}
		for _, r := range aln.Rows[1:] {
			if r.Gapped[c] != first {
				mark = ' '
				break
			}
		}
		line[c-start] = mark
	}
	return string(line)
}

// CheckIDs reports identifiers that format cannot write distinctly. Only
// PHYLIP restricts them, truncating names to 10 characters.
func CheckIDs(format Format, ids []string) error {
	if format != FormatPHYLIP {
		return nil
	}
	_, err := phylipNames(ids)
	return err
}

func phylipNames(ids []string) ([]string, error) {
	names := make([]string, len(ids))
	seen := make(map[string]string, len(ids))
	for i, id := range ids {
		name := id
		if len(name) > phylipName {
			name = name[:phylipName]
		}
		if prev, dup := seen[name]; dup {
			return nil, msa.InvalidInput("phylip", "identifiers %q and %q collide when truncated to %d characters", prev, id, phylipName)
		}
		seen[name] = id
		names[i] = name
	}
	return names, nil
}

func writePHYLIP(w io.Writer, aln msa.Alignment) error {
	ids := make([]string, aln.Len())
	for i, r := range aln.Rows {
		ids[i] = r.ID
	}
	names, err := phylipNames(ids)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	cols := aln.Columns()
	fmt.Fprintf(bw, " %d %d\n", aln.Len(), cols)
	for start := 0; start < cols || start == 0; start += phylipBlock {
		end := min(start+phylipBlock, cols)
		if start > 0 {
			bw.WriteByte('\n')
		}
		for i, r := range aln.Rows {
			if start == 0 {
				fmt.Fprintf(bw, "%-*s", phylipName, names[i])
			}
			bw.WriteString(spaced(r.Gapped[start:end]))
			bw.WriteByte('\n')
		}
		if cols == 0 {
			break
		}
	}
	return bw.Flush()
}

// spaced inserts a space every 10 residues.
func spaced(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i += 10 {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i:min(i+10, len(s))])
	}
	return b.String()
}
