package backend

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/seqio"
	"github.com/dusk-indust/swiftalign/internal/tuning"
)

// fakeRunner implements Runner with a configurable function.
type fakeRunner struct {
	mu    sync.Mutex
	calls []Command
	run   func(ctx context.Context, cmd Command) error
}

func (f *fakeRunner) Run(ctx context.Context, cmd Command) error {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	return f.run(ctx, cmd)
}

func readInput(t *testing.T, path string) []msa.Record {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := seqio.ReadFASTA(f)
	require.NoError(t, err)
	return recs
}

// padAlign "aligns" records by right-padding them with gaps.
func padAlign(recs []msa.Record) []msa.Record {
	width := 0
	for _, r := range recs {
		width = max(width, len(r.Seq))
	}
	out := make([]msa.Record, len(recs))
	for i, r := range recs {
		out[i] = msa.Record{ID: r.ID, Seq: r.Seq + msa.GapRun(width-len(r.Seq))}
	}
	return out
}

func methodOf(args []string) string {
	switch {
	case slices.Contains(args, "--auto"):
		return "auto"
	case slices.Contains(args, "--globalpair"):
		return "ginsi"
	case slices.Contains(args, "--localpair"):
		return "linsi"
	case slices.Contains(args, "--genafpair"):
		return "einsi"
	default:
		return "fftns"
	}
}

func chunkRequest(t *testing.T, method string) Request {
	return Request{
		WorkDir: t.TempDir(),
		Type:    msa.Nucleotide,
		Records: []msa.Record{
			{ID: "human", Seq: "ACGTACGT"},
			{ID: "mouse", Seq: "ACGACGT"},
			{ID: "yeast", Seq: "ACGT"},
		},
		Params: msa.ParameterSet{Method: method, GapOpen: 1.53, GapExtend: 0.123, MaxIter: 100},
	}
}

func TestMafftArgs_Methods(t *testing.T) {
	tests := []struct {
		method string
		want   []string
	}{
		{"auto", []string{"--auto"}},
		{"fftns1", []string{"--retree", "1", "--maxiterate", "0"}},
		{"fftns2", []string{"--retree", "2", "--maxiterate", "0"}},
		{"fftnsi", []string{"--retree", "2", "--maxiterate", "7"}},
		{"ginsi", []string{"--globalpair", "--maxiterate", "7"}},
		{"linsi", []string{"--localpair", "--maxiterate", "7"}},
		{"einsi", []string{"--genafpair", "--maxiterate", "7"}},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			args, err := MafftArgs(msa.Protein, msa.ParameterSet{Method: tt.method, MaxIter: 7}, "in.fasta")
			require.NoError(t, err)

			want := append([]string{"--thread", "1", "--inputorder", "--quiet", "--amino"}, tt.want...)
			want = append(want, "in.fasta")
			assert.Equal(t, want, args)
		})
	}
}

func TestMafftArgs_CoversEveryTableMethod(t *testing.T) {
	for _, method := range tuning.ChunkMethods {
		_, err := MafftArgs(msa.Nucleotide, msa.ParameterSet{Method: method}, "in.fasta")
		assert.NoError(t, err, method)
	}
}

func TestMafftArgs_PenaltiesAndDefaults(t *testing.T) {
	args, err := MafftArgs(msa.Nucleotide, msa.ParameterSet{Method: "ginsi", GapOpen: 1.5, GapExtend: 0.25}, "in.fasta")
	require.NoError(t, err)
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--nuc")
	assert.Contains(t, joined, "--maxiterate 1000")
	assert.Contains(t, joined, "--op 1.5 --ep 0.25")

	_, err = MafftArgs(msa.Nucleotide, msa.ParameterSet{Method: "clustal"}, "in.fasta")
	assert.ErrorIs(t, err, msa.ErrInvalidConfig)
}

func TestFallbackChain(t *testing.T) {
	assert.Equal(t, []string{"einsi", "ginsi", "linsi", "auto"}, FallbackChain("einsi"))
	assert.Equal(t, []string{"linsi", "ginsi", "auto"}, FallbackChain("linsi"))
	assert.Equal(t, []string{"auto", "ginsi", "linsi"}, FallbackChain(""))
}

func TestMafft_AlignRestoresOrder(t *testing.T) {
	req := chunkRequest(t, "auto")
	runner := &fakeRunner{run: func(_ context.Context, cmd Command) error {
		in := readInput(t, cmd.Args[len(cmd.Args)-1])
		for _, r := range in {
			assert.NotContains(t, r.ID, "human", "user IDs never reach the tool")
		}
		out := padAlign(in)
		slices.Reverse(out)
		for i := range out {
			out[i].Seq = strings.ToLower(out[i].Seq)
		}
		return seqio.WriteFASTA(cmd.Stdout, out)
	}}

	rows, err := NewMafft("mafft", runner, nil).Align(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, msa.Record{ID: "human", Seq: "ACGTACGT"}, rows[0])
	assert.Equal(t, msa.Record{ID: "mouse", Seq: "ACGACGT-"}, rows[1])
	assert.Equal(t, msa.Record{ID: "yeast", Seq: "ACGT----"}, rows[2])
	assert.Equal(t, req.WorkDir, runner.calls[0].Dir)
}

func TestMafft_FallsBackToNextMethod(t *testing.T) {
	var tried []string
	runner := &fakeRunner{run: func(_ context.Context, cmd Command) error {
		method := methodOf(cmd.Args)
		tried = append(tried, method)
		if method != "linsi" {
			return msa.BackendFailure("mafft", errors.New("exit status 1"), "boom")
		}
		return seqio.WriteFASTA(cmd.Stdout, padAlign(readInput(t, cmd.Args[len(cmd.Args)-1])))
	}}

	rows, err := NewMafft("mafft", runner, nil).Align(context.Background(), chunkRequest(t, "einsi"))
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, []string{"einsi", "ginsi", "linsi"}, tried)
}

func TestMafft_AllMethodsFail(t *testing.T) {
	runner := &fakeRunner{run: func(_ context.Context, _ Command) error {
		return msa.BackendFailure("mafft", errors.New("exit status 1"), "boom")
	}}

	_, err := NewMafft("mafft", runner, nil).Align(context.Background(), chunkRequest(t, "ginsi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)
	assert.Contains(t, err.Error(), "ginsi, linsi, auto")
	assert.Len(t, runner.calls, 3)
}

func TestMafft_OmittedRowIsBackendFailure(t *testing.T) {
	runner := &fakeRunner{run: func(_ context.Context, cmd Command) error {
		in := padAlign(readInput(t, cmd.Args[len(cmd.Args)-1]))
		return seqio.WriteFASTA(cmd.Stdout, in[:2])
	}}

	_, err := NewMafft("mafft", runner, nil).Align(context.Background(), chunkRequest(t, "auto"))
	require.Error(t, err)
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)
}

func TestMafft_CancellationStopsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{run: func(ctx context.Context, _ Command) error {
		cancel()
		return msa.BackendFailure("mafft", ctx.Err(), "canceled")
	}}

	_, err := NewMafft("mafft", runner, nil).Align(ctx, chunkRequest(t, "einsi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, runner.calls, 1)
}

func TestRestoreOrder_RejectsDuplicatesAndStrangers(t *testing.T) {
	want := []msa.Record{{ID: "a", Seq: "AC"}, {ID: "b", Seq: "AC"}}

	_, err := restoreOrder("t", want, []msa.Record{{ID: "s0", Seq: "AC"}, {ID: "s0", Seq: "AC"}})
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)

	_, err = restoreOrder("t", want, []msa.Record{{ID: "s0", Seq: "AC"}, {ID: "x1", Seq: "AC"}})
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)

	_, err = restoreOrder("t", want, []msa.Record{{ID: "s0", Seq: "AC"}, {ID: "s7", Seq: "AC"}})
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)
}

func TestMuscleArgs(t *testing.T) {
	p := msa.ParameterSet{Method: "refine", MaxIter: 16}
	assert.Equal(t,
		[]string{"-in", "m.fa", "-out", "r.fa", "-refine", "-maxiters", "16", "-quiet"},
		MuscleArgs(3, p, "m.fa", "r.fa"))
	assert.Equal(t,
		[]string{"-in", "m.fa", "-out", "r.fa", "-refine", "-maxiters", "16", "-quiet"},
		MuscleArgs(0, p, "m.fa", "r.fa"), "unknown version uses v3 syntax")
	assert.Equal(t,
		[]string{"-align", "m.fa", "-output", "r.fa"},
		MuscleArgs(5, p, "m.fa", "r.fa"))
	assert.Equal(t,
		[]string{"-in", "m.fa", "-out", "r.fa", "-quiet"},
		MuscleArgs(3, msa.ParameterSet{Method: "align"}, "m.fa", "r.fa"))
}

// muscleFake writes the -in/-align input back to the output path, reversed.
func muscleFake(t *testing.T, seen *[]msa.Record) *fakeRunner {
	return &fakeRunner{run: func(_ context.Context, cmd Command) error {
		var in, out string
		for i, a := range cmd.Args {
			switch a {
			case "-in", "-align":
				in = cmd.Args[i+1]
			case "-out", "-output":
				out = cmd.Args[i+1]
			}
		}
		recs := readInput(t, in)
		*seen = recs
		recs = padAlign(recs)
		slices.Reverse(recs)
		f, err := os.Create(out)
		require.NoError(t, err)
		defer f.Close()
		return seqio.WriteFASTA(f, recs)
	}}
}

func TestMuscle_RefineV3KeepsGaps(t *testing.T) {
	var seen []msa.Record
	req := Request{
		WorkDir: t.TempDir(),
		Records: []msa.Record{{ID: "a", Seq: "AC-GT"}, {ID: "b", Seq: "ACGGT"}},
		Params:  msa.ParameterSet{Method: "refine", MaxIter: 16},
	}

	rows, err := NewMuscle("muscle", 3, muscleFake(t, &seen), nil).Refine(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "AC-GT", seen[0].Seq, "v3 refines the gapped profile")
	assert.Equal(t, req.Records, rows)
}

func TestMuscle_RefineV5Ungaps(t *testing.T) {
	var seen []msa.Record
	req := Request{
		WorkDir: t.TempDir(),
		Records: []msa.Record{{ID: "a", Seq: "AC-GT"}, {ID: "b", Seq: "ACGGT"}},
		Params:  msa.ParameterSet{Method: "refine", MaxIter: 16},
	}

	rows, err := NewMuscle("muscle", 5, muscleFake(t, &seen), nil).Refine(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ACGT", seen[0].Seq)
	assert.Equal(t, []msa.Record{{ID: "a", Seq: "ACGT-"}, {ID: "b", Seq: "ACGGT"}}, rows)
}

func TestMuscle_NoOutputIsBackendFailure(t *testing.T) {
	runner := &fakeRunner{run: func(context.Context, Command) error { return nil }}
	req := Request{
		WorkDir: t.TempDir(),
		Records: []msa.Record{{ID: "a", Seq: "AC"}, {ID: "b", Seq: "AC"}},
	}
	_, err := NewMuscle("muscle", 3, runner, nil).Refine(context.Background(), req)
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)
}

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestExecRunner_NonZeroExitCarriesStderr(t *testing.T) {
	sh := requireShell(t)
	err := (&ExecRunner{}).Run(context.Background(), Command{Path: sh, Args: []string{"-c", "echo bad input >&2; exit 3"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "bad input")
}

func TestExecRunner_Timeout(t *testing.T) {
	sh := requireShell(t)
	err := (&ExecRunner{Timeout: 50 * time.Millisecond}).Run(context.Background(), Command{Path: sh, Args: []string{"-c", "exec sleep 5"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecRunner_MissingBinary(t *testing.T) {
	err := (&ExecRunner{}).Run(context.Background(), Command{Path: filepath.Join(t.TempDir(), "mafft")})
	require.Error(t, err)
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)
	assert.Contains(t, err.Error(), "not found")
}

func TestExecRunner_CapturesStdout(t *testing.T) {
	sh := requireShell(t)
	var out strings.Builder
	require.NoError(t, (&ExecRunner{}).Run(context.Background(), Command{Path: sh, Args: []string{"-c", "echo hi"}, Stdout: &out}))
	assert.Equal(t, "hi\n", out.String())
}

func TestTailBuffer_KeepsEnd(t *testing.T) {
	tb := &tailBuffer{max: 4}
	_, _ = tb.Write([]byte("abcdef"))
	_, _ = tb.Write([]byte("gh"))
	assert.Equal(t, `"efgh"`, tb.String())
	assert.Equal(t, "(no stderr)", (&tailBuffer{max: 4}).String())
}

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), 0o755))
	return p
}

func TestLocator_Find(t *testing.T) {
	bin := t.TempDir()
	local := writeExecutable(t, bin, "mafft")

	got, err := Locator{BinDir: bin}.Find("mafft")
	require.NoError(t, err)
	assert.Equal(t, local, got)

	override := writeExecutable(t, t.TempDir(), "my-mafft")
	got, err = Locator{BinDir: bin, Overrides: map[string]string{"mafft": override}}.Find("mafft")
	require.NoError(t, err)
	assert.Equal(t, override, got)

	t.Setenv("PATH", t.TempDir())
	_, err = Locator{BinDir: t.TempDir()}.Find("muscle")
	require.Error(t, err)
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)

	_, err = Locator{Overrides: map[string]string{"muscle": filepath.Join(bin, "absent")}}.Find("muscle")
	assert.ErrorIs(t, err, msa.ErrAlignmentBackend)
}

func TestLocator_FindRelativeIsAbsolute(t *testing.T) {
	work := t.TempDir()
	t.Chdir(work)
	require.NoError(t, os.Mkdir("bin", 0o755))
	writeExecutable(t, "bin", "mafft")
	want := filepath.Join(work, "bin", "mafft")

	got, err := Locator{BinDir: "bin"}.Find("mafft")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), got)
	assert.Equal(t, want, got)

	got, err = Locator{Overrides: map[string]string{"mafft": filepath.Join("bin", "mafft")}}.Find("mafft")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		version string
		major   int
	}{
		{"MUSCLE v3.8.31 by Robert C. Edgar", "3.8.31", 3},
		{"muscle 5.1.linux64 [12f0e2]", "5.1", 5},
		{"v7.520 (2023/Mar/22)", "7.520", 7},
		{"command not found", "", 0},
	}
	for _, tt := range tests {
		version, major := ParseVersion(tt.in)
		assert.Equal(t, tt.version, version, tt.in)
		assert.Equal(t, tt.major, major, tt.in)
	}
}

func TestDetector_Detect(t *testing.T) {
	bin := t.TempDir()
	writeExecutable(t, bin, "mafft")
	writeExecutable(t, bin, "muscle")
	t.Setenv("PATH", t.TempDir())

	runner := &fakeRunner{run: func(_ context.Context, cmd Command) error {
		switch filepath.Base(cmd.Path) {
		case "mafft":
			_, _ = cmd.Stderr.Write([]byte("v7.505 (2022/Apr/10)\n"))
			return errors.New("exit status 1")
		default:
			_, _ = cmd.Stdout.Write([]byte("MUSCLE v3.8.31 by Robert C. Edgar\n"))
			return nil
		}
	}}

	mafft, muscle := NewDetector(Locator{BinDir: bin}, runner, nil).Detect(context.Background())
	assert.True(t, mafft.Found())
	assert.Equal(t, "7.505", mafft.Version)
	assert.Equal(t, 7, mafft.Major)
	assert.Equal(t, 3, muscle.Major)
	assert.Contains(t, muscle.String(), "v3.8.31")
}

func TestDetector_MissingAndPanickingChecks(t *testing.T) {
	bin := t.TempDir()
	writeExecutable(t, bin, "muscle")
	t.Setenv("PATH", t.TempDir())

	runner := &fakeRunner{run: func(context.Context, Command) error { panic("version check exploded") }}

	mafft, muscle := NewDetector(Locator{BinDir: bin}, runner, nil).Detect(context.Background())
	assert.False(t, mafft.Found())
	assert.Equal(t, "mafft: not found", mafft.String())
	assert.True(t, muscle.Found())
	assert.Equal(t, 0, muscle.Major)
	assert.Contains(t, muscle.String(), "version unknown")
}
