package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dusk-indust/swiftalign/internal/backend"
	"github.com/dusk-indust/swiftalign/internal/config"
	"github.com/dusk-indust/swiftalign/internal/divergence"
	"github.com/dusk-indust/swiftalign/internal/logging"
	"github.com/dusk-indust/swiftalign/internal/msa"
	"github.com/dusk-indust/swiftalign/internal/orchestrator"
	"github.com/dusk-indust/swiftalign/internal/report"
	"github.com/dusk-indust/swiftalign/internal/seqio"
	"github.com/dusk-indust/swiftalign/internal/tuning"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	stdout  io.Writer
	stderr  io.Writer

	// isTerminal reports whether stderr is an interactive terminal.
	isTerminal func() bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:          viper.New(),
		stdout:     stdout,
		stderr:     stderr,
		isTerminal: func() bool { return isTerminal(stderr) },
	}

	root := &cobra.Command{
		Use:   "swiftalign -i input.fasta -o output.aln",
		Short: "Hybrid multiple sequence alignment with MAFFT and MUSCLE",
		Long: `SwiftAlign splits a large sequence set into chunks, aligns the chunks in
parallel with MAFFT, merges the partial alignments into one column-consistent
alignment, and refines the result with MUSCLE. Alignment parameters are tuned
from the estimated divergence of the input.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.Init(a.v, a.cfgFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.align(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return msa.InvalidConfig("flags", "%v", err)
	})
	// Accept --chunk_size as well as --chunk-size.
	root.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := config.Default()

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./swiftalign.yaml or "+config.ConfigDir()+"/swiftalign.yaml)")
	pf.String("log-file", defaults.LogFile, "log file path (empty logs to stderr)")
	pf.String("log-level", strings.ToLower(defaults.LogLevel), "log level: debug, info, warn, error")
	pf.String("bin-dir", "", "directory searched for mafft and muscle before PATH")
	pf.String("mafft", "", "path to the mafft binary")
	pf.String("muscle", "", "path to the muscle binary")
	pf.Duration("timeout", 0, "timeout per aligner invocation (0 means none)")
	pf.String("tuning-table", "", "YAML or TOML tuning table replacing the built-in one")

	f := root.Flags()
	f.StringP("input", "i", "", "input FASTA file, plain or compressed (- reads stdin)")
	f.StringP("output", "o", "", "output alignment file")
	f.String("format", defaults.Format, "output format: fasta, clustal, phylip")
	f.String("mode", defaults.Mode, "speed/quality trade-off: fast or accurate")
	f.Int("chunk-size", defaults.ChunkSize, "sequences per chunk")
	f.Int("threads", defaults.Threads, "chunks aligned concurrently")
	f.String("scratch-dir", "", "parent directory for run scratch files (default OS temp dir)")
	f.String("summary", "", "export the run summary to a .json, .yaml or .toml file")
	f.String("progress", defaults.Progress, "progress bar: auto, always, never")
	f.BoolP("verbose", "v", false, "print per-chunk progress")

	bindFlags(a.v, pf, map[string]string{
		"log-file":     "log_file",
		"log-level":    "log_level",
		"bin-dir":      "bin_dir",
		"mafft":        "mafft_path",
		"muscle":       "muscle_path",
		"timeout":      "timeout",
		"tuning-table": "tuning_table",
	})
	bindFlags(a.v, f, map[string]string{
		"input":       "input",
		"output":      "output",
		"format":      "format",
		"mode":        "mode",
		"chunk-size":  "chunk_size",
		"threads":     "threads",
		"scratch-dir": "scratch_dir",
		"summary":     "summary",
		"progress":    "progress",
		"verbose":     "verbose",
	})

	root.AddCommand(
		newCheckCmd(a),
		newTuningCmd(a),
		newVersionCmd(a),
	)
	return root
}

// bindFlags binds each flag to its config key so that flags take
// precedence over the config file and environment.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		_ = v.BindPFlag(key, fs.Lookup(flag))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// align runs one full alignment: load, detect the aligners, run the
// pipeline, write the alignment, and report.
func (a *app) align(ctx context.Context) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	log, err := logging.NewLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return msa.InvalidConfig("log_file", "%v", err)
	}
	defer log.Close()

	printBanner(a.stdout)

	format, err := seqio.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	mode, err := msa.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	table, err := tuning.LoadTable(cfg.TuningTable)
	if err != nil {
		return err
	}

	set, err := seqio.LoadSet(cfg.Input)
	if err != nil {
		return err
	}
	log.Info("input loaded", "path", cfg.Input, "sequences", set.Len(), "type", set.Type().String())

	ids := make([]string, set.Len())
	for i := range ids {
		ids[i] = set.At(i).ID
	}
	if err := seqio.CheckIDs(format, ids); err != nil {
		return err
	}

	runner := &backend.ExecRunner{Timeout: cfg.Timeout}
	mafft, muscle, err := a.detect(ctx, cfg, runner, log)
	if err != nil {
		return err
	}

	pipeline, err := orchestrator.NewPipeline(orchestrator.Config{
		Mode:        mode,
		ChunkSize:   cfg.ChunkSize,
		Threads:     cfg.Threads,
		ScratchRoot: cfg.ScratchDir,
		Divergence: divergence.Estimator{
			KNucleotide: cfg.Divergence.KNucleotide,
			KProtein:    cfg.Divergence.KProtein,
			MaxPairs:    cfg.Divergence.MaxPairs,
			Seed:        cfg.Divergence.Seed,
		},
		Tuning: &table,
	}, orchestrator.Backends{
		Fast:     backend.NewMafft(mafft.Path, runner, log.With("tool", backend.MafftName)),
		Accurate: backend.NewMuscle(muscle.Path, muscle.Major, runner, log.With("tool", backend.MuscleName)),
	}, log)
	if err != nil {
		return err
	}

	wait := report.Start(pipeline.Progress(), a.sinks(cfg, log)...)
	res, err := pipeline.Run(ctx, set)
	pipeline.Close()
	wait()
	if err != nil {
		return err
	}

	if err := seqio.WriteFile(cfg.Output, res.Final, format); err != nil {
		return fmt.Errorf("writing alignment: %w", err)
	}
	log.Info("alignment written", "path", cfg.Output, "format", string(format))

	summary := report.NewSummary(res, report.RunInfo{
		Input:  cfg.Input,
		Output: cfg.Output,
		Format: string(format),
		Mode:   mode,
		Mafft:  mafft.Version,
		Muscle: muscle.Version,
	})
	summary.Log(log)
	if err := summary.WriteText(a.stdout); err != nil {
		return err
	}
	if cfg.Summary != "" {
		if err := summary.WriteFile(cfg.Summary); err != nil {
			return err
		}
		log.Info("summary exported", "path", cfg.Summary)
	}

	printFooter(a.stdout)
	return nil
}

// detect locates both aligners. Either one missing fails the run.
func (a *app) detect(ctx context.Context, cfg *config.Config, runner backend.Runner, log *logging.Logger) (mafft, muscle backend.Tool, err error) {
	mafft, muscle = backend.NewDetector(locator(cfg), runner, log).Detect(ctx)
	for _, tool := range []backend.Tool{mafft, muscle} {
		if !tool.Found() {
			return mafft, muscle, tool.Err
		}
	}
	log.Info("aligners detected", "mafft", mafft.String(), "muscle", muscle.String())
	if legacyMuscle(muscle) {
		log.Warn("MUSCLE 3.x detected, running with -in/-out/-refine flags", "version", muscle.Version)
	}
	return mafft, muscle, nil
}

func locator(cfg *config.Config) backend.Locator {
	return backend.Locator{
		BinDir: cfg.BinDir,
		Overrides: map[string]string{
			backend.MafftName:  cfg.MafftPath,
			backend.MuscleName: cfg.MusclePath,
		},
	}
}

// legacyMuscle reports a MUSCLE older than 5, which takes v3 flags.
func legacyMuscle(t backend.Tool) bool {
	return t.Found() && t.Major > 0 && t.Major < 5
}

// sinks picks the progress consumers for a run.
func (a *app) sinks(cfg *config.Config, log *logging.Logger) []report.Sink {
	sinks := []report.Sink{
		report.NewLogSink(log.WithPhase("progress")),
		report.NewConsoleSink(a.stdout, cfg.Verbose),
	}
	if a.showBar(cfg.Progress) {
		sinks = append(sinks, report.NewBarSink(a.stderr))
	}
	return sinks
}

func (a *app) showBar(mode string) bool {
	switch strings.ToLower(mode) {
	case config.ProgressAlways:
		return true
	case config.ProgressNever:
		return false
	default:
		return a.isTerminal()
	}
}
