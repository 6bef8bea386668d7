package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dusk-indust/swiftalign/internal/msa"
)

// EnvPrefix prefixes every environment override, e.g. SWIFTALIGN_CHUNK_SIZE.
const EnvPrefix = "SWIFTALIGN"

// Config represents the complete SwiftAlign run configuration.
type Config struct {
	// Input is the FASTA file to align ("-" reads stdin).
	Input string `mapstructure:"input"`
	// Output is the alignment file to write.
	Output string `mapstructure:"output"`
	// Format is the output format: fasta, clustal or phylip.
	Format string `mapstructure:"format"`
	// Mode is fast or accurate.
	Mode string `mapstructure:"mode"`
	// ChunkSize is the number of sequences per chunk.
	ChunkSize int `mapstructure:"chunk_size"`
	// Threads is the number of chunks aligned concurrently.
	Threads int `mapstructure:"threads"`

	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`

	// TuningTable is a YAML or TOML tuning table replacing the built-in one.
	TuningTable string `mapstructure:"tuning_table"`

	// BinDir is searched for the aligner binaries before PATH.
	BinDir     string `mapstructure:"bin_dir"`
	MafftPath  string `mapstructure:"mafft_path"`
	MusclePath string `mapstructure:"muscle_path"`

	// Timeout bounds every external aligner invocation (0 = none).
	Timeout time.Duration `mapstructure:"timeout"`

	// ScratchDir is the parent of the per-run scratch directory.
	ScratchDir string `mapstructure:"scratch_dir"`

	// Summary, if set, exports the run summary (.json, .yaml or .toml).
	Summary string `mapstructure:"summary"`

	// Progress controls the progress bar: auto, always or never.
	Progress string `mapstructure:"progress"`

	// Verbose prints per-chunk status lines.
	Verbose bool `mapstructure:"verbose"`

	Divergence DivergenceConfig `mapstructure:"divergence"`
}

// DivergenceConfig tunes the divergence estimator.
type DivergenceConfig struct {
	KNucleotide int    `mapstructure:"k_nucleotide"`
	KProtein    int    `mapstructure:"k_protein"`
	MaxPairs    int    `mapstructure:"max_pairs"`
	Seed        uint64 `mapstructure:"seed"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Format:    "fasta",
		Mode:      "accurate",
		ChunkSize: 200,
		Threads:   4,
		LogFile:   "swiftalign.log",
		LogLevel:  "info",
		Progress:  ProgressAuto,
		Divergence: DivergenceConfig{
			KNucleotide: 4,
			KProtein:    2,
			MaxPairs:    1000,
			Seed:        42,
		},
	}
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("input", defaults.Input)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("mode", defaults.Mode)
	v.SetDefault("chunk_size", defaults.ChunkSize)
	v.SetDefault("threads", defaults.Threads)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("tuning_table", defaults.TuningTable)
	v.SetDefault("bin_dir", defaults.BinDir)
	v.SetDefault("mafft_path", defaults.MafftPath)
	v.SetDefault("muscle_path", defaults.MusclePath)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("scratch_dir", defaults.ScratchDir)
	v.SetDefault("summary", defaults.Summary)
	v.SetDefault("progress", defaults.Progress)
	v.SetDefault("verbose", defaults.Verbose)

	v.SetDefault("divergence.k_nucleotide", defaults.Divergence.KNucleotide)
	v.SetDefault("divergence.k_protein", defaults.Divergence.KProtein)
	v.SetDefault("divergence.max_pairs", defaults.Divergence.MaxPairs)
	v.SetDefault("divergence.seed", defaults.Divergence.Seed)
}

// Init prepares v: defaults, environment overrides, and the config file.
// An explicit cfgFile must exist; otherwise swiftalign.yaml is looked up in
// the working directory and ConfigDir, and a missing file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("swiftalign")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(ConfigDir())
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	// Replace dots with underscores for nested keys in env vars
	// e.g., SWIFTALIGN_DIVERGENCE_MAX_PAIRS for divergence.max_pairs
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return msa.InvalidConfig("config", "read %s: %v", describe(cfgFile), err)
	}
	return nil
}

func describe(cfgFile string) string {
	if cfgFile == "" {
		return "swiftalign.yaml"
	}
	return cfgFile
}

// Load reads the configuration from v into a Config struct and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, msa.InvalidConfig("config", "decode: %v", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &msa.Error{Kind: msa.ErrInvalidConfig, Op: "config", Err: errs}
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "swiftalign")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swiftalign"
	}
	return filepath.Join(home, ".config", "swiftalign")
}
