package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"gridpolicy/optimizer"
	"gridpolicy/policy"
	"gridpolicy/score"
)

var errInvalidConfig = errors.New("invalid config")

// Config is the search configuration. A YAML file is overlaid on
// DefaultConfig and explicitly set flags are applied last.
type Config struct {
	Iterations         int           `yaml:"iterations"`
	Workers            int           `yaml:"workers"`
	MergeEvery         int           `yaml:"merge_every"`
	CheckpointEvery    int           `yaml:"checkpoint_every"`
	ProgressEvery      time.Duration `yaml:"progress_every"`
	ReplayFinalPercent int           `yaml:"replay_final_percent"`

	Mode                   string  `yaml:"mode"`
	LearningRate           float64 `yaml:"learning_rate"`
	ExplorationRate        float64 `yaml:"exploration_rate"`
	ForceReplayProbability float64 `yaml:"force_replay_probability"`
	Seed                   int64   `yaml:"seed"` // 0 = time-based
	Debug                  bool    `yaml:"debug"`

	CheckpointDir  string `yaml:"checkpoint_dir"`
	Resume         bool   `yaml:"resume"`
	HistoryDB      string `yaml:"history_db"`
	WebPort        int    `yaml:"web_port"` // 0 disables the dashboard
	TUI            bool   `yaml:"tui"`
	ShowTrajectory bool   `yaml:"show_trajectory"`
}

func defaultWorkers() int {
	workers := int(float64(runtime.NumCPU()) * 0.40)
	if workers < 1 {
		workers = 1
	}
	return workers
}

func DefaultConfig() Config {
	return Config{
		Iterations:             1000,
		Workers:                defaultWorkers(),
		MergeEvery:             10,
		CheckpointEvery:        5,
		ProgressEvery:          10 * time.Second,
		ReplayFinalPercent:     2,
		Mode:                   score.Balanced.String(),
		LearningRate:           policy.DefaultLearningRate,
		ExplorationRate:        policy.DefaultExplorationRate,
		ForceReplayProbability: policy.DefaultForceReplayProbability,
		CheckpointDir:          "checkpoints",
		Resume:                 true,
	}
}

// LoadConfig overlays the YAML file at path on base. Keys absent from the
// file keep base's values.
func LoadConfig(path string, base Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Iterations <= 0:
		return fmt.Errorf("%w: iterations must be positive, got %d", errInvalidConfig, c.Iterations)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", errInvalidConfig, c.Workers)
	case c.MergeEvery <= 0:
		return fmt.Errorf("%w: merge_every must be positive, got %d", errInvalidConfig, c.MergeEvery)
	case c.CheckpointEvery < 0:
		return fmt.Errorf("%w: checkpoint_every must not be negative", errInvalidConfig)
	case c.ReplayFinalPercent < 0 || c.ReplayFinalPercent > 100:
		return fmt.Errorf("%w: replay_final_percent must be within 0..100", errInvalidConfig)
	case c.LearningRate < 0 || c.ExplorationRate < 0:
		return fmt.Errorf("%w: rates must not be negative", errInvalidConfig)
	case c.ForceReplayProbability < 0 || c.ForceReplayProbability > 1:
		return fmt.Errorf("%w: force_replay_probability must be within 0..1", errInvalidConfig)
	case c.WebPort < 0 || c.WebPort > 65535:
		return fmt.Errorf("%w: web_port out of range", errInvalidConfig)
	case c.CheckpointDir == "":
		return fmt.Errorf("%w: checkpoint_dir is required", errInvalidConfig)
	}
	if _, err := score.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %v", errInvalidConfig, err)
	}
	return nil
}

// PolicyOptions resolves the learning options. A zero seed becomes time-based.
func (c Config) PolicyOptions() (policy.Options, error) {
	mode, err := score.ParseMode(c.Mode)
	if err != nil {
		return policy.Options{}, err
	}
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return policy.Options{
		Mode:                   mode,
		LearningRate:           c.LearningRate,
		ExplorationRate:        c.ExplorationRate,
		ForceReplayProbability: c.ForceReplayProbability,
		Seed:                   seed,
		Debug:                  c.Debug,
	}, nil
}

func (c Config) DriverConfig(start int, seed int64) optimizer.Config {
	workers := c.Workers
	if workers == 0 {
		workers = defaultWorkers()
	}
	return optimizer.Config{
		Iterations:         c.Iterations,
		StartIteration:     start,
		Workers:            workers,
		MergeEvery:         c.MergeEvery,
		CheckpointEvery:    c.CheckpointEvery,
		ProgressInterval:   c.ProgressEvery,
		ReplayFinalPercent: c.ReplayFinalPercent,
		Seed:               seed,
	}
}

// bindFlags registers every Config field on fs, defaulting to c.
func (c *Config) bindFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&c.Iterations, "iterations", "n", c.Iterations, "total iterations to run")
	fs.IntVarP(&c.Workers, "workers", "w", c.Workers, "concurrent workers (0 = 40% of CPUs)")
	fs.IntVar(&c.MergeEvery, "merge_every", c.MergeEvery, "iterations a worker runs before merging")
	fs.IntVarP(&c.CheckpointEvery, "checkpoint_every", "i", c.CheckpointEvery, "checkpoint every N iterations (0 = only at exit)")
	fs.DurationVarP(&c.ProgressEvery, "progress_every", "r", c.ProgressEvery, "progress report interval")
	fs.IntVar(&c.ReplayFinalPercent, "replay_final_percent", c.ReplayFinalPercent, "final share of iterations that replay the best trajectory")
	fs.StringVar(&c.Mode, "mode", c.Mode, "scoring mode: balanced or cost_only")
	fs.Float64Var(&c.LearningRate, "learning_rate", c.LearningRate, "weight learning rate")
	fs.Float64Var(&c.ExplorationRate, "exploration_rate", c.ExplorationRate, "base exploration rate")
	fs.Float64Var(&c.ForceReplayProbability, "force_replay_probability", c.ForceReplayProbability, "cap on stagnation-driven replay")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed (0 = time-based, nonzero = reproducible)")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "log weight clamps and fallbacks")
	fs.StringVarP(&c.CheckpointDir, "checkpoint_dir", "c", c.CheckpointDir, "checkpoint root directory")
	fs.BoolVar(&c.Resume, "resume", c.Resume, "continue from the newest checkpoint")
	fs.StringVar(&c.HistoryDB, "history_db", c.HistoryDB, "SQLite ledger of improvements (empty = off)")
	fs.IntVar(&c.WebPort, "web_port", c.WebPort, "websocket dashboard port (0 = off)")
	fs.BoolVar(&c.TUI, "tui", c.TUI, "interactive terminal dashboard")
	fs.BoolVar(&c.ShowTrajectory, "show_trajectory", c.ShowTrajectory, "print the best trajectory year by year at exit")
}

// overlayFlags copies every flag the user explicitly set from flags into c.
func (c *Config) overlayFlags(fs *pflag.FlagSet, flags Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "iterations":
			c.Iterations = flags.Iterations
		case "workers":
			c.Workers = flags.Workers
		case "merge_every":
			c.MergeEvery = flags.MergeEvery
		case "checkpoint_every":
			c.CheckpointEvery = flags.CheckpointEvery
		case "progress_every":
			c.ProgressEvery = flags.ProgressEvery
		case "replay_final_percent":
			c.ReplayFinalPercent = flags.ReplayFinalPercent
		case "mode":
			c.Mode = flags.Mode
		case "learning_rate":
			c.LearningRate = flags.LearningRate
		case "exploration_rate":
			c.ExplorationRate = flags.ExplorationRate
		case "force_replay_probability":
			c.ForceReplayProbability = flags.ForceReplayProbability
		case "seed":
			c.Seed = flags.Seed
		case "debug":
			c.Debug = flags.Debug
		case "checkpoint_dir":
			c.CheckpointDir = flags.CheckpointDir
		case "resume":
			c.Resume = flags.Resume
		case "history_db":
			c.HistoryDB = flags.HistoryDB
		case "web_port":
			c.WebPort = flags.WebPort
		case "tui":
			c.TUI = flags.TUI
		case "show_trajectory":
			c.ShowTrajectory = flags.ShowTrajectory
		}
	})
}
