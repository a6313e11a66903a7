package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
)

// Config is the process configuration, read from RPS_* environment variables.
type Config struct {
	Addr             string        `env:"ADDR" envDefault:":8080"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON          bool          `env:"LOG_JSON" envDefault:"false"`
	EntropyPolicy    string        `env:"ENTROPY_POLICY" envDefault:"seed"`
	RoundPolicy      string        `env:"ROUND_POLICY" envDefault:"fixed"`
	CounterThreshold uint64        `env:"COUNTER_THRESHOLD" envDefault:"3"`
	RepeatThreshold  uint64        `env:"REPEAT_THRESHOLD" envDefault:"3"`
	BaseStakeWei     uint64        `env:"BASE_STAKE_WEI" envDefault:"1000000000000000"`
	GenesisUnix      int64         `env:"GENESIS_UNIX" envDefault:"1700000000"`
	BlockInterval    time.Duration `env:"BLOCK_INTERVAL" envDefault:"12s"`
	ScanWorkers      int           `env:"SCAN_WORKERS" envDefault:"0"`
}

const envPrefix = "RPS_"

// Load reads an optional .env file, then parses the environment. Variables
// already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return Parse()
}

// Parse reads the environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	if c.Addr == "" {
		err = multierr.Append(err, errors.New("RPS_ADDR must not be empty"))
	}
	if _, e := logrus.ParseLevel(c.LogLevel); e != nil {
		err = multierr.Append(err, fmt.Errorf("RPS_LOG_LEVEL: %w", e))
	}
	if _, e := engine.ParsePolicy(c.EntropyPolicy); e != nil {
		err = multierr.Append(err, fmt.Errorf("RPS_ENTROPY_POLICY: %w", e))
	}
	if _, e := games.ParseRoundPolicy(c.RoundPolicy); e != nil {
		err = multierr.Append(err, fmt.Errorf("RPS_ROUND_POLICY: %w", e))
	}
	if c.CounterThreshold > 10 {
		err = multierr.Append(err, fmt.Errorf("RPS_COUNTER_THRESHOLD %d out of range [0,10]", c.CounterThreshold))
	}
	if c.RepeatThreshold > 10 {
		err = multierr.Append(err, fmt.Errorf("RPS_REPEAT_THRESHOLD %d out of range [0,10]", c.RepeatThreshold))
	}
	if c.BlockInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("RPS_BLOCK_INTERVAL must be positive, got %s", c.BlockInterval))
	}
	if c.ScanWorkers < 0 {
		err = multierr.Append(err, fmt.Errorf("RPS_SCAN_WORKERS must not be negative, got %d", c.ScanWorkers))
	}
	return err
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Mixer builds the configured entropy mixer.
func (c Config) Mixer() (engine.Mixer, error) {
	p, err := engine.ParsePolicy(c.EntropyPolicy)
	if err != nil {
		return engine.Mixer{}, err
	}
	return engine.NewMixer(p), nil
}

// AIOptions maps the config onto computer AI options.
func (c Config) AIOptions() games.AIOptions {
	return games.AIOptions{
		CounterThreshold: c.CounterThreshold,
		RepeatThreshold:  c.RepeatThreshold,
		BaseStake:        c.BaseStakeWei,
	}
}

// Build constructs the computer AI and oracle sharing one mixer.
func (c Config) Build() (games.ComputerAI, games.Oracle, error) {
	mixer, err := c.Mixer()
	if err != nil {
		return games.ComputerAI{}, games.Oracle{}, err
	}
	rounds, err := games.ParseRoundPolicy(c.RoundPolicy)
	if err != nil {
		return games.ComputerAI{}, games.Oracle{}, err
	}
	ai, err := games.NewComputerAI(mixer, c.AIOptions())
	if err != nil {
		return games.ComputerAI{}, games.Oracle{}, err
	}
	return ai, games.NewOracle(mixer, rounds), nil
}

// EnvSource returns a clock-driven block environment.
func (c Config) EnvSource() engine.ClockEnv {
	return engine.ClockEnv{
		Genesis:       time.Unix(c.GenesisUnix, 0),
		BlockInterval: c.BlockInterval,
	}
}
