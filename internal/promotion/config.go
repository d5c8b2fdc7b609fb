package promotion

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// BenchmarkConfig drives the round-robin benchmark either side of a
// promotion.
type BenchmarkConfig struct {
	MatchesPerPair int                `yaml:"matches_per_pair"`
	Policies       map[string]float64 `yaml:"policies"`
}

// Config drives one promotion run.
type Config struct {
	MaxPromotionsPerRun int             `yaml:"max_promotions_per_run"`
	OnIDConflict        string          `yaml:"on_id_conflict"` // fail | skip
	Seed                int64           `yaml:"seed"`
	Benchmark           BenchmarkConfig `yaml:"benchmark"`
	Gate                GateConfig      `yaml:"gate"`
	Workers             int             `yaml:"workers"`
}

func (c *Config) Defaults() {
	if c.MaxPromotionsPerRun == 0 {
		c.MaxPromotionsPerRun = 10
	}
	if c.OnIDConflict == "" {
		c.OnIDConflict = "fail"
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Benchmark.MatchesPerPair == 0 {
		c.Benchmark.MatchesPerPair = 2
	}
	if c.Gate.MaxMatchupWinRate == 0 {
		c.Gate.MaxMatchupWinRate = 0.95
	}
	if c.Gate.TurnsDeltaRatio == 0 {
		c.Gate.TurnsDeltaRatio = 0.20
	}
	if c.Gate.ManaWastedDeltaRatio == 0 {
		c.Gate.ManaWastedDeltaRatio = 0.20
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}

func (c *Config) Validate() error {
	switch c.OnIDConflict {
	case "fail", "skip":
	default:
		return fmt.Errorf("promotion config: on_id_conflict must be fail or skip, got %q", c.OnIDConflict)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read promotion config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse promotion config %s: %w", path, err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
