package cycle

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ReplayConfig controls replay capture for the most-shifted matchups after a
// passed gate.
type ReplayConfig struct {
	Enabled      bool `yaml:"enabled"`
	TopKMatchups int  `yaml:"top_k_matchups"`
}

// PathsConfig points at the card pool, target decks, and the per-stage
// configuration files a cycle run wires together.
type PathsConfig struct {
	Pool            string   `yaml:"pool"`
	Targets         []string `yaml:"targets"`
	Constraints     string   `yaml:"constraints"`
	EvolveConfig    string   `yaml:"evolve_config"`
	PatternsConfig  string   `yaml:"patterns_config"`
	CardgenConfig   string   `yaml:"cardgen_config"`
	PromotionConfig string   `yaml:"promotion_config"`
}

// Config drives a full improvement-cycle run.
type Config struct {
	Cycles int          `yaml:"cycles"`
	Seed   int64        `yaml:"seed"`
	Replay ReplayConfig `yaml:"replay"`
	Paths  PathsConfig  `yaml:"paths"`
}

func (c *Config) Defaults() {
	if c.Cycles == 0 {
		c.Cycles = 3
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Replay.TopKMatchups == 0 {
		c.Replay.TopKMatchups = 2
	}
}

func (c *Config) Validate() error {
	if c.Cycles < 1 {
		return fmt.Errorf("cycle config: cycles must be at least 1, got %d", c.Cycles)
	}
	if c.Paths.Pool == "" {
		return fmt.Errorf("cycle config: paths.pool is required")
	}
	if len(c.Paths.Targets) == 0 {
		return fmt.Errorf("cycle config: at least one target deck is required")
	}
	for _, p := range []struct{ name, path string }{
		{"constraints", c.Paths.Constraints},
		{"evolve_config", c.Paths.EvolveConfig},
		{"patterns_config", c.Paths.PatternsConfig},
		{"cardgen_config", c.Paths.CardgenConfig},
		{"promotion_config", c.Paths.PromotionConfig},
	} {
		if p.path == "" {
			return fmt.Errorf("cycle config: paths.%s is required", p.name)
		}
	}
	return nil
}

// LoadConfig reads a YAML cycle config, applying defaults before validation.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cycle config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse cycle config %s: %w", path, err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
