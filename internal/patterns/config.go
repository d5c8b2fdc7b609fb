package patterns

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SequenceConfig bounds early-game sequence mining.
type SequenceConfig struct {
	Turns      int `yaml:"turns"`
	MinSupport int `yaml:"min_support"`
}

// CounterConfig names the decks to mine counters against.
type CounterConfig struct {
	Targets []string `yaml:"targets"`
	MinLift float64  `yaml:"min_lift"`
}

// Config drives one mining run.
type Config struct {
	TopNDecks      int            `yaml:"top_n_decks"`
	MinSupport     int            `yaml:"min_support"`
	MaxItemsetSize int            `yaml:"max_itemset_size"`
	Sequence       SequenceConfig `yaml:"sequence"`
	Counter        CounterConfig  `yaml:"counter"`
	Seed           int64          `yaml:"seed"`
}

func (c *Config) Defaults() {
	if c.TopNDecks == 0 {
		c.TopNDecks = 10
	}
	if c.MinSupport == 0 {
		c.MinSupport = 3
	}
	if c.MaxItemsetSize == 0 {
		c.MaxItemsetSize = 3
	}
	if c.Sequence.Turns == 0 {
		c.Sequence.Turns = 3
	}
	if c.Sequence.MinSupport == 0 {
		c.Sequence.MinSupport = 5
	}
	if c.Counter.MinLift == 0 {
		c.Counter.MinLift = 1.05
	}
}

func (c *Config) Validate() error {
	if c.MaxItemsetSize < 2 {
		return fmt.Errorf("patterns config: max_itemset_size must be at least 2, got %d", c.MaxItemsetSize)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse patterns config %s: %w", path, err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
