// Package sim runs batches of matches across deck pools and aggregates the
// results for downstream analysis.
package sim

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config drives one simulation batch.
type Config struct {
	// CardsPath is the card catalog JSON file.
	CardsPath string `yaml:"cards"`
	// DeckPaths are the deck JSON files to round-robin against each other.
	DeckPaths []string `yaml:"decks"`

	// GamesPerPair is the number of matches played for each ordered deck
	// pairing. Each pairing is played in both seat orders.
	GamesPerPair int `yaml:"games_per_pair"`
	// BaseSeed anchors the seed sequence; match i plays with BaseSeed+i.
	BaseSeed int64 `yaml:"base_seed"`
	// Workers is the number of parallel match runners; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// AgentA and AgentB name the decision policies for the two seats.
	AgentA string `yaml:"agent_a"`
	AgentB string `yaml:"agent_b"`

	// Trace records every agent decision into the match logs.
	Trace bool `yaml:"trace"`

	// OutDir receives the JSONL match log and parquet export. Empty
	// disables file output.
	OutDir string `yaml:"out_dir"`
}

// Defaults fills unset fields in place.
func (c *Config) Defaults() {
	if c.GamesPerPair == 0 {
		c.GamesPerPair = 20
	}
	if c.BaseSeed == 0 {
		c.BaseSeed = 1
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.AgentA == "" {
		c.AgentA = "greedy"
	}
	if c.AgentB == "" {
		c.AgentB = "greedy"
	}
}

// Validate reports the first configuration problem.
func (c *Config) Validate() error {
	if c.CardsPath == "" {
		return fmt.Errorf("sim config: cards path is required")
	}
	if len(c.DeckPaths) < 2 {
		return fmt.Errorf("sim config: need at least 2 decks, got %d", len(c.DeckPaths))
	}
	if c.GamesPerPair < 1 {
		return fmt.Errorf("sim config: games_per_pair must be positive, got %d", c.GamesPerPair)
	}
	return nil
}

// LoadConfig reads a YAML config file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sim config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse sim config %s: %w", path, err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
