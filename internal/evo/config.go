package evo

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config drives one evolution run.
type Config struct {
	CardsPath string `yaml:"cards"`
	// SeedDeckPaths optionally seed the initial population; the remainder
	// is filled with random decks.
	SeedDeckPaths []string `yaml:"seed_decks"`

	Population  int `yaml:"population"`
	Generations int `yaml:"generations"`
	// Elite decks survive each generation unchanged.
	Elite int `yaml:"elite"`
	// TournamentK is the tournament size for parent selection.
	TournamentK int `yaml:"tournament_k"`

	// GamesPerPair per opponent per seat order during evaluation.
	GamesPerPair int   `yaml:"games_per_pair"`
	GlobalSeed   int64 `yaml:"global_seed"`
	// Policy is the agent the evaluated deck plays.
	Policy string `yaml:"policy"`
	// OpponentPolicies optionally mixes opponent policies by weight, e.g.
	// {greedy: 3, random: 1}. Empty means opponents play Policy.
	OpponentPolicies map[string]float64 `yaml:"opponent_policies"`
	Workers          int                `yaml:"workers"`

	// OpWeights override the mutation operator mix.
	OpWeights map[string]float64 `yaml:"op_weights"`

	// OutDir receives per-generation artifacts. Empty disables file output.
	OutDir string `yaml:"out_dir"`
	// SaveSummaries writes per-generation population and match-summary
	// artifacts to OutDir. Pattern mining reads these.
	SaveSummaries bool `yaml:"save_summaries"`
	// Trace includes action traces in saved match summaries.
	Trace bool `yaml:"trace"`
}

func (c *Config) Defaults() {
	if c.Population == 0 {
		c.Population = 12
	}
	if c.Generations == 0 {
		c.Generations = 20
	}
	if c.Elite == 0 {
		c.Elite = 2
	}
	if c.TournamentK == 0 {
		c.TournamentK = 3
	}
	if c.GamesPerPair == 0 {
		c.GamesPerPair = 2
	}
	if c.GlobalSeed == 0 {
		c.GlobalSeed = 1
	}
	if c.Policy == "" {
		c.Policy = "greedy"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}

func (c *Config) Validate() error {
	if c.CardsPath == "" {
		return fmt.Errorf("evo config: cards path is required")
	}
	if c.Population < 2 {
		return fmt.Errorf("evo config: population must be at least 2, got %d", c.Population)
	}
	if c.Elite >= c.Population {
		return fmt.Errorf("evo config: elite (%d) must be below population (%d)", c.Elite, c.Population)
	}
	if len(c.SeedDeckPaths) > c.Population {
		return fmt.Errorf("evo config: %d seed decks exceed population %d", len(c.SeedDeckPaths), c.Population)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evo config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse evo config %s: %w", path, err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
