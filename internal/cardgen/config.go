package cardgen

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// MutationConfig drives the candidate mutation stage.
type MutationConfig struct {
	Enabled   bool               `yaml:"enabled"`
	PerBase   int                `yaml:"per_base"`
	OpWeights map[string]float64 `yaml:"op_weights"`
}

// DiversityConfig drives the post-mutation diversity filter.
type DiversityConfig struct {
	Enabled        bool    `yaml:"enabled"`
	MinDistance    float64 `yaml:"min_distance"`
	MaxPerTemplate int     `yaml:"max_per_template"`
}

// AcceptanceConfig holds the adoption-test acceptance thresholds.
type AcceptanceConfig struct {
	MinOverallDelta  float64 `yaml:"min_overall_delta"`
	MaxWinRate       float64 `yaml:"max_win_rate"`
	MaxTurnsDeltaPct float64 `yaml:"max_turns_delta_pct"`
}

// AdoptionConfig drives the adoption test.
type AdoptionConfig struct {
	MatchesPerEval  int                `yaml:"matches_per_eval"`
	PolicyMix       map[string]float64 `yaml:"policy_mix"`
	MaxCopiesToTest int                `yaml:"max_copies_to_test"`
	Acceptance      AcceptanceConfig   `yaml:"acceptance"`
	SelectedTopN    int                `yaml:"selected_top_n"`
}

// Config drives one card generation run.
type Config struct {
	Seed int64 `yaml:"seed"`

	// TopPatternsPerType bounds how many patterns of each type feed
	// generation; missing types default to 10.
	TopPatternsPerType   map[string]int `yaml:"top_patterns_per_type"`
	CandidatesPerPattern int            `yaml:"candidates_per_pattern"`

	// ModeWeights splits candidates between suppressing a pattern and
	// supporting it; each mode draws from its own template pool.
	ModeWeights       map[string]float64 `yaml:"mode_weights"`
	SuppressTemplates []string           `yaml:"suppress_templates"`
	SupportTemplates  []string           `yaml:"support_templates"`
	BaseCandidatesMax int                `yaml:"base_candidates_max"`

	Mutations MutationConfig  `yaml:"mutations"`
	Diversity DiversityConfig `yaml:"diversity"`
	Adoption  AdoptionConfig  `yaml:"adoption"`
	Workers   int             `yaml:"workers"`
}

func (c *Config) Defaults() {
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.CandidatesPerPattern == 0 {
		c.CandidatesPerPattern = 2
	}
	if len(c.ModeWeights) == 0 {
		c.ModeWeights = map[string]float64{"suppress": 0.7, "support": 0.3}
	}
	if c.BaseCandidatesMax == 0 {
		c.BaseCandidatesMax = 50
	}
	if len(c.SuppressTemplates) == 0 && len(c.SupportTemplates) == 0 {
		c.SuppressTemplates = []string{"RemoveUnit", "DamagePlayer", "OnPlayDamagePlayer"}
		c.SupportTemplates = []string{"Draw", "OnPlayDraw", "HealSelf", "Vanilla"}
	}
	if c.Mutations.PerBase == 0 {
		c.Mutations.PerBase = 4
	}
	if len(c.Mutations.OpWeights) == 0 {
		c.Mutations.OpWeights = map[string]float64{
			OpParamJitter:      0.45,
			OpCostAdjust:       0.25,
			OpTemplateSwap:     0.15,
			OpStatRedistribute: 0.15,
		}
	}
	if c.Diversity.MinDistance == 0 {
		c.Diversity.MinDistance = 0.25
	}
	if c.Diversity.MaxPerTemplate == 0 {
		c.Diversity.MaxPerTemplate = 12
	}
	if c.Adoption.MatchesPerEval == 0 {
		c.Adoption.MatchesPerEval = 1
	}
	if c.Adoption.MaxCopiesToTest == 0 {
		c.Adoption.MaxCopiesToTest = 3
	}
	if c.Adoption.Acceptance.MinOverallDelta == 0 {
		c.Adoption.Acceptance.MinOverallDelta = 0.02
	}
	if c.Adoption.Acceptance.MaxWinRate == 0 {
		c.Adoption.Acceptance.MaxWinRate = 0.95
	}
	if c.Adoption.Acceptance.MaxTurnsDeltaPct == 0 {
		c.Adoption.Acceptance.MaxTurnsDeltaPct = 0.20
	}
	if c.Adoption.SelectedTopN == 0 {
		c.Adoption.SelectedTopN = 10
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}

func (c *Config) Validate() error {
	if len(c.SuppressTemplates) == 0 && len(c.SupportTemplates) == 0 {
		return fmt.Errorf("cardgen config: no suppress or support templates")
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cardgen config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse cardgen config %s: %w", path, err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
