package cycle

import (
	"path/filepath"
	"testing"
)

func TestDeriveCycleSeed(t *testing.T) {
	a := DeriveCycleSeed(42, 0)
	if a != DeriveCycleSeed(42, 0) {
		t.Fatal("same coordinate gave different seeds")
	}
	if a < 0 {
		t.Fatalf("seed %d is negative", a)
	}

	seen := map[int64]bool{a: true}
	for i := 1; i < 10; i++ {
		s := DeriveCycleSeed(42, i)
		if seen[s] {
			t.Fatalf("cycle %d reused seed %d", i, s)
		}
		seen[s] = true
	}
	if DeriveCycleSeed(43, 0) == a {
		t.Fatal("different global seeds gave the same cycle seed")
	}
}

func validConfig(dir string) *Config {
	return &Config{
		Cycles: 2,
		Seed:   7,
		Paths: PathsConfig{
			Pool:            filepath.Join(dir, "cards.json"),
			Targets:         []string{filepath.Join(dir, "deck.json")},
			Constraints:     filepath.Join(dir, "constraints.json"),
			EvolveConfig:    filepath.Join(dir, "evolve.yaml"),
			PatternsConfig:  filepath.Join(dir, "patterns.yaml"),
			CardgenConfig:   filepath.Join(dir, "cardgen.yaml"),
			PromotionConfig: filepath.Join(dir, "promotion.yaml"),
		},
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := validConfig("x")
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if cfg.Replay.TopKMatchups != 2 {
		t.Errorf("default top_k_matchups = %d, want 2", cfg.Replay.TopKMatchups)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no pool", func(c *Config) { c.Paths.Pool = "" }},
		{"no targets", func(c *Config) { c.Paths.Targets = nil }},
		{"no constraints", func(c *Config) { c.Paths.Constraints = "" }},
		{"no evolve config", func(c *Config) { c.Paths.EvolveConfig = "" }},
		{"zero cycles", func(c *Config) { c.Cycles = -1 }},
	}
	for _, tc := range cases {
		cfg := validConfig("x")
		cfg.Defaults()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: config accepted", tc.name)
		}
	}
}
