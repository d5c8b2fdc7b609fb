package cardgen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/loader"
	"github.com/touatautology/card-battle-engine/internal/patterns"
)

// RunInput names every artifact a generation run consumes and produces.
type RunInput struct {
	PatternsPath    string
	PoolPath        string
	TargetPaths     []string
	ConstraintsPath string
	Config          *Config
	OutDir          string

	// Progress, when set, receives one line per pipeline stage.
	Progress io.Writer
}

// RunSummary counts what each pipeline stage produced.
type RunSummary struct {
	TotalBase           int `json:"total_base"`
	TotalMutated        int `json:"total_mutated"`
	TotalAfterDiversity int `json:"total_after_diversity"`
	TotalReports        int `json:"total_reports"`
	TotalSelected       int `json:"total_selected"`
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (in *RunInput) progressf(format string, args ...any) {
	if in.Progress != nil {
		fmt.Fprintf(in.Progress, format, args...)
	}
}

// Run executes the full generation pipeline: generate base candidates from
// the pattern dictionary, mutate, filter for diversity, adoption-test every
// survivor, and select the top accepted candidates.
func Run(ctx context.Context, in RunInput) (*RunSummary, error) {
	cfg := in.Config
	if err := os.MkdirAll(in.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir out dir: %w", err)
	}

	dict, err := patterns.Read(in.PatternsPath)
	if err != nil {
		return nil, err
	}
	cons, err := LoadConstraints(in.ConstraintsPath)
	if err != nil {
		return nil, err
	}

	resolver := game.DefaultResolver()
	specs, err := loader.ReadCardSpecs(in.PoolPath)
	if err != nil {
		return nil, err
	}
	catalog, err := loader.CatalogFromSpecs(specs, resolver)
	if err != nil {
		return nil, err
	}

	targets := make([]game.DeckDef, 0, len(in.TargetPaths))
	for _, tp := range in.TargetPaths {
		deck, err := loader.LoadDeck(tp, catalog)
		if err != nil {
			return nil, err
		}
		targets = append(targets, deck)
	}

	sum := &RunSummary{}

	cands := GenerateCandidates(dict.Patterns, cons, cfg)
	sum.TotalBase = len(cands)
	in.progressf("generated %d base candidates\n", sum.TotalBase)

	if cfg.Mutations.Enabled {
		mutated := GenerateMutations(cands, cons, cfg)
		sum.TotalMutated = len(mutated)
		cands = append(cands, mutated...)
		in.progressf("  + %d mutated candidates (%d total)\n", sum.TotalMutated, len(cands))

		if cfg.Diversity.Enabled {
			cands = DedupeAndFilterDiversity(cands, cons, cfg)
			in.progressf("  after diversity filter: %d candidates\n", len(cands))
		}
	}
	sum.TotalAfterDiversity = len(cands)

	if err := writeJSON(filepath.Join(in.OutDir, "card_candidates.json"), cands); err != nil {
		return nil, err
	}

	reports := make([]*AdoptionReport, 0, len(cands))
	for i, cand := range cands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in.progressf("  testing candidate %d/%d: %s\n", i+1, len(cands), cand.ID)
		report, err := AdoptionTestOne(ctx, cand, targets, specs, resolver, cfg, cfg.Seed)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	sum.TotalReports = len(reports)

	if err := writeJSON(filepath.Join(in.OutDir, "adoption_report.json"), reports); err != nil {
		return nil, err
	}

	var selected []*AdoptionReport
	for _, report := range reports {
		if CheckAcceptance(report, cfg) {
			selected = append(selected, report)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Delta.OverallWinRateDelta > selected[j].Delta.OverallWinRateDelta
	})
	if len(selected) > cfg.Adoption.SelectedTopN {
		selected = selected[:cfg.Adoption.SelectedTopN]
	}
	sum.TotalSelected = len(selected)

	if selected == nil {
		selected = []*AdoptionReport{}
	}
	if err := writeJSON(filepath.Join(in.OutDir, "selected_cards.json"), selected); err != nil {
		return nil, err
	}

	meta := map[string]any{
		"seed":                  cfg.Seed,
		"patterns_path":         in.PatternsPath,
		"pool_path":             in.PoolPath,
		"target_paths":          in.TargetPaths,
		"constraints_path":      in.ConstraintsPath,
		"total_base":            sum.TotalBase,
		"total_mutated":         sum.TotalMutated,
		"total_after_diversity": sum.TotalAfterDiversity,
		"total_selected":        sum.TotalSelected,
	}
	if err := writeJSON(filepath.Join(in.OutDir, "run_meta.json"), meta); err != nil {
		return nil, err
	}

	in.progressf("selected %d cards (from %d candidates)\n", sum.TotalSelected, sum.TotalReports)
	return sum, nil
}

// ReadSelected loads a selected_cards.json artifact.
func ReadSelected(path string) ([]*AdoptionReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reports []*AdoptionReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("parse selected cards %s: %w", path, err)
	}
	return reports, nil
}
