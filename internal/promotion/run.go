package promotion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/touatautology/card-battle-engine/internal/cardgen"
	"github.com/touatautology/card-battle-engine/internal/evo"
	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/loader"
)

// RunInput names the artifacts a promotion run consumes and produces.
type RunInput struct {
	SelectedPath string
	PoolPath     string
	TargetPaths  []string
	Config       *Config
	OutDir       string

	Progress io.Writer
}

// RunResult is the outcome of a promotion run.
type RunResult struct {
	GatePassed     bool   `json:"gate_passed"`
	ExitReason     string `json:"exit_reason"`
	CardsAdded     int    `json:"cards_added"`
	ReportPath     string `json:"report_path"`
	CardsAfterPath string `json:"cards_after_path"`
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func benchmark(ctx context.Context, catalog game.Catalog, resolver game.Resolver, targets []game.DeckDef, cfg *Config) (*evo.TargetEval, map[string]float64, error) {
	ev := &evo.Evaluator{
		Catalog:      catalog,
		Resolver:     resolver,
		GlobalSeed:   cfg.Seed,
		GamesPerPair: cfg.Benchmark.MatchesPerPair,
		Policy:       "greedy",
		Workers:      cfg.Workers,
	}
	if len(cfg.Benchmark.Policies) > 0 {
		w, err := evo.NormalizeWeights(cfg.Benchmark.Policies)
		if err != nil {
			return nil, nil, err
		}
		ev.OpponentWeights = w
	}
	eval, err := ev.EvaluateTargets(ctx, targets)
	if err != nil {
		return nil, nil, err
	}
	return eval, evo.AggregateTelemetry(eval.Summaries), nil
}

// Run executes the full promotion pipeline: apply the selected cards to the
// pool, benchmark the targets against both pools, and gate the new pool on
// the benchmark deltas.
func Run(ctx context.Context, in RunInput) (*RunResult, error) {
	cfg := in.Config
	if err := os.MkdirAll(in.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir out dir: %w", err)
	}

	selected, err := cardgen.ReadSelected(in.SelectedPath)
	if err != nil {
		return nil, err
	}
	before, err := loader.ReadCardSpecs(in.PoolPath)
	if err != nil {
		return nil, err
	}

	after, patch, err := Apply(before, selected, cfg.MaxPromotionsPerRun, cfg.OnIDConflict)
	if err != nil {
		return nil, err
	}

	afterPath := filepath.Join(in.OutDir, "cards_after.json")
	if err := writeJSON(filepath.Join(in.OutDir, "cards_before.json"), before); err != nil {
		return nil, err
	}
	if err := loader.WriteCardSpecs(afterPath, after); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(in.OutDir, "promotion_patch.json"), patch); err != nil {
		return nil, err
	}

	resolver := game.DefaultResolver()
	catBefore, err := loader.CatalogFromSpecs(before, resolver)
	if err != nil {
		return nil, err
	}
	catAfter, err := loader.CatalogFromSpecs(after, resolver)
	if err != nil {
		return nil, err
	}

	// Targets load against the old pool: they must not reference new cards.
	targets := make([]game.DeckDef, 0, len(in.TargetPaths))
	for _, tp := range in.TargetPaths {
		deck, err := loader.LoadDeck(tp, catBefore)
		if err != nil {
			return nil, err
		}
		targets = append(targets, deck)
	}

	if in.Progress != nil {
		fmt.Fprintln(in.Progress, "running before benchmark...")
	}
	beforeEval, beforeAgg, err := benchmark(ctx, catBefore, resolver, targets, cfg)
	if err != nil {
		return nil, err
	}
	if in.Progress != nil {
		fmt.Fprintln(in.Progress, "running after benchmark...")
	}
	afterEval, afterAgg, err := benchmark(ctx, catAfter, resolver, targets, cfg)
	if err != nil {
		return nil, err
	}

	delta := map[string]float64{}
	for did, b := range beforeEval.WinRatesByTarget {
		delta[did] = round4(afterEval.WinRatesByTarget[did] - b)
	}

	gate := ComputeGate(
		BenchSide{WinRatesByTarget: beforeEval.WinRatesByTarget, TelemetryAggregate: beforeAgg},
		BenchSide{WinRatesByTarget: afterEval.WinRatesByTarget, TelemetryAggregate: afterAgg},
		cfg.Gate,
	)

	report := map[string]any{
		"before": map[string]any{
			"win_rates_by_target": beforeEval.WinRatesByTarget,
			"overall_win_rate":    beforeEval.OverallWinRate,
			"telemetry_aggregate": beforeAgg,
		},
		"after": map[string]any{
			"win_rates_by_target": afterEval.WinRatesByTarget,
			"overall_win_rate":    afterEval.OverallWinRate,
			"telemetry_aggregate": afterAgg,
		},
		"delta": delta,
		"gate":  gate,
		"patch_summary": map[string]any{
			"added":             len(patch.Added),
			"skipped_conflicts": patch.SkippedConflicts,
		},
	}
	reportPath := filepath.Join(in.OutDir, "promotion_report.json")
	if err := writeJSON(reportPath, report); err != nil {
		return nil, err
	}

	meta := map[string]any{
		"seed":          cfg.Seed,
		"selected_path": in.SelectedPath,
		"pool_path":     in.PoolPath,
		"target_paths":  in.TargetPaths,
		"cards_added":   len(patch.Added),
		"gate_passed":   gate.Passed,
	}
	if err := writeJSON(filepath.Join(in.OutDir, "run_meta.json"), meta); err != nil {
		return nil, err
	}

	exitReason := "gate_passed"
	if !gate.Passed {
		exitReason = gate.Reason
	}
	if in.Progress != nil {
		verdict := "PASS"
		if !gate.Passed {
			verdict = "FAIL"
		}
		fmt.Fprintf(in.Progress, "promotion complete: %d cards added, gate=%s\n", len(patch.Added), verdict)
	}

	return &RunResult{
		GatePassed:     gate.Passed,
		ExitReason:     exitReason,
		CardsAdded:     len(patch.Added),
		ReportPath:     reportPath,
		CardsAfterPath: afterPath,
	}, nil
}
