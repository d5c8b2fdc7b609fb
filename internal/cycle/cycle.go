// Package cycle orchestrates the closed-loop pool improvement pipeline:
// evolve decks against the current pool, mine patterns from the run
// artifacts, generate and adoption-test candidate cards, then gate and
// promote the survivors into a new pool for the next iteration.
package cycle

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/touatautology/card-battle-engine/internal/agent"
	"github.com/touatautology/card-battle-engine/internal/cardgen"
	"github.com/touatautology/card-battle-engine/internal/evo"
	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/loader"
	"github.com/touatautology/card-battle-engine/internal/patterns"
	"github.com/touatautology/card-battle-engine/internal/promotion"
	"github.com/touatautology/card-battle-engine/internal/replay"
)

// DeriveCycleSeed maps the global seed and a cycle index to an independent
// seed stream, so inserting or removing a cycle never reshuffles the others.
func DeriveCycleSeed(globalSeed int64, cycleIndex int) int64 {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d:%d", globalSeed, cycleIndex)))
	v := int64(binary.BigEndian.Uint64(h[:8]))
	if v < 0 {
		v = -v
	}
	return v
}

// Result records one cycle's outcome. Stage failures land in ExitReason
// rather than aborting the run; later cycles continue from the last good
// pool.
type Result struct {
	CycleIndex    int      `json:"cycle_index"`
	CycleSeed     int64    `json:"cycle_seed"`
	GatePassed    bool     `json:"gate_passed"`
	CardsAdded    int      `json:"cards_added"`
	ExitReason    string   `json:"exit_reason"`
	PatternsCount int      `json:"patterns_count"`
	NewPoolPath   string   `json:"new_pool_path,omitempty"`
	ReplayPaths   []string `json:"replay_paths,omitempty"`
}

// Summary aggregates a full run.
type Summary struct {
	TotalCycles     int      `json:"total_cycles"`
	GatesPassed     int      `json:"gates_passed"`
	GatesFailed     int      `json:"gates_failed"`
	TotalCardsAdded int      `json:"total_cards_added"`
	FinalPoolHash   string   `json:"final_pool_hash"`
	Cycles          []Result `json:"cycles"`
}

// Runner executes the improvement loop.
type Runner struct {
	Cfg    *Config
	OutDir string

	// Progress, when set, receives one line per stage.
	Progress io.Writer
}

func (r *Runner) progressf(format string, args ...any) {
	if r.Progress != nil {
		fmt.Fprintf(r.Progress, format, args...)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func copyFile(dst, src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// Run executes Cfg.Cycles iterations and writes cycle_summary.json plus a
// per-cycle artifact tree under OutDir.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := os.MkdirAll(filepath.Join(r.OutDir, "pools"), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir out dir: %w", err)
	}

	poolPath := filepath.Join(r.OutDir, "pools", "pool_000.json")
	if err := copyFile(poolPath, r.Cfg.Paths.Pool); err != nil {
		return nil, fmt.Errorf("snapshot starting pool: %w", err)
	}

	summary := &Summary{TotalCycles: r.Cfg.Cycles}
	for i := 0; i < r.Cfg.Cycles; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := r.runSingle(ctx, i, poolPath)
		summary.Cycles = append(summary.Cycles, *res)
		if res.GatePassed {
			summary.GatesPassed++
			summary.TotalCardsAdded += res.CardsAdded
			next := filepath.Join(r.OutDir, "pools", fmt.Sprintf("pool_%03d.json", i+1))
			if err := copyFile(next, res.NewPoolPath); err != nil {
				return nil, fmt.Errorf("snapshot pool after cycle %d: %w", i, err)
			}
			poolPath = next
		} else {
			summary.GatesFailed++
		}
		r.progressf("cycle %d/%d: gate_passed=%v cards_added=%d reason=%s\n",
			i+1, r.Cfg.Cycles, res.GatePassed, res.CardsAdded, res.ExitReason)
	}

	specs, err := loader.ReadCardSpecs(poolPath)
	if err != nil {
		return nil, err
	}
	summary.FinalPoolHash = promotion.PoolHash(specs)

	if err := writeJSON(filepath.Join(r.OutDir, "cycle_summary.json"), summary); err != nil {
		return nil, err
	}
	meta := map[string]any{
		"seed":            r.Cfg.Seed,
		"cycles":          r.Cfg.Cycles,
		"starting_pool":   r.Cfg.Paths.Pool,
		"final_pool":      poolPath,
		"final_pool_hash": summary.FinalPoolHash,
	}
	if err := writeJSON(filepath.Join(r.OutDir, "run_meta.json"), meta); err != nil {
		return nil, err
	}
	return summary, nil
}

// runSingle drives one cycle's four stages against the given pool. All stage
// errors are folded into ExitReason so one bad cycle does not sink the run.
func (r *Runner) runSingle(ctx context.Context, idx int, poolPath string) *Result {
	seed := DeriveCycleSeed(r.Cfg.Seed, idx)
	res := &Result{CycleIndex: idx, CycleSeed: seed}
	cycleDir := filepath.Join(r.OutDir, fmt.Sprintf("cycle_%03d", idx))

	evolveDir := filepath.Join(cycleDir, "evolve")
	if err := r.runEvolve(ctx, poolPath, evolveDir, seed); err != nil {
		res.ExitReason = fmt.Sprintf("evolve_failed: %v", err)
		return res
	}

	r.progressf("cycle %d: mining patterns\n", idx)
	patCfg, err := patterns.LoadConfig(r.Cfg.Paths.PatternsConfig)
	if err != nil {
		res.ExitReason = fmt.Sprintf("patterns_failed: %v", err)
		return res
	}
	patCfg.Seed = seed
	patternsPath := filepath.Join(cycleDir, "patterns.json")
	pats, err := patterns.ExtractAll(evolveDir, patCfg, patternsPath)
	if err != nil {
		res.ExitReason = fmt.Sprintf("patterns_failed: %v", err)
		return res
	}
	res.PatternsCount = len(pats)
	if len(pats) == 0 {
		res.ExitReason = "no_patterns_found"
		return res
	}

	r.progressf("cycle %d: generating candidates\n", idx)
	cgCfg, err := cardgen.LoadConfig(r.Cfg.Paths.CardgenConfig)
	if err != nil {
		res.ExitReason = fmt.Sprintf("cardgen_failed: %v", err)
		return res
	}
	cgCfg.Seed = seed
	cardgenDir := filepath.Join(cycleDir, "cardgen")
	cgSum, err := cardgen.Run(ctx, cardgen.RunInput{
		PatternsPath:    patternsPath,
		PoolPath:        poolPath,
		TargetPaths:     r.Cfg.Paths.Targets,
		ConstraintsPath: r.Cfg.Paths.Constraints,
		Config:          cgCfg,
		OutDir:          cardgenDir,
		Progress:        r.Progress,
	})
	if err != nil {
		res.ExitReason = fmt.Sprintf("cardgen_failed: %v", err)
		return res
	}
	if cgSum.TotalSelected == 0 {
		res.ExitReason = "no_candidates_selected"
		return res
	}

	r.progressf("cycle %d: promoting %d selected candidates\n", idx, cgSum.TotalSelected)
	promoCfg, err := promotion.LoadConfig(r.Cfg.Paths.PromotionConfig)
	if err != nil {
		res.ExitReason = fmt.Sprintf("promotion_failed: %v", err)
		return res
	}
	promoCfg.Seed = seed
	promoCfg.OnIDConflict = "skip"
	promoDir := filepath.Join(cycleDir, "promote")
	promoRes, err := promotion.Run(ctx, promotion.RunInput{
		SelectedPath: filepath.Join(cardgenDir, "selected_cards.json"),
		PoolPath:     poolPath,
		TargetPaths:  r.Cfg.Paths.Targets,
		Config:       promoCfg,
		OutDir:       promoDir,
		Progress:     r.Progress,
	})
	if err != nil {
		res.ExitReason = fmt.Sprintf("promotion_failed: %v", err)
		return res
	}

	res.GatePassed = promoRes.GatePassed
	res.CardsAdded = promoRes.CardsAdded
	res.ExitReason = promoRes.ExitReason
	if promoRes.GatePassed {
		res.NewPoolPath = promoRes.CardsAfterPath
		if r.Cfg.Replay.Enabled {
			paths, err := r.captureReplays(promoRes, filepath.Join(cycleDir, "replays"), seed)
			if err != nil {
				r.progressf("cycle %d: replay capture failed: %v\n", idx, err)
			} else {
				res.ReplayPaths = paths
			}
		}
	}
	return res
}

// runEvolve executes the evolve stage with summary artifacts forced on so
// the mining stage has something to read.
func (r *Runner) runEvolve(ctx context.Context, poolPath, outDir string, seed int64) error {
	cfg, err := evo.LoadConfig(r.Cfg.Paths.EvolveConfig)
	if err != nil {
		return err
	}
	cfg.CardsPath = poolPath
	cfg.OutDir = outDir
	cfg.GlobalSeed = seed
	cfg.SaveSummaries = true
	cfg.Trace = true

	resolver := game.DefaultResolver()
	catalog, err := loader.LoadCards(poolPath, resolver)
	if err != nil {
		return err
	}
	runner := &evo.Runner{Catalog: catalog, Resolver: resolver, Cfg: cfg, Progress: r.Progress}
	_, err = runner.Run(ctx)
	return err
}

// promotionDelta is the slice of promotion_report.json the replay stage
// needs: per-target win-rate shifts.
type promotionDelta struct {
	Delta map[string]float64 `json:"delta"`
}

// captureReplays records one match per top-shifted target, played on the
// post-promotion pool, so the biggest balance moves can be inspected by hand.
func (r *Runner) captureReplays(promoRes *promotion.RunResult, outDir string, seed int64) ([]string, error) {
	data, err := os.ReadFile(promoRes.ReportPath)
	if err != nil {
		return nil, err
	}
	var rep promotionDelta
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, err
	}

	type shift struct {
		deckID string
		delta  float64
	}
	shifts := make([]shift, 0, len(rep.Delta))
	for did, d := range rep.Delta {
		shifts = append(shifts, shift{did, d})
	}
	sort.Slice(shifts, func(i, j int) bool {
		if math.Abs(shifts[i].delta) != math.Abs(shifts[j].delta) {
			return math.Abs(shifts[i].delta) > math.Abs(shifts[j].delta)
		}
		return shifts[i].deckID < shifts[j].deckID
	})
	if len(shifts) > r.Cfg.Replay.TopKMatchups {
		shifts = shifts[:r.Cfg.Replay.TopKMatchups]
	}
	if len(shifts) == 0 {
		return nil, nil
	}

	resolver := game.DefaultResolver()
	catalog, err := loader.LoadCards(promoRes.CardsAfterPath, resolver)
	if err != nil {
		return nil, err
	}
	targets := make([]game.DeckDef, 0, len(r.Cfg.Paths.Targets))
	for _, tp := range r.Cfg.Paths.Targets {
		deck, err := loader.LoadDeck(tp, catalog)
		if err != nil {
			return nil, err
		}
		targets = append(targets, deck)
	}
	byID := map[string]game.DeckDef{}
	for _, t := range targets {
		byID[t.ID] = t
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	var out []string
	for i, s := range shifts {
		subject, ok := byID[s.deckID]
		if !ok {
			continue
		}
		for _, opp := range targets {
			if opp.ID == subject.ID {
				continue
			}
			path := filepath.Join(outDir, fmt.Sprintf("%s_vs_%s.jsonl", subject.ID, opp.ID))
			if err := recordMatch(path, catalog, resolver, subject, opp, seed+int64(i)); err != nil {
				return nil, err
			}
			out = append(out, path)
		}
	}
	return out, nil
}

func recordMatch(path string, catalog game.Catalog, resolver game.Resolver, a, b game.DeckDef, seed int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := replay.NewWriter(f)
	gs := game.NewGame(catalog, resolver, a, b, seed)
	gs.Attach(w)
	ag := agent.NewGreedy()
	if _, err := game.Run(gs, [2]game.Agent{ag, ag}, false); err != nil {
		f.Close()
		return err
	}
	if err := w.Err(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
