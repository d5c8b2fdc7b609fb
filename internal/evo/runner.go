package evo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/loader"
)

// GenerationRecord is one line of the run's generations.jsonl artifact.
type GenerationRecord struct {
	RunID      string         `json:"run_id"`
	Generation int            `json:"generation"`
	Stats      FitnessStats   `json:"stats"`
	BestDeck   string         `json:"best_deck"`
	BestVal    float64        `json:"best_fitness"`
	BestCounts map[string]int `json:"best_counts"`
}

// Runner executes the generation loop: evaluate, select, mutate.
type Runner struct {
	Catalog  game.Catalog
	Resolver game.Resolver
	Cfg      *Config

	// Progress, when set, receives one line per generation.
	Progress io.Writer
}

// Result is the outcome of a full evolution run.
type Result struct {
	RunID       string
	BestDeck    game.DeckDef
	BestFitness float64
	History     []GenerationRecord
}

// initialPopulation seeds the first generation: any configured seed decks
// first, the rest drawn randomly from the catalog.
func (r *Runner) initialPopulation(mut *Mutator, rng *rand.Rand) ([]map[string]int, error) {
	pop := make([]map[string]int, 0, r.Cfg.Population)
	for _, path := range r.Cfg.SeedDeckPaths {
		deck, err := loader.LoadDeck(path, r.Catalog)
		if err != nil {
			return nil, fmt.Errorf("seed deck %s: %w", path, err)
		}
		pop = append(pop, loader.DeckToCounts(deck))
	}
	for len(pop) < r.Cfg.Population {
		pop = append(pop, mut.RandomDeck(rng))
	}
	return pop, nil
}

func (r *Runner) toDecks(gen int, pop []map[string]int) ([]game.DeckDef, error) {
	decks := make([]game.DeckDef, len(pop))
	for i, counts := range pop {
		deck, err := loader.CountsToDeck(fmt.Sprintf("gen%03d_deck%02d", gen, i), counts)
		if err != nil {
			return nil, fmt.Errorf("generation %d deck %d: %w", gen, i, err)
		}
		decks[i] = deck
	}
	return decks, nil
}

// PopulationEntry is one deck of a generation's population artifact.
type PopulationEntry struct {
	DeckID  string         `json:"deck_id"`
	Counts  map[string]int `json:"counts"`
	Fitness float64        `json:"fitness"`
}

// writeGenArtifacts saves the evaluated population and its match summaries,
// the inputs pattern mining runs on.
func (r *Runner) writeGenArtifacts(gen int, decks []game.DeckDef, pop []map[string]int, fitness []float64, summaries []MatchSummary) error {
	entries := make([]PopulationEntry, len(decks))
	for i, deck := range decks {
		entries[i] = PopulationEntry{
			DeckID:  deck.ID,
			Counts:  cloneCounts(pop[i]),
			Fitness: fitness[i],
		}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	popPath := filepath.Join(r.Cfg.OutDir, fmt.Sprintf("gen_%03d_population.json", gen))
	if err := os.WriteFile(popPath, data, 0o644); err != nil {
		return fmt.Errorf("write population: %w", err)
	}

	sumPath := filepath.Join(r.Cfg.OutDir, fmt.Sprintf("gen_%03d_summaries.jsonl", gen))
	f, err := os.Create(sumPath)
	if err != nil {
		return fmt.Errorf("create summaries: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	for _, s := range summaries {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("write summaries: %w", err)
		}
	}
	return nil
}

// Run executes the configured number of generations and returns the best
// deck seen. Artifacts go to Cfg.OutDir when set: best_gen*.json deck files
// and a generations.jsonl history.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	rng := rand.New(rand.NewSource(r.Cfg.GlobalSeed))

	mut := NewMutator(r.Catalog)
	if len(r.Cfg.OpWeights) > 0 {
		mut.Weights = r.Cfg.OpWeights
	}

	pop, err := r.initialPopulation(mut, rng)
	if err != nil {
		return nil, err
	}

	var oppWeights PolicyWeights
	if len(r.Cfg.OpponentPolicies) > 0 {
		oppWeights, err = NormalizeWeights(r.Cfg.OpponentPolicies)
		if err != nil {
			return nil, err
		}
	}

	var histFile *os.File
	if r.Cfg.OutDir != "" {
		if err := os.MkdirAll(r.Cfg.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir out dir: %w", err)
		}
		histFile, err = os.Create(filepath.Join(r.Cfg.OutDir, "generations.jsonl"))
		if err != nil {
			return nil, fmt.Errorf("create history file: %w", err)
		}
		defer histFile.Close()
	}

	res := &Result{RunID: runID}

	for gen := 0; gen < r.Cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decks, err := r.toDecks(gen, pop)
		if err != nil {
			return nil, err
		}

		eval := &Evaluator{
			Catalog:         r.Catalog,
			Resolver:        r.Resolver,
			GlobalSeed:      r.Cfg.GlobalSeed,
			Generation:      gen,
			GamesPerPair:    r.Cfg.GamesPerPair,
			Policy:          r.Cfg.Policy,
			OpponentWeights: oppWeights,
			Trace:           r.Cfg.Trace,
			Workers:         r.Cfg.Workers,
		}
		collect := r.Cfg.SaveSummaries && r.Cfg.OutDir != ""
		fitness, summaries, err := eval.EvaluatePopulationDetailed(ctx, decks, collect)
		if err != nil {
			return nil, err
		}

		rank := RankByFitness(fitness)
		best := rank[0]
		stats := ComputeFitnessStats(fitness)

		rec := GenerationRecord{
			RunID:      runID,
			Generation: gen,
			Stats:      stats,
			BestDeck:   decks[best].ID,
			BestVal:    fitness[best],
			BestCounts: cloneCounts(pop[best]),
		}
		res.History = append(res.History, rec)
		if fitness[best] >= res.BestFitness {
			res.BestFitness = fitness[best]
			res.BestDeck = decks[best]
		}

		if r.Progress != nil {
			fmt.Fprintf(r.Progress, "gen %3d: best=%.3f mean=%.3f std=%.3f (%s)\n",
				gen, stats.Max, stats.Mean, stats.Std, decks[best].ID)
		}
		if histFile != nil {
			if err := json.NewEncoder(histFile).Encode(rec); err != nil {
				return nil, fmt.Errorf("write history: %w", err)
			}
			path := filepath.Join(r.Cfg.OutDir, fmt.Sprintf("best_gen%03d.json", gen))
			if err := loader.WriteDeck(path, decks[best]); err != nil {
				return nil, err
			}
			if collect {
				if err := r.writeGenArtifacts(gen, decks, pop, fitness, summaries); err != nil {
					return nil, err
				}
			}
		}

		if gen == r.Cfg.Generations-1 {
			break
		}

		// Elites carry over as is; the rest are mutated tournament winners.
		next := make([]map[string]int, 0, r.Cfg.Population)
		for i := 0; i < r.Cfg.Elite; i++ {
			next = append(next, cloneCounts(pop[rank[i]]))
		}
		for len(next) < r.Cfg.Population {
			parent := Tournament(fitness, r.Cfg.TournamentK, rng)
			child, _ := mut.MutateDeck(pop[parent], rng)
			next = append(next, child)
		}
		pop = next
	}

	if r.Cfg.OutDir != "" {
		path := filepath.Join(r.Cfg.OutDir, "best.json")
		if err := loader.WriteDeck(path, res.BestDeck); err != nil {
			return nil, err
		}
	}
	return res, nil
}
