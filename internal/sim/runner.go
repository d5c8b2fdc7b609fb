package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/touatautology/card-battle-engine/internal/agent"
	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/telemetry"
)

// MatchRecord is the flattened outcome of one simulated match.
type MatchRecord struct {
	MatchID int    `json:"match_id"`
	Seed    int64  `json:"seed"`
	DeckA   string `json:"deck_a"` // seat 0
	DeckB   string `json:"deck_b"` // seat 1
	Winner  string `json:"winner"`
	Turns   int    `json:"turns"`
	FinalHP [2]int `json:"final_hp"`
	Reason  string `json:"reason"`

	Summary map[string]float64 `json:"telemetry,omitempty"`
	Trace   []game.TraceEntry  `json:"play_trace,omitempty"`
}

// BatchResult is the output of one simulation run.
type BatchResult struct {
	RunID   string
	Records []MatchRecord
}

// Runner plays every deck pairing in a pool against itself.
type Runner struct {
	Catalog  game.Catalog
	Resolver game.Resolver
	Decks    []game.DeckDef
	Cfg      *Config
}

type matchJob struct {
	matchID int
	deckA   int
	deckB   int
	seed    int64
}

// jobs enumerates the batch: every unordered deck pair plays GamesPerPair
// matches, alternating which deck sits in seat 0 so neither deck is pinned
// to one seat. Seeds are BaseSeed+matchID, so the whole batch is
// reproducible from the config alone.
func (r *Runner) jobs() []matchJob {
	var out []matchJob
	id := 0
	for i := 0; i < len(r.Decks); i++ {
		for j := i + 1; j < len(r.Decks); j++ {
			for g := 0; g < r.Cfg.GamesPerPair; g++ {
				a, b := i, j
				if g%2 == 1 {
					a, b = j, i
				}
				out = append(out, matchJob{
					matchID: id,
					deckA:   a,
					deckB:   b,
					seed:    r.Cfg.BaseSeed + int64(id),
				})
				id++
			}
		}
	}
	return out
}

func (r *Runner) playOne(job matchJob) (MatchRecord, error) {
	agentA, err := agent.ByName(r.Cfg.AgentA, job.seed)
	if err != nil {
		return MatchRecord{}, err
	}
	agentB, err := agent.ByName(r.Cfg.AgentB, job.seed+1)
	if err != nil {
		return MatchRecord{}, err
	}

	gs := game.NewGame(r.Catalog, r.Resolver, r.Decks[job.deckA], r.Decks[job.deckB], job.seed)
	tel := telemetry.NewMatch()
	gs.Attach(tel)

	ml, err := game.Run(gs, [2]game.Agent{agentA, agentB}, r.Cfg.Trace)
	if err != nil {
		return MatchRecord{}, fmt.Errorf("match %d (seed %d): %w", job.matchID, job.seed, err)
	}

	return MatchRecord{
		MatchID: job.matchID,
		Seed:    ml.Seed,
		DeckA:   ml.DeckIDs[0],
		DeckB:   ml.DeckIDs[1],
		Winner:  ml.Winner.String(),
		Turns:   ml.Turns,
		FinalHP: ml.FinalHP,
		Reason:  string(ml.Reason),
		Summary: tel.Summary(),
		Trace:   ml.Trace,
	}, nil
}

// Run plays the whole batch with Cfg.Workers parallel runners. Records come
// back ordered by match ID regardless of scheduling.
func (r *Runner) Run(ctx context.Context) (*BatchResult, error) {
	jobs := r.jobs()
	records := make([]MatchRecord, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	ch := make(chan matchJob)

	for w := 0; w < r.Cfg.Workers; w++ {
		g.Go(func() error {
			for job := range ch {
				rec, err := r.playOne(job)
				if err != nil {
					return err
				}
				records[job.matchID] = rec
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(ch)
		for _, job := range jobs {
			select {
			case ch <- job:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &BatchResult{
		RunID:   uuid.NewString(),
		Records: records,
	}, nil
}

// ReadJSONL loads records written by WriteJSONL.
func ReadJSONL(path string) ([]MatchRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var records []MatchRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec MatchRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteJSONL writes one record per line.
func WriteJSONL(path string, records []MatchRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
