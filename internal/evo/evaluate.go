package evo

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/telemetry"
)

// Evaluator scores decks by playing them against a fixed opponent pool.
type Evaluator struct {
	Catalog  game.Catalog
	Resolver game.Resolver

	// GlobalSeed and Generation feed DeriveMatchSeed so that every
	// evaluation in a run is independently seeded yet replayable.
	GlobalSeed int64
	Generation int

	// GamesPerPair is played twice per opponent, once in each seat order.
	GamesPerPair int

	// Policy names the agent the evaluated deck plays.
	Policy string
	// OpponentWeights, when non-nil, samples the opponent's policy per
	// match from a normalized mix; nil means the opponent plays Policy
	// too. Sampling is keyed off the match seed, so it is reproducible.
	OpponentWeights PolicyWeights

	// Trace includes per-turn action traces in collected summaries.
	Trace bool

	// Workers bounds parallel matches; values below 1 mean sequential.
	Workers int
}

// MatchSummary is one evaluated match as seen from the subject deck's side.
// Pattern mining consumes these.
type MatchSummary struct {
	MatchID    string             `json:"match_id"`
	DeckID     string             `json:"deck_id"`
	OpponentID string             `json:"opponent_id"`
	Swapped    bool               `json:"swapped"`
	Winner     string             `json:"winner"`
	TotalTurns int                `json:"total_turns"`
	Telemetry  map[string]float64 `json:"telemetry,omitempty"`
	Trace      []game.TraceEntry  `json:"turn_trace,omitempty"`
}

// Won reports whether the subject deck won the match.
func (s MatchSummary) Won() bool {
	if s.Swapped {
		return s.Winner == game.ResultPlayer1Win.String()
	}
	return s.Winner == game.ResultPlayer0Win.String()
}

// score maps a finished match to the subject's payoff: 1 for a win, 0.5 for
// a draw, 0 for a loss. subjectSeat is the seat the evaluated deck occupied.
func score(result game.GameResult, subjectSeat int) float64 {
	switch result {
	case game.WinFor(subjectSeat):
		return 1.0
	case game.ResultDraw:
		return 0.5
	default:
		return 0.0
	}
}

func (e *Evaluator) playPair(deck, opp game.DeckDef, gameIdx int, swapped, collect bool) (float64, MatchSummary, error) {
	seed := DeriveMatchSeed(e.GlobalSeed, e.Generation, deck.ID, opp.ID, gameIdx, swapped)

	a := deck
	b := opp
	subjectSeat := 0
	if swapped {
		a, b = opp, deck
		subjectSeat = 1
	}

	oppPolicy := e.Policy
	if len(e.OpponentWeights) > 0 {
		oppPolicy = PickPolicy(rand.New(rand.NewSource(seed)), e.OpponentWeights)
	}
	policyA, policyB := e.Policy, oppPolicy
	if swapped {
		policyA, policyB = oppPolicy, e.Policy
	}

	agentA, err := BuildAgent(policyA, seed)
	if err != nil {
		return 0, MatchSummary{}, err
	}
	agentB, err := BuildAgent(policyB, seed+1)
	if err != nil {
		return 0, MatchSummary{}, err
	}

	gs := game.NewGame(e.Catalog, e.Resolver, a, b, seed)
	var tel *telemetry.Match
	if collect {
		tel = telemetry.NewMatch()
		gs.Attach(tel)
	}
	ml, err := game.Run(gs, [2]game.Agent{agentA, agentB}, collect && e.Trace)
	if err != nil {
		return 0, MatchSummary{}, fmt.Errorf("evaluate %s vs %s: %w", deck.ID, opp.ID, err)
	}

	var sum MatchSummary
	if collect {
		sum = MatchSummary{
			MatchID:    fmt.Sprintf("g%03d_%s_vs_%s_%d_s%d", e.Generation, deck.ID, opp.ID, gameIdx, subjectSeat),
			DeckID:     deck.ID,
			OpponentID: opp.ID,
			Swapped:    swapped,
			Winner:     ml.Winner.String(),
			TotalTurns: ml.Turns,
			Telemetry:  tel.Summary(),
			Trace:      ml.Trace,
		}
	}
	return score(ml.Winner, subjectSeat), sum, nil
}

// evaluateDeck plays the deck against every pool opponent, both seat orders,
// and returns the mean payoff. Summaries come back in job order, so the
// output is independent of worker scheduling.
func (e *Evaluator) evaluateDeck(ctx context.Context, deck game.DeckDef, pool []game.DeckDef, collect bool) (float64, []MatchSummary, error) {
	if len(pool) == 0 {
		return 0.5, nil, nil
	}

	type job struct {
		opp     game.DeckDef
		gameIdx int
		swapped bool
	}
	var jobs []job
	for _, opp := range pool {
		for gi := 0; gi < e.GamesPerPair; gi++ {
			jobs = append(jobs, job{opp, gi, false})
			jobs = append(jobs, job{opp, gi, true})
		}
	}

	scores := make([]float64, len(jobs))
	sums := make([]MatchSummary, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if e.Workers > 1 {
		g.SetLimit(e.Workers)
	} else {
		g.SetLimit(1)
	}
	for i, j := range jobs {
		i, j := i, j
		select {
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		default:
		}
		g.Go(func() error {
			s, sum, err := e.playPair(deck, j.opp, j.gameIdx, j.swapped, collect)
			if err != nil {
				return err
			}
			scores[i] = s
			sums[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}

	total := 0.0
	for _, s := range scores {
		total += s
	}
	if !collect {
		sums = nil
	}
	return total / float64(len(scores)), sums, nil
}

// EvaluateDeckVsPool returns the deck's mean payoff over all pool opponents,
// both seat orders. An empty pool scores a neutral 0.5.
func (e *Evaluator) EvaluateDeckVsPool(ctx context.Context, deck game.DeckDef, pool []game.DeckDef) (float64, error) {
	f, _, err := e.evaluateDeck(ctx, deck, pool, false)
	return f, err
}

// EvaluatePopulation scores each deck against all the others.
func (e *Evaluator) EvaluatePopulation(ctx context.Context, pop []game.DeckDef) ([]float64, error) {
	fitness, _, err := e.EvaluatePopulationDetailed(ctx, pop, false)
	return fitness, err
}

// EvaluatePopulationDetailed scores each deck against all the others and,
// when collect is set, returns every match summary in deterministic order.
func (e *Evaluator) EvaluatePopulationDetailed(ctx context.Context, pop []game.DeckDef, collect bool) ([]float64, []MatchSummary, error) {
	fitness := make([]float64, len(pop))
	var all []MatchSummary
	for i, deck := range pop {
		pool := make([]game.DeckDef, 0, len(pop)-1)
		for j, other := range pop {
			if j != i {
				pool = append(pool, other)
			}
		}
		f, sums, err := e.evaluateDeck(ctx, deck, pool, collect)
		if err != nil {
			return nil, nil, err
		}
		fitness[i] = f
		all = append(all, sums...)
	}
	return fitness, all, nil
}

// TargetEval is a round-robin benchmark of a fixed target set.
type TargetEval struct {
	WinRatesByTarget map[string]float64 `json:"win_rates_by_target"`
	OverallWinRate   float64            `json:"overall_win_rate"`
	Summaries        []MatchSummary     `json:"summaries,omitempty"`
}

// EvaluateTargets plays every target against the others and reports each
// target's win rate plus the overall mean. Balance gating and adoption
// testing both run on this.
func (e *Evaluator) EvaluateTargets(ctx context.Context, targets []game.DeckDef) (*TargetEval, error) {
	out := &TargetEval{WinRatesByTarget: make(map[string]float64, len(targets))}
	total := 0.0
	for i, deck := range targets {
		pool := make([]game.DeckDef, 0, len(targets)-1)
		for j, other := range targets {
			if j != i {
				pool = append(pool, other)
			}
		}
		f, sums, err := e.evaluateDeck(ctx, deck, pool, true)
		if err != nil {
			return nil, err
		}
		out.WinRatesByTarget[deck.ID] = f
		out.Summaries = append(out.Summaries, sums...)
		total += f
	}
	if len(targets) > 0 {
		out.OverallWinRate = total / float64(len(targets))
	}
	return out, nil
}

// AggregateTelemetry averages every telemetry key across summaries, keyed
// with an avg_ prefix. avg_total_turns is always present.
func AggregateTelemetry(summaries []MatchSummary) map[string]float64 {
	maps := make([]map[string]float64, 0, len(summaries))
	turns := 0.0
	for _, s := range summaries {
		if s.Telemetry != nil {
			maps = append(maps, s.Telemetry)
		}
		turns += float64(s.TotalTurns)
	}
	out := map[string]float64{}
	if len(summaries) > 0 {
		out["avg_total_turns"] = turns / float64(len(summaries))
	}
	for key, stat := range telemetry.Aggregate(maps) {
		out["avg_"+key] = stat.Mean
	}
	return out
}
