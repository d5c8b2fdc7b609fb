package cardgen

import (
	"context"
	"math"
	"strings"

	"github.com/touatautology/card-battle-engine/internal/evo"
	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/loader"
)

// EvalSnapshot is one side of an adoption comparison.
type EvalSnapshot struct {
	WinRatesByTarget   map[string]float64 `json:"win_rates_by_target"`
	OverallWinRate     float64            `json:"overall_win_rate"`
	TelemetryAggregate map[string]float64 `json:"telemetry_aggregate"`
}

// Delta is the measured effect of adopting a candidate.
type Delta struct {
	OverallWinRateDelta float64            `json:"overall_win_rate_delta"`
	ByTargetDelta       map[string]float64 `json:"by_target_delta"`
	TelemetryDelta      map[string]float64 `json:"telemetry_delta"`
}

// AdoptionReport is the full before/after record for one candidate.
type AdoptionReport struct {
	Candidate Candidate    `json:"candidate_card"`
	Before    EvalSnapshot `json:"before"`
	After     EvalSnapshot `json:"after"`
	Delta     Delta        `json:"delta"`
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func newEvaluator(catalog game.Catalog, resolver game.Resolver, seed int64, cfg *Config) (*evo.Evaluator, error) {
	ev := &evo.Evaluator{
		Catalog:      catalog,
		Resolver:     resolver,
		GlobalSeed:   seed,
		GamesPerPair: cfg.Adoption.MatchesPerEval,
		Policy:       "greedy",
		Workers:      cfg.Workers,
	}
	if len(cfg.Adoption.PolicyMix) > 0 {
		w, err := evo.NormalizeWeights(cfg.Adoption.PolicyMix)
		if err != nil {
			return nil, err
		}
		ev.OpponentWeights = w
	}
	return ev, nil
}

func snapshot(eval *evo.TargetEval) EvalSnapshot {
	return EvalSnapshot{
		WinRatesByTarget:   eval.WinRatesByTarget,
		OverallWinRate:     eval.OverallWinRate,
		TelemetryAggregate: evo.AggregateTelemetry(eval.Summaries),
	}
}

// AdoptionTestOne measures how the target meta shifts when the candidate
// joins the pool: the targets are benchmarked as is, then re-benchmarked
// with each target upgraded to its best candidate-bearing variant.
func AdoptionTestOne(ctx context.Context, cand Candidate, targets []game.DeckDef, specs []loader.CardSpec, resolver game.Resolver, cfg *Config, seed int64) (*AdoptionReport, error) {
	catBefore, err := loader.CatalogFromSpecs(specs, resolver)
	if err != nil {
		return nil, err
	}
	evBefore, err := newEvaluator(catBefore, resolver, seed, cfg)
	if err != nil {
		return nil, err
	}
	before, err := evBefore.EvaluateTargets(ctx, targets)
	if err != nil {
		return nil, err
	}

	specsAfter := append(append([]loader.CardSpec(nil), specs...), cand.Spec())
	catAfter, err := loader.CatalogFromSpecs(specsAfter, resolver)
	if err != nil {
		return nil, err
	}
	evAfter, err := newEvaluator(catAfter, resolver, seed, cfg)
	if err != nil {
		return nil, err
	}

	// Each target adopts the candidate only if some variant beats its
	// current win rate against the unchanged opposition.
	afterTargets := make([]game.DeckDef, 0, len(targets))
	for i, deck := range targets {
		variants := BuildDeckVariants(deck, cand.ID, catAfter, cfg.Adoption.MaxCopiesToTest)
		if len(variants) == 0 {
			afterTargets = append(afterTargets, deck)
			continue
		}

		opponents := make([]game.DeckDef, 0, len(targets)-1)
		for j, other := range targets {
			if j != i {
				opponents = append(opponents, other)
			}
		}

		bestDeck := deck
		bestWR := before.WinRatesByTarget[deck.ID]
		for _, variant := range variants {
			if len(opponents) == 0 {
				break
			}
			wr, err := evAfter.EvaluateDeckVsPool(ctx, variant, opponents)
			if err != nil {
				return nil, err
			}
			if wr > bestWR {
				bestWR = wr
				bestDeck = variant
			}
		}
		afterTargets = append(afterTargets, bestDeck)
	}

	after, err := evAfter.EvaluateTargets(ctx, afterTargets)
	if err != nil {
		return nil, err
	}

	beforeSnap := snapshot(before)
	afterSnap := snapshot(after)

	byTarget := map[string]float64{}
	for did, b := range beforeSnap.WinRatesByTarget {
		a := 0.5
		// Adopted variants keep the original deck ID as a prefix.
		for _, ad := range afterTargets {
			if strings.HasPrefix(ad.ID, did) {
				a = afterSnap.WinRatesByTarget[ad.ID]
				break
			}
		}
		byTarget[did] = round4(a - b)
	}

	telemetryDelta := map[string]float64{}
	for key, b := range beforeSnap.TelemetryAggregate {
		telemetryDelta[key] = round4(afterSnap.TelemetryAggregate[key] - b)
	}

	return &AdoptionReport{
		Candidate: cand,
		Before:    beforeSnap,
		After:     afterSnap,
		Delta: Delta{
			OverallWinRateDelta: round4(afterSnap.OverallWinRate - beforeSnap.OverallWinRate),
			ByTargetDelta:       byTarget,
			TelemetryDelta:      telemetryDelta,
		},
	}, nil
}

// CheckAcceptance applies the acceptance thresholds: the candidate must
// lift the overall win rate, must not push any matchup past MaxWinRate,
// and must not swing game length beyond MaxTurnsDeltaPct.
func CheckAcceptance(r *AdoptionReport, cfg *Config) bool {
	acc := cfg.Adoption.Acceptance

	if r.Delta.OverallWinRateDelta < acc.MinOverallDelta {
		return false
	}
	for _, wr := range r.After.WinRatesByTarget {
		if wr > acc.MaxWinRate {
			return false
		}
	}

	beforeTurns := r.Before.TelemetryAggregate["avg_total_turns"]
	if beforeTurns > 0 {
		change := math.Abs(r.Delta.TelemetryDelta["avg_total_turns"])
		if change/beforeTurns > acc.MaxTurnsDeltaPct {
			return false
		}
	}
	return true
}
