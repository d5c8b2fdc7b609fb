package promotion

import (
	"math"
	"sort"
	"strings"
)

// GateConfig holds the promotion gate thresholds.
type GateConfig struct {
	MaxMatchupWinRate    float64 `yaml:"max_matchup_winrate"`
	TurnsDeltaRatio      float64 `yaml:"turns_delta_ratio"`
	ManaWastedDeltaRatio float64 `yaml:"mana_wasted_delta_ratio"`
}

// Check is one gate condition's verdict.
type Check struct {
	Passed    bool    `json:"passed"`
	Threshold float64 `json:"threshold"`
	Actual    float64 `json:"actual"`
}

// GateResult is the full gate verdict.
type GateResult struct {
	Passed bool             `json:"passed"`
	Checks map[string]Check `json:"checks"`
	Reason string           `json:"reason"`
}

// BenchSide is the slice of a benchmark the gate inspects.
type BenchSide struct {
	WinRatesByTarget   map[string]float64
	TelemetryAggregate map[string]float64
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func ratioDelta(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	return math.Abs(after-before) / before
}

// ComputeGate evaluates the three gate conditions: no matchup may become
// lopsided, and neither game length nor wasted mana may swing past the
// configured ratio.
func ComputeGate(before, after BenchSide, cfg GateConfig) *GateResult {
	checks := map[string]Check{}

	maxWR := 0.0
	for _, wr := range after.WinRatesByTarget {
		if wr > maxWR {
			maxWR = wr
		}
	}
	checks["max_matchup_winrate"] = Check{
		Passed:    maxWR <= cfg.MaxMatchupWinRate,
		Threshold: cfg.MaxMatchupWinRate,
		Actual:    round4(maxWR),
	}

	turnsRatio := ratioDelta(
		before.TelemetryAggregate["avg_total_turns"],
		after.TelemetryAggregate["avg_total_turns"],
	)
	checks["turns_delta_ratio"] = Check{
		Passed:    turnsRatio <= cfg.TurnsDeltaRatio,
		Threshold: cfg.TurnsDeltaRatio,
		Actual:    round4(turnsRatio),
	}

	wastedMean := func(agg map[string]float64) float64 {
		return (agg["avg_p0_mana_wasted"] + agg["avg_p1_mana_wasted"]) / 2
	}
	manaRatio := ratioDelta(wastedMean(before.TelemetryAggregate), wastedMean(after.TelemetryAggregate))
	checks["mana_wasted_delta_ratio"] = Check{
		Passed:    manaRatio <= cfg.ManaWastedDeltaRatio,
		Threshold: cfg.ManaWastedDeltaRatio,
		Actual:    round4(manaRatio),
	}

	var failed []string
	for name, c := range checks {
		if !c.Passed {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)

	if len(failed) == 0 {
		return &GateResult{Passed: true, Checks: checks, Reason: "all checks passed"}
	}
	return &GateResult{Passed: false, Checks: checks, Reason: "failed: " + strings.Join(failed, ", ")}
}
