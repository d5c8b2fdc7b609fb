package promotion

import (
	"errors"
	"strings"
	"testing"

	"github.com/touatautology/card-battle-engine/internal/cardgen"
	"github.com/touatautology/card-battle-engine/internal/loader"
)

func basePool() []loader.CardSpec {
	return []loader.CardSpec{
		{ID: "recruit", Name: "Recruit", Cost: 1, CardType: "unit",
			Template: "Vanilla", Params: map[string]int{"atk": 1, "hp": 1}},
		{ID: "spark", Name: "Spark", Cost: 1, CardType: "spell",
			Template: "DamagePlayer", Params: map[string]int{"amount": 2}},
	}
}

func report(id string) *cardgen.AdoptionReport {
	return &cardgen.AdoptionReport{
		Candidate: cardgen.Candidate{
			ID: id, Name: id, Cost: 2, CardType: "spell",
			Template: "DamagePlayer", Params: map[string]int{"amount": 3},
		},
	}
}

func TestApplyAddsSelected(t *testing.T) {
	before := basePool()
	after, patch, err := Apply(before, []*cardgen.AdoptionReport{report("cand_a"), report("cand_b")}, 10, "fail")
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 4 {
		t.Fatalf("pool size = %d, want 4", len(after))
	}
	if len(patch.Added) != 2 {
		t.Fatalf("added %d cards, want 2", len(patch.Added))
	}
	if patch.Added[0].Rarity != "uncommon" {
		t.Errorf("promoted rarity = %q, want uncommon", patch.Added[0].Rarity)
	}
	if patch.BasePoolHash == patch.NewPoolHash {
		t.Error("pool hash unchanged after adding cards")
	}
	if patch.BasePoolHash != PoolHash(before) {
		t.Error("base hash does not match the input pool")
	}
	if len(before) != 2 {
		t.Error("Apply mutated the input pool")
	}
}

func TestApplyHonorsMaxPromotions(t *testing.T) {
	sel := []*cardgen.AdoptionReport{report("cand_a"), report("cand_b"), report("cand_c")}
	after, patch, err := Apply(basePool(), sel, 2, "fail")
	if err != nil {
		t.Fatal(err)
	}
	if len(patch.Added) != 2 || len(after) != 4 {
		t.Fatalf("added %d to pool of %d, want 2 and 4", len(patch.Added), len(after))
	}
}

func TestApplyIDConflictFail(t *testing.T) {
	_, _, err := Apply(basePool(), []*cardgen.AdoptionReport{report("spark")}, 10, "fail")
	var conflict *IDConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want IDConflictError", err)
	}
	if conflict.CardID != "spark" {
		t.Errorf("conflicting card = %q, want spark", conflict.CardID)
	}
}

func TestApplyIDConflictSkip(t *testing.T) {
	after, patch, err := Apply(basePool(), []*cardgen.AdoptionReport{report("spark"), report("cand_a")}, 10, "skip")
	if err != nil {
		t.Fatal(err)
	}
	if len(patch.SkippedConflicts) != 1 || patch.SkippedConflicts[0] != "spark" {
		t.Fatalf("skipped = %v, want [spark]", patch.SkippedConflicts)
	}
	if len(patch.Added) != 1 || patch.Added[0].ID != "cand_a" {
		t.Fatalf("added = %v, want just cand_a", patch.Added)
	}
	if len(after) != 3 {
		t.Errorf("pool size = %d, want 3", len(after))
	}
}

func TestPoolHashStable(t *testing.T) {
	a := PoolHash(basePool())
	if a != PoolHash(basePool()) {
		t.Fatal("same pool hashed differently")
	}
	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16", len(a))
	}
	changed := basePool()
	changed[0].Cost = 2
	if a == PoolHash(changed) {
		t.Error("changed pool kept the same hash")
	}
}

func gateSides() (BenchSide, BenchSide) {
	before := BenchSide{
		WinRatesByTarget: map[string]float64{"t1": 0.5, "t2": 0.5},
		TelemetryAggregate: map[string]float64{
			"avg_total_turns":    20,
			"avg_p0_mana_wasted": 4,
			"avg_p1_mana_wasted": 6,
		},
	}
	after := BenchSide{
		WinRatesByTarget: map[string]float64{"t1": 0.55, "t2": 0.5},
		TelemetryAggregate: map[string]float64{
			"avg_total_turns":    21,
			"avg_p0_mana_wasted": 4,
			"avg_p1_mana_wasted": 5,
		},
	}
	return before, after
}

func gateConfig() GateConfig {
	return GateConfig{MaxMatchupWinRate: 0.95, TurnsDeltaRatio: 0.20, ManaWastedDeltaRatio: 0.20}
}

func TestComputeGatePasses(t *testing.T) {
	before, after := gateSides()
	res := ComputeGate(before, after, gateConfig())
	if !res.Passed {
		t.Fatalf("gate failed: %s", res.Reason)
	}
	if len(res.Checks) != 3 {
		t.Fatalf("got %d checks, want 3", len(res.Checks))
	}
	for name, c := range res.Checks {
		if !c.Passed {
			t.Errorf("check %s failed: actual %g vs threshold %g", name, c.Actual, c.Threshold)
		}
	}
}

func TestComputeGateFailsLopsidedMatchup(t *testing.T) {
	before, after := gateSides()
	after.WinRatesByTarget["t1"] = 0.98
	res := ComputeGate(before, after, gateConfig())
	if res.Passed {
		t.Fatal("lopsided matchup passed the gate")
	}
	if !strings.Contains(res.Reason, "max_matchup_winrate") {
		t.Errorf("reason = %q", res.Reason)
	}
	if c := res.Checks["max_matchup_winrate"]; c.Actual != 0.98 {
		t.Errorf("actual = %g, want 0.98", c.Actual)
	}
}

func TestComputeGateFailsTurnsSwing(t *testing.T) {
	before, after := gateSides()
	after.TelemetryAggregate["avg_total_turns"] = 28
	res := ComputeGate(before, after, gateConfig())
	if res.Passed {
		t.Fatal("game-length swing passed the gate")
	}
	if !strings.Contains(res.Reason, "turns_delta_ratio") {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestComputeGateFailsManaSwing(t *testing.T) {
	before, after := gateSides()
	after.TelemetryAggregate["avg_p0_mana_wasted"] = 8
	after.TelemetryAggregate["avg_p1_mana_wasted"] = 8
	res := ComputeGate(before, after, gateConfig())
	if res.Passed {
		t.Fatal("mana-waste swing passed the gate")
	}
	if !strings.Contains(res.Reason, "mana_wasted_delta_ratio") {
		t.Errorf("reason = %q", res.Reason)
	}
}
