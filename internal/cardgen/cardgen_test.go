package cardgen

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/loader"
	"github.com/touatautology/card-battle-engine/internal/patterns"
)

func testConstraints() *Constraints {
	return &Constraints{
		Global: GlobalConstraints{
			MaxNewCards: 20,
			Forbid: []ForbidRule{
				{Template: "DamagePlayer", Field: "amount", Op: ">", Value: 4},
				{Template: "Vanilla", Field: "cost", Op: "<", Value: 1},
			},
		},
		Templates: map[string]TemplateSpec{
			"Vanilla": {
				CardType:    "unit",
				CostRange:   [2]int{1, 6},
				Tags:        []string{"soldier"},
				ParamRanges: map[string][2]int{"atk": {1, 5}, "hp": {1, 6}},
			},
			"DamagePlayer": {
				CardType:    "spell",
				CostRange:   [2]int{1, 4},
				Tags:        []string{"burn"},
				ParamRanges: map[string][2]int{"amount": {1, 4}},
			},
			"OnPlayDamagePlayer": {
				CardType:    "unit",
				CostRange:   [2]int{2, 5},
				ParamRanges: map[string][2]int{"atk": {1, 4}, "hp": {1, 4}, "amount": {1, 2}},
			},
			"Draw": {
				CardType:    "spell",
				CostRange:   [2]int{1, 3},
				ParamRanges: map[string][2]int{"n": {1, 2}},
			},
			"OnPlayDraw": {
				CardType:    "unit",
				CostRange:   [2]int{2, 4},
				ParamRanges: map[string][2]int{"atk": {1, 3}, "hp": {1, 4}, "n": {1, 2}},
			},
			"RemoveUnit": {
				CardType:    "spell",
				CostRange:   [2]int{1, 4},
				ParamRanges: map[string][2]int{"max_hp": {2, 5}},
			},
			"HealSelf": {
				CardType:    "spell",
				CostRange:   [2]int{1, 3},
				ParamRanges: map[string][2]int{"amount": {2, 5}},
			},
		},
	}
}

func testCardgenConfig() *Config {
	cfg := &Config{}
	cfg.Defaults()
	return cfg
}

func testPatterns() []patterns.Pattern {
	return []patterns.Pattern{
		{ID: "p_co", Type: patterns.TypeCooccurrence, Scope: "deck",
			Definition: patterns.Definition{Cards: []string{"u01", "u02"}},
			Stats:      patterns.Stats{Support: 4, Lift: 1.3}},
		{ID: "p_ctr", Type: patterns.TypeCounter, Scope: "matchup",
			Definition: patterns.Definition{TargetDeckID: "aggro", Cards: []string{"zap"}},
			Stats:      patterns.Stats{Support: 3, Lift: 1.5}},
	}
}

func TestForbidRule(t *testing.T) {
	cons := testConstraints()
	cases := []struct {
		template string
		cost     int
		params   map[string]int
		want     bool
	}{
		{"DamagePlayer", 2, map[string]int{"amount": 5}, true},
		{"DamagePlayer", 2, map[string]int{"amount": 4}, false},
		{"Vanilla", 0, map[string]int{"atk": 1, "hp": 1}, true},
		{"Vanilla", 1, map[string]int{"atk": 1, "hp": 1}, false},
		// Rules only bind their own template.
		{"HealSelf", 2, map[string]int{"amount": 5}, false},
	}
	for _, tc := range cases {
		if got := cons.Forbidden(tc.template, tc.cost, tc.params); got != tc.want {
			t.Errorf("Forbidden(%s cost=%d %v) = %v, want %v",
				tc.template, tc.cost, tc.params, got, tc.want)
		}
	}
}

func TestCandidateIDStable(t *testing.T) {
	params := map[string]int{"atk": 2, "hp": 3}
	a := CandidateID("Vanilla", params, 7)
	b := CandidateID("Vanilla", map[string]int{"hp": 3, "atk": 2}, 7)
	if a != b {
		t.Fatalf("key order changed the ID: %s vs %s", a, b)
	}
	if a == CandidateID("Vanilla", params, 8) {
		t.Fatal("different seeds gave the same ID")
	}
	if a == CandidateID("Draw", params, 7) {
		t.Fatal("different templates gave the same ID")
	}
}

func TestGenerateCandidatesDeterministic(t *testing.T) {
	cons := testConstraints()
	cfg := testCardgenConfig()
	pats := testPatterns()

	first := GenerateCandidates(pats, cons, cfg)
	second := GenerateCandidates(pats, cons, cfg)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same inputs produced different candidates")
	}
	if len(first) == 0 {
		t.Fatal("no candidates generated")
	}

	seen := map[string]bool{}
	for _, c := range first {
		if cons.Forbidden(c.Template, c.Cost, c.Params) {
			t.Errorf("candidate %s violates the forbid rules", c.ID)
		}
		key := dedupKey(c.Template, c.Cost, c.Params)
		if seen[key] {
			t.Errorf("duplicate playable identity: %s", key)
		}
		seen[key] = true
		if c.Lineage.Origin != "base" {
			t.Errorf("candidate %s origin = %q", c.ID, c.Lineage.Origin)
		}
		if len(c.Intent.TargetPatternIDs) != 1 {
			t.Errorf("candidate %s has no source pattern", c.ID)
		}
	}

	// Counter-derived candidates carry the target deck forward.
	found := false
	for _, c := range first {
		if len(c.Intent.TargetDeckIDs) == 1 && c.Intent.TargetDeckIDs[0] == "aggro" {
			found = true
		}
	}
	if !found {
		t.Error("no candidate targets the counter pattern's deck")
	}
}

func TestGenerateCandidatesRespectsMaxNewCards(t *testing.T) {
	cons := testConstraints()
	cons.Global.MaxNewCards = 1
	got := GenerateCandidates(testPatterns(), cons, testCardgenConfig())
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
}

func TestMutateCandidateDeterministic(t *testing.T) {
	cons := testConstraints()
	parent := Candidate{
		ID: "cand_parent", Name: "parent", Cost: 3, CardType: "unit",
		Template: "Vanilla", Params: map[string]int{"atk": 3, "hp": 3},
		Lineage: Lineage{Origin: "base"},
	}
	weights := map[string]float64{OpParamJitter: 1}

	a := MutateCandidate(parent, cons, 42, 0, weights)
	b := MutateCandidate(parent, cons, 42, 0, weights)
	if a == nil || b == nil {
		t.Fatal("mutation produced no child")
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same coordinates gave different children: %+v vs %+v", a, b)
	}
	if a.Lineage.Origin != "mutated" || a.Lineage.ParentID != parent.ID {
		t.Errorf("lineage = %+v", a.Lineage)
	}
	if a.Lineage.MutationOp != OpParamJitter {
		t.Errorf("op = %q, want %q", a.Lineage.MutationOp, OpParamJitter)
	}

	// Jitter moves exactly one param by one, inside its range.
	moved := 0
	for k, v := range a.Params {
		d := v - parent.Params[k]
		if d != 0 {
			moved++
			if d < -1 || d > 1 {
				t.Errorf("param %s jumped by %d", k, d)
			}
		}
		r := cons.Templates["Vanilla"].ParamRanges[k]
		if v < r[0] || v > r[1] {
			t.Errorf("param %s = %d out of range %v", k, v, r)
		}
	}
	if moved > 1 {
		t.Errorf("%d params moved, want at most 1", moved)
	}
}

func TestTemplateSwapStaysInFamily(t *testing.T) {
	cons := testConstraints()
	parent := Candidate{
		ID: "cand_swap", Cost: 2, CardType: "spell",
		Template: "Draw", Params: map[string]int{"n": 2},
	}
	child := MutateCandidate(parent, cons, 42, 0, map[string]float64{OpTemplateSwap: 1})
	if child == nil {
		t.Fatal("swap produced no child")
	}
	if child.Template != "OnPlayDraw" {
		t.Fatalf("swapped to %q, want OnPlayDraw", child.Template)
	}
	spec := cons.Templates["OnPlayDraw"]
	if child.Cost < spec.CostRange[0] || child.Cost > spec.CostRange[1] {
		t.Errorf("cost %d out of the new template's range", child.Cost)
	}
	// The inherited param survives; the new ones fill at the midpoint.
	if child.Params["n"] != 2 {
		t.Errorf("n = %d, want 2", child.Params["n"])
	}
	if child.Params["atk"] != 2 || child.Params["hp"] != 2 {
		t.Errorf("new params = %v, want midpoints", child.Params)
	}
}

func TestStatRedistributePreservesTotal(t *testing.T) {
	cons := testConstraints()
	parent := Candidate{
		ID: "cand_stat", Cost: 4, CardType: "unit",
		Template: "Vanilla", Params: map[string]int{"atk": 4, "hp": 2},
	}
	for i := 0; i < 5; i++ {
		child := MutateCandidate(parent, cons, 42, i, map[string]float64{OpStatRedistribute: 1})
		if child == nil {
			continue
		}
		if got := child.Params["atk"] + child.Params["hp"]; got != 6 {
			t.Errorf("index %d: stat total = %d, want 6", i, got)
		}
	}

	spell := Candidate{ID: "cand_spell", Cost: 1, Template: "Draw", Params: map[string]int{"n": 1}}
	if child := MutateCandidate(spell, cons, 42, 0, map[string]float64{OpStatRedistribute: 1}); child != nil {
		t.Errorf("non-vanilla card redistributed: %+v", child)
	}
}

func TestCardDistance(t *testing.T) {
	cons := testConstraints()
	a := Candidate{Template: "Vanilla", Cost: 3, Params: map[string]int{"atk": 3, "hp": 3}}

	if d := CardDistance(a, a, cons); d != 0 {
		t.Errorf("self distance = %g, want 0", d)
	}

	b := a
	b.Template = "DamagePlayer"
	b.Params = map[string]int{"amount": 2}
	if d := CardDistance(a, b, cons); d < 0.5 {
		t.Errorf("cross-template distance = %g, want at least 0.5", d)
	}

	c := a
	c.Params = map[string]int{"atk": 4, "hp": 3}
	d := CardDistance(a, c, cons)
	if d <= 0 || d >= 0.5 {
		t.Errorf("near-identical distance = %g, want small but positive", d)
	}
}

func TestDedupeAndFilterDiversity(t *testing.T) {
	cons := testConstraints()
	cfg := testCardgenConfig()
	cfg.Diversity.MinDistance = 0.2
	cfg.Diversity.MaxPerTemplate = 2

	mk := func(id string, cost, atk, hp int) Candidate {
		return Candidate{ID: id, Template: "Vanilla", Cost: cost,
			Params: map[string]int{"atk": atk, "hp": hp}}
	}
	cands := []Candidate{
		mk("cand_a", 2, 2, 2),
		mk("cand_b", 2, 2, 2), // playable duplicate of a
		mk("cand_c", 2, 2, 3), // too close to a
		mk("cand_d", 6, 5, 6),
		mk("cand_e", 4, 4, 1), // over the per-template cap
	}
	got := DedupeAndFilterDiversity(cands, cons, cfg)
	if len(got) != 2 {
		t.Fatalf("kept %d candidates, want 2", len(got))
	}
	if got[0].ID != "cand_a" || got[1].ID != "cand_d" {
		t.Errorf("kept %s and %s, want cand_a and cand_d", got[0].ID, got[1].ID)
	}
}

func variantCatalog(t *testing.T) (game.Catalog, game.DeckDef) {
	t.Helper()
	resolver := game.DefaultResolver()
	specs := []loader.CardSpec{
		{ID: "cand_new", Name: "New", Cost: 2, CardType: "spell",
			Template: "DamagePlayer", Params: map[string]int{"amount": 3}},
		{ID: "zap", Name: "Zap", Cost: 1, CardType: "spell",
			Template: "DamagePlayer", Params: map[string]int{"amount": 2}},
	}
	counts := map[string]int{"zap": 3}
	for i := 0; i < 9; i++ {
		id := fmt.Sprintf("u%02d", i)
		specs = append(specs, loader.CardSpec{
			ID: id, Name: id, Cost: 1 + i%5, CardType: "unit",
			Template: "Vanilla", Params: map[string]int{"atk": 1 + i%4, "hp": 1 + i%3},
		})
		counts[id] = 3
	}
	catalog, err := loader.CatalogFromSpecs(specs, resolver)
	if err != nil {
		t.Fatal(err)
	}
	deck, err := loader.CountsToDeck("base", counts)
	if err != nil {
		t.Fatal(err)
	}
	return catalog, deck
}

func TestBuildDeckVariants(t *testing.T) {
	catalog, deck := variantCatalog(t)

	variants := BuildDeckVariants(deck, "cand_new", catalog, 3)
	if len(variants) != 3 {
		t.Fatalf("got %d variants, want 3", len(variants))
	}
	for n, v := range variants {
		counts := loader.DeckToCounts(v)
		if counts["cand_new"] != n+1 {
			t.Errorf("variant %d has %d copies, want %d", n, counts["cand_new"], n+1)
		}
		// Same-template zap copies go first.
		if counts["zap"] != 3-(n+1) {
			t.Errorf("variant %d kept %d zaps, want %d", n, counts["zap"], 3-(n+1))
		}
		total := 0
		for _, c := range counts {
			total += c
		}
		if total != loader.DeckSize {
			t.Errorf("variant %d total = %d", n, total)
		}
	}

	if got := BuildDeckVariants(deck, "missing", catalog, 3); got != nil {
		t.Errorf("unknown candidate gave variants: %v", got)
	}
}

func TestCheckAcceptance(t *testing.T) {
	cfg := testCardgenConfig()
	base := func() *AdoptionReport {
		return &AdoptionReport{
			Before: EvalSnapshot{
				WinRatesByTarget:   map[string]float64{"t1": 0.5},
				TelemetryAggregate: map[string]float64{"avg_total_turns": 20},
			},
			After: EvalSnapshot{
				WinRatesByTarget:   map[string]float64{"t1": 0.55},
				TelemetryAggregate: map[string]float64{"avg_total_turns": 21},
			},
			Delta: Delta{
				OverallWinRateDelta: 0.05,
				TelemetryDelta:      map[string]float64{"avg_total_turns": 1},
			},
		}
	}

	if !CheckAcceptance(base(), cfg) {
		t.Fatal("healthy report rejected")
	}

	r := base()
	r.Delta.OverallWinRateDelta = 0.01
	if CheckAcceptance(r, cfg) {
		t.Error("below-threshold delta accepted")
	}

	r = base()
	r.After.WinRatesByTarget["t1"] = 0.97
	if CheckAcceptance(r, cfg) {
		t.Error("degenerate win rate accepted")
	}

	r = base()
	r.Delta.TelemetryDelta["avg_total_turns"] = 8
	if CheckAcceptance(r, cfg) {
		t.Error("game-length blowout accepted")
	}
}
