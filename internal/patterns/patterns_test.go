package patterns

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/touatautology/card-battle-engine/internal/evo"
	"github.com/touatautology/card-battle-engine/internal/game"
)

func testConfig() *Config {
	cfg := &Config{}
	cfg.Defaults()
	cfg.MinSupport = 2
	cfg.Sequence.MinSupport = 2
	return cfg
}

func summary(id, deck, opp string, swapped, won bool) evo.MatchSummary {
	winner := game.ResultPlayer1Win.String()
	if won != swapped {
		winner = game.ResultPlayer0Win.String()
	}
	return evo.MatchSummary{
		MatchID:    id,
		DeckID:     deck,
		OpponentID: opp,
		Swapped:    swapped,
		Winner:     winner,
		TotalTurns: 10,
	}
}

func TestCombosLexicographic(t *testing.T) {
	got := combos([]string{"a", "b", "c", "d"}, 2)
	want := [][]string{
		{"a", "b"}, {"a", "c"}, {"a", "d"},
		{"b", "c"}, {"b", "d"}, {"c", "d"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("combos = %v, want %v", got, want)
	}
	if got := combos([]string{"a", "b"}, 3); got != nil {
		t.Fatalf("oversized combos = %v, want nil", got)
	}
}

func TestExtractCooccurrence(t *testing.T) {
	decks := []DeckInfo{
		{DeckID: "d1", Cards: []string{"u01", "u02", "zap"}, Fitness: 0.9},
		{DeckID: "d2", Cards: []string{"u01", "u02", "u03"}, Fitness: 0.7},
		{DeckID: "d3", Cards: []string{"u04", "u05", "u06"}, Fitness: 0.2},
	}
	pats := ExtractCooccurrence(decks, testConfig(), nil)

	var hit *Pattern
	for i := range pats {
		if reflect.DeepEqual(pats[i].Definition.Cards, []string{"u01", "u02"}) {
			hit = &pats[i]
		}
	}
	if hit == nil {
		t.Fatalf("no pattern for the shared pair, got %d patterns", len(pats))
	}
	if hit.Stats.Support != 2 {
		t.Errorf("support = %d, want 2", hit.Stats.Support)
	}
	// Mean fitness of the hits (0.8) over the population mean (0.6).
	if lift := hit.Stats.Lift; lift < 1.3 || lift > 1.4 {
		t.Errorf("lift = %g, want 0.8/0.6", lift)
	}
	for _, p := range pats {
		if p.Stats.Support < 2 {
			t.Errorf("pattern %s below min support: %d", p.ID, p.Stats.Support)
		}
	}
}

func TestSequenceTokensUsesSubjectSeat(t *testing.T) {
	s := summary("m1", "d1", "t1", true, true)
	s.Trace = []game.TraceEntry{
		{Turn: 1, Player: 0, Action: "play u01"},
		{Turn: 1, Player: 1, Action: "play zap"},
		{Turn: 2, Player: 1, Action: "attack 1"},
		{Turn: 5, Player: 1, Action: "play u02"}, // beyond the window
	}
	got := sequenceTokens(s, 3)
	want := [][]string{{"play zap"}, {"attack 1"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}

	if got := sequenceTokens(summary("m2", "d1", "t1", false, true), 3); got != nil {
		t.Fatalf("traceless summary gave tokens %v", got)
	}
}

func TestExtractSequences(t *testing.T) {
	trace := []game.TraceEntry{
		{Turn: 1, Player: 0, Action: "play u01"},
		{Turn: 2, Player: 0, Action: "attack 1"},
	}
	var sums []evo.MatchSummary
	for i, won := range []bool{true, true, false} {
		s := summary(string(rune('a'+i)), "d1", "t1", false, won)
		s.Trace = trace
		sums = append(sums, s)
	}
	// A losing one-off sequence that stays below min support.
	odd := summary("z", "d2", "t1", false, false)
	odd.Trace = []game.TraceEntry{{Turn: 1, Player: 0, Action: "end"}}
	sums = append(sums, odd)

	pats := ExtractSequences(sums, testConfig())
	if len(pats) != 1 {
		t.Fatalf("got %d patterns, want 1", len(pats))
	}
	p := pats[0]
	if p.Stats.Support != 3 {
		t.Errorf("support = %d, want 3", p.Stats.Support)
	}
	if p.Stats.WinRate != 2.0/3.0 {
		t.Errorf("win rate = %g, want 2/3", p.Stats.WinRate)
	}
	want := [][]string{{"play u01"}, {"attack 1"}}
	if !reflect.DeepEqual(p.Definition.Tokens, want) {
		t.Errorf("tokens = %v, want %v", p.Definition.Tokens, want)
	}
}

func TestExtractCounters(t *testing.T) {
	decks := []DeckInfo{
		{DeckID: "d1", Cards: []string{"u01", "zap"}},
		{DeckID: "d2", Cards: []string{"u01", "zap"}},
		{DeckID: "d3", Cards: []string{"u02"}},
	}
	cfg := testConfig()
	cfg.Counter.Targets = []string{"aggro"}
	cfg.Counter.MinLift = 1.1

	sums := []evo.MatchSummary{
		summary("m1", "d1", "aggro", false, true),
		summary("m2", "d2", "aggro", false, true),
		summary("m3", "d3", "aggro", false, false),
		summary("m4", "d1", "other", false, false),
	}
	pats := ExtractCounters(sums, decks, cfg)
	if len(pats) == 0 {
		t.Fatal("no counter patterns mined")
	}
	for _, p := range pats {
		if p.Definition.TargetDeckID != "aggro" {
			t.Errorf("pattern %s targets %q", p.ID, p.Definition.TargetDeckID)
		}
		if p.Stats.Lift < cfg.Counter.MinLift {
			t.Errorf("pattern %s lift %g below threshold", p.ID, p.Stats.Lift)
		}
		if p.Stats.WinRate != 1.0 {
			t.Errorf("pattern %s win rate = %g, want 1", p.ID, p.Stats.WinRate)
		}
	}
}

func TestPatternIDStable(t *testing.T) {
	def := Definition{Cards: []string{"u01", "zap"}}
	if ID(TypeCooccurrence, def) != ID(TypeCooccurrence, def) {
		t.Fatal("same definition hashed to different IDs")
	}
	if ID(TypeCooccurrence, def) == ID(TypeCounter, def) {
		t.Fatal("different types hashed to the same ID")
	}
	other := Definition{Cards: []string{"u01", "u02"}}
	if ID(TypeCooccurrence, def) == ID(TypeCooccurrence, other) {
		t.Fatal("different definitions hashed to the same ID")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	ps := []Pattern{
		makePattern(TypeCooccurrence, "deck", Definition{Cards: []string{"a", "b"}},
			Stats{Support: 3, Lift: 1.2}, []string{"m1"}),
		makePattern(TypeCounter, "matchup", Definition{TargetDeckID: "t", Cards: []string{"c"}},
			Stats{Support: 5, Lift: 1.5}, nil),
	}
	path := filepath.Join(t.TempDir(), "patterns.json")
	if err := Write(path, ps, Meta{SourceRun: "run1", Seed: 7}); err != nil {
		t.Fatal(err)
	}

	f, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Meta.SourceRun != "run1" || f.Meta.Seed != 7 {
		t.Errorf("meta = %+v", f.Meta)
	}
	if len(f.Patterns) != 2 {
		t.Fatalf("got %d patterns, want 2", len(f.Patterns))
	}
	// Written sorted: highest lift first.
	if f.Patterns[0].Type != TypeCounter {
		t.Errorf("first pattern type = %s, want %s", f.Patterns[0].Type, TypeCounter)
	}
}
