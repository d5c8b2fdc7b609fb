package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/touatautology/card-battle-engine/internal/game"
)

func simCatalog() game.Catalog {
	return game.Catalog{
		"grunt": {ID: "grunt", Name: "Grunt", Cost: 1, Kind: game.KindUnit,
			Template: game.TemplateVanilla, Unit: &game.UnitStats{Atk: 1, HP: 1}, Params: game.NoParams{}},
		"ogre": {ID: "ogre", Name: "Ogre", Cost: 3, Kind: game.KindUnit,
			Template: game.TemplateVanilla, Unit: &game.UnitStats{Atk: 3, HP: 2}, Params: game.NoParams{}},
		"bolt": {ID: "bolt", Name: "Bolt", Cost: 1, Kind: game.KindSpell,
			Template: game.TemplateDamagePlayer, Params: game.AmountParams{Amount: 2}},
	}
}

func simDeck(id string) game.DeckDef {
	return game.DeckDef{ID: id, Entries: []game.DeckEntry{
		{CardID: "grunt", Count: 12},
		{CardID: "ogre", Count: 10},
		{CardID: "bolt", Count: 8},
	}}
}

func testRunner(t *testing.T, deckIDs []string, gamesPerPair, workers int) *Runner {
	t.Helper()
	decks := make([]game.DeckDef, len(deckIDs))
	for i, id := range deckIDs {
		decks[i] = simDeck(id)
	}
	cfg := &Config{
		CardsPath:    "unused",
		DeckPaths:    deckIDs,
		GamesPerPair: gamesPerPair,
		BaseSeed:     100,
		Workers:      workers,
		AgentA:       "simple",
		AgentB:       "simple",
	}
	return &Runner{Catalog: simCatalog(), Resolver: game.DefaultResolver(), Decks: decks, Cfg: cfg}
}

func TestJobsAlternateSeats(t *testing.T) {
	r := testRunner(t, []string{"a", "b", "c"}, 2, 1)
	jobs := r.jobs()

	// 3 unordered pairs, 2 games each.
	if len(jobs) != 6 {
		t.Fatalf("job count = %d, want 6", len(jobs))
	}
	for i, job := range jobs {
		if job.matchID != i {
			t.Errorf("job %d: matchID = %d", i, job.matchID)
		}
		if job.seed != 100+int64(i) {
			t.Errorf("job %d: seed = %d, want %d", i, job.seed, 100+int64(i))
		}
	}
	// The second game of each pairing swaps seats.
	if jobs[0].deckA != 0 || jobs[0].deckB != 1 {
		t.Errorf("job 0 decks = (%d,%d)", jobs[0].deckA, jobs[0].deckB)
	}
	if jobs[1].deckA != 1 || jobs[1].deckB != 0 {
		t.Errorf("job 1 decks = (%d,%d), want swapped", jobs[1].deckA, jobs[1].deckB)
	}
}

func TestRunBatchIsReproducible(t *testing.T) {
	r := testRunner(t, []string{"a", "b"}, 4, 3)

	res1, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	res2, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(res1.Records) != 4 || len(res2.Records) != 4 {
		t.Fatalf("record counts = %d / %d, want 4", len(res1.Records), len(res2.Records))
	}
	if res1.RunID == res2.RunID {
		t.Error("run IDs should be unique per run")
	}
	for i := range res1.Records {
		r1, r2 := res1.Records[i], res2.Records[i]
		if r1.Seed != r2.Seed || r1.Winner != r2.Winner || r1.Turns != r2.Turns || r1.FinalHP != r2.FinalHP {
			t.Errorf("match %d differs across identical runs:\n  %+v\n  %+v", i, r1, r2)
		}
	}
}

func TestSummarize(t *testing.T) {
	records := []MatchRecord{
		{DeckA: "a", DeckB: "b", Winner: "player_0_win", Turns: 10},
		{DeckA: "b", DeckB: "a", Winner: "player_0_win", Turns: 20},
		{DeckA: "a", DeckB: "b", Winner: "player_1_win", Turns: 30},
		{DeckA: "a", DeckB: "b", Winner: "draw", Turns: 40},
	}
	rep := Summarize(records, []game.DeckDef{simDeck("a"), simDeck("b")})

	if rep.Matches != 4 || rep.Draws != 1 {
		t.Errorf("matches=%d draws=%d", rep.Matches, rep.Draws)
	}
	if rep.SeatWins != [2]int{2, 1} {
		t.Errorf("seat wins = %v", rep.SeatWins)
	}
	if rep.AvgTurns != 25 {
		t.Errorf("avg turns = %v", rep.AvgTurns)
	}

	a := rep.PerDeck["a"]
	// a: wins match 0, loses matches 1 and 2, draws match 3.
	if a.Games != 4 || a.Wins != 1 || a.Losses != 2 || a.Draws != 1 {
		t.Errorf("deck a stats = %+v", a)
	}
	if a.WinRate != (1.0+0.5)/4.0 {
		t.Errorf("deck a win rate = %v", a.WinRate)
	}

	if rep.CardAdoption["grunt"] != 24 {
		t.Errorf("grunt adoption = %d, want 24", rep.CardAdoption["grunt"])
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	records := []MatchRecord{
		{MatchID: 0, Seed: 5, DeckA: "a", DeckB: "b", Winner: "draw", Turns: 50,
			FinalHP: [2]int{3, 3}, Reason: "turn_limit",
			Summary: map[string]float64{"total_turns": 50}},
		{MatchID: 1, Seed: 6, DeckA: "b", DeckB: "a", Winner: "player_0_win", Turns: 12, Reason: "normal"},
	}
	path := filepath.Join(t.TempDir(), "matches.jsonl")
	if err := WriteJSONL(path, records); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadJSONL(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d records, want 2", len(got))
	}
	if got[0].Winner != "draw" || got[0].Summary["total_turns"] != 50 {
		t.Errorf("record 0 = %+v", got[0])
	}
	if got[1].Seed != 6 {
		t.Errorf("record 1 = %+v", got[1])
	}
}

func TestWriteParquet(t *testing.T) {
	res := &BatchResult{
		RunID: "test-run",
		Records: []MatchRecord{
			{MatchID: 0, Seed: 5, DeckA: "a", DeckB: "b", Winner: "player_0_win", Turns: 12,
				FinalHP: [2]int{10, -2}, Reason: "normal"},
		},
	}
	path := filepath.Join(t.TempDir(), "matches.parquet")
	if err := WriteParquet(path, Rows(res)); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("parquet file is empty")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
