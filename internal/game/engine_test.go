package game

import (
	"strings"
	"testing"

	"github.com/touatautology/card-battle-engine/internal/log"
)

// firstAgent always takes the first legal action. It plays out cards and
// cancels every combat, which is enough to exercise the full turn loop
// deterministically.
type firstAgent struct{}

func (firstAgent) ChooseAction(gs *GameState, legal []Action) Action {
	return legal[0]
}

func standardCatalog() Catalog {
	return testCatalog(
		vanillaUnit("grunt", 1, 1, 1),
		vanillaUnit("knight", 2, 2, 2),
		vanillaUnit("ogre", 3, 3, 2),
		vanillaUnit("wall", 2, 0, 4),
		spellCard("bolt", 1, TemplateDamagePlayer, AmountParams{Amount: 2}),
	)
}

func mixedDeck(deckID string) DeckDef {
	return DeckDef{ID: deckID, Entries: []DeckEntry{
		{CardID: "grunt", Count: 8},
		{CardID: "knight", Count: 8},
		{CardID: "ogre", Count: 7},
		{CardID: "bolt", Count: 7},
	}}
}

func TestOpeningHands(t *testing.T) {
	catalog := standardCatalog()
	gs := NewGame(catalog, DefaultResolver(), mixedDeck("a"), mixedDeck("b"), 7)

	for pi, p := range gs.Players {
		if len(p.Hand) != InitialHandSize {
			t.Errorf("player %d: hand size = %d, want %d", pi, len(p.Hand), InitialHandSize)
		}
		if len(p.Deck) != 30-InitialHandSize {
			t.Errorf("player %d: deck size = %d, want %d", pi, len(p.Deck), 30-InitialHandSize)
		}
		if p.HP != StartingHP {
			t.Errorf("player %d: HP = %d, want %d", pi, p.HP, StartingHP)
		}
	}
	if gs.ActivePlayer != 0 && gs.ActivePlayer != 1 {
		t.Errorf("active player = %d", gs.ActivePlayer)
	}
}

func TestFirstSeatVariesAcrossSeeds(t *testing.T) {
	catalog := standardCatalog()
	seen := map[int]bool{}
	for seed := int64(1); seed <= 64; seed++ {
		gs := NewGame(catalog, DefaultResolver(), mixedDeck("a"), mixedDeck("b"), seed)
		seen[gs.ActivePlayer] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("first seat never varied across 64 seeds: %v", seen)
	}
}

func TestSeedDeterminism(t *testing.T) {
	catalog := standardCatalog()

	play := func() (*MatchLog, []log.GameEvent) {
		gs := NewGame(catalog, DefaultResolver(), mixedDeck("a"), mixedDeck("b"), 42)
		logger := log.NewMemoryLogger()
		gs.Attach(NewEventRecorder(logger))
		ml, err := Run(gs, [2]Agent{firstAgent{}, firstAgent{}}, true)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return ml, logger.Events()
	}

	ml1, ev1 := play()
	ml2, ev2 := play()

	if ml1.Winner != ml2.Winner || ml1.Turns != ml2.Turns || ml1.FinalHP != ml2.FinalHP || ml1.Reason != ml2.Reason {
		t.Fatalf("same seed produced different outcomes:\n  %+v\n  %+v", ml1, ml2)
	}
	if len(ml1.Trace) != len(ml2.Trace) {
		t.Fatalf("trace lengths differ: %d vs %d", len(ml1.Trace), len(ml2.Trace))
	}
	for i := range ml1.Trace {
		if ml1.Trace[i] != ml2.Trace[i] {
			t.Fatalf("trace diverges at %d: %+v vs %+v", i, ml1.Trace[i], ml2.Trace[i])
		}
	}
	if len(ev1) != len(ev2) {
		t.Fatalf("event counts differ: %d vs %d", len(ev1), len(ev2))
	}
}

func TestObserversDoNotAffectOutcome(t *testing.T) {
	catalog := standardCatalog()

	play := func(observe bool) *MatchLog {
		gs := NewGame(catalog, DefaultResolver(), mixedDeck("a"), mixedDeck("b"), 42)
		if observe {
			gs.Attach(NewEventRecorder(log.NewMemoryLogger()))
		}
		ml, err := Run(gs, [2]Agent{firstAgent{}, firstAgent{}}, true)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return ml
	}

	withObs := play(true)
	bare := play(false)

	if withObs.Winner != bare.Winner || withObs.Turns != bare.Turns ||
		withObs.FinalHP != bare.FinalHP || withObs.Reason != bare.Reason {
		t.Fatalf("attaching an observer changed the outcome:\n  %+v\n  %+v", withObs, bare)
	}
	if len(withObs.Trace) != len(bare.Trace) {
		t.Fatalf("trace lengths differ: %d vs %d", len(withObs.Trace), len(bare.Trace))
	}
	for i := range withObs.Trace {
		if withObs.Trace[i] != bare.Trace[i] {
			t.Fatalf("trace diverges at %d: %+v vs %+v", i, withObs.Trace[i], bare.Trace[i])
		}
	}
}

func TestDeckoutIsImmediateLoss(t *testing.T) {
	catalog := standardCatalog()
	gs := newTestState(catalog)
	fillDeck(gs, 1, "grunt", 10)
	// Player 0 starts with an empty deck and must draw first.
	gs.ActivePlayer = 0

	ml, logger := runMatch(t, gs, passAgent{}, passAgent{})

	if ml.Winner != ResultPlayer1Win {
		t.Errorf("winner = %s, want %s", ml.Winner, ResultPlayer1Win)
	}
	if ml.Reason != EndDeckOut {
		t.Errorf("reason = %s, want %s", ml.Reason, EndDeckOut)
	}
	if ml.Turns != 1 {
		t.Errorf("turns = %d, want 1", ml.Turns)
	}
	end := logger.LastEvent()
	if end.Type != log.EventGameEnd {
		t.Fatalf("last event = %s, want %s", end.Type, log.EventGameEnd)
	}
	if !strings.Contains(end.Details, string(EndDeckOut)) {
		t.Errorf("game end detail = %q, want it to mention %q", end.Details, EndDeckOut)
	}
}

func TestTurnLimit(t *testing.T) {
	catalog := standardCatalog()

	t.Run("higher HP wins", func(t *testing.T) {
		gs := newTestState(catalog)
		fillDeck(gs, 0, "grunt", 60)
		fillDeck(gs, 1, "grunt", 60)
		gs.Players[0].HP = 15
		gs.Players[1].HP = 10

		ml, _ := runMatch(t, gs, passAgent{}, passAgent{})
		if ml.Winner != ResultPlayer0Win {
			t.Errorf("winner = %s, want %s", ml.Winner, ResultPlayer0Win)
		}
		if ml.Reason != EndTurnLimit {
			t.Errorf("reason = %s, want %s", ml.Reason, EndTurnLimit)
		}
		if ml.Turns != MaxTurns {
			t.Errorf("turns = %d, want %d", ml.Turns, MaxTurns)
		}
	})

	t.Run("equal HP is a draw", func(t *testing.T) {
		gs := newTestState(catalog)
		fillDeck(gs, 0, "grunt", 60)
		fillDeck(gs, 1, "grunt", 60)

		ml, _ := runMatch(t, gs, passAgent{}, passAgent{})
		if ml.Winner != ResultDraw {
			t.Errorf("winner = %s, want %s", ml.Winner, ResultDraw)
		}
		if ml.Reason != EndTurnLimit {
			t.Errorf("reason = %s, want %s", ml.Reason, EndTurnLimit)
		}
	})
}

func TestManaRampAndRefill(t *testing.T) {
	catalog := standardCatalog()
	gs := newTestState(catalog)
	fillDeck(gs, 0, "grunt", 60)

	for i := 1; i <= 12; i++ {
		if result, over := StartTurn(gs); over {
			t.Fatalf("game over at turn %d: %s", i, result)
		}
		p := gs.Active()
		want := i
		if want > ManaCap {
			want = ManaCap
		}
		if p.ManaMax != want {
			t.Errorf("turn %d: mana max = %d, want %d", i, p.ManaMax, want)
		}
		if p.Mana != p.ManaMax {
			t.Errorf("turn %d: mana = %d, want refill to %d", i, p.Mana, p.ManaMax)
		}
		p.Mana = 0 // spend everything; the next upkeep must refill
	}
}

func TestSummoningSickness(t *testing.T) {
	catalog := standardCatalog()
	gs := newTestState(catalog)
	fillDeck(gs, 0, "grunt", 10)
	gs.Players[0].Hand = []string{"knight"}
	gs.Players[0].Mana = 2
	gs.Players[0].ManaMax = 2

	if err := Apply(gs, Action{Type: ActionPlayCard, HandIndex: 0}); err != nil {
		t.Fatalf("play: %v", err)
	}
	for _, a := range LegalActions(gs) {
		if a.Type == ActionGoToCombat {
			t.Fatal("unit can attack on the turn it was played")
		}
	}

	// The unit wakes at its owner's next upkeep.
	if _, over := StartTurn(gs); over {
		t.Fatal("unexpected game end")
	}
	found := false
	for _, a := range LegalActions(gs) {
		if a.Type == ActionGoToCombat {
			found = true
		}
	}
	if !found {
		t.Fatal("unit still cannot attack after upkeep")
	}
}
