package game

const (
	// StartingHP is each player's starting (and heal-capped) hit points.
	StartingHP = 20
	// ManaCap bounds per-turn mana growth.
	ManaCap = 10
	// InitialHandSize is drawn at game start before the first turn.
	InitialHandSize = 5
	// MaxTurns caps run length; at the cap the higher-HP player wins.
	MaxTurns = 50
)

// Agent picks one action from the legal-action list. The returned action
// must be an element of the list; the engine does not re-validate
// membership, so a violating agent is a caller bug.
type Agent interface {
	ChooseAction(gs *GameState, legal []Action) Action
}

// NewGame builds the initial state for one match: seeded RNG, shuffled
// decks, random first seat, and five-card opening hands. Each match gets a
// freshly seeded RNG; states are never reused across matches.
func NewGame(catalog Catalog, resolver Resolver, deckA, deckB DeckDef, seed int64) *GameState {
	rng := newMatchRNG(seed)

	listA := deckA.CardList()
	listB := deckB.CardList()
	rng.shuffleStrings(listA)
	rng.shuffleStrings(listB)

	gs := &GameState{
		Turn:    0,
		Players: [2]*PlayerState{{HP: StartingHP, Deck: listA}, {HP: StartingHP, Deck: listB}},
		Phase:   PhaseMain,
		Catalog: catalog,
		Seed:    seed,
		DeckIDs: [2]string{deckA.ID, deckB.ID},

		resolver: resolver,
		rng:      rng,
		nextUID:  1,
	}

	// First seat is random, not always 0; this matters when attributing
	// outcomes in batch evaluation.
	gs.ActivePlayer = rng.intn(2)

	for pi := 0; pi < 2; pi++ {
		for i := 0; i < InitialHandSize; i++ {
			gs.drawOne(pi)
		}
	}

	return gs
}

// drawOne moves the top deck card to the player's hand. Returns false if the
// deck is empty. Observer notification is the caller's concern so that turn
// draws and effect draws carry the right reason tag.
func (gs *GameState) drawOne(player int) bool {
	p := gs.Players[player]
	if len(p.Deck) == 0 {
		return false
	}
	p.Hand = append(p.Hand, p.Deck[0])
	p.Deck = p.Deck[1:]
	return true
}

// checkWinner inspects both players' HP. Both dead is a draw.
func checkWinner(gs *GameState) GameResult {
	p0Dead := gs.Players[0].HP <= 0
	p1Dead := gs.Players[1].HP <= 0
	switch {
	case p0Dead && p1Dead:
		return ResultDraw
	case p0Dead:
		return ResultPlayer1Win
	case p1Dead:
		return ResultPlayer0Win
	default:
		return ResultNone
	}
}

// StartTurn runs start-of-turn upkeep for the active player: advance the
// turn counter, reset phase and combat, grow and refill mana, draw one card,
// and clear summoning sickness. An empty deck at the draw is an immediate
// loss for the active player, short-circuiting the rest of upkeep. Returns
// the terminal result if the game ended here.
func StartTurn(gs *GameState) (GameResult, bool) {
	gs.Turn++
	gs.Phase = PhaseMain
	gs.Combat = nil
	p := gs.Active()

	if p.ManaMax < ManaCap {
		p.ManaMax++
	}
	p.Mana = p.ManaMax
	gs.notifyTurnStart(gs.ActivePlayer)

	if !gs.drawOne(gs.ActivePlayer) {
		return WinFor(gs.OpponentIndex()), true
	}
	gs.notifyCardsDrawn(gs.ActivePlayer, 1, DrawTurn)

	for _, u := range p.Board {
		u.CanAttack = true
	}
	return ResultNone, false
}

// Run drives a match to completion and returns its MatchLog. The loop is
// strictly single-threaded: legal-action generation, the agent's choice, and
// apply/resolve form one sequential pipeline with no suspension points.
func Run(gs *GameState, agents [2]Agent, trace bool) (*MatchLog, error) {
	var playTrace []TraceEntry
	record := func(player int, action Action) {
		if trace {
			playTrace = append(playTrace, TraceEntry{Turn: gs.Turn, Player: player, Action: action.String()})
		}
	}

	reason := EndNormal
	gs.notifyGameStart()

	for gs.Result == ResultNone {
		// Turn limit takes precedence over playing the next turn: higher
		// HP wins, equal HP is a draw.
		if gs.Turn >= MaxTurns {
			hp0, hp1 := gs.Players[0].HP, gs.Players[1].HP
			switch {
			case hp0 > hp1:
				gs.Result = ResultPlayer0Win
			case hp1 > hp0:
				gs.Result = ResultPlayer1Win
			default:
				gs.Result = ResultDraw
			}
			reason = EndTurnLimit
			break
		}

		if result, over := StartTurn(gs); over {
			gs.Result = result
			reason = EndDeckOut
			break
		}

		// Main phase: the active player acts until ending the turn or
		// entering combat.
		for gs.Phase == PhaseMain && gs.Result == ResultNone {
			legal := LegalActions(gs)
			action := agents[gs.ActivePlayer].ChooseAction(gs, legal)
			record(gs.ActivePlayer, action)

			if action.Type == ActionEndTurn {
				gs.Phase = PhaseEnd
				break
			}
			if err := Apply(gs, action); err != nil {
				return nil, err
			}
			if gs.Phase != PhaseMain {
				break // entered combat
			}
			if result := checkWinner(gs); result != ResultNone {
				gs.Result = result
			}
		}

		// Combat attack phase: active player declares.
		if gs.Phase == PhaseCombatAttack && gs.Result == ResultNone {
			legal := LegalActions(gs)
			action := agents[gs.ActivePlayer].ChooseAction(gs, legal)
			record(gs.ActivePlayer, action)
			if err := Apply(gs, action); err != nil {
				return nil, err
			}
			// An empty declaration cancelled combat back to main.
		}

		// Combat block phase: the defender declares, then combat resolves.
		if gs.Phase == PhaseCombatBlock && gs.Result == ResultNone {
			legal := LegalActions(gs)
			defender := gs.OpponentIndex()
			action := agents[defender].ChooseAction(gs, legal)
			record(defender, action)
			if err := Apply(gs, action); err != nil {
				return nil, err
			}
			if err := ResolveCombat(gs); err != nil {
				return nil, err
			}
			if result := checkWinner(gs); result != ResultNone {
				gs.Result = result
			}
			gs.Phase = PhaseEnd
		}

		if gs.Phase == PhaseEnd || gs.Phase == PhaseMain {
			// main happens when combat was cancelled
			gs.notifyTurnEnd(gs.ActivePlayer)
			gs.ActivePlayer = 1 - gs.ActivePlayer
		}
	}

	gs.notifyGameEnd(gs.Result, reason)

	return &MatchLog{
		Seed:    gs.Seed,
		DeckIDs: gs.DeckIDs,
		Winner:  gs.Result,
		Turns:   gs.Turn,
		FinalHP: [2]int{gs.Players[0].HP, gs.Players[1].HP},
		Reason:  reason,
		Trace:   playTrace,
	}, nil
}
