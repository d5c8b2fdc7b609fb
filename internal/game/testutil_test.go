package game

import (
	"testing"

	"github.com/touatautology/card-battle-engine/internal/log"
)

// --- Catalog helpers ---

func vanillaUnit(id string, cost, atk, hp int) *Card {
	return &Card{
		ID:       id,
		Name:     id,
		Cost:     cost,
		Kind:     KindUnit,
		Template: TemplateVanilla,
		Unit:     &UnitStats{Atk: atk, HP: hp},
		Params:   NoParams{},
	}
}

func spellCard(id string, cost int, template Template, params EffectParams) *Card {
	return &Card{
		ID:       id,
		Name:     id,
		Cost:     cost,
		Kind:     KindSpell,
		Template: template,
		Params:   params,
	}
}

func testCatalog(cards ...*Card) Catalog {
	catalog := make(Catalog, len(cards))
	for _, c := range cards {
		catalog[c.ID] = c
	}
	return catalog
}

// monoDeck builds a deck of n copies of one card. Shuffling a mono deck is a
// no-op, which keeps scripted tests independent of the seed.
func monoDeck(deckID, cardID string, n int) DeckDef {
	return DeckDef{ID: deckID, Entries: []DeckEntry{{CardID: cardID, Count: n}}}
}

// newTestState builds a bare two-player state for unit tests that drive
// Apply, StartTurn, and ResolveCombat directly.
func newTestState(catalog Catalog) *GameState {
	return &GameState{
		Players: [2]*PlayerState{
			{HP: StartingHP},
			{HP: StartingHP},
		},
		Phase:    PhaseMain,
		Catalog:  catalog,
		resolver: DefaultResolver(),
		nextUID:  1,
	}
}

// putUnit places a unit on a player's board, bypassing play costs.
func putUnit(gs *GameState, player int, card *Card, canAttack bool) *UnitInstance {
	u := &UnitInstance{
		UID:       gs.AllocUID(),
		CardID:    card.ID,
		Atk:       card.Unit.Atk,
		HP:        card.Unit.HP,
		CanAttack: canAttack,
	}
	gs.Players[player].Board = append(gs.Players[player].Board, u)
	return u
}

func fillDeck(gs *GameState, player int, cardID string, n int) {
	for i := 0; i < n; i++ {
		gs.Players[player].Deck = append(gs.Players[player].Deck, cardID)
	}
}

// --- Scripted agent ---

type scriptStep struct {
	typ ActionType
	// PlayCard steps match by card ID.
	card string
	// DeclareAttack and DeclareBlock steps pick the widest candidate when
	// widest is set, otherwise the empty one.
	widest bool
}

// scriptedAgent consumes a fixed script; once exhausted it ends turns,
// cancels attacks, and declines blocks.
type scriptedAgent struct {
	t     *testing.T
	name  string
	steps []scriptStep
	pos   int
}

func newScriptedAgent(t *testing.T, name string) *scriptedAgent {
	return &scriptedAgent{t: t, name: name}
}

func (a *scriptedAgent) AddPlay(cardID string) *scriptedAgent {
	a.steps = append(a.steps, scriptStep{typ: ActionPlayCard, card: cardID})
	return a
}

func (a *scriptedAgent) AddCombat() *scriptedAgent {
	a.steps = append(a.steps, scriptStep{typ: ActionGoToCombat})
	return a
}

func (a *scriptedAgent) AddAttackAll() *scriptedAgent {
	a.steps = append(a.steps, scriptStep{typ: ActionDeclareAttack, widest: true})
	return a
}

func (a *scriptedAgent) AddBlockMax() *scriptedAgent {
	a.steps = append(a.steps, scriptStep{typ: ActionDeclareBlock, widest: true})
	return a
}

func (a *scriptedAgent) AddBlockNone() *scriptedAgent {
	a.steps = append(a.steps, scriptStep{typ: ActionDeclareBlock})
	return a
}

func (a *scriptedAgent) AddEndTurn() *scriptedAgent {
	a.steps = append(a.steps, scriptStep{typ: ActionEndTurn})
	return a
}

func defaultAction(gs *GameState, legal []Action) Action {
	for _, act := range legal {
		if act.Type == ActionEndTurn {
			return act
		}
	}
	// Combat phases: the empty declaration is generated first.
	return legal[0]
}

func (a *scriptedAgent) ChooseAction(gs *GameState, legal []Action) Action {
	if a.pos >= len(a.steps) {
		return defaultAction(gs, legal)
	}
	step := a.steps[a.pos]

	var match *Action
	switch step.typ {
	case ActionPlayCard:
		for i := range legal {
			act := legal[i]
			if act.Type != ActionPlayCard {
				continue
			}
			if gs.Active().Hand[act.HandIndex] == step.card {
				match = &act
				break
			}
		}
	case ActionDeclareAttack:
		for i := range legal {
			act := legal[i]
			if act.Type != ActionDeclareAttack {
				continue
			}
			if !step.widest && len(act.Attackers) == 0 {
				match = &act
				break
			}
			if step.widest && (match == nil || len(act.Attackers) > len(match.Attackers)) {
				m := act
				match = &m
			}
		}
	case ActionDeclareBlock:
		for i := range legal {
			act := legal[i]
			if act.Type != ActionDeclareBlock {
				continue
			}
			if !step.widest && len(act.Blocks) == 0 {
				match = &act
				break
			}
			if step.widest && (match == nil || len(act.Blocks) > len(match.Blocks)) {
				m := act
				match = &m
			}
		}
	default:
		for i := range legal {
			if legal[i].Type == step.typ {
				match = &legal[i]
				break
			}
		}
	}

	if match == nil {
		// Scripts run against a known state; a step with no matching legal
		// action is a broken test, not a game situation.
		a.t.Fatalf("%s: step %d (%s %q) has no matching legal action in %v",
			a.name, a.pos, step.typ, step.card, legal)
		return defaultAction(gs, legal)
	}
	a.pos++
	return *match
}

// passAgent always takes the default action.
type passAgent struct{}

func (passAgent) ChooseAction(gs *GameState, legal []Action) Action {
	return defaultAction(gs, legal)
}

// runMatch drives a game to completion with an attached memory logger.
func runMatch(t *testing.T, gs *GameState, a0, a1 Agent) (*MatchLog, *log.MemoryLogger) {
	t.Helper()
	logger := log.NewMemoryLogger()
	gs.Attach(NewEventRecorder(logger))
	ml, err := Run(gs, [2]Agent{a0, a1}, true)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	return ml, logger
}
