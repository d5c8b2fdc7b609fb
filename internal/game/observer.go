package game

// DrawReason tags why cards were drawn.
type DrawReason string

const (
	DrawTurn   DrawReason = "turn_draw"
	DrawEffect DrawReason = "effect"
)

// EndReason tags how a match ended.
type EndReason string

const (
	EndNormal    EndReason = "normal"
	EndDeckOut   EndReason = "deckout"
	EndTurnLimit EndReason = "turn_limit"
)

// CombatReport is the structured breakdown handed to observers when a combat
// resolves.
type CombatReport struct {
	AttackerSeat       int
	DefenderSeat       int
	UnblockedAttackers int
	UnblockedDamage    int
	Trades             int
	AttackerDeaths     int
	DefenderDeaths     int
	PlayerDamage       int
}

// Observer receives read-only notifications at the engine's fixed hook
// points. Observers must never mutate state or drive decisions; attaching or
// detaching one cannot change the sequence of RNG draws or the outcome.
type Observer interface {
	GameStart(gs *GameState)
	TurnStart(gs *GameState, player int)
	CardPlayed(gs *GameState, player int, card *Card)
	CardsDrawn(gs *GameState, player int, n int, reason DrawReason)
	AttackDeclared(gs *GameState, player int, attackers []int)
	BlockDeclared(gs *GameState, player int, pairs []BlockPair)
	CombatResolved(gs *GameState, report CombatReport)
	TurnEnd(gs *GameState, player int)
	GameEnd(gs *GameState, result GameResult, reason EndReason)
}

// NopObserver implements Observer with no-ops; embed it to pick only the
// hooks you care about.
type NopObserver struct{}

func (NopObserver) GameStart(*GameState)                          {}
func (NopObserver) TurnStart(*GameState, int)                     {}
func (NopObserver) CardPlayed(*GameState, int, *Card)             {}
func (NopObserver) CardsDrawn(*GameState, int, int, DrawReason)   {}
func (NopObserver) AttackDeclared(*GameState, int, []int)         {}
func (NopObserver) BlockDeclared(*GameState, int, []BlockPair)    {}
func (NopObserver) CombatResolved(*GameState, CombatReport)       {}
func (NopObserver) TurnEnd(*GameState, int)                       {}
func (NopObserver) GameEnd(*GameState, GameResult, EndReason)     {}

// Attach registers an observer for the rest of the match.
func (gs *GameState) Attach(o Observer) {
	gs.observers = append(gs.observers, o)
}

func (gs *GameState) notifyGameStart() {
	for _, o := range gs.observers {
		o.GameStart(gs)
	}
}

func (gs *GameState) notifyTurnStart(player int) {
	for _, o := range gs.observers {
		o.TurnStart(gs, player)
	}
}

func (gs *GameState) notifyCardPlayed(player int, card *Card) {
	for _, o := range gs.observers {
		o.CardPlayed(gs, player, card)
	}
}

func (gs *GameState) notifyCardsDrawn(player, n int, reason DrawReason) {
	for _, o := range gs.observers {
		o.CardsDrawn(gs, player, n, reason)
	}
}

func (gs *GameState) notifyAttackDeclared(player int, attackers []int) {
	for _, o := range gs.observers {
		o.AttackDeclared(gs, player, attackers)
	}
}

func (gs *GameState) notifyBlockDeclared(player int, pairs []BlockPair) {
	for _, o := range gs.observers {
		o.BlockDeclared(gs, player, pairs)
	}
}

func (gs *GameState) notifyCombatResolved(report CombatReport) {
	for _, o := range gs.observers {
		o.CombatResolved(gs, report)
	}
}

func (gs *GameState) notifyTurnEnd(player int) {
	for _, o := range gs.observers {
		o.TurnEnd(gs, player)
	}
}

func (gs *GameState) notifyGameEnd(result GameResult, reason EndReason) {
	for _, o := range gs.observers {
		o.GameEnd(gs, result, reason)
	}
}
