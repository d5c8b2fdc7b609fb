package game

import "github.com/touatautology/card-battle-engine/internal/log"

// EventRecorder is an Observer that translates engine hook points into
// log.GameEvent records. It only reads state, so attaching one never
// changes a match outcome.
type EventRecorder struct {
	Logger log.EventLogger
}

func NewEventRecorder(logger log.EventLogger) *EventRecorder {
	return &EventRecorder{Logger: logger}
}

func (r *EventRecorder) GameStart(gs *GameState) {
	r.Logger.Log(log.NewGameStartEvent(gs.ActivePlayer, gs.DeckIDs))
}

func (r *EventRecorder) TurnStart(gs *GameState, player int) {
	p := gs.Players[player]
	r.Logger.Log(log.NewTurnStartEvent(gs.Turn, player, p.Mana, p.ManaMax))
}

func (r *EventRecorder) CardPlayed(gs *GameState, player int, card *Card) {
	r.Logger.Log(log.NewCardPlayedEvent(gs.Turn, player, card.ID, card.Cost, card.Kind.String()))
}

func (r *EventRecorder) CardsDrawn(gs *GameState, player, n int, reason DrawReason) {
	r.Logger.Log(log.NewCardsDrawnEvent(gs.Turn, player, n, string(reason)))
}

func (r *EventRecorder) AttackDeclared(gs *GameState, player int, attackers []int) {
	r.Logger.Log(log.NewAttackDeclaredEvent(gs.Turn, player, attackers))
}

func (r *EventRecorder) BlockDeclared(gs *GameState, player int, pairs []BlockPair) {
	r.Logger.Log(log.NewBlockDeclaredEvent(gs.Turn, player, len(pairs)))
}

func (r *EventRecorder) CombatResolved(gs *GameState, report CombatReport) {
	r.Logger.Log(log.NewCombatResolvedEvent(
		gs.Turn, report.AttackerSeat, report.PlayerDamage,
		report.Trades, report.AttackerDeaths, report.DefenderDeaths))
}

func (r *EventRecorder) TurnEnd(gs *GameState, player int) {
	r.Logger.Log(log.NewTurnEndEvent(gs.Turn, player))
}

func (r *EventRecorder) GameEnd(gs *GameState, result GameResult, reason EndReason) {
	finalHP := [2]int{gs.Players[0].HP, gs.Players[1].HP}
	r.Logger.Log(log.NewGameEndEvent(gs.Turn, result.String(), string(reason), finalHP))
}
