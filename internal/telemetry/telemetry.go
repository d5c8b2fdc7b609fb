// Package telemetry collects per-match behavioral counters through the
// engine's observer hooks. Collectors only read state, so attaching one can
// never change a match outcome.
package telemetry

import "github.com/touatautology/card-battle-engine/internal/game"

// Match accumulates per-player counters over one match. All slices are
// indexed by seat [p0, p1].
type Match struct {
	game.NopObserver

	DamageToPlayer    [2]int
	CardsPlayed       [2]int
	UnitsSummoned     [2]int
	ManaSpent         [2]int
	ManaWasted        [2]int
	DrawnTotal        [2]int
	DrawnTurn         [2]int
	DrawnEffect       [2]int
	AttacksDeclared   [2]int
	AttackersTotal    [2]int
	BlocksDeclared    [2]int
	BlocksTotal       [2]int
	UnblockedAttacker [2]int
	UnblockedDamage   [2]int
	Trades            [2]int
	UnitsDied         [2]int
	UnitsDiedInCombat [2]int
	FatigueLoss       [2]bool

	// Total mana_max granted across turns, for the mana invariant:
	// spent + wasted == granted.
	TotalManaGranted [2]int

	turnManaSpent [2]int
	turnManaMax   [2]int
	turnOpen      [2]bool

	TotalTurns int
	Winner     game.GameResult
	Reason     game.EndReason
}

func NewMatch() *Match {
	return &Match{}
}

func (m *Match) TurnStart(gs *game.GameState, player int) {
	p := gs.Players[player]
	m.TotalManaGranted[player] += p.ManaMax
	m.turnManaSpent[player] = 0
	m.turnManaMax[player] = p.ManaMax
	m.turnOpen[player] = true
}

func (m *Match) CardPlayed(gs *game.GameState, player int, card *game.Card) {
	m.CardsPlayed[player]++
	m.ManaSpent[player] += card.Cost
	m.turnManaSpent[player] += card.Cost
	if card.IsUnit() {
		m.UnitsSummoned[player]++
	}
	switch card.Template {
	case game.TemplateDamagePlayer, game.TemplateOnPlayDamagePlayer:
		if p, ok := card.Params.(game.AmountParams); ok {
			m.DamageToPlayer[player] += p.Amount
		}
	}
}

func (m *Match) CardsDrawn(gs *game.GameState, player, n int, reason game.DrawReason) {
	m.DrawnTotal[player] += n
	switch reason {
	case game.DrawTurn:
		m.DrawnTurn[player] += n
	case game.DrawEffect:
		m.DrawnEffect[player] += n
	}
}

func (m *Match) AttackDeclared(gs *game.GameState, player int, attackers []int) {
	if len(attackers) > 0 {
		m.AttacksDeclared[player]++
		m.AttackersTotal[player] += len(attackers)
	}
}

func (m *Match) BlockDeclared(gs *game.GameState, player int, pairs []game.BlockPair) {
	if len(pairs) > 0 {
		m.BlocksDeclared[player]++
		m.BlocksTotal[player] += len(pairs)
	}
}

func (m *Match) CombatResolved(gs *game.GameState, r game.CombatReport) {
	m.UnblockedAttacker[r.AttackerSeat] += r.UnblockedAttackers
	m.UnblockedDamage[r.AttackerSeat] += r.UnblockedDamage
	m.Trades[r.AttackerSeat] += r.Trades
	m.UnitsDiedInCombat[r.AttackerSeat] += r.AttackerDeaths
	m.UnitsDiedInCombat[r.DefenderSeat] += r.DefenderDeaths
	m.UnitsDied[r.AttackerSeat] += r.AttackerDeaths
	m.UnitsDied[r.DefenderSeat] += r.DefenderDeaths
	m.DamageToPlayer[r.AttackerSeat] += r.PlayerDamage
}

func (m *Match) TurnEnd(gs *game.GameState, player int) {
	m.closeTurn(player)
}

func (m *Match) closeTurn(player int) {
	if !m.turnOpen[player] {
		return
	}
	m.turnOpen[player] = false
	if wasted := m.turnManaMax[player] - m.turnManaSpent[player]; wasted > 0 {
		m.ManaWasted[player] += wasted
	}
}

func (m *Match) GameEnd(gs *game.GameState, result game.GameResult, reason game.EndReason) {
	// A turn cut short by a terminal result never saw TurnEnd; settle its
	// mana accounting here so the invariant holds on the final turn too.
	m.closeTurn(0)
	m.closeTurn(1)

	m.TotalTurns = gs.Turn
	m.Winner = result
	m.Reason = reason
	if reason == game.EndDeckOut {
		// The loser is the player who could not draw.
		switch result {
		case game.ResultPlayer1Win:
			m.FatigueLoss[0] = true
		case game.ResultPlayer0Win:
			m.FatigueLoss[1] = true
		}
	}
}

// Summary flattens the counters into a string-keyed map with p0_/p1_
// prefixes, the exchange format for aggregation.
func (m *Match) Summary() map[string]float64 {
	s := map[string]float64{
		"total_turns": float64(m.TotalTurns),
	}
	perPlayer := map[string][2]int{
		"damage_to_player":     m.DamageToPlayer,
		"cards_played":         m.CardsPlayed,
		"units_summoned":       m.UnitsSummoned,
		"mana_spent":           m.ManaSpent,
		"mana_wasted":          m.ManaWasted,
		"drawn_total":          m.DrawnTotal,
		"drawn_turn":           m.DrawnTurn,
		"drawn_effect":         m.DrawnEffect,
		"attacks_declared":     m.AttacksDeclared,
		"attackers_total":      m.AttackersTotal,
		"blocks_declared":      m.BlocksDeclared,
		"blocks_total":         m.BlocksTotal,
		"unblocked_attackers":  m.UnblockedAttacker,
		"unblocked_damage":     m.UnblockedDamage,
		"trades":               m.Trades,
		"units_died":           m.UnitsDied,
		"units_died_in_combat": m.UnitsDiedInCombat,
		"total_mana_granted":   m.TotalManaGranted,
	}
	for name, vals := range perPlayer {
		s["p0_"+name] = float64(vals[0])
		s["p1_"+name] = float64(vals[1])
	}
	for pi := 0; pi < 2; pi++ {
		v := 0.0
		if m.FatigueLoss[pi] {
			v = 1.0
		}
		if pi == 0 {
			s["p0_fatigue_loss"] = v
		} else {
			s["p1_fatigue_loss"] = v
		}
	}
	return s
}
