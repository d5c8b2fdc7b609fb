// Package agent provides the scripted decision policies that drive
// simulated matches: a one-ply greedy search, a cheap rule-based player, and
// a uniform-random player.
package agent

import (
	"math/rand"

	"github.com/touatautology/card-battle-engine/internal/game"
)

// Greedy picks the action whose one-ply lookahead scores best for the
// choosing seat. Combat-opening actions are followed through a no-block
// resolution so their value is visible at depth one.
type Greedy struct{}

func NewGreedy() *Greedy {
	return &Greedy{}
}

func evaluate(gs *game.GameState, player int) float64 {
	me := gs.Players[player]
	opp := gs.Players[1-player]

	if opp.HP <= 0 {
		return 1000.0
	}
	if me.HP <= 0 {
		return -1000.0
	}

	score := 0.0
	score += float64(game.StartingHP-opp.HP) * 3.0
	score -= float64(game.StartingHP-me.HP) * 2.0
	for _, u := range me.Board {
		score += float64(u.Atk)*1.5 + float64(u.HP)*0.5
	}
	for _, u := range opp.Board {
		score -= float64(u.Atk)*1.5 + float64(u.HP)*0.5
	}
	score += float64(len(me.Hand)) * 0.5
	return score
}

// lookaheadCombat plays out the combat a just-applied action opened, against
// a passive no-block opponent, so that attack values surface at depth one.
func lookaheadCombat(sim *game.GameState, action game.Action) {
	switch action.Type {
	case game.ActionGoToCombat:
		var attackable []int
		for _, u := range sim.Active().Board {
			if u.CanAttack {
				attackable = append(attackable, u.UID)
			}
		}
		if len(attackable) > 0 {
			_ = game.Apply(sim, game.Action{Type: game.ActionDeclareAttack, Attackers: attackable})
			_ = game.Apply(sim, game.Action{Type: game.ActionDeclareBlock})
			_ = game.ResolveCombat(sim)
		} else {
			_ = game.Apply(sim, game.Action{Type: game.ActionDeclareAttack})
		}
	case game.ActionDeclareAttack:
		if len(action.Attackers) > 0 {
			_ = game.Apply(sim, game.Action{Type: game.ActionDeclareBlock})
			_ = game.ResolveCombat(sim)
		}
	case game.ActionDeclareBlock:
		_ = game.ResolveCombat(sim)
	}
}

func (a *Greedy) ChooseAction(gs *game.GameState, legal []game.Action) game.Action {
	// In combat_block the defender is choosing, not the active player.
	player := gs.ActivePlayer
	if gs.Phase == game.PhaseCombatBlock {
		player = gs.OpponentIndex()
	}

	// Fall back to the phase's neutral action: EndTurn is generated last in
	// main, the empty declaration first in the combat phases.
	best := legal[len(legal)-1]
	if gs.Phase != game.PhaseMain {
		best = legal[0]
	}
	bestScore := evaluate(gs, player)

	for _, action := range legal {
		if action.Type == game.ActionEndTurn {
			continue
		}
		sim := gs.Clone()
		if err := game.Apply(sim, action); err != nil {
			continue
		}
		lookaheadCombat(sim, action)
		if score := evaluate(sim, player); score > bestScore {
			bestScore = score
			best = action
		}
	}
	return best
}

// Simple is a cheap rule-based player: play the first affordable card,
// attack with everything, and take the heuristic block when one is offered.
type Simple struct{}

func NewSimple() *Simple {
	return &Simple{}
}

func (a *Simple) ChooseAction(gs *game.GameState, legal []game.Action) game.Action {
	switch gs.Phase {
	case game.PhaseMain:
		for _, action := range legal {
			if action.Type == game.ActionPlayCard {
				return action
			}
		}
		for _, action := range legal {
			if action.Type == game.ActionGoToCombat {
				return action
			}
		}
	case game.PhaseCombatAttack:
		// The all-in attack is the widest candidate.
		best := legal[0]
		for _, action := range legal {
			if len(action.Attackers) > len(best.Attackers) {
				best = action
			}
		}
		return best
	case game.PhaseCombatBlock:
		// The heuristic greedy block is generated right after no-block.
		if len(legal) > 1 {
			return legal[1]
		}
	}
	return legal[len(legal)-1]
}

// Random picks uniformly from the legal actions using its own RNG; it never
// touches the match RNG, so attaching it cannot perturb game randomness.
type Random struct {
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (a *Random) ChooseAction(gs *game.GameState, legal []game.Action) game.Action {
	return legal[a.rng.Intn(len(legal))]
}
