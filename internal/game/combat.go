package game

import "fmt"

// ResolveCombat computes and applies combat damage for the declared attack.
// Damage is simultaneous: every amount is computed from pre-combat stats of
// all participants, then applied, then deaths are resolved; no unit's output
// changes because another unit died earlier in the same pass.
func ResolveCombat(gs *GameState) error {
	if gs.Combat == nil {
		return fmt.Errorf("resolve combat: no combat in progress")
	}
	attackers := gs.Combat.Attackers
	blocks := gs.Combat.Blocks

	attackerSeat := gs.ActivePlayer
	defenderSeat := gs.OpponentIndex()
	active := gs.Active()
	defender := gs.Opponent()

	// Buffer all damage before applying any of it.
	unitDamage := map[int]int{}
	playerDamage := 0
	unblockedCount := 0
	trades := 0

	for _, aUID := range attackers {
		attacker := active.FindUnit(aUID)
		if attacker == nil {
			continue // died to a spell earlier this turn; not an error
		}
		bUID, blocked := blocks[aUID]
		var blocker *UnitInstance
		if blocked {
			blocker = defender.FindUnit(bUID)
		}
		if blocker != nil {
			unitDamage[bUID] += attacker.Atk
			unitDamage[aUID] += blocker.Atk
			if blocker.Atk >= attacker.HP && attacker.Atk >= blocker.HP {
				trades++
			}
		} else {
			// Unblocked, or the assigned blocker no longer exists:
			// full attack goes to the defending player.
			playerDamage += attacker.Atk
			unblockedCount++
		}
	}

	defender.HP -= playerDamage

	for _, p := range []*PlayerState{active, defender} {
		for _, u := range p.Board {
			if dmg, ok := unitDamage[u.UID]; ok {
				u.HP -= dmg
			}
		}
	}

	// Deaths in board-iteration order, active player's board first.
	atkDeaths := removeDead(active)
	defDeaths := removeDead(defender)

	// Surviving attackers have now attacked this turn.
	for _, aUID := range attackers {
		if u := active.FindUnit(aUID); u != nil {
			u.CanAttack = false
		}
	}

	gs.Combat = nil

	gs.notifyCombatResolved(CombatReport{
		AttackerSeat:       attackerSeat,
		DefenderSeat:       defenderSeat,
		UnblockedAttackers: unblockedCount,
		UnblockedDamage:    playerDamage,
		Trades:             trades,
		AttackerDeaths:     atkDeaths,
		DefenderDeaths:     defDeaths,
		PlayerDamage:       playerDamage,
	})
	return nil
}

// removeDead clears units at or below zero HP from the board, appending each
// card ID to the owner's graveyard in board order.
func removeDead(p *PlayerState) int {
	deaths := 0
	kept := p.Board[:0]
	for _, u := range p.Board {
		if u.HP <= 0 {
			p.Graveyard = append(p.Graveyard, u.CardID)
			deaths++
		} else {
			kept = append(kept, u)
		}
	}
	p.Board = kept
	return deaths
}
