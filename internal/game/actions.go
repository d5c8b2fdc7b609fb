package game

import (
	"fmt"
	"sort"
	"strings"
)

// BoardLimit caps how many units a player may have in play; enforced at the
// point a unit is about to be added.
const BoardLimit = 7

// --- Action types ---

type ActionType int

const (
	ActionPlayCard ActionType = iota
	ActionGoToCombat
	ActionDeclareAttack
	ActionDeclareBlock
	ActionEndTurn
)

func (a ActionType) String() string {
	switch a {
	case ActionPlayCard:
		return "PlayCard"
	case ActionGoToCombat:
		return "GoToCombat"
	case ActionDeclareAttack:
		return "DeclareAttack"
	case ActionDeclareBlock:
		return "DeclareBlock"
	case ActionEndTurn:
		return "EndTurn"
	default:
		return "Unknown"
	}
}

// Action is one move in the closed move set. Only the fields relevant to the
// type are populated.
type Action struct {
	Type      ActionType
	HandIndex int         // PlayCard
	Attackers []int       // DeclareAttack; empty = cancel combat
	Blocks    []BlockPair // DeclareBlock
}

func (a Action) String() string {
	switch a.Type {
	case ActionPlayCard:
		return fmt.Sprintf("PlayCard(%d)", a.HandIndex)
	case ActionDeclareAttack:
		parts := make([]string, len(a.Attackers))
		for i, uid := range a.Attackers {
			parts[i] = fmt.Sprintf("%d", uid)
		}
		return fmt.Sprintf("DeclareAttack(%s)", strings.Join(parts, ","))
	case ActionDeclareBlock:
		parts := make([]string, len(a.Blocks))
		for i, p := range a.Blocks {
			parts[i] = fmt.Sprintf("%d>%d", p.Blocker, p.Attacker)
		}
		return fmt.Sprintf("DeclareBlock(%s)", strings.Join(parts, ","))
	default:
		return a.Type.String()
	}
}

// --- Legal action generation ---

// LegalActions returns the ordered, deduplicated list of actions legal in the
// current phase. Generation order is stable for a given state so that agents
// and tests observing "action index N" behave reproducibly.
func LegalActions(gs *GameState) []Action {
	switch gs.Phase {
	case PhaseMain:
		return mainActions(gs)
	case PhaseCombatAttack:
		return attackCandidates(gs)
	case PhaseCombatBlock:
		return blockCandidates(gs)
	default:
		return []Action{{Type: ActionEndTurn}}
	}
}

func mainActions(gs *GameState) []Action {
	var actions []Action
	p := gs.Active()

	for i, cardID := range p.Hand {
		card := gs.Card(cardID)
		if card.Cost > p.Mana {
			continue
		}
		if card.IsUnit() && len(p.Board) >= BoardLimit {
			continue
		}
		actions = append(actions, Action{Type: ActionPlayCard, HandIndex: i})
	}

	for _, u := range p.Board {
		if u.CanAttack {
			actions = append(actions, Action{Type: ActionGoToCombat})
			break
		}
	}

	// EndTurn is always present and always last.
	actions = append(actions, Action{Type: ActionEndTurn})
	return actions
}

// attackCandidates generates a bounded DeclareAttack candidate set rather
// than the full power set, to keep branching tractable for search-based
// agents: the empty attack (cancel), everything, each single unit, and each
// all-but-one combination. Candidates are deduplicated by their sorted
// attacker-UID tuple.
func attackCandidates(gs *GameState) []Action {
	p := gs.Active()
	var attackable []int
	for _, u := range p.Board {
		if u.CanAttack {
			attackable = append(attackable, u.UID)
		}
	}

	var candidates []Action
	seen := map[string]bool{}
	add := func(uids []int) {
		key := uidKey(uids)
		if !seen[key] {
			seen[key] = true
			candidates = append(candidates, Action{Type: ActionDeclareAttack, Attackers: sortedInts(uids)})
		}
	}

	add(nil)

	if len(attackable) > 0 {
		add(attackable)
		for _, uid := range attackable {
			add([]int{uid})
		}
		if len(attackable) > 1 {
			for _, uid := range attackable {
				var remaining []int
				for _, other := range attackable {
					if other != uid {
						remaining = append(remaining, other)
					}
				}
				add(remaining)
			}
		}
	}

	return candidates
}

// blockCandidates generates a bounded DeclareBlock candidate set for the
// defender: no block, a heuristic greedy assignment, a maximum-cardinality
// 1:1 assignment, and a single block of the strongest attacker per blocker.
// All pools are deduplicated by their sorted pair set.
func blockCandidates(gs *GameState) []Action {
	if gs.Combat == nil {
		panic("blockCandidates: no combat in progress")
	}
	attackerUIDs := gs.Combat.Attackers
	blockers := gs.Opponent().Board

	var candidates []Action
	seen := map[string]bool{}
	add := func(pairs []BlockPair) {
		key := pairKey(pairs)
		if !seen[key] {
			seen[key] = true
			candidates = append(candidates, Action{Type: ActionDeclareBlock, Blocks: pairs})
		}
	}

	add(nil)

	if len(blockers) == 0 || len(attackerUIDs) == 0 {
		return candidates
	}

	active := gs.Active()
	attackerOf := func(uid int) *UnitInstance { return active.FindUnit(uid) }

	// Attackers by attack power descending; missing attackers sort as 0.
	sortedAttackers := append([]int(nil), attackerUIDs...)
	sort.SliceStable(sortedAttackers, func(i, j int) bool {
		ai, aj := 0, 0
		if u := attackerOf(sortedAttackers[i]); u != nil {
			ai = u.Atk
		}
		if u := attackerOf(sortedAttackers[j]); u != nil {
			aj = u.Atk
		}
		return ai > aj
	})

	// Greedy: for each attacker, the available blocker with the best score;
	// only strictly positive scores are kept.
	var greedy []BlockPair
	usedGreedy := map[int]bool{}
	for _, aUID := range sortedAttackers {
		attacker := attackerOf(aUID)
		if attacker == nil {
			continue
		}
		var best *UnitInstance
		bestScore := -999.0
		for _, b := range blockers {
			if usedGreedy[b.UID] {
				continue
			}
			score := 0.0
			if b.Atk >= attacker.HP {
				score += 10.0 // blocker can kill the attacker
			}
			if b.HP > attacker.Atk {
				score += 5.0 // blocker survives
			}
			score += float64(b.Atk) * 0.1
			if score > bestScore {
				bestScore = score
				best = b
			}
		}
		if best != nil && bestScore > 0 {
			greedy = append(greedy, BlockPair{Blocker: best.UID, Attacker: aUID})
			usedGreedy[best.UID] = true
		}
	}
	if len(greedy) > 0 {
		add(greedy)
	}

	// Max block: first available blocker per attacker, left to right.
	var maxPairs []BlockPair
	usedMax := map[int]bool{}
	for _, aUID := range attackerUIDs {
		for _, b := range blockers {
			if !usedMax[b.UID] {
				maxPairs = append(maxPairs, BlockPair{Blocker: b.UID, Attacker: aUID})
				usedMax[b.UID] = true
				break
			}
		}
	}
	if len(maxPairs) > 0 {
		add(maxPairs)
	}

	// Single blocks: each blocker alone against the strongest attacker.
	for _, b := range blockers {
		add([]BlockPair{{Blocker: b.UID, Attacker: sortedAttackers[0]}})
	}

	return candidates
}

// --- Action application ---

// Apply mutates the game state with a legal action. It does not re-validate
// that the action came from LegalActions; errors indicate protocol
// violations by the driver or agent and should abort the match.
func Apply(gs *GameState, action Action) error {
	switch action.Type {
	case ActionPlayCard:
		return applyPlayCard(gs, action.HandIndex)
	case ActionGoToCombat:
		gs.Phase = PhaseCombatAttack
		gs.Combat = &CombatState{Blocks: map[int]int{}}
		return nil
	case ActionDeclareAttack:
		return applyDeclareAttack(gs, action.Attackers)
	case ActionDeclareBlock:
		return applyDeclareBlock(gs, action.Blocks)
	case ActionEndTurn:
		// ending the main-phase loop and advancing the turn is the
		// driver's job, not this layer's
		return nil
	default:
		return fmt.Errorf("unknown action type: %d", action.Type)
	}
}

func applyPlayCard(gs *GameState, handIndex int) error {
	p := gs.Active()
	if handIndex < 0 || handIndex >= len(p.Hand) {
		return fmt.Errorf("play card: hand index %d out of range (hand size %d)", handIndex, len(p.Hand))
	}
	cardID := p.Hand[handIndex]
	p.Hand = append(p.Hand[:handIndex], p.Hand[handIndex+1:]...)
	card := gs.Card(cardID)
	p.Mana -= card.Cost

	// Placement (or discard) happens before effect resolution so effects can
	// see the just-played card.
	if card.IsUnit() {
		unit := &UnitInstance{
			UID:       gs.AllocUID(),
			CardID:    cardID,
			Atk:       card.Unit.Atk,
			HP:        card.Unit.HP,
			CanAttack: false,
		}
		p.Board = append(p.Board, unit)
	} else {
		p.Graveyard = append(p.Graveyard, cardID)
	}
	if err := gs.resolver.Resolve(gs, gs.ActivePlayer, card.Template, card.Params); err != nil {
		return fmt.Errorf("play %s: %w", cardID, err)
	}
	gs.notifyCardPlayed(gs.ActivePlayer, card)
	return nil
}

func applyDeclareAttack(gs *GameState, attackers []int) error {
	if gs.Combat == nil {
		return fmt.Errorf("declare attack: no combat in progress")
	}
	gs.notifyAttackDeclared(gs.ActivePlayer, attackers)
	if len(attackers) == 0 {
		// Cancel combat, back to main.
		gs.Combat = nil
		gs.Phase = PhaseMain
		return nil
	}
	gs.Combat.Attackers = append([]int(nil), attackers...)
	gs.Phase = PhaseCombatBlock
	return nil
}

func applyDeclareBlock(gs *GameState, pairs []BlockPair) error {
	if gs.Combat == nil {
		return fmt.Errorf("declare block: no combat in progress")
	}
	blocks := make(map[int]int, len(pairs))
	seenBlockers := make(map[int]bool, len(pairs))
	for _, pr := range pairs {
		if seenBlockers[pr.Blocker] {
			return fmt.Errorf("declare block: blocker %d assigned to more than one attacker", pr.Blocker)
		}
		seenBlockers[pr.Blocker] = true
		blocks[pr.Attacker] = pr.Blocker
	}
	gs.Combat.Blocks = blocks
	gs.notifyBlockDeclared(gs.OpponentIndex(), pairs)
	// The transition to resolution is the driver's responsibility.
	return nil
}
