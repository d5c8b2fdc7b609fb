package game

import (
	"fmt"
	"sort"
	"strings"
)

// --- Enums ---

type Phase int

const (
	PhaseMain Phase = iota
	PhaseCombatAttack
	PhaseCombatBlock
	PhaseEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseMain:
		return "main"
	case PhaseCombatAttack:
		return "combat_attack"
	case PhaseCombatBlock:
		return "combat_block"
	case PhaseEnd:
		return "end"
	default:
		return "unknown"
	}
}

type Kind int

const (
	KindUnit Kind = iota
	KindSpell
)

func (k Kind) String() string {
	if k == KindUnit {
		return "unit"
	}
	return "spell"
}

// GameResult is the terminal outcome of a match. ResultNone means the game
// is still in progress.
type GameResult int

const (
	ResultNone GameResult = iota
	ResultPlayer0Win
	ResultPlayer1Win
	ResultDraw
)

func (r GameResult) String() string {
	switch r {
	case ResultPlayer0Win:
		return "player_0_win"
	case ResultPlayer1Win:
		return "player_1_win"
	case ResultDraw:
		return "draw"
	default:
		return "none"
	}
}

// WinFor returns the result in which the given seat wins.
func WinFor(player int) GameResult {
	if player == 0 {
		return ResultPlayer0Win
	}
	return ResultPlayer1Win
}

// --- Card definition (static, from the catalog) ---

// Card is an immutable card definition. Identity is the ID; cards are never
// mutated after load.
type Card struct {
	ID       string
	Name     string
	Cost     int
	Kind     Kind
	Tags     []string
	Template Template
	Unit     *UnitStats   // required for units, nil for spells
	Params   EffectParams // template payload, validated at load time
	Rarity   string
}

func (c *Card) String() string {
	return c.Name
}

func (c *Card) IsUnit() bool {
	return c.Kind == KindUnit
}

// UnitStats is the printed attack/health of a unit card.
type UnitStats struct {
	Atk int
	HP  int
}

// Catalog maps card IDs to their definitions. Read-only once built.
type Catalog map[string]*Card

// --- Deck definition ---

type DeckEntry struct {
	CardID string
	Count  int
}

// DeckDef is an ordered deck list. Invariant: entry counts sum to DeckSize
// and every count is within [1, MaxCopies], enforced by the loader.
type DeckDef struct {
	ID      string
	Entries []DeckEntry
}

// CardList expands the deck into a flat card-ID list, entries in order.
func (d DeckDef) CardList() []string {
	var cards []string
	for _, e := range d.Entries {
		for i := 0; i < e.Count; i++ {
			cards = append(cards, e.CardID)
		}
	}
	return cards
}

// --- In-game instances ---

// UnitInstance is a unit in play. UIDs are allocated monotonically per game
// and never reused; a unit whose HP drops to 0 or below is removed from the
// board and never referenced again.
type UnitInstance struct {
	UID       int
	CardID    string
	Atk       int
	HP        int
	CanAttack bool // false on entry: summoning sickness
}

func (u *UnitInstance) String() string {
	return fmt.Sprintf("%s#%d (%d/%d)", u.CardID, u.UID, u.Atk, u.HP)
}

// PlayerState is one seat's entire mutable state.
type PlayerState struct {
	HP        int
	ManaMax   int
	Mana      int
	Deck      []string // card IDs, drawn from the front
	Hand      []string
	Board     []*UnitInstance
	Graveyard []string // append-only, death order
}

// FindUnit returns the board unit with the given UID, or nil.
func (p *PlayerState) FindUnit(uid int) *UnitInstance {
	for _, u := range p.Board {
		if u.UID == uid {
			return u
		}
	}
	return nil
}

// --- Combat state (ephemeral) ---

// BlockPair assigns one blocker to one attacker.
type BlockPair struct {
	Blocker  int
	Attacker int
}

// CombatState exists only during the combat_attack and combat_block phases
// and is destroyed when combat resolves or is cancelled.
type CombatState struct {
	Attackers []int       // declared order preserved
	Blocks    map[int]int // attacker UID -> blocker UID
}

// --- Game state ---

// GameState is the complete state of one match. It is created once per match,
// mutated exclusively through Apply, StartTurn, and ResolveCombat, and
// discarded when the match ends. The RNG is exclusively owned by this state;
// a given seed fully determines every random choice in the match.
type GameState struct {
	Turn         int // incremented at each start-of-turn upkeep
	ActivePlayer int // 0 or 1
	Players      [2]*PlayerState
	Phase        Phase
	Combat       *CombatState
	Result       GameResult

	Catalog Catalog
	Seed    int64
	DeckIDs [2]string

	resolver Resolver
	rng      *matchRNG
	nextUID  int

	observers []Observer
}

// OpponentIndex returns the seat index of the non-active player.
func (gs *GameState) OpponentIndex() int {
	return 1 - gs.ActivePlayer
}

// Active returns the active player's state.
func (gs *GameState) Active() *PlayerState {
	return gs.Players[gs.ActivePlayer]
}

// Opponent returns the non-active player's state.
func (gs *GameState) Opponent() *PlayerState {
	return gs.Players[gs.OpponentIndex()]
}

// AllocUID hands out the next unit UID.
func (gs *GameState) AllocUID() int {
	uid := gs.nextUID
	gs.nextUID++
	return uid
}

// Card looks up a card definition; the ID must exist in the catalog.
func (gs *GameState) Card(id string) *Card {
	c, ok := gs.Catalog[id]
	if !ok {
		panic(fmt.Sprintf("card not in catalog: %q", id))
	}
	return c
}

// Clone deep-copies the game state for agent lookahead. The clone shares the
// read-only catalog and resolver but carries no RNG and no observers: action
// application and combat resolution never draw randomness, and lookahead must
// not produce observable events.
func (gs *GameState) Clone() *GameState {
	cp := &GameState{
		Turn:         gs.Turn,
		ActivePlayer: gs.ActivePlayer,
		Phase:        gs.Phase,
		Result:       gs.Result,
		Catalog:      gs.Catalog,
		Seed:         gs.Seed,
		DeckIDs:      gs.DeckIDs,
		resolver:     gs.resolver,
		nextUID:      gs.nextUID,
	}
	for i, p := range gs.Players {
		np := &PlayerState{
			HP:        p.HP,
			ManaMax:   p.ManaMax,
			Mana:      p.Mana,
			Deck:      append([]string(nil), p.Deck...),
			Hand:      append([]string(nil), p.Hand...),
			Graveyard: append([]string(nil), p.Graveyard...),
		}
		for _, u := range p.Board {
			cu := *u
			np.Board = append(np.Board, &cu)
		}
		cp.Players[i] = np
	}
	if gs.Combat != nil {
		nc := &CombatState{
			Attackers: append([]int(nil), gs.Combat.Attackers...),
			Blocks:    make(map[int]int, len(gs.Combat.Blocks)),
		}
		for a, b := range gs.Combat.Blocks {
			nc.Blocks[a] = b
		}
		cp.Combat = nc
	}
	return cp
}

// --- Match log ---

// TraceEntry is one agent decision in the optional action trace.
type TraceEntry struct {
	Turn   int    `json:"turn"`
	Player int    `json:"player"`
	Action string `json:"action"`
}

// MatchLog is the immutable output of a completed match and the unit of
// exchange with every downstream consumer.
type MatchLog struct {
	Seed    int64
	DeckIDs [2]string
	Winner  GameResult
	Turns   int
	FinalHP [2]int
	Reason  EndReason
	Trace   []TraceEntry
}

// --- Small helpers shared by action generation ---

func sortedInts(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	return out
}

func uidKey(uids []int) string {
	s := sortedInts(uids)
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}

func pairKey(pairs []BlockPair) string {
	cp := append([]BlockPair(nil), pairs...)
	sort.Slice(cp, func(i, j int) bool {
		if cp[i].Blocker != cp[j].Blocker {
			return cp[i].Blocker < cp[j].Blocker
		}
		return cp[i].Attacker < cp[j].Attacker
	})
	parts := make([]string, len(cp))
	for i, p := range cp {
		parts[i] = fmt.Sprintf("%d>%d", p.Blocker, p.Attacker)
	}
	return strings.Join(parts, ",")
}
