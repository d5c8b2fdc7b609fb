// Package replay records matches as JSON Lines and renders them back as
// human-readable transcripts.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/touatautology/card-battle-engine/internal/game"
)

// UnitSnapshot is a unit as it stood at record time.
type UnitSnapshot struct {
	UID       int    `json:"uid"`
	CardID    string `json:"card_id"`
	Atk       int    `json:"atk"`
	HP        int    `json:"hp"`
	CanAttack bool   `json:"can_attack"`
}

// PlayerSnapshot captures the visible half of a player's state.
type PlayerSnapshot struct {
	HP       int            `json:"hp"`
	Mana     int            `json:"mana"`
	ManaMax  int            `json:"mana_max"`
	HandSize int            `json:"hand_size"`
	DeckSize int            `json:"deck_size"`
	Board    []UnitSnapshot `json:"board"`
}

// Record is one replay event. Type discriminates which optional fields are
// populated.
type Record struct {
	Type    string   `json:"type"`
	Turn    int      `json:"turn,omitempty"`
	Player  int      `json:"player"`
	Card    string   `json:"card,omitempty"`
	N       int      `json:"n,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Result  string   `json:"result,omitempty"`
	Seed    int64    `json:"seed,omitempty"`
	DeckIDs []string `json:"deck_ids,omitempty"`

	Attackers []int            `json:"attackers,omitempty"`
	Blocks    map[string]int   `json:"blocks,omitempty"`
	Combat    *CombatSnapshot  `json:"combat,omitempty"`
	Players   []PlayerSnapshot `json:"players,omitempty"`
}

// CombatSnapshot mirrors the engine's combat report.
type CombatSnapshot struct {
	AttackerSeat       int `json:"attacker_seat"`
	UnblockedAttackers int `json:"unblocked_attackers"`
	UnblockedDamage    int `json:"unblocked_damage"`
	Trades             int `json:"trades"`
	AttackerDeaths     int `json:"attacker_deaths"`
	DefenderDeaths     int `json:"defender_deaths"`
	PlayerDamage       int `json:"player_damage"`
}

// Writer streams replay records to w as it observes a match. Write errors are
// sticky; check Err after the match.
type Writer struct {
	game.NopObserver

	enc *json.Encoder
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Err reports the first write error, if any.
func (rw *Writer) Err() error { return rw.err }

func (rw *Writer) emit(rec Record) {
	if rw.err != nil {
		return
	}
	rw.err = rw.enc.Encode(rec)
}

func snapshotPlayers(gs *game.GameState) []PlayerSnapshot {
	out := make([]PlayerSnapshot, 2)
	for i, p := range gs.Players {
		board := make([]UnitSnapshot, len(p.Board))
		for j, u := range p.Board {
			board[j] = UnitSnapshot{
				UID:       u.UID,
				CardID:    u.CardID,
				Atk:       u.Atk,
				HP:        u.HP,
				CanAttack: u.CanAttack,
			}
		}
		out[i] = PlayerSnapshot{
			HP:       p.HP,
			Mana:     p.Mana,
			ManaMax:  p.ManaMax,
			HandSize: len(p.Hand),
			DeckSize: len(p.Deck),
			Board:    board,
		}
	}
	return out
}

func (rw *Writer) GameStart(gs *game.GameState) {
	rw.emit(Record{
		Type:    "game_start",
		Player:  gs.ActivePlayer,
		Seed:    gs.Seed,
		DeckIDs: gs.DeckIDs[:],
		Players: snapshotPlayers(gs),
	})
}

func (rw *Writer) TurnStart(gs *game.GameState, player int) {
	rw.emit(Record{
		Type:    "turn_start",
		Turn:    gs.Turn,
		Player:  player,
		Players: snapshotPlayers(gs),
	})
}

func (rw *Writer) CardPlayed(gs *game.GameState, player int, card *game.Card) {
	rw.emit(Record{Type: "play_card", Turn: gs.Turn, Player: player, Card: card.ID})
}

func (rw *Writer) CardsDrawn(gs *game.GameState, player, n int, reason game.DrawReason) {
	rw.emit(Record{Type: "draw", Turn: gs.Turn, Player: player, N: n, Reason: string(reason)})
}

func (rw *Writer) AttackDeclared(gs *game.GameState, player int, attackers []int) {
	rw.emit(Record{Type: "declare_attack", Turn: gs.Turn, Player: player, Attackers: attackers})
}

func (rw *Writer) BlockDeclared(gs *game.GameState, player int, pairs []game.BlockPair) {
	blocks := make(map[string]int, len(pairs))
	for _, p := range pairs {
		blocks[fmt.Sprintf("%d", p.Blocker)] = p.Attacker
	}
	rw.emit(Record{Type: "declare_block", Turn: gs.Turn, Player: player, Blocks: blocks})
}

func (rw *Writer) CombatResolved(gs *game.GameState, r game.CombatReport) {
	rw.emit(Record{
		Type:   "combat_resolve",
		Turn:   gs.Turn,
		Player: r.AttackerSeat,
		Combat: &CombatSnapshot{
			AttackerSeat:       r.AttackerSeat,
			UnblockedAttackers: r.UnblockedAttackers,
			UnblockedDamage:    r.UnblockedDamage,
			Trades:             r.Trades,
			AttackerDeaths:     r.AttackerDeaths,
			DefenderDeaths:     r.DefenderDeaths,
			PlayerDamage:       r.PlayerDamage,
		},
		Players: snapshotPlayers(gs),
	})
}

func (rw *Writer) TurnEnd(gs *game.GameState, player int) {
	rw.emit(Record{Type: "turn_end", Turn: gs.Turn, Player: player})
}

func (rw *Writer) GameEnd(gs *game.GameState, result game.GameResult, reason game.EndReason) {
	rw.emit(Record{
		Type:    "game_end",
		Turn:    gs.Turn,
		Player:  gs.ActivePlayer,
		Result:  result.String(),
		Reason:  string(reason),
		Players: snapshotPlayers(gs),
	})
}

// Read parses a JSONL replay stream back into records.
func Read(r io.Reader) ([]Record, error) {
	var recs []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return recs, nil
}

// Render writes a textual transcript of recs to w. Turns outside
// [fromTurn, toTurn] are skipped; zero bounds mean unbounded.
func Render(w io.Writer, recs []Record, fromTurn, toTurn int) error {
	inRange := func(turn int) bool {
		if fromTurn > 0 && turn < fromTurn {
			return false
		}
		if toTurn > 0 && turn > toTurn {
			return false
		}
		return true
	}
	for _, rec := range recs {
		if rec.Type != "game_start" && rec.Type != "game_end" && !inRange(rec.Turn) {
			continue
		}
		if _, err := fmt.Fprintln(w, formatRecord(rec)); err != nil {
			return err
		}
	}
	return nil
}

func formatRecord(rec Record) string {
	switch rec.Type {
	case "game_start":
		return fmt.Sprintf("=== game start: seed=%d decks=%s first=P%d",
			rec.Seed, strings.Join(rec.DeckIDs, " vs "), rec.Player)
	case "turn_start":
		line := fmt.Sprintf("--- turn %d: P%d", rec.Turn, rec.Player)
		if len(rec.Players) == 2 {
			line += fmt.Sprintf(" (HP %d/%d, mana %d/%d)",
				rec.Players[0].HP, rec.Players[1].HP,
				rec.Players[rec.Player].Mana, rec.Players[rec.Player].ManaMax)
		}
		return line
	case "play_card":
		return fmt.Sprintf("    P%d plays %s", rec.Player, rec.Card)
	case "draw":
		return fmt.Sprintf("    P%d draws %d (%s)", rec.Player, rec.N, rec.Reason)
	case "declare_attack":
		return fmt.Sprintf("    P%d attacks with %d unit(s)", rec.Player, len(rec.Attackers))
	case "declare_block":
		return fmt.Sprintf("    P%d blocks %d attacker(s)", rec.Player, len(rec.Blocks))
	case "combat_resolve":
		c := rec.Combat
		if c == nil {
			return "    combat resolves"
		}
		return fmt.Sprintf("    combat: %d dmg to player, %d trades, deaths %d/%d",
			c.PlayerDamage, c.Trades, c.AttackerDeaths, c.DefenderDeaths)
	case "turn_end":
		return fmt.Sprintf("    P%d ends turn", rec.Player)
	case "game_end":
		line := fmt.Sprintf("=== game end: %s (%s) after %d turns", rec.Result, rec.Reason, rec.Turn)
		if len(rec.Players) == 2 {
			line += fmt.Sprintf(", HP %d/%d", rec.Players[0].HP, rec.Players[1].HP)
		}
		return line
	}
	return fmt.Sprintf("    ? %s", rec.Type)
}
