package log

import (
	"fmt"
	"io"
	"strings"
)

// EventLogger is the interface for recording match events.
type EventLogger interface {
	Log(event GameEvent)
	Events() []GameEvent
}

// --- MemoryLogger: stores events in memory for test assertions ---

type MemoryLogger struct {
	events []GameEvent
	seq    int
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(event GameEvent) {
	l.seq++
	event.Seq = l.seq
	l.events = append(l.events, event)
}

func (l *MemoryLogger) Events() []GameEvent {
	return l.events
}

// EventsOfType returns all events matching the given type.
func (l *MemoryLogger) EventsOfType(t EventType) []GameEvent {
	var result []GameEvent
	for _, e := range l.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or a zero event if none.
func (l *MemoryLogger) LastEvent() GameEvent {
	if len(l.events) == 0 {
		return GameEvent{}
	}
	return l.events[len(l.events)-1]
}

// --- TextLogger: writes human-readable lines to an io.Writer ---

type TextLogger struct {
	MemoryLogger
	w io.Writer
}

func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

func (l *TextLogger) Log(event GameEvent) {
	l.MemoryLogger.Log(event)
	fmt.Fprintln(l.w, FormatEvent(event))
}

// --- Formatting ---

func playerName(p int) string {
	if p < 0 {
		return "--"
	}
	return fmt.Sprintf("P%d", p)
}

// FormatEvent formats a single event as a human-readable line.
func FormatEvent(e GameEvent) string {
	return fmt.Sprintf("T%-3d %-15s %s", e.Turn, e.Type, e.Details)
}

// FormatAll formats all events as a multi-line string.
func FormatAll(events []GameEvent) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(FormatEvent(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- Helper constructors for the fixed hook points ---

func NewGameStartEvent(firstPlayer int, deckIDs [2]string) GameEvent {
	return GameEvent{
		Turn:    0,
		Player:  firstPlayer,
		Type:    EventGameStart,
		Details: fmt.Sprintf("%s vs %s, %s goes first", deckIDs[0], deckIDs[1], playerName(firstPlayer)),
	}
}

func NewTurnStartEvent(turn, player, mana, manaMax int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Player:  player,
		Type:    EventTurnStart,
		Details: fmt.Sprintf("=== Turn %d (%s) mana %d/%d ===", turn, playerName(player), mana, manaMax),
	}
}

func NewCardPlayedEvent(turn, player int, cardID string, cost int, kind string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Player:  player,
		Type:    EventCardPlayed,
		Card:    cardID,
		Details: fmt.Sprintf("%s plays %s (cost %d, %s)", playerName(player), cardID, cost, kind),
	}
}

func NewCardsDrawnEvent(turn, player, n int, reason string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Player:  player,
		Type:    EventCardsDrawn,
		Details: fmt.Sprintf("%s draws %d (%s)", playerName(player), n, reason),
	}
}

func NewAttackDeclaredEvent(turn, player int, attackers []int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Player:  player,
		Type:    EventAttackDeclared,
		Details: fmt.Sprintf("%s attacks with %d unit(s)", playerName(player), len(attackers)),
	}
}

func NewBlockDeclaredEvent(turn, player, pairs int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Player:  player,
		Type:    EventBlockDeclared,
		Details: fmt.Sprintf("%s declares %d block(s)", playerName(player), pairs),
	}
}

func NewCombatResolvedEvent(turn, attackerSeat, playerDamage, trades, atkDeaths, defDeaths int) GameEvent {
	return GameEvent{
		Turn:   turn,
		Player: attackerSeat,
		Type:   EventCombatResolved,
		Details: fmt.Sprintf("combat: %d player damage, %d trade(s), deaths %d/%d",
			playerDamage, trades, atkDeaths, defDeaths),
	}
}

func NewTurnEndEvent(turn, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Player:  player,
		Type:    EventTurnEnd,
		Details: fmt.Sprintf("%s ends turn %d", playerName(player), turn),
	}
}

func NewGameEndEvent(turn int, result, reason string, finalHP [2]int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Player:  -1,
		Type:    EventGameEnd,
		Details: fmt.Sprintf("%s (%s) after %d turns, HP %d/%d", result, reason, turn, finalHP[0], finalHP[1]),
	}
}
