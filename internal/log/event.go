package log

// EventType enumerates all observable match events.
type EventType int

const (
	EventGameStart EventType = iota
	EventTurnStart
	EventCardPlayed
	EventCardsDrawn
	EventAttackDeclared
	EventBlockDeclared
	EventCombatResolved
	EventTurnEnd
	EventGameEnd
)

func (e EventType) String() string {
	switch e {
	case EventGameStart:
		return "GameStart"
	case EventTurnStart:
		return "TurnStart"
	case EventCardPlayed:
		return "CardPlayed"
	case EventCardsDrawn:
		return "CardsDrawn"
	case EventAttackDeclared:
		return "AttackDeclared"
	case EventBlockDeclared:
		return "BlockDeclared"
	case EventCombatResolved:
		return "CombatResolved"
	case EventTurnEnd:
		return "TurnEnd"
	case EventGameEnd:
		return "GameEnd"
	default:
		return "Unknown"
	}
}

// GameEvent is a single observable event in a match.
type GameEvent struct {
	Seq     int       // monotonic sequence number, assigned by the logger
	Turn    int       // turn counter at emission time
	Player  int       // acting player (0 or 1), -1 if not player-scoped
	Type    EventType // event type
	Card    string    // card ID, if applicable
	Details string    // human-readable detail string
}
