package game

import "fmt"

// Template names an effect. The set is closed: a card referencing a template
// the resolver does not know is rejected at load time.
type Template string

const (
	TemplateVanilla            Template = "Vanilla"
	TemplateOnPlayDamagePlayer Template = "OnPlayDamagePlayer"
	TemplateOnPlayDraw         Template = "OnPlayDraw"
	TemplateDamagePlayer       Template = "DamagePlayer"
	TemplateHealSelf           Template = "HealSelf"
	TemplateDraw               Template = "Draw"
	TemplateRemoveUnit         Template = "RemoveUnit"
)

// EffectParams is the tagged payload for an effect template. The concrete
// type is fixed per template family and validated once at card load, so
// handlers never see a malformed shape.
type EffectParams interface {
	effectParams()
}

// NoParams is the payload of templates that take no arguments.
type NoParams struct{}

// AmountParams carries a damage or heal amount.
type AmountParams struct {
	Amount int
}

// DrawParams carries a draw count.
type DrawParams struct {
	N int
}

// ThresholdParams carries the removal hit-point threshold.
type ThresholdParams struct {
	MaxHP int
}

func (NoParams) effectParams()        {}
func (AmountParams) effectParams()    {}
func (DrawParams) effectParams()      {}
func (ThresholdParams) effectParams() {}

// EffectHandler mutates game state when a card's effect resolves. Handlers
// run exactly once, when the card enters play.
type EffectHandler func(gs *GameState, player int, params EffectParams)

// Resolver dispatches effect templates to handlers. It is an explicitly
// constructed mapping with no state of its own; new templates are added by
// registering a new pair, without touching the engine.
type Resolver map[Template]EffectHandler

// Knows reports whether the resolver has a handler for the template.
func (r Resolver) Knows(t Template) bool {
	_, ok := r[t]
	return ok
}

// Resolve dispatches to the template's handler. An unknown template is a
// fatal error, never a silent no-op.
func (r Resolver) Resolve(gs *GameState, player int, t Template, params EffectParams) error {
	h, ok := r[t]
	if !ok {
		return fmt.Errorf("unknown effect template: %q", t)
	}
	h(gs, player, params)
	return nil
}

// DefaultResolver returns the resolver covering the built-in template set.
func DefaultResolver() Resolver {
	return Resolver{
		TemplateVanilla: func(gs *GameState, player int, params EffectParams) {
			// stats are applied at placement time
		},
		TemplateOnPlayDamagePlayer: damageOpponent,
		TemplateDamagePlayer:       damageOpponent,
		TemplateHealSelf: func(gs *GameState, player int, params EffectParams) {
			amount := params.(AmountParams).Amount
			p := gs.Players[player]
			p.HP += amount
			if p.HP > StartingHP {
				p.HP = StartingHP
			}
		},
		TemplateOnPlayDraw: drawCards,
		TemplateDraw:       drawCards,
		TemplateRemoveUnit: func(gs *GameState, player int, params EffectParams) {
			maxHP := params.(ThresholdParams).MaxHP
			opp := gs.Players[1-player]
			for i, u := range opp.Board {
				if u.HP <= maxHP {
					opp.Graveyard = append(opp.Graveyard, u.CardID)
					opp.Board = append(opp.Board[:i], opp.Board[i+1:]...)
					return
				}
			}
		},
	}
}

func damageOpponent(gs *GameState, player int, params EffectParams) {
	amount := params.(AmountParams).Amount
	gs.Players[1-player].HP -= amount
}

func drawCards(gs *GameState, player int, params EffectParams) {
	n := params.(DrawParams).N
	drawn := 0
	for i := 0; i < n; i++ {
		if !gs.drawOne(player) {
			break
		}
		drawn++
	}
	if drawn > 0 {
		gs.notifyCardsDrawn(player, drawn, DrawEffect)
	}
}
