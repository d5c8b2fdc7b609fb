// Package loader owns the data boundary: reading and validating card
// catalogs and deck definitions from JSON. Malformed data is rejected before
// any match starts; the engine never attempts to repair it.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/touatautology/card-battle-engine/internal/game"
)

const (
	DeckSize  = 30
	MaxCopies = 3
	MinCost   = 0
	MaxCost   = 10
)

// CardSpec is the raw on-disk form of one catalog card. Card generation and
// promotion manipulate pools at this level before rebuilding a Catalog.
type CardSpec struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Cost     int            `json:"cost"`
	CardType string         `json:"card_type"`
	Tags     []string       `json:"tags,omitempty"`
	Template string         `json:"template"`
	Params   map[string]int `json:"params,omitempty"`
	Rarity   string         `json:"rarity,omitempty"`
}

// Card validates the spec and builds the immutable card definition.
func (s CardSpec) Card(resolver game.Resolver) (*game.Card, error) {
	return buildCard(s, resolver)
}

type deckFile struct {
	DeckID  string `json:"deck_id"`
	Entries []struct {
		CardID string `json:"card_id"`
		Count  int    `json:"count"`
	} `json:"entries"`
}

// LoadCards reads a card catalog from a JSON file and validates every card
// against the given resolver's template set.
func LoadCards(path string, resolver game.Resolver) (game.Catalog, error) {
	specs, err := ReadCardSpecs(path)
	if err != nil {
		return nil, err
	}
	return CatalogFromSpecs(specs, resolver)
}

// ReadCardSpecs reads a card pool file without validating card semantics.
func ReadCardSpecs(path string) ([]CardSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []CardSpec
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse cards %s: %w", path, err)
	}
	return raw, nil
}

// WriteCardSpecs serializes a card pool back to JSON.
func WriteCardSpecs(path string, specs []CardSpec) error {
	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// CatalogFromSpecs validates every spec and builds a catalog.
func CatalogFromSpecs(specs []CardSpec, resolver game.Resolver) (game.Catalog, error) {
	catalog := make(game.Catalog, len(specs))
	for _, entry := range specs {
		card, err := buildCard(entry, resolver)
		if err != nil {
			return nil, err
		}
		if _, dup := catalog[card.ID]; dup {
			return nil, fmt.Errorf("card %s: duplicate id", card.ID)
		}
		catalog[card.ID] = card
	}
	return catalog, nil
}

func buildCard(entry CardSpec, resolver game.Resolver) (*game.Card, error) {
	if entry.Cost < MinCost || entry.Cost > MaxCost {
		return nil, fmt.Errorf("card %s: cost %d out of range [%d,%d]", entry.ID, entry.Cost, MinCost, MaxCost)
	}

	var kind game.Kind
	switch entry.CardType {
	case "unit":
		kind = game.KindUnit
	case "spell":
		kind = game.KindSpell
	default:
		return nil, fmt.Errorf("card %s: invalid card_type %q", entry.ID, entry.CardType)
	}

	template := game.Template(entry.Template)
	if !resolver.Knows(template) {
		return nil, fmt.Errorf("card %s: unknown template %q", entry.ID, entry.Template)
	}

	rarity := entry.Rarity
	if rarity == "" {
		rarity = "common"
	}

	card := &game.Card{
		ID:       entry.ID,
		Name:     entry.Name,
		Cost:     entry.Cost,
		Kind:     kind,
		Tags:     entry.Tags,
		Template: template,
		Rarity:   rarity,
	}

	if kind == game.KindUnit {
		atk, okAtk := entry.Params["atk"]
		hp, okHP := entry.Params["hp"]
		if !okAtk || !okHP {
			return nil, fmt.Errorf("card %s: unit must have atk and hp in params", entry.ID)
		}
		card.Unit = &game.UnitStats{Atk: atk, HP: hp}
	}

	// The template payload shape is checked once here, so effect handlers
	// always receive a well-formed typed value.
	params, err := templateParams(entry.ID, template, entry.Params)
	if err != nil {
		return nil, err
	}
	card.Params = params
	return card, nil
}

func templateParams(cardID string, t game.Template, params map[string]int) (game.EffectParams, error) {
	switch t {
	case game.TemplateVanilla:
		return game.NoParams{}, nil
	case game.TemplateOnPlayDamagePlayer, game.TemplateDamagePlayer, game.TemplateHealSelf:
		amount, ok := params["amount"]
		if !ok {
			return nil, fmt.Errorf("card %s: template %s requires amount param", cardID, t)
		}
		return game.AmountParams{Amount: amount}, nil
	case game.TemplateOnPlayDraw, game.TemplateDraw:
		n, ok := params["n"]
		if !ok {
			return nil, fmt.Errorf("card %s: template %s requires n param", cardID, t)
		}
		return game.DrawParams{N: n}, nil
	case game.TemplateRemoveUnit:
		maxHP, ok := params["max_hp"]
		if !ok {
			return nil, fmt.Errorf("card %s: template %s requires max_hp param", cardID, t)
		}
		return game.ThresholdParams{MaxHP: maxHP}, nil
	default:
		return nil, fmt.Errorf("card %s: no param family for template %q", cardID, t)
	}
}

// LoadDeck reads and validates a deck definition from a JSON file.
func LoadDeck(path string, catalog game.Catalog) (game.DeckDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return game.DeckDef{}, err
	}
	var raw deckFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return game.DeckDef{}, fmt.Errorf("parse deck %s: %w", path, err)
	}

	deck := game.DeckDef{ID: raw.DeckID}
	for _, e := range raw.Entries {
		deck.Entries = append(deck.Entries, game.DeckEntry{CardID: e.CardID, Count: e.Count})
	}
	if err := ValidateDeck(deck, catalog); err != nil {
		return game.DeckDef{}, err
	}
	return deck, nil
}

// ValidateDeck enforces the deck invariants: known cards, counts in
// [1, MaxCopies], total exactly DeckSize.
func ValidateDeck(deck game.DeckDef, catalog game.Catalog) error {
	total := 0
	seen := map[string]bool{}
	for _, e := range deck.Entries {
		if catalog != nil {
			if _, ok := catalog[e.CardID]; !ok {
				return fmt.Errorf("deck %s: unknown card_id %q", deck.ID, e.CardID)
			}
		}
		if seen[e.CardID] {
			return fmt.Errorf("deck %s: card %q listed twice", deck.ID, e.CardID)
		}
		seen[e.CardID] = true
		if e.Count < 1 || e.Count > MaxCopies {
			return fmt.Errorf("deck %s: card %q count %d not in [1,%d]", deck.ID, e.CardID, e.Count, MaxCopies)
		}
		total += e.Count
	}
	if total != DeckSize {
		return fmt.Errorf("deck %s: total cards %d, expected %d", deck.ID, total, DeckSize)
	}
	return nil
}

// DeckToCounts converts a DeckDef to a mutable card-id -> count map.
func DeckToCounts(deck game.DeckDef) map[string]int {
	counts := make(map[string]int, len(deck.Entries))
	for _, e := range deck.Entries {
		counts[e.CardID] = e.Count
	}
	return counts
}

// CountsToDeck converts a count map back to a DeckDef with sorted entries,
// re-validating the deck invariants.
func CountsToDeck(deckID string, counts map[string]int) (game.DeckDef, error) {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	deck := game.DeckDef{ID: deckID}
	for _, id := range ids {
		deck.Entries = append(deck.Entries, game.DeckEntry{CardID: id, Count: counts[id]})
	}
	if err := ValidateDeck(deck, nil); err != nil {
		return game.DeckDef{}, err
	}
	return deck, nil
}

// WriteDeck serializes a deck definition back to JSON.
func WriteDeck(path string, deck game.DeckDef) error {
	raw := deckFile{DeckID: deck.ID}
	for _, e := range deck.Entries {
		raw.Entries = append(raw.Entries, struct {
			CardID string `json:"card_id"`
			Count  int    `json:"count"`
		}{e.CardID, e.Count})
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
