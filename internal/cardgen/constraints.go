// Package cardgen searches for new cards: candidates are generated from
// mined patterns under a constraint set, mutated, filtered for diversity,
// and adoption-tested against the target decks before selection.
package cardgen

import (
	"encoding/json"
	"fmt"
	"os"
)

// TemplateSpec bounds the search space for one effect template.
type TemplateSpec struct {
	CardType    string            `json:"card_type"`
	CostRange   [2]int            `json:"cost_range"`
	Tags        []string          `json:"tags,omitempty"`
	ParamRanges map[string][2]int `json:"params_ranges,omitempty"`
}

// ForbidRule rejects generated cards by a single threshold on cost or a
// named parameter.
type ForbidRule struct {
	Template string `json:"template"`
	Field    string `json:"field"` // "cost" or a param name
	Op       string `json:"op"`    // ">", ">=", "<", "<=", "=="
	Value    int    `json:"value"`
}

func (r ForbidRule) matches(template string, cost int, params map[string]int) bool {
	if r.Template != template {
		return false
	}
	v, ok := params[r.Field]
	if r.Field == "cost" {
		v, ok = cost, true
	}
	if !ok {
		return false
	}
	switch r.Op {
	case ">":
		return v > r.Value
	case ">=":
		return v >= r.Value
	case "<":
		return v < r.Value
	case "<=":
		return v <= r.Value
	case "==":
		return v == r.Value
	default:
		return false
	}
}

// GlobalConstraints apply across all templates.
type GlobalConstraints struct {
	MaxNewCards int          `json:"max_new_cards"`
	Forbid      []ForbidRule `json:"forbid,omitempty"`
}

// Constraints is the full generation constraint set, loaded from JSON.
type Constraints struct {
	Global    GlobalConstraints       `json:"global"`
	Templates map[string]TemplateSpec `json:"templates"`
}

// Forbidden reports whether any forbid rule rejects the card.
func (c *Constraints) Forbidden(template string, cost int, params map[string]int) bool {
	for _, rule := range c.Global.Forbid {
		if rule.matches(template, cost, params) {
			return true
		}
	}
	return false
}

// LoadConstraints reads a constraint set from a JSON file.
func LoadConstraints(path string) (*Constraints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Constraints
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse constraints %s: %w", path, err)
	}
	if len(c.Templates) == 0 {
		return nil, fmt.Errorf("constraints %s: no templates", path)
	}
	return &c, nil
}
