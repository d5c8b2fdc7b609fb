package cardgen

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/touatautology/card-battle-engine/internal/loader"
)

// Intent records what a candidate was generated to do.
type Intent struct {
	Mode             string   `json:"mode"` // suppress | support
	TargetPatternIDs []string `json:"target_pattern_ids,omitempty"`
	TargetDeckIDs    []string `json:"target_deck_ids,omitempty"`
}

// SourcePattern is the evidence a candidate was generated from.
type SourcePattern struct {
	Type    string  `json:"type"`
	Lift    float64 `json:"lift"`
	Support int     `json:"support"`
}

// GenReason explains how a candidate came to be.
type GenReason struct {
	SourcePatterns []SourcePattern `json:"source_patterns,omitempty"`
	Heuristic      string          `json:"heuristic,omitempty"`
}

// Lineage tracks a candidate's ancestry through the mutation stage.
type Lineage struct {
	Origin     string `json:"origin"` // base | mutated
	ParentID   string `json:"parent_id,omitempty"`
	MutationOp string `json:"mutation_op,omitempty"`
}

// Candidate is a generated card under evaluation. It carries generation
// provenance that never enters the card pool.
type Candidate struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Cost      int            `json:"cost"`
	CardType  string         `json:"card_type"`
	Template  string         `json:"template"`
	Params    map[string]int `json:"params"`
	Tags      []string       `json:"tags,omitempty"`
	Intent    Intent         `json:"intent"`
	GenReason GenReason      `json:"gen_reason"`
	Lineage   Lineage        `json:"lineage"`
}

// Spec strips the provenance down to a pool entry. Promoted candidates
// enter the pool as uncommon.
func (c Candidate) Spec() loader.CardSpec {
	return loader.CardSpec{
		ID:       c.ID,
		Name:     c.Name,
		Cost:     c.Cost,
		CardType: c.CardType,
		Tags:     c.Tags,
		Template: c.Template,
		Params:   c.Params,
		Rarity:   "uncommon",
	}
}

// CandidateID derives a stable card ID from the template, params, and seed.
func CandidateID(template string, params map[string]int, seed int64) string {
	canonical, _ := json.Marshal(struct {
		Template string         `json:"template"`
		Params   map[string]int `json:"params"`
		Seed     int64          `json:"seed"`
	}{template, params, seed})
	digest := sha256.Sum256(canonical)
	return "cand_" + hex.EncodeToString(digest[:8])
}

func candidateName(template, id string) string {
	return fmt.Sprintf("cand_%s_%s", strings.ToLower(template), id[len(id)-6:])
}

// patternSalt folds a pattern ID into a candidate ID seed.
func patternSalt(patternID string) int64 {
	digest := sha256.Sum256([]byte(patternID))
	return int64(binary.BigEndian.Uint32(digest[:4]))
}

// dedupKey canonicalizes the playable identity of a candidate: two cards
// with the same template, params, and cost are the same card.
func dedupKey(template string, cost int, params map[string]int) string {
	key, _ := json.Marshal(struct {
		Template string         `json:"template"`
		Cost     int            `json:"cost"`
		Params   map[string]int `json:"params"`
	}{template, cost, params})
	return string(key)
}
