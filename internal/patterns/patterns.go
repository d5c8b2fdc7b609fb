// Package patterns mines tactical patterns out of evolution artifacts:
// card sets that co-occur in strong decks, early-game action sequences,
// and card sets that beat a named target deck. Card generation consumes
// the mined dictionary.
package patterns

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

const (
	TypeCooccurrence = "cooccurrence"
	TypeSequence     = "sequence"
	TypeCounter      = "counter"
)

// Stats is the evidence behind one pattern.
type Stats struct {
	Support  int     `json:"support"`
	WinRate  float64 `json:"win_rate"`
	Lift     float64 `json:"lift"`
	AvgTurns float64 `json:"avg_turns"`
}

// Definition identifies what the pattern matched. Which fields are set
// depends on the pattern type.
type Definition struct {
	Cards        []string   `json:"cards,omitempty"`
	TargetDeckID string     `json:"target_deck_id,omitempty"`
	Turns        int        `json:"turns,omitempty"`
	Tokens       [][]string `json:"tokens,omitempty"` // per-turn action lists
}

// Pattern is one mined pattern. The ID is stable across runs: it hashes the
// type and definition, never the stats.
type Pattern struct {
	ID         string     `json:"pattern_id"`
	Type       string     `json:"type"`
	Scope      string     `json:"scope"`
	Definition Definition `json:"definition"`
	Stats      Stats      `json:"stats"`
	ExampleIDs []string   `json:"example_match_ids,omitempty"`
}

// ID hashes a pattern type plus definition into a stable identifier.
func ID(patternType string, def Definition) string {
	canonical, _ := json.Marshal(struct {
		Type       string     `json:"type"`
		Definition Definition `json:"definition"`
	}{patternType, def})
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:12])
}

func makePattern(patternType, scope string, def Definition, st Stats, examples []string) Pattern {
	if len(examples) > 5 {
		examples = examples[:5]
	}
	return Pattern{
		ID:         ID(patternType, def),
		Type:       patternType,
		Scope:      scope,
		Definition: def,
		Stats:      st,
		ExampleIDs: examples,
	}
}

// Meta describes where a pattern dictionary came from.
type Meta struct {
	SourceRun string `json:"source_run,omitempty"`
	Seed      int64  `json:"seed,omitempty"`
}

// File is the on-disk pattern dictionary.
type File struct {
	Meta     Meta      `json:"meta"`
	Patterns []Pattern `json:"patterns"`
}

// Sort orders patterns by descending lift, then descending support, then ID.
// Candidate generation relies on this order.
func Sort(ps []Pattern) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Stats.Lift != ps[j].Stats.Lift {
			return ps[i].Stats.Lift > ps[j].Stats.Lift
		}
		if ps[i].Stats.Support != ps[j].Stats.Support {
			return ps[i].Stats.Support > ps[j].Stats.Support
		}
		return ps[i].ID < ps[j].ID
	})
}

// Write saves a sorted pattern dictionary.
func Write(path string, ps []Pattern, meta Meta) error {
	sorted := append([]Pattern(nil), ps...)
	Sort(sorted)
	data, err := json.MarshalIndent(File{Meta: meta, Patterns: sorted}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads a pattern dictionary.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse patterns %s: %w", path, err)
	}
	return &f, nil
}

// readJSONLines decodes one value per line into out via the callback.
func readJSONLines(path string, visit func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := visit(line); err != nil {
			return fmt.Errorf("%s line %d: %w", path, n, err)
		}
	}
	return sc.Err()
}
