// Package evo evolves decks against a pool of opponents with deterministic,
// replayable evaluation.
package evo

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// DeriveMatchSeed maps an evaluation coordinate to a match seed. Hashing the
// full coordinate keeps every match independent while making the whole run
// reproducible from the global seed: the same deck pair at the same
// generation and game index always replays identically.
func DeriveMatchSeed(globalSeed int64, generation int, deckA, deckB string, gameIdx int, swapped bool) int64 {
	key := fmt.Sprintf("%d:%d:%s:%s:%d:%t", globalSeed, generation, deckA, deckB, gameIdx, swapped)
	sum := sha256.Sum256([]byte(key))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}
