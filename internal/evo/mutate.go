package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/loader"
)

// Mutation operator names, used in config weights and run artifacts.
const (
	OpSwapOne     = "swap_one"
	OpSwapN       = "swap_n"
	OpTweakCounts = "tweak_counts"
	OpRandomDeck  = "random_deck"
)

// Mutator produces valid deck variants. Pool is the full card-ID universe in
// sorted order; map iteration never drives a random choice, so a given RNG
// stream always yields the same mutation.
type Mutator struct {
	Pool []string
	// Weights select the operator in MutateDeck. Zero-valued weights fall
	// back to DefaultOpWeights.
	Weights map[string]float64
}

// DefaultOpWeights favors small edits.
func DefaultOpWeights() map[string]float64 {
	return map[string]float64{
		OpSwapOne:     0.5,
		OpSwapN:       0.25,
		OpTweakCounts: 0.2,
		OpRandomDeck:  0.05,
	}
}

// NewMutator builds a mutator over the whole catalog.
func NewMutator(catalog game.Catalog) *Mutator {
	pool := make([]string, 0, len(catalog))
	for id := range catalog {
		pool = append(pool, id)
	}
	sort.Strings(pool)
	return &Mutator{Pool: pool, Weights: DefaultOpWeights()}
}

func cloneCounts(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for id, n := range counts {
		out[id] = n
	}
	return out
}

// removeWeighted removes one copy of a card chosen with probability
// proportional to its count, and returns its ID.
func (m *Mutator) removeWeighted(counts map[string]int, rng *rand.Rand) string {
	pick := rng.Intn(loader.DeckSize)
	for _, id := range m.Pool {
		n := counts[id]
		if pick < n {
			counts[id]--
			if counts[id] == 0 {
				delete(counts, id)
			}
			return id
		}
		pick -= n
	}
	panic("deck counts do not sum to deck size")
}

// addable lists cards with room for another copy, optionally excluding one.
func (m *Mutator) addable(counts map[string]int, exclude string) []string {
	var out []string
	for _, id := range m.Pool {
		if id == exclude {
			continue
		}
		if counts[id] < loader.MaxCopies {
			out = append(out, id)
		}
	}
	return out
}

// SwapOne trades one copy of a count-weighted card for a copy of a different
// card with room. Falls back to re-adding the removed card when the rest of
// the pool is saturated.
func (m *Mutator) SwapOne(counts map[string]int, rng *rand.Rand) map[string]int {
	out := cloneCounts(counts)
	removed := m.removeWeighted(out, rng)
	cands := m.addable(out, removed)
	if len(cands) == 0 {
		out[removed]++
		return out
	}
	out[cands[rng.Intn(len(cands))]]++
	return out
}

// SwapN applies between 2 and 5 single swaps.
func (m *Mutator) SwapN(counts map[string]int, rng *rand.Rand) map[string]int {
	n := 2 + rng.Intn(4)
	out := cloneCounts(counts)
	for i := 0; i < n; i++ {
		out = m.SwapOne(out, rng)
	}
	return out
}

// TweakCounts shifts one copy between two cards already in the deck, leaving
// the card mix unchanged. A deck with no in-deck receiver comes back as is.
func (m *Mutator) TweakCounts(counts map[string]int, rng *rand.Rand) map[string]int {
	out := cloneCounts(counts)
	donor := m.removeWeighted(out, rng)

	var receivers []string
	for _, id := range m.Pool {
		if id == donor {
			continue
		}
		if n := out[id]; n >= 1 && n < loader.MaxCopies {
			receivers = append(receivers, id)
		}
	}
	if len(receivers) == 0 {
		out[donor]++
		return out
	}
	out[receivers[rng.Intn(len(receivers))]]++
	return out
}

// RandomDeck draws a fresh valid deck from the pool, ignoring the input.
func (m *Mutator) RandomDeck(rng *rand.Rand) map[string]int {
	if len(m.Pool)*loader.MaxCopies < loader.DeckSize {
		panic(fmt.Sprintf("card pool too small for a %d-card deck", loader.DeckSize))
	}
	out := make(map[string]int)
	total := 0
	for total < loader.DeckSize {
		id := m.Pool[rng.Intn(len(m.Pool))]
		if out[id] >= loader.MaxCopies {
			continue
		}
		out[id]++
		total++
	}
	return out
}

// MutateDeck picks an operator by weight and applies it. Returns the new
// counts and the operator name.
func (m *Mutator) MutateDeck(counts map[string]int, rng *rand.Rand) (map[string]int, string) {
	weights := m.Weights
	if len(weights) == 0 {
		weights = DefaultOpWeights()
	}

	ops := []string{OpSwapOne, OpSwapN, OpTweakCounts, OpRandomDeck}
	total := 0.0
	for _, op := range ops {
		total += weights[op]
	}
	r := rng.Float64() * total
	op := ops[len(ops)-1]
	for _, candidate := range ops {
		r -= weights[candidate]
		if r < 0 {
			op = candidate
			break
		}
	}

	switch op {
	case OpSwapN:
		return m.SwapN(counts, rng), op
	case OpTweakCounts:
		return m.TweakCounts(counts, rng), op
	case OpRandomDeck:
		return m.RandomDeck(rng), op
	default:
		return m.SwapOne(counts, rng), OpSwapOne
	}
}
