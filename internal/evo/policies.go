package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/touatautology/card-battle-engine/internal/agent"
	"github.com/touatautology/card-battle-engine/internal/game"
)

// PolicyWeights maps agent names to sampling weights for opponent policy
// mixes. Weights need not sum to one; NormalizeWeights rescales them.
type PolicyWeights map[string]float64

// NormalizeWeights validates names, drops non-positive entries, and rescales
// the rest to sum to one. An empty or all-zero map is an error.
func NormalizeWeights(w PolicyWeights) (PolicyWeights, error) {
	known := make(map[string]bool)
	for _, n := range agent.Names() {
		known[n] = true
	}
	total := 0.0
	out := make(PolicyWeights)
	for name, weight := range w {
		if !known[name] {
			return nil, fmt.Errorf("unknown policy %q in weights", name)
		}
		if weight <= 0 {
			continue
		}
		out[name] = weight
		total += weight
	}
	if total == 0 {
		return nil, fmt.Errorf("policy weights are empty or all non-positive")
	}
	for name := range out {
		out[name] /= total
	}
	return out, nil
}

// PickPolicy samples a policy name from normalized weights. Iteration order
// is sorted so the same RNG stream always picks the same name.
func PickPolicy(rng *rand.Rand, w PolicyWeights) string {
	names := make([]string, 0, len(w))
	for name := range w {
		names = append(names, name)
	}
	sort.Strings(names)

	r := rng.Float64()
	acc := 0.0
	for _, name := range names {
		acc += w[name]
		if r < acc {
			return name
		}
	}
	return names[len(names)-1]
}

// BuildAgent instantiates the named policy with a per-match seed.
func BuildAgent(name string, seed int64) (game.Agent, error) {
	return agent.ByName(name, seed)
}
