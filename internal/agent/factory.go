package agent

import (
	"fmt"

	"github.com/touatautology/card-battle-engine/internal/game"
)

// ByName builds an agent from its registry name. The seed only matters for
// the random agent, which owns its own RNG so its choices never perturb the
// match RNG stream.
func ByName(name string, seed int64) (game.Agent, error) {
	switch name {
	case "greedy":
		return NewGreedy(), nil
	case "simple":
		return NewSimple(), nil
	case "random":
		return NewRandom(seed), nil
	}
	return nil, fmt.Errorf("unknown agent %q (want one of %v)", name, Names())
}

// Names lists the registered agent names.
func Names() []string {
	return []string{"greedy", "simple", "random"}
}
