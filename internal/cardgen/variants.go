package cardgen

import (
	"fmt"
	"sort"

	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/loader"
)

// BuildDeckVariants inserts 1..maxCopies copies of the candidate into the
// deck, replacing existing cards by priority: same template first, then
// nearest cost, then ID. The catalog must already contain the candidate.
// An empty result means no valid variant exists.
func BuildDeckVariants(deck game.DeckDef, candID string, catalog game.Catalog, maxCopies int) []game.DeckDef {
	cand, ok := catalog[candID]
	if !ok {
		return nil
	}

	counts := loader.DeckToCounts(deck)
	inDeck := make([]string, 0, len(counts))
	for id := range counts {
		inDeck = append(inDeck, id)
	}
	sort.Strings(inDeck)

	priority := func(id string) (int, int) {
		c, ok := catalog[id]
		if !ok {
			return 1, 99
		}
		tmplMatch := 1
		if c.Template == cand.Template {
			tmplMatch = 0
		}
		costDist := c.Cost - cand.Cost
		if costDist < 0 {
			costDist = -costDist
		}
		return tmplMatch, costDist
	}
	sort.SliceStable(inDeck, func(i, j int) bool {
		ti, ci := priority(inDeck[i])
		tj, cj := priority(inDeck[j])
		if ti != tj {
			return ti < tj
		}
		if ci != cj {
			return ci < cj
		}
		return inDeck[i] < inDeck[j]
	})

	var variants []game.DeckDef
	for n := 1; n <= maxCopies; n++ {
		trial := make(map[string]int, len(counts))
		for id, c := range counts {
			trial[id] = c
		}

		removed := 0
		for _, id := range inDeck {
			if removed >= n {
				break
			}
			if id == candID {
				continue
			}
			take := trial[id]
			if take > n-removed {
				take = n - removed
			}
			if take > 0 {
				trial[id] -= take
				if trial[id] == 0 {
					delete(trial, id)
				}
				removed += take
			}
		}
		if removed < n {
			break
		}

		trial[candID] += n

		variant, err := loader.CountsToDeck(fmt.Sprintf("%s+%sx%d", deck.ID, candID, n), trial)
		if err != nil {
			break
		}
		variants = append(variants, variant)
	}
	return variants
}
