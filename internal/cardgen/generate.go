package cardgen

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/touatautology/card-battle-engine/internal/patterns"
)

// weightedChoice samples a key by weight, iterating keys in sorted order so
// the draw depends only on the RNG state.
func weightedChoice(rng *rand.Rand, weights map[string]float64) string {
	keys := make([]string, 0, len(weights))
	total := 0.0
	for k, w := range weights {
		if w > 0 {
			keys = append(keys, k)
			total += w
		}
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	x := rng.Float64() * total
	for _, k := range keys {
		x -= weights[k]
		if x < 0 {
			return k
		}
	}
	return keys[len(keys)-1]
}

// randRange draws uniformly from [lo, hi] inclusive.
func randRange(rng *rand.Rand, r [2]int) int {
	lo, hi := r[0], r[1]
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// topPerType keeps the leading patterns of each type, preserving the
// dictionary's lift ordering. Counter patterns come first so they survive
// the candidate cap.
func topPerType(ps []patterns.Pattern, limits map[string]int) []patterns.Pattern {
	byType := map[string][]patterns.Pattern{}
	for _, p := range ps {
		byType[p.Type] = append(byType[p.Type], p)
	}

	var out []patterns.Pattern
	for _, ptype := range []string{patterns.TypeCounter, patterns.TypeSequence, patterns.TypeCooccurrence} {
		pool := byType[ptype]
		n, ok := limits[ptype]
		if !ok {
			n = 10
		}
		if n > len(pool) {
			n = len(pool)
		}
		out = append(out, pool[:n]...)
	}
	return out
}

// GenerateCandidates produces base candidates from a sorted pattern
// dictionary: each selected pattern spawns up to CandidatesPerPattern cards,
// each either suppressing or supporting the pattern with a template from the
// matching pool.
func GenerateCandidates(ps []patterns.Pattern, cons *Constraints, cfg *Config) []Candidate {
	rng := rand.New(rand.NewSource(cfg.Seed))

	maxCards := cfg.BaseCandidatesMax
	if cons.Global.MaxNewCards > 0 && cons.Global.MaxNewCards < maxCards {
		maxCards = cons.Global.MaxNewCards
	}

	selected := topPerType(ps, cfg.TopPatternsPerType)

	var out []Candidate
	seen := map[string]bool{}

	for _, pat := range selected {
		for ci := 0; ci < cfg.CandidatesPerPattern && len(out) < maxCards; ci++ {
			mode := weightedChoice(rng, cfg.ModeWeights)

			pool := cfg.SupportTemplates
			if mode == "suppress" {
				pool = cfg.SuppressTemplates
			}
			if len(pool) == 0 {
				continue
			}

			tmpl := pool[rng.Intn(len(pool))]
			spec, ok := cons.Templates[tmpl]
			if !ok {
				continue
			}

			cost := randRange(rng, spec.CostRange)
			params := map[string]int{}
			pnames := make([]string, 0, len(spec.ParamRanges))
			for name := range spec.ParamRanges {
				pnames = append(pnames, name)
			}
			sort.Strings(pnames)
			for _, name := range pnames {
				params[name] = randRange(rng, spec.ParamRanges[name])
			}

			if cons.Forbidden(tmpl, cost, params) {
				continue
			}
			key := dedupKey(tmpl, cost, params)
			if seen[key] {
				continue
			}
			seen[key] = true

			cid := CandidateID(tmpl, params, cfg.Seed+int64(ci)+patternSalt(pat.ID))

			var targetDecks []string
			if pat.Type == patterns.TypeCounter && pat.Definition.TargetDeckID != "" {
				targetDecks = []string{pat.Definition.TargetDeckID}
			}

			out = append(out, Candidate{
				ID:       cid,
				Name:     candidateName(tmpl, cid),
				Cost:     cost,
				CardType: spec.CardType,
				Template: tmpl,
				Params:   params,
				Tags:     append([]string(nil), spec.Tags...),
				Intent: Intent{
					Mode:             mode,
					TargetPatternIDs: []string{pat.ID},
					TargetDeckIDs:    targetDecks,
				},
				GenReason: GenReason{
					SourcePatterns: []SourcePattern{{
						Type:    pat.Type,
						Lift:    pat.Stats.Lift,
						Support: pat.Stats.Support,
					}},
					Heuristic: mode + "_" + strings.ToLower(tmpl) + "_from_" + pat.Type,
				},
				Lineage: Lineage{Origin: "base"},
			})
		}
		if len(out) >= maxCards {
			break
		}
	}
	return out
}
