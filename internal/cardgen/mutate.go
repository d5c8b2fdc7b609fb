package cardgen

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"
)

const (
	OpParamJitter      = "param_jitter"
	OpCostAdjust       = "cost_adjust"
	OpTemplateSwap     = "template_swap_within_family"
	OpStatRedistribute = "stat_redistribute"
)

// templateFamilies groups templates whose params are interchangeable;
// template_swap_within_family only moves inside a family.
var templateFamilies = map[string][]string{
	"draw":   {"Draw", "OnPlayDraw"},
	"damage": {"DamagePlayer", "OnPlayDamagePlayer"},
}

func swapTargets(template string) []string {
	for _, members := range templateFamilies {
		for _, m := range members {
			if m != template {
				continue
			}
			var out []string
			for _, other := range members {
				if other != template {
					out = append(out, other)
				}
			}
			return out
		}
	}
	return nil
}

// MutationSeed derives a per-attempt seed from the parent and attempt index.
func MutationSeed(globalSeed int64, parentID, op string, index int) int64 {
	key := fmt.Sprintf("%d:%s:%s:%d", globalSeed, parentID, op, index)
	digest := sha256.Sum256([]byte(key))
	return int64(binary.BigEndian.Uint64(digest[:8]))
}

// mutResult is an operator's raw output before candidate assembly.
type mutResult struct {
	Template string
	Cost     int
	Params   map[string]int
}

type mutationOp func(parent Candidate, cons *Constraints, rng *rand.Rand) *mutResult

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// opParamJitter nudges one random parameter by one, clamped to its range.
func opParamJitter(parent Candidate, cons *Constraints, rng *rand.Rand) *mutResult {
	spec, ok := cons.Templates[parent.Template]
	if !ok || len(spec.ParamRanges) == 0 {
		return nil
	}

	keys := make([]string, 0, len(spec.ParamRanges))
	for k := range spec.ParamRanges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := keys[rng.Intn(len(keys))]

	delta := 1
	if rng.Intn(2) == 0 {
		delta = -1
	}
	params := cloneParams(parent.Params)
	r := spec.ParamRanges[key]
	params[key] = clamp(params[key]+delta, r[0], r[1])

	return &mutResult{Template: parent.Template, Cost: parent.Cost, Params: params}
}

// opCostAdjust shifts cost by one and compensates on the largest parameter:
// cheaper cards get weaker, dearer cards get stronger.
func opCostAdjust(parent Candidate, cons *Constraints, rng *rand.Rand) *mutResult {
	spec, ok := cons.Templates[parent.Template]
	if !ok {
		return nil
	}

	delta := 1
	if rng.Intn(2) == 0 {
		delta = -1
	}
	newCost := clamp(parent.Cost+delta, spec.CostRange[0], spec.CostRange[1])
	if newCost == parent.Cost {
		return nil
	}

	params := cloneParams(parent.Params)
	if len(spec.ParamRanges) > 0 {
		keys := make([]string, 0, len(spec.ParamRanges))
		for k := range spec.ParamRanges {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		maxKey := keys[0]
		for _, k := range keys[1:] {
			if params[k] > params[maxKey] {
				maxKey = k
			}
		}
		adj := 1
		if newCost < parent.Cost {
			adj = -1
		}
		r := spec.ParamRanges[maxKey]
		params[maxKey] = clamp(params[maxKey]+adj, r[0], r[1])
	}

	return &mutResult{Template: parent.Template, Cost: newCost, Params: params}
}

// opTemplateSwap moves the candidate to a sibling template, inheriting
// common params and filling missing ones at the range midpoint.
func opTemplateSwap(parent Candidate, cons *Constraints, rng *rand.Rand) *mutResult {
	targets := swapTargets(parent.Template)
	if len(targets) == 0 {
		return nil
	}
	newTmpl := targets[rng.Intn(len(targets))]
	spec, ok := cons.Templates[newTmpl]
	if !ok {
		return nil
	}

	params := map[string]int{}
	keys := make([]string, 0, len(spec.ParamRanges))
	for k := range spec.ParamRanges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r := spec.ParamRanges[k]
		if v, ok := parent.Params[k]; ok {
			params[k] = clamp(v, r[0], r[1])
		} else {
			params[k] = (r[0] + r[1]) / 2
		}
	}

	return &mutResult{
		Template: newTmpl,
		Cost:     clamp(parent.Cost, spec.CostRange[0], spec.CostRange[1]),
		Params:   params,
	}
}

// opStatRedistribute reshuffles a vanilla unit's atk/hp while holding the
// stat total, clamped to the template ranges.
func opStatRedistribute(parent Candidate, cons *Constraints, rng *rand.Rand) *mutResult {
	if parent.Template != "Vanilla" {
		return nil
	}
	spec, ok := cons.Templates["Vanilla"]
	if !ok {
		return nil
	}
	atkRange, okA := spec.ParamRanges["atk"]
	hpRange, okH := spec.ParamRanges["hp"]
	if !okA || !okH {
		return nil
	}

	total := parent.Params["atk"] + parent.Params["hp"]
	newAtk := randRange(rng, atkRange)
	newHP := clamp(total-newAtk, hpRange[0], hpRange[1])
	newAtk = clamp(total-newHP, atkRange[0], atkRange[1])

	params := cloneParams(parent.Params)
	params["atk"] = newAtk
	params["hp"] = newHP

	return &mutResult{Template: "Vanilla", Cost: parent.Cost, Params: params}
}

var mutationOps = map[string]mutationOp{
	OpParamJitter:      opParamJitter,
	OpCostAdjust:       opCostAdjust,
	OpTemplateSwap:     opTemplateSwap,
	OpStatRedistribute: opStatRedistribute,
}

func cloneParams(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// MutateCandidate applies one weighted-random operator to the parent. Each
// attempt reseeds deterministically; after three failed attempts the parent
// produces no child for this index.
func MutateCandidate(parent Candidate, cons *Constraints, globalSeed int64, index int, opWeights map[string]float64) *Candidate {
	const maxRetries = 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		seed := MutationSeed(globalSeed, parent.ID, "select", index*maxRetries+attempt)
		rng := rand.New(rand.NewSource(seed))

		opName := weightedChoice(rng, opWeights)
		op, ok := mutationOps[opName]
		if !ok {
			continue
		}

		result := op(parent, cons, rng)
		if result == nil {
			continue
		}
		if cons.Forbidden(result.Template, result.Cost, result.Params) {
			continue
		}

		spec := cons.Templates[result.Template]
		cardType := spec.CardType
		if cardType == "" {
			cardType = parent.CardType
		}
		tags := spec.Tags
		if len(tags) == 0 {
			tags = parent.Tags
		}

		cid := CandidateID(result.Template, result.Params, seed)
		return &Candidate{
			ID:        cid,
			Name:      candidateName(result.Template, cid),
			Cost:      result.Cost,
			CardType:  cardType,
			Template:  result.Template,
			Params:    result.Params,
			Tags:      append([]string(nil), tags...),
			Intent:    parent.Intent,
			GenReason: parent.GenReason,
			Lineage: Lineage{
				Origin:     "mutated",
				ParentID:   parent.ID,
				MutationOp: opName,
			},
		}
	}
	return nil
}

// GenerateMutations produces PerBase children per base candidate, dropping
// failed attempts.
func GenerateMutations(base []Candidate, cons *Constraints, cfg *Config) []Candidate {
	var out []Candidate
	for _, parent := range base {
		for i := 0; i < cfg.Mutations.PerBase; i++ {
			child := MutateCandidate(parent, cons, cfg.Seed, i, cfg.Mutations.OpWeights)
			if child != nil {
				out = append(out, *child)
			}
		}
	}
	return out
}
