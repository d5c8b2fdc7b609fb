package cardgen

import "sort"

// CardDistance scores how different two candidates are, in [0, 1]. Template
// mismatch dominates; cost and range-normalized shared params contribute the
// rest.
func CardDistance(a, b Candidate, cons *Constraints) float64 {
	dist := 0.0
	if a.Template != b.Template {
		dist += 0.5
	}

	costDiff := a.Cost - b.Cost
	if costDiff < 0 {
		costDiff = -costDiff
	}
	dist += float64(costDiff) / 10.0 * 0.2

	var common []string
	for k := range a.Params {
		if _, ok := b.Params[k]; ok {
			common = append(common, k)
		}
	}
	if len(common) > 0 {
		sort.Strings(common)
		spec, ok := cons.Templates[a.Template]
		if !ok {
			spec = cons.Templates[b.Template]
		}

		sum := 0.0
		for _, k := range common {
			lo, hi := 0, 1
			if r, ok := spec.ParamRanges[k]; ok {
				lo, hi = r[0], r[1]
			}
			span := hi - lo
			if span < 1 {
				span = 1
			}
			d := a.Params[k] - b.Params[k]
			if d < 0 {
				d = -d
			}
			sum += float64(d) / float64(span)
		}
		dist += sum / float64(len(common)) * 0.3
	}

	if dist > 1 {
		dist = 1
	}
	return dist
}

// DedupeAndFilterDiversity removes playable duplicates, then greedily keeps
// candidates at least MinDistance from every accepted one, capped per
// template. Candidates are considered in ID order, so the filter is
// deterministic.
func DedupeAndFilterDiversity(cands []Candidate, cons *Constraints, cfg *Config) []Candidate {
	seen := map[string]bool{}
	var deduped []Candidate
	for _, c := range cands {
		key := dedupKey(c.Template, c.Cost, c.Params)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, c)
	}

	sort.Slice(deduped, func(i, j int) bool { return deduped[i].ID < deduped[j].ID })

	var accepted []Candidate
	perTemplate := map[string]int{}
	for _, c := range deduped {
		if perTemplate[c.Template] >= cfg.Diversity.MaxPerTemplate {
			continue
		}
		tooClose := false
		for _, a := range accepted {
			if CardDistance(c, a, cons) < cfg.Diversity.MinDistance {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		accepted = append(accepted, c)
		perTemplate[c.Template]++
	}
	return accepted
}
