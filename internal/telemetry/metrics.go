package telemetry

import (
	"math"
	"sort"
)

// Stat is an aggregate over one summary key.
type Stat struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Aggregate folds a batch of match summaries into per-key stats.
func Aggregate(summaries []map[string]float64) map[string]Stat {
	out := make(map[string]Stat)
	for _, s := range summaries {
		for k, v := range s {
			st, ok := out[k]
			if !ok {
				st = Stat{Min: math.Inf(1), Max: math.Inf(-1)}
			}
			st.Count++
			st.Sum += v
			st.Min = math.Min(st.Min, v)
			st.Max = math.Max(st.Max, v)
			out[k] = st
		}
	}
	for k, st := range out {
		st.Mean = st.Sum / float64(st.Count)
		out[k] = st
	}
	return out
}

// AggregateBy groups summaries by a caller-supplied key (typically a deck ID
// or policy name) before aggregating each group.
func AggregateBy(summaries []map[string]float64, keys []string) map[string]map[string]Stat {
	groups := make(map[string][]map[string]float64)
	for i, s := range summaries {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		groups[key] = append(groups[key], s)
	}
	out := make(map[string]map[string]Stat, len(groups))
	for key, group := range groups {
		out[key] = Aggregate(group)
	}
	return out
}

// Keys returns the stat keys in sorted order, for stable report output.
func Keys(stats map[string]Stat) []string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
