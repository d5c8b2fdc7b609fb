package evo

import (
	"math"
	"math/rand"
	"sort"
)

// FitnessStats summarizes one generation's fitness values.
type FitnessStats struct {
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
	Min  float64 `json:"min"`
	Std  float64 `json:"std"`
}

func ComputeFitnessStats(fitness []float64) FitnessStats {
	if len(fitness) == 0 {
		return FitnessStats{}
	}
	st := FitnessStats{Max: math.Inf(-1), Min: math.Inf(1)}
	for _, f := range fitness {
		st.Mean += f
		st.Max = math.Max(st.Max, f)
		st.Min = math.Min(st.Min, f)
	}
	st.Mean /= float64(len(fitness))
	for _, f := range fitness {
		d := f - st.Mean
		st.Std += d * d
	}
	st.Std = math.Sqrt(st.Std / float64(len(fitness)))
	return st
}

// RankByFitness returns population indices sorted by descending fitness,
// ties broken by index for stability.
func RankByFitness(fitness []float64) []int {
	idx := make([]int, len(fitness))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return fitness[idx[a]] > fitness[idx[b]]
	})
	return idx
}

// Tournament picks one parent index with k-way tournament selection. The
// same index can be drawn more than once; the fittest drawn wins.
func Tournament(fitness []float64, k int, rng *rand.Rand) int {
	if k < 1 {
		k = 1
	}
	best := rng.Intn(len(fitness))
	for i := 1; i < k; i++ {
		c := rng.Intn(len(fitness))
		if fitness[c] > fitness[best] {
			best = c
		}
	}
	return best
}
