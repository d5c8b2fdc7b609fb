package game

import "math/rand"

// matchRNG is the private PRNG stream owned by one GameState. It is never a
// process-global generator, so parallel matches cannot cross-contaminate
// random streams. Only game setup (seat choice, deck shuffles) advances it.
type matchRNG struct {
	r *rand.Rand
}

func newMatchRNG(seed int64) *matchRNG {
	return &matchRNG{r: rand.New(rand.NewSource(seed))}
}

func (m *matchRNG) intn(n int) int {
	return m.r.Intn(n)
}

func (m *matchRNG) shuffleStrings(s []string) {
	m.r.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}
