package patterns

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/touatautology/card-battle-engine/internal/evo"
)

// DeckInfo is the slice of a population entry mining cares about.
type DeckInfo struct {
	DeckID  string
	Cards   []string // sorted, unique
	Fitness float64
}

func deckCardSet(counts map[string]int) []string {
	cards := make([]string, 0, len(counts))
	for id := range counts {
		cards = append(cards, id)
	}
	sort.Strings(cards)
	return cards
}

// combos enumerates all k-element subsets of the sorted input, in
// lexicographic order.
func combos(items []string, k int) [][]string {
	var out [][]string
	var rec func(start int, cur []string)
	rec = func(start int, cur []string) {
		if len(cur) == k {
			out = append(out, append([]string(nil), cur...))
			return
		}
		for i := start; i <= len(items)-(k-len(cur)); i++ {
			rec(i+1, append(cur, items[i]))
		}
	}
	rec(0, nil)
	return out
}

func comboKey(cards []string) string {
	return strings.Join(cards, "|")
}

func subjectWon(s evo.MatchSummary) bool {
	return s.Won()
}

func baseWinRate(summaries []evo.MatchSummary) float64 {
	if len(summaries) == 0 {
		return 0.5
	}
	wins := 0
	for _, s := range summaries {
		if subjectWon(s) {
			wins++
		}
	}
	return float64(wins) / float64(len(summaries))
}

// ExtractCooccurrence finds card sets that recur across strong decks. Support
// counts decks containing the set; lift compares the decks' mean fitness to
// the population mean.
func ExtractCooccurrence(decks []DeckInfo, cfg *Config, summaries []evo.MatchSummary) []Pattern {
	if len(decks) == 0 {
		return nil
	}

	base := 0.0
	for _, d := range decks {
		base += d.Fitness
	}
	base /= float64(len(decks))

	deckMatches := map[string][]string{}
	for _, s := range summaries {
		if len(deckMatches[s.DeckID]) < 2 {
			deckMatches[s.DeckID] = append(deckMatches[s.DeckID], s.MatchID)
		}
	}

	type hit struct {
		deckID  string
		fitness float64
	}
	var out []Pattern
	for size := 2; size <= cfg.MaxItemsetSize; size++ {
		comboHits := map[string][]hit{}
		comboCards := map[string][]string{}
		for _, d := range decks {
			for _, combo := range combos(d.Cards, size) {
				key := comboKey(combo)
				comboHits[key] = append(comboHits[key], hit{d.DeckID, d.Fitness})
				comboCards[key] = combo
			}
		}

		keys := make([]string, 0, len(comboHits))
		for key := range comboHits {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			hits := comboHits[key]
			if len(hits) < cfg.MinSupport {
				continue
			}
			sum := 0.0
			for _, h := range hits {
				sum += h.fitness
			}
			avg := sum / float64(len(hits))
			lift := 1.0
			if base > 0 {
				lift = avg / base
			}

			var examples []string
			for _, h := range hits {
				examples = append(examples, deckMatches[h.deckID]...)
				if len(examples) >= 5 {
					break
				}
			}

			out = append(out, makePattern(TypeCooccurrence, "deck",
				Definition{Cards: comboCards[key]},
				Stats{Support: len(hits), WinRate: avg, Lift: lift},
				examples))
		}
	}
	return out
}

// sequenceTokens canonicalizes the subject player's early-game actions into
// one action list per turn.
func sequenceTokens(s evo.MatchSummary, maxTurns int) [][]string {
	subjectSeat := 0
	if s.Swapped {
		subjectSeat = 1
	}
	byTurn := map[int][]string{}
	maxSeen := 0
	for _, t := range s.Trace {
		if t.Player != subjectSeat || t.Turn > maxTurns {
			continue
		}
		byTurn[t.Turn] = append(byTurn[t.Turn], t.Action)
		if t.Turn > maxSeen {
			maxSeen = t.Turn
		}
	}
	if len(byTurn) == 0 {
		return nil
	}
	tokens := make([][]string, 0, maxSeen)
	for turn := 1; turn <= maxSeen; turn++ {
		tokens = append(tokens, byTurn[turn])
	}
	return tokens
}

// ExtractSequences mines recurring early-game action sequences from traced
// summaries. Summaries without traces are skipped; if none carry a trace the
// result is empty.
func ExtractSequences(summaries []evo.MatchSummary, cfg *Config) []Pattern {
	maxTurns := cfg.Sequence.Turns
	minSupport := cfg.Sequence.MinSupport

	seqMatches := map[string][]evo.MatchSummary{}
	for _, s := range summaries {
		tokens := sequenceTokens(s, maxTurns)
		if tokens == nil {
			continue
		}
		key, _ := json.Marshal(tokens)
		seqMatches[string(key)] = append(seqMatches[string(key)], s)
	}
	if len(seqMatches) == 0 {
		return nil
	}

	base := baseWinRate(summaries)

	keys := make([]string, 0, len(seqMatches))
	for key := range seqMatches {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []Pattern
	for _, key := range keys {
		matches := seqMatches[key]
		if len(matches) < minSupport {
			continue
		}
		var tokens [][]string
		if err := json.Unmarshal([]byte(key), &tokens); err != nil {
			continue
		}

		wins := 0
		turns := 0.0
		var examples []string
		for _, s := range matches {
			if subjectWon(s) {
				wins++
			}
			turns += float64(s.TotalTurns)
			if len(examples) < 5 {
				examples = append(examples, s.MatchID)
			}
		}
		wr := float64(wins) / float64(len(matches))
		lift := 1.0
		if base > 0 {
			lift = wr / base
		}

		out = append(out, makePattern(TypeSequence, "matchup",
			Definition{Turns: maxTurns, Tokens: tokens},
			Stats{Support: len(matches), WinRate: wr, Lift: lift, AvgTurns: turns / float64(len(matches))},
			examples))
	}
	return out
}

// ExtractCounters finds card sets that overperform against a named target
// deck: among matches versus the target, decks holding the set win more
// often than the baseline by at least the configured lift.
func ExtractCounters(summaries []evo.MatchSummary, decks []DeckInfo, cfg *Config) []Pattern {
	if len(cfg.Counter.Targets) == 0 {
		return nil
	}

	deckCards := map[string][]string{}
	for _, d := range decks {
		deckCards[d.DeckID] = d.Cards
	}
	contains := func(deckID string, combo []string) bool {
		cards := deckCards[deckID]
		for _, c := range combo {
			i := sort.SearchStrings(cards, c)
			if i >= len(cards) || cards[i] != c {
				return false
			}
		}
		return true
	}

	var out []Pattern
	for _, target := range cfg.Counter.Targets {
		var vsTarget []evo.MatchSummary
		for _, s := range summaries {
			if s.OpponentID == target {
				vsTarget = append(vsTarget, s)
			}
		}
		if len(vsTarget) == 0 {
			continue
		}
		base := baseWinRate(vsTarget)

		cardSet := map[string]bool{}
		for _, s := range vsTarget {
			for _, c := range deckCards[s.DeckID] {
				cardSet[c] = true
			}
		}
		allCards := make([]string, 0, len(cardSet))
		for c := range cardSet {
			allCards = append(allCards, c)
		}
		sort.Strings(allCards)

		for size := 1; size <= 2; size++ {
			for _, combo := range combos(allCards, size) {
				var matching []evo.MatchSummary
				for _, s := range vsTarget {
					if contains(s.DeckID, combo) {
						matching = append(matching, s)
					}
				}
				if len(matching) < cfg.MinSupport {
					continue
				}

				wins := 0
				turns := 0.0
				var examples []string
				for _, s := range matching {
					if subjectWon(s) {
						wins++
					}
					turns += float64(s.TotalTurns)
					if len(examples) < 5 {
						examples = append(examples, s.MatchID)
					}
				}
				wr := float64(wins) / float64(len(matching))
				lift := 1.0
				if base > 0 {
					lift = wr / base
				}
				if lift < cfg.Counter.MinLift {
					continue
				}

				out = append(out, makePattern(TypeCounter, "matchup",
					Definition{TargetDeckID: target, Cards: combo},
					Stats{Support: len(matching), WinRate: wr, Lift: lift, AvgTurns: turns / float64(len(matching))},
					examples))
			}
		}
	}
	return out
}

// LoadPopulations reads every gen_*_population.json under dir and keeps the
// top N decks of each generation, deduplicated by deck ID.
func LoadPopulations(dir string, topN int) ([]DeckInfo, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "gen_*_population.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []DeckInfo
	seen := map[string]bool{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var entries []evo.PopulationEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse population %s: %w", path, err)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Fitness > entries[j].Fitness
		})
		n := topN
		if n > len(entries) {
			n = len(entries)
		}
		for _, e := range entries[:n] {
			if seen[e.DeckID] {
				continue
			}
			seen[e.DeckID] = true
			out = append(out, DeckInfo{
				DeckID:  e.DeckID,
				Cards:   deckCardSet(e.Counts),
				Fitness: e.Fitness,
			})
		}
	}
	return out, nil
}

// LoadSummaries reads every gen_*_summaries.jsonl under dir.
func LoadSummaries(dir string) ([]evo.MatchSummary, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "gen_*_summaries.jsonl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []evo.MatchSummary
	for _, path := range paths {
		err := readJSONLines(path, func(line []byte) error {
			var s evo.MatchSummary
			if err := json.Unmarshal(line, &s); err != nil {
				return err
			}
			out = append(out, s)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ExtractAll runs the three extractors against an evolve artifact directory
// and, when outPath is set, writes the sorted dictionary.
func ExtractAll(artifactDir string, cfg *Config, outPath string) ([]Pattern, error) {
	decks, err := LoadPopulations(artifactDir, cfg.TopNDecks)
	if err != nil {
		return nil, err
	}
	summaries, err := LoadSummaries(artifactDir)
	if err != nil {
		return nil, err
	}

	var all []Pattern
	all = append(all, ExtractCooccurrence(decks, cfg, summaries)...)
	all = append(all, ExtractSequences(summaries, cfg)...)
	all = append(all, ExtractCounters(summaries, decks, cfg)...)

	if outPath != "" {
		meta := Meta{SourceRun: filepath.Base(artifactDir), Seed: cfg.Seed}
		if err := Write(outPath, all, meta); err != nil {
			return nil, err
		}
	}
	return all, nil
}
