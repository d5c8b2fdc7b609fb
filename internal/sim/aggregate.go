package sim

import (
	"fmt"
	"io"
	"sort"

	"github.com/touatautology/card-battle-engine/internal/game"
)

// DeckStats summarizes one deck's results across a batch.
type DeckStats struct {
	Games   int     `json:"games"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Draws   int     `json:"draws"`
	WinRate float64 `json:"win_rate"` // draws count half
}

// Report is the batch-level rollup.
type Report struct {
	Matches  int                  `json:"matches"`
	SeatWins [2]int               `json:"seat_wins"`
	Draws    int                  `json:"draws"`
	AvgTurns float64              `json:"avg_turns"`
	PerDeck  map[string]DeckStats `json:"per_deck"`
	// CardAdoption counts total copies of each card across the deck pool.
	CardAdoption map[string]int `json:"card_adoption,omitempty"`
}

// Summarize folds match records into a Report.
func Summarize(records []MatchRecord, decks []game.DeckDef) Report {
	rep := Report{
		Matches: len(records),
		PerDeck: make(map[string]DeckStats),
	}

	turns := 0
	bump := func(deck string, f func(*DeckStats)) {
		st := rep.PerDeck[deck]
		f(&st)
		rep.PerDeck[deck] = st
	}

	for _, rec := range records {
		turns += rec.Turns
		bump(rec.DeckA, func(st *DeckStats) { st.Games++ })
		bump(rec.DeckB, func(st *DeckStats) { st.Games++ })

		switch rec.Winner {
		case game.ResultPlayer0Win.String():
			rep.SeatWins[0]++
			bump(rec.DeckA, func(st *DeckStats) { st.Wins++ })
			bump(rec.DeckB, func(st *DeckStats) { st.Losses++ })
		case game.ResultPlayer1Win.String():
			rep.SeatWins[1]++
			bump(rec.DeckB, func(st *DeckStats) { st.Wins++ })
			bump(rec.DeckA, func(st *DeckStats) { st.Losses++ })
		default:
			rep.Draws++
			bump(rec.DeckA, func(st *DeckStats) { st.Draws++ })
			bump(rec.DeckB, func(st *DeckStats) { st.Draws++ })
		}
	}

	if len(records) > 0 {
		rep.AvgTurns = float64(turns) / float64(len(records))
	}
	for id, st := range rep.PerDeck {
		if st.Games > 0 {
			st.WinRate = (float64(st.Wins) + 0.5*float64(st.Draws)) / float64(st.Games)
		}
		rep.PerDeck[id] = st
	}

	if len(decks) > 0 {
		rep.CardAdoption = make(map[string]int)
		for _, d := range decks {
			for _, e := range d.Entries {
				rep.CardAdoption[e.CardID] += e.Count
			}
		}
	}
	return rep
}

// WriteReport prints a Report as a plain-text table.
func WriteReport(w io.Writer, rep Report) {
	fmt.Fprintf(w, "matches: %d  draws: %d  seat wins: P0=%d P1=%d  avg turns: %.1f\n",
		rep.Matches, rep.Draws, rep.SeatWins[0], rep.SeatWins[1], rep.AvgTurns)

	ids := make([]string, 0, len(rep.PerDeck))
	for id := range rep.PerDeck {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := rep.PerDeck[ids[i]], rep.PerDeck[ids[j]]
		if si.WinRate != sj.WinRate {
			return si.WinRate > sj.WinRate
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		st := rep.PerDeck[id]
		fmt.Fprintf(w, "  %-24s %3dG %3dW %3dL %3dD  %.3f\n",
			id, st.Games, st.Wins, st.Losses, st.Draws, st.WinRate)
	}
}
