package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/touatautology/card-battle-engine/internal/agent"
	"github.com/touatautology/card-battle-engine/internal/cardgen"
	"github.com/touatautology/card-battle-engine/internal/cycle"
	"github.com/touatautology/card-battle-engine/internal/evo"
	"github.com/touatautology/card-battle-engine/internal/game"
	"github.com/touatautology/card-battle-engine/internal/loader"
	"github.com/touatautology/card-battle-engine/internal/log"
	"github.com/touatautology/card-battle-engine/internal/patterns"
	"github.com/touatautology/card-battle-engine/internal/promotion"
	"github.com/touatautology/card-battle-engine/internal/replay"
	"github.com/touatautology/card-battle-engine/internal/sim"
	"github.com/touatautology/card-battle-engine/internal/telemetry"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "play":
		runPlay(os.Args[2:])
	case "simulate":
		runSimulate(os.Args[2:])
	case "evolve":
		runEvolve(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "replay":
		runReplay(os.Args[2:])
	case "patterns":
		runPatterns(os.Args[2:])
	case "cardgen":
		runCardgen(os.Args[2:])
	case "promote":
		runPromote(os.Args[2:])
	case "cycle":
		runCycle(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  cardbattle play     [--cards FILE] --deck-a FILE --deck-b FILE [--seed N] [--agent-a P] [--agent-b P] [--replay FILE] [--verbose]")
	fmt.Println("  cardbattle simulate [--config FILE | --cards FILE --decks A,B,... flags]")
	fmt.Println("  cardbattle evolve   --config FILE")
	fmt.Println("  cardbattle stats    --in matches.jsonl")
	fmt.Println("  cardbattle replay   --in replay.jsonl [--from N] [--to N]")
	fmt.Println("  cardbattle patterns --artifacts DIR [--config FILE] [--out FILE]")
	fmt.Println("  cardbattle cardgen  --patterns FILE --pool FILE --targets A,B,... --constraints FILE [--config FILE] [--out DIR]")
	fmt.Println("  cardbattle promote  --selected FILE --pool FILE --targets A,B,... [--config FILE] [--out DIR]")
	fmt.Println("  cardbattle cycle    --config FILE [--out DIR]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  play      Run one match and print the outcome")
	fmt.Println("  simulate  Round-robin a deck pool and report win rates")
	fmt.Println("  evolve    Evolve decks against each other")
	fmt.Println("  stats     Aggregate telemetry from a simulation output")
	fmt.Println("  replay    Render a recorded match as a transcript")
	fmt.Println("  patterns  Mine winning patterns from evolution artifacts")
	fmt.Println("  cardgen   Generate and adoption-test candidate cards")
	fmt.Println("  promote   Gate selected candidates into the card pool")
	fmt.Println("  cycle     Run the full evolve-mine-generate-promote loop")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadCatalog(path string) (game.Catalog, game.Resolver) {
	resolver := game.DefaultResolver()
	catalog, err := loader.LoadCards(path, resolver)
	if err != nil {
		fatal(err)
	}
	return catalog, resolver
}

func runPlay(args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	cards := fs.String("cards", "data/cards.json", "card catalog file")
	deckA := fs.String("deck-a", "", "seat 0 deck file")
	deckB := fs.String("deck-b", "", "seat 1 deck file")
	seed := fs.Int64("seed", 1, "match seed")
	agentA := fs.String("agent-a", "greedy", "seat 0 agent (greedy|simple|random)")
	agentB := fs.String("agent-b", "greedy", "seat 1 agent")
	replayPath := fs.String("replay", "", "write a JSONL replay to this file")
	verbose := fs.Bool("verbose", false, "print the event log while playing")
	showTelemetry := fs.Bool("telemetry", false, "print the telemetry summary")
	fs.Parse(args)

	if *deckA == "" || *deckB == "" {
		fatal(fmt.Errorf("play: --deck-a and --deck-b are required"))
	}

	catalog, resolver := loadCatalog(*cards)
	da, err := loader.LoadDeck(*deckA, catalog)
	if err != nil {
		fatal(err)
	}
	db, err := loader.LoadDeck(*deckB, catalog)
	if err != nil {
		fatal(err)
	}

	a0, err := agent.ByName(*agentA, *seed)
	if err != nil {
		fatal(err)
	}
	a1, err := agent.ByName(*agentB, *seed+1)
	if err != nil {
		fatal(err)
	}

	gs := game.NewGame(catalog, resolver, da, db, *seed)

	tel := telemetry.NewMatch()
	gs.Attach(tel)
	if *verbose {
		gs.Attach(game.NewEventRecorder(log.NewTextLogger(os.Stdout)))
	}

	var replayFile *os.File
	var rw *replay.Writer
	if *replayPath != "" {
		replayFile, err = os.Create(*replayPath)
		if err != nil {
			fatal(fmt.Errorf("create replay file: %w", err))
		}
		rw = replay.NewWriter(replayFile)
		gs.Attach(rw)
	}

	ml, err := game.Run(gs, [2]game.Agent{a0, a1}, false)
	if err != nil {
		fatal(err)
	}

	if rw != nil {
		if err := rw.Err(); err != nil {
			fatal(err)
		}
		if err := replayFile.Close(); err != nil {
			fatal(err)
		}
	}

	fmt.Printf("%s vs %s: %s (%s) after %d turns, HP %d/%d\n",
		ml.DeckIDs[0], ml.DeckIDs[1], ml.Winner, ml.Reason, ml.Turns, ml.FinalHP[0], ml.FinalHP[1])

	if *showTelemetry {
		summary := tel.Summary()
		keys := make([]string, 0, len(summary))
		for k := range summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-28s %g\n", k, summary[k])
		}
	}
}

func runSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML simulation config")
	cards := fs.String("cards", "data/cards.json", "card catalog file")
	decks := fs.String("decks", "", "comma-separated deck files")
	games := fs.Int("games", 20, "games per deck pairing")
	seed := fs.Int64("seed", 1, "base seed")
	workers := fs.Int("workers", 0, "parallel workers (0 = all CPUs)")
	agentA := fs.String("agent-a", "greedy", "seat 0 agent")
	agentB := fs.String("agent-b", "greedy", "seat 1 agent")
	out := fs.String("out", "", "output directory for match logs")
	fs.Parse(args)

	var cfg *sim.Config
	if *configPath != "" {
		loaded, err := sim.LoadConfig(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	} else {
		if *decks == "" {
			fatal(fmt.Errorf("simulate: --config or --decks is required"))
		}
		cfg = &sim.Config{
			CardsPath:    *cards,
			DeckPaths:    strings.Split(*decks, ","),
			GamesPerPair: *games,
			BaseSeed:     *seed,
			Workers:      *workers,
			AgentA:       *agentA,
			AgentB:       *agentB,
			OutDir:       *out,
		}
		cfg.Defaults()
		if err := cfg.Validate(); err != nil {
			fatal(err)
		}
	}

	catalog, resolver := loadCatalog(cfg.CardsPath)
	deckDefs := make([]game.DeckDef, len(cfg.DeckPaths))
	for i, path := range cfg.DeckPaths {
		d, err := loader.LoadDeck(path, catalog)
		if err != nil {
			fatal(err)
		}
		deckDefs[i] = d
	}

	runner := &sim.Runner{Catalog: catalog, Resolver: resolver, Decks: deckDefs, Cfg: cfg}
	res, err := runner.Run(context.Background())
	if err != nil {
		fatal(err)
	}

	fmt.Printf("run %s\n", res.RunID)
	sim.WriteReport(os.Stdout, sim.Summarize(res.Records, deckDefs))

	if cfg.OutDir != "" {
		if err := sim.WriteJSONL(filepath.Join(cfg.OutDir, "matches.jsonl"), res.Records); err != nil {
			fatal(err)
		}
		if err := sim.WriteParquet(filepath.Join(cfg.OutDir, "matches.parquet"), sim.Rows(res)); err != nil {
			fatal(err)
		}
		fmt.Printf("wrote %s/matches.jsonl and %s/matches.parquet\n", cfg.OutDir, cfg.OutDir)
	}
}

func runEvolve(args []string) {
	fs := flag.NewFlagSet("evolve", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML evolution config")
	out := fs.String("out", "", "override the config's output directory")
	fs.Parse(args)

	if *configPath == "" {
		fatal(fmt.Errorf("evolve: --config is required"))
	}
	cfg, err := evo.LoadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	if *out != "" {
		cfg.OutDir = *out
	}

	catalog, resolver := loadCatalog(cfg.CardsPath)
	runner := &evo.Runner{Catalog: catalog, Resolver: resolver, Cfg: cfg, Progress: os.Stdout}
	res, err := runner.Run(context.Background())
	if err != nil {
		fatal(err)
	}

	fmt.Printf("run %s: best deck %s (fitness %.3f)\n", res.RunID, res.BestDeck.ID, res.BestFitness)
	for _, e := range res.BestDeck.Entries {
		fmt.Printf("  %dx %s\n", e.Count, e.CardID)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	in := fs.String("in", "", "matches.jsonl from a simulation run")
	fs.Parse(args)

	if *in == "" {
		fatal(fmt.Errorf("stats: --in is required"))
	}
	records, err := sim.ReadJSONL(*in)
	if err != nil {
		fatal(err)
	}

	sim.WriteReport(os.Stdout, sim.Summarize(records, nil))

	var summaries []map[string]float64
	for _, rec := range records {
		if rec.Summary != nil {
			summaries = append(summaries, rec.Summary)
		}
	}
	if len(summaries) == 0 {
		fmt.Println("no telemetry in input")
		return
	}
	stats := telemetry.Aggregate(summaries)
	fmt.Println()
	for _, k := range telemetry.Keys(stats) {
		st := stats[k]
		fmt.Printf("  %-28s mean=%8.2f min=%6g max=%6g\n", k, st.Mean, st.Min, st.Max)
	}
}

func runReplay(args []string) {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	in := fs.String("in", "", "JSONL replay file")
	from := fs.Int("from", 0, "first turn to show")
	to := fs.Int("to", 0, "last turn to show (0 = end)")
	fs.Parse(args)

	if *in == "" {
		fatal(fmt.Errorf("replay: --in is required"))
	}
	f, err := os.Open(*in)
	if err != nil {
		fatal(err)
	}
	defer f.Close()

	recs, err := replay.Read(f)
	if err != nil {
		fatal(err)
	}
	if err := replay.Render(os.Stdout, recs, *from, *to); err != nil {
		fatal(err)
	}
}

func runPatterns(args []string) {
	fs := flag.NewFlagSet("patterns", flag.ExitOnError)
	artifacts := fs.String("artifacts", "", "evolution output directory to mine")
	configPath := fs.String("config", "", "YAML pattern-mining config")
	out := fs.String("out", "patterns.json", "output pattern dictionary")
	fs.Parse(args)

	if *artifacts == "" {
		fatal(fmt.Errorf("patterns: --artifacts is required"))
	}
	cfg := &patterns.Config{}
	cfg.Defaults()
	if *configPath != "" {
		loaded, err := patterns.LoadConfig(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}

	pats, err := patterns.ExtractAll(*artifacts, cfg, *out)
	if err != nil {
		fatal(err)
	}
	byType := map[string]int{}
	for _, p := range pats {
		byType[p.Type]++
	}
	fmt.Printf("mined %d patterns (%d cooccurrence, %d sequence, %d counter) -> %s\n",
		len(pats), byType[patterns.TypeCooccurrence], byType[patterns.TypeSequence],
		byType[patterns.TypeCounter], *out)
}

func runCardgen(args []string) {
	fs := flag.NewFlagSet("cardgen", flag.ExitOnError)
	patternsPath := fs.String("patterns", "", "pattern dictionary from a mining run")
	pool := fs.String("pool", "data/cards.json", "card pool file")
	targets := fs.String("targets", "", "comma-separated target deck files")
	constraints := fs.String("constraints", "data/constraints.json", "design-space constraints")
	configPath := fs.String("config", "", "YAML generation config")
	out := fs.String("out", "cardgen_out", "output directory")
	fs.Parse(args)

	if *patternsPath == "" || *targets == "" {
		fatal(fmt.Errorf("cardgen: --patterns and --targets are required"))
	}
	cfg := &cardgen.Config{}
	cfg.Defaults()
	if *configPath != "" {
		loaded, err := cardgen.LoadConfig(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}

	sum, err := cardgen.Run(context.Background(), cardgen.RunInput{
		PatternsPath:    *patternsPath,
		PoolPath:        *pool,
		TargetPaths:     strings.Split(*targets, ","),
		ConstraintsPath: *constraints,
		Config:          cfg,
		OutDir:          *out,
		Progress:        os.Stdout,
	})
	if err != nil {
		fatal(err)
	}
	fmt.Printf("generated %d candidates, %d survived diversity, %d selected -> %s\n",
		sum.TotalBase+sum.TotalMutated, sum.TotalAfterDiversity, sum.TotalSelected, *out)
}

func runPromote(args []string) {
	fs := flag.NewFlagSet("promote", flag.ExitOnError)
	selected := fs.String("selected", "", "selected_cards.json from a cardgen run")
	pool := fs.String("pool", "data/cards.json", "card pool file")
	targets := fs.String("targets", "", "comma-separated target deck files")
	configPath := fs.String("config", "", "YAML promotion config")
	out := fs.String("out", "promotion_out", "output directory")
	fs.Parse(args)

	if *selected == "" || *targets == "" {
		fatal(fmt.Errorf("promote: --selected and --targets are required"))
	}
	cfg := &promotion.Config{}
	cfg.Defaults()
	if *configPath != "" {
		loaded, err := promotion.LoadConfig(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}

	res, err := promotion.Run(context.Background(), promotion.RunInput{
		SelectedPath: *selected,
		PoolPath:     *pool,
		TargetPaths:  strings.Split(*targets, ","),
		Config:       cfg,
		OutDir:       *out,
		Progress:     os.Stdout,
	})
	if err != nil {
		fatal(err)
	}
	fmt.Printf("gate_passed=%v cards_added=%d reason=%s\n", res.GatePassed, res.CardsAdded, res.ExitReason)
	if !res.GatePassed {
		os.Exit(1)
	}
}

func runCycle(args []string) {
	fs := flag.NewFlagSet("cycle", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML cycle config")
	out := fs.String("out", "cycle_out", "output directory")
	fs.Parse(args)

	if *configPath == "" {
		fatal(fmt.Errorf("cycle: --config is required"))
	}
	cfg, err := cycle.LoadConfig(*configPath)
	if err != nil {
		fatal(err)
	}

	runner := &cycle.Runner{Cfg: cfg, OutDir: *out, Progress: os.Stdout}
	sum, err := runner.Run(context.Background())
	if err != nil {
		fatal(err)
	}
	fmt.Printf("%d cycles: %d gates passed, %d failed, %d cards added (final pool %s)\n",
		sum.TotalCycles, sum.GatesPassed, sum.GatesFailed, sum.TotalCardsAdded, sum.FinalPoolHash)
}
