package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"emissions-mcp/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "development", "Scenario to generate: "+strings.Join(engine.Scenarios(), ", "))
	distribution := flag.String("distribution", "uniform", "Duration distribution: uniform, weibull")
	outDir := flag.String("out", "./plans", "Output directory for plan files")
	wells := flag.Int("wells", 1, "Number of wells in the campaign")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	start := flag.String("start", time.Now().Format("2006-01-02"), "Plan start date (YYYY-MM-DD)")
	flag.Parse()

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		fmt.Printf("Invalid start date: %v\n", err)
		os.Exit(1)
	}

	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Distribution: *distribution,
		Seed:         *seed,
		Start:        startDate,
		Wells:        *wells,
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Wells: %d, Seed: %d) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Wells, cfg.Seed, *outDir)

	plan, err := engine.Generate(cfg)
	if err != nil {
		fmt.Printf("Failed to generate plan: %v\n", err)
		os.Exit(1)
	}

	path, err := engine.Save(*outDir, plan)
	if err != nil {
		fmt.Printf("Failed to save plan: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %s (%d steps)\n", path, len(plan.Steps))
}
