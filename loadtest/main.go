package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

func main() {
	verbose := flag.Bool("v", false, "log every failed or mismatched request")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-v] plan.jsonc [plan.jsonc ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	failed := false
	for _, planPath := range flag.Args() {
		name := filepath.Base(planPath)
		log.Printf("[loadtest][%s] Executing test", name)
		result, err := runPlanFile(ctx, planPath, *verbose)
		if err != nil {
			log.Printf("[loadtest][%s] ERROR: %v", name, err)
			failed = true
			continue
		}
		log.Printf("[loadtest][%s] Got result, metrics: %s, state: %s", name, formatMetrics(result.Metrics), result.state())
		if !result.Passed {
			failed = true
		}
	}
	if failed {
		cancel()
		os.Exit(1)
	}
}

func runPlanFile(ctx context.Context, planPath string, verbose bool) (Result, error) {
	plan, err := loadPlan(planPath)
	if err != nil {
		return Result{}, fmt.Errorf("error loading plan:\n%w", err)
	}
	return runPlan(ctx, filepath.Base(planPath), plan, filepath.Dir(planPath), verbose, os.Stderr)
}
