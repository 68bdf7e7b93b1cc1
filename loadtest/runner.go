package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of one plan.
type Result struct {
	Name    string
	Type    string
	Passed  bool
	Metrics map[string]float64
}

func (r Result) state() string {
	if r.Passed {
		return "success"
	}
	return "failed"
}

func formatMetrics(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+strconv.FormatFloat(metrics[name], 'f', -1, 64))
	}
	return strings.Join(parts, ", ")
}

type executor struct {
	connection Connection
	input      Generator
}

func (e *executor) run(ctx context.Context, position int) (string, time.Duration, error) {
	payload := []byte(e.input.Next(position))
	startTime := time.Now()
	reply, err := e.connection.Send(ctx, payload)
	return string(reply), time.Since(startTime), err
}

// runPlan builds the generators, starts the target server when the plan has
// a Command and runs the configured test.
func runPlan(ctx context.Context, name string, plan Plan, baseDir string, verbose bool, targetOutput io.Writer) (Result, error) {
	generators := make(map[string]Generator, len(plan.Data))
	for dataName, generatorConfig := range plan.Data {
		generator, err := newGenerator(generatorConfig, baseDir)
		if err != nil {
			return Result{}, fmt.Errorf("data %q: %w", dataName, err)
		}
		generators[dataName] = generator
	}

	connection := newTCPConnection(plan.Connection)
	if plan.Command != "" {
		workdir := plan.Workdir
		if workdir != "" && !filepath.IsAbs(workdir) {
			workdir = filepath.Join(baseDir, workdir)
		}
		t, err := startTarget(name, plan.Command, workdir, connection.address, targetOutput)
		if err != nil {
			return Result{}, err
		}
		defer t.stop()
	}

	e := &executor{connection: connection, input: generators[plan.Protocol.Input]}
	switch plan.Test.Type {
	case TestReliability:
		return runReliability(ctx, name, e, generators[plan.Test.Output], plan.Test, verbose)
	case TestPerformance:
		return runPerformance(ctx, name, e, plan.Test, verbose)
	default:
		return Result{}, fmt.Errorf("unknown test type %q", plan.Test.Type)
	}
}

// runReliability compares every reply with the expected output at the same
// position and passes when the error rate stays within the plan's limit.
func runReliability(ctx context.Context, name string, e *executor, expectedOutput Generator, cfg TestConfig, verbose bool) (Result, error) {
	maxErrorRate, err := parseRatio(cfg.ErrorRate)
	if err != nil {
		return Result{}, err
	}

	errorCount := 0
	for position := 0; position < cfg.RepetitionCount; position++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		output, _, err := e.run(ctx, position)
		expected := expectedOutput.Next(position)
		if err != nil {
			errorCount++
			if verbose {
				log.Printf("[loadtest][%s] Request %d failed: %v", name, position, err)
			}
			continue
		}
		if strings.TrimSpace(output) != strings.TrimSpace(expected) {
			errorCount++
			if verbose {
				log.Printf("[loadtest][%s] Request %d: expected %q, got %q", name, position, expected, output)
			}
		}
	}

	errorRate := float64(errorCount) / float64(cfg.RepetitionCount)
	return Result{
		Name:   name,
		Type:   TestReliability,
		Passed: errorRate <= maxErrorRate,
		Metrics: map[string]float64{
			"requests":    float64(cfg.RepetitionCount),
			"error_count": float64(errorCount),
			"error_rate":  errorRate,
		},
	}, nil
}

type batchStats struct {
	requests int
	errors   int
	total    time.Duration
}

func (b *batchStats) add(other batchStats) {
	b.requests += other.requests
	b.errors += other.errors
	b.total += other.total
}

func (b batchStats) avgResponseTimeMilliseconds() float64 {
	if b.requests == 0 {
		return 0
	}
	return float64(b.total.Microseconds()) / 1000 / float64(b.requests)
}

func (b batchStats) throughput() float64 {
	if b.total <= 0 {
		return 0
	}
	return float64(b.requests) / b.total.Seconds()
}

func (b batchStats) String() string {
	return fmt.Sprintf("avg_response_time_ms=%.3f, throughput=%.1f, errors=%d",
		b.avgResponseTimeMilliseconds(), b.throughput(), b.errors)
}

// runPerformance runs the warmup, then Batches batches of Iterations
// requests. Warmup numbers are logged but not validated.
func runPerformance(ctx context.Context, name string, e *executor, cfg TestConfig, verbose bool) (Result, error) {
	position := 0
	measure := func(count int) (batchStats, error) {
		var stats batchStats
		for i := 0; i < count; i++ {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			_, elapsed, err := e.run(ctx, position)
			stats.requests++
			stats.total += elapsed
			if err != nil {
				stats.errors++
				if verbose {
					log.Printf("[loadtest][%s] Request %d failed: %v", name, position, err)
				}
			}
			position++
		}
		return stats, nil
	}

	if cfg.WarmupRuns > 0 {
		log.Printf("[loadtest][%s] Performance test warming up", name)
		warmup, err := measure(cfg.WarmupRuns)
		if err != nil {
			return Result{}, err
		}
		log.Printf("[loadtest][%s] Metrics for warming up: %s", name, warmup)
	}

	log.Printf("[loadtest][%s] Performance test main load", name)
	var overall batchStats
	for batch := 0; batch < cfg.Batches; batch++ {
		stats, err := measure(cfg.Iterations)
		if err != nil {
			return Result{}, err
		}
		log.Printf("[loadtest][%s] Metrics for batch %d: %s", name, batch, stats)
		overall.add(stats)
	}

	avgResponseTime := overall.avgResponseTimeMilliseconds()
	throughput := overall.throughput()
	passed := overall.errors == 0 &&
		(cfg.MaxAvgResponseTimeMilliseconds <= 0 || avgResponseTime <= cfg.MaxAvgResponseTimeMilliseconds) &&
		(cfg.MinThroughput <= 0 || throughput >= cfg.MinThroughput)

	return Result{
		Name:   name,
		Type:   TestPerformance,
		Passed: passed,
		Metrics: map[string]float64{
			"requests":             float64(overall.requests),
			"error_count":          float64(overall.errors),
			"avg_response_time_ms": avgResponseTime,
			"throughput":           throughput,
		},
	}, nil
}
