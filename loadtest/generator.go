package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	GeneratorConstant = "constant"
	GeneratorRandom   = "random"
	GeneratorFile     = "file"
)

// Generator produces the value used at a given position of a run. Inputs and
// expected outputs share positions so they stay aligned.
type Generator interface {
	Next(position int) string
}

type constantGenerator struct {
	value string
}

func (g constantGenerator) Next(int) string {
	return g.value
}

type randomGenerator struct {
	rng *rand.Rand
	min int64
	max int64
}

func (g *randomGenerator) Next(int) string {
	return strconv.FormatInt(g.min+g.rng.Int64N(g.max-g.min+1), 10)
}

type fileGenerator struct {
	lines []string
}

func (g fileGenerator) Next(position int) string {
	return g.lines[position%len(g.lines)]
}

// newGenerator builds a generator from its plan entry. Relative file paths
// are resolved against baseDir.
func newGenerator(cfg GeneratorConfig, baseDir string) (Generator, error) {
	switch cfg.Type {
	case GeneratorConstant:
		return constantGenerator{value: cfg.Value}, nil
	case GeneratorRandom:
		if cfg.Max < cfg.Min {
			return nil, fmt.Errorf("random generator Max %d is less than Min %d", cfg.Max, cfg.Min)
		}
		if cfg.Max-cfg.Min+1 <= 0 {
			return nil, fmt.Errorf("random generator range [%d, %d] is too large", cfg.Min, cfg.Max)
		}
		seed := uint64(time.Now().UnixNano())
		if cfg.Seed != nil {
			seed = *cfg.Seed
		}
		return &randomGenerator{
			rng: rand.New(rand.NewPCG(seed, seed)),
			min: cfg.Min,
			max: cfg.Max,
		}, nil
	case GeneratorFile:
		return newFileGenerator(cfg, baseDir)
	default:
		return nil, fmt.Errorf("unknown generator type %q", cfg.Type)
	}
}

func newFileGenerator(cfg GeneratorConfig, baseDir string) (Generator, error) {
	path := cfg.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	separator := cfg.Split
	if separator == "" || separator == "newline" {
		separator = "\n"
	}
	lines := strings.Split(string(contents), separator)
	// a file that ends with the separator does not contribute an empty value
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 1 && lines[0] == "" {
		return nil, fmt.Errorf("generator file %s is empty", path)
	}
	return fileGenerator{lines: lines}, nil
}
