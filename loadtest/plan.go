package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

const (
	ConnectionTCP = "tcp"
	ProtocolASCII = "ascii"

	TestReliability = "reliability"
	TestPerformance = "performance"
)

// Plan describes a single test against one server.
type Plan struct {
	Connection ConnectionConfig
	Command    string
	Workdir    string
	Data       map[string]GeneratorConfig
	Protocol   ProtocolConfig
	Test       TestConfig
}

type ConnectionConfig struct {
	Type                string
	Host                string
	Port                string
	TimeoutMilliseconds uint
}

type GeneratorConfig struct {
	Type  string
	Value string
	Min   int64
	Max   int64
	Seed  *uint64
	Path  string
	Split string
}

type ProtocolConfig struct {
	Type  string
	Input string
}

type TestConfig struct {
	Type string

	RepetitionCount int
	ErrorRate       string
	Output          string

	WarmupRuns                     int
	Iterations                     int
	Batches                        int
	MaxAvgResponseTimeMilliseconds float64
	MinThroughput                  float64
}

func loadPlan(filePath string) (Plan, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Plan{}, err
	}
	defer func() {
		_ = file.Close()
	}()
	return loadPlanFromReader(file)
}

func loadPlanFromReader(reader io.Reader) (Plan, error) {
	var plan Plan

	contents, err := io.ReadAll(reader)
	if err != nil {
		return plan, err
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(contents)))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&plan); err != nil {
		return plan, err
	}
	if plan.Connection.Type == "" {
		plan.Connection.Type = ConnectionTCP
	}
	if plan.Connection.Host == "" {
		plan.Connection.Host = "127.0.0.1"
	}
	if plan.Protocol.Type == "" {
		plan.Protocol.Type = ProtocolASCII
	}
	if err := validatePlan(plan); err != nil {
		return plan, err
	}
	return plan, nil
}

func validatePlan(plan Plan) error {
	var issues []string

	if plan.Connection.Type != ConnectionTCP {
		issues = append(issues,
			fmt.Sprintf("Connection.Type %q is not supported, only %q is", plan.Connection.Type, ConnectionTCP))
	}
	portVal, err := strconv.Atoi(plan.Connection.Port)
	if err != nil || portVal <= 0 || portVal > 65535 {
		issues = append(issues,
			fmt.Sprintf("Connection.Port is invalid: %q", plan.Connection.Port))
	}

	dataNames := make([]string, 0, len(plan.Data))
	for name := range plan.Data {
		dataNames = append(dataNames, name)
	}
	sort.Strings(dataNames)
	for _, name := range dataNames {
		generator := plan.Data[name]
		switch generator.Type {
		case GeneratorConstant, GeneratorRandom:
		case GeneratorFile:
			if generator.Path == "" {
				issues = append(issues,
					fmt.Sprintf("Data %q is a file generator without Path", name))
			}
		default:
			issues = append(issues,
				fmt.Sprintf("Data %q has unknown generator Type %q", name, generator.Type))
		}
	}

	if plan.Protocol.Type != ProtocolASCII {
		issues = append(issues,
			fmt.Sprintf("Protocol.Type %q is not supported, only %q is", plan.Protocol.Type, ProtocolASCII))
	}
	if _, ok := plan.Data[plan.Protocol.Input]; !ok {
		issues = append(issues,
			fmt.Sprintf("Protocol.Input refers to missing Data %q", plan.Protocol.Input))
	}

	switch plan.Test.Type {
	case TestReliability:
		if plan.Test.RepetitionCount <= 0 {
			issues = append(issues, "Test.RepetitionCount must be positive")
		}
		if _, err := parseRatio(plan.Test.ErrorRate); err != nil {
			issues = append(issues,
				fmt.Sprintf("Test.ErrorRate is invalid: %v", err))
		}
		if _, ok := plan.Data[plan.Test.Output]; !ok {
			issues = append(issues,
				fmt.Sprintf("Test.Output refers to missing Data %q", plan.Test.Output))
		}
	case TestPerformance:
		if plan.Test.WarmupRuns < 0 {
			issues = append(issues, "Test.WarmupRuns must not be negative")
		}
		if plan.Test.Iterations <= 0 {
			issues = append(issues, "Test.Iterations must be positive")
		}
		if plan.Test.Batches <= 0 {
			issues = append(issues, "Test.Batches must be positive")
		}
		if plan.Test.MaxAvgResponseTimeMilliseconds <= 0 && plan.Test.MinThroughput <= 0 {
			issues = append(issues,
				"Test sets neither MaxAvgResponseTimeMilliseconds nor MinThroughput, nothing to validate")
		}
	default:
		issues = append(issues,
			fmt.Sprintf("Test.Type %q is not one of %q, %q", plan.Test.Type, TestReliability, TestPerformance))
	}

	if plan.Workdir != "" && plan.Command == "" {
		issues = append(issues, "Workdir is set but Command is empty")
	}

	if len(issues) > 0 {
		return errors.New(" - " + strings.Join(issues, "\n - "))
	}
	return nil
}
