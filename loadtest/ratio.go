package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseRatio reads an error rate written as a fraction ("1/1000"), a
// percentage ("0.5%") or a plain number ("0.001"). The result is in [0, 1].
func parseRatio(value string) (float64, error) {
	text := strings.Join(strings.Fields(value), "")
	if text == "" {
		return 0, fmt.Errorf("empty ratio")
	}

	var ratio float64
	switch {
	case strings.HasSuffix(text, "%"):
		percentage, err := strconv.ParseFloat(strings.TrimSuffix(text, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid percentage %q: %w", value, err)
		}
		ratio = percentage / 100
	case strings.Contains(text, "/"):
		numeratorText, denominatorText, _ := strings.Cut(text, "/")
		numerator, err := strconv.ParseFloat(numeratorText, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numerator in %q: %w", value, err)
		}
		denominator, err := strconv.ParseFloat(denominatorText, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid denominator in %q: %w", value, err)
		}
		if denominator == 0 {
			return 0, fmt.Errorf("zero denominator in %q", value)
		}
		ratio = numerator / denominator
	default:
		parsed, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ratio %q: %w", value, err)
		}
		ratio = parsed
	}

	if ratio < 0 || ratio > 1 {
		return 0, fmt.Errorf("ratio %q is outside of [0, 1]", value)
	}
	return ratio, nil
}
