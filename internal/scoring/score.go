// Package scoring holds deterministic, backend-independent scorers.
// Every scorer recomputes from its inputs on each call and keeps no state.
package scoring

import (
	"fmt"
	"strings"
)

const (
	minScore = 0
	maxScore = 100
)

// Factor is one recorded contribution to a score
type Factor struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	Value        string  `json:"value"`
	Contribution int     `json:"contribution"`
}

// Score is an explainable integer score in [0,100]
type Score struct {
	Score     int      `json:"score"`
	Factors   []Factor `json:"factors"`
	Reasoning string   `json:"reasoning"`
}

// builder accumulates factors in order. Factors are only ever appended.
type builder struct {
	total   int
	factors []Factor
}

func newBuilder(base int) *builder {
	return &builder{
		total:   base,
		factors: []Factor{{Name: "base", Weight: 1, Value: fmt.Sprintf("%d", base), Contribution: base}},
	}
}

func (b *builder) add(name string, weight float64, value string, contribution int) {
	b.total += contribution
	b.factors = append(b.factors, Factor{
		Name:         name,
		Weight:       weight,
		Value:        value,
		Contribution: contribution,
	})
}

func (b *builder) score() Score {
	final := clampInt(b.total, minScore, maxScore)
	return Score{
		Score:     final,
		Factors:   b.factors,
		Reasoning: reasoning(b.factors, b.total, final),
	}
}

func reasoning(factors []Factor, raw, final int) string {
	var parts []string
	for _, f := range factors[1:] {
		if f.Contribution == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %+d", f.Name, f.Contribution))
	}
	summary := fmt.Sprintf("base %d", factors[0].Contribution)
	if len(parts) > 0 {
		summary += ", " + strings.Join(parts, ", ")
	}
	if raw != final {
		return fmt.Sprintf("%s = %d, clamped to %d", summary, raw, final)
	}
	return fmt.Sprintf("%s = %d", summary, final)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
