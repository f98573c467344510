// Package decision scores and ranks competing options with the conqueror
// formula, inflating risk for option categories that have burned the agent
// before.
package decision

import (
	"math"
	"sort"
)

// ScoreInput holds the parameters of one option.
type ScoreInput struct {
	Impact            float64
	Certainty         float64
	Reversibility     float64
	Risk              float64
	Capital           float64
	TimeCost          float64
	HistoricalPenalty float64
	ScarCount         int64
}

// Score computes the conqueror score:
//
//	(impact^1.5 * certainty * reversibility) /
//	(risk*(1+2*scars) * capital * time_cost * historical_penalty)
//
// Each recorded scar for the option's category doubles the effective risk
// weight. Any zero denominator factor yields 0 rather than an error.
// The result is rounded to 2 decimals.
func Score(in ScoreInput) float64 {
	adjustedRisk := in.Risk * (1 + 2*float64(in.ScarCount))

	denominator := adjustedRisk * in.Capital * in.TimeCost * in.HistoricalPenalty
	if denominator == 0 {
		return 0
	}

	numerator := math.Pow(in.Impact, 1.5) * in.Certainty * in.Reversibility
	return math.Round(numerator/denominator*100) / 100
}

// Option is a named candidate with its scoring parameters.
type Option struct {
	Name string
	ScoreInput
}

// Ranked is an option with its computed score and rank position.
type Ranked struct {
	Name        string
	Score       float64
	ScarCount   int64
	Recommended bool
}

// Rank scores a batch of options and orders them descending by score.
// The sort is stable, so equal scores keep their input order, and the top
// entry is labeled as the recommended choice.
func Rank(options []Option) []Ranked {
	ranked := make([]Ranked, len(options))
	for i, opt := range options {
		ranked[i] = Ranked{
			Name:      opt.Name,
			Score:     Score(opt.ScoreInput),
			ScarCount: opt.ScarCount,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > 0 {
		ranked[0].Recommended = true
	}
	return ranked
}
