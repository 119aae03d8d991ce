// Package assessment scores the Likert questionnaires used to personalise a session.
package assessment

import (
	"math"

	"github.com/ai-anxiety-coach/server/internal/coach/model"
	errx "github.com/ai-anxiety-coach/server/internal/core/error"
)

const (
	LikertMin = 1
	LikertMax = 5

	NeuroticismItems = 6
	JobAnxietyItems  = 4

	// Upper bounds (inclusive) of the low and mid neuroticism bands.
	neuroticismLowMax = 14
	neuroticismMidMax = 22
)

const (
	msgWrongCount  = "wrong item count"
	msgOutOfRange  = "item out of range"
	maxIntensity   = 10
	likertSpanSize = LikertMax - LikertMin
)

type NeuroticismResult struct {
	Total int        `json:"total"`
	Band  model.Band `json:"band"`
}

type JobAnxietyResult struct {
	Total     int `json:"total"`
	Intensity int `json:"intensity_0_10"`
}

// DimensionResult is the score of an arbitrary-length Likert dimension.
type DimensionResult struct {
	Total     int `json:"total"`
	Intensity int `json:"intensity_0_10"`
	Count     int `json:"count"`
}

// ScoreNeuroticism scores the 6-item trait scale into a low/mid/high band.
func ScoreNeuroticism(items []int) (NeuroticismResult, error) {
	total, err := sum(items, NeuroticismItems)
	if err != nil {
		return NeuroticismResult{}, err
	}
	return NeuroticismResult{Total: total, Band: BandForTotal(total)}, nil
}

// ScoreJobAnxiety scores the 4-item job-replacement anxiety scale onto 0..10.
func ScoreJobAnxiety(items []int) (JobAnxietyResult, error) {
	total, err := sum(items, JobAnxietyItems)
	if err != nil {
		return JobAnxietyResult{}, err
	}
	return JobAnxietyResult{Total: total, Intensity: Intensity(total, JobAnxietyItems)}, nil
}

// ScoreDimension scores any non-empty Likert dimension onto 0..10.
func ScoreDimension(items []int) (DimensionResult, error) {
	if len(items) == 0 {
		return DimensionResult{}, errx.Validation(msgWrongCount)
	}
	total, err := sum(items, len(items))
	if err != nil {
		return DimensionResult{}, err
	}
	return DimensionResult{Total: total, Intensity: Intensity(total, len(items)), Count: len(items)}, nil
}

// BandForTotal maps a neuroticism total onto its band.
func BandForTotal(total int) model.Band {
	switch {
	case total <= neuroticismLowMax:
		return model.BandLow
	case total <= neuroticismMidMax:
		return model.BandMid
	default:
		return model.BandHigh
	}
}

// Intensity rescales a total of n items linearly onto 0..10, rounding half to even.
func Intensity(total, n int) int {
	if n <= 0 {
		return 0
	}
	v := int(math.RoundToEven(float64(total-n*LikertMin) / float64(likertSpanSize*n) * maxIntensity))
	return clamp(v, 0, maxIntensity)
}

func sum(items []int, want int) (int, error) {
	if len(items) != want {
		return 0, errx.Validation(msgWrongCount)
	}
	total := 0
	for _, v := range items {
		if v < LikertMin || v > LikertMax {
			return 0, errx.Validation(msgOutOfRange)
		}
		total += v
	}
	return total, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
