package models

import (
	"time"

	"github.com/google/uuid"
)

// TILevel is the sensitivity tier derived from a TI score.
type TILevel string

const (
	TILevelHigh    TILevel = "high"    // ti > 0.7
	TILevelMedium  TILevel = "medium"  // 0.4 < ti <= 0.7
	TILevelLow     TILevel = "low"     // 0.2 < ti <= 0.4
	TILevelMinimal TILevel = "minimal" // ti <= 0.2
)

// DeriveTILevel maps a score onto its tier. The breakpoints are fixed; the
// mapping is a pure function of the score.
func DeriveTILevel(score float64) TILevel {
	switch {
	case score > 0.7:
		return TILevelHigh
	case score > 0.4:
		return TILevelMedium
	case score > 0.2:
		return TILevelLow
	default:
		return TILevelMinimal
	}
}

// TIResult is the aggregated Taboo Index for one activity event. Created
// once by the calculator and immutable afterward.
type TIResult struct {
	EventID         uuid.UUID                 `json:"event_id"`
	TIScore         float64                   `json:"ti_score"`
	TILevel         TILevel                   `json:"ti_level"`
	Confidence      float64                   `json:"confidence"`
	ShouldDelay     bool                      `json:"should_delay"`
	DelaySeconds    time.Duration             `json:"delay_seconds"`
	ComponentScores map[string]ComponentScore `json:"component_scores"`
}

// TIResultFromScores computes the weighted mean over component scores:
// sum(score*weight)/sum(weight), or 0 when no weights contributed.
func TIResultFromScores(
	eventID uuid.UUID,
	components map[string]ComponentScore,
	confidence float64,
	shouldDelay bool,
	delaySeconds time.Duration,
) TIResult {
	totalWeighted := 0.0
	totalWeight := 0.0
	for _, c := range components {
		totalWeighted += c.WeightedScore
		totalWeight += c.Weight
	}

	score := 0.0
	if totalWeight > 0 {
		score = totalWeighted / totalWeight
	}
	score = clamp01(score)

	return TIResult{
		EventID:         eventID,
		TIScore:         score,
		TILevel:         DeriveTILevel(score),
		Confidence:      clamp01(confidence),
		ShouldDelay:     shouldDelay,
		DelaySeconds:    delaySeconds,
		ComponentScores: components,
	}
}
