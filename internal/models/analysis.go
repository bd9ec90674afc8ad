package models

import (
	"math"
	"time"
)

// AnalyzerResult is the output of one Stage 2 analyzer for one event.
// Score and Confidence are clamped to [0, 1] on construction; consumers can
// rely on the invariant without re-checking.
type AnalyzerResult struct {
	AnalyzerName string         `json:"analyzer_name"`
	Score        float64        `json:"score"`
	Confidence   float64        `json:"confidence"`
	Reason       string         `json:"reason"`
	Details      map[string]any `json:"details,omitempty"`

	// A delay suggestion asks the trigger manager to revisit the event
	// after DelaySeconds instead of deciding now.
	ShouldDelay  bool          `json:"should_delay,omitempty"`
	DelaySeconds time.Duration `json:"delay_seconds,omitempty"`
}

// NewAnalyzerResult clamps score and confidence into [0, 1].
func NewAnalyzerResult(name string, score, confidence float64, reason string, details map[string]any) AnalyzerResult {
	return AnalyzerResult{
		AnalyzerName: name,
		Score:        clamp01(score),
		Confidence:   clamp01(confidence),
		Reason:       reason,
		Details:      details,
	}
}

// ZeroResult is what a disabled analyzer reports: no signal, full confidence.
func ZeroResult(name, reason string) AnalyzerResult {
	return AnalyzerResult{AnalyzerName: name, Score: 0, Confidence: 1, Reason: reason}
}

// ComponentScore records one analyzer's weighted contribution to a TI score.
// WeightedScore is derived from Score and Weight, never set independently.
type ComponentScore struct {
	Name          string  `json:"name"`
	Score         float64 `json:"score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
	Reason        string  `json:"reason,omitempty"`
}

// NewComponentScore clamps inputs and derives the weighted score.
func NewComponentScore(name string, score, weight float64, reason string) ComponentScore {
	score = clamp01(score)
	weight = clamp01(weight)
	return ComponentScore{
		Name:          name,
		Score:         score,
		Weight:        weight,
		WeightedScore: score * weight,
		Reason:        reason,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
