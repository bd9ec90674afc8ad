// Package engine wires the cascade together: Stage 1 filters, Stage 2
// analyzers folded into a Taboo Index, and Stage 3 trigger decisions.
package engine

import (
	"io"
	"log/slog"
	"time"

	"github.com/senatus-ai/senatus/internal/analyzers"
	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// Default analyzer weights. They sum to 1.0; visual carries the most weight
// because screen content is the strongest sensitivity signal, uncertainty
// the least because it measures ignorance rather than risk.
const (
	WeightMetadata      = 0.25
	WeightVisual        = 0.35
	WeightContextSwitch = 0.15
	WeightFrameDiff     = 0.15
	WeightUncertainty   = 0.10
)

// CalculatorStats is the running aggregate over computed TI results.
type CalculatorStats struct {
	TotalCalculated int     `json:"total_calculated"`
	AvgTIScore      float64 `json:"avg_ti_score"`
	HighCount       int     `json:"high_count"`
	MediumCount     int     `json:"medium_count"`
	LowCount        int     `json:"low_count"`
	MinimalCount    int     `json:"minimal_count"`
}

// TICalculator runs every enabled analyzer over an event and folds the
// results into one TIResult: weighted mean score, minimum confidence,
// maximum requested delay.
type TICalculator struct {
	analyzerList []analyzers.Analyzer
	logger       *slog.Logger
	stats        CalculatorStats
}

// NewTICalculator builds a calculator. A nil or empty analyzer list installs
// the default five-analyzer set; a nil logger discards debug output.
func NewTICalculator(list []analyzers.Analyzer, logger *slog.Logger) *TICalculator {
	if len(list) == 0 {
		list = DefaultAnalyzers()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TICalculator{analyzerList: list, logger: logger}
}

// DefaultAnalyzers returns the standard analyzer set with default weights.
func DefaultAnalyzers() []analyzers.Analyzer {
	return []analyzers.Analyzer{
		analyzers.NewMetadataAnalyzer(analyzers.MetadataOptions{Weight: WeightMetadata}),
		analyzers.NewVisualAnalyzer(WeightVisual, nil),
		analyzers.NewContextSwitchAnalyzer(analyzers.ContextSwitchOptions{Weight: WeightContextSwitch}),
		analyzers.NewFrameDiffAnalyzer(WeightFrameDiff, 0),
		analyzers.NewUncertaintyAnalyzer(analyzers.UncertaintyOptions{Weight: WeightUncertainty}),
	}
}

// Analyzers returns the analyzer list. Callers may mutate weight and enable
// flags but must not do so concurrently with Calculate.
func (c *TICalculator) Analyzers() []analyzers.Analyzer {
	return c.analyzerList
}

// Calculate runs the enabled analyzers and aggregates their results.
// Disabled analyzers contribute nothing.
func (c *TICalculator) Calculate(event *models.ActivityEvent, img *imaging.Plane) models.TIResult {
	components := make(map[string]models.ComponentScore, len(c.analyzerList))
	minConfidence := 1.0
	shouldDelay := false
	var delaySeconds time.Duration

	for _, analyzer := range c.analyzerList {
		if !analyzer.Enabled() {
			continue
		}

		result := analyzer.Analyze(event, img)
		components[analyzer.Name()] = models.NewComponentScore(
			analyzer.Name(), result.Score, analyzer.Weight(), result.Reason,
		)

		if result.ShouldDelay {
			shouldDelay = true
			if result.DelaySeconds > delaySeconds {
				delaySeconds = result.DelaySeconds
			}
		}
		if result.Confidence < minConfidence {
			minConfidence = result.Confidence
		}
	}

	tiResult := models.TIResultFromScores(event.ID, components, minConfidence, shouldDelay, delaySeconds)
	c.updateStats(tiResult)

	c.logger.Debug("ti calculated",
		"event_id", event.ID,
		"ti_score", tiResult.TIScore,
		"ti_level", tiResult.TILevel,
		"confidence", tiResult.Confidence,
	)

	return tiResult
}

func (c *TICalculator) updateStats(result models.TIResult) {
	c.stats.TotalCalculated++
	n := float64(c.stats.TotalCalculated)
	c.stats.AvgTIScore += (result.TIScore - c.stats.AvgTIScore) / n

	switch result.TILevel {
	case models.TILevelHigh:
		c.stats.HighCount++
	case models.TILevelMedium:
		c.stats.MediumCount++
	case models.TILevelLow:
		c.stats.LowCount++
	default:
		c.stats.MinimalCount++
	}
}

// Stats returns the aggregate snapshot.
func (c *TICalculator) Stats() CalculatorStats { return c.stats }

// ResetStats clears calculator and analyzer counters.
func (c *TICalculator) ResetStats() {
	c.stats = CalculatorStats{}
	for _, a := range c.analyzerList {
		a.ResetStats()
	}
}
