// Package analyzers implements Stage 2 of the cascade: independent scorers
// that each look at one aspect of an event and emit a score with a
// confidence. The engine runs every enabled analyzer and folds the results
// into a single trigger intent score.
package analyzers

import (
	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// Analyzer scores one dimension of an activity event. Implementations are
// stateless or own private bounded history; none of them block.
type Analyzer interface {
	Name() string
	Weight() float64
	SetWeight(w float64)
	Enabled() bool
	SetEnabled(enabled bool)

	// Analyze scores the event. img is nil when the event carried no usable
	// capture; every analyzer must handle that case.
	Analyze(event *models.ActivityEvent, img *imaging.Plane) models.AnalyzerResult

	Stats() Stats
	ResetStats()
}

// Stats is the per-analyzer activity snapshot.
type Stats struct {
	Analyzed  int     `json:"analyzed"`
	MeanScore float64 `json:"mean_score"`
}

type base struct {
	name     string
	weight   float64
	enabled  bool
	analyzed int
	scoreSum float64
}

func newBase(name string, weight float64) base {
	return base{name: name, weight: weight, enabled: true}
}

func (b *base) Name() string            { return b.name }
func (b *base) Weight() float64         { return b.weight }
func (b *base) SetWeight(w float64)     { b.weight = w }
func (b *base) Enabled() bool           { return b.enabled }
func (b *base) SetEnabled(enabled bool) { b.enabled = enabled }

func (b *base) record(result models.AnalyzerResult) models.AnalyzerResult {
	b.analyzed++
	b.scoreSum += result.Score
	return result
}

func (b *base) Stats() Stats {
	mean := 0.0
	if b.analyzed > 0 {
		mean = b.scoreSum / float64(b.analyzed)
	}
	return Stats{Analyzed: b.analyzed, MeanScore: mean}
}

func (b *base) ResetStats() {
	b.analyzed = 0
	b.scoreSum = 0
}
