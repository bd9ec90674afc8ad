package analyzers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
	"github.com/senatus-ai/senatus/internal/ring"
)

const defaultDiffHistorySize = 3

type diffRecord struct {
	eventID   uuid.UUID
	timestamp time.Time
	histogram imaging.Histogram
}

type diffBand struct {
	upper float64
	level string
	score float64
}

// Change bands. The average chi-square distance to the recent frames picks
// the band; faster change scores higher.
var diffBands = []diffBand{
	{0.05, "static", 0.05},
	{0.2, "slow_change", 0.3},
	{0.5, "fast_change", 0.6},
	{1.01, "dramatic", 0.8},
}

// FrameDiffAnalyzer scores how much the screen is changing. It keeps a
// short histogram history and compares each new capture against it.
type FrameDiffAnalyzer struct {
	base

	history    *ring.Buffer[diffRecord]
	bandCounts map[string]int
}

// NewFrameDiffAnalyzer builds the analyzer. historySize <= 0 keeps the
// default depth of 3.
func NewFrameDiffAnalyzer(weight float64, historySize int) *FrameDiffAnalyzer {
	if weight <= 0 {
		weight = 0.15
	}
	if historySize <= 0 {
		historySize = defaultDiffHistorySize
	}
	return &FrameDiffAnalyzer{
		base:       newBase("frame_diff", weight),
		history:    ring.New[diffRecord](historySize),
		bandCounts: make(map[string]int),
	}
}

// Analyze compares the capture against recent frames. Missing captures and
// the very first frame fall back to a mid score with reduced confidence.
func (a *FrameDiffAnalyzer) Analyze(event *models.ActivityEvent, img *imaging.Plane) models.AnalyzerResult {
	if img == nil {
		return a.record(models.NewAnalyzerResult(
			a.name, 0.3, 0.3,
			"no capture to diff",
			map[string]any{"has_screenshot": false},
		))
	}

	hist := imaging.ComputeHistogram(img)

	if a.history.Len() == 0 {
		a.push(event, hist)
		return a.record(models.NewAnalyzerResult(
			a.name, 0.3, 0.5,
			"first frame, nothing to compare",
			map[string]any{"has_screenshot": true, "is_first_frame": true},
		))
	}

	var sum float64
	diffs := make([]float64, 0, a.history.Len())
	for _, rec := range a.history.Items() {
		d := imaging.ChiSquareDistance(&hist, &rec.histogram)
		diffs = append(diffs, d)
		sum += d
	}
	avg := sum / float64(len(diffs))

	a.push(event, hist)

	score, level := mapDiffToScore(avg)
	a.bandCounts[level]++

	return a.record(models.NewAnalyzerResult(
		a.name, score, 0.8,
		fmt.Sprintf("frame change %s (avg_diff=%.3f)", level, avg),
		map[string]any{
			"has_screenshot": true,
			"avg_diff":       avg,
			"diff_level":     level,
			"history_size":   a.history.Len(),
		},
	))
}

func (a *FrameDiffAnalyzer) push(event *models.ActivityEvent, hist imaging.Histogram) {
	a.history.Push(diffRecord{
		eventID:   event.ID,
		timestamp: event.Timestamp,
		histogram: hist,
	})
}

func mapDiffToScore(diff float64) (float64, string) {
	for _, band := range diffBands {
		if diff < band.upper {
			return band.score, band.level
		}
	}
	last := diffBands[len(diffBands)-1]
	return last.score, last.level
}

// BandDistribution reports the fraction of analyzed frames per change band.
func (a *FrameDiffAnalyzer) BandDistribution() map[string]float64 {
	total := 0
	for _, n := range a.bandCounts {
		total += n
	}
	if total == 0 {
		return nil
	}
	out := make(map[string]float64, len(a.bandCounts))
	for level, n := range a.bandCounts {
		out[level] = float64(n) / float64(total)
	}
	return out
}

// ClearHistory drops the frame history, e.g. when the capture stream
// restarts after a gap.
func (a *FrameDiffAnalyzer) ClearHistory() {
	a.history.Clear()
}
