package filters

import (
	"fmt"
	"time"

	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
	"github.com/senatus-ai/senatus/internal/ring"
)

const (
	defaultStaticThreshold   = 0.05
	defaultStaticHistorySize = 5
)

type frameRecord struct {
	hash        imaging.FrameHash
	application string
	capturedAt  time.Time
}

// StaticFrameFilter skips captures that are perceptually identical to a
// recent frame. It hashes every capture it sees, so repeated static screens
// keep matching even as the history rolls over.
type StaticFrameFilter struct {
	base

	threshold float64
	history   *ring.Buffer[frameRecord]

	hashed     int
	staticHits int
}

// StaticFrameOptions tunes the similarity cutoff and history depth. Zero
// values keep the defaults.
type StaticFrameOptions struct {
	Threshold   float64
	HistorySize int
}

// NewStaticFrameFilter builds the filter.
func NewStaticFrameFilter(opts StaticFrameOptions) *StaticFrameFilter {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = defaultStaticThreshold
	}
	size := opts.HistorySize
	if size <= 0 {
		size = defaultStaticHistorySize
	}
	return &StaticFrameFilter{
		base:      newBase("static_frame"),
		threshold: threshold,
		history:   ring.New[frameRecord](size),
	}
}

// Check hashes the capture and compares against recent frames. Events
// without a capture always pass; there is nothing to compare.
func (f *StaticFrameFilter) Check(event *models.ActivityEvent, img *imaging.Plane) models.FilterResult {
	if !f.enabled {
		return models.FilterPassed(f.name)
	}
	if img == nil {
		return f.record(models.FilterPassed(f.name))
	}

	hash := imaging.HashFrame(img, imaging.DefaultHashSize)
	f.hashed++

	minDist := -1.0
	var nearest frameRecord
	for _, rec := range f.history.Items() {
		d := hash.Distance(rec.hash)
		if minDist < 0 || d < minDist {
			minDist = d
			nearest = rec
		}
	}

	// Record the frame before deciding so a run of identical captures keeps
	// a fresh anchor in the history.
	f.history.Push(frameRecord{hash: hash, application: event.Application, capturedAt: event.Timestamp})

	if minDist >= 0 && minDist < f.threshold {
		f.staticHits++
		return f.record(models.FilterSkipped(
			f.name,
			fmt.Sprintf("frame within %.4f of capture from %s", minDist, nearest.capturedAt.Format(time.RFC3339)),
			fmt.Sprintf("static:dist=%.4f", minDist),
		))
	}

	return f.record(models.FilterPassed(f.name))
}

// Reset drops the frame history in addition to counters.
func (f *StaticFrameFilter) Reset() {
	f.history.Clear()
	f.ResetStats()
}

// Stats returns the counter snapshot with hash activity breakdown.
func (f *StaticFrameFilter) Stats() Stats {
	return Stats{
		Checked: f.checked,
		Skipped: f.skipped,
		Extra: map[string]int{
			"hashed":      f.hashed,
			"static_hits": f.staticHits,
		},
	}
}

// ResetStats clears base and hash counters.
func (f *StaticFrameFilter) ResetStats() {
	f.base.ResetStats()
	f.hashed = 0
	f.staticHits = 0
}
