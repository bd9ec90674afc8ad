// Package filters implements Stage 1 of the cascade: cheap rule checks that
// run before any scoring. Filters are tried in a fixed order and the first
// skipping result short-circuits the pipeline with a FILTERED decision.
package filters

import (
	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// Filter is the shared capability contract for Stage 1 checks. The engine
// holds an ordered list of these; there is no runtime type inspection.
type Filter interface {
	Name() string
	Enabled() bool
	SetEnabled(enabled bool)

	// Check inspects one event (and its decoded capture, when present) and
	// reports whether the event should skip analysis. Pass-through filters
	// may attach a hint for later stages instead of skipping.
	Check(event *models.ActivityEvent, img *imaging.Plane) models.FilterResult

	Stats() Stats
	ResetStats()
}

// Stats is the per-filter counter snapshot exposed for monitoring.
type Stats struct {
	Checked int            `json:"checked"`
	Skipped int            `json:"skipped"`
	Extra   map[string]int `json:"extra,omitempty"`
}

// base carries the identity, enable flag and counters every filter shares.
type base struct {
	name    string
	enabled bool
	checked int
	skipped int
}

func newBase(name string) base {
	return base{name: name, enabled: true}
}

func (b *base) Name() string            { return b.name }
func (b *base) Enabled() bool           { return b.enabled }
func (b *base) SetEnabled(enabled bool) { b.enabled = enabled }

func (b *base) record(result models.FilterResult) models.FilterResult {
	b.checked++
	if result.Skip {
		b.skipped++
	}
	return result
}

func (b *base) ResetStats() {
	b.checked = 0
	b.skipped = 0
}
