package models

import (
	"time"

	"github.com/google/uuid"
)

// DecisionType is the terminal outcome of the cascade for one event.
type DecisionType string

const (
	DecisionImmediate DecisionType = "immediate" // Forward to the vision model now
	DecisionBatch     DecisionType = "batch"     // Coalesce into a batch group
	DecisionSkip      DecisionType = "skip"      // Not worth an inference call
	DecisionDelay     DecisionType = "delay"     // Revisit after DelayUntil
	DecisionFiltered  DecisionType = "filtered"  // Rejected by a Stage 1 filter
)

// TriggerDecision is the engine's output for one activity event.
//
// Field constraints follow the decision type: DELAY always carries
// DelayUntil, FILTERED always carries FilterName, and TIScore is nil for
// FILTERED events (Stage 2 never ran).
type TriggerDecision struct {
	EventID      uuid.UUID         `json:"event_id"`
	DecisionType DecisionType      `json:"decision_type"`
	TIScore      *float64          `json:"ti_score,omitempty"`
	Reason       string            `json:"reason"`
	FilterName   string            `json:"filter_name,omitempty"`
	Priority     int               `json:"priority"` // 1-10, 10 highest
	DelayUntil   *time.Time        `json:"delay_until,omitempty"`
	BatchGroup   string            `json:"batch_group,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ShouldAnalyze reports whether the decision routes the event to the vision
// model (now or batched).
func (d *TriggerDecision) ShouldAnalyze() bool {
	return d.DecisionType == DecisionImmediate || d.DecisionType == DecisionBatch
}

// IsImmediate reports whether the event must be analyzed without batching.
func (d *TriggerDecision) IsImmediate() bool {
	return d.DecisionType == DecisionImmediate
}

func clampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > 10 {
		return 10
	}
	return p
}

// ImmediateDecision builds an IMMEDIATE decision with the given priority.
func ImmediateDecision(eventID uuid.UUID, tiScore float64, reason string, priority int) TriggerDecision {
	return TriggerDecision{
		EventID:      eventID,
		DecisionType: DecisionImmediate,
		TIScore:      &tiScore,
		Reason:       reason,
		Priority:     clampPriority(priority),
		CreatedAt:    time.Now(),
	}
}

// BatchDecision builds a BATCH decision at fixed priority 5.
func BatchDecision(eventID uuid.UUID, tiScore float64, batchGroup, reason string) TriggerDecision {
	if batchGroup == "" {
		batchGroup = "default"
	}
	return TriggerDecision{
		EventID:      eventID,
		DecisionType: DecisionBatch,
		TIScore:      &tiScore,
		Reason:       reason,
		BatchGroup:   batchGroup,
		Priority:     5,
		CreatedAt:    time.Now(),
	}
}

// SkipDecision builds a SKIP decision at priority 1.
func SkipDecision(eventID uuid.UUID, tiScore float64, reason string) TriggerDecision {
	return TriggerDecision{
		EventID:      eventID,
		DecisionType: DecisionSkip,
		TIScore:      &tiScore,
		Reason:       reason,
		Priority:     1,
		CreatedAt:    time.Now(),
	}
}

// DelayDecision builds a DELAY decision carrying the revisit time.
func DelayDecision(eventID uuid.UUID, tiScore float64, delayUntil time.Time, reason string) TriggerDecision {
	return TriggerDecision{
		EventID:      eventID,
		DecisionType: DecisionDelay,
		TIScore:      &tiScore,
		Reason:       reason,
		DelayUntil:   &delayUntil,
		Priority:     3,
		CreatedAt:    time.Now(),
	}
}

// FilteredDecision builds a FILTERED decision. TIScore stays nil: no
// analysis ran for this event.
func FilteredDecision(eventID uuid.UUID, filterName, reason string) TriggerDecision {
	if filterName == "" {
		filterName = "unknown"
	}
	return TriggerDecision{
		EventID:      eventID,
		DecisionType: DecisionFiltered,
		Reason:       reason,
		FilterName:   filterName,
		Priority:     1,
		CreatedAt:    time.Now(),
	}
}
