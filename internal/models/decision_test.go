package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFilteredDecision_NoScore(t *testing.T) {
	d := FilteredDecision(uuid.New(), "allowlist", "app on allow list")

	if d.TIScore != nil {
		t.Errorf("filtered decision should carry no TI score, got %v", *d.TIScore)
	}
	if d.FilterName != "allowlist" {
		t.Errorf("FilterName = %q, want allowlist", d.FilterName)
	}
	if d.ShouldAnalyze() {
		t.Error("filtered decision must not route to analysis")
	}
}

func TestDelayDecision_CarriesDelayUntil(t *testing.T) {
	until := time.Now().Add(5 * time.Minute)
	d := DelayDecision(uuid.New(), 0.5, until, "new document settling")

	if d.DelayUntil == nil || !d.DelayUntil.Equal(until) {
		t.Errorf("DelayUntil = %v, want %v", d.DelayUntil, until)
	}
}

func TestPriorityClamped(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{-3, 1},
		{5, 5},
		{11, 10},
	}

	for _, tt := range tests {
		d := ImmediateDecision(uuid.New(), 0.9, "", tt.in)
		if d.Priority != tt.want {
			t.Errorf("priority %d clamped to %d, want %d", tt.in, d.Priority, tt.want)
		}
	}
}

func TestShouldAnalyze(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name     string
		decision TriggerDecision
		expected bool
	}{
		{"immediate", ImmediateDecision(id, 0.9, "", 10), true},
		{"batch", BatchDecision(id, 0.5, "app:chrome", ""), true},
		{"skip", SkipDecision(id, 0.1, ""), false},
		{"filtered", FilteredDecision(id, "allowlist", ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.decision.ShouldAnalyze(); got != tt.expected {
				t.Errorf("ShouldAnalyze() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBatchDecision_DefaultGroup(t *testing.T) {
	d := BatchDecision(uuid.New(), 0.5, "", "")
	if d.BatchGroup != "default" {
		t.Errorf("BatchGroup = %q, want default", d.BatchGroup)
	}
	if d.Priority != 5 {
		t.Errorf("Priority = %d, want 5", d.Priority)
	}
}
