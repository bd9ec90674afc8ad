package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType classifies an activity record from the desktop tracker.
type ActivityType string

const (
	ActivityActive      ActivityType = "active"      // User present and interacting
	ActivityAway        ActivityType = "away"        // Machine idle / user away
	ActivityApplication ActivityType = "application" // Foreground application/window record
	ActivityUnknown     ActivityType = "unknown"
)

// ActivityEvent is one foreground-activity observation from the tracker.
// Events are immutable once created: every pipeline stage produces a new
// result object referencing the event's ID, never mutating the event itself.
type ActivityEvent struct {
	ID        uuid.UUID     `json:"id"`
	Timestamp time.Time     `json:"timestamp"` // Local time of the observation
	Duration  time.Duration `json:"duration"`

	Application string       `json:"application"`
	WindowTitle string       `json:"window_title"`
	Type        ActivityType `json:"type"`

	// ScreenshotPath points at the capture associated with this event, if
	// any. Image decoding is owned by the caller; the engine only ever sees
	// the decoded bitmap.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	Source string `json:"source"` // Provenance tag, e.g. "manictime"
}

// NewActivityEvent builds an event with a fresh ID.
func NewActivityEvent(ts time.Time, duration time.Duration, application, title string) ActivityEvent {
	return ActivityEvent{
		ID:          uuid.New(),
		Timestamp:   ts,
		Duration:    duration,
		Application: application,
		WindowTitle: title,
		Type:        ActivityApplication,
		Source:      "manictime",
	}
}
