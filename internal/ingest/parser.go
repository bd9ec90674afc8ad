package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/senatus-ai/senatus/internal/models"
)

// systemProcesses are desktop shell processes that indicate the user is
// not actually working in an application.
var systemProcesses = map[string]bool{
	"explorer.exe":                true,
	"dwm.exe":                     true,
	"taskmgr.exe":                 true,
	"shellexperiencehost.exe":     true,
	"searchui.exe":                true,
	"startmenuexperiencehost.exe": true,
	"lockapp.exe":                 true,
}

// Parser converts joined activity rows into pipeline events. Row
// timestamps are UTC; events carry local time in the configured zone.
type Parser struct {
	loc    *time.Location
	logger *slog.Logger
}

// NewParser builds a parser converting into loc. A nil loc means the
// process-local zone.
func NewParser(loc *time.Location, logger *slog.Logger) *Parser {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Parser{loc: loc, logger: logger}
}

// Parse converts one activity row into an event.
func (p *Parser) Parse(row ActivityRow) (models.ActivityEvent, error) {
	if row.StartUTC.IsZero() {
		return models.ActivityEvent{}, fmt.Errorf("activity %d has no start time", row.ActivityID)
	}

	duration := row.EndUTC.Sub(row.StartUTC)
	if duration < 0 {
		duration = 0
	}

	application, title := splitUpperKey(row)
	activityType := classifyActivity(row.GroupKey, application)

	event := models.NewActivityEvent(row.StartUTC.In(p.loc), duration, application, title)
	event.Type = activityType
	return event, nil
}

// ParseBatch converts rows in order, skipping any that fail to parse.
func (p *Parser) ParseBatch(rows []ActivityRow) []models.ActivityEvent {
	events := make([]models.ActivityEvent, 0, len(rows))
	for _, row := range rows {
		event, err := p.Parse(row)
		if err != nil {
			p.logger.Warn("skipping unparseable activity", "error", err)
			continue
		}
		events = append(events, event)
	}
	return events
}

// splitUpperKey extracts application and window title. The tracker
// stores "APP.EXE;WINDOW TITLE" in the upper key; rows without it fall
// back to the group's display names.
func splitUpperKey(row ActivityRow) (application, title string) {
	application = row.AppName
	if application == "" {
		application = row.GroupName
	}
	if application == "" {
		application = "Unknown"
	}

	if idx := strings.IndexByte(row.UpperKey, ';'); idx >= 0 {
		application = stripExeSuffix(row.UpperKey[:idx])
		title = row.UpperKey[idx+1:]
	}
	return application, title
}

func stripExeSuffix(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".exe") {
		return name[:len(name)-len(".exe")]
	}
	return name
}

// classifyActivity maps the tracker's group key and process name onto
// an activity type. Away/idle groups and bare shell processes both
// count as away time.
func classifyActivity(groupKey, application string) models.ActivityType {
	key := strings.ToLower(groupKey)
	switch {
	case strings.Contains(key, "active"):
		return models.ActivityActive
	case strings.Contains(key, "away"), strings.Contains(key, "idle"):
		return models.ActivityAway
	}

	app := strings.ToLower(application)
	if systemProcesses[app] || systemProcesses[app+".exe"] {
		return models.ActivityAway
	}
	return models.ActivityApplication
}
