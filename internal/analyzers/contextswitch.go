package analyzers

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
	"github.com/senatus-ai/senatus/internal/ring"
)

const (
	defaultContextWindowSize    = 10
	defaultRapidSwitchThreshold = 3 * time.Second
)

// Work-depth tiers for switch cost. Dropping out of deep work costs the
// most attention, so those switches score highest.
var appDepthTiers = map[int][]string{
	2: { // deep work
		"code", "vscode", "visual studio",
		"pycharm", "idea", "webstorm",
		"word", "excel", "powerpoint",
		"acrobat", "pdf",
	},
	1: { // medium
		"outlook", "teams", "slack",
		"chrome", "firefox", "edge",
		"terminal", "powershell",
	},
	0: { // shallow
		"telegram", "discord", "wechat", "qq",
		"twitter", "facebook", "youtube",
		"spotify", "steam",
	},
}

func appDepth(app string) int {
	lowered := strings.ToLower(app)
	for _, depth := range []int{2, 1, 0} {
		for _, kw := range appDepthTiers[depth] {
			if strings.Contains(lowered, kw) {
				return depth
			}
		}
	}
	return 1
}

func switchCost(fromApp, toApp string) float64 {
	from := appDepth(fromApp)
	to := appDepth(toApp)
	switch {
	case from > to:
		return 0.8 + float64(from-to)*0.1
	case from < to:
		return 0.4 + float64(to-from)*0.1
	default:
		return 0.2
	}
}

type switchRecord struct {
	eventID     uuid.UUID
	timestamp   time.Time
	application string
	windowTitle string
}

type switchPattern struct {
	patternType string
	frequency   float64
	apps        []string
	score       float64
}

// ContextSwitchAnalyzer scores window-switching behavior: rapid hopping
// between applications, A-B-A-B comparison loops, and the attention cost
// of moving between work-depth tiers.
type ContextSwitchAnalyzer struct {
	base

	windowSize     int
	rapidThreshold time.Duration
	history        *ring.Buffer[switchRecord]

	rapidSwitches    int
	ababPatterns     int
	highCostSwitches int
}

// ContextSwitchOptions tunes window size and the rapid-switch cutoff. Zero
// values keep the defaults.
type ContextSwitchOptions struct {
	Weight               float64
	ContextWindowSize    int
	RapidSwitchThreshold time.Duration
}

// NewContextSwitchAnalyzer builds the analyzer.
func NewContextSwitchAnalyzer(opts ContextSwitchOptions) *ContextSwitchAnalyzer {
	weight := opts.Weight
	if weight <= 0 {
		weight = 0.15
	}
	size := opts.ContextWindowSize
	if size < 3 {
		size = defaultContextWindowSize
	}
	threshold := opts.RapidSwitchThreshold
	if threshold <= 0 {
		threshold = defaultRapidSwitchThreshold
	}
	return &ContextSwitchAnalyzer{
		base:           newBase("context_switch", weight),
		windowSize:     size,
		rapidThreshold: threshold,
		history:        ring.New[switchRecord](size),
	}
}

// Analyze evaluates the switch from the recent history to this event, then
// appends the event to the history.
func (a *ContextSwitchAnalyzer) Analyze(event *models.ActivityEvent, _ *imaging.Plane) models.AnalyzerResult {
	current := switchRecord{
		eventID:     event.ID,
		timestamp:   event.Timestamp,
		application: event.Application,
		windowTitle: event.WindowTitle,
	}

	if a.history.Len() < 2 {
		a.history.Push(current)
		return a.record(models.NewAnalyzerResult(
			a.name, 0.2, 0.5,
			"not enough history to detect switch patterns",
			map[string]any{"history_size": a.history.Len()},
		))
	}

	patterns := a.detectPatterns(current)
	a.history.Push(current)

	score, reason := foldPatterns(patterns)

	details := make([]map[string]any, 0, len(patterns))
	for _, p := range patterns {
		details = append(details, map[string]any{
			"type":      p.patternType,
			"frequency": p.frequency,
			"apps":      p.apps,
			"score":     p.score,
		})
	}

	return a.record(models.NewAnalyzerResult(
		a.name, score, 0.75, reason,
		map[string]any{
			"patterns":     details,
			"history_size": a.history.Len(),
		},
	))
}

func (a *ContextSwitchAnalyzer) detectPatterns(current switchRecord) []switchPattern {
	var patterns []switchPattern

	if p, ok := a.detectRapidSwitch(current); ok {
		patterns = append(patterns, p)
		a.rapidSwitches++
	}
	if p, ok := a.detectABAB(current); ok {
		patterns = append(patterns, p)
		a.ababPatterns++
	}
	if p, ok := a.detectSwitchCost(current); ok {
		patterns = append(patterns, p)
		if p.score > 0.6 {
			a.highCostSwitches++
		}
	}
	return patterns
}

func (a *ContextSwitchAnalyzer) detectRapidSwitch(current switchRecord) (switchPattern, bool) {
	last, ok := a.history.Last()
	if !ok {
		return switchPattern{}, false
	}
	if current.timestamp.Sub(last.timestamp) >= a.rapidThreshold {
		return switchPattern{}, false
	}
	if strings.EqualFold(current.application, last.application) {
		return switchPattern{}, false
	}

	rapidCount := a.countRapidSwitches()
	denom := a.history.Len()
	if denom < 1 {
		denom = 1
	}
	return switchPattern{
		patternType: "rapid_switch",
		frequency:   float64(rapidCount) / float64(denom),
		apps:        []string{last.application, current.application},
		score:       min(0.9, 0.4+float64(rapidCount)*0.15),
	}, true
}

func (a *ContextSwitchAnalyzer) countRapidSwitches() int {
	count := 0
	items := a.history.Items()
	for i := 1; i < len(items); i++ {
		gap := items[i].timestamp.Sub(items[i-1].timestamp)
		if gap < a.rapidThreshold && !strings.EqualFold(items[i].application, items[i-1].application) {
			count++
		}
	}
	return count
}

func (a *ContextSwitchAnalyzer) detectABAB(current switchRecord) (switchPattern, bool) {
	if a.history.Len() < 3 {
		return switchPattern{}, false
	}
	items := a.history.Items()
	tail := items[len(items)-3:]

	apps := []string{
		strings.ToLower(tail[0].application),
		strings.ToLower(tail[1].application),
		strings.ToLower(tail[2].application),
		strings.ToLower(current.application),
	}
	if apps[0] == apps[2] && apps[1] == apps[3] && apps[0] != apps[1] {
		return switchPattern{
			patternType: "abab_comparison",
			frequency:   1.0,
			apps:        []string{tail[0].application, tail[1].application},
			score:       0.7,
		}, true
	}
	return switchPattern{}, false
}

func (a *ContextSwitchAnalyzer) detectSwitchCost(current switchRecord) (switchPattern, bool) {
	last, ok := a.history.Last()
	if !ok || strings.EqualFold(current.application, last.application) {
		return switchPattern{}, false
	}
	return switchPattern{
		patternType: "switch_cost",
		apps:        []string{last.application, current.application},
		score:       switchCost(last.application, current.application),
	}, true
}

func foldPatterns(patterns []switchPattern) (float64, string) {
	if len(patterns) == 0 {
		return 0.1, "no notable switch pattern"
	}

	best := patterns[0]
	for _, p := range patterns[1:] {
		if p.score > best.score {
			best = p
		}
	}

	bonus := min(0.15, float64(len(patterns)-1)*0.05)
	score := min(1.0, best.score+bonus)

	parts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		switch p.patternType {
		case "rapid_switch":
			parts = append(parts, fmt.Sprintf("rapid switching (freq %.2f)", p.frequency))
		case "abab_comparison":
			parts = append(parts, "comparison loop")
		case "switch_cost":
			parts = append(parts, fmt.Sprintf("switch cost %.2f", p.score))
		}
	}
	return score, strings.Join(parts, "; ")
}

// SetContextWindow replaces the history with externally supplied events,
// letting a fresh analyzer start warm from persisted activity.
func (a *ContextSwitchAnalyzer) SetContextWindow(events []models.ActivityEvent) {
	a.history.Clear()
	start := 0
	if len(events) > a.windowSize {
		start = len(events) - a.windowSize
	}
	for _, e := range events[start:] {
		a.history.Push(switchRecord{
			eventID:     e.ID,
			timestamp:   e.Timestamp,
			application: e.Application,
			windowTitle: e.WindowTitle,
		})
	}
}

// ClearHistory drops the switch history.
func (a *ContextSwitchAnalyzer) ClearHistory() {
	a.history.Clear()
}

// PatternStats reports pattern detection counters.
func (a *ContextSwitchAnalyzer) PatternStats() map[string]int {
	return map[string]int{
		"rapid_switches":     a.rapidSwitches,
		"abab_patterns":      a.ababPatterns,
		"high_cost_switches": a.highCostSwitches,
	}
}
