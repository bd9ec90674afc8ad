package analyzers

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// Penalty per uncertainty source. The sum, clamped to 1, is the score: the
// less we can tell from cheap signals, the stronger the case for deep
// analysis.
const (
	penaltyNoScreenshot  = 0.30
	penaltyUnknownApp    = 0.25
	penaltyEmptyTitle    = 0.20
	penaltyShortDuration = 0.15
	penaltyGenericTitle  = 0.10

	defaultMinDuration = 5 * time.Second
)

var knownApps = []string{
	// Browsers
	"chrome", "firefox", "edge", "brave", "opera", "safari",
	// Development
	"code", "vscode", "visual studio", "pycharm", "idea", "webstorm",
	"sublime", "atom", "vim", "neovim", "emacs",
	// Terminals
	"terminal", "powershell", "cmd", "iterm", "warp",
	// Office
	"word", "excel", "powerpoint", "outlook", "onenote",
	// Messaging
	"teams", "slack", "discord", "telegram", "wechat", "qq", "zoom",
	// System
	"explorer", "finder", "settings", "taskmgr",
	// Media
	"spotify", "vlc", "youtube", "netflix",
	// Other
	"obsidian", "notion", "trello", "figma", "photoshop",
}

var genericTitles = []string{
	"untitled", "new", "document", "sheet", "presentation",
	"loading", "please wait",
}

// UncertaintyAnalyzer scores how little the cheap signals reveal. High
// uncertainty pushes the event toward vision-model analysis.
type UncertaintyAnalyzer struct {
	base

	minDuration time.Duration
	known       []string

	highCount int
	lowCount  int
}

// UncertaintyOptions tunes the duration cutoff and extends the known-app
// table. Zero values keep the defaults.
type UncertaintyOptions struct {
	Weight      float64
	MinDuration time.Duration
	ExtraKnown  []string
}

// NewUncertaintyAnalyzer builds the analyzer.
func NewUncertaintyAnalyzer(opts UncertaintyOptions) *UncertaintyAnalyzer {
	weight := opts.Weight
	if weight <= 0 {
		weight = 0.10
	}
	minDuration := opts.MinDuration
	if minDuration <= 0 {
		minDuration = defaultMinDuration
	}
	known := append([]string{}, knownApps...)
	for _, app := range opts.ExtraKnown {
		known = append(known, strings.ToLower(app))
	}
	return &UncertaintyAnalyzer{
		base:        newBase("uncertainty", weight),
		minDuration: minDuration,
		known:       known,
	}
}

// Analyze sums the applicable penalties.
func (a *UncertaintyAnalyzer) Analyze(event *models.ActivityEvent, img *imaging.Plane) models.AnalyzerResult {
	sources := a.sources(event, img != nil)

	total := 0.0
	for _, w := range sources {
		total += w
	}
	total = min(1.0, total)

	if total > 0.5 {
		a.highCount++
	} else {
		a.lowCount++
	}

	return a.record(models.NewAnalyzerResult(
		a.name, total, 0.9,
		uncertaintyReason(sources),
		map[string]any{
			"sources":           sources,
			"total_uncertainty": total,
		},
	))
}

func (a *UncertaintyAnalyzer) sources(event *models.ActivityEvent, hasScreenshot bool) map[string]float64 {
	out := make(map[string]float64)

	if !hasScreenshot {
		out["no_screenshot"] = penaltyNoScreenshot
	}

	title := strings.TrimSpace(event.WindowTitle)
	if title == "" {
		out["empty_title"] = penaltyEmptyTitle
	} else if isGenericTitle(title) {
		out["generic_title"] = penaltyGenericTitle
	}

	if !a.isKnownApp(event.Application) {
		out["unknown_app"] = penaltyUnknownApp
	}

	if event.Duration < a.minDuration {
		out["short_duration"] = penaltyShortDuration
	}

	return out
}

func (a *UncertaintyAnalyzer) isKnownApp(app string) bool {
	lowered := strings.ToLower(app)
	for _, known := range a.known {
		if strings.Contains(lowered, known) {
			return true
		}
	}
	return false
}

func isGenericTitle(title string) bool {
	lowered := strings.ToLower(title)
	for _, generic := range genericTitles {
		if strings.HasPrefix(lowered, generic) {
			return true
		}
	}
	return len(title) < 5
}

func uncertaintyReason(sources map[string]float64) string {
	if len(sources) == 0 {
		return "no uncertainty sources"
	}
	keys := make([]string, 0, len(sources))
	for k := range sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s(+%.2f)", k, sources[k]))
	}
	return strings.Join(parts, "; ")
}

// HighUncertaintyRate reports the fraction of analyzed events that scored
// above 0.5.
func (a *UncertaintyAnalyzer) HighUncertaintyRate() float64 {
	total := a.highCount + a.lowCount
	if total == 0 {
		return 0
	}
	return float64(a.highCount) / float64(total)
}
