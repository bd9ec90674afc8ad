package analyzers

import (
	"fmt"
	"strings"

	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// Application tiers. The tracker reports bare process names; matching is
// case-insensitive substring so "CHROME" and "chrome.exe" both land in the
// high tier.
var (
	highSensitivityApps = []string{
		// Browsers
		"chrome", "firefox", "msedge", "brave", "opera",

		// Messaging
		"telegram", "discord", "wechat", "qq", "whatsapp",

		// File managers
		"totalcmd", "everything",

		// Remote desktop
		"mstsc", "anydesk", "teamviewer",
	}

	mediumSensitivityApps = []string{
		"outlook", "thunderbird",
		"winword", "excel", "acrobat", "foxitreader",
	}

	lowSensitivityApps = []string{
		"code", "devenv", "idea64", "cursor", "pycharm",
		"windowsterminal", "cmd", "powershell",
		"explorer", "taskmgr",
	}

	highSensitivityTitleKeywords = []string{
		// Privacy
		"private", "incognito", "secret", "confidential",

		// Accounts
		"login", "password", "account", "sign in", "credential",

		// Finance
		"bank", "payment", "wallet", "crypto",

		// Social media
		"twitter", "facebook", "instagram", "reddit", "youtube",

		// Entertainment
		"netflix", "spotify", "steam", "game",
	}
)

const (
	appScoreHigh    = 0.8
	appScoreMedium  = 0.5
	appScoreLow     = 0.1
	appScoreUnknown = 0.4

	metadataConfidence = 0.9
)

// MetadataAnalyzer scores an event from its application name and window
// title alone. Pure rule matching, never touches the capture.
type MetadataAnalyzer struct {
	base

	highApps      []string
	mediumApps    []string
	lowApps       []string
	titleKeywords []string
}

// MetadataOptions extends the high-sensitivity tables with deployment
// specific entries.
type MetadataOptions struct {
	Weight        float64 // 0 keeps the default
	ExtraHighApps []string
	ExtraKeywords []string
}

// NewMetadataAnalyzer builds the analyzer.
func NewMetadataAnalyzer(opts MetadataOptions) *MetadataAnalyzer {
	weight := opts.Weight
	if weight <= 0 {
		weight = 0.25
	}

	high := append([]string{}, highSensitivityApps...)
	for _, app := range opts.ExtraHighApps {
		high = append(high, strings.ToLower(app))
	}
	keywords := append([]string{}, highSensitivityTitleKeywords...)
	for _, kw := range opts.ExtraKeywords {
		keywords = append(keywords, strings.ToLower(kw))
	}

	return &MetadataAnalyzer{
		base:          newBase("metadata", weight),
		highApps:      high,
		mediumApps:    mediumSensitivityApps,
		lowApps:       lowSensitivityApps,
		titleKeywords: keywords,
	}
}

// Analyze combines app-tier and title-keyword scores, taking the higher of
// the two and adding a small bonus when both contribute.
func (a *MetadataAnalyzer) Analyze(event *models.ActivityEvent, _ *imaging.Plane) models.AnalyzerResult {
	appScore, appReason := a.appSensitivity(event.Application)
	titleScore, titleReason := a.titleSensitivity(event.WindowTitle)

	score := appScore
	reason := appReason
	if titleScore > appScore {
		score = titleScore
		reason = titleReason
	}

	if appScore > 0 && titleScore > 0 {
		bonus := (appScore + titleScore) * 0.1
		if bonus > 0.1 {
			bonus = 0.1
		}
		score = min(1.0, score+bonus)
		reason = appReason + "; " + titleReason
	}

	return a.record(models.NewAnalyzerResult(a.name, score, metadataConfidence, reason, map[string]any{
		"app_score":   appScore,
		"title_score": titleScore,
		"application": event.Application,
	}))
}

func (a *MetadataAnalyzer) appSensitivity(app string) (float64, string) {
	lowered := strings.ToLower(app)
	if containsAny(lowered, a.highApps) {
		return appScoreHigh, "high sensitivity application: " + app
	}
	if containsAny(lowered, a.mediumApps) {
		return appScoreMedium, "medium sensitivity application: " + app
	}
	if containsAny(lowered, a.lowApps) {
		return appScoreLow, "low sensitivity application: " + app
	}
	return appScoreUnknown, "unclassified application: " + app
}

func (a *MetadataAnalyzer) titleSensitivity(title string) (float64, string) {
	lowered := strings.ToLower(title)

	var matched []string
	for _, kw := range a.titleKeywords {
		if strings.Contains(lowered, kw) {
			matched = append(matched, kw)
		}
	}
	if len(matched) == 0 {
		return 0, ""
	}

	score := 0.6
	switch {
	case len(matched) >= 3:
		score = 0.9
	case len(matched) == 2:
		score = 0.75
	}

	shown := matched
	if len(shown) > 3 {
		shown = shown[:3]
	}
	return score, fmt.Sprintf("title contains sensitive keywords: %s", strings.Join(shown, ", "))
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
