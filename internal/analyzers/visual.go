package analyzers

import (
	"strings"

	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// Application priors for the visual score. Separate from the metadata
// tables: this analyzer asks "how much does this kind of app tend to show
// on screen", not "how sensitive is the app itself".
type appTier struct {
	level    string
	score    float64
	patterns []string
}

func defaultVisualTiers() []appTier {
	return []appTier{
		{
			level: "high",
			score: 0.8,
			patterns: []string{
				"chrome", "firefox", "edge", "brave", "opera",
				"telegram", "discord", "wechat", "qq", "whatsapp",
				"outlook", "thunderbird",
				"paypal", "alipay", "bank",
			},
		},
		{
			level: "medium",
			score: 0.5,
			patterns: []string{
				"word", "excel", "powerpoint", "onenote",
				"pdf", "acrobat", "foxit",
				"teams", "zoom", "slack",
			},
		},
		{
			level: "low",
			score: 0.2,
			patterns: []string{
				"code", "vscode", "visual studio",
				"pycharm", "idea", "webstorm",
				"terminal", "powershell", "cmd",
				"explorer", "finder",
				"notepad", "sublime", "vim",
			},
		},
	}
}

const visualUnknownPrior = 0.4

// VisualAnalyzer scores the capture itself: content entropy and estimated
// text density, blended with an application prior. The feature arithmetic
// lives in the imaging extractor so the sequential and pooled paths stay
// numerically identical.
type VisualAnalyzer struct {
	base

	tiers     []appTier
	extractor imaging.Extractor
}

// NewVisualAnalyzer builds the analyzer around the given feature extractor.
// A nil extractor falls back to the sequential reference implementation.
func NewVisualAnalyzer(weight float64, extractor imaging.Extractor) *VisualAnalyzer {
	if weight <= 0 {
		weight = 0.35
	}
	if extractor == nil {
		extractor = imaging.NewScalarExtractor()
	}
	return &VisualAnalyzer{
		base:      newBase("visual", weight),
		tiers:     defaultVisualTiers(),
		extractor: extractor,
	}
}

// Analyze blends the application prior with image features when a capture
// is present. Without a capture only the discounted prior is available.
func (a *VisualAnalyzer) Analyze(event *models.ActivityEvent, img *imaging.Plane) models.AnalyzerResult {
	prior, level := a.appPrior(strings.ToLower(event.Application))

	if img == nil {
		return a.record(models.NewAnalyzerResult(
			a.name,
			prior*0.6,
			0.6,
			"application prior only: "+level,
			map[string]any{
				"app_score":      prior,
				"app_level":      level,
				"has_screenshot": false,
			},
		))
	}

	features := a.extractor.Extract(img)

	score := prior*0.4 + features.Entropy*0.3 + features.TextDensity*0.3

	return a.record(models.NewAnalyzerResult(
		a.name,
		score,
		0.85,
		buildVisualReason(level, features),
		map[string]any{
			"app_score":      prior,
			"app_level":      level,
			"entropy":        features.Entropy,
			"text_density":   features.TextDensity,
			"has_screenshot": true,
		},
	))
}

func (a *VisualAnalyzer) appPrior(app string) (float64, string) {
	for _, tier := range a.tiers {
		for _, pattern := range tier.patterns {
			if strings.Contains(app, pattern) {
				return tier.score, tier.level
			}
		}
	}
	return visualUnknownPrior, "unknown"
}

func buildVisualReason(level string, f imaging.Features) string {
	parts := []string{"app tier: " + level}

	switch {
	case f.Entropy > 0.7:
		parts = append(parts, "complex content")
	case f.Entropy > 0.4:
		parts = append(parts, "moderate content")
	default:
		parts = append(parts, "simple content")
	}

	switch {
	case f.TextDensity > 0.6:
		parts = append(parts, "dense text")
	case f.TextDensity > 0.3:
		parts = append(parts, "some text")
	default:
		parts = append(parts, "mostly graphical")
	}

	return strings.Join(parts, "; ")
}
