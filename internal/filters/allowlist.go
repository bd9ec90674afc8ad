package filters

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// Default allow list: routine applications whose screens carry no signal
// worth an inference call. Bare process names, matched case-insensitively.
var defaultAllowApps = []string{
	// Development tools
	"devenv", "idea64", "pycharm64", "webstorm64", "rider64",

	// Terminals
	"windowsterminal", "pwsh",

	// System tools
	"taskmgr", "mmc",

	// Office suite in routine use
	"winword", "powerpnt",

	// Collaboration
	"teams", "zoom",

	// Note taking
	"obsidian", "notion", "onenote",
}

var defaultAllowTitleKeywords = []string{
	"visual studio",
	"debug console",
	"control panel",
}

// AllowListFilter skips analysis entirely for applications and window titles
// on the allow list.
type AllowListFilter struct {
	base

	apps          []string
	titleKeywords []string

	useRegex      bool
	appPatterns   []*regexp.Regexp
	titlePatterns []*regexp.Regexp
}

// AllowListOptions overrides the built-in allow tables. Nil slices keep the
// defaults; UseRegex switches both tables from substring to regexp matching.
type AllowListOptions struct {
	Apps          []string
	TitleKeywords []string
	UseRegex      bool
}

// NewAllowListFilter builds the filter. Compiling an invalid regexp is a
// configuration error surfaced at construction.
func NewAllowListFilter(opts AllowListOptions) (*AllowListFilter, error) {
	apps := opts.Apps
	if apps == nil {
		apps = defaultAllowApps
	}
	keywords := opts.TitleKeywords
	if keywords == nil {
		keywords = defaultAllowTitleKeywords
	}

	f := &AllowListFilter{
		base:          newBase("allowlist"),
		apps:          lowerAll(apps),
		titleKeywords: lowerAll(keywords),
		useRegex:      opts.UseRegex,
	}

	if opts.UseRegex {
		var err error
		if f.appPatterns, err = compileAll(f.apps); err != nil {
			return nil, fmt.Errorf("allowlist app pattern: %w", err)
		}
		if f.titlePatterns, err = compileAll(f.titleKeywords); err != nil {
			return nil, fmt.Errorf("allowlist title pattern: %w", err)
		}
	}

	return f, nil
}

// Check reports a skip when the application or title matches the allow list.
func (f *AllowListFilter) Check(event *models.ActivityEvent, _ *imaging.Plane) models.FilterResult {
	if !f.enabled {
		return models.FilterPassed(f.name)
	}

	app := strings.ToLower(event.Application)
	title := strings.ToLower(event.WindowTitle)

	if rule := f.matchApp(app); rule != "" {
		return f.record(models.FilterSkipped(
			f.name,
			fmt.Sprintf("application %s is on the allow list", event.Application),
			"app:"+rule,
		))
	}

	if rule := f.matchTitle(title); rule != "" {
		return f.record(models.FilterSkipped(
			f.name,
			fmt.Sprintf("window title matches allow keyword %q", rule),
			"title:"+rule,
		))
	}

	return f.record(models.FilterPassed(f.name))
}

func (f *AllowListFilter) matchApp(app string) string {
	if f.useRegex {
		for _, p := range f.appPatterns {
			if p.MatchString(app) {
				return p.String()
			}
		}
		return ""
	}
	for _, candidate := range f.apps {
		if strings.Contains(app, candidate) {
			return candidate
		}
	}
	return ""
}

func (f *AllowListFilter) matchTitle(title string) string {
	if f.useRegex {
		for _, p := range f.titlePatterns {
			if p.MatchString(title) {
				return p.String()
			}
		}
		return ""
	}
	for _, keyword := range f.titleKeywords {
		if strings.Contains(title, keyword) {
			return keyword
		}
	}
	return ""
}

// Stats returns the counter snapshot.
func (f *AllowListFilter) Stats() Stats {
	return Stats{Checked: f.checked, Skipped: f.skipped}
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
