package filters

import (
	"fmt"
	"strings"

	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// Default deny list: applications whose sessions must reach the vision
// model. Bare process names, matched as case-insensitive substrings.
var defaultDenyApps = []string{
	// Payment platforms
	"alipay", "wechatpay", "paypal", "venmo",

	// Banking clients
	"icbc", "ccb", "cmb", "bocom",

	// Crypto
	"binance", "coinbase", "metamask",

	// Password managers
	"1password", "bitwarden", "keepass", "lastpass", "dashlane",

	// Anonymity and tunneling tools
	"tor", "i2p", "expressvpn", "nordvpn", "surfshark", "clash", "v2ray", "shadowsocks",
}

var defaultDenyTitleKeywords = []string{
	"incognito",
	"private browsing",
	"inprivate",
	"password manager",
	"two-factor",
	"2fa",
	"authenticator",
	"wallet",
	"crypto",
	"bitcoin",
	"ethereum",
	"wire transfer",
}

// DenyListFilter flags high-sensitivity applications. Unlike the allow
// list it never skips: matched events pass through carrying a hint with a
// suggested TI floor, so later stages escalate instead of discarding.
type DenyListFilter struct {
	base

	apps          []string
	titleKeywords []string

	suggestedTI    float64
	forceImmediate bool

	hits         int
	appMatches   int
	titleMatches int
}

// DenyListOptions overrides the built-in deny tables and escalation hint.
type DenyListOptions struct {
	Apps           []string
	TitleKeywords  []string
	SuggestedTI    float64 // 0 keeps the 0.9 default
	ForceImmediate *bool   // nil keeps the default (true)
}

// NewDenyListFilter builds the filter.
func NewDenyListFilter(opts DenyListOptions) *DenyListFilter {
	apps := opts.Apps
	if apps == nil {
		apps = defaultDenyApps
	}
	keywords := opts.TitleKeywords
	if keywords == nil {
		keywords = defaultDenyTitleKeywords
	}

	suggested := opts.SuggestedTI
	if suggested <= 0 {
		suggested = 0.9
	}
	if suggested > 1 {
		suggested = 1
	}

	force := true
	if opts.ForceImmediate != nil {
		force = *opts.ForceImmediate
	}

	return &DenyListFilter{
		base:           newBase("denylist"),
		apps:           lowerAll(apps),
		titleKeywords:  lowerAll(keywords),
		suggestedTI:    suggested,
		forceImmediate: force,
	}
}

// Check never skips. On a match it attaches the escalation hint and records
// the matched rule for downstream metadata.
func (f *DenyListFilter) Check(event *models.ActivityEvent, _ *imaging.Plane) models.FilterResult {
	if !f.enabled {
		return models.FilterPassed(f.name)
	}

	app := strings.ToLower(event.Application)
	title := strings.ToLower(event.WindowTitle)

	matchType, rule := f.match(app, title)
	if rule == "" {
		return f.record(models.FilterPassed(f.name))
	}

	f.hits++
	if matchType == "app" {
		f.appMatches++
	} else {
		f.titleMatches++
	}

	result := models.FilterResult{
		Skip:        false,
		FilterName:  f.name,
		Reason:      fmt.Sprintf("deny list match on %s: %s", matchType, rule),
		MatchedRule: fmt.Sprintf("denylist:%s:%s", matchType, rule),
		Hint: &models.FilterHint{
			SuggestedTI:    f.suggestedTI,
			ForceImmediate: f.forceImmediate,
		},
	}
	return f.record(result)
}

func (f *DenyListFilter) match(app, title string) (string, string) {
	for _, candidate := range f.apps {
		if strings.Contains(app, candidate) {
			return "app", candidate
		}
	}
	for _, keyword := range f.titleKeywords {
		if strings.Contains(title, keyword) {
			return "title", keyword
		}
	}
	return "", ""
}

// IsDenied reports whether an event matches the deny list without touching
// counters. Used by callers that only need the boolean.
func (f *DenyListFilter) IsDenied(event *models.ActivityEvent) bool {
	_, rule := f.match(strings.ToLower(event.Application), strings.ToLower(event.WindowTitle))
	return rule != ""
}

// Stats returns the counter snapshot including match-type breakdown.
func (f *DenyListFilter) Stats() Stats {
	return Stats{
		Checked: f.checked,
		Skipped: f.skipped,
		Extra: map[string]int{
			"hits":          f.hits,
			"app_matches":   f.appMatches,
			"title_matches": f.titleMatches,
		},
	}
}

// ResetStats clears base and match counters.
func (f *DenyListFilter) ResetStats() {
	f.base.ResetStats()
	f.hits = 0
	f.appMatches = 0
	f.titleMatches = 0
}
