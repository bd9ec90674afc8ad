package filters

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// TimeRuleAction selects what a matching rule does to the event.
type TimeRuleAction string

const (
	// TimeActionSkip drops the event entirely.
	TimeActionSkip TimeRuleAction = "skip"
	// TimeActionWeight lets the event through with a TI weight modifier.
	TimeActionWeight TimeRuleAction = "weight"
)

// TimeRule matches events by wall-clock window and weekday. Start and End
// are minutes since midnight; a window with End before Start wraps past
// midnight (23:00-06:00 covers late evening and early morning).
type TimeRule struct {
	Name           string
	startMinute    int
	endMinute      int
	weekdays       map[time.Weekday]bool // nil means every day
	Action         TimeRuleAction
	WeightModifier float64
}

// TimeRuleSpec is the construction form of a rule, with HH:MM strings as
// they appear in configuration.
type TimeRuleSpec struct {
	Name           string
	Start          string // "HH:MM"
	End            string // "HH:MM"
	Weekdays       []time.Weekday
	Action         TimeRuleAction
	WeightModifier float64
}

// NewTimeRule validates and compiles a spec. Malformed clock strings and
// unknown actions are configuration errors.
func NewTimeRule(spec TimeRuleSpec) (TimeRule, error) {
	start, err := parseClock(spec.Start)
	if err != nil {
		return TimeRule{}, fmt.Errorf("rule %s start: %w", spec.Name, err)
	}
	end, err := parseClock(spec.End)
	if err != nil {
		return TimeRule{}, fmt.Errorf("rule %s end: %w", spec.Name, err)
	}

	switch spec.Action {
	case TimeActionSkip, TimeActionWeight:
	default:
		return TimeRule{}, fmt.Errorf("rule %s: unknown action %q", spec.Name, spec.Action)
	}

	modifier := spec.WeightModifier
	if spec.Action == TimeActionWeight && modifier <= 0 {
		return TimeRule{}, fmt.Errorf("rule %s: weight action needs a positive modifier", spec.Name)
	}

	var days map[time.Weekday]bool
	if len(spec.Weekdays) > 0 {
		days = make(map[time.Weekday]bool, len(spec.Weekdays))
		for _, d := range spec.Weekdays {
			days[d] = true
		}
	}

	return TimeRule{
		Name:           spec.Name,
		startMinute:    start,
		endMinute:      end,
		weekdays:       days,
		Action:         spec.Action,
		WeightModifier: modifier,
	}, nil
}

// Matches reports whether the rule covers the given instant.
func (r TimeRule) Matches(ts time.Time) bool {
	if r.weekdays != nil && !r.weekdays[ts.Weekday()] {
		return false
	}
	minute := ts.Hour()*60 + ts.Minute()
	if r.startMinute <= r.endMinute {
		return minute >= r.startMinute && minute < r.endMinute
	}
	// Window wraps past midnight.
	return minute >= r.startMinute || minute < r.endMinute
}

func parseClock(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad clock value %q, want HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("bad hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("bad minute in %q", value)
	}
	return hour*60 + minute, nil
}

func workweek() []time.Weekday {
	return []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	}
}

// DefaultTimeRules returns the built-in schedule.
func DefaultTimeRules() []TimeRuleSpec {
	return []TimeRuleSpec{
		{
			Name:           "office_hours",
			Start:          "09:00",
			End:            "18:00",
			Weekdays:       workweek(),
			Action:         TimeActionWeight,
			WeightModifier: 0.7,
		},
		{
			Name:     "lunch_break",
			Start:    "12:00",
			End:      "13:00",
			Weekdays: workweek(),
			Action:   TimeActionSkip,
		},
		{
			Name:           "late_night",
			Start:          "23:00",
			End:            "06:00",
			Action:         TimeActionWeight,
			WeightModifier: 1.2,
		},
		{
			Name:           "weekend",
			Start:          "00:00",
			End:            "23:59",
			Weekdays:       []time.Weekday{time.Saturday, time.Sunday},
			Action:         TimeActionWeight,
			WeightModifier: 1.1,
		},
	}
}

// TimeRuleFilter evaluates the schedule against each event's timestamp.
// Skip rules always win over weight rules; among weight rules the first
// match in declaration order applies.
type TimeRuleFilter struct {
	base
	rules []TimeRule

	skipHits   int
	weightHits int
}

// NewTimeRuleFilter compiles the given specs, or the default schedule when
// specs is nil.
func NewTimeRuleFilter(specs []TimeRuleSpec) (*TimeRuleFilter, error) {
	if specs == nil {
		specs = DefaultTimeRules()
	}
	rules := make([]TimeRule, 0, len(specs))
	for _, spec := range specs {
		rule, err := NewTimeRule(spec)
		if err != nil {
			return nil, fmt.Errorf("time rule filter: %w", err)
		}
		rules = append(rules, rule)
	}
	return &TimeRuleFilter{base: newBase("time_rule"), rules: rules}, nil
}

// Check applies the schedule to the event timestamp.
func (f *TimeRuleFilter) Check(event *models.ActivityEvent, _ *imaging.Plane) models.FilterResult {
	if !f.enabled {
		return models.FilterPassed(f.name)
	}

	var weightRule *TimeRule
	for i := range f.rules {
		rule := &f.rules[i]
		if !rule.Matches(event.Timestamp) {
			continue
		}
		if rule.Action == TimeActionSkip {
			f.skipHits++
			return f.record(models.FilterSkipped(
				f.name,
				fmt.Sprintf("time rule %s skips this window", rule.Name),
				"time:"+rule.Name,
			))
		}
		if weightRule == nil {
			weightRule = rule
		}
	}

	if weightRule != nil {
		f.weightHits++
		result := models.FilterPassed(f.name)
		result.Reason = fmt.Sprintf("time rule %s applies weight %.2f", weightRule.Name, weightRule.WeightModifier)
		result.MatchedRule = "time:" + weightRule.Name
		result.Hint = &models.FilterHint{WeightModifier: weightRule.WeightModifier}
		return f.record(result)
	}

	return f.record(models.FilterPassed(f.name))
}

// Stats returns the counter snapshot with per-action breakdown.
func (f *TimeRuleFilter) Stats() Stats {
	return Stats{
		Checked: f.checked,
		Skipped: f.skipped,
		Extra: map[string]int{
			"skip_hits":   f.skipHits,
			"weight_hits": f.weightHits,
		},
	}
}

// ResetStats clears base and action counters.
func (f *TimeRuleFilter) ResetStats() {
	f.base.ResetStats()
	f.skipHits = 0
	f.weightHits = 0
}
