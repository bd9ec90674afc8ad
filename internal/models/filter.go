package models

// FilterHint carries auxiliary information a pass-through filter wants later
// stages to see: a suggested TI floor from the deny list, or a weight
// modifier from a time rule. A nil hint means the filter had nothing to add.
type FilterHint struct {
	SuggestedTI    float64 `json:"suggested_ti,omitempty"`
	ForceImmediate bool    `json:"force_immediate,omitempty"`
	WeightModifier float64 `json:"weight_modifier,omitempty"`
}

// FilterResult is the outcome of one Stage 1 filter check. The first filter
// whose result has Skip=true terminates Stage 1.
type FilterResult struct {
	Skip        bool        `json:"skip"`
	FilterName  string      `json:"filter_name"`
	Reason      string      `json:"reason"`
	MatchedRule string      `json:"matched_rule,omitempty"`
	Hint        *FilterHint `json:"hint,omitempty"`
}

// FilterPassed builds a non-skipping result for the named filter.
func FilterPassed(name string) FilterResult {
	return FilterResult{Skip: false, FilterName: name, Reason: "passed"}
}

// FilterSkipped builds a skipping result with the matched rule attached.
func FilterSkipped(name, reason, matchedRule string) FilterResult {
	return FilterResult{
		Skip:        true,
		FilterName:  name,
		Reason:      reason,
		MatchedRule: matchedRule,
	}
}
