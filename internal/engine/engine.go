package engine

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/senatus-ai/senatus/internal/analyzers"
	"github.com/senatus-ai/senatus/internal/filters"
	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// EngineStats aggregates counters across all three stages.
type EngineStats struct {
	TotalProcessed int                        `json:"total_processed"`
	FilteredCount  int                        `json:"filtered_count"`
	AnalyzedCount  int                        `json:"analyzed_count"`
	Filters        map[string]filters.Stats   `json:"filters"`
	Analyzers      map[string]analyzers.Stats `json:"analyzers"`
	Calculator     CalculatorStats            `json:"calculator"`
	Trigger        TriggerStats               `json:"trigger"`
}

// Engine runs the three-stage cascade for one activity stream. Not safe for
// concurrent use: run one engine per stream, or serialize externally.
type Engine struct {
	filterList []filters.Filter
	calculator *TICalculator
	trigger    *TriggerManager
	logger     *slog.Logger

	totalProcessed int
	filteredCount  int
	analyzedCount  int
}

// Options configures an engine. Nil slices install the default filter and
// analyzer sets.
type Options struct {
	Filters      []filters.Filter
	Analyzers    []analyzers.Analyzer
	Thresholds   *Thresholds
	MaxBatchSize int
	BatchTimeout int // seconds; 0 keeps the default
	Logger       *slog.Logger
}

// DefaultFilters builds the standard Stage 1 chain in evaluation order:
// allow list, deny list, time rules, static frame.
func DefaultFilters() ([]filters.Filter, error) {
	allow, err := filters.NewAllowListFilter(filters.AllowListOptions{})
	if err != nil {
		return nil, err
	}
	timeRules, err := filters.NewTimeRuleFilter(nil)
	if err != nil {
		return nil, err
	}
	return []filters.Filter{
		allow,
		filters.NewDenyListFilter(filters.DenyListOptions{}),
		timeRules,
		filters.NewStaticFrameFilter(filters.StaticFrameOptions{}),
	}, nil
}

// New builds an engine. Configuration problems (bad thresholds, malformed
// rules) surface here, before any event is processed.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	filterList := opts.Filters
	if filterList == nil {
		var err error
		if filterList, err = DefaultFilters(); err != nil {
			return nil, fmt.Errorf("default filters: %w", err)
		}
	}

	triggerOpts := TriggerOptions{
		Thresholds:   opts.Thresholds,
		MaxBatchSize: opts.MaxBatchSize,
		Logger:       logger,
	}
	if opts.BatchTimeout > 0 {
		triggerOpts.BatchTimeout = time.Duration(opts.BatchTimeout) * time.Second
	}
	trigger, err := NewTriggerManager(triggerOpts)
	if err != nil {
		return nil, fmt.Errorf("trigger manager: %w", err)
	}

	e := &Engine{
		filterList: filterList,
		calculator: NewTICalculator(opts.Analyzers, logger),
		trigger:    trigger,
		logger:     logger,
	}

	logger.Info("engine initialized",
		"filters", len(e.filterList),
		"analyzers", len(e.calculator.Analyzers()),
	)
	return e, nil
}

// ProcessActivity runs one event through the cascade.
//
// Stage 1 short-circuits with a FILTERED decision on the first skipping
// filter. Pass-through filters may leave hints that adjust the final stage:
// a deny-list hint floors the TI score and can force an immediate decision,
// a time-rule hint scales it. Hints gathered before a skipping filter still
// land in the FILTERED decision's metadata. An internal panic is converted
// into a ProcessError and no decision is returned.
func (e *Engine) ProcessActivity(event *models.ActivityEvent, img *imaging.Plane) (decision models.TriggerDecision, err error) {
	e.totalProcessed++

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event processing panicked", "event_id", event.ID, "panic", r)
			decision = models.TriggerDecision{}
			err = &ProcessError{EventID: event.ID, Err: fmt.Errorf("internal failure: %v", r)}
		}
	}()

	// Stage 1: rule filters.
	filterResult, hints := e.applyFilters(event, img)
	if filterResult.Skip {
		e.filteredCount++
		e.logger.Debug("event filtered",
			"event_id", event.ID,
			"filter", filterResult.FilterName,
			"reason", filterResult.Reason,
		)
		d := models.FilteredDecision(event.ID, filterResult.FilterName, filterResult.Reason)
		annotate(&d, hints)
		return d, nil
	}

	// Stage 2: TI calculation.
	e.analyzedCount++
	ti := e.calculator.Calculate(event, img)
	ti = applyHints(ti, hints)

	// Stage 3: trigger decision.
	if hints.forceImmediate {
		d := e.trigger.ForceImmediate(event, ti, "deny list escalation")
		annotate(&d, hints)
		return d, nil
	}

	d := e.trigger.Evaluate(event, ti)
	annotate(&d, hints)
	return d, nil
}

// ProcessBatch runs events through ProcessActivity one by one. Images are
// keyed by event ID; missing entries mean no capture.
func (e *Engine) ProcessBatch(events []models.ActivityEvent, images map[string]*imaging.Plane) ([]models.TriggerDecision, error) {
	decisions := make([]models.TriggerDecision, 0, len(events))
	for i := range events {
		event := &events[i]
		d, err := e.ProcessActivity(event, images[event.ID.String()])
		if err != nil {
			return decisions, err
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

type hintSet struct {
	suggestedTI    float64
	forceImmediate bool
	weightModifier float64
	matchedRules   []string
}

func (e *Engine) applyFilters(event *models.ActivityEvent, img *imaging.Plane) (models.FilterResult, hintSet) {
	hints := hintSet{weightModifier: 1.0}

	for _, f := range e.filterList {
		result := f.Check(event, img)
		if result.Skip {
			return result, hints
		}
		if result.Hint == nil {
			continue
		}
		if result.Hint.SuggestedTI > hints.suggestedTI {
			hints.suggestedTI = result.Hint.SuggestedTI
		}
		if result.Hint.ForceImmediate {
			hints.forceImmediate = true
		}
		if result.Hint.WeightModifier > 0 {
			hints.weightModifier *= result.Hint.WeightModifier
		}
		if result.MatchedRule != "" {
			hints.matchedRules = append(hints.matchedRules, result.MatchedRule)
		}
	}
	return models.FilterPassed("all"), hints
}

// applyHints rescales and floors the TI score per the Stage 1 hints, then
// re-derives the level.
func applyHints(ti models.TIResult, hints hintSet) models.TIResult {
	score := ti.TIScore
	if hints.weightModifier != 1.0 {
		score *= hints.weightModifier
	}
	if hints.suggestedTI > score {
		score = hints.suggestedTI
	}
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	if score == ti.TIScore {
		return ti
	}
	ti.TIScore = score
	ti.TILevel = models.DeriveTILevel(score)
	return ti
}

func annotate(d *models.TriggerDecision, hints hintSet) {
	if len(hints.matchedRules) == 0 && hints.weightModifier == 1.0 {
		return
	}
	if d.Metadata == nil {
		d.Metadata = make(map[string]string)
	}
	for i, rule := range hints.matchedRules {
		key := "matched_rule"
		if i > 0 {
			key = fmt.Sprintf("matched_rule_%d", i+1)
		}
		d.Metadata[key] = rule
	}
	if hints.suggestedTI > 0 {
		d.Metadata["suggested_ti"] = strconv.FormatFloat(hints.suggestedTI, 'f', 2, 64)
	}
	if hints.weightModifier != 1.0 {
		d.Metadata["weight_modifier"] = strconv.FormatFloat(hints.weightModifier, 'f', 2, 64)
	}
}

// CheckBatchQueue polls the batch queue for ready items.
func (e *Engine) CheckBatchQueue() []QueueItem { return e.trigger.CheckBatchReady() }

// CheckDelayedQueue polls the delay map for elapsed items.
func (e *Engine) CheckDelayedQueue() []QueueItem { return e.trigger.CheckDelayedReady() }

// FlushBatchQueue drains the batch queue unconditionally.
func (e *Engine) FlushBatchQueue() []QueueItem { return e.trigger.FlushBatchQueue() }

// TriggerManager exposes the Stage 3 manager.
func (e *Engine) TriggerManager() *TriggerManager { return e.trigger }

// Calculator exposes the Stage 2 calculator.
func (e *Engine) Calculator() *TICalculator { return e.calculator }

// Filters returns the Stage 1 chain in evaluation order.
func (e *Engine) Filters() []filters.Filter { return e.filterList }

// SetContextWindow injects historical activities into the context-switch
// analyzer so a fresh engine starts with a warm switching history.
func (e *Engine) SetContextWindow(events []models.ActivityEvent) {
	for _, a := range e.calculator.Analyzers() {
		if cs, ok := a.(*analyzers.ContextSwitchAnalyzer); ok {
			cs.SetContextWindow(events)
			return
		}
	}
	e.logger.Warn("no context switch analyzer registered")
}

// FilterRate reports the fraction of processed events rejected in Stage 1.
func (e *Engine) FilterRate() float64 {
	if e.totalProcessed == 0 {
		return 0
	}
	return float64(e.filteredCount) / float64(e.totalProcessed)
}

// TriggerRate reports the fraction of processed events routed to the vision
// model (IMMEDIATE or BATCH).
func (e *Engine) TriggerRate() float64 {
	if e.totalProcessed == 0 {
		return 0
	}
	s := e.trigger.Stats()
	return float64(s.ImmediateCount+s.BatchCount) / float64(e.totalProcessed)
}

// Stats snapshots counters across all stages.
func (e *Engine) Stats() EngineStats {
	filterStats := make(map[string]filters.Stats, len(e.filterList))
	for _, f := range e.filterList {
		filterStats[f.Name()] = f.Stats()
	}
	analyzerStats := make(map[string]analyzers.Stats)
	for _, a := range e.calculator.Analyzers() {
		analyzerStats[a.Name()] = a.Stats()
	}
	return EngineStats{
		TotalProcessed: e.totalProcessed,
		FilteredCount:  e.filteredCount,
		AnalyzedCount:  e.analyzedCount,
		Filters:        filterStats,
		Analyzers:      analyzerStats,
		Calculator:     e.calculator.Stats(),
		Trigger:        e.trigger.Stats(),
	}
}

// ResetStats clears counters in every stage at once.
func (e *Engine) ResetStats() {
	e.totalProcessed = 0
	e.filteredCount = 0
	e.analyzedCount = 0
	for _, f := range e.filterList {
		f.ResetStats()
	}
	e.calculator.ResetStats()
	e.trigger.ResetStats()
}
