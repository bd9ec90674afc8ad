package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/senatus-ai/senatus/internal/analyzers"
	"github.com/senatus-ai/senatus/internal/filters"
	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
)

// stubAnalyzer returns a fixed result, letting tests pin the TI score.
type stubAnalyzer struct {
	name       string
	weight     float64
	enabled    bool
	score      float64
	confidence float64
	delay      time.Duration
	panicWith  any
}

func (s *stubAnalyzer) Name() string            { return s.name }
func (s *stubAnalyzer) Weight() float64         { return s.weight }
func (s *stubAnalyzer) SetWeight(w float64)     { s.weight = w }
func (s *stubAnalyzer) Enabled() bool           { return s.enabled }
func (s *stubAnalyzer) SetEnabled(enabled bool) { s.enabled = enabled }
func (s *stubAnalyzer) Stats() analyzers.Stats  { return analyzers.Stats{} }
func (s *stubAnalyzer) ResetStats()             {}

func (s *stubAnalyzer) Analyze(event *models.ActivityEvent, _ *imaging.Plane) models.AnalyzerResult {
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	r := models.NewAnalyzerResult(s.name, s.score, s.confidence, "stub", nil)
	r.ShouldDelay = s.delay > 0
	r.DelaySeconds = s.delay
	return r
}

func fixedScoreAnalyzers(score float64) []analyzers.Analyzer {
	return []analyzers.Analyzer{
		&stubAnalyzer{name: "stub", weight: 1.0, enabled: true, score: score, confidence: 0.9},
	}
}

func testEvent(app, title string) *models.ActivityEvent {
	// Tuesday 20:00: outside every default skip and weight time rule.
	e := models.NewActivityEvent(time.Date(2025, 3, 11, 20, 0, 0, 0, time.UTC), 30*time.Second, app, title)
	return &e
}

func TestThresholds_OrderingValidated(t *testing.T) {
	tests := []struct {
		name string
		th   Thresholds
		ok   bool
	}{
		{"defaults", DefaultThresholds(), true},
		{"batch above immediate", Thresholds{Immediate: 0.5, Batch: 0.6, Skip: 0.2}, false},
		{"skip above batch", Thresholds{Immediate: 0.8, Batch: 0.3, Skip: 0.4}, false},
		{"all equal", Thresholds{Immediate: 0.5, Batch: 0.5, Skip: 0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTriggerManager(TriggerOptions{Thresholds: &tt.th})
			if (err == nil) != tt.ok {
				t.Errorf("NewTriggerManager err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestTriggerManager_DecisionBands(t *testing.T) {
	tests := []struct {
		name         string
		score        float64
		wantType     models.DecisionType
		wantPriority int
	}{
		{"immediate at 0.75", 0.75, models.DecisionImmediate, 9},
		{"immediate saturates priority", 0.85, models.DecisionImmediate, 10},
		{"exactly immediate threshold", 0.7, models.DecisionImmediate, 0},
		{"batch band", 0.5, models.DecisionBatch, 5},
		{"skip band", 0.1, models.DecisionSkip, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewTriggerManager(TriggerOptions{})
			if err != nil {
				t.Fatalf("NewTriggerManager: %v", err)
			}

			event := testEvent("chrome.exe", "x")
			ti := models.TIResult{EventID: event.ID, TIScore: tt.score, TILevel: models.DeriveTILevel(tt.score)}

			d := m.Evaluate(event, ti)
			if d.DecisionType != tt.wantType {
				t.Fatalf("DecisionType = %v, want %v", d.DecisionType, tt.wantType)
			}
			if tt.wantPriority > 0 && d.Priority != tt.wantPriority {
				t.Errorf("Priority = %d, want %d", d.Priority, tt.wantPriority)
			}
		})
	}
}

func TestTriggerManager_BatchGroupByApp(t *testing.T) {
	m, err := NewTriggerManager(TriggerOptions{})
	if err != nil {
		t.Fatalf("NewTriggerManager: %v", err)
	}

	event := testEvent("firefox.exe", "docs")
	ti := models.TIResult{EventID: event.ID, TIScore: 0.5}

	d := m.Evaluate(event, ti)
	if d.BatchGroup != "app:firefox.exe" {
		t.Errorf("BatchGroup = %q", d.BatchGroup)
	}
	if m.BatchQueueSize() != 1 {
		t.Errorf("BatchQueueSize = %d, want 1", m.BatchQueueSize())
	}
}

func TestTriggerManager_DelayPath(t *testing.T) {
	m, err := NewTriggerManager(TriggerOptions{})
	if err != nil {
		t.Fatalf("NewTriggerManager: %v", err)
	}

	event := testEvent("chrome.exe", "x")
	ti := models.TIResult{
		EventID: event.ID, TIScore: 0.9,
		ShouldDelay: true, DelaySeconds: 30 * time.Second,
	}

	d := m.Evaluate(event, ti)
	if d.DecisionType != models.DecisionDelay {
		t.Fatalf("DecisionType = %v, want delay", d.DecisionType)
	}
	if d.DelayUntil == nil {
		t.Fatal("DelayUntil missing")
	}
	if m.Stats().DelayedCount != 1 {
		t.Errorf("DelayedCount = %d, want 1", m.Stats().DelayedCount)
	}
}

func TestTriggerManager_BatchDrainOnTimeout(t *testing.T) {
	m, err := NewTriggerManager(TriggerOptions{BatchTimeout: 300 * time.Second})
	if err != nil {
		t.Fatalf("NewTriggerManager: %v", err)
	}

	base := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	current := base
	m.now = func() time.Time { return current }

	event := testEvent("chrome.exe", "x")
	m.Evaluate(event, models.TIResult{EventID: event.ID, TIScore: 0.5})

	if got := m.CheckBatchReady(); len(got) != 0 {
		t.Fatalf("queue drained early: %d items", len(got))
	}

	current = base.Add(301 * time.Second)
	got := m.CheckBatchReady()
	if len(got) != 1 {
		t.Fatalf("CheckBatchReady = %d items, want 1", len(got))
	}
	if m.BatchQueueSize() != 0 {
		t.Errorf("queue not emptied")
	}
}

func TestTriggerManager_BatchDrainOnOverflow(t *testing.T) {
	m, err := NewTriggerManager(TriggerOptions{MaxBatchSize: 3})
	if err != nil {
		t.Fatalf("NewTriggerManager: %v", err)
	}

	for i := 0; i < 3; i++ {
		event := testEvent("chrome.exe", "x")
		m.Evaluate(event, models.TIResult{EventID: event.ID, TIScore: 0.5})
	}

	got := m.CheckBatchReady()
	if len(got) == 0 {
		t.Fatal("full queue should drain")
	}
}

func TestTriggerManager_DelayedReadyAndFlush(t *testing.T) {
	m, err := NewTriggerManager(TriggerOptions{})
	if err != nil {
		t.Fatalf("NewTriggerManager: %v", err)
	}

	base := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	current := base
	m.now = func() time.Time { return current }

	delayedEvent := testEvent("chrome.exe", "delayed")
	m.Evaluate(delayedEvent, models.TIResult{
		EventID: delayedEvent.ID, TIScore: 0.6,
		ShouldDelay: true, DelaySeconds: 10 * time.Second,
	})

	if got := m.CheckDelayedReady(); len(got) != 0 {
		t.Fatalf("delay elapsed early: %d", len(got))
	}
	current = base.Add(11 * time.Second)
	if got := m.CheckDelayedReady(); len(got) != 1 {
		t.Fatalf("CheckDelayedReady = %d, want 1", len(got))
	}

	batched := testEvent("chrome.exe", "queued")
	m.Evaluate(batched, models.TIResult{EventID: batched.ID, TIScore: 0.5})

	flushed := m.FlushBatchQueue()
	if len(flushed) != 1 || m.BatchQueueSize() != 0 {
		t.Errorf("FlushBatchQueue = %d items, queue %d", len(flushed), m.BatchQueueSize())
	}
}

func TestTICalculator_WeightedAggregation(t *testing.T) {
	calc := NewTICalculator([]analyzers.Analyzer{
		&stubAnalyzer{name: "a", weight: 0.6, enabled: true, score: 1.0, confidence: 0.9},
		&stubAnalyzer{name: "b", weight: 0.4, enabled: true, score: 0.5, confidence: 0.7},
	}, nil)

	event := testEvent("chrome.exe", "x")
	ti := calc.Calculate(event, nil)

	want := (1.0*0.6 + 0.5*0.4) / (0.6 + 0.4)
	if math.Abs(ti.TIScore-want) > 1e-9 {
		t.Errorf("TIScore = %v, want %v", ti.TIScore, want)
	}
	if ti.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want min 0.7", ti.Confidence)
	}
}

func TestTICalculator_DisabledAnalyzerExcluded(t *testing.T) {
	calc := NewTICalculator([]analyzers.Analyzer{
		&stubAnalyzer{name: "on", weight: 0.5, enabled: true, score: 0.8, confidence: 0.9},
		&stubAnalyzer{name: "off", weight: 0.5, enabled: false, score: 0.0, confidence: 0.1},
	}, nil)

	event := testEvent("chrome.exe", "x")
	ti := calc.Calculate(event, nil)

	if math.Abs(ti.TIScore-0.8) > 1e-9 {
		t.Errorf("TIScore = %v, want 0.8 (disabled analyzer must not dilute)", ti.TIScore)
	}
	if _, present := ti.ComponentScores["off"]; present {
		t.Error("disabled analyzer appeared in component scores")
	}
	if ti.Confidence != 0.9 {
		t.Errorf("Confidence = %v, disabled analyzer must not cap it", ti.Confidence)
	}
}

func TestTICalculator_DelayPropagation(t *testing.T) {
	calc := NewTICalculator([]analyzers.Analyzer{
		&stubAnalyzer{name: "a", weight: 0.5, enabled: true, score: 0.5, confidence: 0.9, delay: 10 * time.Second},
		&stubAnalyzer{name: "b", weight: 0.5, enabled: true, score: 0.5, confidence: 0.9, delay: 25 * time.Second},
	}, nil)

	ti := calc.Calculate(testEvent("chrome.exe", "x"), nil)
	if !ti.ShouldDelay || ti.DelaySeconds != 25*time.Second {
		t.Errorf("delay = %v/%v, want true/25s", ti.ShouldDelay, ti.DelaySeconds)
	}
}

func TestEngine_FilteredShortCircuits(t *testing.T) {
	allow, err := filters.NewAllowListFilter(filters.AllowListOptions{Apps: []string{"idea64"}})
	if err != nil {
		t.Fatalf("allow filter: %v", err)
	}
	e, err := New(Options{
		Filters:   []filters.Filter{allow},
		Analyzers: fixedScoreAnalyzers(0.9),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	d, err := e.ProcessActivity(testEvent("idea64.exe", "main.go"), nil)
	if err != nil {
		t.Fatalf("ProcessActivity: %v", err)
	}
	if d.DecisionType != models.DecisionFiltered {
		t.Fatalf("DecisionType = %v, want filtered", d.DecisionType)
	}
	if d.TIScore != nil {
		t.Error("filtered decision must not carry a TI score")
	}
	if e.Stats().AnalyzedCount != 0 {
		t.Error("stage 2 ran for a filtered event")
	}
}

func TestEngine_DenyListedAppForcesImmediate(t *testing.T) {
	// Low fixed score: without the deny escalation this would be a SKIP.
	e, err := New(Options{
		Filters:   []filters.Filter{filters.NewDenyListFilter(filters.DenyListOptions{})},
		Analyzers: fixedScoreAnalyzers(0.1),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	d, err := e.ProcessActivity(testEvent("ICBC.exe", "Personal Banking"), nil)
	if err != nil {
		t.Fatalf("ProcessActivity: %v", err)
	}

	if d.DecisionType == models.DecisionSkip || d.DecisionType == models.DecisionFiltered {
		t.Fatalf("DecisionType = %v, deny-listed apps must reach analysis", d.DecisionType)
	}
	if d.DecisionType != models.DecisionImmediate {
		t.Fatalf("DecisionType = %v, want immediate", d.DecisionType)
	}
	if d.Metadata["matched_rule"] == "" {
		t.Error("deny-list hint missing from decision metadata")
	}
	if d.TIScore == nil || *d.TIScore < 0.9 {
		t.Errorf("TIScore = %v, want floored to suggested 0.9", d.TIScore)
	}
}

func TestEngine_DenyHintKeptWhenLaterFilterSkips(t *testing.T) {
	// Tuesday 12:30 lands inside the default midday skip rule, which runs
	// after the deny list in the default chain. The deny hint collected
	// before the skip must still reach the decision metadata.
	filterList, err := DefaultFilters()
	if err != nil {
		t.Fatalf("DefaultFilters: %v", err)
	}
	e, err := New(Options{
		Filters:   filterList,
		Analyzers: fixedScoreAnalyzers(0.1),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	event := models.NewActivityEvent(time.Date(2025, 3, 11, 12, 30, 0, 0, time.UTC), 30*time.Second, "ICBC.exe", "Personal Banking")
	d, err := e.ProcessActivity(&event, nil)
	if err != nil {
		t.Fatalf("ProcessActivity: %v", err)
	}

	if d.DecisionType != models.DecisionFiltered {
		t.Fatalf("DecisionType = %v, want filtered by the midday rule", d.DecisionType)
	}
	if d.Metadata["matched_rule"] == "" {
		t.Error("deny-list hint missing from filtered decision metadata")
	}
	if d.Metadata["suggested_ti"] != "0.90" {
		t.Errorf("suggested_ti = %q, want 0.90", d.Metadata["suggested_ti"])
	}
}

func TestEngine_TimeRuleWeightScalesTI(t *testing.T) {
	timeRules, err := filters.NewTimeRuleFilter([]filters.TimeRuleSpec{
		{Name: "quiet", Start: "00:00", End: "23:59", Action: filters.TimeActionWeight, WeightModifier: 0.5},
	})
	if err != nil {
		t.Fatalf("time rules: %v", err)
	}
	e, err := New(Options{
		Filters:   []filters.Filter{timeRules},
		Analyzers: fixedScoreAnalyzers(0.8),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	d, err := e.ProcessActivity(testEvent("chrome.exe", "x"), nil)
	if err != nil {
		t.Fatalf("ProcessActivity: %v", err)
	}

	// 0.8 * 0.5 = 0.4 lands exactly on the batch threshold.
	if d.DecisionType != models.DecisionBatch {
		t.Fatalf("DecisionType = %v, want batch after down-weighting", d.DecisionType)
	}
	if math.Abs(*d.TIScore-0.4) > 1e-9 {
		t.Errorf("TIScore = %v, want 0.4", *d.TIScore)
	}
	if d.Metadata["weight_modifier"] != "0.50" {
		t.Errorf("weight_modifier metadata = %q", d.Metadata["weight_modifier"])
	}
}

func TestEngine_PanicBecomesProcessError(t *testing.T) {
	e, err := New(Options{
		Filters: []filters.Filter{},
		Analyzers: []analyzers.Analyzer{
			&stubAnalyzer{name: "bad", weight: 1, enabled: true, panicWith: "corrupt image"},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	event := testEvent("chrome.exe", "x")
	_, err = e.ProcessActivity(event, nil)
	if err == nil {
		t.Fatal("expected error from panicking analyzer")
	}

	var perr *ProcessError
	if !errors.As(err, &perr) {
		t.Fatalf("error type %T, want *ProcessError", err)
	}
	if perr.EventID != event.ID {
		t.Errorf("EventID = %v, want %v", perr.EventID, event.ID)
	}
}

func TestEngine_RatesAndReset(t *testing.T) {
	allow, err := filters.NewAllowListFilter(filters.AllowListOptions{Apps: []string{"idea64"}})
	if err != nil {
		t.Fatalf("allow filter: %v", err)
	}
	e, err := New(Options{
		Filters:   []filters.Filter{allow},
		Analyzers: fixedScoreAnalyzers(0.8),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := e.ProcessActivity(testEvent("idea64.exe", "x"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ProcessActivity(testEvent("chrome.exe", "x"), nil); err != nil {
		t.Fatal(err)
	}

	if got := e.FilterRate(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("FilterRate = %v, want 0.5", got)
	}
	if got := e.TriggerRate(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("TriggerRate = %v, want 0.5", got)
	}

	e.ResetStats()
	stats := e.Stats()
	if stats.TotalProcessed != 0 || stats.Trigger.TotalDecisions != 0 {
		t.Errorf("stats not cleared: %+v", stats)
	}
	if e.FilterRate() != 0 || e.TriggerRate() != 0 {
		t.Error("rates not cleared")
	}
}

func TestEngine_StaticFrameScenario(t *testing.T) {
	// Two activities 2 seconds apart, same application, byte-identical
	// 100x100 gray captures: the second must be rejected as static.
	e, err := New(Options{
		Filters:   []filters.Filter{filters.NewStaticFrameFilter(filters.StaticFrameOptions{Threshold: 0.05})},
		Analyzers: fixedScoreAnalyzers(0.5),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	frame := imaging.Uniform(100, 100, 128)
	ts := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)

	first := models.NewActivityEvent(ts, 30*time.Second, "notepad.exe", "notes")
	second := models.NewActivityEvent(ts.Add(2*time.Second), 30*time.Second, "notepad.exe", "notes")

	d1, err := e.ProcessActivity(&first, frame)
	if err != nil {
		t.Fatal(err)
	}
	if d1.DecisionType == models.DecisionFiltered {
		t.Fatalf("first frame filtered: %s", d1.Reason)
	}

	d2, err := e.ProcessActivity(&second, frame)
	if err != nil {
		t.Fatal(err)
	}
	if d2.DecisionType != models.DecisionFiltered {
		t.Fatalf("second identical frame not filtered: %v", d2.DecisionType)
	}
	if d2.FilterName != "static_frame" {
		t.Errorf("FilterName = %q", d2.FilterName)
	}
}

func TestEngine_DefaultConstruction(t *testing.T) {
	e, err := New(Options{})
	if err != nil {
		t.Fatalf("New with defaults: %v", err)
	}
	if len(e.Filters()) != 4 {
		t.Errorf("default filter chain length = %d, want 4", len(e.Filters()))
	}
	if len(e.Calculator().Analyzers()) != 5 {
		t.Errorf("default analyzer count = %d, want 5", len(e.Calculator().Analyzers()))
	}
}

func TestEngine_SetContextWindow(t *testing.T) {
	e, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ts := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	history := []models.ActivityEvent{
		models.NewActivityEvent(ts, time.Second, "chrome", "a"),
		models.NewActivityEvent(ts.Add(time.Second), time.Second, "telegram", "b"),
		models.NewActivityEvent(ts.Add(2*time.Second), time.Second, "chrome", "a"),
	}
	e.SetContextWindow(history)

	for _, a := range e.Calculator().Analyzers() {
		if cs, ok := a.(*analyzers.ContextSwitchAnalyzer); ok {
			stats := cs.PatternStats()
			_ = stats
			return
		}
	}
	t.Fatal("context switch analyzer missing from default set")
}
