package engine

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/senatus-ai/senatus/internal/models"
)

const (
	defaultMaxBatchSize = 10
	defaultBatchTimeout = 300 * time.Second
)

// Thresholds hold the TI cutoffs for the three-way trigger decision. They
// must satisfy Skip < Batch < Immediate.
type Thresholds struct {
	Immediate float64 `yaml:"immediate"`
	Batch     float64 `yaml:"batch"`
	Skip      float64 `yaml:"skip"`
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{Immediate: 0.7, Batch: 0.4, Skip: 0.2}
}

// Validate enforces the ordering invariant.
func (t Thresholds) Validate() error {
	if !(t.Skip < t.Batch && t.Batch < t.Immediate) {
		return fmt.Errorf("thresholds must satisfy skip < batch < immediate, got skip=%v batch=%v immediate=%v",
			t.Skip, t.Batch, t.Immediate)
	}
	return nil
}

// QueueItem pairs an event with its TI result while it waits in the batch
// queue or the delay map.
type QueueItem struct {
	Event   models.ActivityEvent
	TI      models.TIResult
	AddedAt time.Time
}

// TriggerStats is the decision counter snapshot.
type TriggerStats struct {
	TotalDecisions int `json:"total_decisions"`
	ImmediateCount int `json:"immediate_count"`
	BatchCount     int `json:"batch_count"`
	SkipCount      int `json:"skip_count"`
	DelayCount     int `json:"delay_count"`
	BatchQueueSize int `json:"batch_queue_size"`
	DelayedCount   int `json:"delayed_count"`
}

// TriggerManager turns TI results into trigger decisions and owns the batch
// queue and delay map. Drains are pull-based: Evaluate never dequeues;
// callers poll CheckBatchReady and CheckDelayedReady.
type TriggerManager struct {
	thresholds   Thresholds
	maxBatchSize int
	batchTimeout time.Duration

	batchQueue []QueueItem
	delayed    map[uuid.UUID]QueueItem

	logger *slog.Logger
	now    func() time.Time

	totalDecisions int
	immediateCount int
	batchCount     int
	skipCount      int
	delayCount     int
}

// TriggerOptions configures the manager. Zero values keep the defaults.
type TriggerOptions struct {
	Thresholds   *Thresholds
	MaxBatchSize int
	BatchTimeout time.Duration
	Logger       *slog.Logger
}

// NewTriggerManager validates the thresholds and builds the manager. An
// invalid threshold ordering is a configuration error.
func NewTriggerManager(opts TriggerOptions) (*TriggerManager, error) {
	thresholds := DefaultThresholds()
	if opts.Thresholds != nil {
		thresholds = *opts.Thresholds
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	maxBatch := opts.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatchSize
	}
	timeout := opts.BatchTimeout
	if timeout <= 0 {
		timeout = defaultBatchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &TriggerManager{
		thresholds:   thresholds,
		maxBatchSize: maxBatch,
		batchTimeout: timeout,
		delayed:      make(map[uuid.UUID]QueueItem),
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Thresholds returns the configured cutoffs.
func (m *TriggerManager) Thresholds() Thresholds { return m.thresholds }

// BatchQueueSize returns the current batch queue length.
func (m *TriggerManager) BatchQueueSize() int { return len(m.batchQueue) }

// DelayedSize reports the current delay-map population.
func (m *TriggerManager) DelayedSize() int { return len(m.delayed) }

// Evaluate maps a TI result onto a trigger decision and updates queue state.
func (m *TriggerManager) Evaluate(event *models.ActivityEvent, ti models.TIResult) models.TriggerDecision {
	m.totalDecisions++

	if ti.ShouldDelay {
		m.delayCount++
		return m.handleDelay(event, ti)
	}

	var decision models.TriggerDecision
	switch {
	case ti.TIScore >= m.thresholds.Immediate:
		m.immediateCount++
		decision = m.handleImmediate(event, ti)
	case ti.TIScore >= m.thresholds.Batch:
		m.batchCount++
		decision = m.handleBatch(event, ti)
	default:
		m.skipCount++
		decision = models.SkipDecision(event.ID, ti.TIScore,
			fmt.Sprintf("ti score %.3f below batch threshold", ti.TIScore))
	}

	m.logger.Debug("trigger decision",
		"event_id", event.ID,
		"ti_score", ti.TIScore,
		"decision", decision.DecisionType,
	)
	return decision
}

// ForceImmediate bypasses the threshold comparison, issuing an IMMEDIATE
// decision regardless of score. Used for deny-list escalations.
func (m *TriggerManager) ForceImmediate(event *models.ActivityEvent, ti models.TIResult, cause string) models.TriggerDecision {
	m.totalDecisions++
	m.immediateCount++
	d := m.handleImmediate(event, ti)
	if cause != "" {
		d.Reason = cause + ": " + d.Reason
	}
	return d
}

func (m *TriggerManager) handleImmediate(event *models.ActivityEvent, ti models.TIResult) models.TriggerDecision {
	priority := immediatePriority(ti.TIScore)
	return models.ImmediateDecision(event.ID, ti.TIScore,
		fmt.Sprintf("ti score %.3f above immediate threshold", ti.TIScore), priority)
}

func immediatePriority(score float64) int {
	p := int(score*10) + 2
	if p > 10 {
		p = 10
	}
	return p
}

func (m *TriggerManager) handleBatch(event *models.ActivityEvent, ti models.TIResult) models.TriggerDecision {
	m.batchQueue = append(m.batchQueue, QueueItem{Event: *event, TI: ti, AddedAt: m.now()})
	group := "app:" + event.Application
	return models.BatchDecision(event.ID, ti.TIScore, group,
		fmt.Sprintf("ti score %.3f in batch range", ti.TIScore))
}

func (m *TriggerManager) handleDelay(event *models.ActivityEvent, ti models.TIResult) models.TriggerDecision {
	until := m.now().Add(ti.DelaySeconds)
	m.delayed[event.ID] = QueueItem{Event: *event, TI: ti, AddedAt: m.now()}
	return models.DelayDecision(event.ID, ti.TIScore, until,
		fmt.Sprintf("revisit after %s", ti.DelaySeconds))
}

// CheckBatchReady dequeues items whose queue age passed the timeout or that
// overflow the configured batch size. Items drain oldest first.
func (m *TriggerManager) CheckBatchReady() []QueueItem {
	var ready []QueueItem
	now := m.now()

	for len(m.batchQueue) > 0 {
		head := m.batchQueue[0]
		if now.Sub(head.AddedAt) >= m.batchTimeout || len(m.batchQueue) >= m.maxBatchSize {
			m.batchQueue = m.batchQueue[1:]
			ready = append(ready, head)
			continue
		}
		break
	}
	return ready
}

// CheckDelayedReady removes and returns delay-map entries whose requested
// delay has elapsed.
func (m *TriggerManager) CheckDelayedReady() []QueueItem {
	var ready []QueueItem
	now := m.now()

	for id, item := range m.delayed {
		if now.Sub(item.AddedAt) >= item.TI.DelaySeconds {
			ready = append(ready, item)
			delete(m.delayed, id)
		}
	}
	return ready
}

// FlushBatchQueue drains the whole batch queue unconditionally, e.g. on
// shutdown.
func (m *TriggerManager) FlushBatchQueue() []QueueItem {
	items := m.batchQueue
	m.batchQueue = nil
	return items
}

// Stats returns the decision counter snapshot.
func (m *TriggerManager) Stats() TriggerStats {
	return TriggerStats{
		TotalDecisions: m.totalDecisions,
		ImmediateCount: m.immediateCount,
		BatchCount:     m.batchCount,
		SkipCount:      m.skipCount,
		DelayCount:     m.delayCount,
		BatchQueueSize: len(m.batchQueue),
		DelayedCount:   len(m.delayed),
	}
}

// ResetStats clears decision counters. Queue contents are untouched.
func (m *TriggerManager) ResetStats() {
	m.totalDecisions = 0
	m.immediateCount = 0
	m.batchCount = 0
	m.skipCount = 0
	m.delayCount = 0
}
