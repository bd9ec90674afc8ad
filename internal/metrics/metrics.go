// Package metrics exposes Prometheus collectors for the cascade: decision
// counters, TI score distribution, filter hits and queue depths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/senatus-ai/senatus/internal/models"
)

// CascadeCollector owns a private registry so collectors never collide with
// a host process registering its own metrics.
type CascadeCollector struct {
	registry *prometheus.Registry

	decisionsTotal *prometheus.CounterVec
	tiScores       prometheus.Histogram
	filterHits     *prometheus.CounterVec
	batchQueueSize prometheus.Gauge
	delayedSize    prometheus.Gauge
	eventsTotal    prometheus.Counter
}

// NewCascadeCollector constructs and registers the cascade collectors.
func NewCascadeCollector() (*CascadeCollector, error) {
	registry := prometheus.NewRegistry()

	decisionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "senatus",
		Subsystem: "trigger",
		Name:      "decisions_total",
		Help:      "Trigger decisions by terminal type.",
	}, []string{"decision"})

	tiScores := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "senatus",
		Subsystem: "engine",
		Name:      "ti_score",
		Help:      "Distribution of computed Taboo Index scores.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	})

	filterHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "senatus",
		Subsystem: "filters",
		Name:      "skips_total",
		Help:      "Events rejected in Stage 1, by filter.",
	}, []string{"filter"})

	batchQueueSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "senatus",
		Subsystem: "trigger",
		Name:      "batch_queue_size",
		Help:      "Current batch queue depth.",
	})

	delayedSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "senatus",
		Subsystem: "trigger",
		Name:      "delayed_items",
		Help:      "Current delay map size.",
	})

	eventsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "senatus",
		Subsystem: "engine",
		Name:      "events_total",
		Help:      "Total activity events processed.",
	})

	collectors := []prometheus.Collector{
		decisionsTotal, tiScores, filterHits, batchQueueSize, delayedSize, eventsTotal,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &CascadeCollector{
		registry:       registry,
		decisionsTotal: decisionsTotal,
		tiScores:       tiScores,
		filterHits:     filterHits,
		batchQueueSize: batchQueueSize,
		delayedSize:    delayedSize,
		eventsTotal:    eventsTotal,
	}, nil
}

// ObserveDecision records one processed event and its terminal decision.
func (c *CascadeCollector) ObserveDecision(d *models.TriggerDecision) {
	c.eventsTotal.Inc()
	c.decisionsTotal.WithLabelValues(string(d.DecisionType)).Inc()
	if d.TIScore != nil {
		c.tiScores.Observe(*d.TIScore)
	}
	if d.DecisionType == models.DecisionFiltered {
		c.filterHits.WithLabelValues(d.FilterName).Inc()
	}
}

// SetQueueSizes mirrors the trigger manager's queue depths.
func (c *CascadeCollector) SetQueueSizes(batch, delayed int) {
	c.batchQueueSize.Set(float64(batch))
	c.delayedSize.Set(float64(delayed))
}

// Handler returns an HTTP handler exposing the registry.
func (c *CascadeCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry for test gathering.
func (c *CascadeCollector) Registry() *prometheus.Registry { return c.registry }
