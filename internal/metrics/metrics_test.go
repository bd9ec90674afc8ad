package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/senatus-ai/senatus/internal/models"
)

func TestObserveDecisionExposesSeries(t *testing.T) {
	c, err := NewCascadeCollector()
	if err != nil {
		t.Fatalf("NewCascadeCollector: %v", err)
	}

	immediate := models.ImmediateDecision(uuid.New(), 0.85, "test", 10)
	filtered := models.FilteredDecision(uuid.New(), "allowlist", "test")

	c.ObserveDecision(&immediate)
	c.ObserveDecision(&filtered)
	c.SetQueueSizes(3, 1)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`senatus_trigger_decisions_total{decision="immediate"} 1`,
		`senatus_trigger_decisions_total{decision="filtered"} 1`,
		`senatus_filters_skips_total{filter="allowlist"} 1`,
		`senatus_trigger_batch_queue_size 3`,
		`senatus_trigger_delayed_items 1`,
		`senatus_engine_events_total 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestTIScoreHistogramOnlyForAnalyzedEvents(t *testing.T) {
	c, err := NewCascadeCollector()
	if err != nil {
		t.Fatalf("NewCascadeCollector: %v", err)
	}

	filtered := models.FilteredDecision(uuid.New(), "static_frame", "test")
	c.ObserveDecision(&filtered)

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	for _, fam := range families {
		if fam.GetName() == "senatus_engine_ti_score" {
			for _, m := range fam.GetMetric() {
				if m.GetHistogram().GetSampleCount() != 0 {
					t.Error("filtered decision must not observe a TI score")
				}
			}
		}
	}
}
