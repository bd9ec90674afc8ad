package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"
)

func TestRoutes(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("metrics ok"))
	})
	status := func() any {
		return map[string]int{"total_processed": 7}
	}

	srv := New(":0", slog.New(slog.NewTextHandler(io.Discard, nil)), metricsHandler, status)

	t.Run("healthz", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec.Body.String() != `{"status":"ok"}` {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if rec.Body.String() != "metrics ok" {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

		var payload map[string]int
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if payload["total_processed"] != 7 {
			t.Errorf("payload = %v", payload)
		}
	})
}

func TestStatusDisabledWithoutFunc(t *testing.T) {
	srv := New(":0", slog.New(slog.NewTextHandler(io.Discard, nil)), http.NotFoundHandler(), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
