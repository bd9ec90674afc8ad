package main

import (
	"io"
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/senatus-ai/senatus/internal/imaging"
	"github.com/senatus-ai/senatus/internal/models"
	"github.com/senatus-ai/senatus/internal/vlm"
)

func TestDispatchOne_ForwardsProvidedScreenshot(t *testing.T) {
	mock := vlm.NewMock("summary")
	event := models.NewActivityEvent(
		time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC),
		30*time.Second, "chrome.exe", "bank login")
	plane := imaging.Uniform(16, 16, 128)
	score := 0.85

	if !dispatchOne(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), mock, event, plane, &score) {
		t.Fatal("dispatchOne reported failure")
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if len(reqs[0].ImagePNG) == 0 {
		t.Error("screenshot not forwarded")
	}
	if reqs[0].Application != "chrome.exe" {
		t.Errorf("Application = %q", reqs[0].Application)
	}
}

func TestDispatchOne_ProviderErrorNotCounted(t *testing.T) {
	mock := vlm.NewMock("x")
	mock.Err = errors.New("model down")
	event := models.NewActivityEvent(
		time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC),
		time.Second, "chrome.exe", "t")

	if dispatchOne(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), mock, event, nil, nil) {
		t.Fatal("failed call must not count as dispatched")
	}
}
