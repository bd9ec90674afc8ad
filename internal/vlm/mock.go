package vlm

import (
	"context"
	"sync"
)

// Mock is an in-memory Provider for tests and dry runs. It records
// every request and returns a fixed result.
type Mock struct {
	mu       sync.Mutex
	requests []Request

	Response string
	Err      error
}

// NewMock returns a mock answering every call with response.
func NewMock(response string) *Mock {
	return &Mock{Response: response}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Analyze(_ context.Context, req Request) (*Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return &Result{Content: m.Response, Model: "mock"}, nil
}

func (m *Mock) HealthCheck(context.Context) error { return m.Err }

// Requests returns a copy of everything Analyze received.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}
