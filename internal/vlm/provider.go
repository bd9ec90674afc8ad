// Package vlm is the boundary to the vision language model that
// receives the screenshots the cascade decided are worth analyzing.
package vlm

import (
	"context"
	"fmt"
	"time"

	"github.com/senatus-ai/senatus/internal/models"
)

// Request is one inference call: a text prompt, optionally an encoded
// screenshot, and the activity context it came from.
type Request struct {
	Prompt      string
	ImagePNG    []byte
	Application string
	WindowTitle string
}

// Result is the model's answer plus call accounting.
type Result struct {
	Content          string
	Model            string
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
}

// Provider abstracts the inference backend. Implementations must be
// safe for concurrent use.
type Provider interface {
	Name() string
	Analyze(ctx context.Context, req Request) (*Result, error)
	HealthCheck(ctx context.Context) error
}

// DefaultPrompt asks the model for a privacy-sensitivity read of the
// screenshot. Callers can substitute their own prompt per request.
const DefaultPrompt = `You are reviewing a desktop screenshot for privacy-sensitive content.
Describe in one short paragraph what the user appears to be doing and
whether the screen shows sensitive material (credentials, financial
data, private communication). Be factual; do not speculate beyond what
is visible.`

// RequestForEvent builds an Analyze request from an activity event and
// its encoded screenshot. A nil image produces a text-only request.
func RequestForEvent(event models.ActivityEvent, imagePNG []byte) Request {
	prompt := fmt.Sprintf("%s\n\nContext: application %q, window title %q.",
		DefaultPrompt, event.Application, event.WindowTitle)
	return Request{
		Prompt:      prompt,
		ImagePNG:    imagePNG,
		Application: event.Application,
		WindowTitle: event.WindowTitle,
	}
}
