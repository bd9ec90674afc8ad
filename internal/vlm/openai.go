package vlm

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultTimeout    = 120 * time.Second
	defaultMaxRetries = 3
	baseRetryDelay    = time.Second
)

// ClientOptions configures the OpenAI-compatible provider. BaseURL may
// point at any endpoint speaking the chat-completions dialect; local
// Qwen and Ollama deployments both do.
type ClientOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Logger     *slog.Logger
}

// Client calls an OpenAI-compatible vision endpoint.
type Client struct {
	api        *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	logger     *slog.Logger
}

// NewClient builds a provider from options. Model is required; the
// remaining fields default sensibly.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("vlm model is required")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		model:      opts.Model,
		timeout:    timeout,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// Name identifies the provider in logs and stats.
func (c *Client) Name() string { return "openai:" + c.model }

// Analyze sends the prompt and screenshot to the model. Rate-limit
// errors are retried with exponential backoff and jitter; other
// failures return immediately.
func (c *Client) Analyze(ctx context.Context, req Request) (*Result, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessage{buildMessage(req)},
	}

	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	start := time.Now()

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err = c.api.CreateChatCompletion(callCtx, chatReq)
		cancel()

		if err == nil {
			break
		}
		if !isRateLimited(err) || attempt == c.maxRetries-1 {
			break
		}

		delay := baseRetryDelay*time.Duration(1<<uint(attempt)) +
			time.Duration(rand.Intn(500))*time.Millisecond
		c.logger.Warn("vlm rate limited, retrying",
			"attempt", attempt+1, "delay_ms", delay.Milliseconds())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("vlm call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned from model %s", c.model)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("empty response from model %s (finish_reason: %s)",
			c.model, resp.Choices[0].FinishReason)
	}

	c.logger.Debug("vlm call complete",
		"model", c.model,
		"latency_ms", latency.Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return &Result{
		Content:          content,
		Model:            c.model,
		Latency:          latency,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies the endpoint answers at all.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("vlm health check failed: %w", err)
	}
	return nil
}

// buildMessage assembles a user message. With an image attached the
// message uses multi-part content with an inline data URL, which is
// what vision-capable chat endpoints expect.
func buildMessage(req Request) openai.ChatCompletionMessage {
	if len(req.ImagePNG) == 0 {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: req.Prompt,
		}
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.ImagePNG)
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: req.Prompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				},
			},
		},
	}
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(msg, "Rate limit")
}
