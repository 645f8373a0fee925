package ai

import (
	"context"
	"encoding/json"
)

// Request is a fully resolved generation request handed to a provider.
// The gateway fills in model, sampling and budget decisions before a
// provider ever sees the request.
type Request struct {
	Model         string
	SystemPrompts []string
	Prompt        string
	Temperature   float64
	MaxTokens     int

	// Format carries a JSON schema for structured output. A nil Format
	// requests plain text.
	Format            json.RawMessage
	SchemaName        string
	SchemaDescription string
}

// Response is the assembled result of a single provider call. Streaming
// providers accumulate fragments in arrival order before returning.
type Response struct {
	Text         string
	Raw          json.RawMessage
	FinishReason string
	Usage        ModelMetrics
}

// Provider is implemented by model backends. Generate performs a blocking
// completion, GenerateStream consumes a streamed completion and returns the
// assembled text.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
	GenerateStream(ctx context.Context, req Request) (*Response, error)
	Metrics() ModelMetrics
	ResetMetrics()
}

// ModelMetrics contains accumulated token usage and timing from model calls.
type ModelMetrics struct {
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	TotalTokens    int     `json:"total_tokens"`
	DurationMs     int64   `json:"duration_ms"`
	Requests       int     `json:"requests"`
	TokenPerSecond float32 `json:"tokens_per_second"`
}

// GenerateOptions holds per-call overrides for generation requests.
type GenerateOptions struct {
	Model         string
	SystemPrompts []string
	Temperature   float64
	MaxTokens     int
	Streaming     *bool
}

// GenerateOption is a functional option for configuring a generation request.
type GenerateOption func(*GenerateOptions)

// WithModel overrides the model for this request.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts sets the system prompts prepended to the request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature overrides the sampling temperature for this request.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithMaxTokens caps the number of output tokens for this request.
func WithMaxTokens(tokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = tokens
	}
}

// WithStreaming forces streaming on or off for this request, overriding the
// gateway default.
func WithStreaming(streaming bool) GenerateOption {
	return func(o *GenerateOptions) {
		o.Streaming = &streaming
	}
}
