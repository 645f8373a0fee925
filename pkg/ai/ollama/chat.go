package ollama

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
)

// Generate sends a blocking chat request and returns the assistant text.
func (c *OllamaClient) Generate(ctx context.Context, req ai.Request) (*ai.Response, error) {
	return c.chat(ctx, req, false)
}

// GenerateStream sends a streaming chat request, assembles the streamed
// fragments in arrival order and returns the full text.
func (c *OllamaClient) GenerateStream(ctx context.Context, req ai.Request) (*ai.Response, error) {
	return c.chat(ctx, req, true)
}

func (c *OllamaClient) chat(ctx context.Context, req ai.Request, stream bool) (*ai.Response, error) {
	msgs := make([]api.Message, 0, len(req.SystemPrompts)+1)
	for _, sys := range req.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sys})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: req.Prompt})

	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": req.Temperature},
	}
	if req.MaxTokens > 0 {
		chatReq.Options["num_predict"] = req.MaxTokens
	}
	if req.Format != nil {
		chatReq.Format = req.Format
	}

	// Grow the context window past the server default when the prompt plus
	// the expected response would not fit.
	var promptText strings.Builder
	for _, sys := range req.SystemPrompts {
		promptText.WriteString(sys)
		promptText.WriteString("\n")
	}
	promptText.WriteString(req.Prompt)
	promptTokens, err := ai.CountTokens(promptText.String())
	if err != nil {
		return nil, err
	}
	reserve := 200
	if req.MaxTokens > reserve {
		reserve = req.MaxTokens
	}
	if tokens := promptTokens + reserve; tokens > 4096 {
		chatReq.Options["num_ctx"] = tokens
	}

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	var text strings.Builder
	if err := c.Client.Chat(ctx, chatReq, func(cr api.ChatResponse) error {
		text.WriteString(cr.Message.Content)
		if cr.Done {
			final = cr
		}
		return nil
	}); err != nil {
		return nil, err
	}

	metrics := ai.ModelMetrics{
		InputTokens:  final.Metrics.PromptEvalCount,
		OutputTokens: final.Metrics.EvalCount,
		TotalTokens:  final.Metrics.PromptEvalCount + final.Metrics.EvalCount,
		DurationMs:   final.Metrics.TotalDuration.Milliseconds(),
		Requests:     1,
	}
	c.modifyMetrics(metrics)

	final.Message.Content = text.String()
	raw, err := json.Marshal(final)
	if err != nil {
		raw = nil
	}

	return &ai.Response{
		Text:         text.String(),
		Raw:          raw,
		FinishReason: final.DoneReason,
		Usage:        metrics,
	}, nil
}
