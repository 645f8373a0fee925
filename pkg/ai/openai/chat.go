package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
)

// Generate sends a blocking chat completion request and returns the
// assistant text together with the raw response payload.
func (c *OpenAIClient) Generate(ctx context.Context, req ai.Request) (*ai.Response, error) {
	body := c.buildBody(req)

	start := time.Now()
	response, err := c.Client.Chat.Completions.New(ctx, body)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start).Milliseconds()

	metrics := ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
		Requests:     1,
	}
	c.modifyMetrics(metrics)

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response from model %s", req.Model)
	}
	choice := response.Choices[0]

	return &ai.Response{
		Text:         choice.Message.Content,
		Raw:          json.RawMessage(response.RawJSON()),
		FinishReason: string(choice.FinishReason),
		Usage:        metrics,
	}, nil
}

// GenerateStream sends a streaming chat completion request, assembles the
// streamed fragments in arrival order and returns the full text. A stream
// error surfaces as a request error so the caller can retry.
func (c *OpenAIClient) GenerateStream(ctx context.Context, req ai.Request) (*ai.Response, error) {
	body := c.buildBody(req)
	body.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	start := time.Now()
	stream := c.Client.Chat.Completions.NewStreaming(ctx, body)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	var text strings.Builder

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			text.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	duration := time.Since(start).Milliseconds()

	metrics := ai.ModelMetrics{
		InputTokens:  int(acc.Usage.PromptTokens),
		OutputTokens: int(acc.Usage.CompletionTokens),
		TotalTokens:  int(acc.Usage.TotalTokens),
		DurationMs:   duration,
		Requests:     1,
	}
	c.modifyMetrics(metrics)

	finishReason := ""
	if len(acc.Choices) > 0 {
		finishReason = string(acc.Choices[0].FinishReason)
	}

	raw, err := json.Marshal(acc.ChatCompletion)
	if err != nil {
		raw = nil
	}

	return &ai.Response{
		Text:         text.String(),
		Raw:          raw,
		FinishReason: finishReason,
		Usage:        metrics,
	}, nil
}

func (c *OpenAIClient) buildBody(req ai.Request) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.SystemPrompts)+1)
	for _, sp := range req.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(req.Prompt))

	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    msgs,
		Temperature: openai.Float(req.Temperature),
	}

	if req.MaxTokens > 0 {
		body.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	if req.Format != nil {
		body.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.SchemaName,
					Description: openai.String(req.SchemaDescription),
					Schema:      req.Format,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	return body
}
