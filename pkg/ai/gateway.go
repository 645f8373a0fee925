package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/selmo/Tagdstiller-sub001/internal/util"
	"github.com/selmo/Tagdstiller-sub001/pkg/logger"
)

const (
	// DefaultMaxRetries bounds transient-failure retries per request.
	DefaultMaxRetries = 3
	// DefaultTimeout applies to blocking requests.
	DefaultTimeout = 120 * time.Second
	// DefaultStreamTimeout applies to streamed requests, which take longer
	// to drain.
	DefaultStreamTimeout = 300 * time.Second
)

var backoff = util.Backoff // replaced in tests

// GatewayConfig describes one model endpoint plus the generation policy
// around it.
type GatewayConfig struct {
	Enabled       bool
	Model         string
	Temperature   float64
	MaxTokens     int
	Streaming     bool
	Timeout       time.Duration
	StreamTimeout time.Duration
	MaxRetries    int
	Budget        Budget
}

// NewGatewayParams contains the dependencies for creating a Gateway.
type NewGatewayParams struct {
	Provider Provider
	Config   GatewayConfig
}

// Gateway mediates all model access: it fits prompts to the token budget,
// retries transient failures with backoff, assembles streamed responses and
// recovers malformed structured output. A disabled gateway rejects every
// call with a configuration error so callers can fall back deterministically.
type Gateway struct {
	provider Provider
	config   GatewayConfig
}

// NewGateway creates a Gateway around the given provider. Zero values in the
// config fall back to the package defaults.
func NewGateway(params NewGatewayParams) *Gateway {
	cfg := params.Config
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = DefaultStreamTimeout
	}

	return &Gateway{
		provider: params.Provider,
		config:   cfg,
	}
}

// Result carries the outcome of a gateway call together with the provenance
// recorded into run artifacts.
type Result struct {
	Text       string          `json:"text"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	Provider   string          `json:"provider"`
	Model      string          `json:"model"`
	Attempts   int             `json:"attempts"`
	Truncated  bool            `json:"truncated"`
	Repaired   bool            `json:"repaired"`
	Usage      ModelMetrics    `json:"usage"`
	DurationMs int64           `json:"duration_ms"`
}

// Enabled reports whether the gateway accepts requests.
func (g *Gateway) Enabled() bool {
	return g != nil && g.config.Enabled && g.provider != nil
}

// ProviderName returns the backing provider name, or "" when disabled.
func (g *Gateway) ProviderName() string {
	if g == nil || g.provider == nil {
		return ""
	}
	return g.provider.Name()
}

// Metrics returns the accumulated usage of the backing provider.
func (g *Gateway) Metrics() ModelMetrics {
	if g == nil || g.provider == nil {
		return ModelMetrics{}
	}
	return g.provider.Metrics()
}

// ResetMetrics clears the accumulated usage of the backing provider.
func (g *Gateway) ResetMetrics() {
	if g == nil || g.provider == nil {
		return
	}
	g.provider.ResetMetrics()
}

// Generate sends a prompt and returns the assembled plain-text completion.
func (g *Gateway) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (*Result, error) {
	return g.generate(ctx, prompt, nil, "", "", opts)
}

// GenerateObject sends a prompt with a JSON schema derived from out and
// parses the response into out, running the truncation recovery ladder when
// the output is damaged. Result.Repaired reports whether recovery was needed.
func (g *Gateway) GenerateObject(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...GenerateOption,
) (*Result, error) {
	schema, err := json.Marshal(GenerateSchema(out))
	if err != nil {
		return nil, err
	}

	result, err := g.generate(ctx, prompt, schema, name, description, opts)
	if err != nil {
		return nil, err
	}

	repaired, err := RecoverObject(result.Text, out)
	if err != nil {
		return nil, err
	}
	if repaired {
		logger.Warn("[AI] recovered damaged structured output",
			"provider", result.Provider, "schema", name)
	}
	result.Repaired = repaired
	return result, nil
}

func (g *Gateway) generate(
	ctx context.Context,
	prompt string,
	format json.RawMessage,
	schemaName string,
	schemaDescription string,
	opts []GenerateOption,
) (*Result, error) {
	if !g.Enabled() {
		return nil, &Error{Reason: ReasonDisabled}
	}

	options := GenerateOptions{
		Model:       g.config.Model,
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	}
	for _, o := range opts {
		o(&options)
	}

	streaming := g.config.Streaming
	if options.Streaming != nil {
		streaming = *options.Streaming
	}

	fitted, truncated := g.config.Budget.Fit(prompt)
	if truncated {
		logger.Warn("[AI] prompt truncated to budget",
			"provider", g.provider.Name(), "model", options.Model, "chars", len(fitted))
	}

	req := Request{
		Model:             options.Model,
		SystemPrompts:     options.SystemPrompts,
		Prompt:            fitted,
		Temperature:       options.Temperature,
		MaxTokens:         options.MaxTokens,
		Format:            format,
		SchemaName:        schemaName,
		SchemaDescription: schemaDescription,
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
			logger.Debug("[AI] retrying generation",
				"provider", g.provider.Name(), "attempt", attempt+1, "err", lastErr)
		}

		resp, err := g.attempt(ctx, req, streaming)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// Only the per-attempt deadline fired. Treat it like any
				// other transient transport failure.
				lastErr = err
				continue
			}
			if isAuthFailure(err) {
				return nil, &Error{Reason: ReasonMissingCredential, Err: err}
			}
			if !IsTransient(err) {
				return nil, &Error{Reason: ReasonTransport, Err: err}
			}
			lastErr = err
			continue
		}

		if strings.TrimSpace(resp.Text) == "" {
			return nil, &Error{Reason: ReasonEmptyResponse, Raw: string(resp.Raw)}
		}

		return &Result{
			Text:       resp.Text,
			Raw:        resp.Raw,
			Provider:   g.provider.Name(),
			Model:      options.Model,
			Attempts:   attempt + 1,
			Truncated:  truncated,
			Usage:      resp.Usage,
			DurationMs: time.Since(start).Milliseconds(),
		}, nil
	}

	return nil, &Error{Reason: ReasonTransport, Err: lastErr}
}

// attempt performs one provider call. A completed stream that yielded no
// text gets a single blocking fallback before the attempt is judged.
func (g *Gateway) attempt(ctx context.Context, req Request, streaming bool) (*Response, error) {
	if !streaming {
		rCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
		return g.provider.Generate(rCtx, req)
	}

	sCtx, cancel := context.WithTimeout(ctx, g.config.StreamTimeout)
	defer cancel()
	resp, err := g.provider.GenerateStream(sCtx, req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Text) != "" {
		return resp, nil
	}

	logger.Warn("[AI] empty streamed response, falling back to blocking request",
		"provider", g.provider.Name(), "model", req.Model)
	fCtx, fCancel := context.WithTimeout(ctx, g.config.Timeout)
	defer fCancel()
	return g.provider.Generate(fCtx, req)
}
