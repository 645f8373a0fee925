package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
)

const defaultBaseURL = "http://localhost:11434"

func init() {
	ai.RegisterProvider("ollama", func(config ai.ProviderConfig) (ai.Provider, error) {
		return NewOllamaClient(NewOllamaClientParams{
			BaseURL: config.BaseURL,
			ApiKey:  config.APIKey,

			MaxConcurrentRequests: config.MaxConcurrentRequests,
		})
	})
}

// OllamaClient is an ai.Provider backed by a locally or remotely hosted
// Ollama server. Concurrent requests are limited with a weighted semaphore
// so a small server is not overrun by the chunk worker pool.
type OllamaClient struct {
	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewOllamaClientParams contains configuration options for creating a new
// OllamaClient. ApiKey is optional; when set it is attached as a bearer
// token for proxied Ollama deployments.
type NewOllamaClientParams struct {
	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewOllamaClient creates a new Ollama-backed provider with the specified
// configuration. It connects to the server at BaseURL, or the local default
// when empty.
func NewOllamaClient(params NewOllamaClientParams) (*OllamaClient, error) {
	base := params.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}

	httpClient := http.DefaultClient
	if params.ApiKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.ApiKey,
				},
				rt: http.DefaultTransport,
			},
		}
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &OllamaClient{
		reqLock: semaphore.NewWeighted(maxConcurrent),

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: api.NewClient(u, httpClient),
	}, nil
}

// Name returns the provider name used in run artifacts and logs.
func (c *OllamaClient) Name() string {
	return "ollama"
}
