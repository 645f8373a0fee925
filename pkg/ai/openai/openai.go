package openai

import (
	"errors"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
)

func init() {
	ai.RegisterProvider("openai", func(config ai.ProviderConfig) (ai.Provider, error) {
		return NewOpenAIClient(NewOpenAIClientParams{
			BaseURL: config.BaseURL,
			APIKey:  config.APIKey,
		})
	})
}

// OpenAIClient is an ai.Provider backed by an OpenAI-compatible chat
// completion endpoint.
//
// An OpenAIClient should be created using NewOpenAIClient.
type OpenAIClient struct {
	baseURL string
	apiKey  string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *openai.Client
}

// NewOpenAIClientParams defines the configuration parameters for creating a
// new OpenAIClient. BaseURL may point at any OpenAI-compatible endpoint; an
// empty BaseURL uses the official API.
type NewOpenAIClientParams struct {
	BaseURL string
	APIKey  string
}

// NewOpenAIClient creates a chat completion client. A missing API key is a
// configuration error, reported before any request leaves the process.
func NewOpenAIClient(params NewOpenAIClientParams) (*OpenAIClient, error) {
	if params.APIKey == "" {
		return nil, &ai.Error{
			Reason: ai.ReasonMissingCredential,
			Err:    errors.New("openai api key is not set"),
		}
	}

	options := []option.RequestOption{
		option.WithAPIKey(params.APIKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	return &OpenAIClient{
		baseURL: params.BaseURL,
		apiKey:  params.APIKey,

		metricsLock: sync.Mutex{},
		metrics:     ai.ModelMetrics{},

		Client: &client,
	}, nil
}

// Name returns the provider name used in run artifacts and logs.
func (c *OpenAIClient) Name() string {
	return "openai"
}
