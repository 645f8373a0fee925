// Package config resolves the process configuration from the environment
// once at startup. The resulting Store is passed by handle into the
// components that need it; nothing in this package is read lazily or
// cached globally.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator"

	"github.com/selmo/Tagdstiller-sub001/internal/util"
	"github.com/selmo/Tagdstiller-sub001/pkg/ai"
)

// Store is the resolved service configuration.
type Store struct {
	// Debug switches log output to debug level.
	Debug bool

	// ArtifactRoot is the directory holding one subdirectory per run.
	ArtifactRoot string `validate:"required"`
	// SourceRoot is the base directory of the filesystem document source.
	SourceRoot string `validate:"required"`

	Server   Server
	Queue    Queue
	S3       S3
	LLM      LLM
	Analysis Analysis
}

// Server configures the HTTP API.
type Server struct {
	Port string `validate:"required"`
	// AuthURL is the issuer base URL; its JWKS endpoint verifies bearer
	// tokens. Empty disables JWT auth, leaving only the master API key.
	AuthURL        string `validate:"omitempty,url"`
	MasterAPIKey   string
	MasterUserID   int64
	MasterUserRole string
	BodyLimit      string `validate:"required"`
}

// Queue configures the RabbitMQ connection.
type Queue struct {
	User     string `validate:"required"`
	Password string `validate:"required"`
	Host     string `validate:"required"`
	Port     string `validate:"required"`
}

// URL assembles the AMQP connection string.
func (q Queue) URL() string {
	return "amqp://" + q.User + ":" + q.Password + "@" + q.Host + ":" + q.Port + "/"
}

// S3 configures the object-storage document source. An empty bucket
// disables the source.
type S3 struct {
	Bucket    string
	Endpoint  string `validate:"omitempty,url"`
	Region    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// LLM configures the model gateway. MaxTokens is the model context window;
// ReservedTokens is the slice of it kept free for the response, which also
// caps generation length.
type LLM struct {
	Enabled               bool
	Provider              string
	Model                 string
	BaseURL               string `validate:"omitempty,url"`
	APIKey                string
	Temperature           float64 `validate:"gte=0,lte=2"`
	MaxTokens             int     `validate:"gte=0"`
	ReservedTokens        int     `validate:"gte=0"`
	CharsPerToken         float64 `validate:"gte=0"`
	CJKCharsPerToken      float64 `validate:"gte=0"`
	Timeout               time.Duration
	StreamTimeout         time.Duration
	Streaming             bool
	MaxRetries            int   `validate:"gte=0,lte=10"`
	MaxConcurrentRequests int64 `validate:"gte=0"`
}

// Analysis holds the run option defaults applied when a job omits them.
type Analysis struct {
	MaxChunkSize int `validate:"gte=0"`
	Workers      int `validate:"gte=0,lte=64"`
	MaxKeywords  int `validate:"gte=0"`
}

// Load reads the environment into a validated Store.
func Load() (*Store, error) {
	s := &Store{
		Debug:        util.GetEnvBool("DEBUG", false),
		ArtifactRoot: util.GetEnvString("ARTIFACT_DIR", "artifacts"),
		SourceRoot:   util.GetEnvString("SOURCE_DIR", "sources"),
		Server: Server{
			Port:           util.GetEnvString("PORT", "8080"),
			AuthURL:        util.GetEnv("AUTH_URL"),
			MasterAPIKey:   util.GetEnv("MASTER_API_KEY"),
			MasterUserID:   int64(util.GetEnvInt("MASTER_USER_ID", 0)),
			MasterUserRole: util.GetEnv("MASTER_USER_ROLE"),
			BodyLimit:      util.GetEnvString("BODY_LIMIT", "10M"),
		},
		Queue: Queue{
			User:     util.GetEnvString("RABBITMQ_USER", "guest"),
			Password: util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
			Host:     util.GetEnvString("RABBITMQ_HOST", "localhost"),
			Port:     util.GetEnvString("RABBITMQ_PORT", "5672"),
		},
		S3: S3{
			Bucket:    util.GetEnv("AWS_BUCKET"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
			PathStyle: util.GetEnvBool("AWS_PATH_STYLE", true),
		},
		LLM: LLM{
			Enabled:               util.GetEnvBool("AI_ENABLED", false),
			Provider:              util.GetEnvString("AI_ADAPTER", "openai"),
			Model:                 util.GetEnv("AI_CHAT_MODEL"),
			BaseURL:               util.GetEnv("AI_CHAT_URL"),
			APIKey:                util.GetEnv("AI_CHAT_KEY"),
			Temperature:           util.GetEnvFloat("AI_TEMPERATURE", 0.1),
			MaxTokens:             util.GetEnvInt("AI_MAX_TOKENS", ai.DefaultContextTokens),
			ReservedTokens:        util.GetEnvInt("AI_RESERVED_TOKENS", ai.DefaultReservedTokens),
			CharsPerToken:         util.GetEnvFloat("AI_CHARS_PER_TOKEN", ai.DefaultCharsPerToken),
			CJKCharsPerToken:      util.GetEnvFloat("AI_CJK_CHARS_PER_TOKEN", ai.DefaultCJKCharsPerToken),
			Timeout:               time.Duration(util.GetEnvInt("AI_TIMEOUT_S", 120)) * time.Second,
			StreamTimeout:         time.Duration(util.GetEnvInt("AI_STREAM_TIMEOUT_S", 300)) * time.Second,
			Streaming:             util.GetEnvBool("AI_STREAMING", false),
			MaxRetries:            util.GetEnvInt("AI_MAX_RETRIES", ai.DefaultMaxRetries),
			MaxConcurrentRequests: int64(util.GetEnvInt("AI_PARALLEL_REQ", 15)),
		},
		Analysis: Analysis{
			MaxChunkSize: util.GetEnvInt("MAX_CHUNK_SIZE", 0),
			Workers:      util.GetEnvInt("ANALYZE_WORKERS", 0),
			MaxKeywords:  util.GetEnvInt("MAX_KEYWORDS", 0),
		},
	}

	if err := validator.New().Struct(s); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	if s.LLM.Enabled && s.LLM.Model == "" {
		return nil, fmt.Errorf("AI_CHAT_MODEL is required when AI_ENABLED is true")
	}

	return s, nil
}

// NewGateway builds the model gateway described by the LLM section. A
// disabled section yields a nil gateway, which runs every analysis on its
// deterministic fallback.
func (s *Store) NewGateway() (*ai.Gateway, error) {
	if !s.LLM.Enabled {
		return nil, nil
	}

	provider, err := ai.NewProvider(s.LLM.Provider, ai.ProviderConfig{
		BaseURL:               s.LLM.BaseURL,
		APIKey:                s.LLM.APIKey,
		MaxConcurrentRequests: s.LLM.MaxConcurrentRequests,
	})
	if err != nil {
		return nil, fmt.Errorf("configure provider %s: %w", s.LLM.Provider, err)
	}

	return ai.NewGateway(ai.NewGatewayParams{
		Provider: provider,
		Config: ai.GatewayConfig{
			Enabled:       true,
			Model:         s.LLM.Model,
			Temperature:   s.LLM.Temperature,
			MaxTokens:     s.LLM.ReservedTokens,
			Streaming:     s.LLM.Streaming,
			Timeout:       s.LLM.Timeout,
			StreamTimeout: s.LLM.StreamTimeout,
			MaxRetries:    s.LLM.MaxRetries,
			Budget: ai.Budget{
				ContextTokens:    s.LLM.MaxTokens,
				ReservedTokens:   s.LLM.ReservedTokens,
				CharsPerToken:    s.LLM.CharsPerToken,
				CJKCharsPerToken: s.LLM.CJKCharsPerToken,
			},
		},
	}), nil
}

// PipelineDefaults fills zero-valued run options from the Analysis section.
func (s *Store) PipelineDefaults(maxChunkSize, workers, maxKeywords int) (int, int, int) {
	if maxChunkSize <= 0 {
		maxChunkSize = s.Analysis.MaxChunkSize
	}
	if workers <= 0 {
		workers = s.Analysis.Workers
	}
	if maxKeywords <= 0 {
		maxKeywords = s.Analysis.MaxKeywords
	}
	return maxChunkSize, workers, maxKeywords
}
