package config

import (
	"os"
	"time"

	"github.com/felixgeelhaar/hoopstats/domain/config"
)

// Default model identifiers. OrchestratorModel serves the answer stage
// only for the openai provider; see ResolveModels.
const (
	DefaultModel      = "gpt-4o-mini"
	OrchestratorModel = "gpt-4o"
)

// TrustedSources are the statistics sites searches are steered to.
var TrustedSources = []string{
	"statmuse.com",
	"nba.com",
	"espn.com",
	"basketball-reference.com",
	"theathletic.com",
	"bleacherreport.com",
}

// DefaultAllowedOrigins are the local front-end dev servers.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// Default returns a configuration that runs against OpenAI with in-memory
// cache and history. The API key is filled from OPENAI_API_KEY.
func Default() *config.AppConfig {
	return &config.AppConfig{
		Name:    "hoopstats",
		Version: "1",
		Models: config.ModelsConfig{
			Provider:     "openai",
			APIKey:       os.Getenv("OPENAI_API_KEY"),
			DefaultModel: DefaultModel,
			Timeout:      config.Duration(60 * time.Second),
			Stages: map[string]config.StageConfig{
				config.StageSearch:    {Temperature: 0.1, MaxTokens: 2000},
				config.StageExtract:   {Temperature: 0.1, MaxTokens: 3000},
				config.StageVisualize: {Temperature: 0.2, MaxTokens: 2000},
				config.StagePredict:   {Temperature: 0.1, MaxTokens: 2000},
				config.StageAnswer:    {Temperature: 0.3, MaxTokens: 4000},
			},
		},
		Search: config.SearchConfig{
			Provider:       "model",
			MaxResults:     5,
			TrustedSources: append([]string(nil), TrustedSources...),
		},
		Visualization: config.VisualizationConfig{
			Enabled:       true,
			Width:         1000,
			Height:        600,
			DPI:           100,
			PieSlices:     "auto",
			SaveCharts:    true,
			MaxConcurrent: 4,
			MaxQueue:      64,
			QueueTimeout:  config.Duration(30 * time.Second),
			Store: config.ArtifactStoreConfig{
				Backend: "filesystem",
				Dir:     "./outputs",
			},
		},
		Cache: config.CacheConfig{
			Enabled:    true,
			Backend:    "memory",
			TTL:        config.Duration(24 * time.Hour),
			MaxEntries: 1000,
			KeyPrefix:  "hoopstats:",
		},
		History: config.HistoryConfig{
			Backend: "memory",
			Limit:   500,
		},
		Resilience: config.ResilienceConfig{
			Retry: config.RetryConfig{
				Enabled:      true,
				MaxAttempts:  3,
				InitialDelay: config.Duration(500 * time.Millisecond),
				Multiplier:   2,
			},
			CircuitBreaker: config.CircuitBreakerConfig{
				Enabled:   true,
				Threshold: 5,
				Timeout:   config.Duration(30 * time.Second),
			},
		},
		Server: config.ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
			ReadTimeout:    config.Duration(10 * time.Second),
			WriteTimeout:   config.Duration(120 * time.Second),
			RateLimit: config.RateLimitConfig{
				Enabled: true,
				Rate:    2,
				Burst:   10,
			},
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Observability: config.ObservabilityConfig{
			Exporter:   "noop",
			SampleRate: 1,
		},
	}
}

// ResolveModels gives the answer stage OrchestratorModel when the provider
// is openai and neither the answer model nor default_model was changed.
// Other providers run every unnamed stage on their default_model.
func ResolveModels(cfg *config.AppConfig) {
	m := &cfg.Models
	if m.Provider != "openai" || m.DefaultModel != DefaultModel {
		return
	}
	answer := m.Stages[config.StageAnswer]
	if answer.Model != "" {
		return
	}
	if m.Stages == nil {
		m.Stages = make(map[string]config.StageConfig)
	}
	answer.Model = OrchestratorModel
	m.Stages[config.StageAnswer] = answer
}
