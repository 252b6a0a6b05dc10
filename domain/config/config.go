// Package config provides domain models for chatbot configuration.
package config

import "time"

// AppConfig represents the complete chatbot configuration.
type AppConfig struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`

	// Models configures the language-model provider and per-stage settings.
	Models ModelsConfig `json:"models" yaml:"models"`
	// Search configures the fact-finding stage.
	Search SearchConfig `json:"search,omitempty" yaml:"search,omitempty"`
	// Visualization configures chart rendering and storage.
	Visualization VisualizationConfig `json:"visualization,omitempty" yaml:"visualization,omitempty"`
	// Cache configures caching of search results.
	Cache CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
	// History configures the conversation history store.
	History HistoryConfig `json:"history,omitempty" yaml:"history,omitempty"`
	// Resilience contains retry, circuit breaker and bulkhead settings.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Server configures the HTTP API.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`
	// Logging configures structured logging.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Observability configures tracing and metrics.
	Observability ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"`
}

// Stage names used as keys in ModelsConfig.Stages.
const (
	StageSearch    = "search"
	StageExtract   = "extract"
	StageVisualize = "visualize"
	StagePredict   = "predict"
	StageAnswer    = "answer"
)

// Stages lists every pipeline stage in execution order.
var Stages = []string{StageSearch, StageExtract, StageVisualize, StagePredict, StageAnswer}

// ModelsConfig configures the language-model provider.
type ModelsConfig struct {
	// Provider is the provider name (openai, anthropic, ollama).
	Provider string `json:"provider" yaml:"provider"`
	// APIKey is the provider API key. Usually supplied as ${OPENAI_API_KEY}.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// DefaultModel is used by stages that do not name a model.
	DefaultModel string `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	// Timeout bounds a single model call.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Stages maps a stage name to its model settings.
	Stages map[string]StageConfig `json:"stages,omitempty" yaml:"stages,omitempty"`
}

// Stage returns the settings for a stage, filling the model from the default.
func (m ModelsConfig) Stage(name string) StageConfig {
	s := m.Stages[name]
	if s.Model == "" {
		s.Model = m.DefaultModel
	}
	return s
}

// StageConfig configures the model call of one pipeline stage.
type StageConfig struct {
	// Model is the model identifier.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// SearchConfig configures the search stage.
type SearchConfig struct {
	// Provider is the search backend (model, tavily).
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	// APIKey is the web search API key for the tavily backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	// BaseURL overrides the web search endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// MaxResults caps the number of web results.
	MaxResults int `json:"max_results,omitempty" yaml:"max_results,omitempty"`
	// TrustedSources lists the domains searches are restricted or steered to.
	TrustedSources []string `json:"trusted_sources,omitempty" yaml:"trusted_sources,omitempty"`
}

// VisualizationConfig configures chart rendering.
type VisualizationConfig struct {
	// Enabled turns the visualize stage on.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Width is the canvas width in pixels.
	Width int `json:"width,omitempty" yaml:"width,omitempty"`
	// Height is the canvas height in pixels.
	Height int `json:"height,omitempty" yaml:"height,omitempty"`
	// DPI is the raster resolution.
	DPI float64 `json:"dpi,omitempty" yaml:"dpi,omitempty"`
	// PieSlices is the pie slice policy (auto, series, labels).
	PieSlices string `json:"pie_slices,omitempty" yaml:"pie_slices,omitempty"`
	// SaveCharts stores every rendered chart in the artifact store.
	SaveCharts bool `json:"save_charts,omitempty" yaml:"save_charts,omitempty"`
	// MaxConcurrent bounds concurrent renders.
	MaxConcurrent int `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty"`
	// MaxQueue is how many renders may wait for a free slot.
	MaxQueue int `json:"max_queue,omitempty" yaml:"max_queue,omitempty"`
	// QueueTimeout bounds how long a render waits for a free slot.
	QueueTimeout Duration `json:"queue_timeout,omitempty" yaml:"queue_timeout,omitempty"`
	// Store configures where saved charts go.
	Store ArtifactStoreConfig `json:"store,omitempty" yaml:"store,omitempty"`
}

// ArtifactStoreConfig configures chart artifact storage.
type ArtifactStoreConfig struct {
	// Backend is the storage backend (filesystem, s3).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Dir is the output directory for the filesystem backend.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Bucket is the S3 bucket.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	// Prefix is the S3 key prefix.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Region is the S3 region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Endpoint overrides the S3 endpoint (MinIO, LocalStack).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// AccessKeyID and SecretAccessKey select static credentials.
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
}

// CacheConfig configures the search result cache.
type CacheConfig struct {
	// Enabled turns caching on.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Backend is the cache backend (memory, redis, sqlite).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// TTL is how long a cached search stays valid.
	TTL Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// MaxEntries bounds the memory backend.
	MaxEntries int `json:"max_entries,omitempty" yaml:"max_entries,omitempty"`
	// Addr is the redis address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// Password is the redis password.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	// DB is the redis database.
	DB int `json:"db,omitempty" yaml:"db,omitempty"`
	// DSN is the sqlite data source.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// KeyPrefix namespaces cache keys.
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// HistoryConfig configures the conversation history store.
type HistoryConfig struct {
	// Backend is the store backend (memory, sqlite, postgres).
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// DSN is the database connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Limit caps how many turns the memory backend keeps.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// ResilienceConfig contains resilience settings for model calls.
type ResilienceConfig struct {
	// Retry configures retry behavior.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Enabled enables retry.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MaxAttempts is the maximum retry attempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
	// Multiplier is the backoff multiplier.
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Enabled enables circuit breaker.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Threshold is failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// AllowedOrigins are the CORS origins allowed to call the API.
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
	// ReadTimeout bounds reading a request.
	ReadTimeout Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
	// WriteTimeout bounds writing a response; chat requests chain several model calls.
	WriteTimeout Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`
	// RateLimit configures per-client rate limiting.
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// RateLimitConfig configures rate limiting.
type RateLimitConfig struct {
	// Enabled enables rate limiting.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Rate is the tokens per second.
	Rate int `json:"rate,omitempty" yaml:"rate,omitempty"`
	// Burst is the maximum burst size.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the minimum level (trace, debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is json or console.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	// File is an optional log file path.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// ObservabilityConfig configures tracing and metrics.
type ObservabilityConfig struct {
	// Tracing enables span export.
	Tracing bool `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	// Exporter is the span exporter (otlp, stdout, noop).
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP gRPC endpoint.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	// Metrics enables OTel metric instruments.
	Metrics bool `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
