package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Known backend names.
var (
	validProviders       = map[string]bool{"openai": true, "anthropic": true, "ollama": true}
	validSearchProviders = map[string]bool{"model": true, "tavily": true}
	validArtifactStores  = map[string]bool{"filesystem": true, "s3": true}
	validCacheBackends   = map[string]bool{"memory": true, "redis": true, "sqlite": true}
	validHistoryBackends = map[string]bool{"memory": true, "sqlite": true, "postgres": true}
	validPieSlices       = map[string]bool{"auto": true, "series": true, "labels": true}
	validLogFormats      = map[string]bool{"json": true, "console": true}
	validLogLevels       = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	validExporters       = map[string]bool{"otlp": true, "stdout": true, "noop": true}
)

// Validator validates chatbot configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *AppConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateModels(config)
	v.validateSearch(config)
	v.validateVisualization(config)
	v.validateCache(config)
	v.validateHistory(config)
	v.validateResilience(config)
	v.validateServer(config)
	v.validateLogging(config)
	v.validateObservability(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *AppConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateModels(config *AppConfig) {
	m := config.Models
	if m.Provider == "" {
		v.addError("models.provider", "provider is required")
	} else if !validProviders[m.Provider] {
		v.addError("models.provider", fmt.Sprintf("unknown provider: %s", m.Provider))
	}
	if m.BaseURL != "" {
		v.validateURL("models.base_url", m.BaseURL)
	}
	if m.Timeout < 0 {
		v.addError("models.timeout", "timeout must be non-negative")
	}

	known := make(map[string]bool, len(Stages))
	for _, s := range Stages {
		known[s] = true
	}
	for name, stage := range m.Stages {
		path := "models.stages." + name
		if !known[name] {
			v.addError(path, fmt.Sprintf("unknown stage: %s", name))
			continue
		}
		if stage.Temperature < 0 || stage.Temperature > 2 {
			v.addError(path+".temperature", "temperature must be between 0 and 2")
		}
		if stage.MaxTokens < 0 {
			v.addError(path+".max_tokens", "max_tokens must be non-negative")
		}
	}
	for _, s := range Stages {
		if m.Stage(s).Model == "" {
			v.addError("models.stages."+s+".model", "model is required when no default_model is set")
		}
	}
}

func (v *Validator) validateSearch(config *AppConfig) {
	s := config.Search
	if s.Provider != "" && !validSearchProviders[s.Provider] {
		v.addError("search.provider", fmt.Sprintf("unknown search provider: %s", s.Provider))
	}
	if s.Provider == "tavily" && s.APIKey == "" {
		v.addError("search.api_key", "api_key is required for tavily search")
	}
	if s.MaxResults < 0 {
		v.addError("search.max_results", "max_results must be non-negative")
	}
	for i, src := range s.TrustedSources {
		if strings.TrimSpace(src) == "" || strings.Contains(src, "/") {
			v.addError(fmt.Sprintf("search.trusted_sources[%d]", i), fmt.Sprintf("invalid domain: %q", src))
		}
	}
}

func (v *Validator) validateVisualization(config *AppConfig) {
	viz := config.Visualization
	if viz.Width < 0 || viz.Height < 0 {
		v.addError("visualization.size", "width and height must be non-negative")
	}
	if viz.DPI < 0 {
		v.addError("visualization.dpi", "dpi must be non-negative")
	}
	if viz.PieSlices != "" && !validPieSlices[viz.PieSlices] {
		v.addError("visualization.pie_slices", fmt.Sprintf("invalid pie slice policy: %s", viz.PieSlices))
	}
	if viz.MaxConcurrent < 0 {
		v.addError("visualization.max_concurrent", "max_concurrent must be non-negative")
	}
	if viz.MaxQueue < 0 {
		v.addError("visualization.max_queue", "max_queue must be non-negative")
	}
	if viz.QueueTimeout < 0 {
		v.addError("visualization.queue_timeout", "queue_timeout must be non-negative")
	}
	if !viz.SaveCharts {
		return
	}

	store := viz.Store
	switch {
	case store.Backend == "":
		v.addError("visualization.store.backend", "backend is required when save_charts is enabled")
	case !validArtifactStores[store.Backend]:
		v.addError("visualization.store.backend", fmt.Sprintf("unknown artifact store: %s", store.Backend))
	case store.Backend == "filesystem" && store.Dir == "":
		v.addError("visualization.store.dir", "dir is required for filesystem store")
	case store.Backend == "s3" && store.Bucket == "":
		v.addError("visualization.store.bucket", "bucket is required for s3 store")
	}
	if store.Endpoint != "" {
		v.validateURL("visualization.store.endpoint", store.Endpoint)
	}
}

func (v *Validator) validateCache(config *AppConfig) {
	c := config.Cache
	if !c.Enabled {
		return
	}
	if c.Backend != "" && !validCacheBackends[c.Backend] {
		v.addError("cache.backend", fmt.Sprintf("unknown cache backend: %s", c.Backend))
	}
	if c.TTL < 0 {
		v.addError("cache.ttl", "ttl must be non-negative")
	}
	if c.MaxEntries < 0 {
		v.addError("cache.max_entries", "max_entries must be non-negative")
	}
	if c.Backend == "redis" && c.Addr == "" {
		v.addError("cache.addr", "addr is required for redis cache")
	}
	if c.Backend == "sqlite" && c.DSN == "" {
		v.addError("cache.dsn", "dsn is required for sqlite cache")
	}
}

func (v *Validator) validateHistory(config *AppConfig) {
	h := config.History
	if h.Backend != "" && !validHistoryBackends[h.Backend] {
		v.addError("history.backend", fmt.Sprintf("unknown history backend: %s", h.Backend))
	}
	if (h.Backend == "sqlite" || h.Backend == "postgres") && h.DSN == "" {
		v.addError("history.dsn", fmt.Sprintf("dsn is required for %s history", h.Backend))
	}
	if h.Limit < 0 {
		v.addError("history.limit", "limit must be non-negative")
	}
}

func (v *Validator) validateResilience(config *AppConfig) {
	if config.Resilience.Retry.Enabled {
		if config.Resilience.Retry.MaxAttempts <= 0 {
			v.addError("resilience.retry.max_attempts", "max_attempts must be positive when enabled")
		}
		if config.Resilience.Retry.Multiplier < 1 {
			v.addError("resilience.retry.multiplier", "multiplier must be >= 1")
		}
	}

	if config.Resilience.CircuitBreaker.Enabled {
		if config.Resilience.CircuitBreaker.Threshold <= 0 {
			v.addError("resilience.circuit_breaker.threshold", "threshold must be positive when enabled")
		}
	}
}

func (v *Validator) validateServer(config *AppConfig) {
	s := config.Server
	for i, origin := range s.AllowedOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			v.addError(fmt.Sprintf("server.allowed_origins[%d]", i), fmt.Sprintf("invalid origin: %s", origin))
		}
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.Rate <= 0 {
			v.addError("server.rate_limit.rate", "rate must be positive when enabled")
		}
		if s.RateLimit.Burst <= 0 {
			v.addError("server.rate_limit.burst", "burst must be positive when enabled")
		}
	}
}

func (v *Validator) validateLogging(config *AppConfig) {
	l := config.Logging
	if l.Level != "" && !validLogLevels[strings.ToLower(l.Level)] {
		v.addError("logging.level", fmt.Sprintf("invalid level: %s", l.Level))
	}
	if l.Format != "" && !validLogFormats[l.Format] {
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", l.Format))
	}
}

func (v *Validator) validateObservability(config *AppConfig) {
	o := config.Observability
	if o.Exporter != "" && !validExporters[o.Exporter] {
		v.addError("observability.exporter", fmt.Sprintf("unknown exporter: %s", o.Exporter))
	}
	if o.Tracing && o.Exporter == "otlp" && o.Endpoint == "" {
		v.addError("observability.endpoint", "endpoint is required for otlp exporter")
	}
	if o.SampleRate < 0 || o.SampleRate > 1 {
		v.addError("observability.sample_rate", "sample_rate must be between 0 and 1")
	}
}

func (v *Validator) validateURL(path, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.addError(path, fmt.Sprintf("invalid URL: %s", raw))
	}
}
