package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/hoopstats/application"
	"github.com/felixgeelhaar/hoopstats/domain/artifact"
	"github.com/felixgeelhaar/hoopstats/domain/cache"
	domainconfig "github.com/felixgeelhaar/hoopstats/domain/config"
	"github.com/felixgeelhaar/hoopstats/domain/conversation"
	"github.com/felixgeelhaar/hoopstats/infrastructure/llm"
	"github.com/felixgeelhaar/hoopstats/infrastructure/logging"
	"github.com/felixgeelhaar/hoopstats/infrastructure/observability"
	"github.com/felixgeelhaar/hoopstats/infrastructure/render"
	"github.com/felixgeelhaar/hoopstats/infrastructure/resilience"
	"github.com/felixgeelhaar/hoopstats/infrastructure/search"
	"github.com/felixgeelhaar/hoopstats/infrastructure/storage/filesystem"
	"github.com/felixgeelhaar/hoopstats/infrastructure/storage/memory"
	"github.com/felixgeelhaar/hoopstats/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/hoopstats/infrastructure/storage/redis"
	"github.com/felixgeelhaar/hoopstats/infrastructure/storage/s3"
	"github.com/felixgeelhaar/hoopstats/infrastructure/storage/sqlite"
	"github.com/felixgeelhaar/hoopstats/infrastructure/telemetry"
)

// runtime holds the chatbot and the resources it was built from.
type runtime struct {
	config    *domainconfig.AppConfig
	chatbot   *application.Chatbot
	client    *llm.Client
	artifacts artifact.Store
	history   conversation.Store
	obs       *observability.Provider
	metrics   telemetry.Metrics
	closers   []func() error
	ownsObs   bool
}

// initLogging configures the process logger from cfg.
func initLogging(cfg domainconfig.LoggingConfig) error {
	lc := logging.DefaultConfig()
	if cfg.Level != "" {
		lc.Level = cfg.Level
	}
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	lc.File = cfg.File
	if err := logging.Init(lc); err != nil {
		return err
	}
	logging.SetLevel(lc.Level)
	return nil
}

// buildRuntime wires every component named in cfg.
func buildRuntime(ctx context.Context, cfg *domainconfig.AppConfig) (*runtime, error) {
	if err := initLogging(cfg.Logging); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	rt := &runtime{config: cfg, metrics: telemetry.NoopMetrics{}, ownsObs: true}
	obs, err := observability.New(ctx, append(observability.FromConfig(cfg.Observability),
		observability.WithServiceVersion(Version))...)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	rt.obs = obs
	if obs.MetricsEnabled() {
		mp, err := telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("init metrics: %w", err)
		}
		rt.metrics = mp
	}

	if err := rt.buildPipeline(ctx); err != nil {
		_ = rt.Close(context.Background())
		return nil, err
	}
	return rt, nil
}

// reload builds a runtime for cfg that takes over this runtime's
// telemetry. Closing the old runtime afterwards releases only its stores.
func (rt *runtime) reload(ctx context.Context, cfg *domainconfig.AppConfig) (*runtime, error) {
	next := &runtime{config: cfg, obs: rt.obs, metrics: rt.metrics}
	if err := next.buildPipeline(ctx); err != nil {
		_ = next.Close(context.Background())
		return nil, err
	}
	logging.SetLevel(cfg.Logging.Level)
	next.ownsObs, rt.ownsObs = rt.ownsObs, false
	return next, nil
}

func (rt *runtime) buildPipeline(ctx context.Context) error {
	cfg := rt.config
	provider, err := llm.NewProvider(cfg.Models)
	if err != nil {
		return err
	}
	execCfg := resilience.FromConfig(cfg.Resilience, cfg.Models.Timeout.Duration())
	execCfg.NonRetryableErrors = llm.NonRetryable
	rt.client = llm.NewClient(provider, cfg.Models,
		llm.WithExecutor(resilience.NewExecutor[llm.CompletionResponse](execCfg)),
		llm.WithMetrics(rt.metrics),
	)

	searcher, err := rt.buildSearcher(ctx)
	if err != nil {
		return err
	}
	if err := rt.buildArtifacts(ctx); err != nil {
		return err
	}
	if err := rt.buildHistory(ctx); err != nil {
		return err
	}

	vc := cfg.Visualization
	opts := []application.Option{
		application.WithModel(rt.client),
		application.WithSearcher(searcher),
		application.WithRenderer(render.New(
			render.WithSize(vc.Width, vc.Height),
			render.WithDPI(vc.DPI),
			render.WithPieSlices(render.ParsePieSlices(vc.PieSlices)),
		)),
		application.WithRenderConcurrency(vc.MaxConcurrent),
		application.WithRenderQueue(vc.MaxQueue, vc.QueueTimeout.Duration()),
		application.WithVisualization(vc.Enabled),
		application.WithTracer(rt.obs.Tracer()),
		application.WithMetrics(rt.metrics),
	}
	if rt.artifacts != nil {
		opts = append(opts, application.WithArtifactStore(rt.artifacts))
	}
	if rt.history != nil {
		opts = append(opts, application.WithHistory(rt.history))
	}
	rt.chatbot, err = application.NewChatbot(opts...)
	if err != nil {
		return err
	}

	logging.Debug().
		Add(logging.Component("cli")).
		Add(logging.Provider(provider.Name())).
		Add(logging.Str("search", searcher.Name())).
		Msg("runtime ready")
	return nil
}

func (rt *runtime) buildSearcher(ctx context.Context) (search.Searcher, error) {
	sc := rt.config.Search
	var modelOpts []search.ModelOption
	if sc.Provider == "tavily" {
		if sc.APIKey == "" {
			return nil, fmt.Errorf("tavily: %w (set TAVILY_API_KEY)", search.ErrMissingAPIKey)
		}
		modelOpts = append(modelOpts, search.WithWeb(search.NewTavily(search.TavilyConfig{
			APIKey:         sc.APIKey,
			BaseURL:        sc.BaseURL,
			MaxResults:     sc.MaxResults,
			IncludeDomains: sc.TrustedSources,
		})))
	}
	var searcher search.Searcher = search.NewModelSearcher(rt.client, sc.TrustedSources, modelOpts...)

	cc := rt.config.Cache
	if !cc.Enabled {
		return searcher, nil
	}
	var c cache.Cache
	switch cc.Backend {
	case "", "memory":
		c = memory.NewCache(memory.WithMaxSize(cc.MaxEntries))
	case "redis":
		opts := []redis.Option{redis.WithPassword(cc.Password), redis.WithDB(cc.DB)}
		if cc.Addr != "" {
			opts = append(opts, redis.WithAddress(cc.Addr))
		}
		if cc.KeyPrefix != "" {
			opts = append(opts, redis.WithKeyPrefix(cc.KeyPrefix))
		}
		rc, err := redis.NewCache(ctx, redis.DefaultConfig(), opts...)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		rt.closers = append(rt.closers, rc.Close)
		c = rc
	case "sqlite":
		opts := []sqlite.Option{sqlite.WithKeyPrefix(cc.KeyPrefix)}
		if cc.DSN != "" {
			opts = append(opts, sqlite.WithDSN(cc.DSN))
		}
		lc, err := sqlite.NewCache(sqlite.DefaultConfig(), opts...)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		rt.closers = append(rt.closers, lc.Close)
		c = lc
	default:
		return nil, fmt.Errorf("%w: cache backend %s", domainconfig.ErrValidationFailed, cc.Backend)
	}
	return search.NewCached(searcher, c, cc.TTL.Duration(), rt.metrics), nil
}

func (rt *runtime) buildArtifacts(ctx context.Context) error {
	vc := rt.config.Visualization
	if !vc.Enabled || !vc.SaveCharts {
		return nil
	}
	sc := vc.Store
	switch sc.Backend {
	case "", "filesystem":
		store, err := filesystem.NewArtifactStore(sc.Dir)
		if err != nil {
			return fmt.Errorf("open chart store: %w", err)
		}
		rt.artifacts = store
	case "s3":
		store, err := s3.NewArtifactStore(ctx, s3.Config{
			Bucket:          sc.Bucket,
			Prefix:          sc.Prefix,
			Region:          sc.Region,
			AccessKeyID:     sc.AccessKeyID,
			SecretAccessKey: sc.SecretAccessKey,
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Endpoint:        sc.Endpoint,
		})
		if err != nil {
			return fmt.Errorf("open s3 chart store: %w", err)
		}
		rt.artifacts = store
	default:
		return fmt.Errorf("%w: chart store backend %s", domainconfig.ErrValidationFailed, sc.Backend)
	}
	return nil
}

func (rt *runtime) buildHistory(ctx context.Context) error {
	hc := rt.config.History
	switch hc.Backend {
	case "":
		return nil
	case "memory":
		rt.history = memory.NewHistoryStore(hc.Limit)
	case "sqlite":
		cfg := sqlite.DefaultConfig()
		if hc.DSN != "" {
			cfg.DSN = hc.DSN
		}
		store, err := sqlite.NewHistoryStore(cfg)
		if err != nil {
			return fmt.Errorf("open sqlite history: %w", err)
		}
		rt.closers = append(rt.closers, store.Close)
		rt.history = store
	case "postgres":
		pgCfg := postgres.DefaultConfig()
		if hc.DSN != "" {
			pgCfg.DSN = hc.DSN
		}
		pool, err := postgres.NewPool(ctx, pgCfg)
		if err != nil {
			return fmt.Errorf("open postgres history: %w", err)
		}
		store := postgres.NewHistoryStore(pool, pgCfg.Schema)
		rt.closers = append(rt.closers, store.Close)
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate postgres history: %w", err)
		}
		rt.history = store
	default:
		return fmt.Errorf("%w: history backend %s", domainconfig.ErrValidationFailed, hc.Backend)
	}
	return nil
}

// Close releases stores and, unless shared with a reloaded runtime,
// flushes telemetry.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	if rt.ownsObs && rt.obs != nil {
		if err := rt.obs.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
