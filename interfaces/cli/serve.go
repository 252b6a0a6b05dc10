package cli

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hoopstats/application"
	domainconfig "github.com/felixgeelhaar/hoopstats/domain/config"
	"github.com/felixgeelhaar/hoopstats/infrastructure/config"
	"github.com/felixgeelhaar/hoopstats/infrastructure/logging"
	"github.com/felixgeelhaar/hoopstats/interfaces/server"
)

// serveOptions holds options for the serve command.
type serveOptions struct {
	addr  string
	watch bool
}

// newServeCmd creates the HTTP API command.
func (a *App) newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		Long: `Serve the chat API over HTTP.

Endpoints:
  POST /chat          {"message": "..."} -> {"reply", "chart", "chart_ref"}
  GET  /charts/{id}   a saved chart image
  GET  /metrics       metric snapshot (observability.metrics: true)
  GET  /healthz       liveness

With --watch, edits to the configuration file rebuild the pipeline without
a restart. Server address, CORS and rate limits apply from startup.

Examples:
  hoopstats serve -c hoopstats.yaml
  hoopstats serve --addr :9000 --watch -c hoopstats.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the configuration file when it changes")
	return cmd
}

func (a *App) serve(ctx context.Context, opts *serveOptions) error {
	var (
		cfg     *domainconfig.AppConfig
		watcher *config.Watcher
		err     error
	)
	if opts.watch && a.configPath != "" {
		watcher, err = config.NewWatcher(a.configPath, nil)
		if err != nil {
			return err
		}
		cfg = watcher.Current()
		if a.logLevel != "" {
			cfg.Logging.Level = a.logLevel
		}
	} else if cfg, err = a.loadConfig(); err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	live := &liveChatbot{rt: rt, grace: cfg.Server.WriteTimeout.Duration()}
	defer live.Close()

	sc := server.FromConfig(cfg.Server)
	if opts.addr != "" {
		sc.Addr = opts.addr
	}
	srvOpts := []server.Option{
		server.WithTracer(rt.obs.Tracer()),
		server.WithMetrics(rt.metrics),
	}
	if rt.artifacts != nil {
		srvOpts = append(srvOpts, server.WithArtifacts(rt.artifacts))
	}
	if rt.obs.MetricsEnabled() {
		srvOpts = append(srvOpts, server.WithMetricsSource(rt.obs))
	}

	if watcher != nil {
		go func() {
			err := watcher.Run(ctx, func(next *domainconfig.AppConfig) {
				if a.logLevel != "" {
					next.Logging.Level = a.logLevel
				}
				live.Reload(ctx, next)
			})
			if err != nil {
				logging.Warn().Add(logging.Component("cli")).Add(logging.ErrorField(err)).Msg("config watcher stopped")
			}
		}()
	}

	return server.New(live, sc, srvOpts...).ListenAndServe(ctx)
}

// liveChatbot serves the current runtime's chatbot and swaps in a new one
// on reload. A replaced runtime is closed once in-flight requests, bounded
// by the write timeout, have had time to finish.
type liveChatbot struct {
	mu    sync.RWMutex
	rt    *runtime
	grace time.Duration
	old   sync.WaitGroup
}

var _ server.Asker = (*liveChatbot)(nil)

// Ask answers query with the current chatbot.
func (l *liveChatbot) Ask(ctx context.Context, query string) (application.Reply, error) {
	l.mu.RLock()
	rt := l.rt
	l.mu.RUnlock()
	return rt.chatbot.Ask(ctx, query)
}

// Reload builds a pipeline for cfg. On failure the current one keeps serving.
func (l *liveChatbot) Reload(ctx context.Context, cfg *domainconfig.AppConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := l.rt.reload(ctx, cfg)
	if err != nil {
		logging.Error().
			Add(logging.Component("cli")).
			Add(logging.ErrorField(err)).
			Msg("pipeline reload failed, keeping current configuration")
		return
	}
	old := l.rt
	l.rt = next

	l.old.Add(1)
	time.AfterFunc(l.grace, func() {
		defer l.old.Done()
		_ = old.Close(context.Background())
	})
	logging.Info().Add(logging.Component("cli")).Msg("pipeline reloaded")
}

// Close waits for replaced runtimes and closes the current one.
func (l *liveChatbot) Close() {
	l.old.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.rt.Close(ctx); err != nil {
		logging.Warn().Add(logging.Component("cli")).Add(logging.ErrorField(err)).Msg("shutdown incomplete")
	}
}
