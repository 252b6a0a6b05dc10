package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hoopstats/domain/config"
	infraconfig "github.com/felixgeelhaar/hoopstats/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	strict bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a chatbot configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version, models)
  - Known providers and storage backends
  - Backend settings such as DSNs and buckets
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  hoopstats validate -c hoopstats.yaml

  # Strict validation (fail on missing env vars)
  hoopstats validate -c hoopstats.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if a.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	cfg, err := infraconfig.NewLoader(infraconfig.WithStrictEnv(opts.strict)).LoadFile(a.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	fmt.Fprintf(a.stdout, "  Version: %s\n", cfg.Version)

	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Provider: %s\n", cfg.Models.Provider)
	for _, stage := range config.Stages {
		s := cfg.Models.Stage(stage)
		fmt.Fprintf(a.stdout, "    - %s: %s (temperature=%g, max_tokens=%d)\n", stage, s.Model, s.Temperature, s.MaxTokens)
	}
	fmt.Fprintf(a.stdout, "  Search: %s\n", cfg.Search.Provider)
	if len(cfg.Search.TrustedSources) > 0 {
		fmt.Fprintf(a.stdout, "  Trusted sources: %s\n", strings.Join(cfg.Search.TrustedSources, ", "))
	}

	if cfg.Visualization.Enabled {
		fmt.Fprintf(a.stdout, "  Charts: %dx%d", cfg.Visualization.Width, cfg.Visualization.Height)
		if cfg.Visualization.SaveCharts {
			fmt.Fprintf(a.stdout, ", saved to %s", cfg.Visualization.Store.Backend)
		}
		fmt.Fprintln(a.stdout)
	} else {
		fmt.Fprintf(a.stdout, "  Charts: disabled\n")
	}

	if cfg.Cache.Enabled {
		fmt.Fprintf(a.stdout, "  Cache: %s (ttl=%s)\n", cfg.Cache.Backend, cfg.Cache.TTL.Duration())
	}
	if cfg.History.Backend != "" {
		fmt.Fprintf(a.stdout, "  History: %s\n", cfg.History.Backend)
	}
	if cfg.Server.RateLimit.Enabled {
		fmt.Fprintf(a.stdout, "  Rate limiting: enabled (rate=%d, burst=%d)\n",
			cfg.Server.RateLimit.Rate, cfg.Server.RateLimit.Burst)
	}
	if cfg.Observability.Tracing {
		fmt.Fprintf(a.stdout, "  Tracing: %s\n", cfg.Observability.Exporter)
	}

	return nil
}
