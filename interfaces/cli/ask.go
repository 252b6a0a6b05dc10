package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// askOptions holds options for the ask command.
type askOptions struct {
	json     bool
	chartOut string
}

// newAskCmd creates the one-shot ask command.
func (a *App) newAskCmd() *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question",
		Long: `Answer a single question and exit.

Examples:
  hoopstats ask "How many rings does Tim Duncan have?"

  # Print the full reply, including structured data, as JSON
  hoopstats ask --json "Compare Giannis vs Jokic in the Finals"

  # Write the chart, when one is rendered, to a file
  hoopstats ask --chart-out finals.png "Compare Giannis vs Jokic in the Finals"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			return a.ask(cmd.Context(), rt.chatbot, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the reply as JSON")
	cmd.Flags().StringVar(&opts.chartOut, "chart-out", "", "Write the rendered chart PNG to this file")
	return cmd
}

func (a *App) ask(ctx context.Context, asker asker, query string, opts *askOptions) error {
	reply, err := asker.Ask(ctx, query)
	if err != nil {
		return err
	}

	if opts.chartOut != "" && reply.Chart != nil {
		if err := os.WriteFile(opts.chartOut, reply.Chart.PNG, 0o644); err != nil { // #nosec G306 -- chart images are not secret
			return fmt.Errorf("write chart: %w", err)
		}
	}

	if opts.json {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}

	fmt.Fprintln(a.stdout, reply.Answer)
	switch {
	case opts.chartOut != "" && reply.Chart != nil:
		fmt.Fprintf(a.stderr, "chart written to %s\n", opts.chartOut)
	case reply.ChartReason != "" && reply.Chart == nil:
		fmt.Fprintf(a.stderr, "no chart: %s\n", reply.ChartReason)
	}
	return nil
}
