package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newHistoryCmd creates the history command.
func (a *App) newHistoryCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversation turns",
		Long: `List recent conversation turns, newest first.

Only persistent history backends (sqlite, postgres) keep turns between runs.

Examples:
  hoopstats history -c hoopstats.yaml --limit 5`,
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

			turns, err := rt.chatbot.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(turns)
			}
			if len(turns) == 0 {
				fmt.Fprintln(a.stdout, "No conversation history.")
				return nil
			}
			for _, t := range turns {
				fmt.Fprintf(a.stdout, "%s  %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"), t.Query)
				fmt.Fprintf(a.stdout, "  %s\n", firstLine(t.Answer))
				if t.ChartID != "" {
					fmt.Fprintf(a.stdout, "  chart: %s\n", t.ChartID)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of turns to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print turns as JSON")
	return cmd
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
