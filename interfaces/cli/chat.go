package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hoopstats/application"
)

// ExampleQueries are the questions the chat command can run unattended.
var ExampleQueries = []string{
	"What are LeBron James' career stats?",
	"Compare Stephen Curry and Damian Lillard's three-point shooting",
	"Who are the top 5 scorers in NBA history?",
}

// exitWords end a chat session.
var exitWords = []string{"quit", "exit", "bye"}

// newChatCmd creates the interactive chat command.
func (a *App) newChatCmd() *cobra.Command {
	var examples bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session on the terminal.

Type a question and press enter. Type quit, exit or bye to leave.

Examples:
  # Chat with the default OpenAI models
  hoopstats chat

  # Run the bundled example questions
  hoopstats chat --examples`,
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

			if examples {
				a.runExamples(cmd.Context(), rt.chatbot)
				return nil
			}
			return a.repl(cmd.Context(), rt.chatbot)
		},
	}

	cmd.Flags().BoolVar(&examples, "examples", false, "Run the example questions and exit")
	return cmd
}

func (a *App) banner() {
	fmt.Fprintln(a.stdout, "NBA Stats Chatbot")
	fmt.Fprintln(a.stdout, "Ask about players, teams and records. Type 'quit', 'exit' or 'bye' to leave.")
	fmt.Fprintln(a.stdout)
}

func (a *App) repl(ctx context.Context, asker asker) error {
	a.banner()
	scanner := bufio.NewScanner(a.stdin)
	for {
		fmt.Fprint(a.stdout, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(a.stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isExit(line) {
			fmt.Fprintln(a.stdout, "Goodbye!")
			return nil
		}
		a.answer(ctx, asker, line)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (a *App) runExamples(ctx context.Context, asker asker) {
	a.banner()
	for _, q := range ExampleQueries {
		fmt.Fprintf(a.stdout, "You: %s\n", q)
		a.answer(ctx, asker, q)
		if ctx.Err() != nil {
			return
		}
	}
}

// answer prints the reply to one message. Failures are shown, not returned.
func (a *App) answer(ctx context.Context, asker asker, query string) {
	reply, err := asker.Ask(ctx, query)
	if err != nil {
		fmt.Fprintf(a.stdout, "Bot: %s\n\n", application.ErrorReply(err))
		return
	}
	fmt.Fprintf(a.stdout, "Bot: %s\n", reply.Answer)
	if reply.ChartRef != nil {
		where := reply.ChartRef.Location
		if where == "" {
			where = reply.ChartRef.ID
		}
		fmt.Fprintf(a.stdout, "     Chart saved: %s\n", where)
	}
	fmt.Fprintln(a.stdout)
}

func isExit(line string) bool {
	for _, w := range exitWords {
		if strings.EqualFold(line, w) {
			return true
		}
	}
	return false
}

// asker answers one message.
type asker interface {
	Ask(ctx context.Context, query string) (application.Reply, error)
}
