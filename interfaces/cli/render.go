package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/hoopstats/domain/chart"
	"github.com/felixgeelhaar/hoopstats/infrastructure/render"
)

// renderOptions holds options for the render command.
type renderOptions struct {
	out       string
	width     int
	height    int
	dpi       float64
	pieSlices string
}

// newRenderCmd creates the render command.
func (a *App) newRenderCmd() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <file|->",
		Short: "Render a chart description to PNG",
		Long: `Render a chart description to PNG without calling a model.

The input is the text a visualization stage would produce: a JSON object,
optionally wrapped in prose or a code fence, with chart_type, title,
labels and data.

Examples:
  hoopstats render chart.json -o chart.png
  echo '{"chart_type":"bar","labels":["A","B"],"data":[1,2]}' | hoopstats render - -o ab.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "chart.png", "Output PNG path")
	cmd.Flags().IntVar(&opts.width, "width", 0, "Canvas width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 0, "Canvas height in pixels")
	cmd.Flags().Float64Var(&opts.dpi, "dpi", 0, "Raster resolution")
	cmd.Flags().StringVar(&opts.pieSlices, "pie-slices", "auto", "Pie slice policy (auto, series, labels)")
	return cmd
}

func (a *App) render(path string, opts *renderOptions) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- operator supplied path
	}
	if err != nil {
		return fmt.Errorf("read chart: %w", err)
	}

	spec, err := chart.NormalizeText(string(data))
	if err != nil {
		return err
	}

	res := render.New(
		render.WithSize(opts.width, opts.height),
		render.WithDPI(opts.dpi),
		render.WithPieSlices(render.ParsePieSlices(opts.pieSlices)),
	).Render(spec)
	if !res.OK() {
		if res.Err != nil {
			return fmt.Errorf("render chart (%s): %w", res.Reason, res.Err)
		}
		return fmt.Errorf("render chart: %s", res.Reason)
	}

	if err := os.WriteFile(opts.out, res.Artifact.PNG, 0o644); err != nil { // #nosec G306 -- chart images are not secret
		return fmt.Errorf("write chart: %w", err)
	}

	art := res.Artifact
	fmt.Fprintf(a.stdout, "✓ Rendered %s chart to %s\n", art.Kind, opts.out)
	if art.Title != "" {
		fmt.Fprintf(a.stdout, "  Title: %s\n", art.Title)
	}
	fmt.Fprintf(a.stdout, "  Size: %dx%d\n", art.Width, art.Height)
	if art.Fallback {
		fmt.Fprintf(a.stdout, "  Note: %s is not drawable, rendered as bar\n", spec.Kind)
	}
	return nil
}
