package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/pipeline"
	"github.com/matzehuels/idsheet/pkg/sink"
)

// layoutCommand creates the layout command, which plans a sheet without
// needing a photo.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		flags   measureFlags
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute how many photos fit on a page",
		Long: `Compute the photo grid for a page without rendering it.

The layout command converts the photo, page and margin to pixels at the given
resolution, picks the page orientation that fits more copies and centers the
grid. With -o the placements are written as JSON (same format as
'render -f json').

Results are cached locally for faster subsequent runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), flags, output, noCache)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the placements as JSON to this file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runLayout plans the grid and prints a summary.
func (c *CLI) runLayout(ctx context.Context, flags measureFlags, output string, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts, err := baseOptions(cfg)
	if err != nil {
		return err
	}
	flags.apply(&opts)

	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	plan, cacheHit, err := runner.PlanWithCacheInfo(ctx, opts)
	if err != nil {
		return err
	}

	printPlan(plan, cacheHit)

	if output != "" {
		if err := errors.ValidatePath(output); err != nil {
			return err
		}
		data, err := sink.RenderJSON(plan.Grid,
			sink.WithJSONResolution(plan.DPI),
			sink.WithJSONSizes(plan.PhotoSize, plan.PageSize, plan.Margin))
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return fmt.Errorf("write output %s: %w", output, err)
		}
		printFile(output)
	}

	if !plan.Empty() {
		printNewline()
		printNextStep("Render", "idsheet render <photo> -p "+opts.Photo+" --page "+opts.Page)
	}
	return nil
}

// printPlan prints the grid summary, or a warning when nothing fits.
func printPlan(plan *pipeline.Plan, cached bool) {
	g := plan.Grid
	if plan.Empty() {
		printWarning("Nothing fits: a %s photo does not fit on a %s page with a %s margin",
			plan.PhotoSize, plan.PageSize, plan.Margin)
		return
	}

	printSuccess("Layout complete")
	printKeyValue("photo", fmt.Sprintf("%s (%s)", plan.PhotoSize, g.Photo))
	printKeyValue("page", fmt.Sprintf("%s (%s)", plan.PageSize, g.Page))
	printKeyValue("margin", fmt.Sprintf("%s (%dpx)", plan.Margin, g.Margin))
	printKeyValue("origin", fmt.Sprintf("%d, %d", g.StartX, g.StartY))
	printSheetStats(g.Capacity(), g.Rows, g.Cols, string(g.Orientation), cached)
}
