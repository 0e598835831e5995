package cli

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/idsheet/pkg/crop"
	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/pipeline"
	"github.com/matzehuels/idsheet/pkg/sink"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	measure       measureFlags
	output        string // output base path; the format extension is appended
	formats       string // comma-separated output formats
	quality       int    // JPEG quality
	interpolation string // compositor scaling filter
	region        string // crop box "x,y,w,h" in source pixels
	noCache       bool
}

// renderCommand creates the render command for producing a print sheet.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [photo]",
		Short: "Render a print sheet from a photo",
		Long: `Render a print sheet from a photo.

The photo is cropped to the photo size's aspect ratio (centered, or the box
given with --region), scaled to the photo's pixel size and painted into
every cell of the grid on a white page.

Without -o the files are named id-photo-layout.<ext> in the current
directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	opts.measure.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output base path (default: "+sink.BaseFilename+")")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): png, jpeg, json (comma-separated, default from config)")
	cmd.Flags().IntVarP(&opts.quality, "quality", "q", 0, "JPEG quality 1-100 (default from config)")
	cmd.Flags().StringVar(&opts.interpolation, "interpolation", "", "scaling filter: nearest, bilinear, catmullrom")
	cmd.Flags().StringVar(&opts.region, "region", "", "crop box in source pixels as x,y,width,height (default: centered)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// runRender crops the photo, runs the pipeline and writes one file per format.
func (c *CLI) runRender(ctx context.Context, input string, ro renderOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts, err := baseOptions(cfg)
	if err != nil {
		return err
	}
	ro.measure.apply(&opts)
	if formats := parseFormats(ro.formats); formats != nil {
		opts.Formats = formats
	}
	if ro.quality != 0 {
		opts.Quality = ro.quality
	}
	if ro.interpolation != "" {
		opts.Interpolation = ro.interpolation
	}
	opts.Logger = c.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	var region *image.Rectangle
	if ro.region != "" {
		r, err := parseRegion(ro.region)
		if err != nil {
			return err
		}
		region = &r
	}

	prog := newProgress(c.Logger)
	unit, err := c.loadUnit(input, opts, region)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, ro.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering sheet...")
	runner.Hooks = spinnerHooks{spinner: spinner}
	spinner.Start()

	result, err := runner.Execute(ctx, opts, unit)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	base := basePath(ro.output)
	var paths []string
	for _, format := range opts.Formats {
		path := base + "." + sink.Format(format).Ext()
		if err := writeArtifact(path, result.Artifacts[format]); err != nil {
			return err
		}
		paths = append(paths, path)
	}
	prog.done("Sheet written", "files", len(paths))

	if result.Empty() {
		printWarning("Nothing fits: the sheet is blank")
	} else {
		printSuccess("Sheet complete")
	}
	for _, p := range paths {
		printFile(p)
	}
	g := result.Plan.Grid
	printSheetStats(g.Capacity(), g.Rows, g.Cols, string(g.Orientation), result.CacheInfo.ExportHit)
	return nil
}

// loadUnit decodes the photo at path and crops it to the photo's pixel size.
// Only JSON output needs no photo, so a JSON-only run skips decoding.
func (c *CLI) loadUnit(path string, opts pipeline.Options, region *image.Rectangle) (image.Image, error) {
	if !opts.NeedsSheet() {
		return nil, nil
	}
	src, err := crop.Open(path)
	if err != nil {
		return nil, err
	}
	px, err := pipeline.Convert(opts)
	if err != nil {
		return nil, err
	}

	aspect, err := crop.Aspect(px.Photo.Width, px.Photo.Height)
	if err != nil {
		return nil, err
	}
	r := crop.DefaultRegion(src.Bounds(), aspect)
	if region != nil {
		if err := crop.Validate(*region, src.Bounds()); err != nil {
			return nil, err
		}
		r = crop.FitAspect(*region, src.Bounds(), aspect)
	}
	c.Logger.Debug("cropping photo", "source", src.Bounds().Size(), "region", r, "unit", px.Photo)
	return crop.Crop(src, r, px.Photo.Width, px.Photo.Height)
}

// parseRegion parses "x,y,width,height".
func parseRegion(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, errors.New(errors.ErrCodeInvalidRegion, "region must be x,y,width,height, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, errors.Wrap(errors.ErrCodeInvalidRegion, err, "region value %q", p)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, errors.New(errors.ErrCodeInvalidRegion, "region size must be positive, got %dx%d", v[2], v[3])
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

// basePath derives the output base path. A known format extension on output
// is stripped so "sheet.png" and "sheet" both yield "sheet".
func basePath(output string) string {
	if output == "" {
		return sink.BaseFilename
	}
	ext := filepath.Ext(output)
	if _, err := sink.ParseFormat(strings.TrimPrefix(ext, ".")); err == nil && ext != "" {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeArtifact(path string, data []byte) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}
