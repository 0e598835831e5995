package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/idsheet/pkg/cache"
	"github.com/matzehuels/idsheet/pkg/config"
	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/pipeline"
)

// captureOutput redirects status output to a buffer for the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := out
	out = &buf
	t.Cleanup(func() { out = old })
	return &buf
}

// writeConfig writes a config file that disables caching.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[cache]\nbackend = \"none\"\n" + extra
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty keeps config", "", nil},
		{"single format", "png", []string{"png"}},
		{"multiple formats", "png,jpeg,json", []string{"png", "jpeg", "json"}},
		{"spaces and blanks", " png , ,json", []string{"png", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestParseRegion(t *testing.T) {
	got, err := parseRegion("10, 20, 300, 400")
	if err != nil {
		t.Fatalf("parseRegion error: %v", err)
	}
	if want := image.Rect(10, 20, 310, 420); got != want {
		t.Errorf("parseRegion = %v, want %v", got, want)
	}

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "0,0,0,10", "0,0,10,-1"} {
		if _, err := parseRegion(bad); !errors.Is(err, errors.ErrCodeInvalidRegion) {
			t.Errorf("parseRegion(%q) error = %v, want INVALID_REGION", bad, err)
		}
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"", "id-photo-layout"},
		{"sheet", "sheet"},
		{"out/sheet.png", "out/sheet"},
		{"sheet.jpg", "sheet"},
		{"sheet.v2", "sheet.v2"},
	}
	for _, tt := range tests {
		if got := basePath(tt.output); got != tt.want {
			t.Errorf("basePath(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}

func TestBaseOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Presets.Photo = map[string]string{"visa": "33x48mm"}

	opts, err := baseOptions(cfg)
	if err != nil {
		t.Fatalf("baseOptions error: %v", err)
	}
	if opts.Photo != cfg.Defaults.Photo || opts.DPI != cfg.Defaults.DPI {
		t.Errorf("options not seeded from config: %+v", opts)
	}
	if _, ok := opts.PhotoPresets.Lookup("visa"); !ok {
		t.Error("user preset missing from photo presets")
	}

	flags := measureFlags{photo: "visa", dpi: 600}
	flags.apply(&opts)
	if opts.Photo != "visa" || opts.DPI != 600 || opts.Page != cfg.Defaults.Page {
		t.Errorf("flags applied incorrectly: photo=%q dpi=%d page=%q", opts.Photo, opts.DPI, opts.Page)
	}

	// Formats are copied, not shared with the config.
	opts.Formats[0] = "json"
	if cfg.Defaults.Formats[0] != "png" {
		t.Error("baseOptions shares the config formats slice")
	}
}

func TestNewCacheBackends(t *testing.T) {
	ctx := testContext(t)

	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	c, err := newCache(ctx, cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("file backend = %T, want *cache.FileCache", c)
	}

	c, _ = newCache(ctx, cfg, true)
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("--no-cache = %T, want *cache.NullCache", c)
	}

	cfg.Cache.Backend = config.BackendNone
	c, _ = newCache(ctx, cfg, false)
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("none backend = %T, want *cache.NullCache", c)
	}
}

func TestLayoutCommand(t *testing.T) {
	buf := captureOutput(t)
	output := filepath.Join(t.TempDir(), "plan.json")

	err := runCLI(t, "--config", writeConfig(t, ""),
		"layout", "-p", "2.5x3.5", "--page", "4x6", "--dpi", "300", "-m", "3mm", "-o", output)
	if err != nil {
		t.Fatalf("layout error: %v", err)
	}
	if !strings.Contains(buf.String(), "12") {
		t.Errorf("summary should mention 12 photos:\n%s", buf.String())
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if doc.Count != 12 {
		t.Errorf("count = %d, want 12", doc.Count)
	}
}

func TestLayoutCommandNothingFits(t *testing.T) {
	buf := captureOutput(t)
	err := runCLI(t, "--config", writeConfig(t, ""), "layout", "-p", "5x5", "-m", "10cm")
	if err != nil {
		t.Fatalf("empty layout should not fail: %v", err)
	}
	if !strings.Contains(buf.String(), "Nothing fits") {
		t.Errorf("expected a nothing-fits warning:\n%s", buf.String())
	}
}

func TestLayoutCommandInvalid(t *testing.T) {
	captureOutput(t)
	err := runCLI(t, "--config", writeConfig(t, ""), "layout", "--margin=-3mm")
	if !errors.Is(err, errors.ErrCodeInvalidMeasurement) {
		t.Errorf("error = %v, want INVALID_MEASUREMENT", err)
	}
}

func TestRenderCommand(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()

	photo := filepath.Join(dir, "portrait.png")
	src := imaging.New(600, 800, color.NRGBA{R: 120, G: 80, B: 60, A: 255})
	if err := imaging.Save(src, photo); err != nil {
		t.Fatal(err)
	}

	base := filepath.Join(dir, "out", "sheet")
	err := runCLI(t, "--config", writeConfig(t, ""),
		"render", photo, "-p", "2.5x3.5", "--page", "4x6", "-f", "png,jpg,json", "-o", base+".png")
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	img, err := imaging.Open(base + ".png")
	if err != nil {
		t.Fatalf("open png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1200 || b.Dy() != 1800 {
		t.Errorf("sheet = %v, want 1200x1800", b)
	}
	if _, err := os.Stat(base + ".jpg"); err != nil {
		t.Errorf("jpeg output missing: %v", err)
	}
	if _, err := os.Stat(base + ".json"); err != nil {
		t.Errorf("json output missing: %v", err)
	}
}

func TestRenderCommandJSONWithoutPhoto(t *testing.T) {
	captureOutput(t)
	base := filepath.Join(t.TempDir(), "plan")

	// JSON output never decodes the photo, so a missing file is fine.
	err := runCLI(t, "--config", writeConfig(t, ""), "render", "missing.png", "-f", "json", "-o", base)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if _, err := os.Stat(base + ".json"); err != nil {
		t.Errorf("json output missing: %v", err)
	}
}

func TestRenderCommandBadRegion(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()
	photo := filepath.Join(dir, "portrait.png")
	if err := imaging.Save(imaging.New(100, 100, color.White), photo); err != nil {
		t.Fatal(err)
	}

	err := runCLI(t, "--config", writeConfig(t, ""),
		"render", photo, "--region", "50,50,100,100", "-o", filepath.Join(dir, "x"))
	if !errors.Is(err, errors.ErrCodeInvalidRegion) {
		t.Errorf("error = %v, want INVALID_REGION", err)
	}
}

func TestPresetsCommand(t *testing.T) {
	buf := captureOutput(t)
	cfgPath := writeConfig(t, "[presets.photo]\nvisa = \"33x48mm\"\n")
	if err := runCLI(t, "--config", cfgPath, "presets"); err != nil {
		t.Fatalf("presets error: %v", err)
	}
	for _, want := range []string{"Pages", "4x6", "A4", "Photos", "visa"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("presets output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestCachePathCommand(t *testing.T) {
	buf := captureOutput(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[cache]\ndir = \""+dir+"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := runCLI(t, "--config", cfgPath, "cache", "path"); err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != dir {
		t.Errorf("cache path = %q, want %q", got, dir)
	}
}

func TestCacheClearCommand(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[cache]\ndir = \""+dir+"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Populate the cache through a layout run.
	if err := runCLI(t, "--config", cfgPath, "layout"); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) == 0 {
		t.Fatal("layout should have written a cache entry")
	}

	if err := runCLI(t, "--config", cfgPath, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	entries, _ = os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cache dir still holds %d entries", len(entries))
	}
}

func TestPrintPlanEmpty(t *testing.T) {
	buf := captureOutput(t)
	r := pipeline.NewRunner(nil, nil, nil)
	plan, err := r.Plan(testContext(t), pipeline.Options{Photo: "5x5", Margin: "10cm"})
	if err != nil {
		t.Fatal(err)
	}
	printPlan(plan, false)
	if !strings.Contains(buf.String(), "Nothing fits") {
		t.Errorf("printPlan output = %q", buf.String())
	}
}

// testContext mirrors testing.T.Context (Go 1.24+): a context that is
// cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
