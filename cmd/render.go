package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-pathtracer/pkg/output"
	"github.com/df07/go-pathtracer/pkg/renderer"
	"github.com/df07/go-pathtracer/pkg/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

func renderFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "scene, s",
			Value:  "default",
			Usage:  "built-in scene name or path to a JSON scene file",
			EnvVar: "PT_SCENE",
		},
		cli.IntFlag{
			Name:   "width",
			Usage:  "image width in pixels (0 = scene default)",
			EnvVar: "PT_WIDTH",
		},
		cli.Float64Flag{
			Name:  "aspect",
			Usage: "width / height (0 = scene default)",
		},
		cli.IntFlag{
			Name:   "spp",
			Usage:  "samples per pixel (0 = scene default)",
			EnvVar: "PT_SPP",
		},
		cli.IntFlag{
			Name:   "depth",
			Usage:  "maximum bounce depth (0 = scene default)",
			EnvVar: "PT_DEPTH",
		},
		cli.Int64Flag{
			Name:   "seed",
			Value:  42,
			Usage:  "base random seed",
			EnvVar: "PT_SEED",
		},
		cli.IntFlag{
			Name:   "workers",
			Usage:  "number of render workers (0 = all CPUs, 1 = sequential)",
			EnvVar: "PT_WORKERS",
		},
		cli.IntFlag{
			Name:  "tile",
			Usage: "tile edge in pixels for parallel rendering (0 = scene default)",
		},
		cli.StringFlag{
			Name:  "out, o",
			Usage: "output file; defaults to output/<scene>/render_<timestamp>.png",
		},
		cli.UintFlag{
			Name:  "thumbnail",
			Usage: "also write a PNG thumbnail whose longest edge is this many pixels",
		},
		cli.IntFlag{
			Name:  "passes",
			Value: 1,
			Usage: "render progressively in up to this many passes, saving the image after each",
		},
		cli.BoolTFlag{
			Name:  "bvh",
			Usage: "accelerate intersection with a bounding volume hierarchy",
		},
	}
}

// RenderScene renders a scene to disk and optionally uploads it.
func RenderScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	ref := ctx.String("scene")
	if ctx.NArg() > 0 {
		ref = ctx.Args().First()
	}
	seed := ctx.Int64("seed")
	passes := ctx.Int("passes")
	if passes < 1 {
		return fmt.Errorf("%w: passes %d must be positive", renderer.ErrInvalidConfig, passes)
	}

	sc, err := loadScene(ref, seed)
	if err != nil {
		return err
	}

	config := renderConfig(ctx, sc.RenderConfig)
	config.Seed = seed

	outPath := ctx.String("out")
	if outPath == "" {
		outPath = defaultOutputPath(ref, time.Now())
	}
	format, err := output.FormatFromPath(outPath)
	if err != nil {
		return err
	}

	// Interrupt stops the render between rows or tiles
	renderCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		img   *renderer.Image
		stats renderer.RenderStats
	)
	if passes > 1 {
		pr, err := sc.NewProgressiveRenderer(config, renderer.ProgressiveConfig{InitialSamples: 1, MaxPasses: passes}, ctx.BoolT("bvh"))
		if err != nil {
			return err
		}
		logger.Noticef("rendering %q at %dx%d, %d spp in %d passes, %d workers",
			sc.Name, config.Width, config.Height(), config.SamplesPerPixel, pr.Passes(), config.Workers())
		if img, stats, err = renderProgressive(renderCtx, pr, outPath); err != nil {
			return err
		}
	} else {
		r, err := sc.NewRenderer(config, ctx.BoolT("bvh"))
		if err != nil {
			return err
		}
		logger.Noticef("rendering %q at %dx%d, %d spp, %d workers", sc.Name, config.Width, config.Height(), config.SamplesPerPixel, config.Workers())
		if img, stats, err = r.Render(renderCtx); err != nil {
			return err
		}
		if err = output.SaveFile(outPath, img); err != nil {
			return err
		}
	}
	logger.Noticef("render saved as %s", outPath)

	if size := ctx.Uint("thumbnail"); size > 0 {
		thumbPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_thumb.png"
		if err = writeThumbnail(thumbPath, img, size); err != nil {
			return err
		}
		logger.Noticef("thumbnail saved as %s", thumbPath)
	}

	if s3 := s3Config(ctx); s3.Enabled() {
		if err = uploadRender(renderCtx, s3, outPath, img, format); err != nil {
			return err
		}
	}

	displayRenderStats(stats, img)
	return nil
}

// renderProgressive runs every pass and overwrites outPath with each improved image
func renderProgressive(ctx context.Context, pr *renderer.ProgressiveRaytracer, outPath string) (*renderer.Image, renderer.RenderStats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	passChan, _, errChan := pr.RenderProgressive(ctx, renderer.RenderOptions{})

	var last renderer.PassResult
	for pass := range passChan {
		if err := output.SaveFile(outPath, pass.Image); err != nil {
			return nil, renderer.RenderStats{}, err
		}
		logger.Infof("pass %d/%d saved (%d spp, %s)", pass.PassNumber, pr.Passes(), pass.Stats.SamplesPerPixel, pass.Stats.Duration)
		last = pass
	}
	if err := <-errChan; err != nil {
		return nil, renderer.RenderStats{}, err
	}

	last.Stats.Duration = time.Since(start)
	return last.Image, last.Stats, nil
}

// loadScene opens a built-in scene or a JSON scene file.
func loadScene(ref string, seed int64) (*scene.Scene, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty scene name", scene.ErrUnknownScene)
	}
	return scene.Open(ref, seed)
}

// renderConfig applies non-zero command line settings on top of the scene's suggestion.
func renderConfig(ctx *cli.Context, config renderer.Config) renderer.Config {
	if v := ctx.Int("width"); v != 0 {
		config.Width = v
	}
	if v := ctx.Float64("aspect"); v != 0 {
		config.AspectRatio = v
	}
	if v := ctx.Int("spp"); v != 0 {
		config.SamplesPerPixel = v
	}
	if v := ctx.Int("depth"); v != 0 {
		config.MaxDepth = v
	}
	if v := ctx.Int("tile"); v != 0 {
		config.TileSize = v
	}
	config.NumWorkers = ctx.Int("workers")
	return config
}

// defaultOutputPath places renders under output/<scene>/ with a timestamped name
func defaultOutputPath(ref string, now time.Time) string {
	base := filepath.Base(ref)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join("output", name, fmt.Sprintf("render_%s.png", now.Format("20060102_150405")))
}

func writeThumbnail(path string, img *renderer.Image, size uint) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return output.WriteThumbnail(file, img, size)
}

func uploadRender(ctx context.Context, config output.S3Config, outPath string, img *renderer.Image, format output.Format) error {
	uploader, err := output.NewS3Uploader(config)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	contentType := "image/png"
	if format == output.FormatPPM {
		contentType = "image/x-portable-pixmap"
	}
	if err = output.Write(&buf, img, format); err != nil {
		return err
	}

	dir := filepath.Base(filepath.Dir(outPath))
	key, err := uploader.Upload(ctx, dir+"/"+filepath.Base(outPath), buf.Bytes(), contentType)
	if err != nil {
		return err
	}
	logger.Noticef("uploaded render to s3://%s/%s", config.Bucket, key)
	return nil
}

func displayRenderStats(stats renderer.RenderStats, img *renderer.Image) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Image", "Pixels", "Samples", "Avg spp", "Tiles", "Workers", "Passes", "Samples/s", "Luminance", "Render time"})
	table.Append([]string{
		fmt.Sprintf("%dx%d", img.Width, img.Height),
		fmt.Sprintf("%d", stats.TotalPixels),
		fmt.Sprintf("%d", stats.TotalSamples),
		fmt.Sprintf("%.1f", stats.AverageSamples),
		fmt.Sprintf("%d", stats.Tiles),
		fmt.Sprintf("%d", stats.Workers),
		fmt.Sprintf("%d", max(stats.Passes, 1)),
		fmt.Sprintf("%.0f", stats.SamplesPerSecond()),
		fmt.Sprintf("%.3f", renderer.CalculateAverageLuminance(img)),
		stats.Duration.String(),
	})

	table.Render()
	logger.Noticef("render statistics\n%s", buf.String())
}
