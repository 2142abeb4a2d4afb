package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/df07/go-pathtracer/pkg/core"
)

// ProgressiveConfig splits the samples of a render into passes of increasing quality
type ProgressiveConfig struct {
	InitialSamples int // Samples per pixel of the first, preview pass
	MaxPasses      int // Maximum number of passes
}

// DefaultProgressiveConfig returns a quick one-sample preview followed by six refinements
func DefaultProgressiveConfig() ProgressiveConfig {
	return ProgressiveConfig{
		InitialSamples: 1,
		MaxPasses:      7,
	}
}

// Validate checks the pass settings
func (c ProgressiveConfig) Validate() error {
	if c.InitialSamples <= 0 {
		return fmt.Errorf("%w: initial samples %d must be positive", ErrInvalidConfig, c.InitialSamples)
	}
	if c.MaxPasses <= 0 {
		return fmt.Errorf("%w: max passes %d must be positive", ErrInvalidConfig, c.MaxPasses)
	}
	return nil
}

// ProgressiveRaytracer renders the image in passes. Each pass tops every
// pixel up to a higher sample count, so earlier samples are never thrown
// away and the last pass holds SamplesPerPixel samples per pixel.
//
// Every tile keeps its own random stream across passes. The passes are
// therefore reproducible for a seed and independent of the worker count.
type ProgressiveRaytracer struct {
	raytracer  *Raytracer
	tiles      *TileRenderer
	config     ProgressiveConfig
	tileGrid   []*Tile
	passes     int
	samplers   []core.Sampler // One per tile, indexed like tileGrid
	pixelStats []PixelStats   // Row-major, row 0 at the top
}

// NewProgressiveRaytracer wraps rt. Fewer passes than MaxPasses are planned
// when there are not enough samples to give every pass a new one.
func NewProgressiveRaytracer(rt *Raytracer, config ProgressiveConfig) (*ProgressiveRaytracer, error) {
	if rt == nil {
		return nil, ErrMissingWorld
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	spp := rt.config.SamplesPerPixel
	passes := 1
	if config.InitialSamples < spp {
		passes = min(config.MaxPasses, spp-config.InitialSamples+1)
	}

	pr := &ProgressiveRaytracer{
		raytracer:  rt,
		tiles:      NewTileRenderer(rt),
		config:     config,
		tileGrid:   NewTileGrid(rt.width, rt.height, rt.config.TileSize, rt.config.Seed),
		passes:     passes,
		pixelStats: make([]PixelStats, rt.width*rt.height),
	}
	pr.reset()
	return pr, nil
}

// Passes returns the number of passes a full render takes
func (pr *ProgressiveRaytracer) Passes() int {
	return pr.passes
}

// reset drops all samples and restarts every tile stream from its seed
func (pr *ProgressiveRaytracer) reset() {
	for i := range pr.pixelStats {
		pr.pixelStats[i] = PixelStats{}
	}
	pr.samplers = make([]core.Sampler, len(pr.tileGrid))
	for i, tile := range pr.tileGrid {
		pr.samplers[i] = core.NewSeededSampler(tile.Seed)
	}
}

// samplesForPass returns the samples per pixel every pixel holds after the pass
func (pr *ProgressiveRaytracer) samplesForPass(pass int) int {
	spp := pr.raytracer.config.SamplesPerPixel
	if pr.passes == 1 || pass >= pr.passes {
		return spp
	}

	// Divide the remaining samples evenly; the last pass takes what is left
	perPass := (spp - pr.config.InitialSamples) / (pr.passes - 1)
	return pr.config.InitialSamples + (pass-1)*perPass
}

// RenderPass renders pass number pass (1-based) and returns the image so far.
// Pass 1 starts a fresh render. Passes must run in order; a failed pass
// leaves the render to be restarted from pass 1.
func (pr *ProgressiveRaytracer) RenderPass(ctx context.Context, pass int, tileCallback func(TileCompletionResult)) (*Image, RenderStats, error) {
	if pass < 1 || pass > pr.passes {
		return nil, RenderStats{}, fmt.Errorf("%w: pass %d outside 1..%d", ErrInvalidConfig, pass, pr.passes)
	}
	if pass == 1 {
		pr.reset()
	}

	start := time.Now()
	target := pr.samplesForPass(pass)
	pool := NewWorkerPool(pr.tiles, pr.raytracer.config.Workers(), len(pr.tileGrid))

	logger.Infof("pass %d/%d: target %d samples per pixel (%d workers)",
		pass, pr.passes, target, pool.GetNumWorkers())

	pool.Start(ctx)
	for i, tile := range pr.tileGrid {
		pool.SubmitTask(TileTask{
			Tile:          tile,
			TaskID:        i,
			PassNumber:    pass,
			TargetSamples: target,
			PixelStats:    pr.pixelStats,
			Sampler:       pr.samplers[i],
		})
	}

	var passErr error
	for completed := 0; completed < len(pr.tileGrid); completed++ {
		result, ok := pool.GetResult()
		if !ok {
			break
		}
		if result.Error != nil {
			if passErr == nil {
				passErr = result.Error
			}
			continue
		}
		if tileCallback != nil {
			tile := pr.tileGrid[result.TaskID]
			tileSize := pr.raytracer.config.TileSize
			tileCallback(TileCompletionResult{
				TileX:       tile.Bounds.Min.X / tileSize,
				TileY:       tile.Bounds.Min.Y / tileSize,
				TileImage:   pr.extractTileImage(tile),
				PassNumber:  pass,
				TileNumber:  completed + 1,
				TotalTiles:  len(pr.tileGrid),
				TotalPasses: pr.passes,
			})
		}
	}
	pool.Stop()

	if passErr != nil {
		return nil, RenderStats{}, passErr
	}

	img, stats := pr.assembleCurrentImage()
	stats.SamplesPerPixel = target
	stats.Tiles = len(pr.tileGrid)
	stats.Workers = pool.GetNumWorkers()
	stats.Passes = pass
	stats.Duration = time.Since(start)

	logger.Infof("pass %d/%d finished in %s", pass, pr.passes, stats.Duration)
	return img, stats, nil
}

// extractTileImage copies the current state of one tile into its own image
func (pr *ProgressiveRaytracer) extractTileImage(tile *Tile) *Image {
	bounds := tile.Bounds
	tileImage := NewImage(bounds.Dx(), bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			tileImage.Set(x-bounds.Min.X, y-bounds.Min.Y, pr.pixelStats[y*pr.raytracer.width+x].RGB8())
		}
	}

	return tileImage
}

// assembleCurrentImage builds the image and the sample counts from the pixel statistics
func (pr *ProgressiveRaytracer) assembleCurrentImage() (*Image, RenderStats) {
	img := NewImage(pr.raytracer.width, pr.raytracer.height)
	stats := RenderStats{TotalPixels: len(pr.pixelStats)}

	for i := range pr.pixelStats {
		img.Pix[i] = pr.pixelStats[i].RGB8()
		stats.TotalSamples += pr.pixelStats[i].SampleCount
	}
	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}

	return img, stats
}

// PassResult contains the result of a single pass
type PassResult struct {
	PassNumber int
	Image      *Image
	Stats      RenderStats
	IsLast     bool
}

// TileCompletionResult describes a tile finished within a pass
type TileCompletionResult struct {
	TileX      int // Tile coordinates, not pixel coordinates
	TileY      int
	TileImage  *Image // Image data for just this tile
	PassNumber int

	TileNumber  int // Completion order within the pass, 1-based
	TotalTiles  int
	TotalPasses int
}

// RenderOptions configures progressive rendering behavior
type RenderOptions struct {
	TileUpdates bool // Whether to generate tile completion events
}

// RenderProgressive runs every pass in the background and reports on channels.
// The pass channel closes after the last pass or on failure; the error
// channel then holds the failure, if any. Without options.TileUpdates the
// tile channel is closed immediately. Tile events are dropped rather than
// block the render when the reader falls behind.
func (pr *ProgressiveRaytracer) RenderProgressive(ctx context.Context, options RenderOptions) (<-chan PassResult, <-chan TileCompletionResult, <-chan error) {
	passChan := make(chan PassResult, 1)
	tileChan := make(chan TileCompletionResult, 100)
	errChan := make(chan error, 1)

	if !options.TileUpdates {
		close(tileChan)
	}

	go func() {
		defer close(passChan)
		if options.TileUpdates {
			defer close(tileChan)
		}
		defer close(errChan)

		logger.Infof("progressive render: %d passes up to %d samples per pixel",
			pr.passes, pr.raytracer.config.SamplesPerPixel)

		var tileCallback func(TileCompletionResult)
		if options.TileUpdates {
			tileCallback = func(result TileCompletionResult) {
				select {
				case tileChan <- result:
				default:
					logger.Debugf("tile event dropped (pass %d, tile %d)", result.PassNumber, result.TileNumber)
				}
			}
		}

		for pass := 1; pass <= pr.passes; pass++ {
			if err := ctx.Err(); err != nil {
				logger.Infof("render cancelled before pass %d", pass)
				errChan <- err
				return
			}

			img, stats, err := pr.RenderPass(ctx, pass, tileCallback)
			if err != nil {
				errChan <- err
				return
			}

			select {
			case passChan <- PassResult{PassNumber: pass, Image: img, Stats: stats, IsLast: pass == pr.passes}:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
	}()

	return passChan, tileChan, errChan
}

// Render runs every pass and returns the final image
func (pr *ProgressiveRaytracer) Render(ctx context.Context) (*Image, RenderStats, error) {
	start := time.Now()
	var (
		img   *Image
		stats RenderStats
		err   error
	)
	for pass := 1; pass <= pr.passes; pass++ {
		img, stats, err = pr.RenderPass(ctx, pass, nil)
		if err != nil {
			return nil, RenderStats{}, err
		}
	}
	stats.Duration = time.Since(start)
	return img, stats, nil
}
