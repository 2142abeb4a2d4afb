package renderer

import (
	"context"
	"image"
	"time"

	"github.com/df07/go-pathtracer/pkg/core"
)

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID     int             // Unique tile identifier
	Bounds image.Rectangle // Pixel bounds in output rows, row 0 at the top
	Seed   int64           // Seed of the tile's own random stream
}

// NewTile creates a new tile whose random stream is derived from the base seed and tile ID
func NewTile(id int, bounds image.Rectangle, baseSeed int64) *Tile {
	return &Tile{
		ID:     id,
		Bounds: bounds,
		Seed:   baseSeed*1000003 + int64(id) + 42, // +42 to avoid seed 0
	}
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int, baseSeed int64) []*Tile {
	var tiles []*Tile
	tileID := 0

	// Calculate number of tiles in each dimension
	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(tileID, image.Rect(x0, y0, x1, y1), baseSeed))
			tileID++
		}
	}

	return tiles
}

// TileRenderer renders the image in parallel, one tile per worker task
type TileRenderer struct {
	raytracer *Raytracer
}

// NewTileRenderer creates a new tile renderer around a raytracer
func NewTileRenderer(rt *Raytracer) *TileRenderer {
	return &TileRenderer{raytracer: rt}
}

// RenderTile renders the pixels within the tile bounds into img.
// Tiles have non-overlapping bounds, so concurrent calls are safe.
func (tr *TileRenderer) RenderTile(tile *Tile, img *Image) RenderStats {
	sampler := core.NewSeededSampler(tile.Seed)
	stats := RenderStats{Tiles: 1}

	for row := tile.Bounds.Min.Y; row < tile.Bounds.Max.Y; row++ {
		stats.TotalSamples += tr.raytracer.renderRow(row, tile.Bounds.Min.X, tile.Bounds.Max.X, img, sampler)
	}
	stats.TotalPixels = tile.Bounds.Dx() * tile.Bounds.Dy()
	return stats
}

// RenderTilePass adds samples to the tile's pixels until each holds target
// samples. Pixels are visited in row order, so a tile's results depend only
// on its sampler and the targets of earlier passes.
func (tr *TileRenderer) RenderTilePass(tile *Tile, pixelStats []PixelStats, target int, sampler core.Sampler) RenderStats {
	rt := tr.raytracer
	stats := RenderStats{Tiles: 1}

	for row := tile.Bounds.Min.Y; row < tile.Bounds.Max.Y; row++ {
		j := rt.height - 1 - row
		for i := tile.Bounds.Min.X; i < tile.Bounds.Max.X; i++ {
			ps := &pixelStats[row*rt.width+i]
			if n := target - ps.SampleCount; n > 0 {
				rt.addSamples(ps, i, j, n, sampler)
				stats.TotalSamples += n
			}
		}
	}
	stats.TotalPixels = tile.Bounds.Dx() * tile.Bounds.Dy()
	return stats
}

// Render renders every tile through a worker pool. The result depends only on
// the configuration and seed, not on the number of workers.
func (tr *TileRenderer) Render(ctx context.Context) (*Image, RenderStats, error) {
	rt := tr.raytracer
	start := time.Now()
	img := NewImage(rt.width, rt.height)
	tiles := NewTileGrid(rt.width, rt.height, rt.config.TileSize, rt.config.Seed)

	pool := NewWorkerPool(tr, rt.config.Workers(), len(tiles))
	stats := RenderStats{SamplesPerPixel: rt.config.SamplesPerPixel, Workers: pool.GetNumWorkers()}

	logger.Infof("rendering %dx%d, %d spp, max depth %d (%d tiles, %d workers)",
		rt.width, rt.height, rt.config.SamplesPerPixel, rt.config.MaxDepth, len(tiles), stats.Workers)

	pool.Start(ctx)
	for i, tile := range tiles {
		pool.SubmitTask(TileTask{Tile: tile, TaskID: i, Image: img})
	}

	var renderErr error
	for completed := 0; completed < len(tiles); completed++ {
		result, ok := pool.GetResult()
		if !ok {
			break
		}
		if result.Error != nil {
			if renderErr == nil {
				renderErr = result.Error
			}
			continue
		}
		stats.merge(result.Stats)
		logger.Debugf("tile %d done (%d/%d)", result.TaskID, completed+1, len(tiles))
	}
	pool.Stop()

	if renderErr != nil {
		return nil, stats, renderErr
	}

	stats.finalize(start)
	logger.Infof("render finished in %s", stats.Duration)
	return img, stats, nil
}
