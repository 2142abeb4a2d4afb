package renderer

import (
	"fmt"
	"runtime"
)

// Config contains the image and sampling parameters of a render
type Config struct {
	Width           int     // Image width in pixels
	AspectRatio     float64 // Width / height
	SamplesPerPixel int     // Number of jittered rays per pixel
	MaxDepth        int     // Maximum ray bounce depth
	Seed            int64   // Base seed for every random stream
	NumWorkers      int     // Parallel workers; 0 = runtime.NumCPU(), 1 = sequential
	TileSize        int     // Tile edge in pixels for the parallel renderer
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		Width:           400,
		AspectRatio:     16.0 / 9.0,
		SamplesPerPixel: 100,
		MaxDepth:        50,
		Seed:            42,
		NumWorkers:      0,
		TileSize:        32,
	}
}

// Height returns the image height implied by width and aspect ratio
func (c Config) Height() int {
	return int(float64(c.Width) / c.AspectRatio)
}

// Workers resolves the effective worker count
func (c Config) Workers() int {
	if c.NumWorkers <= 0 {
		return runtime.NumCPU()
	}
	return c.NumWorkers
}

// Validate checks that every parameter is positive
func (c Config) Validate() error {
	switch {
	case c.Width <= 0:
		return fmt.Errorf("%w: width %d must be positive", ErrInvalidConfig, c.Width)
	case !(c.AspectRatio > 0):
		return fmt.Errorf("%w: aspect ratio %g must be positive", ErrInvalidConfig, c.AspectRatio)
	case c.Height() <= 0:
		return fmt.Errorf("%w: width %d and aspect ratio %g give an empty image", ErrInvalidConfig, c.Width, c.AspectRatio)
	case c.SamplesPerPixel <= 0:
		return fmt.Errorf("%w: samples per pixel %d must be positive", ErrInvalidConfig, c.SamplesPerPixel)
	case c.MaxDepth <= 0:
		return fmt.Errorf("%w: max depth %d must be positive", ErrInvalidConfig, c.MaxDepth)
	case c.NumWorkers < 0:
		return fmt.Errorf("%w: worker count %d must not be negative", ErrInvalidConfig, c.NumWorkers)
	case c.TileSize <= 0:
		return fmt.Errorf("%w: tile size %d must be positive", ErrInvalidConfig, c.TileSize)
	}
	return nil
}
