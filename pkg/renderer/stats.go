package renderer

import (
	"time"

	"github.com/df07/go-pathtracer/pkg/core"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalPixels     int           // Total number of pixels rendered
	TotalSamples    int           // Total number of samples taken
	AverageSamples  float64       // Average samples per pixel
	SamplesPerPixel int           // Samples requested per pixel
	Tiles           int           // Tiles rendered (1 for a sequential render)
	Workers         int           // Goroutines that rendered
	Passes          int           // Progressive passes completed; 0 for single-pass renders
	Duration        time.Duration // Wall clock time of the render
}

// SamplesPerSecond returns the sampling throughput of the render
func (s RenderStats) SamplesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.TotalSamples) / s.Duration.Seconds()
}

// merge folds the counters of a partial render into s
func (s *RenderStats) merge(other RenderStats) {
	s.TotalPixels += other.TotalPixels
	s.TotalSamples += other.TotalSamples
	s.Tiles += other.Tiles
}

// finalize calculates final statistics after all pixels are rendered
func (s *RenderStats) finalize(start time.Time) {
	if s.TotalPixels > 0 {
		s.AverageSamples = float64(s.TotalSamples) / float64(s.TotalPixels)
	}
	s.Duration = time.Since(start)
}

// PixelStats accumulates the radiance samples of one pixel. Progressive
// passes keep adding to the same PixelStats.
type PixelStats struct {
	ColorAccum  core.Vec3 // Sum of radiance samples
	SampleCount int       // Number of samples taken
}

// AddSample adds a new color sample to the pixel statistics
func (ps *PixelStats) AddSample(color core.Vec3) {
	ps.ColorAccum.AddAssign(color)
	ps.SampleCount++
}

// RGB8 returns the output pixel for the samples taken so far. A pixel
// without samples is black.
func (ps *PixelStats) RGB8() RGB8 {
	if ps.SampleCount == 0 {
		return RGB8{}
	}
	return ToRGB8(ps.ColorAccum, ps.SampleCount)
}

// CalculateAverageLuminance returns the mean luminance of an 8-bit image in [0, 1]
func CalculateAverageLuminance(img *Image) float64 {
	if len(img.Pix) == 0 {
		return 0
	}

	var total float64
	for _, p := range img.Pix {
		total += core.NewVec3(float64(p.R), float64(p.G), float64(p.B)).Multiply(1.0 / 255.0).Luminance()
	}
	return total / float64(len(img.Pix))
}
