package renderer

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
	"github.com/df07/go-pathtracer/pkg/integrator"
	"github.com/df07/go-pathtracer/pkg/log"
)

var logger = log.New("renderer")

// Renderer produces a finished image from a scene
type Renderer interface {
	Render(ctx context.Context) (*Image, RenderStats, error)
}

// New returns the sequential raytracer for a single worker and the tile
// renderer otherwise
func New(world geometry.Hittable, camera *Camera, integ integrator.Integrator, config Config) (Renderer, error) {
	rt, err := NewRaytracer(world, camera, integ, config)
	if err != nil {
		return nil, err
	}
	if config.Workers() == 1 {
		return rt, nil
	}
	return NewTileRenderer(rt), nil
}

// Raytracer handles the per-pixel estimation and the sequential rendering process
type Raytracer struct {
	world      geometry.Hittable
	camera     *Camera
	integrator integrator.Integrator
	config     Config
	width      int
	height     int
}

// NewRaytracer creates a new raytracer. The world must not change while rendering.
func NewRaytracer(world geometry.Hittable, camera *Camera, integ integrator.Integrator, config Config) (*Raytracer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if isNil(world) {
		return nil, ErrMissingWorld
	}
	if camera == nil {
		return nil, fmt.Errorf("%w: no camera", ErrInvalidCamera)
	}
	if integ == nil {
		integ = integrator.NewPathTracingIntegrator(integrator.DefaultBackground())
	}

	return &Raytracer{
		world:      world,
		camera:     camera,
		integrator: integ,
		config:     config,
		width:      config.Width,
		height:     config.Height(),
	}, nil
}

// isNil also catches a typed nil pointer wrapped in the interface
func isNil(world geometry.Hittable) bool {
	if world == nil {
		return true
	}
	v := reflect.ValueOf(world)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// Config returns the render configuration
func (rt *Raytracer) Config() Config {
	return rt.config
}

// SamplePixel estimates pixel (i, j), with j counted from the bottom row,
// by averaging SamplesPerPixel jittered camera rays
func (rt *Raytracer) SamplePixel(i, j int, sampler core.Sampler) PixelStats {
	var ps PixelStats
	rt.addSamples(&ps, i, j, rt.config.SamplesPerPixel, sampler)
	return ps
}

// addSamples takes n more jittered samples of pixel (i, j) into ps
func (rt *Raytracer) addSamples(ps *PixelStats, i, j, n int, sampler core.Sampler) {
	for sample := 0; sample < n; sample++ {
		// Convert pixel coordinates to normalized coordinates with jitter
		s := (float64(i) + sampler.Get1D()) / float64(rt.width)
		t := (float64(j) + sampler.Get1D()) / float64(rt.height)

		ray := rt.camera.GetRay(s, t, sampler)
		ps.AddSample(rt.integrator.RayColor(ray, rt.world, sampler, rt.config.MaxDepth))
	}
}

// renderRow estimates one output row into img using the given sampler
func (rt *Raytracer) renderRow(row, x0, x1 int, img *Image, sampler core.Sampler) int {
	j := rt.height - 1 - row
	samples := 0
	for i := x0; i < x1; i++ {
		ps := rt.SamplePixel(i, j, sampler)
		img.Set(i, row, ps.RGB8())
		samples += ps.SampleCount
	}
	return samples
}

// Render renders the whole image from a single random stream seeded by
// Config.Seed, scanning from the top row down. Cancellation is checked
// between rows.
func (rt *Raytracer) Render(ctx context.Context) (*Image, RenderStats, error) {
	start := time.Now()
	img := NewImage(rt.width, rt.height)
	sampler := core.NewSeededSampler(rt.config.Seed)
	stats := RenderStats{SamplesPerPixel: rt.config.SamplesPerPixel, Tiles: 1, Workers: 1}

	logger.Infof("rendering %dx%d, %d spp, max depth %d (sequential)",
		rt.width, rt.height, rt.config.SamplesPerPixel, rt.config.MaxDepth)

	for row := 0; row < rt.height; row++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.TotalSamples += rt.renderRow(row, 0, rt.width, img, sampler)
		stats.TotalPixels += rt.width

		if rt.height >= 10 && (row+1)%(rt.height/10) == 0 {
			logger.Debugf("scanlines remaining: %d", rt.height-row-1)
		}
	}

	stats.finalize(start)
	logger.Infof("render finished in %s", stats.Duration)
	return img, stats, nil
}
