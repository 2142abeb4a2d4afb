package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
	"github.com/df07/go-pathtracer/pkg/integrator"
	"github.com/df07/go-pathtracer/pkg/material"
)

func testConfig() Config {
	return Config{
		Width:           24,
		AspectRatio:     1.5,
		SamplesPerPixel: 4,
		MaxDepth:        8,
		Seed:            7,
		NumWorkers:      1,
		TileSize:        5,
	}
}

func testWorld(t *testing.T) *geometry.HittableList {
	t.Helper()
	world := geometry.NewHittableList()
	for _, s := range []struct {
		center core.Vec3
		radius float64
		mat    material.Material
	}{
		{core.NewVec3(0, -100.5, -1), 100, material.NewLambertian(core.NewVec3(0.8, 0.8, 0))},
		{core.NewVec3(0, 0, -1), 0.5, material.NewLambertian(core.NewVec3(0.1, 0.2, 0.5))},
		{core.NewVec3(-1, 0, -1), 0.5, material.NewDielectric(1.5)},
		{core.NewVec3(1, 0, -1), 0.5, material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.3)},
	} {
		sphere, err := geometry.NewSphere(s.center, s.radius, s.mat)
		if err != nil {
			t.Fatal(err)
		}
		world.Add(sphere)
	}
	return world
}

func testCamera(t *testing.T, aspect float64) *Camera {
	t.Helper()
	camera, err := NewCamera(CameraConfig{
		LookFrom:    core.NewVec3(0, 0.5, 1.5),
		LookAt:      core.NewVec3(0, 0, -1),
		Up:          core.NewVec3(0, 1, 0),
		VFov:        60,
		AspectRatio: aspect,
		Aperture:    0.05,
	})
	if err != nil {
		t.Fatal(err)
	}
	return camera
}

func newTestRaytracer(t *testing.T, world geometry.Hittable, config Config, background integrator.Background) *Raytracer {
	t.Helper()
	rt, err := NewRaytracer(world, testCamera(t, config.AspectRatio), integrator.NewPathTracingIntegrator(background), config)
	if err != nil {
		t.Fatal(err)
	}
	return rt
}

func TestRaytracer_Reproducible(t *testing.T) {
	config := testConfig()
	world := testWorld(t)

	first, _, err := newTestRaytracer(t, world, config, integrator.DefaultBackground()).Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := newTestRaytracer(t, world, config, integrator.DefaultBackground()).Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if first.Width != 24 || first.Height != 16 || len(first.Pix) != 24*16 {
		t.Fatalf("Unexpected image dimensions %dx%d", first.Width, first.Height)
	}
	for i := range first.Pix {
		if first.Pix[i] != second.Pix[i] {
			t.Fatalf("Pixel %d differs between identical renders: %v vs %v", i, first.Pix[i], second.Pix[i])
		}
	}

	config.Seed = 8
	third, _, _ := newTestRaytracer(t, world, config, integrator.DefaultBackground()).Render(context.Background())
	differs := false
	for i := range first.Pix {
		if first.Pix[i] != third.Pix[i] {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("Different seeds should produce different noise")
	}
}

func TestRaytracer_WhiteRoundTrip(t *testing.T) {
	white := integrator.Background{Top: core.NewVec3(1, 1, 1), Bottom: core.NewVec3(1, 1, 1)}
	rt := newTestRaytracer(t, geometry.NewHittableList(), testConfig(), white)

	img, stats, err := rt.Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range img.Pix {
		if p != (RGB8{255, 255, 255}) {
			t.Fatalf("Pixel %d: expected white, got %v", i, p)
		}
	}
	if stats.TotalPixels != 24*16 || stats.TotalSamples != 24*16*4 || stats.AverageSamples != 4 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestRaytracer_TopRowIsSky(t *testing.T) {
	// Top rows look up into the sky, bottom rows down; with a dark top and
	// bright bottom the first row must be darker than the last
	background := integrator.Background{Top: core.NewVec3(0, 0, 0), Bottom: core.NewVec3(1, 1, 1)}
	rt := newTestRaytracer(t, geometry.NewHittableList(), testConfig(), background)

	img, _, err := rt.Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	top, bottom := img.At(12, 0), img.At(12, img.Height-1)
	if top.R >= bottom.R {
		t.Errorf("Expected top row darker than bottom row, got %v and %v", top, bottom)
	}
}

func TestRaytracer_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 3} {
		config := testConfig()
		config.NumWorkers = workers
		r, err := New(testWorld(t), testCamera(t, config.AspectRatio), nil, config)
		if err != nil {
			t.Fatal(err)
		}

		img, _, err := r.Render(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Workers %d: expected context.Canceled, got %v", workers, err)
		}
		if img != nil {
			t.Errorf("Workers %d: expected no image from a cancelled render", workers)
		}
	}
}

func TestNew_SelectsRenderer(t *testing.T) {
	config := testConfig()
	r, err := New(testWorld(t), testCamera(t, config.AspectRatio), nil, config)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(*Raytracer); !ok {
		t.Errorf("Expected sequential raytracer for one worker, got %T", r)
	}

	config.NumWorkers = 4
	r, err = New(testWorld(t), testCamera(t, config.AspectRatio), nil, config)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.(*TileRenderer); !ok {
		t.Errorf("Expected tile renderer for four workers, got %T", r)
	}

	if _, err := New(nil, testCamera(t, config.AspectRatio), nil, config); !errors.Is(err, ErrMissingWorld) {
		t.Errorf("Expected ErrMissingWorld, got %v", err)
	}
	config.SamplesPerPixel = 0
	if _, err := New(testWorld(t), testCamera(t, config.AspectRatio), nil, config); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewRaytracer_NilWorld(t *testing.T) {
	config := testConfig()
	camera := testCamera(t, config.AspectRatio)

	tests := []struct {
		name  string
		world geometry.Hittable
	}{
		{"untyped nil", nil},
		{"nil list", (*geometry.HittableList)(nil)},
		{"nil bvh", (*geometry.BVH)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRaytracer(tt.world, camera, nil, config); !errors.Is(err, ErrMissingWorld) {
				t.Errorf("Expected ErrMissingWorld, got %v", err)
			}
		})
	}
}
