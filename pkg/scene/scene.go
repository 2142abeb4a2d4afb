package scene

import (
	"errors"
	"fmt"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
	"github.com/df07/go-pathtracer/pkg/integrator"
	"github.com/df07/go-pathtracer/pkg/log"
	"github.com/df07/go-pathtracer/pkg/material"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

var logger = log.New("scene")

var (
	ErrUnknownScene = errors.New("scene: unknown scene")
	ErrInvalidScene = errors.New("scene: invalid scene description")
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Name         string
	World        *geometry.HittableList // Objects in the scene
	CameraConfig renderer.CameraConfig
	RenderConfig renderer.Config // Suggested render settings
	Background   integrator.Background
}

// newScene creates an empty scene with default sky and render settings
func newScene(name string, camera renderer.CameraConfig) *Scene {
	config := renderer.DefaultConfig()
	camera.AspectRatio = config.AspectRatio
	return &Scene{
		Name:         name,
		World:        geometry.NewHittableList(),
		CameraConfig: camera,
		RenderConfig: config,
		Background:   integrator.DefaultBackground(),
	}
}

// AddSphere validates and adds a sphere to the world
func (s *Scene) AddSphere(center core.Vec3, radius float64, mat material.Material) error {
	sphere, err := geometry.NewSphere(center, radius, mat)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	s.World.Add(sphere)
	return nil
}

// Hittable returns the aggregate to render: the plain list, or a BVH built over it
func (s *Scene) Hittable(useBVH bool) geometry.Hittable {
	if !useBVH {
		return s.World
	}
	bvh := geometry.NewBVH(s.World.Objects())
	stats := bvh.Stats()
	logger.Debugf("built BVH for %q: %d nodes, %d leaves, max depth %d",
		s.Name, stats.TotalNodes, stats.LeafNodes, stats.MaxDepth)
	return bvh
}

// NewRenderer builds the camera and renderer for config. The camera aspect
// ratio follows the render configuration so pixels stay square.
func (s *Scene) NewRenderer(config renderer.Config, useBVH bool) (renderer.Renderer, error) {
	camera, err := s.newCamera(config)
	if err != nil {
		return nil, err
	}
	return renderer.New(s.Hittable(useBVH), camera, integrator.NewPathTracingIntegrator(s.Background), config)
}

// NewProgressiveRenderer builds a renderer that delivers the image in passes of rising quality
func (s *Scene) NewProgressiveRenderer(config renderer.Config, progressive renderer.ProgressiveConfig, useBVH bool) (*renderer.ProgressiveRaytracer, error) {
	camera, err := s.newCamera(config)
	if err != nil {
		return nil, err
	}
	rt, err := renderer.NewRaytracer(s.Hittable(useBVH), camera, integrator.NewPathTracingIntegrator(s.Background), config)
	if err != nil {
		return nil, err
	}
	return renderer.NewProgressiveRaytracer(rt, progressive)
}

func (s *Scene) newCamera(config renderer.Config) (*renderer.Camera, error) {
	cameraConfig := s.CameraConfig
	cameraConfig.AspectRatio = config.AspectRatio

	camera, err := renderer.NewCamera(cameraConfig)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", s.Name, err)
	}
	return camera, nil
}
