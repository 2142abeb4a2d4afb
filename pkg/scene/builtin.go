package scene

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/material"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

// builder creates a built-in scene. Scenes with random content draw from random.
type builder func(random *rand.Rand) (*Scene, error)

type builtin struct {
	info  SceneInfo
	build builder
}

var builtins = map[string]builtin{}

func register(id, name, description string, build builder) {
	builtins[id] = builtin{
		info: SceneInfo{
			ID:          id,
			Name:        name,
			DisplayName: name,
			Description: description,
			Group:       builtinGroup,
			Type:        "builtin",
		},
		build: build,
	}
}

func init() {
	register("default", "Default Scene", "Metal, glass and diffuse spheres on a ground sphere", NewDefaultScene)
	register("single-sphere", "Single Sphere", "One diffuse sphere above a large ground sphere", NewSingleSphereScene)
	register("glass", "Glass Spheres", "Hollow glass, diffuse and metal spheres side by side", NewGlassScene)
	register("random-spheres", "Random Spheres", "Field of small random spheres around three large ones", NewRandomSpheresScene)
	register("sphere-grid", "Sphere Grid", "10x10 grid of rainbow-colored metallic spheres", NewSphereGridScene)
}

// BuiltinScenes returns the metadata of every built-in scene, sorted by ID
func BuiltinScenes() []SceneInfo {
	infos := make([]SceneInfo, 0, len(builtins))
	for _, b := range builtins {
		infos = append(infos, b.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// NewBuiltin creates the named built-in scene. Random content is drawn from seed.
func NewBuiltin(id string, seed int64) (*Scene, error) {
	b, ok := builtins[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScene, id)
	}
	logger.Debugf("building scene %q (seed %d)", id, seed)
	return b.build(rand.New(rand.NewSource(seed)))
}

type sphereSpec struct {
	center core.Vec3
	radius float64
	mat    material.Material
}

// addSpheres adds every sphere to s, stopping at the first invalid one
func (s *Scene) addSpheres(specs ...sphereSpec) error {
	for _, spec := range specs {
		if err := s.AddSphere(spec.center, spec.radius, spec.mat); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultScene creates a default scene with spheres, ground, and camera
func NewDefaultScene(_ *rand.Rand) (*Scene, error) {
	s := newScene("default", renderer.CameraConfig{
		LookFrom:      core.NewVec3(0, 0.75, 2), // Position camera higher and farther back
		LookAt:        core.NewVec3(0, 0.5, -1), // Look at the sphere center
		Up:            core.NewVec3(0, 1, 0),
		VFov:          40.0, // Narrower field of view for focus effect
		Aperture:      0.05, // Strong depth of field blur
		FocusDistance: 0.0,  // Auto-calculate focus distance
	})

	lambertianGreen := material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0).Multiply(0.6))
	lambertianBlue := material.NewLambertian(core.NewVec3(0.1, 0.2, 0.5))
	lambertianRed := material.NewLambertian(core.NewVec3(0.65, 0.25, 0.2))
	metalSilver := material.NewMetal(core.NewVec3(0.8, 0.8, 0.8), 0.0)
	metalGold := material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.3)
	materialGlass := material.NewDielectric(1.5)

	err := s.addSpheres(
		// Huge sphere as the ground, top at y=0
		sphereSpec{core.NewVec3(0, -1000, -1), 1000, lambertianGreen},
		sphereSpec{core.NewVec3(0, 0.5, -1), 0.5, lambertianRed},
		sphereSpec{core.NewVec3(-1, 0.5, -1), 0.5, metalSilver},
		sphereSpec{core.NewVec3(1, 0.5, -1), 0.5, metalGold},
		sphereSpec{core.NewVec3(0.5, 0.25, -0.5), 0.25, materialGlass},
		// Hollow glass sphere with blue sphere inside
		sphereSpec{core.NewVec3(-0.5, 0.25, -0.5), 0.25, materialGlass},
		sphereSpec{core.NewVec3(-0.5, 0.25, -0.5), -0.24, materialGlass},
		sphereSpec{core.NewVec3(-0.5, 0.25, -0.5), 0.20, lambertianBlue},
	)
	return s, err
}

// NewSingleSphereScene creates the smallest useful scene: one sphere on a ground sphere
func NewSingleSphereScene(_ *rand.Rand) (*Scene, error) {
	s := newScene("single-sphere", renderer.CameraConfig{
		LookFrom: core.NewVec3(0, 0, 0),
		LookAt:   core.NewVec3(0, 0, -1),
		Up:       core.NewVec3(0, 1, 0),
		VFov:     90.0,
	})

	err := s.addSpheres(
		sphereSpec{core.NewVec3(0, 0, -1), 0.5, material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))},
		sphereSpec{core.NewVec3(0, -100.5, -1), 100, material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))},
	)
	return s, err
}

// NewGlassScene creates three spheres in a row: hollow glass, diffuse and fuzzy metal
func NewGlassScene(_ *rand.Rand) (*Scene, error) {
	s := newScene("glass", renderer.CameraConfig{
		LookFrom:      core.NewVec3(-2, 2, 1),
		LookAt:        core.NewVec3(0, 0, -1),
		Up:            core.NewVec3(0, 1, 0),
		VFov:          20.0,
		Aperture:      0.1,
		FocusDistance: 0.0,
	})

	glass := material.NewDielectric(1.5)
	err := s.addSpheres(
		sphereSpec{core.NewVec3(0, -100.5, -1), 100, material.NewLambertian(core.NewVec3(0.8, 0.8, 0.0))},
		sphereSpec{core.NewVec3(0, 0, -1), 0.5, material.NewLambertian(core.NewVec3(0.1, 0.2, 0.5))},
		sphereSpec{core.NewVec3(-1, 0, -1), 0.5, glass},
		sphereSpec{core.NewVec3(-1, 0, -1), -0.45, glass},
		sphereSpec{core.NewVec3(1, 0, -1), 0.5, material.NewMetal(core.NewVec3(0.8, 0.6, 0.2), 0.0)},
	)
	return s, err
}

// NewRandomSpheresScene creates a field of small random spheres around three large ones
func NewRandomSpheresScene(random *rand.Rand) (*Scene, error) {
	s := newScene("random-spheres", renderer.CameraConfig{
		LookFrom:      core.NewVec3(13, 2, 3),
		LookAt:        core.NewVec3(0, 0, 0),
		Up:            core.NewVec3(0, 1, 0),
		VFov:          20.0,
		Aperture:      0.1,
		FocusDistance: 10.0,
	})
	s.RenderConfig.SamplesPerPixel = 50

	if err := s.AddSphere(core.NewVec3(0, -1000, 0), 1000, material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))); err != nil {
		return nil, err
	}

	landmark := core.NewVec3(4, 0.2, 0)
	for a := -11; a < 11; a++ {
		for b := -11; b < 11; b++ {
			chooseMat := random.Float64()
			center := core.NewVec3(float64(a)+0.9*random.Float64(), 0.2, float64(b)+0.9*random.Float64())
			if center.Subtract(landmark).Length() <= 0.9 {
				continue
			}

			var mat material.Material
			switch {
			case chooseMat < 0.8:
				albedo := randomColor(random).MultiplyVec(randomColor(random))
				mat = material.NewLambertian(albedo)
			case chooseMat < 0.95:
				albedo := randomColor(random).Multiply(0.5).Add(core.NewVec3(0.5, 0.5, 0.5))
				mat = material.NewMetal(albedo, 0.5*random.Float64())
			default:
				mat = material.NewDielectric(1.5)
			}

			if err := s.AddSphere(center, 0.2, mat); err != nil {
				return nil, err
			}
		}
	}

	err := s.addSpheres(
		sphereSpec{core.NewVec3(0, 1, 0), 1.0, material.NewDielectric(1.5)},
		sphereSpec{core.NewVec3(-4, 1, 0), 1.0, material.NewLambertian(core.NewVec3(0.4, 0.2, 0.1))},
		sphereSpec{core.NewVec3(4, 1, 0), 1.0, material.NewMetal(core.NewVec3(0.7, 0.6, 0.5), 0.0)},
	)
	return s, err
}

func randomColor(random *rand.Rand) core.Vec3 {
	return core.NewVec3(random.Float64(), random.Float64(), random.Float64())
}
