package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
	"github.com/df07/go-pathtracer/pkg/integrator"
	"github.com/df07/go-pathtracer/pkg/material"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

// Color is an RGB triple in JSON scene files. It decodes from either
// [r, g, b] with components in [0, 1] or an SVG color name such as "gold".
type Color core.Vec3

// UnmarshalJSON implements json.Unmarshaler
func (c *Color) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		rgba, ok := colornames.Map[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("%w: unknown color name %q", ErrInvalidScene, name)
		}
		*c = Color{X: float64(rgba.R) / 255, Y: float64(rgba.G) / 255, Z: float64(rgba.B) / 255}
		return nil
	}

	var rgb []float64
	if err := json.Unmarshal(data, &rgb); err != nil || len(rgb) != 3 {
		return fmt.Errorf("%w: color must be [r, g, b] or a color name: %s", ErrInvalidScene, data)
	}
	*c = Color{X: rgb[0], Y: rgb[1], Z: rgb[2]}
	return nil
}

// MarshalJSON implements json.Marshaler
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{c.X, c.Y, c.Z})
}

// Point is an [x, y, z] position or direction in JSON scene files
type Point [3]float64

func (p Point) vec() core.Vec3 {
	return core.NewVec3(p[0], p[1], p[2])
}

func pointOf(v core.Vec3) Point {
	return Point{v.X, v.Y, v.Z}
}

// Document is the on-disk JSON form of a scene
type Document struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Group       string                  `json:"group,omitempty"`
	Camera      CameraDocument          `json:"camera"`
	Render      *RenderDocument         `json:"render,omitempty"`
	Background  *BackgroundDocument     `json:"background,omitempty"`
	Materials   map[string]MaterialSpec `json:"materials"`
	Spheres     []SphereSpec            `json:"spheres"`
}

// CameraDocument describes the camera placement
type CameraDocument struct {
	LookFrom      Point   `json:"lookFrom"`
	LookAt        Point   `json:"lookAt"`
	Up            *Point  `json:"up,omitempty"` // defaults to +Y
	VFov          float64 `json:"vfov"`
	Aperture      float64 `json:"aperture,omitempty"`
	FocusDistance float64 `json:"focusDistance,omitempty"`
}

// RenderDocument overrides the default render settings; zero fields keep the default
type RenderDocument struct {
	Width           int     `json:"width,omitempty"`
	AspectRatio     float64 `json:"aspectRatio,omitempty"`
	SamplesPerPixel int     `json:"samplesPerPixel,omitempty"`
	MaxDepth        int     `json:"maxDepth,omitempty"`
}

// BackgroundDocument describes the sky gradient
type BackgroundDocument struct {
	Top    Color `json:"top"`
	Bottom Color `json:"bottom"`
}

// MaterialSpec is a named material: "lambertian", "metal" or "dielectric"
type MaterialSpec struct {
	Type            string  `json:"type"`
	Albedo          *Color  `json:"albedo,omitempty"`
	Fuzz            float64 `json:"fuzz,omitempty"`
	RefractiveIndex float64 `json:"refractiveIndex,omitempty"`
}

// SphereSpec places a sphere using a material name
type SphereSpec struct {
	Center   Point   `json:"center"`
	Radius   float64 `json:"radius"`
	Material string  `json:"material"`
}

// build turns a material spec into a material
func (m MaterialSpec) build(name string) (material.Material, error) {
	albedo := func() (core.Vec3, error) {
		if m.Albedo == nil {
			return core.Vec3{}, fmt.Errorf("%w: material %q needs an albedo", ErrInvalidScene, name)
		}
		return core.Vec3(*m.Albedo), nil
	}

	var mat material.Material
	switch strings.ToLower(m.Type) {
	case "lambertian":
		a, err := albedo()
		if err != nil {
			return nil, err
		}
		mat = material.NewLambertian(a)
	case "metal":
		a, err := albedo()
		if err != nil {
			return nil, err
		}
		mat = material.NewMetal(a, m.Fuzz)
	case "dielectric":
		mat = material.NewDielectric(m.RefractiveIndex)
	default:
		return nil, fmt.Errorf("%w: material %q has unknown type %q", ErrInvalidScene, name, m.Type)
	}

	if err := material.Validate(mat); err != nil {
		return nil, fmt.Errorf("%w: material %q: %w", ErrInvalidScene, name, err)
	}
	return mat, nil
}

// Decode reads a JSON scene document
func Decode(r io.Reader) (*Scene, error) {
	var doc Document
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	return doc.Scene()
}

// LoadFile reads a JSON scene file
func LoadFile(path string) (*Scene, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	s, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debugf("loaded scene %q from %s: %d spheres", s.Name, path, s.World.Len())
	return s, nil
}

// Scene builds the scene described by the document
func (doc Document) Scene() (*Scene, error) {
	up := Point{0, 1, 0}
	if doc.Camera.Up != nil {
		up = *doc.Camera.Up
	}

	s := newScene(doc.Name, renderer.CameraConfig{
		LookFrom:      doc.Camera.LookFrom.vec(),
		LookAt:        doc.Camera.LookAt.vec(),
		Up:            up.vec(),
		VFov:          doc.Camera.VFov,
		Aperture:      doc.Camera.Aperture,
		FocusDistance: doc.Camera.FocusDistance,
	})

	if r := doc.Render; r != nil {
		if r.Width > 0 {
			s.RenderConfig.Width = r.Width
		}
		if r.AspectRatio > 0 {
			s.RenderConfig.AspectRatio = r.AspectRatio
			s.CameraConfig.AspectRatio = r.AspectRatio
		}
		if r.SamplesPerPixel > 0 {
			s.RenderConfig.SamplesPerPixel = r.SamplesPerPixel
		}
		if r.MaxDepth > 0 {
			s.RenderConfig.MaxDepth = r.MaxDepth
		}
	}
	if doc.Background != nil {
		s.Background = integrator.Background{
			Top:    core.Vec3(doc.Background.Top),
			Bottom: core.Vec3(doc.Background.Bottom),
		}
	}

	if err := s.CameraConfig.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}

	// Materials are shared by every sphere that names them
	materials := make(map[string]material.Material, len(doc.Materials))
	for name, spec := range doc.Materials {
		mat, err := spec.build(name)
		if err != nil {
			return nil, err
		}
		materials[name] = mat
	}

	for i, sphere := range doc.Spheres {
		mat, ok := materials[sphere.Material]
		if !ok {
			return nil, fmt.Errorf("%w: sphere %d uses undefined material %q: %w",
				ErrInvalidScene, i, sphere.Material, material.ErrMissingMaterial)
		}
		if err := s.AddSphere(sphere.Center.vec(), sphere.Radius, mat); err != nil {
			return nil, fmt.Errorf("sphere %d: %w", i, err)
		}
	}

	return s, nil
}

// Encode writes s as an indented JSON scene document. Materials are named
// m0, m1, ... in order of first use.
func Encode(w io.Writer, s *Scene) error {
	up := pointOf(s.CameraConfig.Up)
	doc := Document{
		Name: s.Name,
		Camera: CameraDocument{
			LookFrom:      pointOf(s.CameraConfig.LookFrom),
			LookAt:        pointOf(s.CameraConfig.LookAt),
			Up:            &up,
			VFov:          s.CameraConfig.VFov,
			Aperture:      s.CameraConfig.Aperture,
			FocusDistance: s.CameraConfig.FocusDistance,
		},
		Render: &RenderDocument{
			Width:           s.RenderConfig.Width,
			AspectRatio:     s.RenderConfig.AspectRatio,
			SamplesPerPixel: s.RenderConfig.SamplesPerPixel,
			MaxDepth:        s.RenderConfig.MaxDepth,
		},
		Background: &BackgroundDocument{
			Top:    Color(s.Background.Top),
			Bottom: Color(s.Background.Bottom),
		},
		Materials: make(map[string]MaterialSpec),
	}

	names := make(map[material.Material]string)
	for _, object := range s.World.Objects() {
		sphere, ok := object.(*geometry.Sphere)
		if !ok {
			return fmt.Errorf("%w: cannot encode %T", ErrInvalidScene, object)
		}

		name, seen := names[sphere.Material]
		if !seen {
			name = fmt.Sprintf("m%d", len(names))
			names[sphere.Material] = name
			doc.Materials[name] = specOf(sphere.Material)
		}
		doc.Spheres = append(doc.Spheres, SphereSpec{
			Center:   pointOf(sphere.Center),
			Radius:   sphere.Radius,
			Material: name,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func specOf(mat material.Material) MaterialSpec {
	switch m := mat.(type) {
	case *material.Lambertian:
		albedo := Color(m.Albedo)
		return MaterialSpec{Type: "lambertian", Albedo: &albedo}
	case *material.Metal:
		albedo := Color(m.Albedo)
		return MaterialSpec{Type: "metal", Albedo: &albedo, Fuzz: m.Fuzz}
	case *material.Dielectric:
		return MaterialSpec{Type: "dielectric", RefractiveIndex: m.RefractiveIndex}
	}
	return MaterialSpec{}
}
