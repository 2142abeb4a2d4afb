package material

import (
	"errors"
	"fmt"

	"github.com/df07/go-pathtracer/pkg/core"
)

var (
	ErrMissingMaterial = errors.New("material: missing material")
	ErrInvalidMaterial = errors.New("material: invalid parameters")
)

// Material is the closed set of surface behaviors: *Lambertian, *Metal and *Dielectric.
// The unexported marker keeps other packages from adding variants.
type Material interface {
	// Scatter returns the attenuation and scattered ray for an incoming ray,
	// or false if the ray is absorbed
	Scatter(rayIn core.Ray, hit HitRecord, sampler core.Sampler) (ScatterResult, bool)

	isMaterial()
}

// ScatterResult contains the result of material scattering
type ScatterResult struct {
	Scattered   core.Ray  // The scattered ray
	Attenuation core.Vec3 // Color attenuation
}

// HitRecord contains information about a ray-object intersection
type HitRecord struct {
	Point     core.Vec3 // Point of intersection
	Normal    core.Vec3 // Unit surface normal, always facing against the incoming ray
	T         float64   // Parameter t along the ray
	FrontFace bool      // Whether ray hit the outward-facing side
	Material  Material  // Material of the hit object
}

// SetFaceNormal sets the normal vector and determines front/back face
func (h *HitRecord) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Negate()
	}
}

// Validate checks that m is a usable material. Primitives call it at
// construction so a nil or malformed material never reaches the renderer.
func Validate(m Material) error {
	switch mat := m.(type) {
	case nil:
		return ErrMissingMaterial
	case *Lambertian:
		if mat == nil {
			return ErrMissingMaterial
		}
	case *Metal:
		if mat == nil {
			return ErrMissingMaterial
		}
		if mat.Fuzz < 0 || mat.Fuzz > 1 {
			return fmt.Errorf("%w: metal fuzz %g outside [0, 1]", ErrInvalidMaterial, mat.Fuzz)
		}
	case *Dielectric:
		if mat == nil {
			return ErrMissingMaterial
		}
		if mat.RefractiveIndex <= 0 {
			return fmt.Errorf("%w: refractive index %g must be positive", ErrInvalidMaterial, mat.RefractiveIndex)
		}
	}
	return nil
}
