package geometry

import (
	"errors"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/material"
)

var ErrInvalidRadius = errors.New("geometry: sphere radius must be non-zero")

// Hittable is anything a ray can intersect: primitives and aggregates.
// A hit is accepted when its t lies in the closed interval [tMin, tMax].
type Hittable interface {
	Hit(ray core.Ray, tMin, tMax float64) (*material.HitRecord, bool)
	BoundingBox() core.AABB
}
