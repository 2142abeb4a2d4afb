package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/material"
)

var testMaterial = material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))

func mustSphere(t *testing.T, center core.Vec3, radius float64) *Sphere {
	t.Helper()
	sphere, err := NewSphere(center, radius, testMaterial)
	if err != nil {
		t.Fatalf("NewSphere: %v", err)
	}
	return sphere
}

func TestNewSphere_Validation(t *testing.T) {
	tests := []struct {
		name    string
		radius  float64
		mat     material.Material
		wantErr error
	}{
		{"valid", 1.0, testMaterial, nil},
		{"negative radius is a hollow shell", -0.5, testMaterial, nil},
		{"zero radius", 0, testMaterial, ErrInvalidRadius},
		{"missing material", 1.0, nil, material.ErrMissingMaterial},
		{"invalid material", 1.0, material.NewDielectric(0), material.ErrInvalidMaterial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sphere, err := NewSphere(core.NewVec3(0, 0, 0), tt.radius, tt.mat)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if sphere.Material == nil {
					t.Error("Sphere should own its material")
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if sphere != nil {
				t.Error("Expected nil sphere on error")
			}
		})
	}
}

func TestSphere_Hit_Reference(t *testing.T) {
	sphere := mustSphere(t, core.NewVec3(0, 0, -1), 0.5)
	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, -1))

	hit, isHit := sphere.Hit(ray, 0, math.Inf(1))
	if !isHit {
		t.Fatal("Expected hit, but got miss")
	}
	if hit.T != 0.5 {
		t.Errorf("Expected t=0.5, got t=%f", hit.T)
	}
	if !hit.Normal.Equals(core.NewVec3(0, 0, 1)) {
		t.Errorf("Expected normal (0,0,1), got %v", hit.Normal)
	}
	if !hit.FrontFace {
		t.Error("Expected front face hit")
	}
	if hit.Material != testMaterial {
		t.Error("Hit record should reference the sphere's material")
	}
}

func TestSphere_Hit_Miss(t *testing.T) {
	sphere := mustSphere(t, core.NewVec3(0, 0, 0), 1.0)
	ray := core.NewRay(core.NewVec3(2, 0, 0), core.NewVec3(0, 1, 0))

	hit, isHit := sphere.Hit(ray, 0.001, 1000.0)
	if isHit {
		t.Errorf("Expected miss, but got hit at t=%f", hit.T)
	}
}

func TestSphere_Hit_FrontAndBackFace(t *testing.T) {
	sphere := mustSphere(t, core.NewVec3(0, 0, 0), 1.0)

	tests := []struct {
		name           string
		rayOrigin      core.Vec3
		rayDirection   core.Vec3
		expectedT      float64
		expectedFront  bool
		expectedNormal core.Vec3
	}{
		{
			name:           "front face hit",
			rayOrigin:      core.NewVec3(0, 0, 2),
			rayDirection:   core.NewVec3(0, 0, -1),
			expectedT:      1.0,
			expectedFront:  true,
			expectedNormal: core.NewVec3(0, 0, 1),
		},
		{
			name:           "back face hit",
			rayOrigin:      core.NewVec3(0, 0, 0),
			rayDirection:   core.NewVec3(0, 0, 1),
			expectedT:      1.0,
			expectedFront:  false,
			expectedNormal: core.NewVec3(0, 0, -1),
		},
		{
			name:           "unnormalized direction",
			rayOrigin:      core.NewVec3(0, 0, 5),
			rayDirection:   core.NewVec3(0, 0, -2),
			expectedT:      2.0,
			expectedFront:  true,
			expectedNormal: core.NewVec3(0, 0, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewRay(tt.rayOrigin, tt.rayDirection)
			hit, isHit := sphere.Hit(ray, 0.001, 1000.0)
			if !isHit {
				t.Fatal("Expected hit, but got miss")
			}
			if math.Abs(hit.T-tt.expectedT) > 1e-9 {
				t.Errorf("Expected t=%f, got t=%f", tt.expectedT, hit.T)
			}
			if hit.FrontFace != tt.expectedFront {
				t.Errorf("Expected front face %t, got %t", tt.expectedFront, hit.FrontFace)
			}
			if !hit.Normal.ApproxEquals(tt.expectedNormal, 1e-9) {
				t.Errorf("Expected normal %v, got %v", tt.expectedNormal, hit.Normal)
			}
			if hit.Normal.Dot(tt.rayDirection) > 0 {
				t.Error("Normal should face against the incoming ray")
			}
		})
	}
}

func TestSphere_Hit_NormalIsUnitLength(t *testing.T) {
	sphere := mustSphere(t, core.NewVec3(1, 2, -3), 2.5)
	origin := core.NewVec3(0, 0, 5)

	for _, target := range []core.Vec3{
		core.NewVec3(1, 2, -3),
		core.NewVec3(2, 3, -2),
		core.NewVec3(0, 1, -4),
	} {
		hit, isHit := sphere.Hit(core.NewRay(origin, target.Subtract(origin)), 0.001, math.Inf(1))
		if !isHit {
			t.Fatalf("Expected hit toward %v", target)
		}
		if math.Abs(hit.Normal.Length()-1) > 1e-12 {
			t.Errorf("Normal %v is not unit length", hit.Normal)
		}
	}
}

func TestSphere_Hit_Bounds(t *testing.T) {
	sphere := mustSphere(t, core.NewVec3(0, 0, 0), 1.0)
	ray := core.NewRay(core.NewVec3(0, 0, 2), core.NewVec3(0, 0, -1))

	hit, isHit := sphere.Hit(ray, 0.001, 0.5)
	if isHit {
		t.Errorf("Expected miss due to tMax bound, but got hit at t=%f", hit.T)
	}

	hit, isHit = sphere.Hit(ray, 3.5, 1000.0)
	if isHit {
		t.Errorf("Expected miss due to tMin bound, but got hit at t=%f", hit.T)
	}

	// Near root is excluded by tMin, so the far root is used
	hit, isHit = sphere.Hit(ray, 1.5, 1000.0)
	if !isHit || hit.T != 3.0 {
		t.Fatalf("Expected far root at t=3, got hit=%t", isHit)
	}
	if hit.FrontFace {
		t.Error("Far root of a solid sphere is a back face")
	}

	// Bounds are inclusive
	hit, isHit = sphere.Hit(ray, 0.001, 1.0)
	if !isHit || hit.T != 1.0 {
		t.Errorf("Expected inclusive tMax hit at t=1")
	}
}

func TestSphere_NegativeRadiusFlipsNormal(t *testing.T) {
	shell, err := NewSphere(core.NewVec3(0, 0, 0), -1.0, testMaterial)
	if err != nil {
		t.Fatal(err)
	}
	ray := core.NewRay(core.NewVec3(0, 0, 2), core.NewVec3(0, 0, -1))

	hit, isHit := shell.Hit(ray, 0.001, 1000)
	if !isHit {
		t.Fatal("Expected hit")
	}
	if hit.FrontFace {
		t.Error("Inward-facing shell should report a back face from outside")
	}
	if !hit.Normal.ApproxEquals(core.NewVec3(0, 0, 1), 1e-12) {
		t.Errorf("Stored normal should still face the ray, got %v", hit.Normal)
	}

	box := shell.BoundingBox()
	if !box.Min.Equals(core.NewVec3(-1, -1, -1)) || !box.Max.Equals(core.NewVec3(1, 1, 1)) {
		t.Errorf("Unexpected bounding box %v", box)
	}
}
