package material

import (
	"math/rand"
	"testing"

	"github.com/df07/go-pathtracer/pkg/core"
)

func TestNewMetal_FuzzClamp(t *testing.T) {
	tests := []struct {
		name         string
		inputFuzz    float64
		expectedFuzz float64
	}{
		{"Valid fuzz 0.0", 0.0, 0.0},
		{"Valid fuzz 0.5", 0.5, 0.5},
		{"Valid fuzz 1.0", 1.0, 1.0},
		{"Clamp above 1.0", 1.5, 1.0},
		{"Clamp below 0.0", -0.5, 0.0},
	}

	albedo := core.NewVec3(0.8, 0.8, 0.8)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metal := NewMetal(albedo, tt.inputFuzz)
			if metal.Fuzz != tt.expectedFuzz {
				t.Errorf("Expected fuzz %f, got %f", tt.expectedFuzz, metal.Fuzz)
			}
		})
	}
}

func TestMetal_PerfectReflection(t *testing.T) {
	albedo := core.NewVec3(0.9, 0.9, 0.9)
	metal := NewMetal(albedo, 0.0)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	// Ray hitting surface at 45 degrees
	rayIn := core.NewRay(core.NewVec3(0, 1, 1), core.NewVec3(0, -1, -1))
	hit := HitRecord{
		Point:  core.NewVec3(0, 0, 0),
		Normal: core.NewVec3(0, 0, 1),
	}

	scatter, didScatter := metal.Scatter(rayIn, hit, sampler)
	if !didScatter {
		t.Fatal("Metal should scatter")
	}

	expected := core.NewVec3(0, -1, 1).Normalize()
	actual := scatter.Scattered.Direction.Normalize()
	if !actual.ApproxEquals(expected, 1e-10) {
		t.Errorf("Perfect reflection failed: expected %v, got %v", expected, actual)
	}

	if !scatter.Attenuation.Equals(albedo) {
		t.Errorf("Attenuation should equal albedo: expected %v, got %v", albedo, scatter.Attenuation)
	}
}

func TestMetal_FuzzyReflectionVaries(t *testing.T) {
	metal := NewMetal(core.NewVec3(0.8, 0.8, 0.8), 0.5)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	rayIn := core.NewRay(core.NewVec3(0, 0, 1), core.NewVec3(0, 0, -1))
	hit := HitRecord{
		Point:  core.NewVec3(0, 0, 0),
		Normal: core.NewVec3(0, 0, 1),
	}

	var first core.Vec3
	varied := false
	for i := 0; i < 10; i++ {
		scatter, didScatter := metal.Scatter(rayIn, hit, sampler)
		if !didScatter {
			// Fuzz 0.5 around a head-on reflection always stays above the surface
			t.Fatalf("Metal should scatter on iteration %d", i)
		}
		dir := scatter.Scattered.Direction.Normalize()
		if i == 0 {
			first = dir
		} else if !dir.ApproxEquals(first, 1e-10) {
			varied = true
		}
	}

	if !varied {
		t.Error("Fuzzy reflection should produce varied directions")
	}
}

func TestMetal_AbsorbsWhenFuzzDipsBelowSurface(t *testing.T) {
	metal := NewMetal(core.NewVec3(0.8, 0.8, 0.8), 1.0)

	// Get3D of (1, 0, 0) maps to the point (0, 0, -1) in the unit sphere
	sampler := fixedSampler{v3: core.NewVec3(1, 0, 0)}

	// Grazing ray: the mirror direction is barely above the surface
	rayIn := core.NewRay(core.NewVec3(-1, 0, 0.01), core.NewVec3(1, 0, -0.01))
	hit := HitRecord{
		Point:     core.NewVec3(0, 0, 0),
		Normal:    core.NewVec3(0, 0, 1),
		FrontFace: true,
	}

	scatter, didScatter := metal.Scatter(rayIn, hit, sampler)
	if didScatter {
		t.Errorf("Expected absorption, got scattered direction %v", scatter.Scattered.Direction)
	}
	if scatter.Scattered.Direction.Dot(hit.Normal) > 0 {
		t.Errorf("Absorbed direction should be at or below the surface, got %v", scatter.Scattered.Direction)
	}
}

func TestMetal_AbsorbedAnyTimeDirectionDipsBelow(t *testing.T) {
	metal := NewMetal(core.NewVec3(0.8, 0.8, 0.8), 1.0)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(3)))

	rayIn := core.NewRay(core.NewVec3(-1, 0, 0.2), core.NewVec3(1, 0, -0.2))
	hit := HitRecord{
		Point:  core.NewVec3(0, 0, 0),
		Normal: core.NewVec3(0, 0, 1),
	}

	absorbed := 0
	for i := 0; i < 1000; i++ {
		scatter, didScatter := metal.Scatter(rayIn, hit, sampler)
		below := scatter.Scattered.Direction.Dot(hit.Normal) <= 0
		if below == didScatter {
			t.Fatalf("Scatter flag %t inconsistent with direction %v", didScatter, scatter.Scattered.Direction)
		}
		if below {
			absorbed++
		}
	}

	if absorbed == 0 {
		t.Error("Expected some grazing rays with full fuzz to be absorbed")
	}
}
