package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
	"github.com/df07/go-pathtracer/pkg/integrator"
	"github.com/df07/go-pathtracer/pkg/material"
	"github.com/df07/go-pathtracer/pkg/renderer"
	"github.com/df07/go-pathtracer/pkg/scene"
)

// InspectResponse represents the JSON response for object inspection
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	MaterialType string                 `json:"materialType,omitempty"`
	GeometryType string                 `json:"geometryType,omitempty"`
	Point        [3]float64             `json:"point"`
	Normal       [3]float64             `json:"normal"`
	Distance     float64                `json:"distance"`
	FrontFace    bool                   `json:"frontFace"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

// InspectResult is the closest object under a pixel
type InspectResult struct {
	Hit       bool
	HitRecord *material.HitRecord
	Object    geometry.Hittable
}

// extractMaterialInfo extracts detailed material information with type assertions
func extractMaterialInfo(mat material.Material) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch m := mat.(type) {
	case *material.Lambertian:
		properties["albedo"] = [3]float64{m.Albedo.X, m.Albedo.Y, m.Albedo.Z}
		properties["color"] = hexColor(m.Albedo)
		return "lambertian", properties

	case *material.Metal:
		properties["albedo"] = [3]float64{m.Albedo.X, m.Albedo.Y, m.Albedo.Z}
		properties["color"] = hexColor(m.Albedo)
		properties["fuzz"] = m.Fuzz
		return "metal", properties

	case *material.Dielectric:
		properties["refractiveIndex"] = m.RefractiveIndex
		properties["color"] = "#ffffff" // Clear glass
		return "dielectric", properties
	}

	return "unknown", properties
}

// extractGeometryInfo extracts geometry information with type assertions
func extractGeometryInfo(object geometry.Hittable) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch g := object.(type) {
	case *geometry.Sphere:
		properties["center"] = [3]float64{g.Center.X, g.Center.Y, g.Center.Z}
		properties["radius"] = g.Radius
		properties["hollow"] = g.Radius < 0
		return "sphere", properties
	}

	return "unknown", properties
}

func hexColor(c core.Vec3) string {
	c = c.Clamp(0, 1)
	return fmt.Sprintf("#%02x%02x%02x", int(c.X*255), int(c.Y*255), int(c.Z*255))
}

// inspectPixel casts a pinhole ray through the center of pixel (x, y), with
// row 0 at the top, and returns the closest object it hits
func inspectPixel(sceneObj *scene.Scene, width, height, x, y int) (InspectResult, error) {
	cameraConfig := sceneObj.CameraConfig
	cameraConfig.AspectRatio = float64(width) / float64(height)
	cameraConfig.Aperture = 0

	camera, err := renderer.NewCamera(cameraConfig)
	if err != nil {
		return InspectResult{}, err
	}

	s := (float64(x) + 0.5) / float64(width)
	t := (float64(height-1-y) + 0.5) / float64(height)
	ray := camera.GetRay(s, t, nil)

	result := InspectResult{}
	closestSoFar := math.Inf(1)
	for _, object := range sceneObj.World.Objects() {
		if hit, isHit := object.Hit(ray, integrator.ShadowAcneEpsilon, closestSoFar); isHit {
			closestSoFar = hit.T
			result = InspectResult{Hit: true, HitRecord: hit, Object: object}
		}
	}

	return result, nil
}

// handleInspect reports the material and geometry visible at a pixel
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sceneName := query.Get("scene")
	if sceneName == "" {
		sceneName = "default"
	}
	width, err := parseIntParam(query, "width", 400, 8, 2000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	height, err := parseIntParam(query, "height", 225, 8, 2000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pixelX, err := strconv.Atoi(query.Get("x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid x coordinate")
		return
	}
	pixelY, err := strconv.Atoi(query.Get("y"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid y coordinate")
		return
	}
	if pixelX < 0 || pixelX >= width || pixelY < 0 || pixelY >= height {
		writeError(w, http.StatusBadRequest, "Pixel coordinates out of bounds")
		return
	}

	sceneObj, err := s.openScene(sceneName, 42)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown scene: "+sceneKey(sceneName))
		return
	}

	result, err := inspectPixel(sceneObj, width, height, pixelX, pixelY)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !result.Hit {
		writeJSON(w, http.StatusOK, InspectResponse{Hit: false})
		return
	}

	materialType, materialProps := extractMaterialInfo(result.HitRecord.Material)
	geometryType, geometryProps := extractGeometryInfo(result.Object)

	hit := result.HitRecord
	writeJSON(w, http.StatusOK, InspectResponse{
		Hit:          true,
		MaterialType: materialType,
		GeometryType: geometryType,
		Point:        [3]float64{hit.Point.X, hit.Point.Y, hit.Point.Z},
		Normal:       [3]float64{hit.Normal.X, hit.Normal.Y, hit.Normal.Z},
		Distance:     hit.T,
		FrontFace:    hit.FrontFace,
		Properties: map[string]interface{}{
			"material": materialProps,
			"geometry": geometryProps,
		},
	})
}
