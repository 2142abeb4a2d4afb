package geometry

import (
	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/material"
)

// HittableList is the scene aggregate: an ordered collection searched linearly
// for the closest hit. Build it once, then treat it as read-only while rendering.
type HittableList struct {
	objects []Hittable
}

// NewHittableList creates a list holding the given objects
func NewHittableList(objects ...Hittable) *HittableList {
	list := &HittableList{}
	for _, object := range objects {
		list.Add(object)
	}
	return list
}

// Add appends an object to the list
func (l *HittableList) Add(object Hittable) {
	l.objects = append(l.objects, object)
}

// Len returns the number of objects
func (l *HittableList) Len() int {
	return len(l.objects)
}

// Objects returns the list members in insertion order
func (l *HittableList) Objects() []Hittable {
	return l.objects
}

// Hit returns the closest hit among all members. Shrinking tMax to the best t
// found so far discards farther hits without a second pass.
func (l *HittableList) Hit(ray core.Ray, tMin, tMax float64) (*material.HitRecord, bool) {
	var closestHit *material.HitRecord
	closestSoFar := tMax

	for _, object := range l.objects {
		if hit, isHit := object.Hit(ray, tMin, closestSoFar); isHit {
			closestSoFar = hit.T
			closestHit = hit
		}
	}

	return closestHit, closestHit != nil
}

// BoundingBox returns the union of all member bounding boxes
func (l *HittableList) BoundingBox() core.AABB {
	if len(l.objects) == 0 {
		return core.AABB{}
	}
	box := l.objects[0].BoundingBox()
	for _, object := range l.objects[1:] {
		box = box.Union(object.BoundingBox())
	}
	return box
}
