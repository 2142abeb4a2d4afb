package geometry

import (
	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/material"
)

// BVHNode represents a node in the Bounding Volume Hierarchy
type BVHNode struct {
	BoundingBox core.AABB
	Left        *BVHNode
	Right       *BVHNode
	Objects     []Hittable // Objects for leaf nodes (nil for internal nodes)
}

// BVH is an optional drop-in replacement for HittableList that skips objects
// whose bounding boxes the ray misses. It returns the same closest hit.
type BVH struct {
	Root *BVHNode
}

// BVHStats describes the shape of a built hierarchy
type BVHStats struct {
	TotalNodes   int
	LeafNodes    int
	MaxDepth     int
	AvgDepth     float64
	TotalObjects int
}

// Leaf threshold: if we have this many or fewer objects, store them in a leaf node
const leafThreshold = 8

// NewBVH constructs a BVH from a slice of hittables
func NewBVH(objects []Hittable) *BVH {
	if len(objects) == 0 {
		return &BVH{}
	}

	// Partitioning reorders, so work on a copy
	objectsCopy := make([]Hittable, len(objects))
	copy(objectsCopy, objects)

	return &BVH{Root: buildBVH(objectsCopy)}
}

// buildBVH recursively splits at the midpoint of the longest axis
func buildBVH(objects []Hittable) *BVHNode {
	boundingBox := objects[0].BoundingBox()
	for _, object := range objects[1:] {
		boundingBox = boundingBox.Union(object.BoundingBox())
	}

	leaf := &BVHNode{BoundingBox: boundingBox, Objects: objects}
	if len(objects) <= leafThreshold {
		return leaf
	}

	axis := boundingBox.LongestAxis()
	lo, hi := boundingBox.Min.Axis(axis), boundingBox.Max.Axis(axis)
	if hi <= lo {
		return leaf
	}

	left, right := partitionObjects(objects, axis, (lo+hi)*0.5)
	if len(left) == 0 || len(right) == 0 {
		return leaf
	}

	return &BVHNode{
		BoundingBox: boundingBox,
		Left:        buildBVH(left),
		Right:       buildBVH(right),
	}
}

// partitionObjects splits objects by bounding box center along axis
func partitionObjects(objects []Hittable, axis int, splitPos float64) ([]Hittable, []Hittable) {
	var left, right []Hittable
	for _, object := range objects {
		if object.BoundingBox().Center().Axis(axis) < splitPos {
			left = append(left, object)
		} else {
			right = append(right, object)
		}
	}
	return left, right
}

// Hit tests if a ray intersects any object in the BVH
func (bvh *BVH) Hit(ray core.Ray, tMin, tMax float64) (*material.HitRecord, bool) {
	if bvh.Root == nil {
		return nil, false
	}
	return bvh.hitNode(bvh.Root, ray, tMin, tMax)
}

// hitNode recursively tests ray intersection with BVH nodes
func (bvh *BVH) hitNode(node *BVHNode, ray core.Ray, tMin, tMax float64) (*material.HitRecord, bool) {
	if !node.BoundingBox.Hit(ray, tMin, tMax) {
		return nil, false
	}

	var closestHit *material.HitRecord
	closestSoFar := tMax

	if node.Objects != nil {
		for _, object := range node.Objects {
			if hit, isHit := object.Hit(ray, tMin, closestSoFar); isHit {
				closestSoFar = hit.T
				closestHit = hit
			}
		}
		return closestHit, closestHit != nil
	}

	for _, child := range []*BVHNode{node.Left, node.Right} {
		if child == nil {
			continue
		}
		if hit, isHit := bvh.hitNode(child, ray, tMin, closestSoFar); isHit {
			closestSoFar = hit.T
			closestHit = hit
		}
	}

	return closestHit, closestHit != nil
}

// BoundingBox returns the overall bounding box of the BVH
func (bvh *BVH) BoundingBox() core.AABB {
	if bvh.Root == nil {
		return core.AABB{}
	}
	return bvh.Root.BoundingBox
}

// Stats returns statistics about the BVH structure
func (bvh *BVH) Stats() BVHStats {
	if bvh.Root == nil {
		return BVHStats{}
	}

	stats := BVHStats{}
	bvh.collectStats(bvh.Root, 0, &stats)
	if stats.LeafNodes > 0 {
		stats.AvgDepth = stats.AvgDepth / float64(stats.LeafNodes)
	}
	return stats
}

// collectStats recursively collects statistics about the BVH
func (bvh *BVH) collectStats(node *BVHNode, depth int, stats *BVHStats) {
	stats.TotalNodes++
	stats.MaxDepth = max(stats.MaxDepth, depth)

	if node.Objects != nil {
		stats.LeafNodes++
		stats.TotalObjects += len(node.Objects)
		stats.AvgDepth += float64(depth)
		return
	}
	if node.Left != nil {
		bvh.collectStats(node.Left, depth+1, stats)
	}
	if node.Right != nil {
		bvh.collectStats(node.Right, depth+1, stats)
	}
}
