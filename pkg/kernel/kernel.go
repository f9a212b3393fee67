// Package kernel defines the abstract solid-modeling kernel used for
// reference previews of a brush scene. Implementations (sdfx) evaluate
// boolean combinations of convex solids and mesh the result, giving an
// independent view of the surface the csg package carves.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// HalfSpace is the set of points p with dot(Normal, p) <= Dist. Normal is
// expected to be unit length.
type HalfSpace struct {
	Normal [3]float64
	Dist   float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(min, max [3]float64) Solid
	// Brush is the convex intersection of planes. min and max bound it and
	// must contain every corner.
	Brush(planes []HalfSpace, min, max [3]float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
