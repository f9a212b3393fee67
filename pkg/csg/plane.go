// Package csg implements a brush-based constructive solid geometry kernel.
//
// Level geometry is a set of convex brushes, each bounded by half-space
// planes and tagged SOLID or EMPTY. A Scene tracks which brushes overlap and
// carves every brush face against its neighbors into fragments tagged with
// the volume found on each side. Fragments whose two sides differ form the
// visible surface.
package csg

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the geometric tolerance shared by classification, vertex
// deduplication and AABB padding.
const Epsilon = 0.001

const (
	// classifyPrecision is the number of decimals signed distances are
	// rounded to before their sign is taken.
	classifyPrecision = 3

	// parallelEpsilon marks two planes as parallel when |dot| >= 1-parallelEpsilon.
	parallelEpsilon = 1e-6

	// solveEpsilon guards denominators in line/plane solves.
	solveEpsilon = 1e-9
)

// Relation is the position of a point relative to a plane.
type Relation int

const (
	Aligned Relation = iota // on the plane, within tolerance
	Front                   // outside the half-space, on the normal side
	Back                    // inside the half-space
)

func (r Relation) String() string {
	switch r {
	case Aligned:
		return "aligned"
	case Front:
		return "front"
	case Back:
		return "back"
	default:
		return fmt.Sprintf("Relation(%d)", int(r))
	}
}

// Plane is a half-space: the set of points p with dot(p, N) <= D. It also
// carries the surface parameters of the face it produces.
type Plane struct {
	N        mgl64.Vec3
	D        float64
	Material *Material
	UVScale  mgl64.Vec2
	UVOffset mgl64.Vec2
}

// NewPlane returns a plane with normal n and distance d. A non-unit n is
// normalized and d scaled with it.
func NewPlane(n mgl64.Vec3, d float64) Plane {
	l := n.Len()
	if l > 0 && math.Abs(l-1) > solveEpsilon {
		n = n.Mul(1 / l)
		d /= l
	}
	return Plane{N: n, D: d, UVScale: mgl64.Vec2{1, 1}}
}

// PlaneFromPoints returns the plane through a, b and c, facing the side
// from which the points appear counter-clockwise. It fails for collinear
// points.
func PlaneFromPoints(a, b, c mgl64.Vec3) (Plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.LenSqr() < solveEpsilon {
		return Plane{}, false
	}
	n = n.Normalize()
	return Plane{N: n, D: n.Dot(a), UVScale: mgl64.Vec2{1, 1}}, true
}

// Distance returns the signed distance of p from the plane, positive in front.
func (p Plane) Distance(pt mgl64.Vec3) float64 {
	return pt.Dot(p.N) - p.D
}

// Origin returns the point of the plane closest to the coordinate origin.
func (p Plane) Origin() mgl64.Vec3 {
	return p.N.Mul(p.D)
}

// Flip returns the complementary half-space with the same surface parameters.
func (p Plane) Flip() Plane {
	p.N = p.N.Mul(-1)
	p.D = -p.D
	return p
}

// Transform maps the plane through the affine matrix m. Normals go through
// the inverse transpose so non-uniform scales keep them perpendicular.
func (p Plane) Transform(m mgl64.Mat4) Plane {
	n := mgl64.Mat4Normal(m).Mul3x1(p.N)
	if n.LenSqr() < solveEpsilon {
		return p
	}
	n = n.Normalize()
	o := mgl64.TransformCoordinate(p.Origin(), m)
	p.N = n
	p.D = n.Dot(o)
	return p
}

// Classify reports where pt lies relative to plane. The signed distance is
// rounded to three decimals so points within ~0.001 of the plane are Aligned.
func Classify(pt mgl64.Vec3, plane Plane) Relation {
	d := mgl64.Round(plane.Distance(pt), classifyPrecision)
	switch {
	case d > 0:
		return Front
	case d < 0:
		return Back
	default:
		return Aligned
	}
}

// ClassifyShape classifies pt against the convex volume bounded by planes:
// Front if it is outside any plane, Aligned if it lies on the boundary,
// Back if strictly inside.
func ClassifyShape(pt mgl64.Vec3, planes []Plane) Relation {
	rel := Back
	for _, p := range planes {
		switch Classify(pt, p) {
		case Front:
			return Front
		case Aligned:
			rel = Aligned
		}
	}
	return rel
}

func parallel(a, b Plane) bool {
	return math.Abs(a.N.Dot(b.N)) >= 1-parallelEpsilon
}

// line is a parametric line origin + t*dir with a unit dir.
type line struct {
	origin mgl64.Vec3
	dir    mgl64.Vec3
}

// intersectPlanePair returns the line shared by two planes.
func intersectPlanePair(a, b Plane) (line, bool) {
	dir := a.N.Cross(b.N)
	l2 := dir.LenSqr()
	if l2 < solveEpsilon {
		return line{}, false
	}
	o := b.N.Cross(dir).Mul(a.D).Add(dir.Cross(a.N).Mul(b.D)).Mul(1 / l2)
	return line{origin: o, dir: dir.Mul(1 / math.Sqrt(l2))}, true
}

// intersectPlane returns the point where l crosses p.
func (l line) intersectPlane(p Plane) (mgl64.Vec3, bool) {
	den := p.N.Dot(l.dir)
	if math.Abs(den) < solveEpsilon {
		return mgl64.Vec3{}, false
	}
	t := (p.D - p.N.Dot(l.origin)) / den
	return l.origin.Add(l.dir.Mul(t)), true
}

// intersectPlanes solves the unique point shared by three planes. It fails
// when any two are (nearly) parallel.
func intersectPlanes(a, b, c Plane) (mgl64.Vec3, bool) {
	if parallel(a, b) || parallel(a, c) || parallel(b, c) {
		return mgl64.Vec3{}, false
	}
	l, ok := intersectPlanePair(a, b)
	if !ok {
		return mgl64.Vec3{}, false
	}
	pt, ok := l.intersectPlane(c)
	if !ok || math.IsNaN(pt.X()) || math.IsInf(pt.X(), 0) {
		return mgl64.Vec3{}, false
	}
	return pt, true
}
