package csg

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RayHit describes where a segment meets the visible surface.
type RayHit struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3 // rendered normal, facing the ray
	Origin mgl64.Vec3 // point of the hit plane closest to the world origin
	Basis  mgl64.Mat3 // columns: tangent, bitangent, normal
	Shape  *BrushShape
	Face   int
	T      float64 // hit parameter along the segment, in [0, 1]
}

// segmentBounds returns the padded box around from -> to.
func segmentBounds(from, to mgl64.Vec3) AABB {
	return EmptyAABB().Extend(from).Extend(to).Expand(Epsilon)
}

// CastRay returns the nearest visible fragment hit along the segment from
// -> to. Only fragments whose rendered side faces the ray count.
func (sc *Scene) CastRay(from, to mgl64.Vec3) (RayHit, bool) {
	dir := to.Sub(from)
	best := RayHit{T: math.Inf(1)}
	found := false

	for _, s := range sc.index.query(segmentBounds(from, to)) {
		if _, ok := s.aabb.IntersectSegment(from, to); !ok {
			continue
		}
		for fi := range s.Faces {
			f := &s.Faces[fi]
			den := f.N.Dot(dir)
			if math.Abs(den) < solveEpsilon {
				continue
			}
			t := (f.D - f.N.Dot(from)) / den
			if t < 0 || t > 1 || t >= best.T {
				continue
			}
			p := from.Add(dir.Mul(t))
			for k := range f.Fragments {
				fr := &f.Fragments[k]
				if !fr.Visible() {
					continue
				}
				n := fr.RenderNormal(f.N)
				if n.Dot(dir) >= 0 || !fr.Contains(p, f.N) {
					continue
				}
				best = RayHit{
					Point:  p,
					Normal: n,
					Origin: n.Mul(n.Dot(p)),
					Basis:  surfaceBasis(n),
					Shape:  s,
					Face:   fi,
					T:      t,
				}
				found = true
				break
			}
		}
	}
	return best, found
}

// surfaceBasis builds an orthonormal frame around n.
func surfaceBasis(n mgl64.Vec3) mgl64.Mat3 {
	up := mgl64.Vec3{0, 0, 1}
	if math.Abs(n.Dot(up)) > 0.9 {
		up = mgl64.Vec3{0, 1, 0}
	}
	t := up.Cross(n).Normalize()
	b := n.Cross(t)
	return mgl64.Mat3FromCols(t, b, n)
}

// PickShape returns the brush nearest along the segment, visible or not.
func (sc *Scene) PickShape(from, to mgl64.Vec3) *BrushShape {
	s, _ := sc.PickShapeFace(from, to)
	return s
}

// PickShapeFace returns the brush nearest along the segment and the index
// of the face the segment enters it through. A segment starting inside a
// brush picks the face it leaves through. The face index is -1 when
// nothing is hit.
func (sc *Scene) PickShapeFace(from, to mgl64.Vec3) (*BrushShape, int) {
	var best *BrushShape
	bestFace, bestT := -1, math.Inf(1)
	for _, s := range sc.index.query(segmentBounds(from, to)) {
		fi, t, ok := s.clipSegment(from, to)
		if ok && t < bestT {
			best, bestFace, bestT = s, fi, t
		}
	}
	return best, bestFace
}

// clipSegment clips from -> to against the world planes of s and returns
// the face and parameter where the segment enters, or leaves when it
// starts inside.
func (s *BrushShape) clipSegment(from, to mgl64.Vec3) (int, float64, bool) {
	dir := to.Sub(from)
	tEnter, tExit := 0.0, 1.0
	enter, exit := -1, -1
	for fi := range s.Faces {
		f := &s.Faces[fi]
		den := f.N.Dot(dir)
		dist := f.N.Dot(from) - f.D
		if math.Abs(den) < solveEpsilon {
			if dist > Epsilon {
				return -1, 0, false
			}
			continue
		}
		t := -dist / den
		if den < 0 {
			if t > tEnter {
				tEnter, enter = t, fi
			}
		} else if t < tExit {
			tExit, exit = t, fi
		}
		if tEnter > tExit {
			return -1, 0, false
		}
	}
	if enter >= 0 {
		return enter, tEnter, true
	}
	if exit >= 0 {
		return exit, tExit, true
	}
	return -1, 0, false
}
