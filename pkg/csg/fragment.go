package csg

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// FragmentVertex is a throwaway world-space corner of a fragment.
type FragmentVertex struct {
	Pos    mgl64.Vec3
	Normal mgl64.Vec3
	UV     mgl64.Vec2

	// edge is the plane, other than the face's own, that contains the
	// edge leaving this vertex. Split points are solved against it.
	edge   Plane
	edgeOK bool
}

// Fragment is the piece of a face left after carving, tagged with the
// volume on each side of it.
type Fragment struct {
	Verts []FragmentVertex
	Front VolumeType
	Back  VolumeType

	// Dropped marks a coincident face that lost the uid tie-break to a
	// later shape's face. It stays in the list so fragments still
	// partition the face.
	Dropped bool
}

// Visible reports whether the fragment is part of the solid/empty boundary.
func (fr *Fragment) Visible() bool {
	return !fr.Dropped && fr.Front != fr.Back
}

// Positions returns the polygon corners.
func (fr *Fragment) Positions() []mgl64.Vec3 {
	return lo.Map(fr.Verts, func(v FragmentVertex, _ int) mgl64.Vec3 { return v.Pos })
}

// Area returns the polygon area for a face with unit normal n.
func (fr *Fragment) Area(n mgl64.Vec3) float64 {
	return polygonArea(fr.Positions(), n)
}

// RenderNormal returns the direction the visible surface faces: towards
// the Empty side. faceN is the world normal of the owning face.
func (fr *Fragment) RenderNormal(faceN mgl64.Vec3) mgl64.Vec3 {
	if fr.Back == Empty && fr.Front != Empty {
		return faceN.Mul(-1)
	}
	return faceN
}

// Contains reports whether p, assumed on the fragment plane, lies inside
// the convex polygon wound counter-clockwise about faceN.
func (fr *Fragment) Contains(p, faceN mgl64.Vec3) bool {
	n := len(fr.Verts)
	for i := 0; i < n; i++ {
		a := fr.Verts[i].Pos
		b := fr.Verts[(i+1)%n].Pos
		if b.Sub(a).Cross(p.Sub(a)).Dot(faceN) < -Epsilon*b.Sub(a).Len() {
			return false
		}
	}
	return true
}

// seedFragment returns the full polygon of face fi as a single fragment
// with Solid in front and the shape's own volume behind. A mirroring
// transform turns the ring over in world space, so it is walked backwards
// to stay counter-clockwise about the world normal.
func (s *BrushShape) seedFragment(fi int) Fragment {
	f := &s.Faces[fi]
	n := len(f.Verts)
	order := make([]int, n)
	for k := range order {
		order[k] = k
	}
	if s.mirrored() {
		slices.Reverse(order)
	}
	verts := make([]FragmentVertex, n)
	for j, k := range order {
		vi := f.Verts[k]
		next := f.Verts[order[(j+1)%n]]
		fv := FragmentVertex{
			Pos:    s.world[vi],
			Normal: s.worldNormal(f.Normals[k]),
		}
		if k < len(f.UVs) {
			fv.UV = f.UVs[k]
		}
		if gi, ok := s.edgeFace(fi, vi, next); ok {
			fv.edge = s.Faces[gi].WorldPlane()
			fv.edgeOK = true
		}
		verts[j] = fv
	}
	return Fragment{Verts: verts, Front: Solid, Back: s.Volume}
}

// edgeFace finds the face other than fi that holds both a and b.
func (s *BrushShape) edgeFace(fi, a, b int) (int, bool) {
	vb := &s.Vertices[b]
	return lo.Find(s.Vertices[a].Faces, func(gi int) bool {
		return gi != fi && vb.hasFace(gi)
	})
}
