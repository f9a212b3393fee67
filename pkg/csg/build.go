package csg

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// smoothCos is the cosine of the widest angle between two faces whose
// normals are blended into a shared lighting normal.
const smoothCos = 0.707

// vertexKey is a position quantized to Epsilon.
type vertexKey [3]int64

func keyOf(p mgl64.Vec3) vertexKey {
	return vertexKey{
		int64(math.Round(p.X() / Epsilon)),
		int64(math.Round(p.Y() / Epsilon)),
		int64(math.Round(p.Z() / Epsilon)),
	}
}

// vertexIndex deduplicates control points by quantized position. Lookups
// probe the neighboring cells so points straddling a cell border still
// merge.
type vertexIndex map[vertexKey][]int

func (s *BrushShape) buildVertexIndex(skip func(vi int) bool) vertexIndex {
	idx := make(vertexIndex, len(s.Vertices))
	for vi, v := range s.Vertices {
		if skip != nil && skip(vi) {
			continue
		}
		k := keyOf(v.Pos)
		idx[k] = append(idx[k], vi)
	}
	return idx
}

func (s *BrushShape) findVertex(idx vertexIndex, p mgl64.Vec3) (int, bool) {
	k := keyOf(p)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				for _, vi := range idx[vertexKey{k[0] + dx, k[1] + dy, k[2] + dz}] {
					if s.Vertices[vi].Pos.Sub(p).Len() <= Epsilon {
						return vi, true
					}
				}
			}
		}
	}
	return 0, false
}

// makeVertex returns the control point at p, creating it when no existing
// point lies within Epsilon.
func (s *BrushShape) makeVertex(idx vertexIndex, p mgl64.Vec3) int {
	if vi, ok := s.findVertex(idx, p); ok {
		return vi
	}
	vi := len(s.Vertices)
	s.Vertices = append(s.Vertices, Vertex{Pos: p})
	k := keyOf(p)
	idx[k] = append(idx[k], vi)
	return vi
}

// link associates control point vi with face fi in both directions.
func (s *BrushShape) link(vi, fi int) {
	s.Vertices[vi].addFace(fi)
	f := &s.Faces[fi]
	if !lo.Contains(f.Verts, vi) {
		f.Verts = append(f.Verts, vi)
	}
}

func (s *BrushShape) unlink(vi, fi int) {
	s.Vertices[vi].removeFace(fi)
	f := &s.Faces[fi]
	f.Verts = lo.Without(f.Verts, vi)
}

// initFromPlanes derives control points and faces from planes.
func (s *BrushShape) initFromPlanes(planes []Plane) error {
	if len(planes) < 4 {
		return fmt.Errorf("%w: need at least 4 planes, got %d", ErrDegenerateBrush, len(planes))
	}
	norm := make([]Plane, len(planes))
	for i, p := range planes {
		if p.N.LenSqr() < solveEpsilon {
			return fmt.Errorf("%w: plane %d has a zero normal", ErrDegenerateBrush, i)
		}
		np := NewPlane(p.N, p.D)
		np.Material, np.UVScale, np.UVOffset = p.Material, p.UVScale, p.UVOffset
		norm[i] = np
	}

	s.Vertices = nil
	s.Faces = lo.Map(norm, func(p Plane, _ int) Face { return newFace(p) })
	idx := make(vertexIndex)

	n := len(norm)
	for i := 0; i < n-2; i++ {
		for j := i + 1; j < n-1; j++ {
			for k := j + 1; k < n; k++ {
				p, ok := intersectPlanes(norm[i], norm[j], norm[k])
				if !ok {
					continue
				}
				if ClassifyShape(p, norm) == Front {
					continue
				}
				vi := s.makeVertex(idx, p)
				s.link(vi, i)
				s.link(vi, j)
				s.link(vi, k)
			}
		}
	}

	for fi := range s.Faces {
		if !s.orderFace(fi) {
			return fmt.Errorf("%w: face %d has %d vertices", ErrDegenerateBrush, fi, len(s.Faces[fi].Verts))
		}
		s.fixWinding(fi)
	}
	s.shadeNormals()
	for fi := range s.Faces {
		s.localUVs(fi)
	}
	return nil
}

// orderFace turns the unordered vertex set of face fi into a ring by
// walking edges. An edge joins two control points that share at least two
// faces.
func (s *BrushShape) orderFace(fi int) bool {
	f := &s.Faces[fi]
	if len(f.Verts) < 3 {
		return false
	}
	ring := make([]int, 0, len(f.Verts))
	ring = append(ring, f.Verts[0])
	rest := append([]int(nil), f.Verts[1:]...)
	for len(rest) > 0 {
		cur := &s.Vertices[ring[len(ring)-1]]
		_, k, ok := lo.FindIndexOf(rest, func(vi int) bool {
			return sharedFaces(cur, &s.Vertices[vi]) >= 2
		})
		if !ok {
			return false
		}
		ring = append(ring, rest[k])
		rest = append(rest[:k], rest[k+1:]...)
	}
	f.Verts = ring
	return true
}

// fixWinding reverses the ring of face fi when its geometric normal
// disagrees with the plane normal.
func (s *BrushShape) fixWinding(fi int) {
	f := &s.Faces[fi]
	n := polygonNormal(lo.Map(f.Verts, func(vi int, _ int) mgl64.Vec3 { return s.Vertices[vi].Pos }))
	if n.Dot(f.LocalN) >= 0 {
		return
	}
	slices.Reverse(f.Verts)
	if len(f.UVs) == len(f.Verts) {
		slices.Reverse(f.UVs)
	}
	if len(f.Normals) == len(f.Verts) {
		slices.Reverse(f.Normals)
	}
}

// polygonNormal returns the normal of the first non-degenerate fan
// triangle of pts, or the zero vector.
func polygonNormal(pts []mgl64.Vec3) mgl64.Vec3 {
	for i := 1; i+1 < len(pts); i++ {
		n := pts[i].Sub(pts[0]).Cross(pts[i+1].Sub(pts[0]))
		if n.LenSqr() > Epsilon*Epsilon*Epsilon {
			return n
		}
	}
	return mgl64.Vec3{}
}

// shadeNormals computes per-corner lighting normals: the average of the
// normals of faces meeting at the corner that lie within ~45 degrees of
// the face itself.
func (s *BrushShape) shadeNormals() {
	for fi := range s.Faces {
		f := &s.Faces[fi]
		f.Normals = lo.Map(f.Verts, func(vi int, _ int) mgl64.Vec3 {
			var sum mgl64.Vec3
			for _, gi := range s.Vertices[vi].Faces {
				if g := s.Faces[gi].LocalN; g.Dot(f.LocalN) >= smoothCos {
					sum = sum.Add(g)
				}
			}
			return safeNormalize(sum, f.LocalN)
		})
	}
}

// localUVs projects shape-space UVs for face fi.
func (s *BrushShape) localUVs(fi int) {
	f := &s.Faces[fi]
	f.UVs = lo.Map(f.Verts, func(vi int, _ int) mgl64.Vec2 {
		return planarUV(s.Vertices[vi].Pos, f.LocalN, f.UVScale, f.UVOffset)
	})
}

// polygonArea returns the area of a planar polygon with normal n.
func polygonArea(pts []mgl64.Vec3, n mgl64.Vec3) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum mgl64.Vec3
	for i := 1; i+1 < len(pts); i++ {
		sum = sum.Add(pts[i].Sub(pts[0]).Cross(pts[i+1].Sub(pts[0])))
	}
	return math.Abs(sum.Dot(n)) / 2
}

// FaceArea returns the world-space area of face fi.
func (s *BrushShape) FaceArea(fi int) float64 {
	f := &s.Faces[fi]
	return polygonArea(lo.Map(f.Verts, func(vi int, _ int) mgl64.Vec3 { return s.world[vi] }), f.N)
}
