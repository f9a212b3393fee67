package csg

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// cutPlan is the classification of a shape against a cut plane.
type cutPlan struct {
	plane       Plane
	front       []int // control points removed by the cut
	aligned     []int // control points on the cut plane
	intersected []int // faces with corners on both sides
	discarded   []int // faces with nothing behind the plane
}

// prepareCut tags every control point with its relation to plane and
// buckets the faces.
func (s *BrushShape) prepareCut(plane Plane) (*cutPlan, error) {
	if plane.N.LenSqr() < solveEpsilon {
		return nil, fmt.Errorf("csg: cut: zero plane normal")
	}
	np := NewPlane(plane.N, plane.D)
	np.Material, np.UVScale, np.UVOffset = plane.Material, plane.UVScale, plane.UVOffset
	plan := &cutPlan{plane: np}

	var back int
	for vi := range s.Vertices {
		v := &s.Vertices[vi]
		v.rel = Classify(v.Pos, np)
		switch v.rel {
		case Front:
			plan.front = append(plan.front, vi)
		case Aligned:
			plan.aligned = append(plan.aligned, vi)
		default:
			back++
		}
	}
	if len(plan.front) == 0 {
		return nil, ErrCutMisses
	}
	if back == 0 {
		return nil, ErrCutEverything
	}

	for fi := range s.Faces {
		hasFront := lo.SomeBy(s.Faces[fi].Verts, func(vi int) bool { return s.Vertices[vi].rel == Front })
		hasBack := lo.SomeBy(s.Faces[fi].Verts, func(vi int) bool { return s.Vertices[vi].rel == Back })
		switch {
		case !hasBack:
			plan.discarded = append(plan.discarded, fi)
		case hasFront:
			plan.intersected = append(plan.intersected, fi)
		}
	}
	return plan, nil
}

// performCut applies plan: it caps the shape with the cut plane, solves
// the new corners, drops what lies in front and compacts the arrays.
func (s *BrushShape) performCut(plan *cutPlan) error {
	capFace := len(s.Faces)
	s.Faces = append(s.Faces, newFace(plan.plane))
	for _, vi := range plan.aligned {
		s.link(vi, capFace)
	}

	gone := make(map[int]bool, len(plan.front))
	for _, vi := range plan.front {
		gone[vi] = true
	}
	dropped := make(map[int]bool, len(plan.discarded))
	for _, fi := range plan.discarded {
		dropped[fi] = true
	}
	retained := lo.Filter(s.Planes(), func(_ Plane, fi int) bool { return !dropped[fi] })

	idx := s.buildVertexIndex(func(vi int) bool { return gone[vi] })
	for a := 0; a < len(plan.intersected); a++ {
		for b := a + 1; b < len(plan.intersected); b++ {
			fa, fb := plan.intersected[a], plan.intersected[b]
			p, ok := intersectPlanes(s.Faces[fa].LocalPlane(), s.Faces[fb].LocalPlane(), plan.plane)
			if !ok || ClassifyShape(p, retained) == Front {
				continue
			}
			vi := s.makeVertex(idx, p)
			s.link(vi, fa)
			s.link(vi, fb)
			s.link(vi, capFace)
		}
	}

	for _, vi := range plan.front {
		for _, fi := range slices.Clone(s.Vertices[vi].Faces) {
			s.unlink(vi, fi)
		}
	}
	for _, fi := range plan.discarded {
		for _, vi := range slices.Clone(s.Faces[fi].Verts) {
			s.unlink(vi, fi)
		}
	}

	for _, fi := range append(slices.Clone(plan.intersected), capFace) {
		if !s.orderFace(fi) {
			return fmt.Errorf("%w: cut left face %d with %d vertices", ErrDegenerateBrush, fi, len(s.Faces[fi].Verts))
		}
		s.fixWinding(fi)
		s.localUVs(fi)
	}

	s.compact(dropped)
	s.shadeNormals()
	return nil
}

// compact removes dropped faces and control points left without faces,
// then re-indexes every cross reference.
func (s *BrushShape) compact(dropped map[int]bool) {
	faceMap := make([]int, len(s.Faces))
	var faces []Face
	for fi, f := range s.Faces {
		if dropped[fi] {
			faceMap[fi] = -1
			continue
		}
		faceMap[fi] = len(faces)
		faces = append(faces, f)
	}

	vertMap := make([]int, len(s.Vertices))
	var verts []Vertex
	for vi, v := range s.Vertices {
		if len(v.Faces) == 0 {
			vertMap[vi] = -1
			continue
		}
		v.Faces = lo.FilterMap(v.Faces, func(fi int, _ int) (int, bool) {
			return faceMap[fi], faceMap[fi] >= 0
		})
		vertMap[vi] = len(verts)
		verts = append(verts, v)
	}

	for fi := range faces {
		faces[fi].Verts = lo.Map(faces[fi].Verts, func(vi int, _ int) int { return vertMap[vi] })
	}
	s.Faces, s.Vertices = faces, verts
}

// Cut slices the shape with a shape-space plane and keeps the part behind
// it. The shape is left unchanged when the cut fails.
func (s *BrushShape) Cut(plane Plane) error {
	plan, err := s.prepareCut(plane)
	if err != nil {
		return err
	}
	work := &BrushShape{}
	work.copyGeometry(s)
	if err := work.performCut(plan); err != nil {
		return err
	}
	s.Vertices, s.Faces = work.Vertices, work.Faces
	if s.scene != nil {
		s.scene.adoptShape(s)
	}
	s.updateWorld()
	s.invalidate()
	return nil
}

// CutShape cuts s with a world-space plane, keeping the part behind it.
func (sc *Scene) CutShape(s *BrushShape, plane Plane) error {
	if s.scene != sc {
		return fmt.Errorf("cut uid %d: %w", s.uid, ErrShapeNotFound)
	}
	return s.Cut(plane.Transform(s.transform.Inv()))
}

// SplitShape divides s along a world-space plane. s keeps the part behind
// the plane; the part in front becomes a new shape added to the scene.
func (sc *Scene) SplitShape(s *BrushShape, plane Plane) (back, front *BrushShape, err error) {
	if s.scene != sc {
		return nil, nil, fmt.Errorf("split uid %d: %w", s.uid, ErrShapeNotFound)
	}
	local := plane.Transform(s.transform.Inv())
	b := s.Clone()
	if err := b.Cut(local); err != nil {
		return nil, nil, err
	}
	f := s.Clone()
	f.Name = ""
	if err := f.Cut(local.Flip()); err != nil {
		return nil, nil, err
	}
	s.Vertices, s.Faces = b.Vertices, b.Faces
	s.updateWorld()
	sc.Invalidate(s)
	if err := sc.AddShape(f); err != nil {
		return nil, nil, err
	}
	return s, f, nil
}
