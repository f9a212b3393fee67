package csg

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// faceRelation is how a fragment sits against one face of another shape,
// and, once all faces are checked, against the shape as a whole.
type faceRelation int

const (
	relInside faceRelation = iota
	relOutside
	relAligned
	relReverseAligned
	relSplit
)

// carveResult is a fragment carved against one shape: pieces outside the
// shape, plus at most one piece inside it (or on its boundary).
type carveResult struct {
	outside   []Fragment
	inside    Fragment
	hasInside bool
	rel       faceRelation // relInside, relAligned or relReverseAligned
}

// classifyFragment aggregates the relation of every fragment corner to
// plane. faceN is the world normal of the fragment's own face.
func classifyFragment(fr *Fragment, plane Plane, faceN mgl64.Vec3) faceRelation {
	var front, back int
	for _, v := range fr.Verts {
		switch Classify(v.Pos, plane) {
		case Front:
			front++
		case Back:
			back++
		}
	}
	switch {
	case front > 0 && back > 0:
		return relSplit
	case front > 0:
		return relOutside
	case back > 0:
		return relInside
	case faceN.Dot(plane.N) > 0:
		return relAligned
	default:
		return relReverseAligned
	}
}

// carve clips fr against every face of other. Each split peels off a
// piece in front of the cutting face, which is outside other and final;
// the piece behind carries on to the next face. If the remainder turns
// out to be outside after all, the original fragment is returned whole.
func carve(fr Fragment, facePlane Plane, other *BrushShape) carveResult {
	cur := fr
	var outside []Fragment
	rel := relInside
	for fi := range other.Faces {
		plane := other.Faces[fi].WorldPlane()
		switch r := classifyFragment(&cur, plane, facePlane.N); r {
		case relOutside:
			return carveResult{outside: []Fragment{fr}}
		case relSplit:
			front, back, ok := splitFragment(&cur, plane, facePlane)
			switch {
			case ok:
				outside = append(outside, front)
				cur = back
			case back.Verts == nil:
				// Nothing usable behind the plane.
				return carveResult{outside: []Fragment{fr}}
			}
			// A sliver in front is treated as touching: cur stays whole.
		case relAligned, relReverseAligned:
			rel = r
		}
	}
	return carveResult{outside: outside, inside: cur, hasInside: true, rel: rel}
}

// splitFragment cuts fr by plane into the piece in front and the piece
// behind. ok is false when either piece degenerates; the degenerate side
// is returned with nil Verts.
func splitFragment(fr *Fragment, plane, facePlane Plane) (front, back Fragment, ok bool) {
	n := len(fr.Verts)
	rels := make([]Relation, n)
	for i, v := range fr.Verts {
		rels[i] = Classify(v.Pos, plane)
	}

	var fv, bv []FragmentVertex
	var fOn, bOn []bool
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a, ra, rb := fr.Verts[i], rels[i], rels[j]
		switch ra {
		case Front:
			fv, fOn = append(fv, a), append(fOn, false)
		case Back:
			bv, bOn = append(bv, a), append(bOn, false)
		default:
			fv, fOn = append(fv, a), append(fOn, true)
			bv, bOn = append(bv, a), append(bOn, true)
		}
		if (ra == Front && rb == Back) || (ra == Back && rb == Front) {
			x := splitVertex(a, fr.Verts[j], plane, facePlane)
			fv, fOn = append(fv, x), append(fOn, true)
			bv, bOn = append(bv, x), append(bOn, true)
		}
	}

	front = Fragment{Verts: cleanRing(fv, fOn, plane), Front: fr.Front, Back: fr.Back, Dropped: fr.Dropped}
	back = Fragment{Verts: cleanRing(bv, bOn, plane), Front: fr.Front, Back: fr.Back, Dropped: fr.Dropped}
	ok = front.Verts != nil && back.Verts != nil
	return front, back, ok
}

// cleanRing re-targets edges running along the cutting plane, merges
// coincident neighbors and drops rings that collapsed below a triangle.
func cleanRing(vs []FragmentVertex, on []bool, plane Plane) []FragmentVertex {
	n := len(vs)
	for i := 0; i < n; i++ {
		if on[i] && on[(i+1)%n] {
			vs[i].edge = plane
			vs[i].edgeOK = true
		}
	}
	out := make([]FragmentVertex, 0, n)
	for _, v := range vs {
		if len(out) > 0 && out[len(out)-1].Pos.Sub(v.Pos).Len() <= Epsilon {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && out[0].Pos.Sub(out[len(out)-1].Pos).Len() <= Epsilon {
		out = out[:len(out)-1]
	}
	if len(out) < 3 || polygonNormal(ringPositions(out)).LenSqr() == 0 {
		return nil
	}
	return out
}

func ringPositions(vs []FragmentVertex) []mgl64.Vec3 {
	pts := make([]mgl64.Vec3, len(vs))
	for i, v := range vs {
		pts[i] = v.Pos
	}
	return pts
}

// splitVertex finds where edge a->b crosses plane. The point is solved as
// the meeting point of the face plane, the edge's own plane and the
// cutting plane; when that fails, or lands off the edge, it falls back to
// interpolating along the edge.
func splitVertex(a, b FragmentVertex, plane, facePlane Plane) FragmentVertex {
	da := plane.Distance(a.Pos)
	db := plane.Distance(b.Pos)
	t := da / (da - db)
	pos := a.Pos.Add(b.Pos.Sub(a.Pos).Mul(t))

	if a.edgeOK {
		if p, ok := intersectPlanes(facePlane, a.edge, plane); ok {
			ab := b.Pos.Sub(a.Pos)
			tt := p.Sub(a.Pos).Dot(ab) / ab.LenSqr()
			onEdge := a.Pos.Add(ab.Mul(tt)).Sub(p).Len() <= Epsilon
			if onEdge && tt >= -Epsilon && tt <= 1+Epsilon {
				pos = p
				t = math.Min(math.Max(tt, 0), 1)
			}
		}
	}

	return FragmentVertex{
		Pos:    pos,
		Normal: slerpNormal(a.Normal, b.Normal, t),
		UV:     a.UV.Add(b.UV.Sub(a.UV).Mul(t)),
		edge:   a.edge,
		edgeOK: a.edgeOK,
	}
}

func slerpNormal(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	if a.ApproxEqualThreshold(b, solveEpsilon) {
		return a
	}
	q := mgl64.QuatSlerp(mgl64.QuatIdent(), mgl64.QuatBetweenVectors(a, b), t)
	return safeNormalize(q.Rotate(a), a)
}

// applyVolume folds the result of carving against other into the inside
// piece. Shapes are processed in uid order, so later shapes override
// earlier ones; on coincident faces the later shape's face survives.
func applyVolume(fr *Fragment, rel faceRelation, otherVolume VolumeType, otherIsLater bool) {
	switch rel {
	case relInside:
		fr.Front = otherVolume
		if otherIsLater {
			fr.Back = otherVolume
		}
	case relAligned:
		if otherIsLater {
			fr.Dropped = true
		}
	case relReverseAligned:
		if otherIsLater {
			fr.Dropped = true
		} else {
			fr.Front = otherVolume
		}
	}
}
