package csg

import (
	"cmp"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/samber/lo"
)

// indexEntry is a shape's slot in the R-tree. It remembers the rect it was
// inserted with because rtreego locates entries by their bounds on delete.
type indexEntry struct {
	shape *BrushShape
	rect  rtreego.Rect
}

func (e *indexEntry) Bounds() rtreego.Rect { return e.rect }

func aabbRect(a AABB) rtreego.Rect {
	r, err := rtreego.NewRectFromPoints(
		rtreego.Point{a.Min.X(), a.Min.Y(), a.Min.Z()},
		rtreego.Point{a.Max.X(), a.Max.Y(), a.Max.Z()},
	)
	if err != nil {
		// Only a dimension mismatch fails, and both points are 3D.
		panic(err)
	}
	return r
}

// broadPhase finds shapes whose bounds may overlap a box.
type broadPhase struct {
	tree *rtreego.Rtree
}

func newBroadPhase() *broadPhase {
	return &broadPhase{tree: rtreego.NewTree(3, 4, 16)}
}

// update (re)inserts s with its current bounds.
func (b *broadPhase) update(s *BrushShape) {
	b.remove(s)
	s.entry = &indexEntry{shape: s, rect: aabbRect(s.aabb)}
	b.tree.Insert(s.entry)
}

func (b *broadPhase) remove(s *BrushShape) {
	if s.entry != nil {
		b.tree.Delete(s.entry)
		s.entry = nil
	}
}

// query returns the shapes whose bounds overlap box, in uid order. The
// R-tree treats touching rects as disjoint, so box is padded and the exact
// inclusive test applied afterwards.
func (b *broadPhase) query(box AABB) []*BrushShape {
	hits := b.tree.SearchIntersect(aabbRect(box.Expand(Epsilon)))
	shapes := lo.FilterMap(hits, func(sp rtreego.Spatial, _ int) (*BrushShape, bool) {
		s := sp.(*indexEntry).shape
		return s, s.aabb.Overlaps(box)
	})
	slices.SortFunc(shapes, byUID)
	return shapes
}

func byUID(a, b *BrushShape) int {
	return cmp.Compare(a.uid, b.uid)
}
