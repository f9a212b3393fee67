package csg

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"
)

// Scene owns a set of brushes and keeps their carved fragments current.
//
// Edits (adding, removing, moving, cutting shapes) only mark shapes as
// invalidated. Update resolves world geometry and overlaps for the
// invalidated shapes and then re-carves every shape whose neighborhood
// changed. Queries read the state left by the last Update.
type Scene struct {
	shapes    []*BrushShape
	nextUID   uint64
	materials []*Material

	invalidated map[*BrushShape]struct{}
	toRebuild   map[*BrushShape]struct{}

	index *broadPhase
	log   *slog.Logger
}

// SceneOption configures a Scene.
type SceneOption func(*Scene)

// WithLogger sets the logger used for update diagnostics.
func WithLogger(l *slog.Logger) SceneOption {
	return func(sc *Scene) { sc.log = l }
}

// NewScene returns an empty scene.
func NewScene(opts ...SceneOption) *Scene {
	sc := &Scene{
		nextUID:     1,
		invalidated: make(map[*BrushShape]struct{}),
		toRebuild:   make(map[*BrushShape]struct{}),
		index:       newBroadPhase(),
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(sc)
	}
	if sc.log == nil {
		sc.log = slog.Default()
	}
	return sc
}

// UpdateStats summarizes one Update pass.
type UpdateStats struct {
	Resolved  int // shapes whose world geometry and overlaps were recomputed
	Rebuilt   int // shapes whose fragments were re-carved
	Fragments int // fragments produced by the rebuilt shapes
	Visible   int // visible fragments among them
}

// Material returns the registered material called name, registering it
// with renderMaterial when it is new.
func (sc *Scene) Material(name, renderMaterial string) *Material {
	if m := sc.LookupMaterial(name); m != nil {
		return m
	}
	m := &Material{Name: name, RenderMaterial: renderMaterial}
	sc.materials = append(sc.materials, m)
	return m
}

// LookupMaterial returns the material called name, or nil.
func (sc *Scene) LookupMaterial(name string) *Material {
	m, _ := lo.Find(sc.materials, func(m *Material) bool { return m.Name == name })
	return m
}

// Materials returns the registered materials in registration order.
func (sc *Scene) Materials() []*Material {
	return slices.Clone(sc.materials)
}

// adopt swaps material handles on s for the scene's registered ones, so
// materials stay deduplicated by name.
func (sc *Scene) adopt(m *Material) *Material {
	if m == nil {
		return nil
	}
	return sc.Material(m.Name, m.RenderMaterial)
}

func (sc *Scene) adoptShape(s *BrushShape) {
	s.Material = sc.adopt(s.Material)
	for fi := range s.Faces {
		s.Faces[fi].Material = sc.adopt(s.Faces[fi].Material)
	}
}

// AddShape hands s to the scene, assigning the next uid.
func (sc *Scene) AddShape(s *BrushShape) error {
	if s.scene != nil {
		return ErrShapeInScene
	}
	s.uid = sc.nextUID
	sc.nextUID++
	s.scene = sc
	sc.adoptShape(s)
	sc.shapes = append(sc.shapes, s)
	sc.invalidated[s] = struct{}{}
	return nil
}

// RemoveShape detaches s. Its neighbors lose it from their adjacency and
// are re-carved on the next Update.
func (sc *Scene) RemoveShape(s *BrushShape) error {
	i := slices.Index(sc.shapes, s)
	if i < 0 || s.scene != sc {
		return fmt.Errorf("remove uid %d: %w", s.uid, ErrShapeNotFound)
	}
	for _, o := range s.intersecting {
		o.removeNeighbor(s)
		sc.toRebuild[o] = struct{}{}
	}
	sc.index.remove(s)
	delete(sc.invalidated, s)
	delete(sc.toRebuild, s)
	sc.shapes = slices.Delete(sc.shapes, i, i+1)
	s.detach()
	return nil
}

// detach clears everything that ties s to a scene.
func (s *BrushShape) detach() {
	s.scene = nil
	s.intersecting = nil
	s.entry = nil
	for fi := range s.Faces {
		s.Faces[fi].Fragments = nil
	}
}

// Shapes returns the shapes in insertion order.
func (sc *Scene) Shapes() []*BrushShape {
	return slices.Clone(sc.shapes)
}

// Len returns the number of shapes.
func (sc *Scene) Len() int { return len(sc.shapes) }

// Shape returns the first shape called name, or nil.
func (sc *Scene) Shape(name string) *BrushShape {
	s, _ := lo.Find(sc.shapes, func(s *BrushShape) bool { return s.Name == name })
	return s
}

// ShapeByUID returns the shape with the given uid, or nil.
func (sc *Scene) ShapeByUID(uid uint64) *BrushShape {
	s, _ := lo.Find(sc.shapes, func(s *BrushShape) bool { return s.uid == uid })
	return s
}

// Invalidate marks s for world-space and overlap recomputation.
func (sc *Scene) Invalidate(s *BrushShape) {
	if s.scene == sc {
		sc.invalidated[s] = struct{}{}
	}
}

// InvalidateAll marks every shape.
func (sc *Scene) InvalidateAll() {
	for _, s := range sc.shapes {
		sc.invalidated[s] = struct{}{}
	}
}

// Pending reports whether edits are waiting for Update.
func (sc *Scene) Pending() bool {
	return len(sc.invalidated) > 0 || len(sc.toRebuild) > 0
}

// Bounds returns the union of all shape bounds.
func (sc *Scene) Bounds() AABB {
	return lo.Reduce(sc.shapes, func(acc AABB, s *BrushShape, _ int) AABB {
		return acc.Union(s.aabb)
	}, EmptyAABB())
}

// Update resolves all pending edits. It runs to completion; the scene must
// not be edited or queried concurrently.
func (sc *Scene) Update() UpdateStats {
	var st UpdateStats

	resolve := lo.Keys(sc.invalidated)
	slices.SortFunc(resolve, byUID)
	for _, s := range resolve {
		sc.resolve(s)
	}
	st.Resolved = len(resolve)
	clear(sc.invalidated)

	rebuild := lo.Keys(sc.toRebuild)
	slices.SortFunc(rebuild, byUID)
	for _, s := range rebuild {
		frags, visible := sc.rebuild(s)
		st.Fragments += frags
		st.Visible += visible
	}
	st.Rebuilt = len(rebuild)
	clear(sc.toRebuild)

	if st.Resolved > 0 || st.Rebuilt > 0 {
		sc.log.Debug("csg: scene updated",
			"resolved", st.Resolved,
			"rebuilt", st.Rebuilt,
			"fragments", st.Fragments,
			"visible", st.Visible,
		)
	}
	return st
}

// resolve recomputes the world geometry of s and its overlap set. s, its
// former neighbors and its new neighbors all need re-carving.
func (sc *Scene) resolve(s *BrushShape) {
	s.updateWorld()
	sc.index.update(s)

	cur := lo.Filter(sc.index.query(s.aabb), func(o *BrushShape, _ int) bool { return o != s })
	for _, o := range s.intersecting {
		if _, ok := slices.BinarySearchFunc(cur, o, byUID); !ok {
			o.removeNeighbor(s)
			sc.toRebuild[o] = struct{}{}
		}
	}
	for _, o := range cur {
		o.addNeighbor(s)
		sc.toRebuild[o] = struct{}{}
	}
	s.intersecting = cur
	sc.toRebuild[s] = struct{}{}
}

// rebuild carves every face of s against its neighbors in uid order.
func (sc *Scene) rebuild(s *BrushShape) (frags, visible int) {
	for fi := range s.Faces {
		f := &s.Faces[fi]
		fp := f.WorldPlane()
		pieces := []Fragment{s.seedFragment(fi)}
		for _, o := range s.intersecting {
			if !f.AABB.Overlaps(o.aabb) {
				continue
			}
			later := o.uid > s.uid
			next := make([]Fragment, 0, len(pieces))
			for _, fr := range pieces {
				if fr.Dropped {
					next = append(next, fr)
					continue
				}
				res := carve(fr, fp, o)
				next = append(next, res.outside...)
				if res.hasInside {
					applyVolume(&res.inside, res.rel, o.Volume, later)
					next = append(next, res.inside)
				}
			}
			pieces = next
		}
		f.Fragments = pieces
		frags += len(pieces)
		visible += lo.CountBy(pieces, func(fr Fragment) bool { return fr.Visible() })
	}
	return frags, visible
}

func (s *BrushShape) neighborIndex(o *BrushShape) (int, bool) {
	return slices.BinarySearchFunc(s.intersecting, o, byUID)
}

func (s *BrushShape) hasNeighbor(o *BrushShape) bool {
	_, ok := s.neighborIndex(o)
	return ok
}

func (s *BrushShape) addNeighbor(o *BrushShape) {
	if i, ok := s.neighborIndex(o); !ok {
		s.intersecting = slices.Insert(s.intersecting, i, o)
	}
}

func (s *BrushShape) removeNeighbor(o *BrushShape) {
	if i, ok := s.neighborIndex(o); ok {
		s.intersecting = slices.Delete(s.intersecting, i, i+1)
	}
}
