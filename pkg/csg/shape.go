package csg

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// Vertex is a control point: a deduplicated corner of a brush in the
// brush's local space.
type Vertex struct {
	Pos   mgl64.Vec3
	Faces []int // indices into BrushShape.Faces, ascending

	rel Relation // scratch tag used while cutting
}

func (v *Vertex) hasFace(fi int) bool {
	_, ok := slices.BinarySearch(v.Faces, fi)
	return ok
}

func (v *Vertex) addFace(fi int) {
	i, ok := slices.BinarySearch(v.Faces, fi)
	if !ok {
		v.Faces = slices.Insert(v.Faces, i, fi)
	}
}

func (v *Vertex) removeFace(fi int) {
	if i, ok := slices.BinarySearch(v.Faces, fi); ok {
		v.Faces = slices.Delete(v.Faces, i, i+1)
	}
}

// sharedFaces counts the faces two control points have in common.
func sharedFaces(a, b *Vertex) int {
	return lo.CountBy(a.Faces, func(fi int) bool { return b.hasFace(fi) })
}

// Face is one bounding plane of a brush together with its convex polygon.
type Face struct {
	LocalN mgl64.Vec3 // plane normal in shape space
	LocalD float64
	N      mgl64.Vec3 // plane normal in world space
	D      float64

	// Verts is the polygon ring, counter-clockwise about N.
	Verts []int
	// UVs and Normals run parallel to Verts. Normals are smoothed lighting
	// normals in shape space.
	UVs     []mgl64.Vec2
	Normals []mgl64.Vec3

	UVScale  mgl64.Vec2
	UVOffset mgl64.Vec2
	Material *Material

	Fragments []Fragment

	AABB AABB       // world space
	Mid  mgl64.Vec3 // world space
}

// LocalPlane returns the face plane in shape space.
func (f *Face) LocalPlane() Plane {
	return Plane{N: f.LocalN, D: f.LocalD, Material: f.Material, UVScale: f.UVScale, UVOffset: f.UVOffset}
}

// WorldPlane returns the face plane in world space.
func (f *Face) WorldPlane() Plane {
	return Plane{N: f.N, D: f.D, Material: f.Material, UVScale: f.UVScale, UVOffset: f.UVOffset}
}

func newFace(p Plane) Face {
	f := Face{
		LocalN:   p.N,
		LocalD:   p.D,
		N:        p.N,
		D:        p.D,
		UVScale:  p.UVScale,
		UVOffset: p.UVOffset,
		Material: p.Material,
	}
	if f.UVScale[0] == 0 {
		f.UVScale[0] = 1
	}
	if f.UVScale[1] == 0 {
		f.UVScale[1] = 1
	}
	return f
}

// BrushShape is a convex solid bounded by planes.
type BrushShape struct {
	Name     string
	Vertices []Vertex
	Faces    []Face
	Volume   VolumeType
	Material *Material
	Color    uint32 // RGBA, 8 bits per channel, red in the high byte
	AutoUV   bool

	uid       uint64
	scene     *Scene
	transform mgl64.Mat4
	normalMat mgl64.Mat3
	aabb      AABB
	world     []mgl64.Vec3

	// intersecting holds the shapes whose AABB overlaps this one, sorted
	// by uid.
	intersecting []*BrushShape
	entry        *indexEntry
}

// BrushOption configures a brush at construction.
type BrushOption func(*BrushShape)

// WithVolume sets the volume type. Brushes are Empty unless told otherwise.
func WithVolume(v VolumeType) BrushOption {
	return func(s *BrushShape) { s.Volume = v }
}

// WithTransform sets the initial world transform.
func WithTransform(m mgl64.Mat4) BrushOption {
	return func(s *BrushShape) { s.transform = m }
}

// WithMaterial sets the shape material used by faces without an override.
func WithMaterial(m *Material) BrushOption {
	return func(s *BrushShape) { s.Material = m }
}

// WithColor sets the vertex color written to exported meshes.
func WithColor(rgba uint32) BrushOption {
	return func(s *BrushShape) { s.Color = rgba }
}

// WithName attaches a lookup name.
func WithName(name string) BrushOption {
	return func(s *BrushShape) { s.Name = name }
}

// WithAutoUV toggles world-projected UVs. When off, UVs are projected once
// in shape space and follow the brush around.
func WithAutoUV(on bool) BrushOption {
	return func(s *BrushShape) { s.AutoUV = on }
}

func newShape(opts []BrushOption) *BrushShape {
	s := &BrushShape{
		Volume:    Empty,
		Color:     0xffffffff,
		AutoUV:    true,
		transform: mgl64.Ident4(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewBrush builds a convex brush from at least four planes. The planes are
// in shape space; WithTransform places the brush in the world.
func NewBrush(planes []Plane, opts ...BrushOption) (*BrushShape, error) {
	s := newShape(opts)
	if !invertible(s.transform) {
		return nil, ErrSingularTransform
	}
	if err := s.initFromPlanes(planes); err != nil {
		return nil, err
	}
	s.updateWorld()
	return s, nil
}

// UID returns the scene-assigned creation order id. It is zero until the
// shape is added to a scene.
func (s *BrushShape) UID() uint64 { return s.uid }

// Scene returns the owning scene, or nil.
func (s *BrushShape) Scene() *Scene { return s.scene }

// Transform returns the world transform.
func (s *BrushShape) Transform() mgl64.Mat4 { return s.transform }

// AABB returns the epsilon-expanded world bounds.
func (s *BrushShape) AABB() AABB { return s.aabb }

// WorldVertices returns the cached world positions of the control points.
func (s *BrushShape) WorldVertices() []mgl64.Vec3 { return s.world }

// Intersecting returns the overlapping shapes in uid order.
func (s *BrushShape) Intersecting() []*BrushShape {
	return slices.Clone(s.intersecting)
}

// Planes returns the shape-space planes of the faces, in face order.
func (s *BrushShape) Planes() []Plane {
	return lo.Map(s.Faces, func(f Face, _ int) Plane { return f.LocalPlane() })
}

// WorldPlanes returns the world-space planes of the faces, in face order.
func (s *BrushShape) WorldPlanes() []Plane {
	return lo.Map(s.Faces, func(f Face, _ int) Plane { return f.WorldPlane() })
}

// FaceMaterial returns the material a face renders with.
func (s *BrushShape) FaceMaterial(fi int) *Material {
	if m := s.Faces[fi].Material; m != nil {
		return m
	}
	return s.Material
}

// SetTransform replaces the world transform and marks the shape for update.
func (s *BrushShape) SetTransform(m mgl64.Mat4) error {
	if !invertible(m) {
		return ErrSingularTransform
	}
	s.transform = m
	s.updateWorld()
	s.invalidate()
	return nil
}

// Translate moves the shape by d in world space.
func (s *BrushShape) Translate(d mgl64.Vec3) {
	s.transform = mgl64.Translate3D(d.X(), d.Y(), d.Z()).Mul4(s.transform)
	s.updateWorld()
	s.invalidate()
}

// Rotate spins the shape by angle radians about axis, around the center of
// its world bounds.
func (s *BrushShape) Rotate(angle float64, axis mgl64.Vec3) error {
	if axis.LenSqr() < solveEpsilon {
		return fmt.Errorf("csg: rotate: zero axis")
	}
	c := s.aabb.Center()
	m := mgl64.Translate3D(c.X(), c.Y(), c.Z()).
		Mul4(mgl64.HomogRotate3D(angle, axis.Normalize())).
		Mul4(mgl64.Translate3D(-c.X(), -c.Y(), -c.Z()))
	s.transform = m.Mul4(s.transform)
	s.updateWorld()
	s.invalidate()
	return nil
}

// SetVolume changes the volume type and marks the shape for update.
func (s *BrushShape) SetVolume(v VolumeType) {
	s.Volume = v
	s.invalidate()
}

func (s *BrushShape) invalidate() {
	if s.scene != nil {
		s.scene.Invalidate(s)
	}
}

// Clone returns a detached deep copy: same geometry and surface settings,
// no uid, no scene, no adjacency and no fragments.
func (s *BrushShape) Clone() *BrushShape {
	c := &BrushShape{
		Name:      s.Name,
		Volume:    s.Volume,
		Material:  s.Material,
		Color:     s.Color,
		AutoUV:    s.AutoUV,
		transform: s.transform,
	}
	c.copyGeometry(s)
	c.updateWorld()
	return c
}

// copyGeometry deep copies the vertices and faces of src into s.
func (s *BrushShape) copyGeometry(src *BrushShape) {
	s.Vertices = make([]Vertex, len(src.Vertices))
	for i, v := range src.Vertices {
		s.Vertices[i] = Vertex{Pos: v.Pos, Faces: slices.Clone(v.Faces)}
	}
	s.Faces = make([]Face, len(src.Faces))
	for i, f := range src.Faces {
		f.Verts = slices.Clone(f.Verts)
		f.UVs = slices.Clone(f.UVs)
		f.Normals = slices.Clone(f.Normals)
		f.Fragments = nil
		s.Faces[i] = f
	}
}

// updateWorld re-derives everything that depends on the transform: world
// vertex positions, face planes, bounds, midpoints and auto UVs.
func (s *BrushShape) updateWorld() {
	s.normalMat = mgl64.Mat4Normal(s.transform)
	s.world = make([]mgl64.Vec3, len(s.Vertices))
	box := EmptyAABB()
	for i, v := range s.Vertices {
		p := mgl64.TransformCoordinate(v.Pos, s.transform)
		s.world[i] = p
		box = box.Extend(p)
	}
	s.aabb = box.Expand(Epsilon)

	for fi := range s.Faces {
		f := &s.Faces[fi]
		wp := f.LocalPlane().Transform(s.transform)
		f.N, f.D = wp.N, wp.D

		fb := EmptyAABB()
		var mid mgl64.Vec3
		for _, vi := range f.Verts {
			fb = fb.Extend(s.world[vi])
			mid = mid.Add(s.world[vi])
		}
		if n := len(f.Verts); n > 0 {
			mid = mid.Mul(1 / float64(n))
		}
		f.AABB = fb.Expand(Epsilon)
		f.Mid = mid

		if s.AutoUV {
			f.UVs = lo.Map(f.Verts, func(vi int, _ int) mgl64.Vec2 {
				return planarUV(s.world[vi], f.N, f.UVScale, f.UVOffset)
			})
		}
	}
}

// worldNormal maps a shape-space direction to a unit world direction.
func (s *BrushShape) worldNormal(n mgl64.Vec3) mgl64.Vec3 {
	return safeNormalize(s.normalMat.Mul3x1(n), n)
}

// mirrored reports whether the transform flips handedness.
func (s *BrushShape) mirrored() bool {
	return s.transform.Det() < 0
}

func invertible(m mgl64.Mat4) bool {
	return math.Abs(m.Det()) > solveEpsilon
}

// safeNormalize returns v scaled to unit length, or fallback when v is
// (nearly) zero.
func safeNormalize(v, fallback mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < solveEpsilon {
		return fallback
	}
	return v.Mul(1 / l)
}

// planarUV projects p onto the axis plane most facing n.
func planarUV(p, n mgl64.Vec3, scale, offset mgl64.Vec2) mgl64.Vec2 {
	ax, ay, az := math.Abs(n.X()), math.Abs(n.Y()), math.Abs(n.Z())
	var u, v float64
	switch {
	case ax >= ay && ax >= az:
		u, v = p.Y(), p.Z()
	case ay >= az:
		u, v = p.X(), p.Z()
	default:
		u, v = p.X(), p.Y()
	}
	return mgl64.Vec2{u*scale[0] + offset[0], v*scale[1] + offset[1]}
}
