// Package tessellate turns the visible fragments of a brush scene into
// triangle meshes, one mesh per material. It also folds a scene into a
// single kernel solid for reference previews.
package tessellate

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chazu/quarry/pkg/csg"
	"github.com/chazu/quarry/pkg/kernel"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// ErrPending is returned when the scene has edits that Update has not
// resolved yet.
var ErrPending = errors.New("tessellate: scene has pending edits")

// meshBuilder accumulates the triangles of one material group.
type meshBuilder struct {
	material string

	pos    []mgl64.Vec3
	normal []mgl64.Vec3
	uv     []mgl64.Vec2
	color  []uint32
	tan    []mgl64.Vec3
	bitan  []mgl64.Vec3
	index  []uint32
}

func newMeshBuilder(material string) *meshBuilder {
	return &meshBuilder{material: material}
}

// addFragment fans the fragment polygon into triangles. When flip is set
// the winding and normals are reversed so the surface faces the other way.
func (b *meshBuilder) addFragment(fr *csg.Fragment, color uint32, flip bool) {
	base := uint32(len(b.pos))
	for _, v := range fr.Verts {
		n := v.Normal
		if flip {
			n = n.Mul(-1)
		}
		b.pos = append(b.pos, v.Pos)
		b.normal = append(b.normal, n)
		b.uv = append(b.uv, v.UV)
		b.color = append(b.color, color)
		b.tan = append(b.tan, mgl64.Vec3{})
		b.bitan = append(b.bitan, mgl64.Vec3{})
	}
	for i := 1; i+1 < len(fr.Verts); i++ {
		a, c, d := base, base+uint32(i), base+uint32(i+1)
		if flip {
			c, d = d, c
		}
		b.index = append(b.index, a, c, d)
		b.accumulateTangents(a, c, d)
	}
}

// accumulateTangents adds the UV-space tangent frame of one triangle to
// its corners.
func (b *meshBuilder) accumulateTangents(i0, i1, i2 uint32) {
	e1 := b.pos[i1].Sub(b.pos[i0])
	e2 := b.pos[i2].Sub(b.pos[i0])
	d1 := b.uv[i1].Sub(b.uv[i0])
	d2 := b.uv[i2].Sub(b.uv[i0])

	det := d1.X()*d2.Y() - d2.X()*d1.Y()
	if det > -1e-12 && det < 1e-12 {
		return
	}
	r := 1 / det
	t := e1.Mul(d2.Y()).Sub(e2.Mul(d1.Y())).Mul(r)
	bt := e2.Mul(d1.X()).Sub(e1.Mul(d2.X())).Mul(r)
	for _, i := range []uint32{i0, i1, i2} {
		b.tan[i] = b.tan[i].Add(t)
		b.bitan[i] = b.bitan[i].Add(bt)
	}
}

// build orthonormalizes the tangent frames and flattens everything into a
// kernel.Mesh.
func (b *meshBuilder) build() *kernel.Mesh {
	m := &kernel.Mesh{
		Material:   b.material,
		Vertices:   make([]float32, 0, len(b.pos)*3),
		Normals:    make([]float32, 0, len(b.pos)*3),
		Tangents:   make([]float32, 0, len(b.pos)*3),
		Bitangents: make([]float32, 0, len(b.pos)*3),
		UVs:        make([]float32, 0, len(b.pos)*2),
		Colors:     b.color,
		Indices:    b.index,
	}
	for i, p := range b.pos {
		n := b.normal[i]
		t, bt := tangentFrame(n, b.tan[i], b.bitan[i])
		m.Vertices = appendVec3(m.Vertices, p)
		m.Normals = appendVec3(m.Normals, n)
		m.Tangents = appendVec3(m.Tangents, t)
		m.Bitangents = appendVec3(m.Bitangents, bt)
		m.UVs = append(m.UVs, float32(b.uv[i].X()), float32(b.uv[i].Y()))
	}
	return m
}

// tangentFrame Gram-Schmidt orthogonalizes the accumulated tangent against
// n and derives a bitangent with the accumulated handedness. Corners with
// no usable UV gradient get an arbitrary frame around n.
func tangentFrame(n, t, bt mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	t = t.Sub(n.Mul(n.Dot(t)))
	if t.Len() < 1e-9 {
		t = mgl64.Vec3{1, 0, 0}
		if n.X() > 0.9 || n.X() < -0.9 {
			t = mgl64.Vec3{0, 1, 0}
		}
		t = t.Sub(n.Mul(n.Dot(t)))
	}
	t = t.Normalize()
	b := n.Cross(t)
	if b.Dot(bt) < 0 {
		b = b.Mul(-1)
	}
	return t, b
}

func appendVec3(dst []float32, v mgl64.Vec3) []float32 {
	return append(dst, float32(v.X()), float32(v.Y()), float32(v.Z()))
}

// Tessellate produces one mesh per material used by a visible fragment,
// sorted by material name. Faces without a material are grouped under the
// empty name. Every visible surface faces into its empty side. The
// tessellator is read-only and never mutates the scene.
func Tessellate(s *csg.Scene) ([]*kernel.Mesh, error) {
	if s == nil {
		return nil, nil
	}
	if s.Pending() {
		return nil, ErrPending
	}

	groups := make(map[string]*meshBuilder)
	for _, shape := range s.Shapes() {
		if err := tessellateShape(shape, groups); err != nil {
			return nil, fmt.Errorf("tessellate: shape %d: %w", shape.UID(), err)
		}
	}

	names := lo.Keys(groups)
	slices.Sort(names)
	return lo.Map(names, func(name string, _ int) *kernel.Mesh {
		return groups[name].build()
	}), nil
}

// tessellateShape adds the visible fragments of every face of shape.
func tessellateShape(shape *csg.BrushShape, groups map[string]*meshBuilder) error {
	for fi := range shape.Faces {
		f := &shape.Faces[fi]
		for k := range f.Fragments {
			fr := &f.Fragments[k]
			if !fr.Visible() {
				continue
			}
			if len(fr.Verts) < 3 {
				return fmt.Errorf("face %d fragment %d has %d vertices", fi, k, len(fr.Verts))
			}
			var name string
			if m := shape.FaceMaterial(fi); m != nil {
				name = m.Name
			}
			b, ok := groups[name]
			if !ok {
				b = newMeshBuilder(name)
				groups[name] = b
			}
			flip := fr.Back == csg.Empty && fr.Front != csg.Empty
			b.addFragment(fr, shape.Color, flip)
		}
	}
	return nil
}

// previewMargin pads the world box around the scene so the outermost
// brushes do not touch its faces.
const previewMargin = 1.0

// PreviewMaterial names the mesh Preview returns.
const PreviewMaterial = "preview"

type previewConfig struct {
	margin float64
	region *csg.AABB
}

// PreviewOption configures Preview.
type PreviewOption func(*previewConfig)

// WithMargin sets the padding between the scene bounds and the world box.
func WithMargin(m float64) PreviewOption {
	return func(c *previewConfig) { c.margin = m }
}

// WithRegion clips the preview to box.
func WithRegion(box csg.AABB) PreviewOption {
	return func(c *previewConfig) { c.region = &box }
}

// Preview evaluates the scene with k as one solid: a box of rock around
// the scene bounds, with each brush unioned (Solid) or subtracted (Empty)
// in uid order, and meshes it. The result approximates the surface
// Tessellate produces and serves as an independent check of it.
func Preview(s *csg.Scene, k kernel.Kernel, opts ...PreviewOption) (*kernel.Mesh, error) {
	cfg := previewConfig{margin: previewMargin}
	for _, opt := range opts {
		opt(&cfg)
	}
	if s.Pending() {
		return nil, ErrPending
	}

	bounds := s.Bounds()
	if bounds.IsEmpty() {
		return &kernel.Mesh{Material: PreviewMaterial}, nil
	}
	world := bounds.Expand(cfg.margin)
	solid := k.Box(arr(world.Min), arr(world.Max))

	for _, shape := range s.Shapes() {
		b := brushSolid(k, shape)
		switch shape.Volume {
		case csg.Solid:
			solid = k.Union(solid, b)
		case csg.Empty:
			solid = k.Difference(solid, b)
		default:
			return nil, fmt.Errorf("tessellate: shape %d: unknown volume %v", shape.UID(), shape.Volume)
		}
	}
	if cfg.region != nil {
		solid = k.Intersection(solid, k.Box(arr(cfg.region.Min), arr(cfg.region.Max)))
	}

	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: preview mesh: %w", err)
	}
	mesh.Material = PreviewMaterial
	return mesh, nil
}

// brushSolid converts a shape's world planes into a kernel brush.
func brushSolid(k kernel.Kernel, shape *csg.BrushShape) kernel.Solid {
	planes := lo.Map(shape.WorldPlanes(), func(p csg.Plane, _ int) kernel.HalfSpace {
		return kernel.HalfSpace{Normal: arr(p.N), Dist: p.D}
	})
	box := shape.AABB()
	return k.Brush(planes, arr(box.Min), arr(box.Max))
}

func arr(v mgl64.Vec3) [3]float64 {
	return [3]float64{v.X(), v.Y(), v.Z()}
}
