package csg

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// Document is the persisted form of a Scene. It holds topology as saved;
// loading trusts it instead of re-deriving faces from planes.
type Document struct {
	Materials []MaterialDoc `json:"materials"`
	Shapes    []ShapeDoc    `json:"shapes"`
}

// MaterialDoc is a persisted material.
type MaterialDoc struct {
	Name           string `json:"name"`
	RenderMaterial string `json:"render_material"`
}

// ShapeDoc is a persisted brush.
type ShapeDoc struct {
	Name          string            `json:"name,omitempty"`
	Transform     mgl64.Mat4        `json:"transform"`
	RGBA          uint32            `json:"rgba"`
	VolumeType    int               `json:"volume_type"`
	Material      string            `json:"material,omitempty"`
	AutoUV        bool              `json:"auto_uv"`
	ControlPoints []ControlPointDoc `json:"control_points"`
	Faces         []FaceDoc         `json:"faces"`
}

// ControlPointDoc is a persisted control point. UV and Normal are the
// corner values on the first face the point belongs to.
type ControlPointDoc struct {
	Pos    mgl64.Vec3 `json:"pos"`
	UV     mgl64.Vec2 `json:"uv"`
	Normal mgl64.Vec3 `json:"normal"`
	Index  int        `json:"index"`
}

// FaceDoc is a persisted face: its local plane, surface parameters and
// the ordered ring of control point indices.
type FaceDoc struct {
	D        float64      `json:"D"`
	N        mgl64.Vec3   `json:"N"`
	UVOffset mgl64.Vec2   `json:"uv_offset"`
	UVScale  mgl64.Vec2   `json:"uv_scale"`
	Normals  []mgl64.Vec3 `json:"normals"`
	UV       []mgl64.Vec2 `json:"uv"`
	Material string       `json:"material,omitempty"`
	CP       []int        `json:"cp"`
}

// Document captures the scene's materials and shapes in insertion order.
func (sc *Scene) Document() *Document {
	doc := &Document{
		Materials: lo.Map(sc.materials, func(m *Material, _ int) MaterialDoc {
			return MaterialDoc{Name: m.Name, RenderMaterial: m.RenderMaterial}
		}),
		Shapes: make([]ShapeDoc, 0, len(sc.shapes)),
	}
	for _, s := range sc.shapes {
		doc.Shapes = append(doc.Shapes, shapeDoc(s))
	}
	return doc
}

func shapeDoc(s *BrushShape) ShapeDoc {
	sd := ShapeDoc{
		Name:       s.Name,
		Transform:  s.transform,
		RGBA:       s.Color,
		VolumeType: int(s.Volume),
		Material:   materialName(s.Material),
		AutoUV:     s.AutoUV,
	}
	sd.ControlPoints = make([]ControlPointDoc, len(s.Vertices))
	for vi, v := range s.Vertices {
		sd.ControlPoints[vi] = ControlPointDoc{Pos: v.Pos, Index: vi}
	}
	seen := make([]bool, len(s.Vertices))
	sd.Faces = make([]FaceDoc, len(s.Faces))
	for fi, f := range s.Faces {
		for k, vi := range f.Verts {
			if seen[vi] {
				continue
			}
			seen[vi] = true
			if k < len(f.UVs) {
				sd.ControlPoints[vi].UV = f.UVs[k]
			}
			if k < len(f.Normals) {
				sd.ControlPoints[vi].Normal = f.Normals[k]
			}
		}
		var fm string
		if f.Material != nil {
			fm = f.Material.Name
		}
		sd.Faces[fi] = FaceDoc{
			D:        f.LocalD,
			N:        f.LocalN,
			UVOffset: f.UVOffset,
			UVScale:  f.UVScale,
			Normals:  append([]mgl64.Vec3(nil), f.Normals...),
			UV:       append([]mgl64.Vec2(nil), f.UVs...),
			Material: fm,
			CP:       append([]int(nil), f.Verts...),
		}
	}
	return sd
}

// Restore replaces the scene contents with doc. The document is loaded
// into a staging scene first; on any error the receiver is left as it was.
// On success the previous shapes are detached.
// Restored shapes are invalidated and need an Update before queries.
func (sc *Scene) Restore(doc *Document) error {
	staged := NewScene(WithLogger(sc.log))
	for _, md := range doc.Materials {
		if md.Name == "" {
			return fmt.Errorf("csg: restore: material with empty name")
		}
		staged.Material(md.Name, md.RenderMaterial)
	}
	for i, sd := range doc.Shapes {
		s, err := staged.restoreShape(sd)
		if err != nil {
			return fmt.Errorf("csg: restore shape %d: %w", i, err)
		}
		if err := staged.AddShape(s); err != nil {
			return fmt.Errorf("csg: restore shape %d: %w", i, err)
		}
	}

	for _, s := range sc.shapes {
		s.detach()
	}
	*sc = *staged
	for _, s := range sc.shapes {
		s.scene = sc
	}
	return nil
}

// restoreShape rebuilds a brush from its persisted topology.
func (sc *Scene) restoreShape(sd ShapeDoc) (*BrushShape, error) {
	if sd.VolumeType != int(Solid) && sd.VolumeType != int(Empty) {
		return nil, fmt.Errorf("unknown volume type %d", sd.VolumeType)
	}
	if !invertible(sd.Transform) {
		return nil, ErrSingularTransform
	}
	if len(sd.Faces) < 4 {
		return nil, fmt.Errorf("%w: %d faces", ErrDegenerateBrush, len(sd.Faces))
	}

	s := newShape([]BrushOption{
		WithName(sd.Name),
		WithTransform(sd.Transform),
		WithColor(sd.RGBA),
		WithVolume(VolumeType(sd.VolumeType)),
		WithAutoUV(sd.AutoUV),
	})
	if sd.Material != "" {
		s.Material = sc.Material(sd.Material, "")
	}

	s.Vertices = make([]Vertex, len(sd.ControlPoints))
	placed := make([]bool, len(sd.ControlPoints))
	for k, cp := range sd.ControlPoints {
		vi := cp.Index
		if vi < 0 || vi >= len(s.Vertices) || placed[vi] {
			return nil, fmt.Errorf("control point %d: bad index %d", k, vi)
		}
		placed[vi] = true
		s.Vertices[vi] = Vertex{Pos: cp.Pos}
	}

	s.Faces = make([]Face, len(sd.Faces))
	persistedNormals := true
	for fi, fd := range sd.Faces {
		if fd.N.LenSqr() < solveEpsilon {
			return nil, fmt.Errorf("%w: face %d has a zero normal", ErrDegenerateBrush, fi)
		}
		if len(fd.CP) < 3 {
			return nil, fmt.Errorf("%w: face %d has %d vertices", ErrDegenerateBrush, fi, len(fd.CP))
		}
		p := NewPlane(fd.N, fd.D)
		p.UVScale, p.UVOffset = fd.UVScale, fd.UVOffset
		if fd.Material != "" {
			p.Material = sc.Material(fd.Material, "")
		}
		s.Faces[fi] = newFace(p)
		f := &s.Faces[fi]
		for _, vi := range fd.CP {
			if vi < 0 || vi >= len(s.Vertices) {
				return nil, fmt.Errorf("face %d: control point %d out of range", fi, vi)
			}
			if lo.Contains(f.Verts, vi) {
				return nil, fmt.Errorf("face %d: control point %d repeated", fi, vi)
			}
			f.Verts = append(f.Verts, vi)
			s.Vertices[vi].addFace(fi)
		}
		if len(fd.UV) == len(fd.CP) {
			f.UVs = append([]mgl64.Vec2(nil), fd.UV...)
		}
		if len(fd.Normals) == len(fd.CP) {
			f.Normals = append([]mgl64.Vec3(nil), fd.Normals...)
		} else {
			persistedNormals = false
		}
	}

	for fi := range s.Faces {
		s.fixWinding(fi)
		if !s.AutoUV && len(s.Faces[fi].UVs) != len(s.Faces[fi].Verts) {
			s.localUVs(fi)
		}
	}
	if !persistedNormals {
		s.shadeNormals()
	}
	s.updateWorld()
	return s, nil
}
