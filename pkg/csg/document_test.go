package csg

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleScene builds a hollowed rock with a tilted pillar, a trimmed face
// and a locally mapped brush.
func sampleScene(t *testing.T) *Scene {
	t.Helper()
	sc := NewScene()
	rockMat := sc.Material("rock", "textures/rock")
	trim := sc.Material("trim", "textures/trim")

	rock := newBox(t, 8, Solid, mgl64.Vec3{}, WithName("rock"), WithMaterial(rockMat))
	require.NoError(t, sc.AddShape(rock))

	planes := BoxPlanes(mgl64.Vec3{4, 4, 3})
	planes[5].Material = trim
	planes[5].UVScale = mgl64.Vec2{0.5, 0.5}
	room, err := NewBrush(planes, WithName("room"), WithVolume(Empty), WithColor(0x80ff80ff))
	require.NoError(t, err)
	require.NoError(t, sc.AddShape(room))

	pillar, err := NewBrush(CylinderPlanes(0.5, 3, 6),
		WithVolume(Solid),
		WithAutoUV(false),
		WithTransform(mgl64.Translate3D(1, 0.5, 0).Mul4(mgl64.HomogRotate3D(0.2, mgl64.Vec3{1, 0, 0}))),
	)
	require.NoError(t, err)
	require.NoError(t, sc.AddShape(pillar))

	sc.Update()
	return sc
}

func TestDocumentLayout(t *testing.T) {
	sc := sampleScene(t)
	doc := sc.Document()

	require.Len(t, doc.Materials, 2)
	assert.Equal(t, MaterialDoc{Name: "rock", RenderMaterial: "textures/rock"}, doc.Materials[0])

	require.Len(t, doc.Shapes, 3)
	room := doc.Shapes[1]
	assert.Equal(t, "room", room.Name)
	assert.Equal(t, int(Empty), room.VolumeType)
	assert.Equal(t, uint32(0x80ff80ff), room.RGBA)
	assert.Empty(t, room.Material)
	assert.True(t, room.AutoUV)
	assert.Len(t, room.ControlPoints, 8)
	require.Len(t, room.Faces, 6)
	assert.Equal(t, "trim", room.Faces[5].Material)
	assert.Equal(t, mgl64.Vec2{0.5, 0.5}, room.Faces[5].UVScale)
	for i, cp := range room.ControlPoints {
		assert.Equal(t, i, cp.Index)
	}
	for _, f := range room.Faces {
		assert.Len(t, f.CP, 4)
		assert.Len(t, f.UV, 4)
		assert.Len(t, f.Normals, 4)
	}

	assert.Equal(t, "rock", doc.Shapes[0].Material)
	assert.False(t, doc.Shapes[2].AutoUV)
}

func TestDocumentRoundTrip(t *testing.T) {
	sc := sampleScene(t)
	doc := sc.Document()

	restored := NewScene()
	require.NoError(t, restored.Restore(doc))
	assert.True(t, restored.Pending())
	restored.Update()
	requireValid(t, restored)

	want, got := sc.Shapes(), restored.Shapes()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.UID(), g.UID())
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Volume, g.Volume)
		assert.Equal(t, w.Color, g.Color)
		assert.Equal(t, w.Transform(), g.Transform())
		assert.Equal(t, materialName(w.Material), materialName(g.Material))
		assert.Same(t, restored, g.Scene())
		require.Len(t, g.Faces, len(w.Faces))
		for fi := range w.Faces {
			wf, gf := &w.Faces[fi], &g.Faces[fi]
			assert.Equal(t, wf.UVs, gf.UVs, "shape %d face %d", i, fi)
			assert.Equal(t, wf.Normals, gf.Normals)
			assert.Equal(t, materialName(w.FaceMaterial(fi)), materialName(g.FaceMaterial(fi)))
			require.Len(t, gf.Fragments, len(wf.Fragments))
			for k := range wf.Fragments {
				assert.Equal(t, wf.Fragments[k].Positions(), gf.Fragments[k].Positions())
				assert.Equal(t, wf.Fragments[k].Front, gf.Fragments[k].Front)
				assert.Equal(t, wf.Fragments[k].Back, gf.Fragments[k].Back)
			}
		}
	}
	assert.Same(t, restored.LookupMaterial("trim"), got[1].Faces[5].Material)

	// New shapes continue the uid sequence.
	extra := newBox(t, 1, Empty, mgl64.Vec3{})
	require.NoError(t, restored.AddShape(extra))
	assert.Equal(t, uint64(4), extra.UID())
}

func TestRestoreRecomputesMissingNormals(t *testing.T) {
	sc := sampleScene(t)
	doc := sc.Document()
	for i := range doc.Shapes[1].Faces {
		doc.Shapes[1].Faces[i].Normals = nil
	}

	restored := NewScene()
	require.NoError(t, restored.Restore(doc))
	room := restored.Shape("room")
	require.NotNil(t, room)
	for _, f := range room.Faces {
		assert.Len(t, f.Normals, len(f.Verts))
	}
}

func TestRestoreFailureLeavesSceneIntact(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(doc *Document)
	}{
		{"face index out of range", func(doc *Document) { doc.Shapes[1].Faces[0].CP[0] = 99 }},
		{"repeated corner", func(doc *Document) {
			cp := doc.Shapes[1].Faces[0].CP
			cp[1] = cp[0]
		}},
		{"face too small", func(doc *Document) { doc.Shapes[2].Faces[3].CP = doc.Shapes[2].Faces[3].CP[:2] }},
		{"bad volume", func(doc *Document) { doc.Shapes[0].VolumeType = 7 }},
		{"singular transform", func(doc *Document) { doc.Shapes[0].Transform = mgl64.Mat4{} }},
		{"duplicate control point index", func(doc *Document) { doc.Shapes[0].ControlPoints[1].Index = 0 }},
		{"too few faces", func(doc *Document) { doc.Shapes[0].Faces = doc.Shapes[0].Faces[:3] }},
		{"unnamed material", func(doc *Document) { doc.Materials[0].Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := sampleScene(t)
			doc := sc.Document()
			tt.corrupt(doc)

			target := newScene(t, newBox(t, 2, Empty, mgl64.Vec3{}, WithName("keep")))
			require.Error(t, target.Restore(doc))
			assert.Equal(t, 1, target.Len())
			keep := target.Shape("keep")
			require.NotNil(t, keep)
			assert.Same(t, target, keep.Scene())
			assert.Empty(t, target.Materials())
		})
	}
}

func TestRestoreDetachesPreviousShapes(t *testing.T) {
	old := newBox(t, 2, Empty, mgl64.Vec3{10, 0, 0})
	sc := newScene(t, old)

	src := newScene(t, newBox(t, 2, Empty, mgl64.Vec3{}, WithName("restored")))
	require.NoError(t, sc.Restore(src.Document()))
	sc.Update()

	assert.Nil(t, old.Scene())
	assert.Empty(t, old.Intersecting())
	for _, f := range old.Faces {
		assert.Empty(t, f.Fragments)
	}

	// Moving the detached shape onto the restored one must not touch the scene.
	old.Translate(mgl64.Vec3{-10, 0, 0})
	assert.False(t, sc.Pending())
	sc.Update()

	restored := sc.Shape("restored")
	require.NotNil(t, restored)
	assert.Equal(t, 1, sc.Len())
	assert.Empty(t, restored.Intersecting())
	assert.Equal(t, 6, visibleCount(restored))
	requireValid(t, sc)

	// The detached shape can join another scene.
	require.NoError(t, NewScene().AddShape(old))
}
