package scenefile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/quarry/pkg/csg"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScene(t *testing.T) *csg.Scene {
	t.Helper()
	sc := csg.NewScene()
	rock := sc.Material("rock", "materials/rock")
	trim := sc.Material("trim", "materials/trim")

	outer, err := csg.NewBrush(csg.BoxPlanes(mgl64.Vec3{8, 8, 8}),
		csg.WithName("rock"), csg.WithVolume(csg.Solid), csg.WithMaterial(rock))
	require.NoError(t, err)
	room, err := csg.NewBrush(csg.BoxPlanes(mgl64.Vec3{4, 4, 3}),
		csg.WithName("room"), csg.WithColor(0x80ff80ff))
	require.NoError(t, err)
	room.Faces[5].Material = trim

	pillar, err := csg.NewBrush(csg.CylinderPlanes(0.5, 3, 8),
		csg.WithVolume(csg.Solid), csg.WithAutoUV(false),
		csg.WithTransform(mgl64.Translate3D(1, 1, 0)))
	require.NoError(t, err)

	for _, s := range []*csg.BrushShape{outer, room, pillar} {
		require.NoError(t, sc.AddShape(s))
	}
	sc.Update()
	return sc
}

func requireSameScene(t *testing.T, want, got *csg.Scene) {
	t.Helper()
	require.False(t, got.Pending())
	assert.Equal(t, want.Document(), got.Document())
	require.Equal(t, want.Len(), got.Len())
	for i, ws := range want.Shapes() {
		gs := got.Shapes()[i]
		assert.Equal(t, ws.UID(), gs.UID())
		for fi := range ws.Faces {
			assert.Len(t, gs.Faces[fi].Fragments, len(ws.Faces[fi].Fragments), "shape %d face %d", i, fi)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	sc := testScene(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sc, false))
	assert.NotContains(t, buf.String(), "\n  ")

	loaded := csg.NewScene()
	require.NoError(t, ReadJSON(&buf, loaded))
	loaded.Update()
	requireSameScene(t, sc, loaded)
}

func TestJSONPretty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testScene(t), true))
	assert.Contains(t, buf.String(), "\n  \"materials\": [")
	assert.Contains(t, buf.String(), "\"render_material\": \"materials/rock\"")
}

func TestMsgpackRoundTrip(t *testing.T) {
	sc := testScene(t)

	var buf bytes.Buffer
	require.NoError(t, WriteMsgpack(&buf, sc))

	var js bytes.Buffer
	require.NoError(t, WriteJSON(&js, sc, false))
	assert.Less(t, buf.Len(), js.Len())

	loaded := csg.NewScene()
	require.NoError(t, ReadMsgpack(&buf, loaded))
	loaded.Update()
	requireSameScene(t, sc, loaded)
}

func TestSaveLoad(t *testing.T) {
	sc := testScene(t)
	dir := t.TempDir()

	for _, name := range []string{"level.json", "level.qsnap", "LEVEL.JSON"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Save(path, sc))

			loaded := csg.NewScene()
			require.NoError(t, Load(path, loaded))
			loaded.Update()
			requireSameScene(t, sc, loaded)
		})
	}
}

func TestUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "level.obj")

	require.ErrorIs(t, Save(path, testScene(t)), ErrUnknownFormat)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.ErrorIs(t, Load(path, csg.NewScene()), ErrUnknownFormat)
}

func TestLoadMissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "missing.json"), csg.NewScene())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "scenefile: "))
}

func TestReadRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"materials": [`},
		{"unknown field", `{"materials": [], "shapes": [], "entities": []}`},
		{"empty material name", `{"materials": [{"name": "", "render_material": "x"}], "shapes": []}`},
		{"bad volume", `{"materials": [], "shapes": [{"volume_type": 7, "faces": [], "control_points": []}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := testScene(t)
			before := sc.Document()

			require.Error(t, ReadJSON(strings.NewReader(tt.doc), sc))
			assert.Equal(t, before, sc.Document())
			assert.False(t, sc.Pending())
		})
	}
}
