package csg

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hasError returns true if errs contains an error-severity finding whose
// message contains substr.
func hasError(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityError && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func hasWarning(warns []ValidationWarning, substr string) bool {
	for _, w := range warns {
		if strings.Contains(w.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateCleanScene(t *testing.T) {
	sc := newScene(t,
		newBox(t, 4, Solid, mgl64.Vec3{}),
		newBox(t, 2, Empty, mgl64.Vec3{}),
		newBox(t, 2, Empty, mgl64.Vec3{1, 1, 0}),
	)
	assert.Empty(t, Validate(sc))
	res := ValidateAll(sc)
	assert.Empty(t, res.Errors)
}

func TestValidateVertexOffPlane(t *testing.T) {
	s := newBox(t, 2, Empty, mgl64.Vec3{})
	sc := newScene(t, s)

	_, vi, ok := lo.FindIndexOf(s.Vertices, func(v Vertex) bool { return v.Pos.X() > 0 })
	require.True(t, ok)
	s.Vertices[vi].Pos = s.Vertices[vi].Pos.Add(mgl64.Vec3{0.5, 0, 0})
	errs := Validate(sc)
	assert.True(t, hasError(errs, "off the face plane"))
	assert.True(t, hasError(errs, "lies outside the brush"))
	assert.True(t, hasError(errs, "stale bounds"))
}

func TestValidateTopology(t *testing.T) {
	t.Run("missing back reference", func(t *testing.T) {
		s := newBox(t, 2, Empty, mgl64.Vec3{})
		sc := newScene(t, s)
		vi := s.Faces[0].Verts[0]
		s.Vertices[vi].removeFace(0)
		assert.True(t, hasError(Validate(sc), "does not reference the face"))
	})

	t.Run("face too small", func(t *testing.T) {
		s := newBox(t, 2, Empty, mgl64.Vec3{})
		sc := newScene(t, s)
		s.Faces[0].Verts = s.Faces[0].Verts[:2]
		errs := Validate(sc)
		require.True(t, hasError(errs, "only 2 vertices"))
		assert.Equal(t, s.UID(), errs[0].Shape)
		assert.Equal(t, 0, errs[0].Face)
	})

	t.Run("reflex corner", func(t *testing.T) {
		s := newBox(t, 2, Empty, mgl64.Vec3{})
		sc := newScene(t, s)
		v := s.Faces[0].Verts
		v[1], v[2] = v[2], v[1]
		assert.True(t, hasError(Validate(sc), "reflex corner"))
	})
}

func TestValidateAdjacency(t *testing.T) {
	a := newBox(t, 2, Empty, mgl64.Vec3{})
	b := newBox(t, 2, Empty, mgl64.Vec3{10, 0, 0})
	sc := newScene(t, a, b)

	a.intersecting = []*BrushShape{b}
	assert.True(t, hasError(Validate(sc), "does not list this shape"))

	detached := newBox(t, 2, Empty, mgl64.Vec3{})
	a.intersecting = []*BrushShape{detached}
	assert.True(t, hasError(Validate(sc), "is not in the scene"))
}

func TestValidateAllPartition(t *testing.T) {
	a := newBox(t, 2, Empty, mgl64.Vec3{})
	b := newBox(t, 2, Empty, mgl64.Vec3{1, 0, 0})
	sc := newScene(t, a, b)

	plusY := &a.Faces[2]
	require.Greater(t, len(plusY.Fragments), 1)
	plusY.Fragments = plusY.Fragments[:1]

	res := ValidateAll(sc)
	assert.True(t, hasError(res.Errors, "fragments cover"))
	assert.Empty(t, Validate(sc), "the structural tier does not look at fragments")
}

func TestValidateAllWarnings(t *testing.T) {
	t.Run("pending edits", func(t *testing.T) {
		sc := NewScene()
		require.NoError(t, sc.AddShape(newBox(t, 2, Empty, mgl64.Vec3{})))
		res := ValidateAll(sc)
		assert.Empty(t, res.Errors)
		assert.True(t, hasWarning(res.Warnings, "pending"))
	})

	t.Run("unused material", func(t *testing.T) {
		sc := newScene(t, newBox(t, 2, Empty, mgl64.Vec3{}))
		sc.Material("moss", "")
		res := ValidateAll(sc)
		assert.True(t, hasWarning(res.Warnings, `"moss"`))
	})
}

func TestValidationErrorString(t *testing.T) {
	assert.Equal(t, "[error] shape 3 face 1: bad", ValidationError{Shape: 3, Face: 1, Message: "bad"}.Error())
	assert.Equal(t, "[warning] shape 3: odd", ValidationError{Shape: 3, Face: -1, Message: "odd", Severity: SeverityWarning}.Error())
	assert.Equal(t, "[error] scene", ValidationError{Message: "scene"}.Error())
}
