//go:build manifold

package manifold

import (
	"math"
	"testing"

	"github.com/chazu/quarry/pkg/kernel"
)

func mustNew(t *testing.T) kernel.Kernel {
	t.Helper()
	k, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k
}

func checkBounds(t *testing.T, s kernel.Solid, wantMin, wantMax [3]float64) {
	t.Helper()
	min, max := s.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > 1e-6 {
			t.Errorf("min[%d] = %f, want %f", i, min[i], wantMin[i])
		}
		if math.Abs(max[i]-wantMax[i]) > 1e-6 {
			t.Errorf("max[%d] = %f, want %f", i, max[i], wantMax[i])
		}
	}
}

func TestBox(t *testing.T) {
	k := mustNew(t)
	s := k.Box([3]float64{-10, 0, 5}, [3]float64{90, 50, 30})
	checkBounds(t, s, [3]float64{-10, 0, 5}, [3]float64{90, 50, 30})
}

func TestBrushTrimsBounds(t *testing.T) {
	k := mustNew(t)
	// Wedge: the unit cube cut by x + z <= 1.
	n := 1 / math.Sqrt(2)
	planes := []kernel.HalfSpace{{Normal: [3]float64{n, 0, n}, Dist: n}}
	s := k.Brush(planes, [3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	checkBounds(t, s, [3]float64{0, 0, 0}, [3]float64{1, 1, 1})

	// Half the cube along x.
	half := k.Brush([]kernel.HalfSpace{{Normal: [3]float64{1, 0, 0}, Dist: 0.5}},
		[3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	checkBounds(t, half, [3]float64{0, 0, 0}, [3]float64{0.5, 1, 1})
}

func TestDifference(t *testing.T) {
	k := mustNew(t)
	world := k.Box([3]float64{-5, -5, -5}, [3]float64{5, 5, 5})
	room := k.Box([3]float64{-2, -2, -2}, [3]float64{2, 2, 2})
	result := k.Difference(world, room)
	checkBounds(t, result, [3]float64{-5, -5, -5}, [3]float64{5, 5, 5})

	inner := k.Intersection(room, k.Box([3]float64{0, 0, 0}, [3]float64{9, 9, 9}))
	checkBounds(t, inner, [3]float64{0, 0, 0}, [3]float64{2, 2, 2})
}

func TestUnion(t *testing.T) {
	k := mustNew(t)
	a := k.Box([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	b := k.Box([3]float64{0.5, 0, 0}, [3]float64{3, 1, 1})
	checkBounds(t, k.Union(a, b), [3]float64{0, 0, 0}, [3]float64{3, 1, 1})
}

func TestToMesh(t *testing.T) {
	k := mustNew(t)
	mesh, err := k.ToMesh(k.Box([3]float64{0, 0, 0}, [3]float64{10, 10, 10}))
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("ToMesh() returned empty mesh for a box")
	}
	if mesh.TriangleCount() < 12 {
		t.Errorf("triangle count = %d, want >= 12", mesh.TriangleCount())
	}
	if len(mesh.Normals) != len(mesh.Vertices) {
		t.Errorf("normals length = %d, vertices length = %d, want equal",
			len(mesh.Normals), len(mesh.Vertices))
	}
}

func TestVertexNormals(t *testing.T) {
	// One triangle in the xy plane wound counter-clockwise.
	verts := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	normals := vertexNormals(verts, []uint32{0, 1, 2})
	for i := 0; i < 3; i++ {
		if normals[i*3+2] != 1 {
			t.Errorf("vertex %d normal = %v, want +z", i, normals[i*3:i*3+3])
		}
	}
}
