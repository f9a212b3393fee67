//go:build manifold

// Package manifold is a cgo preview kernel backed by the Manifold library
// (https://github.com/elalish/manifold). Unlike the sdfx kernel it meshes
// brushes exactly, so a preview shows the same sharp corners the carved
// scene has.
//
// The Manifold C bindings (manifoldc) must be installed under /usr/local.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/chazu/quarry/pkg/kernel"
)

var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// manifoldSolid wraps a C ManifoldManifold pointer.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	bbox := C.manifold_bounding_box(C.manifold_alloc_box(), s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

// newSolid takes ownership of ptr. It is freed when the solid is collected.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// ManifoldKernel implements kernel.Kernel with Manifold booleans.
type ManifoldKernel struct{}

// New returns a ManifoldKernel.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// cube returns a raw axis-aligned box spanning min to max. The caller owns
// the result.
func cube(min, max [3]float64) *C.ManifoldManifold {
	c := C.manifold_cube(C.manifold_alloc_manifold(),
		C.double(max[0]-min[0]), C.double(max[1]-min[1]), C.double(max[2]-min[2]),
		C.int(0), // corner at the origin
	)
	defer C.manifold_delete_manifold(c)
	return C.manifold_translate(C.manifold_alloc_manifold(), c,
		C.double(min[0]), C.double(min[1]), C.double(min[2]))
}

func (k *ManifoldKernel) Box(min, max [3]float64) kernel.Solid {
	return newSolid(cube(min, max))
}

// Brush trims the bounding box by every plane. Manifold keeps the side a
// trim normal points into, so each half-space is passed negated.
func (k *ManifoldKernel) Brush(planes []kernel.HalfSpace, min, max [3]float64) kernel.Solid {
	ptr := cube(min, max)
	for _, p := range planes {
		next := C.manifold_trim_by_plane(C.manifold_alloc_manifold(), ptr,
			C.double(-p.Normal[0]), C.double(-p.Normal[1]), C.double(-p.Normal[2]),
			C.double(-p.Dist),
		)
		C.manifold_delete_manifold(ptr)
		ptr = next
	}
	return newSolid(ptr)
}

func (k *ManifoldKernel) Union(a, b kernel.Solid) kernel.Solid {
	sa, sb := a.(*manifoldSolid), b.(*manifoldSolid)
	return newSolid(C.manifold_union(C.manifold_alloc_manifold(), sa.ptr, sb.ptr))
}

// Difference returns a minus b.
func (k *ManifoldKernel) Difference(a, b kernel.Solid) kernel.Solid {
	sa, sb := a.(*manifoldSolid), b.(*manifoldSolid)
	return newSolid(C.manifold_difference(C.manifold_alloc_manifold(), sa.ptr, sb.ptr))
}

func (k *ManifoldKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	sa, sb := a.(*manifoldSolid), b.(*manifoldSolid)
	return newSolid(C.manifold_intersection(C.manifold_alloc_manifold(), sa.ptr, sb.ptr))
}

// ToMesh extracts the solid's MeshGL. Positions come first in each vertex's
// property run; normals follow when the run has room for them.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ms := s.(*manifoldSolid)

	meshGL := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), ms.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return &kernel.Mesh{}, nil
	}
	numProp := int(C.manifold_meshgl_num_prop(meshGL))

	props := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), meshGL)

	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&indices[0])), meshGL)

	vertices := make([]float32, numVert*3)
	hasNormals := numProp >= 6
	var normals []float32
	if hasNormals {
		normals = make([]float32, numVert*3)
	}
	for i := 0; i < numVert; i++ {
		base := i * numProp
		copy(vertices[i*3:i*3+3], props[base:base+3])
		if hasNormals {
			copy(normals[i*3:i*3+3], props[base+3:base+6])
		}
	}
	if !hasNormals {
		normals = vertexNormals(vertices, indices)
	}

	mesh := &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}
	if mesh.VertexCount() != numVert {
		return nil, fmt.Errorf("manifold: vertex count mismatch: got %d, expected %d",
			mesh.VertexCount(), numVert)
	}
	return mesh, nil
}

// vertexNormals averages the area-weighted normals of the triangles around
// each vertex.
func vertexNormals(vertices []float32, indices []uint32) []float32 {
	normals := make([]float32, len(vertices))
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		ax, ay, az := float64(vertices[i0*3]), float64(vertices[i0*3+1]), float64(vertices[i0*3+2])
		bx, by, bz := float64(vertices[i1*3]), float64(vertices[i1*3+1]), float64(vertices[i1*3+2])
		cx, cy, cz := float64(vertices[i2*3]), float64(vertices[i2*3+1]), float64(vertices[i2*3+2])

		e1x, e1y, e1z := bx-ax, by-ay, bz-az
		e2x, e2y, e2z := cx-ax, cy-ay, cz-az
		nx := float32(e1y*e2z - e1z*e2y)
		ny := float32(e1z*e2x - e1x*e2z)
		nz := float32(e1x*e2y - e1y*e2x)

		for _, idx := range [3]uint32{i0, i1, i2} {
			normals[idx*3+0] += nx
			normals[idx*3+1] += ny
			normals[idx*3+2] += nz
		}
	}
	for i := 0; i+2 < len(normals); i += 3 {
		nx, ny, nz := float64(normals[i]), float64(normals[i+1]), float64(normals[i+2])
		if l := math.Sqrt(nx*nx + ny*ny + nz*nz); l > 1e-12 {
			normals[i] = float32(nx / l)
			normals[i+1] = float32(ny / l)
			normals[i+2] = float32(nz / l)
		}
	}
	return normals
}
