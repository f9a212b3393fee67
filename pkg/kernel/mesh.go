package kernel

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
// Tangents, bitangents, colors and uvs are per vertex when present.
type Mesh struct {
	Material   string    `json:"material"`             // export group the mesh was built for
	Vertices   []float32 `json:"vertices"`             // [x0,y0,z0, x1,y1,z1, ...]
	Normals    []float32 `json:"normals"`              // [nx0,ny0,nz0, ...]
	Tangents   []float32 `json:"tangents,omitempty"`   // [tx0,ty0,tz0, ...]
	Bitangents []float32 `json:"bitangents,omitempty"` // [bx0,by0,bz0, ...]
	Colors     []uint32  `json:"colors,omitempty"`     // RGBA, red in the high byte
	UVs        []float32 `json:"uvs,omitempty"`        // [u0,v0, u1,v1, ...]
	Indices    []uint32  `json:"indices"`              // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Bounds returns the axis-aligned bounds of the vertices. ok is false for
// an empty mesh.
func (m *Mesh) Bounds() (min, max [3]float32, ok bool) {
	if m.IsEmpty() {
		return min, max, false
	}
	copy(min[:], m.Vertices[:3])
	copy(max[:], m.Vertices[:3])
	for i := 3; i+2 < len(m.Vertices); i += 3 {
		for j := 0; j < 3; j++ {
			v := m.Vertices[i+j]
			if v < min[j] {
				min[j] = v
			}
			if v > max[j] {
				max[j] = v
			}
		}
	}
	return min, max, true
}
