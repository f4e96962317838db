package kernel

// Mesh is a triangle mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // which primitive or body this came from
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

// Vertex returns vertex i in float64.
func (m *Mesh) Vertex(i int) [3]float64 {
	return [3]float64{
		float64(m.Vertices[i*3]),
		float64(m.Vertices[i*3+1]),
		float64(m.Vertices[i*3+2]),
	}
}

// Triangle returns the three corners of triangle t.
func (m *Mesh) Triangle(t int) [3][3]float64 {
	return [3][3]float64{
		m.Vertex(int(m.Indices[t*3])),
		m.Vertex(int(m.Indices[t*3+1])),
		m.Vertex(int(m.Indices[t*3+2])),
	}
}

// Volume returns the enclosed volume of a closed, outward-wound mesh
// (sum of signed tetrahedra against the origin).
func (m *Mesh) Volume() float64 {
	v := 0.0
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		a, b, c := tri[0], tri[1], tri[2]
		v += a[0]*(b[1]*c[2]-b[2]*c[1]) -
			a[1]*(b[0]*c[2]-b[2]*c[0]) +
			a[2]*(b[0]*c[1]-b[1]*c[0])
	}
	return v / 6
}

// Merge appends other's triangles to m.
func (m *Mesh) Merge(other *Mesh) {
	base := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, other.Vertices...)
	m.Normals = append(m.Normals, other.Normals...)
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, base+idx)
	}
}
