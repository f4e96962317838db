package kernel

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	if !(&Mesh{}).IsEmpty() {
		t.Error("IsEmpty() = false for empty mesh, want true")
	}
	if (&Mesh{Vertices: []float32{1, 2, 3}}).IsEmpty() {
		t.Error("IsEmpty() = true for non-empty mesh, want false")
	}
}

// tetra is the unit right tetrahedron, wound outward.
func tetra() *Mesh {
	return &Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1},
		Indices: []uint32{
			0, 2, 1,
			0, 1, 3,
			0, 3, 2,
			1, 2, 3,
		},
	}
}

func TestMeshVolume(t *testing.T) {
	got := tetra().Volume()
	if math.Abs(got-1.0/6) > 1e-9 {
		t.Errorf("Volume() = %v, want %v", got, 1.0/6)
	}
}

func TestMeshTriangle(t *testing.T) {
	tri := tetra().Triangle(3)
	want := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	if tri != want {
		t.Errorf("Triangle(3) = %v, want %v", tri, want)
	}
}

func TestMeshMerge(t *testing.T) {
	a, b := tetra(), tetra()
	a.Merge(b)
	if a.VertexCount() != 8 || a.TriangleCount() != 8 {
		t.Fatalf("merged counts = %d verts, %d tris; want 8, 8", a.VertexCount(), a.TriangleCount())
	}
	if a.Indices[12] != 4 {
		t.Errorf("merged index = %d, want offset 4", a.Indices[12])
	}
}

// --- Bounding box helpers ---

type boxSolid struct {
	minBB, maxBB [3]float64
}

func (s *boxSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

func TestCenterAndExtent(t *testing.T) {
	s := &boxSolid{minBB: [3]float64{-1, 0, 2}, maxBB: [3]float64{1, 4, 3}}
	if c := Center(s); c != [3]float64{0, 2, 2.5} {
		t.Errorf("Center() = %v, want [0 2 2.5]", c)
	}
	if e := Extent(s); e != 4 {
		t.Errorf("Extent() = %v, want 4", e)
	}
}

func TestPrecisionString(t *testing.T) {
	if PrecisionExact.String() != "exact" || PrecisionFast.String() != "fast" {
		t.Errorf("unexpected precision names %q %q", PrecisionExact, PrecisionFast)
	}
}

func TestErrDegenerateWraps(t *testing.T) {
	err := fmt.Errorf("%w: sphere radius 0", ErrDegenerate)
	if !errors.Is(err, ErrDegenerate) {
		t.Error("wrapped error should match ErrDegenerate")
	}
}
