package collide

import (
	"testing"

	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/kernel/kerneltest"
)

func box(x0, y0, z0, x1, y1, z1 float64) *kernel.Mesh {
	return kerneltest.BoxMesh([3]float64{x0, y0, z0}, [3]float64{x1, y1, z1})
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b *kernel.Mesh
		want bool
	}{
		{"crossing", box(0, 0, 0, 2, 2, 2), box(1, 1, 1, 3, 3, 3), true},
		{"disjoint", box(0, 0, 0, 1, 1, 1), box(5, 5, 5, 6, 6, 6), false},
		{"near miss", box(0, 0, 0, 1, 1, 1), box(1.1, 0, 0, 2, 1, 1), false},
		{"contained", box(0, 0, 0, 4, 4, 4), box(1, 1, 1, 2, 2, 2), true},
		{"rod through slab", box(-0.2, -0.2, -3, 0.2, 0.2, 3), box(-1, -1, -0.5, 1, 1, 0.5), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlap(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlap() = %v, want %v", got, tt.want)
			}
			if got := Overlap(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlap() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmptyMeshNeverOverlaps(t *testing.T) {
	if Overlap(&kernel.Mesh{}, box(0, 0, 0, 1, 1, 1)) {
		t.Error("empty mesh should not overlap")
	}
}

func TestBodyReuse(t *testing.T) {
	a := NewBody(box(0, 0, 0, 2, 2, 2))
	hits := 0
	for i := 0; i < 4; i++ {
		off := float64(i)
		if a.Overlaps(NewBody(box(off+1.5, 0, 0, off+2.5, 1, 1))) {
			hits++
		}
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}
