package tessellate_test

import (
	"math"
	"testing"

	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/kernel/kerneltest"
	"github.com/chazu/molprint/pkg/kernel/sdfx"
	"github.com/chazu/molprint/pkg/scene"
	"github.com/chazu/molprint/pkg/tessellate"
	"gonum.org/v1/gonum/spatial/r3"
)

// newKernel returns a coarse sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.NewWithCells(40, kernel.PrecisionExact)
}

func vec(x, y, z float64) r3.Vec { return r3.Vec{X: x, Y: y, Z: z} }

func TestTessellateNilScene(t *testing.T) {
	meshes, err := tessellate.Tessellate(nil, newKernel(), 16)
	if err != nil || meshes != nil {
		t.Fatalf("Tessellate(nil) = %v, %v; want nil, nil", meshes, err)
	}
}

func TestTessellateOneMeshPerPrimitive(t *testing.T) {
	sc := scene.New()
	sc.MustAdd(scene.NewSphere("C1", vec(0, 0, 0), 0.5))
	sc.MustAdd(scene.NewSphere("O1", vec(1.5, 0, 0), 0.45))
	sc.MustAdd(scene.NewCylinder("B1", vec(0, 0, 0), vec(1.5, 0, 0), 0.15))

	meshes, err := tessellate.Tessellate(sc, newKernel(), 16)
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 3 {
		t.Fatalf("got %d meshes, want 3", len(meshes))
	}
	wantNames := []string{"C1", "O1", "B1"}
	for i, m := range meshes {
		if m.Name != wantNames[i] {
			t.Errorf("mesh %d name = %q, want %q", i, m.Name, wantNames[i])
		}
		if m.IsEmpty() {
			t.Errorf("mesh %q is empty", m.Name)
		}
	}
}

func TestSolidPlacement(t *testing.T) {
	k := kerneltest.New()
	cyl := scene.NewCylinder("B", vec(1, 1, 0), vec(1, 1, 4), 0.5)
	s, err := tessellate.Solid(k, cyl, 16)
	if err != nil {
		t.Fatal(err)
	}
	min, max := s.BoundingBox()
	if math.Abs(min[2]) > 1e-9 || math.Abs(max[2]-4) > 1e-9 {
		t.Errorf("z range = [%v, %v], want [0, 4]", min[2], max[2])
	}
	if math.Abs(min[0]-0.5) > 1e-9 || math.Abs(max[0]-1.5) > 1e-9 {
		t.Errorf("x range = [%v, %v], want [0.5, 1.5]", min[0], max[0])
	}
}

func TestSolidRotatedCylinder(t *testing.T) {
	k := kerneltest.New()
	cyl := scene.NewCylinder("B", vec(0, 0, 0), vec(3, 0, 0), 0.2)
	s, err := tessellate.Solid(k, cyl, 16)
	if err != nil {
		t.Fatal(err)
	}
	min, max := s.BoundingBox()
	if math.Abs(max[0]-min[0]-3) > 1e-9 {
		t.Errorf("x extent = %v, want 3", max[0]-min[0])
	}
}

func TestDoubleBondIsUnion(t *testing.T) {
	k := kerneltest.New()
	cyl := scene.NewCylinder("B", vec(0, 0, 0), vec(0, 0, 2), 0.2)
	c, _ := cyl.Cylinder()
	c.Double = &scene.DoubleBond{Offset: 0.2, Scale: 0.5}

	s, err := tessellate.Solid(k, cyl, 16)
	if err != nil {
		t.Fatal(err)
	}
	if k.Count("union") != 1 {
		t.Errorf("union count = %d, want 1", k.Count("union"))
	}
	min, max := s.BoundingBox()
	// two copies of radius 0.1 at x = ±0.2
	if math.Abs(min[0]+0.3) > 1e-9 || math.Abs(max[0]-0.3) > 1e-9 {
		t.Errorf("x range = [%v, %v], want [-0.3, 0.3]", min[0], max[0])
	}
}

func TestSolidDegenerate(t *testing.T) {
	k := kerneltest.New()
	if _, err := tessellate.Solid(k, scene.NewSphere("S", vec(0, 0, 0), 0), 16); err == nil {
		t.Error("zero-radius sphere should fail")
	}
}

func TestCache(t *testing.T) {
	k := kerneltest.New()
	sc := scene.New()
	id := sc.MustAdd(scene.NewSphere("S", vec(0, 0, 0), 0.5))
	p, _ := sc.Get(id)

	c := tessellate.NewCache(k, 16)
	m1, err := c.Mesh(p)
	if err != nil {
		t.Fatal(err)
	}
	m2, _ := c.Mesh(p)
	if m1 != m2 {
		t.Error("second Mesh() call should hit the cache")
	}
	if k.Count("sphere") != 1 {
		t.Errorf("sphere built %d times, want 1", k.Count("sphere"))
	}

	c.Invalidate(id)
	if c.Len() != 0 {
		t.Errorf("Len() after Invalidate = %d", c.Len())
	}
	if _, err := c.Solid(p); err != nil {
		t.Fatal(err)
	}
	if k.Count("sphere") != 2 {
		t.Errorf("sphere built %d times after invalidate, want 2", k.Count("sphere"))
	}
}
