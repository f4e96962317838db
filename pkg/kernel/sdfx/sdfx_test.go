package sdfx

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/molprint/pkg/kernel"
)

// testCells keeps marching cubes cheap in tests.
const testCells = 48

func newTestKernel() *SdfxKernel {
	return NewWithCells(testCells, kernel.PrecisionExact)
}

func TestBoxIsCentered(t *testing.T) {
	k := newTestKernel()
	box, err := k.Box(4, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	min, max := box.BoundingBox()
	want := [3]float64{2, 1, 0.5}
	for i := 0; i < 3; i++ {
		if math.Abs(max[i]-want[i]) > 1e-9 || math.Abs(min[i]+want[i]) > 1e-9 {
			t.Errorf("axis %d: bbox [%v, %v], want [%v, %v]", i, min[i], max[i], -want[i], want[i])
		}
	}
}

func TestSphereMeshVolume(t *testing.T) {
	k := newTestKernel()
	s, err := k.Sphere(1, 16)
	if err != nil {
		t.Fatal(err)
	}
	mesh, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	want := 4.0 / 3.0 * math.Pi
	if got := mesh.Volume(); math.Abs(got-want)/want > 0.1 {
		t.Errorf("sphere volume = %v, want about %v", got, want)
	}
}

func TestCone(t *testing.T) {
	k := newTestKernel()
	c, err := k.Cone(2, 0.5, 0.25, 16)
	if err != nil {
		t.Fatal(err)
	}
	min, max := c.BoundingBox()
	if math.Abs(max[2]-1) > 1e-9 || math.Abs(min[2]+1) > 1e-9 {
		t.Errorf("cone z range = [%v, %v], want [-1, 1]", min[2], max[2])
	}
	if _, err := k.ToMesh(c); err != nil {
		t.Fatalf("ToMesh(cone) failed: %v", err)
	}
}

func TestDegeneratePrimitive(t *testing.T) {
	k := newTestKernel()
	if _, err := k.Sphere(-1, 16); !errors.Is(err, kernel.ErrDegenerate) {
		t.Errorf("Sphere(-1) error = %v, want ErrDegenerate", err)
	}
	if _, err := k.Cylinder(0, 1, 16); !errors.Is(err, kernel.ErrDegenerate) {
		t.Errorf("Cylinder(0, 1) error = %v, want ErrDegenerate", err)
	}
}

func TestDifferenceCarvesSocket(t *testing.T) {
	k := newTestKernel()
	sphere, _ := k.Sphere(1, 16)
	pin, _ := k.Cylinder(4, 0.3, 16)

	diff, err := k.Difference(sphere, pin)
	if err != nil {
		t.Fatal(err)
	}
	whole, _ := k.ToMesh(sphere)
	carved, err := k.ToMesh(diff)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if carved.Volume() >= whole.Volume() {
		t.Errorf("carved volume %v should be below sphere volume %v", carved.Volume(), whole.Volume())
	}
}

func TestIntersectionDisjoint(t *testing.T) {
	k := newTestKernel()
	a, _ := k.Sphere(1, 16)
	b := k.Translate(a, 10, 0, 0)
	if _, err := k.Intersection(a, b); !errors.Is(err, kernel.ErrDegenerate) {
		t.Errorf("disjoint intersection error = %v, want ErrDegenerate", err)
	}
}

type foreignSolid struct{}

func (foreignSolid) BoundingBox() (min, max [3]float64) { return }

func TestForeignSolidRejected(t *testing.T) {
	k := newTestKernel()
	a, _ := k.Sphere(1, 16)
	if _, err := k.Union(a, foreignSolid{}); !errors.Is(err, kernel.ErrDegenerate) {
		t.Errorf("Union(foreign) error = %v, want ErrDegenerate", err)
	}
	if _, err := k.ToMesh(foreignSolid{}); err == nil {
		t.Error("ToMesh(foreign) should fail")
	}
}

func TestRotateAxis(t *testing.T) {
	k := newTestKernel()
	c, _ := k.Cylinder(4, 0.5, 16)
	r := k.RotateAxis(c, [3]float64{0, 1, 0}, math.Pi/2)
	min, max := r.BoundingBox()
	if dx := max[0] - min[0]; dx < 3.9 {
		t.Errorf("rotated cylinder x extent = %v, want about 4", dx)
	}
}

func TestTranslateAndScale(t *testing.T) {
	k := newTestKernel()
	s, _ := k.Sphere(1, 16)
	moved := k.Translate(k.Scale(s, 2), 5, 0, 0)
	min, max := moved.BoundingBox()
	if math.Abs(min[0]-3) > 1e-6 || math.Abs(max[0]-7) > 1e-6 {
		t.Errorf("x range = [%v, %v], want [3, 7]", min[0], max[0])
	}
}

func TestPrecision(t *testing.T) {
	if New().Precision() != kernel.PrecisionExact {
		t.Error("New() should be exact")
	}
	if NewWithCells(20, kernel.PrecisionFast).Precision() != kernel.PrecisionFast {
		t.Error("NewWithCells(.., fast) should report fast")
	}
}
