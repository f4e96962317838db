// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx, manifold) provide solid modeling and
// boolean operations behind this interface. The kernel abstraction
// allows swapping backends without changing the rest of the system.
package kernel

import "errors"

var (
	// ErrDegenerate is returned when a primitive or boolean cannot be
	// built from its inputs (non-positive size, nil or foreign operand,
	// engine-reported failure).
	ErrDegenerate = errors.New("degenerate geometry")

	// ErrEmpty is returned by ToMesh when a solid has no surface.
	ErrEmpty = errors.New("empty solid")
)

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Precision is the solver precision a kernel runs at. Booleans that fail
// at PrecisionExact may be retried on a PrecisionFast kernel.
type Precision int

const (
	PrecisionExact Precision = iota
	PrecisionFast
)

func (p Precision) String() string {
	switch p {
	case PrecisionExact:
		return "exact"
	case PrecisionFast:
		return "fast"
	default:
		return "unknown"
	}
}

// Kernel is the abstract geometry kernel interface.
// All primitives are centered at the origin; cylinders and cones run
// along Z.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Sphere(radius float64, segments int) (Solid, error)
	Cylinder(height, radius float64, segments int) (Solid, error)
	Cone(height, r0, r1 float64, segments int) (Solid, error) // r0 at -Z, r1 at +Z

	// Boolean operations
	Union(a, b Solid) (Solid, error)
	Difference(a, b Solid) (Solid, error)
	Intersection(a, b Solid) (Solid, error)

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid                   // Euler angles in degrees
	RotateAxis(s Solid, axis [3]float64, angle float64) Solid // radians, about the origin
	Scale(s Solid, factor float64) Solid                      // uniform, about the origin

	Precision() Precision

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// Center returns the midpoint of a solid's bounding box.
func Center(s Solid) [3]float64 {
	min, max := s.BoundingBox()
	return [3]float64{(min[0] + max[0]) / 2, (min[1] + max[1]) / 2, (min[2] + max[2]) / 2}
}

// Extent returns the largest side of a solid's bounding box.
func Extent(s Solid) float64 {
	min, max := s.BoundingBox()
	e := 0.0
	for i := 0; i < 3; i++ {
		if d := max[i] - min[i]; d > e {
			e = d
		}
	}
	return e
}
