// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/molprint/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx. Solids from any two
// SdfxKernel values are interchangeable; only meshing resolution differs.
type SdfxKernel struct {
	cells     int
	precision kernel.Precision
}

// New returns an exact-precision SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{cells: defaultMeshCells, precision: kernel.PrecisionExact}
}

// NewWithCells returns a kernel meshing with the given marching-cubes
// resolution, reporting p as its precision.
func NewWithCells(cells int, p kernel.Precision) *SdfxKernel {
	if cells <= 0 {
		cells = defaultMeshCells
	}
	return &SdfxKernel{cells: cells, precision: p}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) (sdf.SDF3, error) {
	w, ok := s.(*sdfxSolid)
	if !ok || w == nil || w.s == nil {
		return nil, fmt.Errorf("%w: not an sdfx solid (%T)", kernel.ErrDegenerate, s)
	}
	return w.s, nil
}

// must is unwrap for transforms, which cannot report errors.
func must(s kernel.Solid) sdf.SDF3 {
	u, err := unwrap(s)
	if err != nil {
		panic(err)
	}
	return u
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Box creates a box with the given dimensions centered at the origin.
func (k *SdfxKernel) Box(x, y, z float64) (kernel.Solid, error) {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: sdfx.Box3D: %v", kernel.ErrDegenerate, err)
	}
	return wrap(s), nil
}

// Sphere creates a sphere. The segments parameter is ignored since SDF
// represents smooth surfaces.
func (k *SdfxKernel) Sphere(radius float64, segments int) (kernel.Solid, error) {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return nil, fmt.Errorf("%w: sdfx.Sphere3D: %v", kernel.ErrDegenerate, err)
	}
	return wrap(s), nil
}

// Cylinder creates a cylinder with the given height and radius.
func (k *SdfxKernel) Cylinder(height, radius float64, segments int) (kernel.Solid, error) {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: sdfx.Cylinder3D: %v", kernel.ErrDegenerate, err)
	}
	return wrap(s), nil
}

// Cone creates a truncated cone with radius r0 at -Z and r1 at +Z.
func (k *SdfxKernel) Cone(height, r0, r1 float64, segments int) (kernel.Solid, error) {
	s, err := sdf.Cone3D(height, r0, r1, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: sdfx.Cone3D: %v", kernel.ErrDegenerate, err)
	}
	return wrap(s), nil
}

func (k *SdfxKernel) operands(a, b kernel.Solid) (sdf.SDF3, sdf.SDF3, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, nil, err
	}
	return sa, sb, nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := k.operands(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Union3D(sa, sb)), nil
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := k.operands(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Difference3D(sa, sb)), nil
}

// Intersection returns the intersection of two solids. Disjoint bounding
// boxes are reported as degenerate.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := k.operands(a, b)
	if err != nil {
		return nil, err
	}
	ba, bb := sa.BoundingBox(), sb.BoundingBox()
	if ba.Max.X < bb.Min.X || bb.Max.X < ba.Min.X ||
		ba.Max.Y < bb.Min.Y || bb.Max.Y < ba.Min.Y ||
		ba.Max.Z < bb.Min.Z || bb.Max.Z < ba.Min.Z {
		return nil, fmt.Errorf("%w: intersection of disjoint solids", kernel.ErrDegenerate)
	}
	return wrap(sdf.Intersect3D(sa, sb)), nil
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(must(s), m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func (k *SdfxKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return wrap(sdf.Transform3D(must(s), m))
}

// RotateAxis rotates a solid by angle radians about axis through the origin.
func (k *SdfxKernel) RotateAxis(s kernel.Solid, axis [3]float64, angle float64) kernel.Solid {
	if angle == 0 {
		return s
	}
	m := sdf.Rotate3d(v3.Vec{X: axis[0], Y: axis[1], Z: axis[2]}, angle)
	return wrap(sdf.Transform3D(must(s), m))
}

// Scale scales a solid uniformly about the origin.
func (k *SdfxKernel) Scale(s kernel.Solid, factor float64) kernel.Solid {
	if factor == 1 {
		return s
	}
	return wrap(sdf.ScaleUniform3D(must(s), factor))
}

// Precision reports the precision this kernel was built with.
func (k *SdfxKernel) Precision() kernel.Precision {
	return k.precision
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3, renderer)
	if len(triangles) == 0 {
		return nil, kernel.ErrEmpty
	}

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
