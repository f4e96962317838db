// Package kerneltest provides a bounding-box kernel for tests that need
// a kernel.Kernel without tessellating real geometry. Every solid is its
// axis-aligned box; booleans combine boxes and ToMesh emits the box.
package kerneltest

import (
	"fmt"
	"math"

	"github.com/chazu/molprint/pkg/kernel"
)

// Solid is an axis-aligned box standing in for real geometry.
type Solid struct {
	Min, Max [3]float64
	// Tag names the primitive or operation that produced the solid.
	Tag string
}

func (s *Solid) BoundingBox() (min, max [3]float64) {
	return s.Min, s.Max
}

// Op records one kernel call.
type Op struct {
	Name string
	A, B string
}

// Kernel is a recording bounding-box kernel. Fail, when set, is consulted
// before every boolean; a non-nil return is reported as the operation's
// error.
type Kernel struct {
	Ops  []Op
	Fail func(op string, a, b *Solid) error
	Prec kernel.Precision
}

var _ kernel.Kernel = (*Kernel)(nil)

// New returns an exact-precision box kernel.
func New() *Kernel {
	return &Kernel{}
}

// Count returns how many recorded ops have the given name.
func (k *Kernel) Count(name string) int {
	n := 0
	for _, op := range k.Ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

func centered(x, y, z float64, tag string) *Solid {
	return &Solid{
		Min: [3]float64{-x / 2, -y / 2, -z / 2},
		Max: [3]float64{x / 2, y / 2, z / 2},
		Tag: tag,
	}
}

func (k *Kernel) Box(x, y, z float64) (kernel.Solid, error) {
	if x <= 0 || y <= 0 || z <= 0 {
		return nil, fmt.Errorf("%w: box %gx%gx%g", kernel.ErrDegenerate, x, y, z)
	}
	k.Ops = append(k.Ops, Op{Name: "box"})
	return centered(x, y, z, "box"), nil
}

func (k *Kernel) Sphere(radius float64, _ int) (kernel.Solid, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("%w: sphere radius %g", kernel.ErrDegenerate, radius)
	}
	k.Ops = append(k.Ops, Op{Name: "sphere"})
	return centered(2*radius, 2*radius, 2*radius, "sphere"), nil
}

func (k *Kernel) Cylinder(height, radius float64, _ int) (kernel.Solid, error) {
	if height <= 0 || radius <= 0 {
		return nil, fmt.Errorf("%w: cylinder h=%g r=%g", kernel.ErrDegenerate, height, radius)
	}
	k.Ops = append(k.Ops, Op{Name: "cylinder"})
	return centered(2*radius, 2*radius, height, "cylinder"), nil
}

func (k *Kernel) Cone(height, r0, r1 float64, _ int) (kernel.Solid, error) {
	r := math.Max(r0, r1)
	if height <= 0 || r <= 0 {
		return nil, fmt.Errorf("%w: cone h=%g r0=%g r1=%g", kernel.ErrDegenerate, height, r0, r1)
	}
	k.Ops = append(k.Ops, Op{Name: "cone"})
	return centered(2*r, 2*r, height, "cone"), nil
}

func (k *Kernel) boolean(name string, a, b kernel.Solid) (*Solid, *Solid, error) {
	sa, okA := a.(*Solid)
	sb, okB := b.(*Solid)
	if !okA || !okB || sa == nil || sb == nil {
		return nil, nil, fmt.Errorf("%w: %s operand", kernel.ErrDegenerate, name)
	}
	k.Ops = append(k.Ops, Op{Name: name, A: sa.Tag, B: sb.Tag})
	if k.Fail != nil {
		if err := k.Fail(name, sa, sb); err != nil {
			return nil, nil, err
		}
	}
	return sa, sb, nil
}

func (k *Kernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := k.boolean("union", a, b)
	if err != nil {
		return nil, err
	}
	out := &Solid{Tag: sa.Tag}
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Min(sa.Min[i], sb.Min[i])
		out.Max[i] = math.Max(sa.Max[i], sb.Max[i])
	}
	return out, nil
}

// Difference keeps a's box; a box kernel cannot represent holes.
func (k *Kernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, _, err := k.boolean("difference", a, b)
	if err != nil {
		return nil, err
	}
	out := *sa
	return &out, nil
}

func (k *Kernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := k.boolean("intersection", a, b)
	if err != nil {
		return nil, err
	}
	out := &Solid{Tag: sa.Tag}
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Max(sa.Min[i], sb.Min[i])
		out.Max[i] = math.Min(sa.Max[i], sb.Max[i])
		if out.Min[i] > out.Max[i] {
			return nil, fmt.Errorf("%w: empty intersection", kernel.ErrDegenerate)
		}
	}
	return out, nil
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	src := s.(*Solid)
	d := [3]float64{x, y, z}
	out := &Solid{Tag: src.Tag}
	for i := 0; i < 3; i++ {
		out.Min[i] = src.Min[i] + d[i]
		out.Max[i] = src.Max[i] + d[i]
	}
	return out
}

func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	rx, ry, rz := x*math.Pi/180, y*math.Pi/180, z*math.Pi/180
	return k.transformCorners(s, func(p [3]float64) [3]float64 {
		p = rotate(p, [3]float64{1, 0, 0}, rx)
		p = rotate(p, [3]float64{0, 1, 0}, ry)
		return rotate(p, [3]float64{0, 0, 1}, rz)
	})
}

func (k *Kernel) RotateAxis(s kernel.Solid, axis [3]float64, angle float64) kernel.Solid {
	return k.transformCorners(s, func(p [3]float64) [3]float64 {
		return rotate(p, axis, angle)
	})
}

func (k *Kernel) Scale(s kernel.Solid, f float64) kernel.Solid {
	src := s.(*Solid)
	out := &Solid{Tag: src.Tag}
	for i := 0; i < 3; i++ {
		out.Min[i] = src.Min[i] * f
		out.Max[i] = src.Max[i] * f
	}
	return out
}

func (k *Kernel) Precision() kernel.Precision { return k.Prec }

// ToMesh emits the twelve triangles of the solid's box.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	src, ok := s.(*Solid)
	if !ok || src == nil {
		return nil, kernel.ErrEmpty
	}
	m := BoxMesh(src.Min, src.Max)
	m.Name = src.Tag
	return m, nil
}

func (k *Kernel) transformCorners(s kernel.Solid, f func([3]float64) [3]float64) kernel.Solid {
	src := s.(*Solid)
	out := &Solid{Tag: src.Tag}
	for i := 0; i < 3; i++ {
		out.Min[i] = math.Inf(1)
		out.Max[i] = math.Inf(-1)
	}
	for c := 0; c < 8; c++ {
		p := [3]float64{src.Min[0], src.Min[1], src.Min[2]}
		for i := 0; i < 3; i++ {
			if c&(1<<i) != 0 {
				p[i] = src.Max[i]
			}
		}
		q := f(p)
		for i := 0; i < 3; i++ {
			out.Min[i] = math.Min(out.Min[i], q[i])
			out.Max[i] = math.Max(out.Max[i], q[i])
		}
	}
	return out
}

// rotate applies Rodrigues' formula.
func rotate(p, axis [3]float64, angle float64) [3]float64 {
	n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if n == 0 || angle == 0 {
		return p
	}
	u := [3]float64{axis[0] / n, axis[1] / n, axis[2] / n}
	c, s := math.Cos(angle), math.Sin(angle)
	dot := u[0]*p[0] + u[1]*p[1] + u[2]*p[2]
	cross := [3]float64{
		u[1]*p[2] - u[2]*p[1],
		u[2]*p[0] - u[0]*p[2],
		u[0]*p[1] - u[1]*p[0],
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = p[i]*c + cross[i]*s + u[i]*dot*(1-c)
	}
	return out
}

// BoxMesh returns an outward-wound triangle mesh of an axis-aligned box.
func BoxMesh(min, max [3]float64) *kernel.Mesh {
	corner := func(c int) [3]float64 {
		p := min
		for i := 0; i < 3; i++ {
			if c&(1<<i) != 0 {
				p[i] = max[i]
			}
		}
		return p
	}
	// corners indexed by bit pattern zyx
	faces := [][4]int{
		{0, 2, 3, 1}, // -z
		{4, 5, 7, 6}, // +z
		{0, 1, 5, 4}, // -y
		{2, 6, 7, 3}, // +y
		{0, 4, 6, 2}, // -x
		{1, 3, 7, 5}, // +x
	}
	m := &kernel.Mesh{}
	for c := 0; c < 8; c++ {
		p := corner(c)
		m.Vertices = append(m.Vertices, float32(p[0]), float32(p[1]), float32(p[2]))
		m.Normals = append(m.Normals, 0, 0, 0)
	}
	for _, f := range faces {
		m.Indices = append(m.Indices,
			uint32(f[0]), uint32(f[1]), uint32(f[2]),
			uint32(f[0]), uint32(f[2]), uint32(f[3]))
	}
	return m
}
