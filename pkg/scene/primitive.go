package scene

import (
	"fmt"

	"github.com/chazu/molprint/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// ID identifies a primitive for the lifetime of a scene. IDs are never
// reused, so a stale ID resolves to nothing rather than to a different
// primitive.
type ID int

// NoID is the zero ID; scenes hand out IDs starting at 1.
const NoID ID = 0

// NoGroup marks a primitive that no grouping run has reached.
const NoGroup = -1

// HelperID identifies a generated pin, cone or cut cube.
type HelperID int

// Kind enumerates the primitive shapes.
type Kind int

const (
	KindSphere   Kind = iota // atom
	KindCylinder             // bond
)

func (k Kind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindCylinder:
		return "cylinder"
	default:
		return "unknown"
	}
}

// Shape is the kind-specific payload of a primitive.
type Shape interface {
	shape() // marker method restricting implementations to this package
	Kind() Kind
}

// Sphere is an atom.
type Sphere struct {
	Radius float64 `json:"radius"`
}

func (*Sphere) shape()     {}
func (*Sphere) Kind() Kind { return KindSphere }

// Cylinder is a bond, running along its local Z axis.
type Cylinder struct {
	Radius float64 `json:"radius"`
	Length float64 `json:"length"`
	// HBond marks hydrogen bonds and struts. Only the classifiers and the
	// strut operator write it.
	HBond bool `json:"hbond"`
	// Double, when set, renders the bond as two parallel cylinders.
	Double *DoubleBond `json:"double,omitempty"`
}

func (*Cylinder) shape()     {}
func (*Cylinder) Kind() Kind { return KindCylinder }

// DoubleBond describes the two-cylinder rendering of a double bond.
type DoubleBond struct {
	Offset float64 `json:"offset"` // each copy sits ±Offset along local X
	Scale  float64 `json:"scale"`  // cross-section scale of each copy
}

// Transform places a primitive in world space.
type Transform struct {
	Translation r3.Vec      `json:"translation"`
	Rotation    r3.Rotation `json:"rotation"`
}

// Apply maps a local point to world space.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(geom.Normalize(t.Rotation).Rotate(p), t.Translation)
}

// Direction maps a local direction to world space.
func (t Transform) Direction(d r3.Vec) r3.Vec {
	return geom.Normalize(t.Rotation).Rotate(d)
}

// Primitive is one sphere or cylinder of the model.
type Primitive struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	Transform Transform `json:"transform"`
	Shape     Shape     `json:"shape"`
	// Group is written by grouping; NoGroup until then.
	Group int `json:"group"`

	Pins     []HelperID `json:"pins,omitempty"`
	Cones    []HelperID `json:"cones,omitempty"`
	CutCubes []HelperID `json:"cut_cubes,omitempty"`
}

// NewSphere creates an unregistered sphere primitive.
func NewSphere(name string, center r3.Vec, radius float64) *Primitive {
	return &Primitive{
		Name:      name,
		Transform: Transform{Translation: center, Rotation: geom.Identity()},
		Shape:     &Sphere{Radius: radius},
		Group:     NoGroup,
	}
}

// NewCylinder creates an unregistered cylinder primitive spanning a to b.
func NewCylinder(name string, a, b r3.Vec, radius float64) *Primitive {
	d := r3.Sub(b, a)
	return &Primitive{
		Name: name,
		Transform: Transform{
			Translation: r3.Scale(0.5, r3.Add(a, b)),
			Rotation:    geom.RotationBetween(geom.Z, d),
		},
		Shape: &Cylinder{Radius: radius, Length: r3.Norm(d)},
		Group: NoGroup,
	}
}

func (p *Primitive) Kind() Kind { return p.Shape.Kind() }

func (p *Primitive) IsSphere() bool { return p.Shape.Kind() == KindSphere }

func (p *Primitive) IsCylinder() bool { return p.Shape.Kind() == KindCylinder }

// Center is the world-space location of the primitive.
func (p *Primitive) Center() r3.Vec { return p.Transform.Translation }

// Radius returns the sphere or cylinder radius.
func (p *Primitive) Radius() float64 {
	switch s := p.Shape.(type) {
	case *Sphere:
		return s.Radius
	case *Cylinder:
		return s.Radius
	default:
		panic(fmt.Sprintf("scene: unknown shape %T", p.Shape))
	}
}

// SetRadius updates the radius of either shape.
func (p *Primitive) SetRadius(r float64) {
	switch s := p.Shape.(type) {
	case *Sphere:
		s.Radius = r
	case *Cylinder:
		s.Radius = r
	}
}

// Cylinder returns the cylinder payload, or nil and false for spheres.
func (p *Primitive) Cylinder() (*Cylinder, bool) {
	c, ok := p.Shape.(*Cylinder)
	return c, ok
}

// HBond reports whether p is a cylinder flagged as a hydrogen bond.
func (p *Primitive) HBond() bool {
	c, ok := p.Shape.(*Cylinder)
	return ok && c.HBond
}

// Axis is the world-space unit axis of a cylinder (Z for spheres).
func (p *Primitive) Axis() r3.Vec {
	return p.Transform.Direction(geom.Z)
}

// Endpoints returns the world-space end centers of a cylinder. A sphere
// returns its center twice.
func (p *Primitive) Endpoints() (r3.Vec, r3.Vec) {
	c, ok := p.Cylinder()
	if !ok {
		return p.Center(), p.Center()
	}
	half := r3.Scale(c.Length/2, p.Axis())
	return r3.Sub(p.Center(), half), r3.Add(p.Center(), half)
}

// Bounds returns a world-space bounding box.
func (p *Primitive) Bounds() r3.Box {
	r := p.Radius()
	pad := r3.Vec{X: r, Y: r, Z: r}
	a, b := p.Endpoints()
	box := r3.NewBox(a.X, a.Y, a.Z, b.X, b.Y, b.Z)
	return r3.Box{Min: r3.Sub(box.Min, pad), Max: r3.Add(box.Max, pad)}
}

// ClearHelpers drops all helper references.
func (p *Primitive) ClearHelpers() {
	p.Pins, p.Cones, p.CutCubes = nil, nil, nil
}
