package pins

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/molprint/pkg/geom"
	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrCoincident is returned when a sphere and cylinder share a center, so
// no connector axis exists.
var ErrCoincident = errors.New("pins: sphere and cylinder centers coincide")

// Split connector proportions.
const (
	splitConeBase = 0.9
	splitConeTop  = 1.1
	cutCubeX      = 1.75 // times the sphere radius
	cutCubeY      = 0.5  // times the cone base radius
	cutCubeZ      = 1.45 // times the sphere radius
)

// Print-in-place cone base, relative to the connector radius.
const pipConeBase = 1.2

// Connector is what one pair produced. Cone and CutCube are nil for
// variants that do not make them.
type Connector struct {
	Pin     *Helper
	Cone    *Helper
	CutCube *Helper
}

// Generator builds connector solids with a kernel and registers them.
type Generator struct {
	K        kernel.Kernel
	Registry *Registry
}

// NewGenerator creates a generator.
func NewGenerator(k kernel.Kernel, r *Registry) *Generator {
	return &Generator{K: k, Registry: r}
}

// Generate builds the connector for one pair. The connector runs from the
// sphere center toward the cylinder center. The helpers are registered and
// their ids recorded on the primitives: pin and cone on the sphere, the cut
// cube on the cylinder.
func (g *Generator) Generate(sphere, cyl *scene.Primitive, spec Spec) (*Connector, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	d := r3.Sub(cyl.Center(), sphere.Center())
	dist := r3.Norm(d)
	if dist < geom.Eps {
		return nil, fmt.Errorf("%w: %q/%q", ErrCoincident, sphere.Name, cyl.Name)
	}
	theta := math.Acos(math.Max(-1, math.Min(1, d.Z/dist)))
	phi := math.Atan2(d.Y, d.X)
	orient := func(s kernel.Solid, at r3.Vec) kernel.Solid {
		s = g.K.RotateAxis(s, geom.Array(geom.Y), theta)
		s = g.K.RotateAxis(s, geom.Array(geom.Z), phi)
		return g.K.Translate(s, at.X, at.Y, at.Z)
	}

	r := cyl.Radius() * spec.Diameter
	rs := sphere.Radius()
	mid := r3.Add(sphere.Center(), r3.Scale(0.5, d))

	pin, err := g.K.Cylinder(dist-spec.Decrease, r, spec.Sides)
	if err != nil {
		return nil, fmt.Errorf("pins: connector %q/%q: %w", sphere.Name, cyl.Name, err)
	}
	pin = orient(pin, mid)

	var cone, cut kernel.Solid
	switch spec.Type {
	case Split:
		r0 := splitConeBase * r
		if cone, err = g.K.Cone(rs, r0, splitConeTop*r, spec.Sides+2); err != nil {
			return nil, fmt.Errorf("pins: split cone %q: %w", sphere.Name, err)
		}
		cone = orient(cone, sphere.Center())
		if cut, err = g.K.Box(cutCubeX*rs, cutCubeY*r0, cutCubeZ*rs); err != nil {
			return nil, fmt.Errorf("pins: cut cube %q: %w", cyl.Name, err)
		}
		cut = orient(cut, sphere.Center())
	case PrintInPlace:
		r0 := pipConeBase * r
		if cone, err = g.K.Cone(dist-r0, r0, r, spec.Sides+2); err != nil {
			return nil, fmt.Errorf("pins: pip cone %q: %w", sphere.Name, err)
		}
		cone = orient(cone, sphere.Center())
	}
	if cone != nil {
		if pin, err = g.K.Union(pin, cone); err != nil {
			return nil, fmt.Errorf("pins: joining cone to connector %q/%q: %w", sphere.Name, cyl.Name, err)
		}
	}

	c := &Connector{Pin: g.Registry.Add(RolePin, sphere.ID, pin)}
	sphere.Pins = append(sphere.Pins, c.Pin.ID)
	if cone != nil {
		c.Cone = g.Registry.Add(RoleCone, sphere.ID, cone)
		sphere.Cones = append(sphere.Cones, c.Cone.ID)
	}
	if cut != nil {
		c.CutCube = g.Registry.Add(RoleCutCube, cyl.ID, cut)
		cyl.CutCubes = append(cyl.CutCubes, c.CutCube.ID)
	}
	return c, nil
}
