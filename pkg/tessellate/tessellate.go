// Package tessellate builds kernel solids and triangle meshes for scene
// primitives. One solid (and one mesh) is produced per primitive, placed by
// the primitive's world transform.
package tessellate

import (
	"fmt"

	"github.com/chazu/molprint/pkg/geom"
	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// Place applies t to a solid built around the origin: rotation first,
// then translation.
func Place(k kernel.Kernel, s kernel.Solid, t scene.Transform) kernel.Solid {
	axis, angle := geom.AxisAngle(t.Rotation)
	if angle != 0 {
		s = k.RotateAxis(s, geom.Array(axis), angle)
	}
	if v := t.Translation; v != (r3.Vec{}) {
		s = k.Translate(s, v.X, v.Y, v.Z)
	}
	return s
}

// Solid builds the world-space solid of one primitive.
func Solid(k kernel.Kernel, p *scene.Primitive, segments int) (kernel.Solid, error) {
	var (
		local kernel.Solid
		err   error
	)
	switch sh := p.Shape.(type) {
	case *scene.Sphere:
		local, err = k.Sphere(sh.Radius, segments)
	case *scene.Cylinder:
		if sh.Double != nil {
			local, err = doubleBond(k, sh, segments)
		} else {
			local, err = k.Cylinder(sh.Length, sh.Radius, segments)
		}
	default:
		return nil, fmt.Errorf("primitive %d has unsupported shape %T", p.ID, p.Shape)
	}
	if err != nil {
		return nil, fmt.Errorf("tessellate: %s %q: %w", p.Kind(), p.Name, err)
	}
	return Place(k, local, p.Transform), nil
}

// doubleBond is two thinner copies of the bond offset along local X.
func doubleBond(k kernel.Kernel, c *scene.Cylinder, segments int) (kernel.Solid, error) {
	r := c.Radius * c.Double.Scale
	one, err := k.Cylinder(c.Length, r, segments)
	if err != nil {
		return nil, err
	}
	plus := k.Translate(one, c.Double.Offset, 0, 0)
	minus := k.Translate(one, -c.Double.Offset, 0, 0)
	return k.Union(plus, minus)
}

// Tessellate produces one triangle mesh per primitive, ordered by ID.
// The tessellator is read-only and never mutates the scene.
func Tessellate(sc *scene.Scene, k kernel.Kernel, segments int) ([]*kernel.Mesh, error) {
	if sc == nil {
		return nil, nil
	}
	var meshes []*kernel.Mesh
	for _, p := range sc.Primitives() {
		m, err := Mesh(k, p, segments)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, m)
	}
	return meshes, nil
}

// Mesh tessellates a single primitive and names the mesh after it.
func Mesh(k kernel.Kernel, p *scene.Primitive, segments int) (*kernel.Mesh, error) {
	s, err := Solid(k, p, segments)
	if err != nil {
		return nil, err
	}
	m, err := k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %q: %w", p.Name, err)
	}
	m.Name = p.Name
	return m, nil
}

// Cache memoizes solids and meshes per primitive. Entries are keyed by ID
// and must be invalidated when a primitive's transform or shape changes.
type Cache struct {
	k        kernel.Kernel
	segments int
	solids   map[scene.ID]kernel.Solid
	meshes   map[scene.ID]*kernel.Mesh
}

// NewCache creates an empty cache over k.
func NewCache(k kernel.Kernel, segments int) *Cache {
	return &Cache{
		k:        k,
		segments: segments,
		solids:   make(map[scene.ID]kernel.Solid),
		meshes:   make(map[scene.ID]*kernel.Mesh),
	}
}

// Kernel returns the kernel the cache builds with.
func (c *Cache) Kernel() kernel.Kernel { return c.k }

func (c *Cache) Solid(p *scene.Primitive) (kernel.Solid, error) {
	if s, ok := c.solids[p.ID]; ok {
		return s, nil
	}
	s, err := Solid(c.k, p, c.segments)
	if err != nil {
		return nil, err
	}
	c.solids[p.ID] = s
	return s, nil
}

func (c *Cache) Mesh(p *scene.Primitive) (*kernel.Mesh, error) {
	if m, ok := c.meshes[p.ID]; ok {
		return m, nil
	}
	s, err := c.Solid(p)
	if err != nil {
		return nil, err
	}
	m, err := c.k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %q: %w", p.Name, err)
	}
	m.Name = p.Name
	c.meshes[p.ID] = m
	return m, nil
}

// Invalidate drops cached entries for ids.
func (c *Cache) Invalidate(ids ...scene.ID) {
	for _, id := range ids {
		delete(c.solids, id)
		delete(c.meshes, id)
	}
}

// Reset drops everything.
func (c *Cache) Reset() {
	c.solids = make(map[scene.ID]kernel.Solid)
	c.meshes = make(map[scene.ID]*kernel.Mesh)
}

// Len returns the number of cached solids.
func (c *Cache) Len() int { return len(c.solids) }
