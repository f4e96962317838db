// Package collide tests whether two kernel meshes overlap, using the
// bounding-volume hierarchy colliders from github.com/unixpickle/model3d.
package collide

import (
	"github.com/chazu/molprint/pkg/kernel"
	"github.com/unixpickle/model3d/model3d"
)

// ToModel converts a kernel mesh into a model3d mesh. Degenerate
// triangles are dropped.
func ToModel(m *kernel.Mesh) *model3d.Mesh {
	tris := make([]*model3d.Triangle, 0, m.TriangleCount())
	for t := 0; t < m.TriangleCount(); t++ {
		c := m.Triangle(t)
		tri := &model3d.Triangle{
			model3d.XYZ(c[0][0], c[0][1], c[0][2]),
			model3d.XYZ(c[1][0], c[1][1], c[1][2]),
			model3d.XYZ(c[2][0], c[2][1], c[2][2]),
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			continue
		}
		tris = append(tris, tri)
	}
	return model3d.NewMeshTriangles(tris)
}

// Body is a mesh prepared for repeated overlap queries.
type Body struct {
	mesh     *model3d.Mesh
	collider model3d.MultiCollider
	solid    model3d.Solid
	min, max model3d.Coord3D
	probe    model3d.Coord3D
	empty    bool
}

// NewBody builds the BVH for m.
func NewBody(m *kernel.Mesh) *Body {
	mm := ToModel(m)
	b := &Body{mesh: mm}
	tris := mm.TriangleSlice()
	if len(tris) == 0 {
		b.empty = true
		return b
	}
	b.collider = model3d.MeshToCollider(mm)
	b.solid = model3d.NewColliderSolid(b.collider)
	b.min, b.max = mm.Min(), mm.Max()
	b.probe = tris[0][0]
	return b
}

// Overlaps reports whether the two bodies' surfaces intersect or one body
// lies entirely inside the other.
func (b *Body) Overlaps(other *Body) bool {
	if b.empty || other.empty {
		return false
	}
	if !boxesTouch(b.min, b.max, other.min, other.max) {
		return false
	}
	small, large := b, other
	if len(small.mesh.TriangleSlice()) > len(large.mesh.TriangleSlice()) {
		small, large = large, small
	}
	hit := false
	small.mesh.Iterate(func(t *model3d.Triangle) {
		if hit {
			return
		}
		if len(large.collider.TriangleCollisions(t)) > 0 {
			hit = true
		}
	})
	if hit {
		return true
	}
	return large.solid.Contains(small.probe) || small.solid.Contains(large.probe)
}

// Overlap is a one-shot convenience over NewBody.
func Overlap(a, b *kernel.Mesh) bool {
	return NewBody(a).Overlaps(NewBody(b))
}

func boxesTouch(amin, amax, bmin, bmax model3d.Coord3D) bool {
	return amin.X <= bmax.X && bmin.X <= amax.X &&
		amin.Y <= bmax.Y && bmin.Y <= amax.Y &&
		amin.Z <= bmax.Z && bmin.Z <= amax.Z
}
