package interact

import (
	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/kernel/collide"
	"github.com/chazu/molprint/pkg/scene"
	"github.com/chazu/molprint/pkg/tessellate"
)

// MeshTester runs the exact overlap test on tessellated primitives. Each
// primitive is tessellated and wrapped in a BVH at most once per tester.
type MeshTester struct {
	cache  *tessellate.Cache
	bodies map[scene.ID]*collide.Body
}

// NewMeshTester tessellates with k. A coarse kernel is fine: the meshes are
// discarded once the index is built.
func NewMeshTester(k kernel.Kernel, segments int) *MeshTester {
	return &MeshTester{
		cache:  tessellate.NewCache(k, segments),
		bodies: make(map[scene.ID]*collide.Body),
	}
}

func (t *MeshTester) Overlaps(a, b *scene.Primitive) (bool, error) {
	ba, err := t.body(a)
	if err != nil {
		return false, err
	}
	bb, err := t.body(b)
	if err != nil {
		return false, err
	}
	return ba.Overlaps(bb), nil
}

func (t *MeshTester) body(p *scene.Primitive) (*collide.Body, error) {
	if b, ok := t.bodies[p.ID]; ok {
		return b, nil
	}
	m, err := t.cache.Mesh(p)
	if err != nil {
		return nil, err
	}
	b := collide.NewBody(m)
	t.bodies[p.ID] = b
	return b, nil
}

// Forget drops cached bodies, e.g. after a primitive moved.
func (t *MeshTester) Forget(ids ...scene.ID) {
	t.cache.Invalidate(ids...)
	for _, id := range ids {
		delete(t.bodies, id)
	}
}
