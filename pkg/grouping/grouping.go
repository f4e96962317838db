// Package grouping partitions a scene into printable groups.
//
// Grouping starts from seed primitives (the pin-referenced primitives and
// the current selection) and expands each seed breadth-first across the
// interaction index. Rounds alternate between spheres and cylinders. An
// edge whose two endpoints are both seeds is never crossed, which is how a
// user cuts a bond: selecting both sides of an interface separates them.
//
// Primitives no seed reaches belong to no group. They are reported in
// Result.Unreached so callers can decide what to do with them.
package grouping

import (
	"sort"

	"github.com/chazu/molprint/pkg/interact"
	"github.com/chazu/molprint/pkg/scene"
)

// PinSource is anything that references primitives that must seed a group,
// typically a pin spec.
type PinSource interface {
	Refs() []scene.ID
}

// Seeds returns the pin-referenced primitives in source order followed by
// the selection in selection order, without duplicates.
func Seeds(sel *scene.Selection, pinned ...PinSource) []scene.ID {
	seen := make(map[scene.ID]bool)
	var out []scene.ID
	add := func(id scene.ID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, p := range pinned {
		for _, id := range p.Refs() {
			add(id)
		}
	}
	if sel != nil {
		for _, id := range sel.IDs() {
			add(id)
		}
	}
	return out
}

// Group is one connected printable part.
type Group struct {
	ID      int
	Seed    scene.ID
	Members []scene.ID // sorted by ID
	Color   RGB
}

// Spheres returns the members that are spheres.
func (g *Group) Spheres(sc *scene.Scene) []*scene.Primitive {
	return g.filter(sc, scene.KindSphere)
}

// Cylinders returns the members that are cylinders.
func (g *Group) Cylinders(sc *scene.Scene) []*scene.Primitive {
	return g.filter(sc, scene.KindCylinder)
}

func (g *Group) filter(sc *scene.Scene, k scene.Kind) []*scene.Primitive {
	var out []*scene.Primitive
	for _, id := range g.Members {
		if p, ok := sc.Get(id); ok && p.Kind() == k {
			out = append(out, p)
		}
	}
	return out
}

// Result is the outcome of one grouping run.
type Result struct {
	Groups      []*Group
	ByPrimitive map[scene.ID]int
	Unreached   []scene.ID
	// MissingSeeds lists seeds that did not resolve in the scene.
	MissingSeeds []scene.ID
}

// GroupOf returns the group a primitive belongs to.
func (r *Result) GroupOf(id scene.ID) (*Group, bool) {
	gid, ok := r.ByPrimitive[id]
	if !ok {
		return nil, false
	}
	return r.Groups[gid], true
}

// SameGroup reports whether a and b were placed in the same group.
func (r *Result) SameGroup(a, b scene.ID) bool {
	ga, okA := r.ByPrimitive[a]
	gb, okB := r.ByPrimitive[b]
	return okA && okB && ga == gb
}

// Compute groups sc from seeds and writes each primitive's group id back to
// the scene; unreached primitives get scene.NoGroup. Compute never fails.
func Compute(idx *interact.Index, sc *scene.Scene, seeds []scene.ID) *Result {
	res := &Result{ByPrimitive: make(map[scene.ID]int)}

	seedSet := make(map[scene.ID]bool, len(seeds))
	for _, id := range seeds {
		seedSet[id] = true
	}

	for _, seed := range seeds {
		p, ok := sc.Get(seed)
		if !ok {
			res.MissingSeeds = append(res.MissingSeeds, seed)
			continue
		}
		if _, done := res.ByPrimitive[seed]; done {
			continue
		}
		g := &Group{ID: len(res.Groups), Seed: seed, Color: Color(len(res.Groups))}
		res.Groups = append(res.Groups, g)
		g.Members = expand(idx, sc, p, seedSet, res.ByPrimitive, g.ID)
		sort.Slice(g.Members, func(i, j int) bool { return g.Members[i] < g.Members[j] })
	}

	sc.ResetGroups()
	for _, p := range sc.Primitives() {
		gid, ok := res.ByPrimitive[p.ID]
		if !ok {
			res.Unreached = append(res.Unreached, p.ID)
			continue
		}
		p.Group = gid
	}
	return res
}

// expand runs the alternating traversal from one seed. Each round moves
// from the frontier's kind to the other kind; a round that adds nothing
// ends the group.
func expand(idx *interact.Index, sc *scene.Scene, seed *scene.Primitive,
	seedSet map[scene.ID]bool, owner map[scene.ID]int, gid int) []scene.ID {

	owner[seed.ID] = gid
	members := []scene.ID{seed.ID}
	frontier := []scene.ID{seed.ID}
	from := seed.Kind()

	for len(frontier) > 0 {
		to := opposite(from)
		var next []scene.ID
		for _, f := range frontier {
			for _, n := range neighbors(idx, f, from) {
				if seedSet[f] && seedSet[n] {
					continue
				}
				if _, taken := owner[n]; taken {
					continue
				}
				np, ok := sc.Get(n)
				if !ok || np.Kind() != to {
					continue
				}
				owner[n] = gid
				members = append(members, n)
				next = append(next, n)
			}
		}
		frontier = next
		from = to
	}
	return members
}

func neighbors(idx *interact.Index, id scene.ID, k scene.Kind) []scene.ID {
	if k == scene.KindSphere {
		return idx.CylindersOf(id)
	}
	return idx.SpheresOf(id)
}

func opposite(k scene.Kind) scene.Kind {
	if k == scene.KindSphere {
		return scene.KindCylinder
	}
	return scene.KindSphere
}
