// Package interact builds the sphere/cylinder adjacency graph of a scene.
//
// Every unordered pair of primitives where at most one is a cylinder is
// considered. Pairs whose centers are at least Cutoff apart are skipped
// without testing, as are cylinder-cylinder pairs; the rest go through an
// exact mesh-overlap test. Overlapping sphere/cylinder pairs become edges,
// always oriented (sphere, cylinder).
//
// Bonds longer than the cutoff are never detected. That is a known
// limitation of the distance pre-filter.
package interact

import (
	"fmt"
	"sort"

	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/metrics"
	"github.com/chazu/molprint/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultCutoff is the center-distance pre-filter in scene units.
const DefaultCutoff = 2.0

// Edge connects a sphere to a cylinder that touches it.
type Edge struct {
	Sphere   scene.ID
	Cylinder scene.ID
}

// OverlapTester decides whether two primitives physically intersect.
type OverlapTester interface {
	Overlaps(a, b *scene.Primitive) (bool, error)
}

// Options configures Build.
type Options struct {
	Cutoff  float64
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Index is the adjacency graph. The zero value is not usable; call
// NewIndex.
type Index struct {
	edges     []Edge
	set       map[Edge]struct{}
	cylinders map[scene.ID][]scene.ID // sphere -> cylinders
	spheres   map[scene.ID][]scene.ID // cylinder -> spheres
	version   uint64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		set:       make(map[Edge]struct{}),
		cylinders: make(map[scene.ID][]scene.ID),
		spheres:   make(map[scene.ID][]scene.ID),
	}
}

// Add registers an edge. Duplicates are ignored; the return value reports
// whether the edge was new.
func (x *Index) Add(sphere, cylinder scene.ID) bool {
	e := Edge{Sphere: sphere, Cylinder: cylinder}
	if _, ok := x.set[e]; ok {
		return false
	}
	x.set[e] = struct{}{}
	x.edges = append(x.edges, e)
	x.cylinders[sphere] = append(x.cylinders[sphere], cylinder)
	x.spheres[cylinder] = append(x.spheres[cylinder], sphere)
	return true
}

// Edges returns the edges in insertion order. The slice is shared; do not
// modify it.
func (x *Index) Edges() []Edge { return x.edges }

// Len returns the number of edges.
func (x *Index) Len() int { return len(x.edges) }

// Has reports whether sphere and cylinder are connected.
func (x *Index) Has(sphere, cylinder scene.ID) bool {
	_, ok := x.set[Edge{Sphere: sphere, Cylinder: cylinder}]
	return ok
}

// CylindersOf returns the cylinders touching a sphere.
func (x *Index) CylindersOf(sphere scene.ID) []scene.ID { return x.cylinders[sphere] }

// SpheresOf returns the spheres touching a cylinder.
func (x *Index) SpheresOf(cylinder scene.ID) []scene.ID { return x.spheres[cylinder] }

// Neighbors returns the primitives adjacent to id, whichever role it has.
func (x *Index) Neighbors(id scene.ID) []scene.ID {
	if n, ok := x.cylinders[id]; ok {
		return n
	}
	return x.spheres[id]
}

// Degree is len(Neighbors(id)).
func (x *Index) Degree(id scene.ID) int { return len(x.Neighbors(id)) }

// Version is the scene version the index was built at. Zero for indexes
// assembled by hand.
func (x *Index) Version() uint64 { return x.version }

// Stale reports whether sc has changed topology since the index was built.
func (x *Index) Stale(sc *scene.Scene) bool { return x.version != sc.Version() }

// Sync marks the index current for sc. Callers that change the scene and
// register the matching edges themselves use it to avoid a rebuild.
func (x *Index) Sync(sc *scene.Scene) { x.version = sc.Version() }

// Pair is a name-keyed edge, the form the index is persisted in.
type Pair [2]string

// Pairs returns the edges as (sphere name, cylinder name) pairs.
func (x *Index) Pairs(sc *scene.Scene) []Pair {
	out := make([]Pair, 0, len(x.edges))
	for _, e := range x.edges {
		out = append(out, Pair{sc.Name(e.Sphere), sc.Name(e.Cylinder)})
	}
	return out
}

// FromPairs rebuilds an index from persisted pairs. Names that no longer
// resolve, or that resolve to the wrong kinds, are skipped and returned.
func FromPairs(sc *scene.Scene, pairs []Pair) (*Index, []Pair) {
	x := NewIndex()
	var skipped []Pair
	for _, p := range pairs {
		a, aok := sc.Lookup(p[0])
		b, bok := sc.Lookup(p[1])
		if !aok || !bok {
			skipped = append(skipped, p)
			continue
		}
		switch {
		case a.IsSphere() && b.IsCylinder():
			x.Add(a.ID, b.ID)
		case a.IsCylinder() && b.IsSphere():
			x.Add(b.ID, a.ID)
		default:
			skipped = append(skipped, p)
		}
	}
	x.version = sc.Version()
	return x, skipped
}

// Build computes the index for every primitive of sc.
func Build(sc *scene.Scene, tester OverlapTester, opts Options) (*Index, error) {
	if opts.Cutoff <= 0 {
		opts.Cutoff = DefaultCutoff
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	timer := logging.StartTimer(log, "interactions built", logging.Stage("interact"))

	prims := sc.Primitives()
	x := NewIndex()
	tested := 0
	for i := 0; i < len(prims); i++ {
		a := prims[i]
		for j := i + 1; j < len(prims); j++ {
			b := prims[j]
			if a.IsCylinder() && b.IsCylinder() {
				continue
			}
			if r3.Norm(r3.Sub(a.Center(), b.Center())) >= opts.Cutoff {
				continue
			}
			tested++
			hit, err := tester.Overlaps(a, b)
			if err != nil {
				timer.EndError(err)
				return nil, fmt.Errorf("interact: %q/%q: %w", a.Name, b.Name, err)
			}
			if !hit {
				continue
			}
			switch {
			case a.IsSphere() && b.IsCylinder():
				x.Add(a.ID, b.ID)
			case a.IsCylinder() && b.IsSphere():
				x.Add(b.ID, a.ID)
			default:
				log.Debug("touching spheres ignored", logging.Name(a.Name), logging.String("other", b.Name))
			}
		}
	}
	x.version = sc.Version()

	d := timer.End()
	if opts.Metrics != nil {
		opts.Metrics.OverlapTestsTotal.Add(float64(tested))
		opts.Metrics.InteractionEdges.Set(float64(x.Len()))
		opts.Metrics.RecordStage("interact", d)
	}
	log.Debug("overlap tests", logging.Count(tested), logging.Int("edges", x.Len()))
	return x, nil
}

// Components returns the connected components of the index restricted to
// ids present in sc, each sorted by ID, ordered by their smallest member.
// Primitives with no edges form singleton components.
func (x *Index) Components(sc *scene.Scene) [][]scene.ID {
	seen := make(map[scene.ID]bool)
	var out [][]scene.ID
	for _, p := range sc.Primitives() {
		if seen[p.ID] {
			continue
		}
		comp := []scene.ID{p.ID}
		seen[p.ID] = true
		for k := 0; k < len(comp); k++ {
			for _, n := range x.Neighbors(comp[k]) {
				if _, ok := sc.Get(n); ok && !seen[n] {
					seen[n] = true
					comp = append(comp, n)
				}
			}
		}
		sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
		out = append(out, comp)
	}
	return out
}
