// Package classify selects chemically meaningful bonds by pattern-matching
// local neighborhoods of the interaction index against element radii.
//
// The classifiers only read the scene, with one exception: HydrogenBonds
// writes the hbond flag of every edge cylinder. Each returns the selection
// it found; the caller decides whether to merge it into the current one.
package classify

import (
	"math"

	"github.com/chazu/molprint/pkg/config"
	"github.com/chazu/molprint/pkg/geom"
	"github.com/chazu/molprint/pkg/interact"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/metrics"
	"github.com/chazu/molprint/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// phosphorusTolerance is how close a sphere radius must be to the
// phosphorus radius. It is compared unrounded.
const phosphorusTolerance = 1e-4

// Classifier holds the radii and thresholds the patterns are matched with.
type Classifier struct {
	Radii config.Radii
	// MinSpread is the glycosidic neighbor spread threshold.
	MinSpread float64

	Logger  logging.Logger
	Metrics *metrics.Registry
}

// New creates a classifier from configuration.
func New(cfg *config.Config, log logging.Logger, m *metrics.Registry) *Classifier {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Classifier{
		Radii:     cfg.Radii,
		MinSpread: cfg.Grouping.GlycoMinSpread,
		Logger:    log,
		Metrics:   m,
	}
}

func (c *Classifier) log() logging.Logger {
	if c.Logger == nil {
		return logging.NewNopLogger()
	}
	return c.Logger
}

func (c *Classifier) record(name string, sel *scene.Selection) {
	c.log().Debug("classified", logging.String("classifier", name), logging.Count(sel.Len()))
	if c.Metrics != nil {
		c.Metrics.RecordClassified(name, sel.Len())
	}
}

// neighborhood is a sphere seen through the index: the cylinders touching
// it and, per cylinder, the sphere on the far side.
type neighborhood struct {
	links []link
}

type link struct {
	cyl   *scene.Primitive
	other *scene.Primitive // nil when the cylinder has no second sphere
}

func around(sc *scene.Scene, idx *interact.Index, sphere *scene.Primitive, keep func(*scene.Primitive) bool) neighborhood {
	var n neighborhood
	for _, cid := range idx.CylindersOf(sphere.ID) {
		cyl, ok := sc.Get(cid)
		if !ok || !keep(cyl) {
			continue
		}
		l := link{cyl: cyl}
		for _, sid := range idx.SpheresOf(cid) {
			if sid == sphere.ID {
				continue
			}
			if o, ok := sc.Get(sid); ok {
				l.other = o
				break
			}
		}
		n.links = append(n.links, l)
	}
	return n
}

func notHBond(p *scene.Primitive) bool { return !p.HBond() }

// spheres visits every sphere that has at least one edge, in ID order.
func spheres(sc *scene.Scene, idx *interact.Index, fn func(*scene.Primitive)) {
	for _, p := range sc.Spheres() {
		if idx.Degree(p.ID) > 0 {
			fn(p)
		}
	}
}

// HydrogenBonds resets the hbond flag of every edge cylinder, then sets it
// on cylinders no thicker than MaxHBond. Both endpoints of each flagged
// edge are selected. Running it twice gives the same flags.
func (c *Classifier) HydrogenBonds(sc *scene.Scene, idx *interact.Index) *scene.Selection {
	sel := scene.NewSelection()
	for _, e := range idx.Edges() {
		if p, ok := sc.Get(e.Cylinder); ok {
			if cyl, ok := p.Cylinder(); ok {
				cyl.HBond = false
			}
		}
	}
	for _, e := range idx.Edges() {
		p, ok := sc.Get(e.Cylinder)
		if !ok {
			continue
		}
		cyl, ok := p.Cylinder()
		if !ok || cyl.Radius > c.Radii.MaxHBond {
			continue
		}
		cyl.HBond = true
		sel.Add(e.Sphere, e.Cylinder)
	}
	c.record("hbond", sel)
	return sel
}

// Phosphates selects each phosphorus (a sphere with four bonds and the
// phosphorus radius) and one of its bonds: the first whose far side leads,
// through a second non-hydrogen bond, to a sphere with more than two bonds.
func (c *Classifier) Phosphates(sc *scene.Scene, idx *interact.Index) *scene.Selection {
	sel := scene.NewSelection()
	spheres(sc, idx, func(p *scene.Primitive) {
		if idx.Degree(p.ID) != 4 || math.Abs(p.Radius()-c.Radii.Phosphorus) >= phosphorusTolerance {
			return
		}
		sel.Add(p.ID)
		own := make(map[scene.ID]bool)
		for _, cid := range idx.CylindersOf(p.ID) {
			own[cid] = true
		}
		for _, first := range around(sc, idx, p, notHBond).links {
			if first.other == nil {
				continue
			}
			if c.leadsToBranch(sc, idx, first.other, own) {
				sel.Add(first.cyl.ID)
				return
			}
		}
	})
	c.record("phosphate", sel)
	return sel
}

// leadsToBranch reports whether any non-hbond bond of mid, other than the
// phosphorus' own, ends at a sphere with degree > 2.
func (c *Classifier) leadsToBranch(sc *scene.Scene, idx *interact.Index, mid *scene.Primitive, own map[scene.ID]bool) bool {
	keep := func(cyl *scene.Primitive) bool { return !own[cyl.ID] && notHBond(cyl) }
	for _, second := range around(sc, idx, mid, keep).links {
		if second.other != nil && idx.Degree(second.other.ID) > 2 {
			return true
		}
	}
	return false
}

// Glycosidic selects the glycosidic bond of a nucleotide: a carbon with
// three non-hydrogen bonds to carbon, nitrogen and oxygen neighbors that
// are spread wide apart. The carbon and its bond to the nitrogen are
// selected.
func (c *Classifier) Glycosidic(sc *scene.Scene, idx *interact.Index) *scene.Selection {
	sel := scene.NewSelection()
	carbon := geom.Round3(c.Radii.Carbon)
	nitrogen := geom.Round3(c.Radii.Nitrogen)
	spheres(sc, idx, func(p *scene.Primitive) {
		if geom.Round3(p.Radius()) != carbon {
			return
		}
		n := around(sc, idx, p, notHBond)
		if len(n.links) != 3 || !n.complete() {
			return
		}
		if !matchesBackbone(n.radii(), c.Radii) {
			return
		}
		if meanSpread(n.others()) <= c.MinSpread {
			return
		}
		branched := false
		for _, l := range n.links {
			if idx.Degree(l.other.ID) > 1 {
				branched = true
			}
		}
		if !branched {
			return
		}
		for _, l := range n.links {
			if geom.Round3(l.other.Radius()) == nitrogen {
				sel.Add(p.ID, l.cyl.ID)
				return
			}
		}
	})
	c.record("glycosidic", sel)
	return sel
}

// AlphaCarbons selects protein backbone alpha carbons. The pattern is
// centered on the carbonyl carbon: three bonds thicker than a hydrogen
// bond, neighbors exactly {C, N, O} and a nitrogen that is not terminal.
// The neighboring carbon and the bond to it are selected.
func (c *Classifier) AlphaCarbons(sc *scene.Scene, idx *interact.Index) *scene.Selection {
	sel := scene.NewSelection()
	carbon := geom.Round3(c.Radii.Carbon)
	nitrogen := geom.Round3(c.Radii.Nitrogen)
	thick := func(cyl *scene.Primitive) bool { return cyl.Radius() > c.Radii.MaxHBond }
	want := sorted3(carbon, nitrogen, geom.Round3(c.Radii.Oxygen))

	spheres(sc, idx, func(p *scene.Primitive) {
		if idx.Degree(p.ID) != 3 || geom.Round3(p.Radius()) != carbon {
			return
		}
		n := around(sc, idx, p, thick)
		if len(n.links) != 3 || !n.complete() {
			return
		}
		r := n.radii()
		if sorted3(r[0], r[1], r[2]) != want {
			return
		}
		var nLink, cLink *link
		for i := range n.links {
			switch geom.Round3(n.links[i].other.Radius()) {
			case nitrogen:
				nLink = &n.links[i]
			case carbon:
				cLink = &n.links[i]
			}
		}
		if nLink == nil || cLink == nil {
			return
		}
		if idx.Degree(nLink.other.ID) > 1 {
			sel.Add(cLink.other.ID, cLink.cyl.ID)
		}
	})
	c.record("alpha_carbon", sel)
	return sel
}

func (n neighborhood) complete() bool {
	for _, l := range n.links {
		if l.other == nil {
			return false
		}
	}
	return true
}

func (n neighborhood) radii() []float64 {
	out := make([]float64, len(n.links))
	for i, l := range n.links {
		out[i] = geom.Round3(l.other.Radius())
	}
	return out
}

func (n neighborhood) others() []r3.Vec {
	out := make([]r3.Vec, len(n.links))
	for i, l := range n.links {
		out[i] = l.other.Center()
	}
	return out
}

// matchesBackbone accepts neighbor radii drawn from carbon, nitrogen and
// oxygen with exactly one nitrogen and at least one oxygen.
func matchesBackbone(radii []float64, r config.Radii) bool {
	cr, nr, or := geom.Round3(r.Carbon), geom.Round3(r.Nitrogen), geom.Round3(r.Oxygen)
	nitrogens, oxygens := 0, 0
	for _, x := range radii {
		switch x {
		case nr:
			nitrogens++
		case or:
			oxygens++
		case cr:
		default:
			return false
		}
	}
	return nitrogens == 1 && oxygens > 0
}

// meanSpread is the mean pairwise distance between points.
func meanSpread(pts []r3.Vec) float64 {
	var sum float64
	pairs := 0
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			sum += r3.Norm(r3.Sub(pts[i], pts[j]))
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

func sorted3(a, b, c float64) [3]float64 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]float64{a, b, c}
}
