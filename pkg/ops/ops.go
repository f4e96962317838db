// Package ops holds the scene editing operators: import cleanup, struts,
// bond and atom scaling, double bonds and per-radius coloring.
package ops

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/molprint/pkg/config"
	"github.com/chazu/molprint/pkg/geom"
	"github.com/chazu/molprint/pkg/grouping"
	"github.com/chazu/molprint/pkg/interact"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Spheres closer than this are checked for containment. Some exporters
	// emit small spheres inside every atom.
	insideDistance = 0.3
	// Cylinders whose centers are closer than this are duplicates.
	duplicateDistance = 1e-4
)

// ErrNotSphere is returned when a strut end is not a sphere.
var ErrNotSphere = errors.New("ops: not a sphere")

// CleanReport names what Clean removed.
type CleanReport struct {
	Spheres   []string
	Cylinders []string
}

// Len is the number of primitives removed.
func (r CleanReport) Len() int { return len(r.Spheres) + len(r.Cylinders) }

// Clean removes spheres that sit entirely inside another sphere and
// cylinders that duplicate another. Removing anything makes an existing
// interaction index stale.
func Clean(sc *scene.Scene, log logging.Logger) CleanReport {
	if log == nil {
		log = logging.NewNopLogger()
	}
	var rep CleanReport
	gone := make(map[scene.ID]bool)

	spheres := sc.Spheres()
	for i, a := range spheres {
		for _, b := range spheres[i+1:] {
			if gone[a.ID] || gone[b.ID] {
				continue
			}
			if r3.Norm(r3.Sub(a.Center(), b.Center())) >= insideDistance {
				continue
			}
			if small := inside(a, b); small != nil {
				gone[small.ID] = true
				rep.Spheres = append(rep.Spheres, small.Name)
			}
		}
	}
	cyls := sc.Cylinders()
	for i, a := range cyls {
		if gone[a.ID] {
			continue
		}
		for _, b := range cyls[i+1:] {
			if !gone[b.ID] && r3.Norm(r3.Sub(a.Center(), b.Center())) < duplicateDistance {
				gone[b.ID] = true
				rep.Cylinders = append(rep.Cylinders, b.Name)
			}
		}
	}

	for id := range gone {
		sc.Remove(id)
	}
	if rep.Len() > 0 {
		log.Info("scene cleaned",
			logging.Int("spheres", len(rep.Spheres)), logging.Int("cylinders", len(rep.Cylinders)))
	}
	return rep
}

// inside returns the smaller sphere when its bounding box lies within the
// larger one's, or nil.
func inside(a, b *scene.Primitive) *scene.Primitive {
	big, small := a, b
	if b.Radius() > a.Radius() {
		big, small = b, a
	}
	d := r3.Sub(big.Center(), small.Center())
	for _, delta := range []float64{d.X, d.Y, d.Z} {
		if math.Abs(delta)+small.Radius() > big.Radius() {
			return nil
		}
	}
	return small
}

// AddStrut joins two spheres with a thin cylinder flagged as a hydrogen
// bond, so grouping treats it as a breakable interface. When idx is not
// nil the strut's two edges are registered at once.
func AddStrut(sc *scene.Scene, idx *interact.Index, a, b scene.ID, radius float64) (scene.ID, error) {
	pa, err := sphere(sc, a)
	if err != nil {
		return scene.NoID, err
	}
	pb, err := sphere(sc, b)
	if err != nil {
		return scene.NoID, err
	}
	if r3.Norm(r3.Sub(pb.Center(), pa.Center())) < geom.Eps {
		return scene.NoID, fmt.Errorf("ops: strut between coincident spheres %q and %q", pa.Name, pb.Name)
	}
	strut := scene.NewCylinder(fmt.Sprintf("strut.%s.%s", pa.Name, pb.Name), pa.Center(), pb.Center(), radius)
	c, _ := strut.Cylinder()
	c.HBond = true
	current := idx != nil && !idx.Stale(sc)
	id, err := sc.Add(strut)
	if err != nil {
		return scene.NoID, fmt.Errorf("ops: adding strut: %w", err)
	}
	if idx != nil {
		idx.Add(a, id)
		idx.Add(b, id)
		if current {
			idx.Sync(sc)
		}
	}
	return id, nil
}

func sphere(sc *scene.Scene, id scene.ID) (*scene.Primitive, error) {
	p, ok := sc.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", scene.ErrNotFound, id)
	}
	if !p.IsSphere() {
		return nil, fmt.Errorf("%w: %q", ErrNotSphere, p.Name)
	}
	return p, nil
}

// ScaleBonds multiplies the radius of every cylinder that is not a
// hydrogen bond by f. It returns how many changed.
func ScaleBonds(sc *scene.Scene, f float64) int {
	n := 0
	for _, p := range sc.Cylinders() {
		if p.HBond() {
			continue
		}
		p.SetRadius(p.Radius() * f)
		n++
	}
	return n
}

// ScaleAtoms multiplies every sphere radius by f.
func ScaleAtoms(sc *scene.Scene, f float64) int {
	spheres := sc.Spheres()
	for _, p := range spheres {
		p.SetRadius(p.Radius() * f)
	}
	return len(spheres)
}

// MakeDouble turns the given cylinders into double bonds: two copies
// offset by radius/DoubleDistance either side of the axis, each thinned to
// DoubleScale. Ids that are missing or not cylinders are skipped and
// returned.
func MakeDouble(sc *scene.Scene, ids []scene.ID, cfg config.BondConfig) (changed int, skipped []scene.ID) {
	for _, id := range ids {
		p, ok := sc.Get(id)
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		c, ok := p.Cylinder()
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		c.Double = &scene.DoubleBond{
			Offset: c.Radius / cfg.DoubleDistance,
			Scale:  cfg.DoubleScale,
		}
		changed++
	}
	return changed, skipped
}

// ColorByRadius colors every primitive by its radius class, so all atoms
// of one element share a color.
func ColorByRadius(sc *scene.Scene) map[scene.ID]grouping.RGB {
	prims := sc.Primitives()
	palette := grouping.RadiusPalette(prims)
	out := make(map[scene.ID]grouping.RGB, len(prims))
	for _, p := range prims {
		out[p.ID] = palette[geom.Round3(p.Radius())]
	}
	return out
}
