package assembly

import (
	"fmt"
	"math"
	"time"

	"github.com/chazu/molprint/pkg/geom"
	"github.com/chazu/molprint/pkg/grouping"
	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/scene"
	"github.com/chazu/molprint/pkg/tessellate"
	"gonum.org/v1/gonum/spatial/r3"
)

// cutterWidth is the cutter cross-section relative to the atom diameter.
const cutterWidth = 1.1

// CPKSplit prints a space-filling model. Spheres of different radius that
// overlap are cut apart at their radical plane, the plane through the
// circle where the two surfaces meet. Spheres of equal radius are joined.
// The result is one repaired body per radius, colored by radius.
// Cylinders are ignored.
func (p *Pipeline) CPKSplit(sc *scene.Scene) ([]*Body, error) {
	start := time.Now()
	spheres := sc.Spheres()
	if len(spheres) == 0 {
		return nil, nil
	}
	solids := make(map[scene.ID]kernel.Solid, len(spheres))
	for _, s := range spheres {
		sol, err := tessellate.Solid(p.CSG, s, p.Segments)
		if err != nil {
			return nil, err
		}
		solids[s.ID] = sol
	}

	cuts := 0
	for i, a := range spheres {
		for _, b := range spheres[i+1:] {
			ra, rb := a.Radius(), b.Radius()
			if geom.Round3(ra) == geom.Round3(rb) {
				continue
			}
			d := r3.Sub(b.Center(), a.Center())
			dist := r3.Norm(d)
			// apart, or one inside the other: no shared circle
			if dist >= ra+rb || dist <= math.Abs(ra-rb) {
				continue
			}
			u := r3.Scale(1/dist, d)
			x := (dist*dist + ra*ra - rb*rb) / (2 * dist)

			var err error
			if solids[a.ID], err = p.cutAt(solids[a.ID], a.Center(), u, x, ra); err != nil {
				return nil, fmt.Errorf("cpk %q: %w", a.Name, err)
			}
			if solids[b.ID], err = p.cutAt(solids[b.ID], b.Center(), r3.Scale(-1, u), dist-x, rb); err != nil {
				return nil, fmt.Errorf("cpk %q: %w", b.Name, err)
			}
			cuts++
		}
	}

	palette := grouping.RadiusPalette(spheres)
	var box [2][3]float64
	for i, s := range spheres {
		box = grow(box, solids[s.ID], i == 0)
	}
	origin := r3.Scale(0.5, r3.Add(geom.Vec(box[0]), geom.Vec(box[1])))

	var bodies []*Body
	for _, class := range scene.ByRadius(spheres) {
		var body kernel.Solid
		for _, s := range class {
			if body == nil {
				body = solids[s.ID]
				continue
			}
			var err error
			if body, err = p.CSG.Union(body, solids[s.ID]); err != nil {
				return nil, err
			}
		}
		body, err := p.CSG.Repair(body)
		if err != nil {
			return nil, err
		}
		radius := geom.Round3(class[0].Radius())
		bodies = append(bodies, &Body{
			Name:     fmt.Sprintf("cpk_r%.3f", radius),
			Group:    scene.NoGroup,
			Radius:   radius,
			Solid:    body,
			Origin:   origin,
			Rotation: geom.Identity(),
			Color:    palette[radius],
			Members:  ids(class),
		})
	}
	p.log.Info("cpk split", logging.Count(len(bodies)), logging.Int("cuts", cuts))
	if p.metrics != nil {
		p.metrics.RecordStage("cpk", time.Since(start))
	}
	return bodies, nil
}

// cutAt removes from s everything beyond the plane at distance x from
// center along u. The cutter is a slab wide enough to cover a sphere of
// radius r.
func (p *Pipeline) cutAt(s kernel.Solid, center, u r3.Vec, x, r float64) (kernel.Solid, error) {
	w := 2 * cutterWidth * r
	depth := 2 * r
	slab, err := p.CSG.Box(w, w, depth)
	if err != nil {
		return nil, err
	}
	slab = tessellate.Place(p.CSG, slab, scene.Transform{
		Translation: r3.Add(center, r3.Scale(x+depth/2, u)),
		Rotation:    geom.RotationBetween(geom.Z, u),
	})
	return p.CSG.Difference(s, slab)
}
