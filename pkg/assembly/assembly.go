// Package assembly turns a grouped scene into printable bodies.
//
// A run has three steps. Every pin pair whose ends sit in different groups
// gets a connector: the bond is trimmed by its atom, the pin is generated
// and welded onto the bond. Then each group is joined into one body (or,
// in multi-color mode, one body per radius), repaired, and the sockets are
// cut: pins and cones out of the atom side, cut cubes out of the bond side.
// Finally every helper solid is dropped.
//
// Every boolean goes through CSG, which retries and repairs before giving
// up. A boolean that still fails aborts the run with a *CSGError.
package assembly

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/molprint/pkg/geom"
	"github.com/chazu/molprint/pkg/grouping"
	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/metrics"
	"github.com/chazu/molprint/pkg/pins"
	"github.com/chazu/molprint/pkg/scene"
	"github.com/chazu/molprint/pkg/tessellate"
	"gonum.org/v1/gonum/spatial/r3"
)

const stage = "assembly"

// ErrNoGroups is returned when Run is called before grouping.
var ErrNoGroups = errors.New("assembly: scene has not been grouped")

// Input is everything one run reads.
type Input struct {
	Scene      *scene.Scene
	Groups     *grouping.Result
	Specs      []pins.Spec
	Registry   *pins.Registry
	MultiColor bool
}

// Body is one printable part.
type Body struct {
	Name  string
	Group int
	// Radius is the shared member radius in multi-color mode, 0 otherwise.
	Radius float64
	Solid  kernel.Solid
	// Origin is the center of the whole group, shared by every body the
	// group produced.
	Origin r3.Vec
	// Rotation about Origin, set by floor placement.
	Rotation r3.Rotation
	Color    grouping.RGB
	Members  []scene.ID
}

// Result is the output of a run.
type Result struct {
	Bodies []*Body
	// Loose lists primitives no group reached. They are not assembled.
	Loose      []scene.ID
	Connectors int
	Skipped    int
}

// Pipeline runs assembly with one CSG policy.
type Pipeline struct {
	CSG      *CSG
	Segments int
	// PinScale scales pins about their own center before they are cut
	// from the atom side, leaving clearance for the fit.
	PinScale float64

	log     logging.Logger
	metrics *metrics.Registry
}

// NewPipeline creates a pipeline. log and m may be nil.
func NewPipeline(csg *CSG, segments int, pinScale float64, log logging.Logger, m *metrics.Registry) *Pipeline {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if pinScale <= 0 {
		pinScale = 1
	}
	return &Pipeline{
		CSG:      csg.WithStage(stage),
		Segments: segments,
		PinScale: pinScale,
		log:      log.With(logging.Stage(stage)),
		metrics:  m,
	}
}

// run holds the working solids of one Run.
type run struct {
	*Pipeline
	in     Input
	solids map[scene.ID]kernel.Solid
}

// Run assembles in. Helpers are cleared from in.Registry and from every
// primitive whether or not the run succeeds.
func (p *Pipeline) Run(in Input) (res *Result, err error) {
	if in.Groups == nil {
		return nil, ErrNoGroups
	}
	if in.Registry == nil {
		in.Registry = pins.NewRegistry(p.log, p.metrics)
	}
	timer := logging.StartTimer(p.log, "assembly finished",
		logging.Count(len(in.Groups.Groups)), logging.Bool("multi_color", in.MultiColor))
	defer func() {
		in.Registry.Clear(in.Scene)
		var d time.Duration
		if err != nil {
			d = timer.EndError(err)
		} else {
			d = timer.End()
		}
		if p.metrics != nil {
			p.metrics.RecordStage(stage, d)
		}
	}()
	r := &run{Pipeline: p, in: in, solids: make(map[scene.ID]kernel.Solid)}

	res = &Result{Loose: in.Groups.Unreached}
	if n := len(res.Loose); n > 0 {
		p.log.Warn("primitives in no group are left out", logging.Count(n))
	}
	if res.Connectors, res.Skipped, err = r.connect(); err != nil {
		return nil, err
	}
	for _, g := range in.Groups.Groups {
		var bodies []*Body
		if in.MultiColor {
			bodies, err = r.multiColor(g)
		} else {
			bodies, err = r.singleColor(g)
		}
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", g.ID, err)
		}
		res.Bodies = append(res.Bodies, bodies...)
	}
	return res, nil
}

// solid returns the working solid of a primitive, tessellating it on
// first use.
func (r *run) solid(prim *scene.Primitive) (kernel.Solid, error) {
	if s, ok := r.solids[prim.ID]; ok {
		return s, nil
	}
	s, err := tessellate.Solid(r.CSG, prim, r.Segments)
	if err != nil {
		return nil, err
	}
	r.solids[prim.ID] = s
	return s, nil
}

// connect builds the connector of every pin pair that crosses a group
// boundary and welds the pin onto its bond.
func (r *run) connect() (made, skipped int, err error) {
	sc := r.in.Scene
	gen := pins.NewGenerator(r.CSG, r.in.Registry)
	for _, spec := range r.in.Specs {
		for _, pair := range spec.Pairs {
			sp, okS := sc.Get(pair.Sphere)
			cp, okC := sc.Get(pair.Cylinder)
			if !okS || !okC {
				r.softFail("pin pair references a missing primitive",
					logging.Int("sphere_id", int(pair.Sphere)), logging.Int("cylinder_id", int(pair.Cylinder)))
				skipped++
				continue
			}
			// both unreached counts as the same group
			if sp.Group == cp.Group {
				skipped++
				continue
			}
			cyl, err := r.solid(cp)
			if err != nil {
				return made, skipped, err
			}
			sph, err := r.solid(sp)
			if err != nil {
				return made, skipped, err
			}
			if cyl, err = r.CSG.Difference(cyl, sph); err != nil {
				return made, skipped, err
			}
			conn, err := gen.Generate(sp, cp, spec)
			if err != nil {
				var ce *CSGError
				if errors.As(err, &ce) {
					return made, skipped, err
				}
				r.softFail("connector skipped", logging.Name(sp.Name), logging.String("cylinder", cp.Name), logging.Error(err))
				r.solids[cp.ID] = cyl
				skipped++
				continue
			}
			if cyl, err = r.CSG.Union(cyl, conn.Pin.Solid); err != nil {
				return made, skipped, err
			}
			r.solids[cp.ID] = cyl
			made++
		}
	}
	return made, skipped, nil
}

func (r *run) members(g *grouping.Group) []*scene.Primitive {
	out := make([]*scene.Primitive, 0, len(g.Members))
	for _, id := range g.Members {
		prim, ok := r.in.Scene.Get(id)
		if !ok {
			r.softFail("group member missing", logging.PrimitiveID(int(id)))
			continue
		}
		out = append(out, prim)
	}
	return out
}

func (r *run) join(prims []*scene.Primitive) (kernel.Solid, error) {
	var body kernel.Solid
	for _, prim := range prims {
		s, err := r.solid(prim)
		if err != nil {
			return nil, err
		}
		if body == nil {
			body = s
			continue
		}
		if body, err = r.CSG.Union(body, s); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (r *run) singleColor(g *grouping.Group) ([]*Body, error) {
	prims := r.members(g)
	if len(prims) == 0 {
		return nil, nil
	}
	body, err := r.join(prims)
	if err != nil {
		return nil, err
	}
	origin := geom.Vec(kernel.Center(body))
	if body, err = r.finish(body, prims); err != nil {
		return nil, err
	}
	return []*Body{{
		Name:     fmt.Sprintf("group%d", g.ID),
		Group:    g.ID,
		Solid:    body,
		Origin:   origin,
		Rotation: geom.Identity(),
		Color:    g.Color,
		Members:  ids(prims),
	}}, nil
}

func (r *run) multiColor(g *grouping.Group) ([]*Body, error) {
	prims := r.members(g)
	if len(prims) == 0 {
		return nil, nil
	}
	palette := grouping.RadiusPalette(r.in.Scene.Primitives())
	var spheres, cylinders []*scene.Primitive
	for _, prim := range prims {
		if prim.IsSphere() {
			spheres = append(spheres, prim)
		} else {
			cylinders = append(cylinders, prim)
		}
	}
	classes := append(scene.ByRadius(spheres), scene.ByRadius(cylinders)...)
	parts := make([]kernel.Solid, len(classes))
	var box [2][3]float64
	for i, class := range classes {
		s, err := r.join(class)
		if err != nil {
			return nil, err
		}
		parts[i] = s
		box = grow(box, s, i == 0)
	}
	origin := r3.Scale(0.5, r3.Add(geom.Vec(box[0]), geom.Vec(box[1])))

	// bond bodies give way to every atom body of the group
	for i, class := range classes {
		if !class[0].IsCylinder() {
			continue
		}
		for j, other := range classes {
			if !other[0].IsSphere() {
				continue
			}
			var err error
			if parts[i], err = r.CSG.Difference(parts[i], parts[j]); err != nil {
				return nil, err
			}
		}
	}

	bodies := make([]*Body, 0, len(classes))
	for i, class := range classes {
		s, err := r.finish(parts[i], class)
		if err != nil {
			return nil, err
		}
		radius := geom.Round3(class[0].Radius())
		bodies = append(bodies, &Body{
			Name:     fmt.Sprintf("group%d_%s_r%.3f", g.ID, class[0].Kind(), radius),
			Group:    g.ID,
			Radius:   radius,
			Solid:    s,
			Origin:   origin,
			Rotation: geom.Identity(),
			Color:    palette[radius],
			Members:  ids(class),
		})
	}
	return bodies, nil
}

// finish repairs a joined body and cuts the sockets of its members.
func (r *run) finish(body kernel.Solid, prims []*scene.Primitive) (kernel.Solid, error) {
	body, err := r.CSG.Repair(body)
	if err != nil {
		return nil, err
	}
	for _, cut := range r.cutters(prims) {
		if body, err = r.CSG.Difference(body, cut); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// cutters resolves the helper solids referenced by prims: scaled pins,
// then cones, then cut cubes.
func (r *run) cutters(prims []*scene.Primitive) []kernel.Solid {
	var pinIDs, coneIDs, cubeIDs []scene.HelperID
	for _, prim := range prims {
		pinIDs = append(pinIDs, prim.Pins...)
		coneIDs = append(coneIDs, prim.Cones...)
		cubeIDs = append(cubeIDs, prim.CutCubes...)
	}
	var out []kernel.Solid
	for _, h := range r.in.Registry.Resolve(stage, pinIDs...) {
		out = append(out, scaleAbout(r.CSG, h.Solid, r.PinScale))
	}
	for _, h := range r.in.Registry.Resolve(stage, coneIDs...) {
		out = append(out, h.Solid)
	}
	for _, h := range r.in.Registry.Resolve(stage, cubeIDs...) {
		out = append(out, h.Solid)
	}
	return out
}

func (r *run) softFail(msg string, fields ...logging.Field) {
	r.log.Warn(msg, fields...)
	if r.metrics != nil {
		r.metrics.RecordSoftFailure(stage)
	}
}

// scaleAbout scales s by f about the center of its bounding box.
func scaleAbout(k kernel.Kernel, s kernel.Solid, f float64) kernel.Solid {
	if f == 1 {
		return s
	}
	c := kernel.Center(s)
	s = k.Translate(s, -c[0], -c[1], -c[2])
	s = k.Scale(s, f)
	return k.Translate(s, c[0], c[1], c[2])
}

// grow extends box by the bounding box of s; first replaces it.
func grow(box [2][3]float64, s kernel.Solid, first bool) [2][3]float64 {
	min, max := s.BoundingBox()
	if first {
		return [2][3]float64{min, max}
	}
	for i := 0; i < 3; i++ {
		if min[i] < box[0][i] {
			box[0][i] = min[i]
		}
		if max[i] > box[1][i] {
			box[1][i] = max[i]
		}
	}
	return box
}

func ids(prims []*scene.Primitive) []scene.ID {
	out := make([]scene.ID, len(prims))
	for i, p := range prims {
		out[i] = p.ID
	}
	return out
}
