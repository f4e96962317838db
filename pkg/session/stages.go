package session

import (
	"fmt"

	"github.com/chazu/molprint/pkg/assembly"
	"github.com/chazu/molprint/pkg/grouping"
	"github.com/chazu/molprint/pkg/interact"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/ops"
	"github.com/chazu/molprint/pkg/pins"
	"github.com/chazu/molprint/pkg/scene"
)

// BuildInteractions computes the interaction index from scratch and, with
// auto-grouping on, regroups.
func (s *Session) BuildInteractions() (*interact.Index, error) {
	idx, err := interact.Build(s.Scene, s.tester, interact.Options{
		Cutoff:  s.Config.Interact.Cutoff,
		Logger:  s.log,
		Metrics: s.metrics,
	})
	if err != nil {
		return nil, err
	}
	s.Index = idx
	s.Groups = nil
	s.log.Info("interactions", logging.Int("edges", idx.Len()))
	if err := s.selectionChanged(); err != nil {
		return idx, err
	}
	return idx, nil
}

// Classify runs a classifier and adds what it finds to the selection.
// kind is hbonds, phosphates, glyco or alpha.
func (s *Session) Classify(kind string) (*scene.Selection, error) {
	idx, err := s.index()
	if err != nil {
		return nil, err
	}
	var found *scene.Selection
	switch kind {
	case "hbonds":
		found = s.classifier.HydrogenBonds(s.Scene, idx)
	case "phosphates":
		found = s.classifier.Phosphates(s.Scene, idx)
	case "glyco":
		found = s.classifier.Glycosidic(s.Scene, idx)
	case "alpha":
		found = s.classifier.AlphaCarbons(s.Scene, idx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownClassifier, kind)
	}
	if s.Selection.Union(found) {
		if err := s.selectionChanged(); err != nil {
			return found, err
		}
	}
	return found, nil
}

// DefaultPinType is the configured connector variant.
func (s *Session) DefaultPinType() pins.Type {
	return pins.Type(s.Config.Pins.Type)
}

// DefinePins turns every interacting sphere/cylinder pair in the selection
// into a pin spec of type t, then clears the selection. The pinned
// primitives seed grouping from now on.
func (s *Session) DefinePins(t pins.Type) (pins.Spec, error) {
	idx, err := s.index()
	if err != nil {
		return pins.Spec{}, err
	}
	spec := pins.NewSpec(t, s.Config.Pins)
	spec.Pairs = pins.PairsFromSelection(s.Scene, idx, s.Selection)
	if len(spec.Pairs) == 0 {
		return pins.Spec{}, ErrNoPairs
	}
	if err := spec.Validate(); err != nil {
		return pins.Spec{}, err
	}
	s.Specs = append(s.Specs, spec)
	s.log.Info("pins defined", logging.String("type", t.String()), logging.Count(len(spec.Pairs)))
	s.Selection.Clear()
	return spec, s.selectionChanged()
}

// AddStrut joins two spheres with a hydrogen-bond strut.
func (s *Session) AddStrut(a, b string) (scene.ID, error) {
	pa, ok := s.Scene.Lookup(a)
	if !ok {
		return scene.NoID, fmt.Errorf("strut: %w: %q", scene.ErrNotFound, a)
	}
	pb, ok := s.Scene.Lookup(b)
	if !ok {
		return scene.NoID, fmt.Errorf("strut: %w: %q", scene.ErrNotFound, b)
	}
	id, err := ops.AddStrut(s.Scene, s.Index, pa.ID, pb.ID, s.Config.Bonds.StrutRadius)
	if err != nil {
		return scene.NoID, err
	}
	s.log.Info("strut added", logging.Name(s.Scene.Name(id)))
	return id, s.selectionChanged()
}

// ScaleBonds scales every non-hydrogen-bond cylinder radius by f.
func (s *Session) ScaleBonds(f float64) int {
	n := ops.ScaleBonds(s.Scene, f)
	s.forget(s.Scene.Cylinders())
	s.log.Info("bonds scaled", logging.Float64("factor", f), logging.Count(n))
	return n
}

// ScaleAtoms scales every sphere radius by f.
func (s *Session) ScaleAtoms(f float64) int {
	n := ops.ScaleAtoms(s.Scene, f)
	s.forget(s.Scene.Spheres())
	s.log.Info("atoms scaled", logging.Float64("factor", f), logging.Count(n))
	return n
}

// MakeDouble turns the named cylinders into double bonds.
func (s *Session) MakeDouble(names ...string) int {
	changed, skipped := ops.MakeDouble(s.Scene, s.resolve("double", names), s.Config.Bonds)
	for _, id := range skipped {
		s.softFail("double", "not a cylinder", logging.Name(s.Scene.Name(id)))
	}
	var prims []*scene.Primitive
	for _, n := range names {
		if p, ok := s.Scene.Lookup(n); ok {
			prims = append(prims, p)
		}
	}
	s.forget(prims)
	return changed
}

// Clean removes nested spheres and duplicate cylinders. Removing anything
// discards the interaction index, grouping and pin specs.
func (s *Session) Clean() ops.CleanReport {
	rep := ops.Clean(s.Scene, s.log)
	if rep.Len() > 0 {
		s.Index = nil
		s.Groups = nil
		s.Specs = nil
		s.pruneSelection()
	}
	return rep
}

// Colors returns the color of every primitive: its group color after
// grouping, else one color per radius.
func (s *Session) Colors() map[scene.ID]grouping.RGB {
	if s.Groups == nil || s.Config.Assembly.MultiColor {
		return ops.ColorByRadius(s.Scene)
	}
	out := make(map[scene.ID]grouping.RGB, len(s.Groups.ByPrimitive))
	for _, g := range s.Groups.Groups {
		for _, id := range g.Members {
			out[id] = g.Color
		}
	}
	return out
}

// Assemble builds one body per group (or per radius class in multi-color
// mode). It groups first if needed.
func (s *Session) Assemble() (*assembly.Result, error) {
	if s.Groups == nil {
		if _, err := s.Regroup(); err != nil {
			return nil, err
		}
	}
	res, err := s.pipeline().Run(assembly.Input{
		Scene:      s.Scene,
		Groups:     s.Groups,
		Specs:      s.Specs,
		Registry:   s.Registry,
		MultiColor: s.Config.Assembly.MultiColor,
	})
	if err != nil {
		return nil, err
	}
	s.Bodies = res.Bodies
	s.Loose = res.Loose
	return res, nil
}

// CPK splits a sphere-only model into one body per atom radius.
func (s *Session) CPK() ([]*assembly.Body, error) {
	bodies, err := s.pipeline().CPKSplit(s.Scene)
	if err != nil {
		return nil, err
	}
	s.Bodies = bodies
	s.Loose = nil
	return bodies, nil
}

// forgetter is implemented by overlap testers that cache meshes.
type forgetter interface {
	Forget(ids ...scene.ID)
}

func (s *Session) forget(prims []*scene.Primitive) {
	f, ok := s.tester.(forgetter)
	if !ok {
		return
	}
	ids := make([]scene.ID, len(prims))
	for i, p := range prims {
		ids[i] = p.ID
	}
	f.Forget(ids...)
}
