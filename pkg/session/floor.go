package session

import (
	"fmt"

	"github.com/chazu/molprint/pkg/assembly"
	"github.com/chazu/molprint/pkg/floor"
	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/logging"
	"github.com/chazu/molprint/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// Floor orients the named bodies, or all of them, on the build plate.
// mode "auto" floors each body on its own largest face; "multi" floors
// them together as one rigid piece.
func (s *Session) Floor(mode string, names ...string) error {
	bodies, err := s.bodies(names)
	if err != nil {
		return err
	}
	objs := make([]*floor.Object, len(bodies))
	for i, b := range bodies {
		if objs[i], err = s.object(b); err != nil {
			return err
		}
	}
	timer := logging.StartTimer(s.log, "floored", logging.Stage("floor"), logging.String("mode", mode))
	angle := s.Config.Floor.DissolveAngle
	switch mode {
	case "auto", "":
		for _, o := range objs {
			if _, err := floor.Auto(o, angle); err != nil {
				return err
			}
		}
	case "multi":
		if _, err := floor.Multi(objs, angle); err != nil {
			return err
		}
	default:
		return fmt.Errorf("floor: unknown mode %q", mode)
	}
	for i, b := range bodies {
		b.Origin = objs[i].Transform.Translation
		b.Rotation = objs[i].Transform.Rotation
	}
	s.metrics.RecordStage("floor", timer.End())
	return nil
}

// Faces lists the hull faces of a body, largest first. FloorFaces takes
// indexes into this list.
func (s *Session) Faces(name string) ([]floor.Face, error) {
	bodies, err := s.bodies([]string{name})
	if err != nil {
		return nil, err
	}
	o, err := s.object(bodies[0])
	if err != nil {
		return nil, err
	}
	return floor.Faces(o.Mesh, s.Config.Floor.DissolveAngle)
}

// FloorFaces floors one body on the mean normal of the chosen faces.
func (s *Session) FloorFaces(name string, faces []int) error {
	bodies, err := s.bodies([]string{name})
	if err != nil {
		return err
	}
	b := bodies[0]
	o, err := s.object(b)
	if err != nil {
		return err
	}
	all, err := floor.Faces(o.Mesh, s.Config.Floor.DissolveAngle)
	if err != nil {
		return err
	}
	picked := make([]floor.Face, 0, len(faces))
	for _, i := range faces {
		if i < 0 || i >= len(all) {
			return fmt.Errorf("floor %q: face %d out of range, body has %d", name, i, len(all))
		}
		picked = append(picked, all[i])
	}
	if err := floor.Manual(o, picked); err != nil {
		return err
	}
	b.Rotation = o.Transform.Rotation
	return nil
}

// bodies returns the named bodies, or all of them when names is empty.
func (s *Session) bodies(names []string) ([]*assembly.Body, error) {
	if len(s.Bodies) == 0 {
		return nil, ErrNoBodies
	}
	if len(names) == 0 {
		return s.Bodies, nil
	}
	out := make([]*assembly.Body, 0, len(names))
	for _, n := range names {
		b := s.Body(n)
		if b == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBody, n)
		}
		out = append(out, b)
	}
	return out, nil
}

// Body returns the assembled body called name, or nil.
func (s *Session) Body(name string) *assembly.Body {
	for _, b := range s.Bodies {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// object meshes b in its own frame: the solid is in scene coordinates, so
// it is shifted by the body origin.
func (s *Session) object(b *assembly.Body) (*floor.Object, error) {
	m, err := s.kernel.ToMesh(b.Solid)
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", b.Name, err)
	}
	return &floor.Object{
		Name: b.Name,
		Mesh: shift(m, r3.Scale(-1, b.Origin)),
		Transform: scene.Transform{
			Translation: b.Origin,
			Rotation:    b.Rotation,
		},
	}, nil
}

// World returns b's mesh placed by its origin and rotation, ready for
// export.
func (s *Session) World(b *assembly.Body) (*kernel.Mesh, error) {
	o, err := s.object(b)
	if err != nil {
		return nil, err
	}
	out := &kernel.Mesh{Name: b.Name, Indices: o.Mesh.Indices}
	out.Vertices = make([]float32, len(o.Mesh.Vertices))
	for i := 0; i < o.Mesh.VertexCount(); i++ {
		v := o.Mesh.Vertex(i)
		p := o.Transform.Apply(r3.Vec{X: v[0], Y: v[1], Z: v[2]})
		out.Vertices[3*i], out.Vertices[3*i+1], out.Vertices[3*i+2] = float32(p.X), float32(p.Y), float32(p.Z)
	}
	if len(o.Mesh.Normals) == len(o.Mesh.Vertices) {
		out.Normals = make([]float32, len(o.Mesh.Normals))
		for i := 0; i < len(o.Mesh.Normals); i += 3 {
			n := o.Transform.Direction(r3.Vec{
				X: float64(o.Mesh.Normals[i]), Y: float64(o.Mesh.Normals[i+1]), Z: float64(o.Mesh.Normals[i+2]),
			})
			out.Normals[i], out.Normals[i+1], out.Normals[i+2] = float32(n.X), float32(n.Y), float32(n.Z)
		}
	}
	return out, nil
}

func shift(m *kernel.Mesh, d r3.Vec) *kernel.Mesh {
	out := &kernel.Mesh{Name: m.Name, Normals: m.Normals, Indices: m.Indices}
	out.Vertices = make([]float32, len(m.Vertices))
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		out.Vertices[i] = m.Vertices[i] + float32(d.X)
		out.Vertices[i+1] = m.Vertices[i+1] + float32(d.Y)
		out.Vertices[i+2] = m.Vertices[i+2] + float32(d.Z)
	}
	return out
}
