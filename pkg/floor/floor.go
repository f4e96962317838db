// Package floor finds the orientation that puts a body on the build plate.
//
// The candidate faces are those of the body's convex hull after nearly
// coplanar hull triangles are merged. Auto placement picks the largest
// face; manual placement averages faces a user picked. Either way the
// chosen normal is turned onto Down with the smallest rotation, about the
// body's own origin, leaving its translation alone.
package floor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/molprint/pkg/geom"
	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/scene"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultDissolveAngle merges hull triangles whose normals differ by less
// than this many radians.
const DefaultDissolveAngle = 0.09

// Down is the build plate normal seen from the part.
var Down = r3.Vec{Z: -1}

var (
	ErrNoFaces   = errors.New("floor: no faces given")
	ErrNoNormal  = errors.New("floor: selected faces cancel out")
	ErrEmptyMesh = errors.New("floor: mesh has no vertices")
	ErrNoFace    = errors.New("floor: hull has no face with a usable normal")
)

// Face is a planar region of a hull: one or more merged triangles.
type Face struct {
	Normal    r3.Vec
	Area      float64
	Triangles []int
}

// Object is something that can be floored: local geometry and the
// transform that places it.
type Object struct {
	Name      string
	Mesh      *kernel.Mesh
	Transform scene.Transform
}

// Faces returns the hull faces of mesh, largest first. Adjacent triangles
// are merged while their normals stay within angle of the face they join.
func Faces(mesh *kernel.Mesh, angle float64) ([]Face, error) {
	if mesh == nil || mesh.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	pts := make([]r3.Vec, mesh.VertexCount())
	for i := range pts {
		pts[i] = geom.Vec(mesh.Vertex(i))
	}
	h, err := ConvexHull(pts)
	if err != nil {
		return nil, err
	}
	faces := Dissolve(h, angle)
	if len(faces) == 0 {
		return nil, ErrNoFace
	}
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].Area > faces[j].Area })
	return faces, nil
}

// LargestFace returns the largest hull face of mesh.
func LargestFace(mesh *kernel.Mesh, angle float64) (Face, error) {
	faces, err := Faces(mesh, angle)
	if err != nil {
		return Face{}, err
	}
	return faces[0], nil
}

// Align returns the smallest rotation taking from onto to. Opposite
// vectors turn half way round an axis perpendicular to from.
func Align(from, to r3.Vec) r3.Rotation {
	return geom.RotationBetween(from, to)
}

// Auto floors o on its largest hull face.
func Auto(o *Object, angle float64) (Face, error) {
	f, err := LargestFace(o.Mesh, angle)
	if err != nil {
		return Face{}, fmt.Errorf("floor %q: %w", o.Name, err)
	}
	o.rest(f.Normal)
	return f, nil
}

// Manual floors o on the unweighted mean normal of faces, which are in
// o's local frame.
func Manual(o *Object, faces []Face) error {
	if len(faces) == 0 {
		return ErrNoFaces
	}
	var sum r3.Vec
	for _, f := range faces {
		sum = r3.Add(sum, f.Normal)
	}
	mean := r3.Scale(1/float64(len(faces)), sum)
	if r3.Norm(mean) < geom.Eps {
		return fmt.Errorf("floor %q: %w", o.Name, ErrNoNormal)
	}
	o.rest(mean)
	return nil
}

// Multi floors several objects as one rigid piece. The hull is taken over
// all of them in world space and the rotation pivots on the first
// object's origin, so their relative arrangement is kept.
func Multi(objs []*Object, angle float64) (Face, error) {
	if len(objs) == 0 {
		return Face{}, ErrNoFaces
	}
	joined := &kernel.Mesh{}
	for _, o := range objs {
		joined.Merge(o.world())
	}
	f, err := LargestFace(joined, angle)
	if err != nil {
		return Face{}, err
	}
	q := Align(f.Normal, Down)
	pivot := objs[0].Transform.Translation
	for _, o := range objs {
		rel := r3.Sub(o.Transform.Translation, pivot)
		o.Transform.Translation = r3.Add(pivot, q.Rotate(rel))
		o.Transform.Rotation = geom.Compose(o.Transform.Rotation, q)
	}
	return f, nil
}

// rest turns o so that the local direction n points Down.
func (o *Object) rest(n r3.Vec) {
	world := o.Transform.Direction(n)
	o.Transform.Rotation = geom.Compose(o.Transform.Rotation, Align(world, Down))
}

// world returns a copy of o's mesh in world space.
func (o *Object) world() *kernel.Mesh {
	out := &kernel.Mesh{Name: o.Name, Indices: append([]uint32(nil), o.Mesh.Indices...)}
	out.Vertices = make([]float32, 0, len(o.Mesh.Vertices))
	for i := 0; i < o.Mesh.VertexCount(); i++ {
		p := o.Transform.Apply(geom.Vec(o.Mesh.Vertex(i)))
		out.Vertices = append(out.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return out
}
