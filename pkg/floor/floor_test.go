package floor

import (
	"math"
	"testing"

	"github.com/chazu/molprint/pkg/geom"
	"github.com/chazu/molprint/pkg/kernel"
	"github.com/chazu/molprint/pkg/kernel/kerneltest"
	"github.com/chazu/molprint/pkg/kernel/sdfx"
	"github.com/chazu/molprint/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-6

func assertVec(t *testing.T, want, got r3.Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x of %v", got)
	assert.InDelta(t, want.Y, got.Y, tol, "y of %v", got)
	assert.InDelta(t, want.Z, got.Z, tol, "z of %v", got)
}

// slab is a 4 x 3 x 0.5 box centered on the origin; its largest faces are
// the two Z faces.
func slab() *kernel.Mesh {
	return kerneltest.BoxMesh([3]float64{-2, -1.5, -0.25}, [3]float64{2, 1.5, 0.25})
}

func cubeCorners() []r3.Vec {
	var pts []r3.Vec
	for c := 0; c < 8; c++ {
		p := r3.Vec{X: -1, Y: -1, Z: -1}
		if c&1 != 0 {
			p.X = 1
		}
		if c&2 != 0 {
			p.Y = 1
		}
		if c&4 != 0 {
			p.Z = 1
		}
		pts = append(pts, p)
	}
	return pts
}

func TestConvexHullCube(t *testing.T) {
	pts := cubeCorners()
	pts = append(pts, r3.Vec{}, r3.Vec{X: 0.5, Y: -0.2}, pts[3], pts[5])

	h, err := ConvexHull(pts)
	require.NoError(t, err)
	assert.Len(t, h.Triangles, 12)

	area := 0.0
	for i, tri := range h.Triangles {
		for _, v := range tri {
			assert.InDelta(t, 3.0, r3.Norm2(h.Points[v]), tol, "only corners are hull vertices")
		}
		c := r3.Scale(1.0/3, r3.Add(h.Points[tri[0]], r3.Add(h.Points[tri[1]], h.Points[tri[2]])))
		assert.Greater(t, r3.Dot(h.Normal(i), c), 0.0, "triangle %d faces outward", i)
		area += h.Area(i)
	}
	assert.InDelta(t, 24.0, area, tol)
}

func TestConvexHullFlat(t *testing.T) {
	_, err := ConvexHull([]r3.Vec{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}, {X: 0.5, Y: 0.5}})
	assert.ErrorIs(t, err, ErrFlat)

	_, err = ConvexHull([]r3.Vec{{}, {X: 1}})
	assert.ErrorIs(t, err, ErrFlat)
}

func TestDissolve(t *testing.T) {
	tests := []struct {
		name  string
		pts   []r3.Vec
		faces int
	}{
		{"cube", cubeCorners(), 6},
		{"octahedron", []r3.Vec{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1}}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ConvexHull(tt.pts)
			require.NoError(t, err)
			faces := Dissolve(h, DefaultDissolveAngle)
			assert.Len(t, faces, tt.faces)
			total := 0
			for _, f := range faces {
				total += len(f.Triangles)
				assert.InDelta(t, 1.0, r3.Norm(f.Normal), tol)
			}
			assert.Equal(t, len(h.Triangles), total)
		})
	}
}

func TestDissolveAngleMergesNearlyFlatRidge(t *testing.T) {
	// a roof so shallow its two sides merge at the default angle
	pts := cubeCorners()
	pts = append(pts, r3.Vec{Z: 1.03})
	h, err := ConvexHull(pts)
	require.NoError(t, err)
	assert.Len(t, Dissolve(h, DefaultDissolveAngle), 6)
	assert.Greater(t, len(Dissolve(h, 0.001)), 6)
}

// filleted is a 12 x 6 x 4 box whose four long edges are rounded with
// radius 1, each quarter arc cut into segs steps. Only the vertices matter
// to the hull.
func filleted(segs int) *kernel.Mesh {
	m := &kernel.Mesh{}
	corners := [][2]float64{{2, 1}, {-2, 1}, {-2, -1}, {2, -1}}
	for c, yz := range corners {
		for i := 0; i <= segs; i++ {
			a := float64(c)*math.Pi/2 + float64(i)*math.Pi/2/float64(segs)
			y, z := yz[0]+math.Cos(a), yz[1]+math.Sin(a)
			for _, x := range []float64{-6, 6} {
				m.Vertices = append(m.Vertices, float32(x), float32(y), float32(z))
			}
		}
	}
	return m
}

// atomPair meshes two spheres joined by a bond the way the pipeline does.
func atomPair(t *testing.T) *kernel.Mesh {
	t.Helper()
	k := sdfx.NewWithCells(40, kernel.PrecisionExact)
	a, err := k.Sphere(1, 32)
	require.NoError(t, err)
	b, err := k.Sphere(1, 32)
	require.NoError(t, err)
	bond, err := k.Cylinder(3, 0.3, 32)
	require.NoError(t, err)
	body, err := k.Union(k.Translate(a, -1.5, 0, 0), k.Translate(b, 1.5, 0, 0))
	require.NoError(t, err)
	body, err = k.Union(body, k.RotateAxis(bond, [3]float64{0, 1, 0}, math.Pi/2))
	require.NoError(t, err)
	mesh, err := k.ToMesh(body)
	require.NoError(t, err)
	return mesh
}

func hullOf(t *testing.T, m *kernel.Mesh) *Hull {
	t.Helper()
	pts := make([]r3.Vec, m.VertexCount())
	for i := range pts {
		pts[i] = geom.Vec(m.Vertex(i))
	}
	h, err := ConvexHull(pts)
	require.NoError(t, err)
	return h
}

func TestDissolveDoesNotChainAcrossCurves(t *testing.T) {
	tests := []struct {
		name string
		mesh func(*testing.T) *kernel.Mesh
	}{
		{"filleted box", func(*testing.T) *kernel.Mesh { return filleted(32) }},
		{"atom pair", atomPair},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := hullOf(t, tt.mesh(t))
			faces := Dissolve(h, DefaultDissolveAngle)
			require.Greater(t, len(faces), 6)

			total := 0.0
			for _, f := range faces {
				total += f.Area
				require.InDelta(t, 1.0, r3.Norm(f.Normal), tol)
				for _, tri := range f.Triangles {
					assert.Less(t, geom.Angle(h.Normal(tri), f.Normal), 2*DefaultDissolveAngle,
						"triangle %d strays from its face", tri)
				}
			}
			for _, f := range faces {
				assert.Less(t, f.Area, total/2, "one face swallowed the hull")
			}
		})
	}
}

func TestAutoOnFilletedBox(t *testing.T) {
	f, err := LargestFace(filleted(32), DefaultDissolveAngle)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, math.Abs(f.Normal.Z), 1e-3, "flat top or bottom wins")
	assert.Greater(t, f.Area, 48.0)
	assert.Less(t, f.Area, 50.0)

	o := &Object{
		Name:      "fillet",
		Mesh:      filleted(32),
		Transform: scene.Transform{Rotation: r3.NewRotation(0.4, r3.Vec{X: 1, Z: 1})},
	}
	f, err = Auto(o, DefaultDissolveAngle)
	require.NoError(t, err)
	q := o.Transform.Rotation
	for _, c := range []float64{q.Real, q.Imag, q.Jmag, q.Kmag} {
		assert.False(t, math.IsNaN(c), "rotation %v", q)
	}
	assertVec(t, Down, o.Transform.Direction(f.Normal))
}

func TestAutoOnAtomPair(t *testing.T) {
	o := &Object{Name: "pair", Mesh: atomPair(t), Transform: scene.Transform{Rotation: geom.Identity()}}
	f, err := Auto(o, DefaultDissolveAngle)
	require.NoError(t, err)
	// the flat run of the hull lies along the bond axis
	assert.InDelta(t, 0.0, f.Normal.X, 0.1)
	assertVec(t, Down, o.Transform.Direction(f.Normal))
}

func TestDissolveSkipsDegenerateTriangles(t *testing.T) {
	h := &Hull{
		Points:    []r3.Vec{{}, {X: 1}, {X: 2}, {Y: 1}},
		Triangles: []Triangle{{0, 1, 2}, {0, 1, 3}},
	}
	faces := Dissolve(h, DefaultDissolveAngle)
	require.Len(t, faces, 1)
	assert.Equal(t, []int{1}, faces[0].Triangles)
}

func TestLargestFace(t *testing.T) {
	f, err := LargestFace(slab(), DefaultDissolveAngle)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, f.Area, tol)
	assert.InDelta(t, 1.0, math.Abs(f.Normal.Z), tol)

	_, err = LargestFace(&kernel.Mesh{}, DefaultDissolveAngle)
	assert.ErrorIs(t, err, ErrEmptyMesh)
}

func TestAlign(t *testing.T) {
	tests := []struct {
		name string
		from r3.Vec
	}{
		{"side", r3.Vec{X: 1}},
		{"already down", Down},
		{"up", r3.Vec{Z: 1}},
		{"oblique", r3.Vec{X: 1, Y: 2, Z: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Align(tt.from, Down)
			assertVec(t, Down, q.Rotate(r3.Unit(tt.from)))
		})
	}
	_, angle := geom.AxisAngle(Align(r3.Vec{X: 1}, Down))
	assert.InDelta(t, math.Pi/2, angle, tol, "rotation is minimal")
}

// lowest returns how many world vertices of o sit on its lowest plane.
func lowest(o *Object) int {
	w := o.world()
	min := math.Inf(1)
	for i := 0; i < w.VertexCount(); i++ {
		min = math.Min(min, w.Vertex(i)[2])
	}
	seen := map[[3]float32]bool{}
	for i := 0; i < w.VertexCount(); i++ {
		if math.Abs(w.Vertex(i)[2]-min) < 1e-4 {
			seen[[3]float32{w.Vertices[3*i], w.Vertices[3*i+1], w.Vertices[3*i+2]}] = true
		}
	}
	return len(seen)
}

func TestAutoRestsOnDominantFace(t *testing.T) {
	tilt := r3.NewRotation(0.7, r3.Vec{X: 1, Y: 1})
	o := &Object{
		Name: "slab",
		Mesh: slab(),
		Transform: scene.Transform{
			Translation: r3.Vec{X: 3, Y: -2, Z: 7},
			Rotation:    tilt,
		},
	}
	f, err := Auto(o, DefaultDissolveAngle)
	require.NoError(t, err)
	assertVec(t, Down, o.Transform.Direction(f.Normal))
	assert.Equal(t, 4, lowest(o), "a whole face lies on the plate")
	assertVec(t, r3.Vec{X: 3, Y: -2, Z: 7}, o.Transform.Translation)
}

func TestManual(t *testing.T) {
	o := &Object{Name: "m", Mesh: slab(), Transform: scene.Transform{Rotation: geom.Identity()}}
	faces := []Face{{Normal: r3.Vec{X: 1}}, {Normal: r3.Vec{Y: 1}}}
	require.NoError(t, Manual(o, faces))
	assertVec(t, Down, o.Transform.Direction(r3.Unit(r3.Vec{X: 1, Y: 1})))

	assert.ErrorIs(t, Manual(o, nil), ErrNoFaces)
	assert.ErrorIs(t, Manual(o, []Face{{Normal: r3.Vec{X: 1}}, {Normal: r3.Vec{X: -1}}}), ErrNoNormal)
}

func TestMultiKeepsArrangement(t *testing.T) {
	stand := r3.NewRotation(math.Pi/2, r3.Vec{X: 1})
	a := &Object{Name: "a", Mesh: slab(), Transform: scene.Transform{Rotation: stand}}
	b := &Object{Name: "b", Mesh: slab(), Transform: scene.Transform{
		Translation: r3.Vec{X: 10},
		Rotation:    stand,
	}}
	_, err := Multi([]*Object{a, b}, DefaultDissolveAngle)
	require.NoError(t, err)

	assertVec(t, r3.Vec{}, a.Transform.Translation)
	assert.InDelta(t, 10.0, r3.Norm(b.Transform.Translation), tol)
	assert.Equal(t, a.Transform.Rotation, b.Transform.Rotation)
	assert.Equal(t, 4, lowest(a))
	assert.Equal(t, 4, lowest(b))

	_, err = Multi(nil, DefaultDissolveAngle)
	assert.ErrorIs(t, err, ErrNoFaces)
}
