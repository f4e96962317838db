package floor

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrFlat is returned when the points span no volume.
var ErrFlat = errors.New("floor: points are coplanar")

// Triangle is one outward-wound hull triangle, indexing Hull.Points.
type Triangle [3]int

// Hull is a closed convex triangle mesh.
type Hull struct {
	Points    []r3.Vec
	Triangles []Triangle
}

// Normal returns the unit outward normal of triangle t.
func (h *Hull) Normal(t int) r3.Vec {
	return r3.Unit(h.cross(t))
}

// Area returns the area of triangle t.
func (h *Hull) Area(t int) float64 {
	return r3.Norm(h.cross(t)) / 2
}

func (h *Hull) cross(t int) r3.Vec {
	tri := h.Triangles[t]
	a, b, c := h.Points[tri[0]], h.Points[tri[1]], h.Points[tri[2]]
	return r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
}

type face struct {
	v       Triangle
	n       r3.Vec // unit normal
	off     float64
	outside []int
	dead    bool
}

func (f *face) dist(p r3.Vec) float64 { return r3.Dot(f.n, p) - f.off }

type edge [2]int

// ConvexHull computes the hull of pts with quickhull: every face keeps the
// points outside it, and the farthest of them is added next.
func ConvexHull(pts []r3.Vec) (*Hull, error) {
	pts = dedupe(pts)
	if len(pts) < 4 {
		return nil, ErrFlat
	}
	eps := 1e-9 * scale(pts)

	i0, i1, i2, i3, ok := simplex(pts, eps)
	if !ok {
		return nil, ErrFlat
	}
	centroid := r3.Scale(0.25, r3.Add(r3.Add(pts[i0], pts[i1]), r3.Add(pts[i2], pts[i3])))

	var faces []*face
	mk := func(a, b, c int) *face {
		n := r3.Cross(r3.Sub(pts[b], pts[a]), r3.Sub(pts[c], pts[a]))
		if r3.Dot(n, r3.Sub(centroid, pts[a])) > 0 {
			b, c = c, b
			n = r3.Scale(-1, n)
		}
		n = r3.Unit(n)
		f := &face{v: Triangle{a, b, c}, n: n, off: r3.Dot(n, pts[a])}
		faces = append(faces, f)
		return f
	}
	first := []*face{mk(i0, i1, i2), mk(i0, i1, i3), mk(i0, i2, i3), mk(i1, i2, i3)}
	for i := range pts {
		if i == i0 || i == i1 || i == i2 || i == i3 {
			continue
		}
		assign(first, i, pts, eps)
	}

	for {
		f := pending(faces)
		if f == nil {
			break
		}
		eye := farthest(f, pts)
		p := pts[eye]

		var visible []*face
		owned := make(map[edge]bool)
		for _, g := range faces {
			if !g.dead && g.dist(p) > eps {
				visible = append(visible, g)
				for k := 0; k < 3; k++ {
					owned[edge{g.v[k], g.v[(k+1)%3]}] = true
				}
			}
		}
		var orphans []int
		for _, g := range visible {
			g.dead = true
			for _, q := range g.outside {
				if q != eye {
					orphans = append(orphans, q)
				}
			}
			g.outside = nil
		}
		var fresh []*face
		for _, g := range visible {
			for k := 0; k < 3; k++ {
				a, b := g.v[k], g.v[(k+1)%3]
				// horizon edges border exactly one visible face
				if owned[edge{b, a}] {
					continue
				}
				nf := &face{v: Triangle{a, b, eye}}
				n := r3.Cross(r3.Sub(pts[b], pts[a]), r3.Sub(p, pts[a]))
				nf.n = r3.Unit(n)
				nf.off = r3.Dot(nf.n, pts[a])
				faces = append(faces, nf)
				fresh = append(fresh, nf)
			}
		}
		for _, q := range orphans {
			assign(fresh, q, pts, eps)
		}
	}

	h := &Hull{Points: pts}
	for _, f := range faces {
		if !f.dead {
			h.Triangles = append(h.Triangles, f.v)
		}
	}
	return h, nil
}

// assign gives point i to the first face it lies outside of.
func assign(faces []*face, i int, pts []r3.Vec, eps float64) {
	for _, f := range faces {
		if f.dist(pts[i]) > eps {
			f.outside = append(f.outside, i)
			return
		}
	}
}

func pending(faces []*face) *face {
	for _, f := range faces {
		if !f.dead && len(f.outside) > 0 {
			return f
		}
	}
	return nil
}

func farthest(f *face, pts []r3.Vec) int {
	best, bestD := f.outside[0], math.Inf(-1)
	for _, i := range f.outside {
		if d := f.dist(pts[i]); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

// simplex picks four affinely independent points, spread as far as
// possible.
func simplex(pts []r3.Vec, eps float64) (int, int, int, int, bool) {
	i0 := 0
	for i, p := range pts {
		if p.X < pts[i0].X {
			i0 = i
		}
	}
	i1, best := -1, eps
	for i, p := range pts {
		if d := r3.Norm(r3.Sub(p, pts[i0])); d > best {
			i1, best = i, d
		}
	}
	if i1 < 0 {
		return 0, 0, 0, 0, false
	}
	line := r3.Unit(r3.Sub(pts[i1], pts[i0]))
	i2, best := -1, eps
	for i, p := range pts {
		if d := r3.Norm(r3.Cross(line, r3.Sub(p, pts[i0]))); d > best {
			i2, best = i, d
		}
	}
	if i2 < 0 {
		return 0, 0, 0, 0, false
	}
	n := r3.Unit(r3.Cross(r3.Sub(pts[i1], pts[i0]), r3.Sub(pts[i2], pts[i0])))
	i3, best := -1, eps
	for i, p := range pts {
		if d := math.Abs(r3.Dot(n, r3.Sub(p, pts[i0]))); d > best {
			i3, best = i, d
		}
	}
	if i3 < 0 {
		return 0, 0, 0, 0, false
	}
	return i0, i1, i2, i3, true
}

// dedupe drops repeated points; meshes repeat every shared vertex.
func dedupe(pts []r3.Vec) []r3.Vec {
	seen := make(map[r3.Vec]bool, len(pts))
	out := make([]r3.Vec, 0, len(pts))
	for _, p := range pts {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func scale(pts []r3.Vec) float64 {
	s := 0.0
	for _, p := range pts {
		s = math.Max(s, math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z))))
	}
	return math.Max(s, 1)
}
