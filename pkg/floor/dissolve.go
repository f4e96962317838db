package floor

import (
	"sort"

	"github.com/chazu/molprint/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Dissolve merges hull triangles into faces. A face grows from a seed
// triangle across shared edges, taking in a neighbour only while its
// normal is within angle of both the seed's and the face's running
// normal, so a curved run of triangles cannot drift into one face.
// Larger triangles seed first. A face's normal is the area-weighted mean
// of its triangles' normals; faces with no usable normal, such as
// zero-area slivers, are left out.
func Dissolve(h *Hull, angle float64) []Face {
	n := len(h.Triangles)
	normals := make([]r3.Vec, n)
	areas := make([]float64, n)
	for t := range h.Triangles {
		normals[t] = h.Normal(t)
		areas[t] = h.Area(t)
	}
	byEdge := make(map[edge]int, 3*n)
	for t, tri := range h.Triangles {
		for k := 0; k < 3; k++ {
			byEdge[edge{tri[k], tri[(k+1)%3]}] = t
		}
	}

	seeds := make([]int, n)
	for i := range seeds {
		seeds[i] = i
	}
	sort.SliceStable(seeds, func(i, j int) bool { return areas[seeds[i]] > areas[seeds[j]] })

	taken := make([]bool, n)
	var faces []Face
	for _, seed := range seeds {
		if taken[seed] || areas[seed] <= 0 {
			continue
		}
		taken[seed] = true
		f := Face{Area: areas[seed], Triangles: []int{seed}}
		weighted := r3.Scale(areas[seed], normals[seed])
		queue := []int{seed}
		for len(queue) > 0 {
			t := queue[0]
			queue = queue[1:]
			tri := h.Triangles[t]
			for k := 0; k < 3; k++ {
				u, ok := byEdge[edge{tri[(k+1)%3], tri[k]}]
				if !ok || taken[u] || areas[u] <= 0 {
					continue
				}
				if geom.Angle(normals[seed], normals[u]) >= angle ||
					geom.Angle(weighted, normals[u]) >= angle {
					continue
				}
				taken[u] = true
				f.Area += areas[u]
				f.Triangles = append(f.Triangles, u)
				weighted = r3.Add(weighted, r3.Scale(areas[u], normals[u]))
				queue = append(queue, u)
			}
		}
		if r3.Norm(weighted) < geom.Eps {
			continue
		}
		f.Normal = r3.Unit(weighted)
		faces = append(faces, f)
	}
	return faces
}
