package host

import (
	"github.com/go-gl/mathgl/mgl32"
)

// FlipNormals negates every vertex normal and reverses polygon winding.
func (m *EditMesh) FlipNormals() {
	for i := range m.Verts {
		m.Verts[i].Normal = m.Verts[i].Normal.Mul(-1)
	}
	for _, poly := range m.Polys {
		loops := poly.Loops
		for i, j := 0, len(loops)-1; i < j; i, j = i+1, j-1 {
			loops[i], loops[j] = loops[j], loops[i]
		}
	}
}

// Triangulate fans every n-gon (n > 3) from its first corner. Triangles
// after the first get copies of the shared loops so each loop still belongs
// to a single polygon.
func (m *EditMesh) Triangulate() int {
	split := 0
	polys := make([]Polygon, 0, len(m.Polys))
	for _, poly := range m.Polys {
		loops := poly.Loops
		if len(loops) <= 3 {
			polys = append(polys, poly)
			continue
		}
		split++
		polys = append(polys, Polygon{Loops: []int{loops[0], loops[1], loops[2]}})
		for i := 2; i < len(loops)-1; i++ {
			first := m.copyLoop(loops[0])
			prev := m.copyLoop(loops[i])
			polys = append(polys, Polygon{Loops: []int{first, prev, loops[i+1]}})
		}
	}
	m.Polys = polys
	return split
}

func (m *EditMesh) copyLoop(loop int) int {
	m.Loops = append(m.Loops, m.Loops[loop])
	return len(m.Loops) - 1
}

// RecalcNormals sets every vertex normal to the normalized, area-weighted
// sum of the normals of the polygons using it. When only is non-nil, just
// the vertices flagged in it are updated.
func (m *EditMesh) RecalcNormals(only []bool) {
	sums := make([]mgl32.Vec3, len(m.Verts))
	for _, poly := range m.Polys {
		if len(poly.Loops) < 3 {
			continue
		}
		// Newell's method handles non-planar n-gons.
		var n mgl32.Vec3
		for i, loop := range poly.Loops {
			cur := m.Verts[m.Loops[loop].Vertex].Co
			next := m.Verts[m.Loops[poly.Loops[(i+1)%len(poly.Loops)]].Vertex].Co
			n = n.Add(cur.Cross(next))
		}
		for _, loop := range poly.Loops {
			v := m.Loops[loop].Vertex
			sums[v] = sums[v].Add(n)
		}
	}
	for i := range m.Verts {
		if only != nil && !only[i] {
			continue
		}
		if sums[i].Len() > 0 {
			m.Verts[i].Normal = sums[i].Normalize()
		}
	}
}
