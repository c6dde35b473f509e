// Package host models the content-creation side of an export: the
// triangulated-or-not source mesh, its editing operators and the scene
// selection.
package host

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is the read-only view of a source mesh. Attributes are stored per
// unique vertex, with loops carrying per-corner overrides such as UVs.
type Mesh interface {
	Name() string

	NumVertices() int
	// Vertex returns the position and normal of vertex i.
	Vertex(i int) (co, normal mgl32.Vec3)

	NumPolygons() int
	// Polygon returns the loop indices of polygon i in winding order.
	// The returned slice must not be modified.
	Polygon(i int) []int

	NumLoops() int
	// LoopVertex returns the vertex index a loop points at.
	LoopVertex(loop int) int
	// LoopUV returns the active UV layer value for a loop. ok is false
	// when the mesh has no UV layer.
	LoopUV(loop int) (uv mgl32.Vec2, ok bool)

	// Materials returns the names of the assigned material slots.
	Materials() []string
}

// Editable is a mesh that supports the host editing operators used around
// an export.
type Editable interface {
	Mesh
	// FlipNormals inverts vertex normals and polygon winding. Applying it
	// twice restores the original mesh.
	FlipNormals()
	// Triangulate splits every polygon with more than three corners and
	// returns the number of polygons split.
	Triangulate() int
}

// ImageSource is implemented by meshes that know the texture file behind
// a material.
type ImageSource interface {
	MaterialImage(material string) string
}

// Vertex is a unique mesh vertex.
type Vertex struct {
	Co     mgl32.Vec3
	Normal mgl32.Vec3
}

// Loop is one polygon corner.
type Loop struct {
	Vertex int
	UV     mgl32.Vec2
}

// Polygon is an ordered list of loop indices.
type Polygon struct {
	Loops []int
}

// EditMesh is an in-memory mesh implementing Editable.
type EditMesh struct {
	MeshName      string
	Verts         []Vertex
	Loops         []Loop
	Polys         []Polygon
	HasUV         bool
	MaterialSlots []string
	Images        map[string]string // material name -> texture path
}

// Name returns the mesh name.
func (m *EditMesh) Name() string { return m.MeshName }

// NumVertices returns the number of unique vertices.
func (m *EditMesh) NumVertices() int { return len(m.Verts) }

// Vertex returns the position and normal of vertex i.
func (m *EditMesh) Vertex(i int) (mgl32.Vec3, mgl32.Vec3) {
	return m.Verts[i].Co, m.Verts[i].Normal
}

// NumPolygons returns the number of polygons.
func (m *EditMesh) NumPolygons() int { return len(m.Polys) }

// Polygon returns the loop indices of polygon i.
func (m *EditMesh) Polygon(i int) []int { return m.Polys[i].Loops }

// NumLoops returns the number of polygon corners.
func (m *EditMesh) NumLoops() int { return len(m.Loops) }

// LoopVertex returns the vertex index of a loop.
func (m *EditMesh) LoopVertex(loop int) int { return m.Loops[loop].Vertex }

// LoopUV returns the UV of a loop.
func (m *EditMesh) LoopUV(loop int) (mgl32.Vec2, bool) {
	if !m.HasUV {
		return mgl32.Vec2{}, false
	}
	return m.Loops[loop].UV, true
}

// Materials returns the material slot names.
func (m *EditMesh) Materials() []string { return m.MaterialSlots }

// MaterialImage returns the texture path recorded for a material, if any.
func (m *EditMesh) MaterialImage(material string) string {
	return m.Images[material]
}

// AddPolygon appends a polygon with one new loop per vertex index.
func (m *EditMesh) AddPolygon(verts []int, uvs []mgl32.Vec2) {
	poly := Polygon{Loops: make([]int, len(verts))}
	for i, v := range verts {
		loop := Loop{Vertex: v}
		if i < len(uvs) {
			loop.UV = uvs[i]
		}
		poly.Loops[i] = len(m.Loops)
		m.Loops = append(m.Loops, loop)
	}
	m.Polys = append(m.Polys, poly)
}
