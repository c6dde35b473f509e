package xmodel

import "fmt"

// rawFace is a decoded face whose corners still use global vertex indices.
type rawFace struct {
	Object int
	Face   Face
}

// assemble splits the global vertex and face lists of a decoded file back
// into per-object meshes. Writers emit each mesh's vertices as one
// contiguous block, so a vertex belongs to the object of the first face
// that references it; unreferenced vertices stay with the preceding block.
func assemble(m *Model, verts []Vertex, faces []rawFace, objects []string) error {
	if len(objects) == 0 {
		if len(verts) > 0 || len(faces) > 0 {
			return fmt.Errorf("geometry without objects")
		}
		return nil
	}

	owner := make([]int, len(verts))
	for i := range owner {
		owner[i] = -1
	}
	for fi, rf := range faces {
		if rf.Object < 0 || rf.Object >= len(objects) {
			return fmt.Errorf("face %d references object %d of %d", fi, rf.Object, len(objects))
		}
		for _, c := range rf.Face.Corners {
			if c.Vertex < 0 || c.Vertex >= len(verts) {
				return fmt.Errorf("face %d references vertex %d of %d", fi, c.Vertex, len(verts))
			}
			if owner[c.Vertex] == -1 {
				owner[c.Vertex] = rf.Object
			}
		}
	}
	prev := 0
	for i := range owner {
		if owner[i] == -1 || len(objects) == 1 {
			owner[i] = prev
		}
		prev = owner[i]
	}

	m.Meshes = make([]Mesh, len(objects))
	local := make([]int, len(verts))
	for i, name := range objects {
		m.Meshes[i].Name = name
	}
	for i, vert := range verts {
		mesh := &m.Meshes[owner[i]]
		local[i] = len(mesh.Vertices)
		mesh.Vertices = append(mesh.Vertices, vert)
	}
	for fi, rf := range faces {
		face := rf.Face
		for ci := range face.Corners {
			g := face.Corners[ci].Vertex
			if owner[g] != rf.Object {
				return fmt.Errorf("face %d of object %d shares vertex %d with object %d",
					fi, rf.Object, g, owner[g])
			}
			face.Corners[ci].Vertex = local[g]
		}
		mesh := &m.Meshes[rf.Object]
		mesh.Faces = append(mesh.Faces, face)
	}
	return nil
}
