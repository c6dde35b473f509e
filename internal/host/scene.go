package host

import (
	"errors"
	"fmt"
)

// ErrObjectNotFound is returned when selecting an object that doesn't exist.
var ErrObjectNotFound = errors.New("object not found")

// Object is a named scene object holding a mesh.
type Object struct {
	Name     string
	Mesh     *EditMesh
	Selected bool
}

// Scene is a list of objects with a selection state.
type Scene struct {
	Objects []*Object
}

// AddMesh adds a mesh as a new unselected object.
func (s *Scene) AddMesh(mesh *EditMesh) *Object {
	obj := &Object{Name: mesh.MeshName, Mesh: mesh}
	s.Objects = append(s.Objects, obj)
	return obj
}

// Selected returns the meshes of all selected objects.
func (s *Scene) Selected() []Editable {
	var out []Editable
	for _, obj := range s.Objects {
		if obj.Selected {
			out = append(out, obj.Mesh)
		}
	}
	return out
}

// Select makes the named object the only selected one.
// The selection is left unchanged if no object has that name.
func (s *Scene) Select(name string) error {
	found := false
	for _, obj := range s.Objects {
		found = found || obj.Name == name
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrObjectNotFound, name)
	}
	for _, obj := range s.Objects {
		obj.Selected = obj.Name == name
	}
	return nil
}

// SelectAll selects every object.
func (s *Scene) SelectAll() {
	for _, obj := range s.Objects {
		obj.Selected = true
	}
}

// Names returns the object names in scene order.
func (s *Scene) Names() []string {
	names := make([]string, len(s.Objects))
	for i, obj := range s.Objects {
		names[i] = obj.Name
	}
	return names
}
