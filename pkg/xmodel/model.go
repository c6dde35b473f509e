// Package xmodel provides the data model and encoders for the XMODEL
// interchange format (.xmodel_export text and .xmodel_bin binary).
package xmodel

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/xmodel-tools/pkg/encoding"
)

// XMODEL format errors.
var (
	ErrUnsupportedVersion = errors.New("unsupported XMODEL version")
	ErrInvalidModel       = errors.New("invalid XMODEL model")
	ErrUnsupportedFeature = errors.New("feature not supported by XMODEL version")
)

// Version is an XMODEL format version.
type Version int

// Supported versions. Each has its own feature set and binary framing.
const (
	Version5 Version = 5
	Version6 Version = 6
	Version7 Version = 7

	DefaultVersion = Version7
)

// Versions lists every supported version, oldest first.
var Versions = []Version{Version5, Version6, Version7}

// Valid returns true if the version is one of the supported versions.
func (v Version) Valid() bool {
	return v >= Version5 && v <= Version7
}

// String returns the version number as text.
func (v Version) String() string {
	return strconv.Itoa(int(v))
}

// ParseVersion parses a version number such as "7".
func ParseVersion(s string) (Version, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !Version(n).Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, s)
	}
	return Version(n), nil
}

// Limits for v5 and v6. Version 7 uses 32-bit vertex and 16-bit
// object/material records instead.
const (
	MaxShortVertices = 0xFFFF
	MaxByteIndex     = 0xFF
)

// Fixed names used by exported models.
const (
	RootBoneName        = "TAG_ORIGIN"
	DefaultMaterialType = "Lambert"
	ColorMapChannel     = "color_map"
)

// PlaceholderColor is written for every face vertex (RGBA).
var PlaceholderColor = mgl32.Vec4{0, 0, 0, 1}

// Weight binds a vertex to a bone.
type Weight struct {
	Bone   int
	Weight float32
}

// Vertex is a shared vertex position with its bone weights.
// Weights over all listed bones sum to 1.
type Vertex struct {
	Position mgl32.Vec3
	Weights  []Weight
}

// FaceVertex is one triangle corner. It references a Vertex by index
// and carries the corner's own normal, color and UV.
type FaceVertex struct {
	Vertex int
	Normal mgl32.Vec3
	Color  mgl32.Vec4 // RGBA
	UV     mgl32.Vec2
}

// Face is a triangle.
type Face struct {
	Material int // Index into Model.Materials
	Corners  [3]FaceVertex
}

// Bone is a skeletal joint.
type Bone struct {
	Name   string
	Parent int // -1 for root
	Offset mgl32.Vec3
	Matrix mgl32.Mat3 // Orientation, rows are the X/Y/Z axes
}

// NewRootBone returns the placeholder root bone: no parent, zero offset,
// identity orientation.
func NewRootBone() Bone {
	return Bone{
		Name:   RootBoneName,
		Parent: -1,
		Matrix: mgl32.Ident3(),
	}
}

// Material describes a surface material and its texture channels.
type Material struct {
	Name   string
	Type   string
	Images map[string]string // channel -> image file
}

// Mesh is a named set of vertices and triangles.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Faces    []Face
}

// Model is the root object written to XMODEL files.
type Model struct {
	Bones     []Bone
	Materials []Material
	Meshes    []Mesh
}

// TotalVertexCount returns the number of vertices across all meshes.
func (m *Model) TotalVertexCount() int {
	total := 0
	for _, mesh := range m.Meshes {
		total += len(mesh.Vertices)
	}
	return total
}

// TotalFaceCount returns the number of faces across all meshes.
func (m *Model) TotalFaceCount() int {
	total := 0
	for _, mesh := range m.Meshes {
		total += len(mesh.Faces)
	}
	return total
}

// GetMeshByName returns a mesh by its name, or nil if not found.
func (m *Model) GetMeshByName(name string) *Mesh {
	for i := range m.Meshes {
		if m.Meshes[i].Name == name {
			return &m.Meshes[i]
		}
	}
	return nil
}

// vertexBases returns the global index of each mesh's first vertex.
func (m *Model) vertexBases() []int {
	bases := make([]int, len(m.Meshes))
	base := 0
	for i, mesh := range m.Meshes {
		bases[i] = base
		base += len(mesh.Vertices)
	}
	return bases
}

// Validate checks that the model can be written as the given version.
func (m *Model) Validate(v Version) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, int(v))
	}
	if err := m.validateNames(); err != nil {
		return err
	}
	if len(m.Bones) == 0 {
		return fmt.Errorf("%w: no bones", ErrInvalidModel)
	}
	if len(m.Materials) == 0 {
		return fmt.Errorf("%w: no materials", ErrInvalidModel)
	}
	if len(m.Meshes) == 0 {
		return fmt.Errorf("%w: no meshes", ErrInvalidModel)
	}

	for i, bone := range m.Bones {
		if bone.Parent < -1 || bone.Parent >= len(m.Bones) || bone.Parent == i {
			return fmt.Errorf("%w: bone %d has parent %d", ErrInvalidModel, i, bone.Parent)
		}
	}

	for mi, mesh := range m.Meshes {
		for vi, vert := range mesh.Vertices {
			for _, w := range vert.Weights {
				if w.Bone < 0 || w.Bone >= len(m.Bones) {
					return fmt.Errorf("%w: mesh %q vertex %d weights missing bone %d",
						ErrInvalidModel, mesh.Name, vi, w.Bone)
				}
			}
		}
		for fi, face := range mesh.Faces {
			if face.Material < 0 || face.Material >= len(m.Materials) {
				return fmt.Errorf("%w: mesh %q face %d uses material %d",
					ErrInvalidModel, mesh.Name, fi, face.Material)
			}
			for _, c := range face.Corners {
				if c.Vertex < 0 || c.Vertex >= len(mesh.Vertices) {
					return fmt.Errorf("%w: mesh %q face %d references vertex %d of %d",
						ErrInvalidModel, mesh.Name, fi, c.Vertex, len(mesh.Vertices))
				}
			}
			if v < Version7 && face.Material > MaxByteIndex {
				return fmt.Errorf("%w: v%d material index %d", ErrUnsupportedFeature, v, face.Material)
			}
		}
		if v < Version7 && mi > MaxByteIndex {
			return fmt.Errorf("%w: v%d object count %d", ErrUnsupportedFeature, v, len(m.Meshes))
		}
	}

	if v < Version7 {
		if n := m.TotalVertexCount(); n > MaxShortVertices {
			return fmt.Errorf("%w: v%d vertex count %d exceeds %d", ErrUnsupportedFeature, v, n, MaxShortVertices)
		}
		for _, mat := range m.Materials {
			for channel := range mat.Images {
				if channel != ColorMapChannel {
					return fmt.Errorf("%w: v%d material %q image channel %q",
						ErrUnsupportedFeature, v, mat.Name, channel)
				}
			}
		}
	}
	return nil
}

// validateNames rejects strings the binary encoding cannot store, so that
// both encodings of a model always decode to the same names.
func (m *Model) validateNames() error {
	check := func(what, s string) error {
		if !encoding.Representable(s) {
			return fmt.Errorf("%w: %s %q is not representable in Windows-1252", ErrUnsupportedFeature, what, s)
		}
		return nil
	}
	for _, bone := range m.Bones {
		if err := check("bone name", bone.Name); err != nil {
			return err
		}
	}
	for _, mesh := range m.Meshes {
		if err := check("mesh name", mesh.Name); err != nil {
			return err
		}
	}
	for _, mat := range m.Materials {
		if err := check("material name", mat.Name); err != nil {
			return err
		}
		if err := check("material type", mat.Type); err != nil {
			return err
		}
		for ch, path := range mat.Images {
			if err := check("image channel", ch); err != nil {
				return err
			}
			if err := check("image path", path); err != nil {
				return err
			}
		}
	}
	return nil
}
