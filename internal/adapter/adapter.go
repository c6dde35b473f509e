// Package adapter converts a host mesh into an XMODEL model.
//
// The host stores normals once per unique vertex and UVs per loop, while
// XMODEL faces carry a full attribute set per corner. The adapter resolves
// each triangle corner through its loop and writes it as a FaceVertex that
// references the shared Vertex by index.
package adapter

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/xmodel-tools/internal/host"
	"github.com/Faultbox/xmodel-tools/internal/logger"
	"github.com/Faultbox/xmodel-tools/pkg/xmodel"
)

// Adapter errors.
var (
	ErrNoMaterial        = errors.New("mesh has no material assigned; assign a material before exporting")
	ErrNonTriangularFace = errors.New("mesh has a non-triangular face; triangulate the mesh before exporting")
	ErrInvalidLoop       = errors.New("polygon references a missing loop or vertex")
)

// ImageExtension is appended to the material name to form the color map file.
const ImageExtension = ".tif"

// Every vertex is bound fully to the placeholder root bone.
const (
	rootBone           = 0
	rootWeight float32 = 1.0
)

// cornerOrder maps host loop order to XMODEL corner slots: the second and
// third corners swap to match the engine's winding.
var cornerOrder = [3]int{0, 2, 1}

// Build converts m into a model with one bone, one material and one mesh.
// It never modifies m.
func Build(m host.Mesh) (*xmodel.Model, error) {
	material, err := buildMaterial(m)
	if err != nil {
		return nil, err
	}

	mesh := xmodel.Mesh{Name: m.Name()}
	mesh.Vertices = buildVertices(m)

	mesh.Faces, err = buildFaces(m)
	if err != nil {
		return nil, err
	}

	logger.Debug("adapted mesh",
		zap.String("mesh", mesh.Name),
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("faces", len(mesh.Faces)),
		zap.String("material", material.Name))

	return &xmodel.Model{
		Bones:     []xmodel.Bone{xmodel.NewRootBone()},
		Materials: []xmodel.Material{material},
		Meshes:    []xmodel.Mesh{mesh},
	}, nil
}

// buildVertices copies vertex positions in host order. Faces address
// vertices by this order, so it must not change.
func buildVertices(m host.Mesh) []xmodel.Vertex {
	verts := make([]xmodel.Vertex, m.NumVertices())
	for i := range verts {
		co, _ := m.Vertex(i)
		verts[i] = xmodel.Vertex{
			Position: co,
			Weights:  []xmodel.Weight{{Bone: rootBone, Weight: rootWeight}},
		}
	}
	return verts
}

// buildMaterial reads the first material slot. Further slots are ignored.
func buildMaterial(m host.Mesh) (xmodel.Material, error) {
	slots := m.Materials()
	if len(slots) == 0 {
		return xmodel.Material{}, fmt.Errorf("%w: %q", ErrNoMaterial, m.Name())
	}
	if len(slots) > 1 {
		logger.Warn("mesh has several materials; only the first is exported",
			zap.String("mesh", m.Name()),
			zap.Strings("materials", slots))
	}

	name := slots[0]
	return xmodel.Material{
		Name:   name,
		Type:   xmodel.DefaultMaterialType,
		Images: map[string]string{xmodel.ColorMapChannel: name + ImageExtension},
	}, nil
}

func buildFaces(m host.Mesh) ([]xmodel.Face, error) {
	numVerts, numLoops := m.NumVertices(), m.NumLoops()
	faces := make([]xmodel.Face, m.NumPolygons())
	warnedUV := false

	for p := range faces {
		loops := m.Polygon(p)
		if len(loops) != 3 {
			return nil, fmt.Errorf("%w: polygon %d has %d vertices", ErrNonTriangularFace, p, len(loops))
		}

		for i, loop := range loops {
			if loop < 0 || loop >= numLoops {
				return nil, fmt.Errorf("%w: polygon %d uses loop %d of %d", ErrInvalidLoop, p, loop, numLoops)
			}
			vi := m.LoopVertex(loop)
			if vi < 0 || vi >= numVerts {
				return nil, fmt.Errorf("%w: polygon %d loop %d points at vertex %d of %d",
					ErrInvalidLoop, p, loop, vi, numVerts)
			}
			_, normal := m.Vertex(vi)

			uv, ok := m.LoopUV(loop)
			if !ok && !warnedUV {
				logger.Warn("mesh has no active UV layer; exporting zero UVs", zap.String("mesh", m.Name()))
				warnedUV = true
			}

			faces[p].Corners[cornerOrder[i]] = xmodel.FaceVertex{
				Vertex: vi,
				Normal: normal,
				Color:  xmodel.PlaceholderColor,
				UV:     flipV(uv),
			}
		}
	}
	return faces, nil
}

// flipV converts a host UV to XMODEL's convention, whose V axis runs the
// other way.
func flipV(uv mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{uv[0], 1 - uv[1]}
}
