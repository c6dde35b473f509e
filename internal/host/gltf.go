package host

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/xmodel-tools/internal/logger"
)

// LoadGLTF reads a .gltf or .glb file. Every glTF mesh becomes one scene
// object; its primitives share the object's vertex list. Node transforms
// are not applied, so positions stay in mesh space.
func LoadGLTF(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glTF file: %w", err)
	}

	scene := &Scene{}
	dir := filepath.Dir(path)
	for i, mesh := range doc.Meshes {
		name := mesh.Name
		if name == "" {
			name = fmt.Sprintf("mesh%d", i)
		}
		em, err := convertGLTFMesh(doc, mesh, name, dir)
		if err != nil {
			return nil, fmt.Errorf("mesh %q: %w", name, err)
		}
		if len(em.Polys) > 0 {
			scene.AddMesh(em)
		}
	}
	return scene, nil
}

func convertGLTFMesh(doc *gltf.Document, mesh *gltf.Mesh, name, dir string) (*EditMesh, error) {
	em := &EditMesh{MeshName: name, Images: make(map[string]string)}
	var hasNormal []bool

	for pi, prim := range mesh.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			logger.Warn("skipping non-triangle glTF primitive",
				zap.String("mesh", name), zap.Int("primitive", pi))
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			return nil, fmt.Errorf("primitive %d has no positions", pi)
		}
		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("primitive %d positions: %w", pi, err)
		}

		var normals [][3]float32
		if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
				return nil, fmt.Errorf("primitive %d normals: %w", pi, err)
			}
		}
		var uvs [][2]float32
		if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
				return nil, fmt.Errorf("primitive %d UVs: %w", pi, err)
			}
			em.HasUV = true
		}

		base := len(em.Verts)
		for i, p := range positions {
			v := Vertex{Co: mgl32.Vec3{p[0], p[1], p[2]}}
			if i < len(normals) {
				v.Normal = mgl32.Vec3{normals[i][0], normals[i][1], normals[i][2]}
			}
			em.Verts = append(em.Verts, v)
			hasNormal = append(hasNormal, i < len(normals))
		}

		var indices []uint32
		if prim.Indices != nil {
			if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
				return nil, fmt.Errorf("primitive %d indices: %w", pi, err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		if len(indices)%3 != 0 {
			return nil, fmt.Errorf("primitive %d has %d indices, not a multiple of 3", pi, len(indices))
		}

		if prim.Material != nil {
			addGLTFMaterial(doc, em, *prim.Material, dir)
		}

		for t := 0; t < len(indices); t += 3 {
			verts := make([]int, 3)
			corners := make([]mgl32.Vec2, 3)
			for c := 0; c < 3; c++ {
				idx := int(indices[t+c])
				if idx >= len(positions) {
					return nil, fmt.Errorf("primitive %d index %d out of range (%d vertices)", pi, idx, len(positions))
				}
				verts[c] = base + idx
				if idx < len(uvs) {
					corners[c] = mgl32.Vec2{uvs[idx][0], uvs[idx][1]}
				}
			}
			em.AddPolygon(verts, corners)
		}
	}

	missing := make([]bool, len(hasNormal))
	anyMissing := false
	for i, ok := range hasNormal {
		missing[i] = !ok
		anyMissing = anyMissing || !ok
	}
	if anyMissing {
		em.RecalcNormals(missing)
	}
	return em, nil
}

// addGLTFMaterial assigns a material slot and records its base color
// texture when the image is an external file.
func addGLTFMaterial(doc *gltf.Document, em *EditMesh, index int, dir string) {
	if index < 0 || index >= len(doc.Materials) {
		return
	}
	mat := doc.Materials[index]
	name := mat.Name
	if name == "" {
		name = fmt.Sprintf("material%d", index)
	}
	for _, slot := range em.MaterialSlots {
		if slot == name {
			return
		}
	}
	em.MaterialSlots = append(em.MaterialSlots, name)

	pbr := mat.PBRMetallicRoughness
	if pbr == nil || pbr.BaseColorTexture == nil {
		return
	}
	ti := pbr.BaseColorTexture.Index
	if ti < 0 || ti >= len(doc.Textures) || doc.Textures[ti].Source == nil {
		return
	}
	img := doc.Images[*doc.Textures[ti].Source]
	if img.URI == "" || strings.HasPrefix(img.URI, "data:") {
		logger.Debug("embedded glTF image not used as color map source", zap.String("material", name))
		return
	}
	path := img.URI
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, filepath.FromSlash(path))
	}
	em.Images[name] = path
}
