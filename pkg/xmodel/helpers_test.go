package xmodel

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const epsilon = 1e-6

// makeTriangleModel builds a one-mesh, one-triangle model like the
// exporter produces.
func makeTriangleModel() *Model {
	weights := func() []Weight { return []Weight{{Bone: 0, Weight: 1}} }
	return &Model{
		Bones: []Bone{NewRootBone()},
		Materials: []Material{{
			Name:   "crate",
			Type:   DefaultMaterialType,
			Images: map[string]string{ColorMapChannel: "crate.tif"},
		}},
		Meshes: []Mesh{{
			Name: "Cube",
			Vertices: []Vertex{
				{Position: mgl32.Vec3{0, 0, 0}, Weights: weights()},
				{Position: mgl32.Vec3{1, 0, 0}, Weights: weights()},
				{Position: mgl32.Vec3{0, 1, 0.5}, Weights: weights()},
				{Position: mgl32.Vec3{-2.25, 3.125, -0.75}, Weights: weights()},
			},
			Faces: []Face{
				{Corners: [3]FaceVertex{
					{Vertex: 0, Normal: mgl32.Vec3{0, 0, 1}, Color: PlaceholderColor, UV: mgl32.Vec2{0, 1}},
					{Vertex: 2, Normal: mgl32.Vec3{0, 0, 1}, Color: PlaceholderColor, UV: mgl32.Vec2{0, 0}},
					{Vertex: 1, Normal: mgl32.Vec3{0, 0, 1}, Color: PlaceholderColor, UV: mgl32.Vec2{1, 1}},
				}},
				{Corners: [3]FaceVertex{
					{Vertex: 1, Normal: mgl32.Vec3{0, -1, 0}, Color: PlaceholderColor, UV: mgl32.Vec2{0.25, 0.25}},
					{Vertex: 3, Normal: mgl32.Vec3{0.5, 0.5, 0}, Color: PlaceholderColor, UV: mgl32.Vec2{0.75, 0.5}},
					{Vertex: 2, Normal: mgl32.Vec3{-1, 0, 0}, Color: PlaceholderColor, UV: mgl32.Vec2{0.125, 0.875}},
				}},
			},
		}},
	}
}

// makeTwoMeshModel adds a second mesh and material to the triangle model.
func makeTwoMeshModel() *Model {
	m := makeTriangleModel()
	m.Materials = append(m.Materials, Material{
		Name:   "metal",
		Type:   DefaultMaterialType,
		Images: map[string]string{ColorMapChannel: "metal.tif"},
	})
	m.Meshes = append(m.Meshes, Mesh{
		Name: "Lid",
		Vertices: []Vertex{
			{Position: mgl32.Vec3{5, 5, 5}, Weights: []Weight{{0, 1}}},
			{Position: mgl32.Vec3{6, 5, 5}, Weights: []Weight{{0, 1}}},
			{Position: mgl32.Vec3{5, 6, 5}, Weights: []Weight{{0, 1}}},
		},
		Faces: []Face{{
			Material: 1,
			Corners: [3]FaceVertex{
				{Vertex: 0, Normal: mgl32.Vec3{0, 1, 0}, Color: PlaceholderColor, UV: mgl32.Vec2{0, 0}},
				{Vertex: 2, Normal: mgl32.Vec3{0, 1, 0}, Color: PlaceholderColor, UV: mgl32.Vec2{0, 1}},
				{Vertex: 1, Normal: mgl32.Vec3{0, 1, 0}, Color: PlaceholderColor, UV: mgl32.Vec2{1, 0}},
			},
		}},
	})
	return m
}

// assertModelsEqual compares two models field by field.
func assertModelsEqual(t *testing.T, want, got *Model) {
	t.Helper()

	if len(got.Bones) != len(want.Bones) {
		t.Fatalf("bone count = %d, want %d", len(got.Bones), len(want.Bones))
	}
	for i, wb := range want.Bones {
		gb := got.Bones[i]
		if gb.Name != wb.Name || gb.Parent != wb.Parent {
			t.Errorf("bone %d = %q/%d, want %q/%d", i, gb.Name, gb.Parent, wb.Name, wb.Parent)
		}
		if !gb.Offset.ApproxEqualThreshold(wb.Offset, epsilon) {
			t.Errorf("bone %d offset = %v, want %v", i, gb.Offset, wb.Offset)
		}
		if !gb.Matrix.ApproxEqualThreshold(wb.Matrix, epsilon) {
			t.Errorf("bone %d matrix = %v, want %v", i, gb.Matrix, wb.Matrix)
		}
	}

	if len(got.Materials) != len(want.Materials) {
		t.Fatalf("material count = %d, want %d", len(got.Materials), len(want.Materials))
	}
	for i, wm := range want.Materials {
		gm := got.Materials[i]
		if gm.Name != wm.Name || gm.Type != wm.Type {
			t.Errorf("material %d = %q/%q, want %q/%q", i, gm.Name, gm.Type, wm.Name, wm.Type)
		}
		if len(gm.Images) != len(wm.Images) {
			t.Errorf("material %d images = %v, want %v", i, gm.Images, wm.Images)
		}
		for ch, file := range wm.Images {
			if gm.Images[ch] != file {
				t.Errorf("material %d image %q = %q, want %q", i, ch, gm.Images[ch], file)
			}
		}
	}

	if len(got.Meshes) != len(want.Meshes) {
		t.Fatalf("mesh count = %d, want %d", len(got.Meshes), len(want.Meshes))
	}
	for mi, wmesh := range want.Meshes {
		gmesh := got.Meshes[mi]
		if gmesh.Name != wmesh.Name {
			t.Errorf("mesh %d name = %q, want %q", mi, gmesh.Name, wmesh.Name)
		}
		if len(gmesh.Vertices) != len(wmesh.Vertices) {
			t.Fatalf("mesh %d vertex count = %d, want %d", mi, len(gmesh.Vertices), len(wmesh.Vertices))
		}
		for vi, wv := range wmesh.Vertices {
			gv := gmesh.Vertices[vi]
			if !gv.Position.ApproxEqualThreshold(wv.Position, epsilon) {
				t.Errorf("mesh %d vertex %d = %v, want %v", mi, vi, gv.Position, wv.Position)
			}
			if len(gv.Weights) != len(wv.Weights) {
				t.Fatalf("mesh %d vertex %d weights = %v, want %v", mi, vi, gv.Weights, wv.Weights)
			}
			for wi, ww := range wv.Weights {
				gw := gv.Weights[wi]
				if gw.Bone != ww.Bone || !mgl32.FloatEqualThreshold(gw.Weight, ww.Weight, epsilon) {
					t.Errorf("mesh %d vertex %d weight %d = %v, want %v", mi, vi, wi, gw, ww)
				}
			}
		}
		if len(gmesh.Faces) != len(wmesh.Faces) {
			t.Fatalf("mesh %d face count = %d, want %d", mi, len(gmesh.Faces), len(wmesh.Faces))
		}
		for fi, wf := range wmesh.Faces {
			gf := gmesh.Faces[fi]
			if gf.Material != wf.Material {
				t.Errorf("mesh %d face %d material = %d, want %d", mi, fi, gf.Material, wf.Material)
			}
			for ci, wc := range wf.Corners {
				gc := gf.Corners[ci]
				if gc.Vertex != wc.Vertex {
					t.Errorf("mesh %d face %d corner %d vertex = %d, want %d", mi, fi, ci, gc.Vertex, wc.Vertex)
				}
				if !gc.Normal.ApproxEqualThreshold(wc.Normal, epsilon) ||
					!gc.Color.ApproxEqualThreshold(wc.Color, epsilon) ||
					!gc.UV.ApproxEqualThreshold(wc.UV, epsilon) {
					t.Errorf("mesh %d face %d corner %d = %+v, want %+v", mi, fi, ci, gc, wc)
				}
			}
		}
	}
}
