package adapter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/xmodel-tools/internal/host"
	"github.com/Faultbox/xmodel-tools/pkg/xmodel"
)

// makeQuadMesh builds a unit square split into two triangles. Every loop
// has a distinct UV so corner order is observable.
func makeQuadMesh() *host.EditMesh {
	m := &host.EditMesh{
		MeshName: "Plane",
		Verts: []host.Vertex{
			{Co: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}},
			{Co: mgl32.Vec3{1, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}},
			{Co: mgl32.Vec3{1, 1, 0}, Normal: mgl32.Vec3{0, 1, 0}},
			{Co: mgl32.Vec3{0, 1, 0}, Normal: mgl32.Vec3{1, 0, 0}},
		},
		HasUV:         true,
		MaterialSlots: []string{"plane_mtl"},
	}
	m.AddPolygon([]int{0, 1, 2}, []mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}})
	m.AddPolygon([]int{0, 2, 3}, []mgl32.Vec2{{0.25, 0.75}, {0.5, 0.5}, {0, 1}})
	return m
}

func TestBuild_Vertices(t *testing.T) {
	src := makeQuadMesh()
	model, err := Build(src)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	mesh := model.Meshes[0]
	if mesh.Name != "Plane" {
		t.Errorf("mesh name = %q, want %q", mesh.Name, "Plane")
	}
	if len(mesh.Vertices) != len(src.Verts) {
		t.Fatalf("vertex count = %d, want %d", len(mesh.Vertices), len(src.Verts))
	}
	for i, v := range mesh.Vertices {
		if v.Position != src.Verts[i].Co {
			t.Errorf("vertex %d position = %v, want %v", i, v.Position, src.Verts[i].Co)
		}
		want := []xmodel.Weight{{Bone: 0, Weight: 1}}
		if !reflect.DeepEqual(v.Weights, want) {
			t.Errorf("vertex %d weights = %v, want %v", i, v.Weights, want)
		}
	}
}

func TestBuild_WindingPermutation(t *testing.T) {
	model, err := Build(makeQuadMesh())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Host loop order [A, B, C] is written as [A, C, B].
	face := model.Meshes[0].Faces[0]
	wantVerts := [3]int{0, 2, 1}
	wantUVs := [3]mgl32.Vec2{{0, 1}, {1, 0}, {1, 1}}
	for i, c := range face.Corners {
		if c.Vertex != wantVerts[i] {
			t.Errorf("corner %d vertex = %d, want %d", i, c.Vertex, wantVerts[i])
		}
		if c.UV != wantUVs[i] {
			t.Errorf("corner %d UV = %v, want %v", i, c.UV, wantUVs[i])
		}
	}
}

func TestBuild_UVFlip(t *testing.T) {
	model, err := Build(makeQuadMesh())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Second polygon's first loop has UV (0.25, 0.75) and stays in slot 0.
	got := model.Meshes[0].Faces[1].Corners[0].UV
	if got != (mgl32.Vec2{0.25, 0.25}) {
		t.Errorf("UV = %v, want (0.25, 0.25)", got)
	}
}

func TestBuild_CornerAttributes(t *testing.T) {
	src := makeQuadMesh()
	model, err := Build(src)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for fi, face := range model.Meshes[0].Faces {
		for ci, c := range face.Corners {
			if c.Normal != src.Verts[c.Vertex].Normal {
				t.Errorf("face %d corner %d normal = %v, want vertex normal %v",
					fi, ci, c.Normal, src.Verts[c.Vertex].Normal)
			}
			if c.Color != xmodel.PlaceholderColor {
				t.Errorf("face %d corner %d color = %v, want placeholder", fi, ci, c.Color)
			}
			if face.Material != 0 {
				t.Errorf("face %d material = %d, want 0", fi, face.Material)
			}
		}
	}
}

func TestBuild_VertexAddressing(t *testing.T) {
	src := makeQuadMesh()
	model, err := Build(src)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, v := range xmodel.Versions {
		data, err := model.BinBytes(v)
		if err != nil {
			t.Fatalf("v%d: BinBytes failed: %v", v, err)
		}
		decoded, _, err := xmodel.ParseBin(data)
		if err != nil {
			t.Fatalf("v%d: ParseBin failed: %v", v, err)
		}

		mesh := decoded.Meshes[0]
		for p := 0; p < src.NumPolygons(); p++ {
			loops := src.Polygon(p)
			for i, loop := range loops {
				c := mesh.Faces[p].Corners[cornerOrder[i]]
				if c.Vertex < 0 || c.Vertex >= len(mesh.Vertices) {
					t.Fatalf("v%d: face %d corner references vertex %d of %d", v, p, c.Vertex, len(mesh.Vertices))
				}
				want := src.Verts[src.LoopVertex(loop)].Co
				if mesh.Vertices[c.Vertex].Position != want {
					t.Errorf("v%d: polygon %d loop %d decodes to %v, want %v",
						v, p, loop, mesh.Vertices[c.Vertex].Position, want)
				}
			}
		}
	}
}

func TestBuild_BoneDefaults(t *testing.T) {
	src := makeQuadMesh()
	src.Verts[0].Co = mgl32.Vec3{100, -50, 3}

	model, err := Build(src)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(model.Bones) != 1 {
		t.Fatalf("bone count = %d, want 1", len(model.Bones))
	}
	bone := model.Bones[0]
	if bone.Name != xmodel.RootBoneName || bone.Parent != -1 {
		t.Errorf("bone = %q/%d, want %q/-1", bone.Name, bone.Parent, xmodel.RootBoneName)
	}
	if bone.Offset != (mgl32.Vec3{}) {
		t.Errorf("bone offset = %v, want zero", bone.Offset)
	}
	if bone.Matrix != mgl32.Ident3() {
		t.Errorf("bone matrix = %v, want identity", bone.Matrix)
	}
}

func TestBuild_Material(t *testing.T) {
	src := makeQuadMesh()
	src.MaterialSlots = []string{"first", "second"}

	model, err := Build(src)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(model.Materials) != 1 {
		t.Fatalf("material count = %d, want 1", len(model.Materials))
	}
	mat := model.Materials[0]
	if mat.Name != "first" {
		t.Errorf("material name = %q, want %q", mat.Name, "first")
	}
	if mat.Type != "Lambert" {
		t.Errorf("material type = %q, want Lambert", mat.Type)
	}
	want := map[string]string{"color_map": "first.tif"}
	if !reflect.DeepEqual(mat.Images, want) {
		t.Errorf("material images = %v, want %v", mat.Images, want)
	}
}

func TestBuild_NoMaterial(t *testing.T) {
	src := makeQuadMesh()
	src.MaterialSlots = nil

	model, err := Build(src)
	if !errors.Is(err, ErrNoMaterial) {
		t.Errorf("Build() error = %v, want ErrNoMaterial", err)
	}
	if model != nil {
		t.Error("Build() returned a model alongside an error")
	}
}

func TestBuild_NonTriangularFace(t *testing.T) {
	tests := []struct {
		name  string
		verts []int
	}{
		{"quad", []int{0, 1, 2, 3}},
		{"pentagon", []int{0, 1, 2, 3, 0}},
		{"edge", []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := makeQuadMesh()
			src.AddPolygon(tt.verts, nil)

			model, err := Build(src)
			if !errors.Is(err, ErrNonTriangularFace) {
				t.Errorf("Build() error = %v, want ErrNonTriangularFace", err)
			}
			if model != nil {
				t.Error("Build() returned a model alongside an error")
			}
		})
	}
}

func TestBuild_InvalidLoop(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *host.EditMesh)
	}{
		{"vertex out of range", func(m *host.EditMesh) { m.Loops[1].Vertex = 17 }},
		{"loop out of range", func(m *host.EditMesh) { m.Polys[0].Loops = []int{0, 1, 40} }},
		{"negative loop", func(m *host.EditMesh) { m.Polys[1].Loops = []int{-1, 3, 4} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := makeQuadMesh()
			tt.mutate(src)
			if _, err := Build(src); !errors.Is(err, ErrInvalidLoop) {
				t.Errorf("Build() error = %v, want ErrInvalidLoop", err)
			}
		})
	}
}

func TestBuild_NoUVLayer(t *testing.T) {
	src := makeQuadMesh()
	src.HasUV = false

	model, err := Build(src)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for fi, face := range model.Meshes[0].Faces {
		for ci, c := range face.Corners {
			if c.UV != (mgl32.Vec2{0, 1}) {
				t.Errorf("face %d corner %d UV = %v, want (0, 1)", fi, ci, c.UV)
			}
		}
	}
}

func TestBuild_DoesNotModifyHost(t *testing.T) {
	src := makeQuadMesh()
	before := makeQuadMesh()

	if _, err := Build(src); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !reflect.DeepEqual(src, before) {
		t.Error("Build modified the host mesh")
	}
}

func TestBuild_SerializesForEveryVersion(t *testing.T) {
	model, err := Build(makeQuadMesh())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, v := range xmodel.Versions {
		if err := model.Validate(v); err != nil {
			t.Errorf("v%d: Validate() = %v", v, err)
		}
	}
}
