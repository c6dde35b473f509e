package xmodel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBinBytes_Header(t *testing.T) {
	tests := []struct {
		version Version
		order   binary.ByteOrder
		framed  bool
	}{
		{Version5, binary.BigEndian, false},
		{Version6, binary.LittleEndian, false},
		{Version7, binary.LittleEndian, true},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			data, err := makeTriangleModel().BinBytes(tt.version)
			if err != nil {
				t.Fatalf("BinBytes failed: %v", err)
			}
			if string(data[:4]) != "XBIN" {
				t.Errorf("magic = %q, want XBIN", data[:4])
			}
			if got := tt.order.Uint16(data[4:6]); got != tagModel {
				t.Errorf("MODEL tag = 0x%04X, want 0x%04X", got, tagModel)
			}
			if got := tt.order.Uint16(data[8:10]); got != tagVersion {
				t.Errorf("VERSION tag = 0x%04X, want 0x%04X", got, tagVersion)
			}
			if got := tt.order.Uint16(data[10:12]); got != uint16(tt.version) {
				t.Errorf("version = %d, want %d", got, tt.version)
			}
			framed := tt.order.Uint16(data[12:14]) == tagFrame
			if framed != tt.framed {
				t.Errorf("framed = %v, want %v", framed, tt.framed)
			}
			if len(data)%4 != 0 {
				t.Errorf("size %d is not 4-byte aligned", len(data))
			}
		})
	}
}

func TestBinBytes_Deterministic(t *testing.T) {
	for _, v := range Versions {
		t.Run(v.String(), func(t *testing.T) {
			first, err := makeTwoMeshModel().BinBytes(v)
			if err != nil {
				t.Fatalf("BinBytes failed: %v", err)
			}
			second, err := makeTwoMeshModel().BinBytes(v)
			if err != nil {
				t.Fatalf("BinBytes failed: %v", err)
			}
			if !bytes.Equal(first, second) {
				t.Error("two encodings of the same model differ")
			}
		})
	}
}

func TestParseBin_RoundTrip(t *testing.T) {
	models := map[string]func() *Model{
		"one mesh":   makeTriangleModel,
		"two meshes": makeTwoMeshModel,
	}

	for name, build := range models {
		for _, v := range Versions {
			t.Run(name+"/v"+v.String(), func(t *testing.T) {
				want := build()
				var buf bytes.Buffer
				if err := WriteBin(&buf, want, v); err != nil {
					t.Fatalf("WriteBin failed: %v", err)
				}

				got, version, err := ParseBin(buf.Bytes())
				if err != nil {
					t.Fatalf("ParseBin failed: %v", err)
				}
				if version != v {
					t.Errorf("version = %d, want %d", version, v)
				}
				assertModelsEqual(t, want, got)
			})
		}
	}
}

// Text and binary encodings of one model must decode to the same model.
func TestTextAndBinaryAgree(t *testing.T) {
	for _, v := range Versions {
		t.Run(v.String(), func(t *testing.T) {
			src := makeTwoMeshModel()
			text, err := src.ExportBytes(v)
			if err != nil {
				t.Fatalf("ExportBytes failed: %v", err)
			}
			bin, err := src.BinBytes(v)
			if err != nil {
				t.Fatalf("BinBytes failed: %v", err)
			}

			fromText, _, err := ParseExport(text)
			if err != nil {
				t.Fatalf("ParseExport failed: %v", err)
			}
			fromBin, _, err := ParseBin(bin)
			if err != nil {
				t.Fatalf("ParseBin failed: %v", err)
			}
			assertModelsEqual(t, fromText, fromBin)
		})
	}
}

func TestEncodersRefuseNonLegacyNames(t *testing.T) {
	m := makeTriangleModel()
	m.Meshes[0].Name = "材質"
	m.Materials[0].Name = "材質"

	if _, err := m.BinBytes(Version7); !errors.Is(err, ErrUnsupportedFeature) {
		t.Errorf("BinBytes() error = %v, want ErrUnsupportedFeature", err)
	}
	if _, err := m.ExportBytes(Version7); !errors.Is(err, ErrUnsupportedFeature) {
		t.Errorf("ExportBytes() error = %v, want ErrUnsupportedFeature", err)
	}
}

// Values that need more than six decimals must survive both encodings.
func TestTextAndBinaryAgreeOnPrecision(t *testing.T) {
	m := makeTriangleModel()
	m.Meshes[0].Vertices[1].Position = mgl32.Vec3{0.1234567, 1e-07, 12345.678}
	m.Meshes[0].Vertices[2].Weights[0].Weight = 0.33333334
	corner := &m.Meshes[0].Faces[1].Corners[1]
	corner.Normal = mgl32.Vec3{0.57735026, -0.57735026, 0.57735026}
	corner.UV = mgl32.Vec2{0.0009765625, 0.99999994}

	for _, v := range Versions {
		t.Run(v.String(), func(t *testing.T) {
			text, err := m.ExportBytes(v)
			if err != nil {
				t.Fatalf("ExportBytes failed: %v", err)
			}
			bin, err := m.BinBytes(v)
			if err != nil {
				t.Fatalf("BinBytes failed: %v", err)
			}
			fromText, _, err := ParseExport(text)
			if err != nil {
				t.Fatalf("ParseExport failed: %v", err)
			}
			fromBin, _, err := ParseBin(bin)
			if err != nil {
				t.Fatalf("ParseBin failed: %v", err)
			}

			for _, got := range []*Model{fromText, fromBin} {
				if p := got.Meshes[0].Vertices[1].Position; p != m.Meshes[0].Vertices[1].Position {
					t.Errorf("position = %v, want %v", p, m.Meshes[0].Vertices[1].Position)
				}
				if w := got.Meshes[0].Vertices[2].Weights[0].Weight; w != 0.33333334 {
					t.Errorf("weight = %v, want 0.33333334", w)
				}
				c := got.Meshes[0].Faces[1].Corners[1]
				if c.Normal != corner.Normal || c.UV != corner.UV {
					t.Errorf("corner = %v %v, want %v %v", c.Normal, c.UV, corner.Normal, corner.UV)
				}
			}
		})
	}
}

func TestParseBin_LegacyNames(t *testing.T) {
	m := makeTriangleModel()
	m.Meshes[0].Name = "caféCrate"
	m.Materials[0].Name = "crème"

	data, err := m.BinBytes(Version7)
	if err != nil {
		t.Fatalf("BinBytes failed: %v", err)
	}
	if !bytes.Contains(data, []byte("caf\xe9Crate\x00")) {
		t.Error("mesh name not stored as Windows-1252")
	}

	got, _, err := ParseBin(data)
	if err != nil {
		t.Fatalf("ParseBin failed: %v", err)
	}
	if got.Meshes[0].Name != "caféCrate" || got.Materials[0].Name != "crème" {
		t.Errorf("names = %q/%q", got.Meshes[0].Name, got.Materials[0].Name)
	}
}

func TestParseBin_WideRecords(t *testing.T) {
	m := makeTriangleModel()
	verts := make([]Vertex, MaxShortVertices+2)
	for i := range verts {
		verts[i] = Vertex{Weights: []Weight{{0, 1}}}
	}
	m.Meshes[0].Vertices = verts
	m.Meshes[0].Faces[0].Corners[2].Vertex = MaxShortVertices + 1

	data, err := m.BinBytes(Version7)
	if err != nil {
		t.Fatalf("BinBytes failed: %v", err)
	}
	got, _, err := ParseBin(data)
	if err != nil {
		t.Fatalf("ParseBin failed: %v", err)
	}
	if n := len(got.Meshes[0].Vertices); n != MaxShortVertices+2 {
		t.Errorf("vertex count = %d, want %d", n, MaxShortVertices+2)
	}
	if c := got.Meshes[0].Faces[0].Corners[2].Vertex; c != MaxShortVertices+1 {
		t.Errorf("corner vertex = %d, want %d", c, MaxShortVertices+1)
	}
}

func TestParseBin_Errors(t *testing.T) {
	valid7, err := makeTriangleModel().BinBytes(Version7)
	if err != nil {
		t.Fatalf("BinBytes failed: %v", err)
	}
	valid6, err := makeTriangleModel().BinBytes(Version6)
	if err != nil {
		t.Fatalf("BinBytes failed: %v", err)
	}

	corrupt := append([]byte(nil), valid7...)
	corrupt[len(corrupt)-8] ^= 0xFF

	badVersion := append([]byte(nil), valid6...)
	binary.LittleEndian.PutUint16(badVersion[10:12], 9)

	wrongOrder := append([]byte(nil), valid6...)
	binary.LittleEndian.PutUint16(wrongOrder[10:12], 5)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedBin},
		{"bad magic", append([]byte("XXXX"), valid7[4:]...), ErrInvalidMagic},
		{"checksum", corrupt, ErrChecksum},
		{"truncated v7", valid7[:len(valid7)-4], ErrTruncatedBin},
		{"truncated v6", valid6[:len(valid6)/2], ErrTruncatedBin},
		{"unsupported version", badVersion, ErrUnsupportedVersion},
		{"byte order mismatch", wrongOrder, ErrInvalidBin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseBin(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseBin() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
