package xmodel

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
)

// exportHeader is the first line of every .xmodel_export file. It carries
// no timestamp so that unchanged input exports to identical bytes.
const exportHeader = "// XMODEL_EXPORT file"

// shadingAttr is one line of the fixed v6 material shading block.
type shadingAttr struct {
	Key    string
	Values []float32
}

// shadingBlock is written after every v6 material. Exported models carry
// no shading data of their own, so the values are the format's defaults.
var shadingBlock = []shadingAttr{
	{"COLOR", []float32{0, 0, 0, 1}},
	{"TRANSPARENCY", []float32{0, 0, 0, 1}},
	{"AMBIENTCOLOR", []float32{0, 0, 0, 1}},
	{"INCANDESCENCE", []float32{0, 0, 0, 1}},
	{"COEFFS", []float32{0.8, 0}},
	{"GLOW", []float32{0, 0}},
	{"REFRACTIVE", []float32{6, 1}},
	{"SPECULARCOLOR", []float32{-1, -1, -1, 1}},
	{"REFLECTIVECOLOR", []float32{-1, -1, -1, 1}},
	{"REFLECTIVE", []float32{-1, -1}},
	{"BLINN", []float32{-1, -1}},
	{"PHONG", []float32{-1}},
}

// WriteExport writes the model as a .xmodel_export text file.
func WriteExport(w io.Writer, m *Model, v Version) error {
	data, err := m.ExportBytes(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ExportBytes encodes the model as .xmodel_export text.
func (m *Model) ExportBytes(v Version) ([]byte, error) {
	if err := m.Validate(v); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	wide := v >= Version7 && m.TotalVertexCount() > MaxShortVertices

	fmt.Fprintf(&buf, "%s\n\n", exportHeader)
	fmt.Fprintf(&buf, "MODEL\nVERSION %d\n\n", int(v))

	// Bone hierarchy, then each bone's bind pose
	fmt.Fprintf(&buf, "NUMBONES %d\n", len(m.Bones))
	for i, bone := range m.Bones {
		fmt.Fprintf(&buf, "BONE %d %d %q\n", i, bone.Parent, bone.Name)
	}
	buf.WriteString("\n")
	for i, bone := range m.Bones {
		fmt.Fprintf(&buf, "BONE %d\n", i)
		writeVec3Comma(&buf, "OFFSET", bone.Offset)
		writeVec3Comma(&buf, "SCALE", mgl32.Vec3{1, 1, 1})
		writeVec3Comma(&buf, "X", bone.Matrix.Row(0))
		writeVec3Comma(&buf, "Y", bone.Matrix.Row(1))
		writeVec3Comma(&buf, "Z", bone.Matrix.Row(2))
		buf.WriteString("\n")
	}

	vertKey := "VERT"
	if wide {
		vertKey = "VERT32"
		fmt.Fprintf(&buf, "NUMVERTS32 %d\n", m.TotalVertexCount())
	} else {
		fmt.Fprintf(&buf, "NUMVERTS %d\n", m.TotalVertexCount())
	}
	index := 0
	for _, mesh := range m.Meshes {
		for _, vert := range mesh.Vertices {
			fmt.Fprintf(&buf, "%s %d\n", vertKey, index)
			writeVec3Comma(&buf, "OFFSET", vert.Position)
			fmt.Fprintf(&buf, "BONES %d\n", len(vert.Weights))
			for _, w := range vert.Weights {
				fmt.Fprintf(&buf, "BONE %d %s\n", w.Bone, formatFloat(w.Weight))
			}
			buf.WriteString("\n")
			index++
		}
	}

	bases := m.vertexBases()
	fmt.Fprintf(&buf, "NUMFACES %d\n", m.TotalFaceCount())
	for mi, mesh := range m.Meshes {
		for _, face := range mesh.Faces {
			triKey := "TRI"
			if v >= Version7 && (mi > MaxByteIndex || face.Material > MaxByteIndex) {
				triKey = "TRI16"
			}
			fmt.Fprintf(&buf, "%s %d %d 0 0\n", triKey, mi, face.Material)
			for _, c := range face.Corners {
				fmt.Fprintf(&buf, "%s %d\n", vertKey, bases[mi]+c.Vertex)
				writeFloats(&buf, "NORMAL", c.Normal[:]...)
				writeFloats(&buf, "COLOR", c.Color[:]...)
				writeFloats(&buf, "UV 1", c.UV[:]...)
			}
			buf.WriteString("\n")
		}
	}

	fmt.Fprintf(&buf, "NUMOBJECTS %d\n", len(m.Meshes))
	for i, mesh := range m.Meshes {
		fmt.Fprintf(&buf, "OBJECT %d %q\n", i, mesh.Name)
	}
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "NUMMATERIALS %d\n", len(m.Materials))
	for i, mat := range m.Materials {
		switch v {
		case Version5, Version6:
			fmt.Fprintf(&buf, "MATERIAL %d %q %q %q\n", i, mat.Name, mat.Type, mat.Images[ColorMapChannel])
			if v == Version6 {
				for _, attr := range shadingBlock {
					writeFloats(&buf, attr.Key, attr.Values...)
				}
			}
		default:
			channels := sortedChannels(mat.Images)
			fmt.Fprintf(&buf, "MATERIAL %d %q %q %d\n", i, mat.Name, mat.Type, len(channels))
			for _, ch := range channels {
				fmt.Fprintf(&buf, "IMAGE %q %q\n", ch, mat.Images[ch])
			}
		}
	}

	return buf.Bytes(), nil
}

func writeVec3Comma(buf *bytes.Buffer, key string, v mgl32.Vec3) {
	fmt.Fprintf(buf, "%s %s, %s, %s\n", key, formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2]))
}

func writeFloats(buf *bytes.Buffer, key string, values ...float32) {
	buf.WriteString(key)
	for _, f := range values {
		buf.WriteByte(' ')
		buf.WriteString(formatFloat(f))
	}
	buf.WriteByte('\n')
}

// formatFloat writes f with six decimals, or with as many as it takes to
// read back the same float32 when six are not enough.
func formatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', 6, 32)
	if back, err := strconv.ParseFloat(s, 32); err == nil && float32(back) == f {
		return s
	}
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

// sortedChannels returns image channel names in a stable order.
func sortedChannels(images map[string]string) []string {
	channels := make([]string, 0, len(images))
	for ch := range images {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	return channels
}
