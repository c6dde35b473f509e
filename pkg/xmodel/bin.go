package xmodel

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/xmodel-tools/pkg/encoding"
)

// binMagic opens every .xmodel_bin file.
var binMagic = [4]byte{'X', 'B', 'I', 'N'}

// Record tags. Every record starts with a 16-bit tag followed by a 16-bit
// short argument, and is padded to 4 bytes.
const (
	tagModel        uint16 = 0x46C8
	tagVersion      uint16 = 0x24D1
	tagFrame        uint16 = 0x7A3E // v7 only
	tagNumBones     uint16 = 0x76BA
	tagBoneInfo     uint16 = 0xF099
	tagBoneIndex    uint16 = 0xDD9A
	tagOffset       uint16 = 0x9383
	tagScale        uint16 = 0x1C56
	tagAxisX        uint16 = 0xDCFD
	tagAxisY        uint16 = 0xCCDC
	tagAxisZ        uint16 = 0xFCBF
	tagNumVerts     uint16 = 0x950D
	tagNumVerts32   uint16 = 0x2AEC
	tagVert         uint16 = 0x8F03
	tagVert32       uint16 = 0xB097
	tagNumWeights   uint16 = 0xEA46
	tagWeight       uint16 = 0xF1AB
	tagNumFaces     uint16 = 0xBE92
	tagTri          uint16 = 0x562F
	tagTri16        uint16 = 0x6711
	tagNormal       uint16 = 0x89EC
	tagColor        uint16 = 0x6DD8
	tagUV           uint16 = 0x1AD4
	tagNumObjects   uint16 = 0x62AF
	tagObject       uint16 = 0x87D4
	tagNumMaterials uint16 = 0xA1B2
	tagMaterial     uint16 = 0xA700
	tagImage        uint16 = 0x3C2E // v7 only
	tagShading      uint16 = 0x5E11 // v6 only
)

// byteOrder returns the integer/float byte order for a version.
// Version 5 files come from big-endian tooling.
func byteOrder(v Version) binary.ByteOrder {
	if v == Version5 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// binWriter appends fixed-width records to a buffer.
type binWriter struct {
	buf   bytes.Buffer
	order binary.ByteOrder
}

func (w *binWriter) record(tag, short uint16) {
	w.u16(tag)
	w.u16(short)
}

func (w *binWriter) u16(v uint16) { binary.Write(&w.buf, w.order, v) }
func (w *binWriter) u32(v uint32) { binary.Write(&w.buf, w.order, v) }
func (w *binWriter) i32(v int32)  { binary.Write(&w.buf, w.order, v) }
func (w *binWriter) f32(v float32) {
	binary.Write(&w.buf, w.order, v)
}

func (w *binWriter) vec3(tag uint16, v mgl32.Vec3) {
	w.record(tag, 0)
	binary.Write(&w.buf, w.order, [3]float32(v))
}

func (w *binWriter) str(s string) {
	w.buf.Write(encoding.PaddedString(s, 4))
}

// WriteBin writes the model as a .xmodel_bin binary file.
func WriteBin(w io.Writer, m *Model, v Version) error {
	data, err := m.BinBytes(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// BinBytes encodes the model as .xmodel_bin. Field order matches ExportBytes.
func (m *Model) BinBytes(v Version) ([]byte, error) {
	if err := m.Validate(v); err != nil {
		return nil, err
	}

	order := byteOrder(v)
	head := &binWriter{order: order}
	head.buf.Write(binMagic[:])
	head.record(tagModel, 0)
	head.record(tagVersion, uint16(v))

	w := &binWriter{order: order}
	wide := v >= Version7 && m.TotalVertexCount() > MaxShortVertices

	w.record(tagNumBones, 0)
	w.u32(uint32(len(m.Bones)))
	for i, bone := range m.Bones {
		w.record(tagBoneInfo, 0)
		w.u32(uint32(i))
		w.i32(int32(bone.Parent))
		w.str(bone.Name)
	}
	for i, bone := range m.Bones {
		w.record(tagBoneIndex, 0)
		w.u32(uint32(i))
		w.vec3(tagOffset, bone.Offset)
		w.vec3(tagScale, mgl32.Vec3{1, 1, 1})
		w.vec3(tagAxisX, bone.Matrix.Row(0))
		w.vec3(tagAxisY, bone.Matrix.Row(1))
		w.vec3(tagAxisZ, bone.Matrix.Row(2))
	}

	vertRef := func(index int) {
		if wide {
			w.record(tagVert32, 0)
			w.u32(uint32(index))
		} else {
			w.record(tagVert, uint16(index))
		}
	}

	total := m.TotalVertexCount()
	if wide {
		w.record(tagNumVerts32, 0)
		w.u32(uint32(total))
	} else {
		w.record(tagNumVerts, uint16(total))
	}
	index := 0
	for _, mesh := range m.Meshes {
		for _, vert := range mesh.Vertices {
			vertRef(index)
			w.vec3(tagOffset, vert.Position)
			w.record(tagNumWeights, uint16(len(vert.Weights)))
			for _, wt := range vert.Weights {
				w.record(tagWeight, uint16(wt.Bone))
				w.f32(wt.Weight)
			}
			index++
		}
	}

	bases := m.vertexBases()
	w.record(tagNumFaces, 0)
	w.u32(uint32(m.TotalFaceCount()))
	for mi, mesh := range m.Meshes {
		for _, face := range mesh.Faces {
			if v >= Version7 && (mi > MaxByteIndex || face.Material > MaxByteIndex) {
				w.record(tagTri16, 0)
				w.u16(uint16(mi))
				w.u16(uint16(face.Material))
			} else {
				w.record(tagTri, uint16(mi)<<8|uint16(face.Material))
			}
			for _, c := range face.Corners {
				vertRef(bases[mi] + c.Vertex)
				w.vec3(tagNormal, c.Normal)
				w.record(tagColor, 0)
				binary.Write(&w.buf, order, [4]float32(c.Color))
				w.record(tagUV, 1)
				binary.Write(&w.buf, order, [2]float32(c.UV))
			}
		}
	}

	w.record(tagNumObjects, 0)
	w.u32(uint32(len(m.Meshes)))
	for i, mesh := range m.Meshes {
		w.record(tagObject, uint16(i))
		w.str(mesh.Name)
	}

	w.record(tagNumMaterials, 0)
	w.u32(uint32(len(m.Materials)))
	for i, mat := range m.Materials {
		w.record(tagMaterial, uint16(i))
		w.str(mat.Name)
		w.str(mat.Type)
		switch v {
		case Version5, Version6:
			w.str(mat.Images[ColorMapChannel])
			if v == Version6 {
				writeShadingRecord(w)
			}
		default:
			channels := sortedChannels(mat.Images)
			w.u32(uint32(len(channels)))
			for _, ch := range channels {
				w.record(tagImage, 0)
				w.str(ch)
				w.str(mat.Images[ch])
			}
		}
	}

	body := w.buf.Bytes()
	if v >= Version7 {
		head.record(tagFrame, 0)
		head.u32(uint32(len(body)))
		head.u32(crc32.ChecksumIEEE(body))
	}
	head.buf.Write(body)
	return head.buf.Bytes(), nil
}

func writeShadingRecord(w *binWriter) {
	count := 0
	for _, attr := range shadingBlock {
		count += len(attr.Values)
	}
	w.record(tagShading, uint16(count))
	for _, attr := range shadingBlock {
		for _, f := range attr.Values {
			w.f32(f)
		}
	}
}
