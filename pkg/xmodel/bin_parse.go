package xmodel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/xmodel-tools/pkg/encoding"
)

// XMODEL binary errors.
var (
	ErrInvalidBin   = errors.New("invalid XMODEL binary")
	ErrInvalidMagic = errors.New("invalid XMODEL binary magic: expected 'XBIN'")
	ErrTruncatedBin = errors.New("truncated XMODEL binary data")
	ErrChecksum     = errors.New("XMODEL binary checksum mismatch")
)

// binReader reads records and keeps the first error it hits.
type binReader struct {
	r     *bytes.Reader
	order binary.ByteOrder
	err   error
}

func (r *binReader) read(v interface{}) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, r.order, v); err != nil {
		r.err = ErrTruncatedBin
	}
}

func (r *binReader) u16() uint16 {
	var v uint16
	r.read(&v)
	return v
}

func (r *binReader) u32() uint32 {
	var v uint32
	r.read(&v)
	return v
}

func (r *binReader) i32() int32 {
	var v int32
	r.read(&v)
	return v
}

func (r *binReader) f32() float32 {
	var v float32
	r.read(&v)
	return v
}

// record reads a record header, checks its tag against the accepted ones
// and returns the matched tag and its short argument.
func (r *binReader) record(tags ...uint16) (uint16, uint16) {
	tag := r.u16()
	short := r.u16()
	if r.err != nil {
		return 0, 0
	}
	for _, t := range tags {
		if tag == t {
			return tag, short
		}
	}
	r.err = fmt.Errorf("%w: unexpected record 0x%04X at offset %d, want 0x%04X",
		ErrInvalidBin, tag, r.offset()-4, tags[0])
	return 0, 0
}

func (r *binReader) offset() int64 {
	return r.r.Size() - int64(r.r.Len())
}

func (r *binReader) vec3(tag uint16) mgl32.Vec3 {
	r.record(tag)
	var v [3]float32
	r.read(&v)
	return mgl32.Vec3(v)
}

// str reads a null-terminated string padded to 4 bytes.
func (r *binReader) str() string {
	if r.err != nil {
		return ""
	}
	var raw []byte
	for {
		var chunk [4]byte
		if _, err := io.ReadFull(r.r, chunk[:]); err != nil {
			r.err = ErrTruncatedBin
			return ""
		}
		raw = append(raw, chunk[:]...)
		if bytes.IndexByte(chunk[:], 0) >= 0 {
			break
		}
	}
	return encoding.LegacyToUTF8(encoding.NullTerminated(raw))
}

// count reads a u32 element count and rejects counts that cannot fit in
// the remaining data (every element takes at least 4 bytes).
func (r *binReader) count() int {
	n := r.u32()
	if r.err == nil && int64(n) > int64(r.r.Len())/4 {
		r.err = fmt.Errorf("%w: count %d exceeds remaining data", ErrTruncatedBin, n)
	}
	return int(n)
}

// ParseBin decodes .xmodel_bin data.
func ParseBin(data []byte) (*Model, Version, error) {
	if len(data) < 12 {
		return nil, 0, ErrTruncatedBin
	}
	if !bytes.Equal(data[:4], binMagic[:]) {
		return nil, 0, ErrInvalidMagic
	}

	// The MODEL tag doubles as the byte order mark.
	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint16(data[4:6]) == tagModel:
		order = binary.LittleEndian
	case binary.BigEndian.Uint16(data[4:6]) == tagModel:
		order = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("%w: missing MODEL record", ErrInvalidBin)
	}

	r := &binReader{r: bytes.NewReader(data[4:]), order: order}
	r.record(tagModel)
	_, ver := r.record(tagVersion)
	if r.err != nil {
		return nil, 0, r.err
	}
	version := Version(ver)
	if !version.Valid() {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, ver)
	}
	if byteOrder(version) != order {
		return nil, 0, fmt.Errorf("%w: v%d with wrong byte order", ErrInvalidBin, version)
	}

	if version >= Version7 {
		r.record(tagFrame)
		size := r.u32()
		sum := r.u32()
		if r.err != nil {
			return nil, 0, r.err
		}
		body := data[len(data)-r.r.Len():]
		if int(size) != len(body) {
			return nil, 0, fmt.Errorf("%w: frame size %d, have %d bytes", ErrTruncatedBin, size, len(body))
		}
		if crc32.ChecksumIEEE(body) != sum {
			return nil, 0, ErrChecksum
		}
	}

	m := &Model{}
	parseBinBones(r, m)
	verts := parseBinVertices(r)
	faces := parseBinFaces(r)
	objects := parseBinObjects(r)
	parseBinMaterials(r, m, version)
	if r.err != nil {
		return nil, 0, r.err
	}

	if err := assemble(m, verts, faces, objects); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidBin, err)
	}
	return m, version, nil
}

// ParseBinFile decodes an .xmodel_bin file from disk.
func ParseBinFile(path string) (*Model, Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading bin file: %w", err)
	}
	return ParseBin(data)
}

func parseBinBones(r *binReader, m *Model) {
	r.record(tagNumBones)
	count := r.count()
	if r.err != nil {
		return
	}
	m.Bones = make([]Bone, count)
	for i := 0; i < count && r.err == nil; i++ {
		r.record(tagBoneInfo)
		idx := int(r.u32())
		parent := int(r.i32())
		name := r.str()
		if r.err == nil && idx >= count {
			r.err = fmt.Errorf("%w: bone index %d out of range", ErrInvalidBin, idx)
			return
		}
		if r.err == nil {
			m.Bones[idx] = Bone{Name: name, Parent: parent}
		}
	}
	for i := 0; i < count && r.err == nil; i++ {
		r.record(tagBoneIndex)
		idx := int(r.u32())
		if r.err == nil && idx >= count {
			r.err = fmt.Errorf("%w: bone index %d out of range", ErrInvalidBin, idx)
			return
		}
		offset := r.vec3(tagOffset)
		r.vec3(tagScale)
		x := r.vec3(tagAxisX)
		y := r.vec3(tagAxisY)
		z := r.vec3(tagAxisZ)
		if r.err == nil {
			m.Bones[idx].Offset = offset
			m.Bones[idx].Matrix = mgl32.Mat3FromRows(x, y, z)
		}
	}
}

// vertRef reads a VERT or VERT32 record and returns the vertex index.
func (r *binReader) vertRef() int {
	tag, short := r.record(tagVert, tagVert32)
	if tag == tagVert32 {
		return int(r.u32())
	}
	return int(short)
}

func parseBinVertices(r *binReader) []Vertex {
	tag, short := r.record(tagNumVerts, tagNumVerts32)
	count := int(short)
	if tag == tagNumVerts32 {
		count = r.count()
	}
	if r.err != nil {
		return nil
	}
	verts := make([]Vertex, count)
	for i := 0; i < count && r.err == nil; i++ {
		idx := r.vertRef()
		if r.err == nil && idx >= count {
			r.err = fmt.Errorf("%w: vertex index %d out of range", ErrInvalidBin, idx)
			return nil
		}
		pos := r.vec3(tagOffset)
		_, nweights := r.record(tagNumWeights)
		weights := make([]Weight, 0, nweights)
		for j := 0; j < int(nweights) && r.err == nil; j++ {
			_, bone := r.record(tagWeight)
			weights = append(weights, Weight{Bone: int(bone), Weight: r.f32()})
		}
		if r.err == nil {
			verts[idx] = Vertex{Position: pos, Weights: weights}
		}
	}
	return verts
}

func parseBinFaces(r *binReader) []rawFace {
	r.record(tagNumFaces)
	count := r.count()
	if r.err != nil {
		return nil
	}
	faces := make([]rawFace, count)
	for i := 0; i < count && r.err == nil; i++ {
		f := &faces[i]
		tag, short := r.record(tagTri, tagTri16)
		if tag == tagTri16 {
			f.Object = int(r.u16())
			f.Face.Material = int(r.u16())
		} else {
			f.Object = int(short >> 8)
			f.Face.Material = int(short & 0xFF)
		}
		for c := 0; c < 3 && r.err == nil; c++ {
			corner := &f.Face.Corners[c]
			corner.Vertex = r.vertRef()
			corner.Normal = r.vec3(tagNormal)

			r.record(tagColor)
			var color [4]float32
			r.read(&color)
			corner.Color = mgl32.Vec4(color)

			_, layers := r.record(tagUV)
			if r.err == nil && layers != 1 {
				r.err = fmt.Errorf("%w: unsupported UV layer count %d", ErrInvalidBin, layers)
				return nil
			}
			var uv [2]float32
			r.read(&uv)
			corner.UV = mgl32.Vec2(uv)
		}
	}
	return faces
}

func parseBinObjects(r *binReader) []string {
	r.record(tagNumObjects)
	count := r.count()
	if r.err != nil {
		return nil
	}
	objects := make([]string, count)
	for i := 0; i < count && r.err == nil; i++ {
		_, idx := r.record(tagObject)
		name := r.str()
		if r.err == nil && int(idx) >= count {
			r.err = fmt.Errorf("%w: object index %d out of range", ErrInvalidBin, idx)
			return nil
		}
		if r.err == nil {
			objects[idx] = name
		}
	}
	return objects
}

func parseBinMaterials(r *binReader, m *Model, v Version) {
	r.record(tagNumMaterials)
	count := r.count()
	if r.err != nil {
		return
	}
	m.Materials = make([]Material, count)
	for i := 0; i < count && r.err == nil; i++ {
		_, idx := r.record(tagMaterial)
		mat := Material{Name: r.str(), Type: r.str(), Images: map[string]string{}}
		if r.err == nil && int(idx) >= count {
			r.err = fmt.Errorf("%w: material index %d out of range", ErrInvalidBin, idx)
			return
		}

		if v < Version7 {
			if img := r.str(); img != "" {
				mat.Images[ColorMapChannel] = img
			}
			if v == Version6 {
				_, nvalues := r.record(tagShading)
				for j := 0; j < int(nvalues); j++ {
					r.f32()
				}
			}
		} else {
			nimages := r.count()
			for j := 0; j < nimages && r.err == nil; j++ {
				r.record(tagImage)
				channel := r.str()
				mat.Images[channel] = r.str()
			}
		}
		if r.err == nil {
			m.Materials[idx] = mat
		}
	}
}
