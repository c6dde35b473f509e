package xmodel

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidExport is returned for malformed .xmodel_export text.
var ErrInvalidExport = errors.New("invalid XMODEL export text")

// exportScanner walks the significant lines of an export file.
type exportScanner struct {
	lines  []string
	pos    int
	lineNo int
}

func newExportScanner(data []byte) *exportScanner {
	s := &exportScanner{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		s.lines = append(s.lines, sc.Text())
	}
	return s
}

// next returns the tokens of the next non-blank, non-comment line.
func (s *exportScanner) next() ([]string, error) {
	for s.pos < len(s.lines) {
		line := strings.TrimSpace(s.lines[s.pos])
		s.pos++
		s.lineNo = s.pos
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		return tokenizeLine(line)
	}
	return nil, fmt.Errorf("%w: unexpected end of file", ErrInvalidExport)
}

// peek returns the keyword of the next significant line without consuming it.
func (s *exportScanner) peek() string {
	for i := s.pos; i < len(s.lines); i++ {
		line := strings.TrimSpace(s.lines[i])
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if f := strings.Fields(line); len(f) > 0 {
			return f[0]
		}
	}
	return ""
}

func (s *exportScanner) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrInvalidExport, s.lineNo, fmt.Sprintf(format, args...))
}

// expect reads the next line and checks its keyword and argument count.
func (s *exportScanner) expect(nargs int, keywords ...string) ([]string, error) {
	tok, err := s.next()
	if err != nil {
		return nil, err
	}
	for _, kw := range keywords {
		if tok[0] == kw {
			if len(tok)-1 < nargs {
				return nil, s.errorf("%s needs %d arguments, got %d", kw, nargs, len(tok)-1)
			}
			return tok, nil
		}
	}
	return nil, s.errorf("expected %s, got %s", strings.Join(keywords, " or "), tok[0])
}

func (s *exportScanner) expectInt(keyword string) (int, error) {
	tok, err := s.expect(1, keyword)
	if err != nil {
		return 0, err
	}
	return s.atoi(tok[1])
}

func (s *exportScanner) atoi(tok string) (int, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, s.errorf("bad integer %q", tok)
	}
	return n, nil
}

func (s *exportScanner) floats(tok []string) ([]float32, error) {
	out := make([]float32, len(tok))
	for i, t := range tok {
		f, err := strconv.ParseFloat(t, 32)
		if err != nil {
			return nil, s.errorf("bad float %q", t)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func (s *exportScanner) vec3(keyword string) (mgl32.Vec3, error) {
	tok, err := s.expect(3, keyword)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	f, err := s.floats(tok[1:4])
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return mgl32.Vec3{f[0], f[1], f[2]}, nil
}

// tokenizeLine splits a line on whitespace and commas. Quoted strings are
// returned unquoted as single tokens.
func tokenizeLine(line string) ([]string, error) {
	var tokens []string
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == ',':
			i++
		case c == '"':
			j := i + 1
			for j < len(line) && line[j] != '"' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(line) {
				return nil, fmt.Errorf("%w: unterminated string in %q", ErrInvalidExport, line)
			}
			str, err := strconv.Unquote(line[i : j+1])
			if err != nil {
				return nil, fmt.Errorf("%w: bad string in %q", ErrInvalidExport, line)
			}
			tokens = append(tokens, str)
			i = j + 1
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' && line[j] != ',' {
				j++
			}
			tokens = append(tokens, line[i:j])
			i = j
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrInvalidExport)
	}
	return tokens, nil
}

// ParseExport decodes .xmodel_export text.
func ParseExport(data []byte) (*Model, Version, error) {
	s := newExportScanner(data)

	if _, err := s.expect(0, "MODEL"); err != nil {
		return nil, 0, err
	}
	ver, err := s.expectInt("VERSION")
	if err != nil {
		return nil, 0, err
	}
	version := Version(ver)
	if !version.Valid() {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, ver)
	}

	m := &Model{}
	if err := parseExportBones(s, m); err != nil {
		return nil, 0, err
	}

	verts, err := parseExportVertices(s)
	if err != nil {
		return nil, 0, err
	}

	faces, err := parseExportFaces(s)
	if err != nil {
		return nil, 0, err
	}

	objectCount, err := s.expectInt("NUMOBJECTS")
	if err != nil {
		return nil, 0, err
	}
	if objectCount < 0 {
		return nil, 0, s.errorf("negative object count")
	}
	objects := make([]string, objectCount)
	for range objects {
		tok, err := s.expect(2, "OBJECT")
		if err != nil {
			return nil, 0, err
		}
		idx, err := s.atoi(tok[1])
		if err != nil {
			return nil, 0, err
		}
		if idx < 0 || idx >= objectCount {
			return nil, 0, s.errorf("object index %d out of range", idx)
		}
		objects[idx] = tok[2]
	}

	if err := parseExportMaterials(s, m, version); err != nil {
		return nil, 0, err
	}

	if err := assemble(m, verts, faces, objects); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidExport, err)
	}
	return m, version, nil
}

// ParseExportFile decodes an .xmodel_export file from disk.
func ParseExportFile(path string) (*Model, Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading export file: %w", err)
	}
	return ParseExport(data)
}

func parseExportBones(s *exportScanner, m *Model) error {
	count, err := s.expectInt("NUMBONES")
	if err != nil {
		return err
	}
	if count < 0 {
		return s.errorf("negative bone count")
	}
	m.Bones = make([]Bone, count)
	for i := 0; i < count; i++ {
		tok, err := s.expect(3, "BONE")
		if err != nil {
			return err
		}
		idx, err := s.atoi(tok[1])
		if err != nil {
			return err
		}
		if idx < 0 || idx >= count {
			return s.errorf("bone index %d out of range", idx)
		}
		parent, err := s.atoi(tok[2])
		if err != nil {
			return err
		}
		m.Bones[idx] = Bone{Name: tok[3], Parent: parent}
	}

	for i := 0; i < count; i++ {
		idx, err := s.expectInt("BONE")
		if err != nil {
			return err
		}
		if idx < 0 || idx >= count {
			return s.errorf("bone index %d out of range", idx)
		}
		bone := &m.Bones[idx]
		if bone.Offset, err = s.vec3("OFFSET"); err != nil {
			return err
		}
		if _, err = s.vec3("SCALE"); err != nil {
			return err
		}
		var rows [3]mgl32.Vec3
		for r, key := range []string{"X", "Y", "Z"} {
			if rows[r], err = s.vec3(key); err != nil {
				return err
			}
		}
		bone.Matrix = mgl32.Mat3FromRows(rows[0], rows[1], rows[2])
	}
	return nil
}

func parseExportVertices(s *exportScanner) ([]Vertex, error) {
	tok, err := s.expect(1, "NUMVERTS", "NUMVERTS32")
	if err != nil {
		return nil, err
	}
	count, err := s.atoi(tok[1])
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, s.errorf("negative vertex count")
	}
	verts := make([]Vertex, count)
	for i := 0; i < count; i++ {
		tok, err := s.expect(1, "VERT", "VERT32")
		if err != nil {
			return nil, err
		}
		idx, err := s.atoi(tok[1])
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= count {
			return nil, s.errorf("vertex index %d out of range", idx)
		}
		vert := &verts[idx]
		if vert.Position, err = s.vec3("OFFSET"); err != nil {
			return nil, err
		}
		nweights, err := s.expectInt("BONES")
		if err != nil {
			return nil, err
		}
		if nweights < 0 {
			return nil, s.errorf("negative weight count")
		}
		vert.Weights = make([]Weight, nweights)
		for w := 0; w < nweights; w++ {
			tok, err := s.expect(2, "BONE")
			if err != nil {
				return nil, err
			}
			bone, err := s.atoi(tok[1])
			if err != nil {
				return nil, err
			}
			f, err := s.floats(tok[2:3])
			if err != nil {
				return nil, err
			}
			vert.Weights[w] = Weight{Bone: bone, Weight: f[0]}
		}
	}
	return verts, nil
}

func parseExportFaces(s *exportScanner) ([]rawFace, error) {
	count, err := s.expectInt("NUMFACES")
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, s.errorf("negative face count")
	}
	faces := make([]rawFace, count)
	for i := range faces {
		tok, err := s.expect(2, "TRI", "TRI16")
		if err != nil {
			return nil, err
		}
		if faces[i].Object, err = s.atoi(tok[1]); err != nil {
			return nil, err
		}
		if faces[i].Face.Material, err = s.atoi(tok[2]); err != nil {
			return nil, err
		}
		for c := 0; c < 3; c++ {
			corner := &faces[i].Face.Corners[c]
			tok, err := s.expect(1, "VERT", "VERT32")
			if err != nil {
				return nil, err
			}
			if corner.Vertex, err = s.atoi(tok[1]); err != nil {
				return nil, err
			}
			tok, err = s.expect(3, "NORMAL")
			if err != nil {
				return nil, err
			}
			f, err := s.floats(tok[1:4])
			if err != nil {
				return nil, err
			}
			corner.Normal = mgl32.Vec3{f[0], f[1], f[2]}

			tok, err = s.expect(4, "COLOR")
			if err != nil {
				return nil, err
			}
			if f, err = s.floats(tok[1:5]); err != nil {
				return nil, err
			}
			corner.Color = mgl32.Vec4{f[0], f[1], f[2], f[3]}

			tok, err = s.expect(3, "UV")
			if err != nil {
				return nil, err
			}
			if tok[1] != "1" {
				return nil, s.errorf("unsupported UV layer count %s", tok[1])
			}
			if f, err = s.floats(tok[2:4]); err != nil {
				return nil, err
			}
			corner.UV = mgl32.Vec2{f[0], f[1]}
		}
	}
	return faces, nil
}

func parseExportMaterials(s *exportScanner, m *Model, v Version) error {
	count, err := s.expectInt("NUMMATERIALS")
	if err != nil {
		return err
	}
	if count < 0 {
		return s.errorf("negative material count")
	}
	m.Materials = make([]Material, count)
	for i := 0; i < count; i++ {
		tok, err := s.expect(4, "MATERIAL")
		if err != nil {
			return err
		}
		idx, err := s.atoi(tok[1])
		if err != nil {
			return err
		}
		if idx < 0 || idx >= count {
			return s.errorf("material index %d out of range", idx)
		}
		mat := Material{Name: tok[2], Type: tok[3], Images: map[string]string{}}

		if v < Version7 {
			if tok[4] != "" {
				mat.Images[ColorMapChannel] = tok[4]
			}
			// Shading attributes carry format defaults only.
			for isShadingKey(s.peek()) {
				if _, err := s.next(); err != nil {
					return err
				}
			}
		} else {
			nimages, err := s.atoi(tok[4])
			if err != nil {
				return err
			}
			for j := 0; j < nimages; j++ {
				img, err := s.expect(2, "IMAGE")
				if err != nil {
					return err
				}
				mat.Images[img[1]] = img[2]
			}
		}
		m.Materials[idx] = mat
	}
	return nil
}

func isShadingKey(key string) bool {
	for _, attr := range shadingBlock {
		if attr.Key == key {
			return true
		}
	}
	return false
}
