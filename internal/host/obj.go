package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/xmodel-tools/internal/logger"
)

// ErrInvalidOBJ is returned for malformed Wavefront OBJ data.
var ErrInvalidOBJ = errors.New("invalid OBJ data")

// objReader builds a scene from Wavefront OBJ statements. Positions,
// texture coordinates and normals are global to the file; each object gets
// its own vertex list in order of first use.
type objReader struct {
	dir    string
	scene  *Scene
	lineNo int

	positions []mgl32.Vec3
	uvs       []mgl32.Vec2
	normals   []mgl32.Vec3

	cur       *EditMesh
	remap     map[int]int // global position index -> vertex in cur
	hasNormal []bool      // per vertex in cur
	curMat    string
	images    map[string]string
}

// LoadOBJ reads an OBJ file and any material libraries it references.
func LoadOBJ(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ file: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseOBJ(f, filepath.Dir(path), name)
}

// ParseOBJ parses OBJ data. dir resolves mtllib and texture paths;
// defaultName names geometry that appears before any o/g statement.
func ParseOBJ(r io.Reader, dir, defaultName string) (*Scene, error) {
	p := &objReader{
		dir:    dir,
		scene:  &Scene{},
		images: make(map[string]string),
	}
	p.startObject(defaultName)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.lineNo++
		line := strings.TrimSpace(sc.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		if err := p.statement(tokens); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}
	p.finishObject()

	for _, obj := range p.scene.Objects {
		obj.Mesh.Images = make(map[string]string)
		for _, mat := range obj.Mesh.MaterialSlots {
			if img, ok := p.images[mat]; ok {
				obj.Mesh.Images[mat] = img
			}
		}
	}
	return p.scene, nil
}

func (p *objReader) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrInvalidOBJ, p.lineNo, fmt.Sprintf(format, args...))
}

func (p *objReader) statement(tokens []string) error {
	switch tokens[0] {
	case "v", "vn":
		v, err := p.parseFloats(tokens, 3)
		if err != nil {
			return err
		}
		vec := mgl32.Vec3{v[0], v[1], v[2]}
		if tokens[0] == "v" {
			p.positions = append(p.positions, vec)
		} else {
			p.normals = append(p.normals, vec)
		}
	case "vt":
		v, err := p.parseFloats(tokens, 2)
		if err != nil {
			return err
		}
		p.uvs = append(p.uvs, mgl32.Vec2{v[0], v[1]})
	case "o", "g":
		name := strings.Join(tokens[1:], " ")
		if name == "" {
			return nil
		}
		if len(p.cur.Polys) == 0 {
			p.cur.MeshName = name
			return nil
		}
		p.finishObject()
		p.startObject(name)
	case "usemtl":
		if len(tokens) < 2 {
			return p.errorf("usemtl needs a name")
		}
		p.curMat = strings.Join(tokens[1:], " ")
		p.useMaterial()
	case "mtllib":
		for _, lib := range tokens[1:] {
			p.loadMaterialLibrary(lib)
		}
	case "f":
		return p.parseFace(tokens[1:])
	default:
		logger.Debug("skipping OBJ statement", zap.String("keyword", tokens[0]), zap.Int("line", p.lineNo))
	}
	return nil
}

func (p *objReader) startObject(name string) {
	p.cur = &EditMesh{MeshName: name}
	p.remap = make(map[int]int)
	p.hasNormal = nil
	if p.curMat != "" {
		p.useMaterial()
	}
}

// finishObject adds the current mesh to the scene if it has geometry and
// fills in normals the file didn't provide.
func (p *objReader) finishObject() {
	if len(p.cur.Polys) == 0 {
		return
	}
	missing := make([]bool, len(p.hasNormal))
	anyMissing := false
	for i, ok := range p.hasNormal {
		missing[i] = !ok
		anyMissing = anyMissing || !ok
	}
	if anyMissing {
		p.cur.RecalcNormals(missing)
	}
	p.scene.AddMesh(p.cur)
}

func (p *objReader) useMaterial() {
	for _, slot := range p.cur.MaterialSlots {
		if slot == p.curMat {
			return
		}
	}
	p.cur.MaterialSlots = append(p.cur.MaterialSlots, p.curMat)
}

func (p *objReader) parseFloats(tokens []string, n int) ([]float32, error) {
	if len(tokens)-1 < n {
		return nil, p.errorf("%s needs %d values, got %d", tokens[0], n, len(tokens)-1)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(tokens[i+1], 32)
		if err != nil {
			return nil, p.errorf("bad number %q", tokens[i+1])
		}
		out[i] = float32(f)
	}
	return out, nil
}

// resolveIndex converts a 1-based (or negative, relative) OBJ index.
func (p *objReader) resolveIndex(tok string, count int) (int, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, p.errorf("bad index %q", tok)
	}
	idx := n - 1
	if n < 0 {
		idx = count + n
	}
	if n == 0 || idx < 0 || idx >= count {
		return 0, p.errorf("index %d out of range (%d elements)", n, count)
	}
	return idx, nil
}

func (p *objReader) parseFace(corners []string) error {
	if len(corners) < 3 {
		return p.errorf("face needs at least 3 corners, got %d", len(corners))
	}
	verts := make([]int, len(corners))
	uvs := make([]mgl32.Vec2, len(corners))
	for i, corner := range corners {
		parts := strings.Split(corner, "/")
		pos, err := p.resolveIndex(parts[0], len(p.positions))
		if err != nil {
			return err
		}

		v, ok := p.remap[pos]
		if !ok {
			v = len(p.cur.Verts)
			p.remap[pos] = v
			p.cur.Verts = append(p.cur.Verts, Vertex{Co: p.positions[pos]})
			p.hasNormal = append(p.hasNormal, false)
		}
		verts[i] = v

		if len(parts) > 1 && parts[1] != "" {
			t, err := p.resolveIndex(parts[1], len(p.uvs))
			if err != nil {
				return err
			}
			uvs[i] = p.uvs[t]
			p.cur.HasUV = true
		}
		if len(parts) > 2 && parts[2] != "" {
			n, err := p.resolveIndex(parts[2], len(p.normals))
			if err != nil {
				return err
			}
			// The host keeps one normal per vertex; the first one wins.
			if !p.hasNormal[v] {
				p.cur.Verts[v].Normal = p.normals[n]
				p.hasNormal[v] = true
			}
		}
	}
	p.cur.AddPolygon(verts, uvs)
	return nil
}

// loadMaterialLibrary records the diffuse texture of every material in an
// MTL file. A missing library only costs texture paths, so it is logged.
func (p *objReader) loadMaterialLibrary(name string) {
	path := filepath.Join(p.dir, name)
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("material library unavailable", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()

	current := ""
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		tokens := strings.Fields(sc.Text())
		if len(tokens) < 2 {
			continue
		}
		switch tokens[0] {
		case "newmtl":
			current = strings.Join(tokens[1:], " ")
		case "map_Kd":
			if current == "" {
				continue
			}
			// Options such as -s or -o come before the file name.
			img := tokens[len(tokens)-1]
			if !filepath.IsAbs(img) {
				img = filepath.Join(p.dir, img)
			}
			p.images[current] = img
		}
	}
	if err := sc.Err(); err != nil {
		logger.Warn("reading material library", zap.String("path", path), zap.Error(err))
	}
}
