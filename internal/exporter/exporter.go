// Package exporter runs a complete export: it prepares the selected host
// mesh, adapts it to an XMODEL model and writes both encodings.
package exporter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/xmodel-tools/internal/adapter"
	"github.com/Faultbox/xmodel-tools/internal/config"
	"github.com/Faultbox/xmodel-tools/internal/host"
	"github.com/Faultbox/xmodel-tools/internal/logger"
	"github.com/Faultbox/xmodel-tools/internal/texture"
	"github.com/Faultbox/xmodel-tools/pkg/xmodel"
)

// ErrSelection is returned unless exactly one mesh is selected.
var ErrSelection = errors.New("select exactly one mesh to export")

// Output file extensions.
const (
	ExportExt = ".xmodel_export"
	BinExt    = ".xmodel_bin"
)

// Selection supplies the meshes chosen for export.
type Selection interface {
	Selected() []host.Editable
}

// Settings controls a single export.
type Settings struct {
	Version         xmodel.Version
	OutputDir       string
	InvertNormals   bool
	AutoTriangulate bool
	ColorMap        bool
}

// DefaultSettings returns settings for a version 7 export into the
// working directory.
func DefaultSettings() Settings {
	return Settings{Version: xmodel.DefaultVersion, OutputDir: "."}
}

// SettingsFromConfig builds export settings from the export config section.
func SettingsFromConfig(c config.ExportConfig) Settings {
	return Settings{
		Version:         xmodel.Version(c.Version),
		OutputDir:       c.OutputDir,
		InvertNormals:   c.InvertNormals,
		AutoTriangulate: c.AutoTriangulate,
		ColorMap:        c.WriteColorMap,
	}
}

// Result describes a finished export.
type Result struct {
	Mesh     string
	Version  xmodel.Version
	Files    []string
	Vertices int
	Faces    int
	Split    int // polygons split by auto-triangulation
}

// Export writes <OutputDir>/<mesh>.xmodel_export and .xmodel_bin for the
// single selected mesh. Either every output file is written or none is.
// Normals flipped for the export are flipped back before returning, even
// on failure. Triangulation is kept.
func Export(sel Selection, s Settings) (*Result, error) {
	if !s.Version.Valid() {
		return nil, fmt.Errorf("%w: %d", xmodel.ErrUnsupportedVersion, int(s.Version))
	}

	mesh, err := selectedMesh(sel)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{Mesh: mesh.Name(), Version: s.Version}

	if s.InvertNormals {
		mesh.FlipNormals()
		defer mesh.FlipNormals()
	}
	if s.AutoTriangulate {
		res.Split = mesh.Triangulate()
		if res.Split > 0 {
			logger.Info("triangulated mesh",
				zap.String("mesh", mesh.Name()),
				zap.Int("polygons_split", res.Split))
		}
	}

	model, err := adapter.Build(mesh)
	if err != nil {
		return nil, err
	}

	outputs, err := encode(model, mesh, s)
	if err != nil {
		return nil, err
	}

	files, err := writeAll(s.OutputDir, outputs)
	if err != nil {
		return nil, err
	}

	res.Files = files
	res.Vertices = model.TotalVertexCount()
	res.Faces = model.TotalFaceCount()

	logger.Info("exported mesh",
		zap.String("mesh", res.Mesh),
		zap.Stringer("version", s.Version),
		zap.Int("vertices", res.Vertices),
		zap.Int("faces", res.Faces),
		zap.Strings("files", res.Files),
		zap.Duration("elapsed", time.Since(start)))

	return res, nil
}

func selectedMesh(sel Selection) (host.Editable, error) {
	meshes := sel.Selected()
	switch len(meshes) {
	case 0:
		return nil, fmt.Errorf("%w: no mesh is selected", ErrSelection)
	case 1:
		return meshes[0], nil
	default:
		names := make([]string, len(meshes))
		for i, m := range meshes {
			names[i] = m.Name()
		}
		return nil, fmt.Errorf("%w: %d meshes are selected (%s)",
			ErrSelection, len(meshes), strings.Join(names, ", "))
	}
}

// encode serializes every output into memory so nothing touches the disk
// until all encodings have succeeded.
func encode(model *xmodel.Model, mesh host.Mesh, s Settings) ([]output, error) {
	text, err := model.ExportBytes(s.Version)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", ExportExt, err)
	}
	bin, err := model.BinBytes(s.Version)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", BinExt, err)
	}

	base := fileBase(mesh.Name())
	outputs := []output{
		{name: base + ExportExt, data: text},
		{name: base + BinExt, data: bin},
	}

	if s.ColorMap {
		var src string
		if images, ok := mesh.(host.ImageSource); ok {
			src = images.MaterialImage(model.Materials[0].Name)
		}
		data, err := texture.ColorMap(src)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, output{
			name: fileBase(model.Materials[0].Images[xmodel.ColorMapChannel]),
			data: data,
		})
	}
	return outputs, nil
}

// fileBase turns an object name into a file name within the output directory.
func fileBase(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "untitled"
	}
	return name
}

// OutputPaths returns the text and binary file paths an export of the named
// mesh writes.
func OutputPaths(dir, mesh string) (text, bin string) {
	base := filepath.Join(dir, fileBase(mesh))
	return base + ExportExt, base + BinExt
}
