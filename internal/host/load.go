package host

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedSource is returned by Load for unknown file types.
var ErrUnsupportedSource = errors.New("unsupported source file")

// Load reads a scene from an OBJ, glTF or GLB file.
func Load(path string) (*Scene, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return LoadOBJ(path)
	case ".gltf", ".glb":
		return LoadGLTF(path)
	default:
		return nil, fmt.Errorf("%w: %q (want .obj, .gltf or .glb)", ErrUnsupportedSource, ext)
	}
}
