package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/xmodel-tools/internal/logger"
)

type output struct {
	name string
	data []byte
}

// writeAll stages every output as a temp file in dir, then renames them
// into place. Temp files left by a failure are removed.
func writeAll(dir string, outputs []output) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	staged := make([]string, 0, len(outputs))
	defer func() {
		for _, tmp := range staged {
			if tmp != "" {
				_ = os.Remove(tmp)
			}
		}
	}()

	for _, out := range outputs {
		tmp, err := stage(dir, out)
		if err != nil {
			return nil, err
		}
		staged = append(staged, tmp)
	}

	files := make([]string, len(outputs))
	for i, out := range outputs {
		path := filepath.Join(dir, out.name)
		if err := os.Rename(staged[i], path); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		staged[i] = ""
		files[i] = path
		logger.Debug("wrote file", zap.String("path", path), zap.Int("bytes", len(out.data)))
	}
	return files, nil
}

func stage(dir string, out output) (string, error) {
	tmp, err := os.CreateTemp(dir, out.name+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	name := tmp.Name()

	if _, err := tmp.Write(out.data); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", fmt.Errorf("writing %s: %w", out.name, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", fmt.Errorf("writing %s: %w", out.name, err)
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("writing %s: %w", out.name, err)
	}
	return name, nil
}
