// Package config handles exporter configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/xmodel-tools/pkg/xmodel"
)

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds the settings passed to each export.
type ExportConfig struct {
	Version         int    `yaml:"version"`          // XMODEL version: 5, 6 or 7
	OutputDir       string `yaml:"output_dir"`       // Directory for .xmodel_export/.xmodel_bin
	InvertNormals   bool   `yaml:"invert_normals"`   // Flip normals for the duration of the export
	AutoTriangulate bool   `yaml:"auto_triangulate"` // Triangulate n-gons before export
	WriteColorMap   bool   `yaml:"write_color_map"`  // Also write <material>.tif
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Version:         int(xmodel.DefaultVersion),
			OutputDir:       ".",
			InvertNormals:   false,
			AutoTriangulate: false,
			WriteColorMap:   false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values that can't be represented by the YAML types alone.
func (c *Config) Validate() error {
	if !xmodel.Version(c.Export.Version).Valid() {
		return fmt.Errorf("export.version: %w: %d", xmodel.ErrUnsupportedVersion, c.Export.Version)
	}
	if c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir must not be empty")
	}
	return nil
}
