package config

import "flag"

// Flags holds command-line overrides. String and int flags left at their
// zero value are not applied; boolean flags apply whenever they are given,
// so -invert-normals=false overrides the config file.
type Flags struct {
	Config          string
	Debug           bool
	Version         int
	OutputDir       string
	InvertNormals   bool
	AutoTriangulate bool
	ColorMap        bool
	LogFile         string

	fs *flag.FlagSet
}

// BindFlags registers the configuration flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.Version, "version", 0, "XMODEL version (5, 6 or 7)")
	fs.StringVar(&f.OutputDir, "out", "", "Output directory")
	fs.BoolVar(&f.InvertNormals, "invert-normals", false, "Invert normals during export")
	fs.BoolVar(&f.AutoTriangulate, "triangulate", false, "Triangulate n-gons before export")
	fs.BoolVar(&f.ColorMap, "colormap", false, "Also write <material>.tif")
	fs.StringVar(&f.LogFile, "log", "", "Log file path")
	return f
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Version != 0 {
		cfg.Export.Version = f.Version
	}
	if f.OutputDir != "" {
		cfg.Export.OutputDir = f.OutputDir
	}
	if f.given("invert-normals", f.InvertNormals) {
		cfg.Export.InvertNormals = f.InvertNormals
	}
	if f.given("triangulate", f.AutoTriangulate) {
		cfg.Export.AutoTriangulate = f.AutoTriangulate
	}
	if f.given("colormap", f.ColorMap) {
		cfg.Export.WriteColorMap = f.ColorMap
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}

// given reports whether the named flag was passed on the command line.
// Flags built without a FlagSet fall back to value.
func (f *Flags) given(name string, value bool) bool {
	if f.fs == nil {
		return value
	}
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}
