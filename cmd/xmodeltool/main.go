// xmodeltool exports meshes to the XMODEL interchange format and inspects
// or converts existing .xmodel_export and .xmodel_bin files.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/xmodel-tools/internal/config"
	"github.com/Faultbox/xmodel-tools/internal/exporter"
	"github.com/Faultbox/xmodel-tools/internal/host"
	"github.com/Faultbox/xmodel-tools/internal/logger"
	"github.com/Faultbox/xmodel-tools/pkg/xmodel"
)

// Set via -ldflags at build time.
var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "export", "x":
		cmdExport(args)
	case "info":
		cmdInfo(args)
	case "convert":
		cmdConvert(args)
	case "config":
		cmdConfig(args)
	case "version":
		fmt.Printf("xmodeltool %s (XMODEL versions %s, default %s)\n",
			buildVersion, versionList(), xmodel.DefaultVersion)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`xmodeltool - XMODEL exporter and inspector

Usage:
  xmodeltool <command> [options]

Commands:
  export [options] <source>          Export one mesh (.obj, .gltf, .glb) to .xmodel_export and .xmodel_bin
  info <file>                        Show the contents of an XMODEL file
  convert [-version N] <in> <out>    Re-encode an XMODEL file (format from extension)
  config [-save]                     Print the effective configuration
  version                            Show tool and format versions

Export options:
  -object <name>       Object to export when the file holds several
  -version <5|6|7>     XMODEL version (default 7)
  -out <dir>           Output directory
  -invert-normals      Flip normals for the export
  -triangulate         Triangulate n-gons first
  -colormap            Also write <material>.tif
  -config <file>       Config file (default ./xmodel.yaml, then user config dir)
  -debug               Debug logging
  -log <file>          Also log to a rotating file

Examples:
  xmodeltool export -out ./models crate.obj
  xmodeltool export -object Wheel -version 6 -triangulate car.obj
  xmodeltool info models/Crate.xmodel_bin
  xmodeltool convert -version 5 Crate.xmodel_bin Crate.xmodel_export`)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	logger.Sync()
	os.Exit(1)
}

// loadConfig loads the configuration and starts logging.
func loadConfig(f *config.Flags) *config.Config {
	cfg, err := config.Load(f)
	if err != nil {
		fatalf("%v", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatalf("initializing logger: %v", err)
	}
	return cfg
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	object := fs.String("object", "", "Object to export")
	flags := config.BindFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: xmodeltool export [options] <mesh.obj|.gltf|.glb>")
		os.Exit(1)
	}

	cfg := loadConfig(flags)
	defer logger.Sync()

	scene, err := host.Load(fs.Arg(0))
	if err != nil {
		fatalf("%v", err)
	}
	logger.Debug("loaded scene", zap.String("path", fs.Arg(0)), zap.Strings("objects", scene.Names()))

	if *object != "" {
		if err := scene.Select(*object); err != nil {
			fatalf("%v (objects: %s)", err, strings.Join(scene.Names(), ", "))
		}
	} else {
		scene.SelectAll()
	}

	res, err := exporter.Export(scene, exporter.SettingsFromConfig(cfg.Export))
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("Exported %s (v%s): %d vertices, %d faces\n", res.Mesh, res.Version, res.Vertices, res.Faces)
	if res.Split > 0 {
		fmt.Printf("Triangulated %d polygons\n", res.Split)
	}
	for _, f := range res.Files {
		fmt.Printf("  %s\n", f)
	}
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: xmodeltool info <file>")
		os.Exit(1)
	}

	model, version, err := readModel(args[0])
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Printf("File:      %s\n", args[0])
	fmt.Printf("Version:   %s\n", version)
	fmt.Printf("Bones:     %d\n", len(model.Bones))
	for i, b := range model.Bones {
		fmt.Printf("  [%d] %-20s parent %d\n", i, b.Name, b.Parent)
	}
	fmt.Printf("Materials: %d\n", len(model.Materials))
	for i, mat := range model.Materials {
		fmt.Printf("  [%d] %-20s %s\n", i, mat.Name, mat.Type)
		channels := make([]string, 0, len(mat.Images))
		for ch := range mat.Images {
			channels = append(channels, ch)
		}
		sort.Strings(channels)
		for _, ch := range channels {
			fmt.Printf("        %-16s %s\n", ch, mat.Images[ch])
		}
	}
	fmt.Printf("Meshes:    %d\n", len(model.Meshes))
	for i, mesh := range model.Meshes {
		fmt.Printf("  [%d] %-20s %d vertices, %d faces\n", i, mesh.Name, len(mesh.Vertices), len(mesh.Faces))
	}
}

func cmdConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	target := fs.Int("version", 0, "Target XMODEL version (default: keep)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: xmodeltool convert [-version N] <in> <out>")
		os.Exit(1)
	}
	in, out := fs.Arg(0), fs.Arg(1)

	model, version, err := readModel(in)
	if err != nil {
		fatalf("%v", err)
	}
	if *target != 0 {
		version = xmodel.Version(*target)
	}

	var data []byte
	switch strings.ToLower(filepath.Ext(out)) {
	case exporter.ExportExt:
		data, err = model.ExportBytes(version)
	case exporter.BinExt:
		data, err = model.BinBytes(version)
	default:
		fatalf("output must end in %s or %s", exporter.ExportExt, exporter.BinExt)
	}
	if err != nil {
		fatalf("%v", err)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		fatalf("creating directory: %v", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		fatalf("writing file: %v", err)
	}
	fmt.Printf("Wrote %s (v%s, %d bytes)\n", out, version, len(data))
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.Bool("save", false, "Write the effective configuration to the user config directory")
	flags := config.BindFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fatalf("%v", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Print(string(data))

	if *save {
		if err := cfg.Save(); err != nil {
			fatalf("saving config: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Saved to %s\n", config.ConfigDir())
	}
}

// readModel decodes a text or binary XMODEL file. Files without a known
// extension are sniffed for the binary magic.
func readModel(path string) (*xmodel.Model, xmodel.Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case exporter.ExportExt:
		return xmodel.ParseExport(data)
	case exporter.BinExt:
		return xmodel.ParseBin(data)
	}
	if bytes.HasPrefix(data, []byte("XBIN")) {
		return xmodel.ParseBin(data)
	}
	return xmodel.ParseExport(data)
}

func versionList() string {
	names := make([]string, len(xmodel.Versions))
	for i, v := range xmodel.Versions {
		names[i] = v.String()
	}
	return strings.Join(names, ", ")
}
