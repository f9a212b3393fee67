// Command quarry evaluates a scene script or a saved scene, carves its
// brushes and writes the scene, its export meshes or a reference preview.
//
// Usage:
//
//	quarry [flags] <input.qs | input.json | input.qsnap>
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chazu/quarry/pkg/csg"
	"github.com/chazu/quarry/pkg/scenefile"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	config   string
	out      string
	mesh     string
	preview  string
	cells    int
	kernel   string
	validate bool
	verbose  bool
}

func parseFlags(args []string, stderr io.Writer) (options, string, error) {
	var o options
	fs := flag.NewFlagSet("quarry", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.config, "config", "", "TOML or YAML config file")
	fs.StringVar(&o.out, "o", "", "write the scene to `path` (.json or .qsnap)")
	fs.StringVar(&o.mesh, "mesh", "", "write export meshes as JSON to `path`")
	fs.StringVar(&o.preview, "preview", "", "write the kernel preview mesh as JSON to `path`")
	fs.StringVar(&o.kernel, "kernel", "", "preview kernel, sdfx or manifold (overrides config)")
	fs.IntVar(&o.cells, "cells", 0, "sdfx marching cubes cells (overrides config)")
	fs.BoolVar(&o.validate, "validate", false, "print validation findings and fail on errors")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: quarry [flags] <input.qs | input.json | input.qsnap>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return o, "", errors.New("expected exactly one input")
	}
	return o, fs.Arg(0), nil
}

func run(args []string, stdout, stderr io.Writer) int {
	o, input, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg := DefaultConfig()
	if o.config != "" {
		if cfg, err = LoadConfig(o.config); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}
	if o.cells > 0 {
		cfg.PreviewCells = o.cells
	}
	if o.kernel != "" {
		cfg.PreviewKernel = o.kernel
	}
	level, _ := cfg.Level()
	if o.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	app, err := NewApp(cfg, log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	result := app.Open(input)
	for _, e := range result.Errors {
		if e.Line > 0 {
			fmt.Fprintf(stderr, "error: line %d: %s\n", e.Line, e.Message)
		} else {
			fmt.Fprintf(stderr, "error: %s\n", e.Message)
		}
	}
	if o.validate {
		for _, w := range result.Warnings {
			fmt.Fprintf(stderr, "warning: %s\n", w.Message)
		}
	}
	sc := result.Scene
	if sc == nil {
		return 1
	}

	if o.out != "" {
		if err := scenefile.Save(o.out, sc); err != nil {
			log.Error("save failed", "err", err)
			return 1
		}
		log.Info("scene saved", "path", o.out)
	}
	if o.mesh != "" {
		if err := writeJSON(o.mesh, result.Meshes, cfg.PrettyJSON); err != nil {
			log.Error("mesh export failed", "err", err)
			return 1
		}
		log.Info("meshes written", "path", o.mesh, "count", len(result.Meshes))
	}
	if o.preview != "" {
		md, err := app.Preview(sc)
		if err == nil {
			err = writeJSON(o.preview, md, cfg.PrettyJSON)
		}
		if err != nil {
			log.Error("preview failed", "err", err)
			return 1
		}
		log.Info("preview written", "path", o.preview)
	}

	printSummary(stdout, sc)
	if o.validate && len(result.Errors) > 0 {
		return 1
	}
	return 0
}

func printSummary(w io.Writer, sc *csg.Scene) {
	for _, s := range sc.Shapes() {
		visible := 0
		for _, f := range s.Faces {
			for i := range f.Fragments {
				if f.Fragments[i].Visible() {
					visible++
				}
			}
		}
		name := s.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%4d %-12s %-5s faces=%d visible=%d\n", s.UID(), name, s.Volume, len(s.Faces), visible)
	}
}

func writeJSON(path string, v any, pretty bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	enc := json.NewEncoder(f)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
