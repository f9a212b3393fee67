package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Preview kernels.
const (
	KernelSdfx     = "sdfx"
	KernelManifold = "manifold"
)

// Config holds the settings a config file may provide. Command-line flags
// override it.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" yaml:"log_level"`
	// PreviewKernel selects the -preview kernel: sdfx or manifold.
	PreviewKernel string `toml:"preview_kernel" yaml:"preview_kernel"`
	// PreviewCells is the marching cubes resolution of the sdfx kernel.
	PreviewCells int `toml:"preview_cells" yaml:"preview_cells"`
	// PrettyJSON indents JSON scene and mesh output.
	PrettyJSON bool `toml:"pretty_json" yaml:"pretty_json"`
	// DefaultMaterial names the export group of faces without a material.
	DefaultMaterial string `toml:"default_material" yaml:"default_material"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		LogLevel:        "info",
		PreviewKernel:   KernelSdfx,
		PreviewCells:    64,
		PrettyJSON:      true,
		DefaultMaterial: "default",
	}
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) config file on top
// of DefaultConfig. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(f)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("config: unsupported extension %q", ext)
	}
	if _, err := cfg.Level(); err != nil {
		return cfg, err
	}
	switch cfg.PreviewKernel {
	case KernelSdfx, KernelManifold:
	default:
		return cfg, fmt.Errorf("config: preview_kernel: unknown kernel %q", cfg.PreviewKernel)
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}
