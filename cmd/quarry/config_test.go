package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "quarry.toml", "log_level = \"debug\"\npreview_cells = 32\npretty_json = false\n"},
		{"yaml", "quarry.yaml", "log_level: debug\npreview_cells: 32\npretty_json: false\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if cfg.PreviewCells != 32 || cfg.PrettyJSON {
				t.Errorf("unexpected config %+v", cfg)
			}
			if cfg.DefaultMaterial != "default" {
				t.Errorf("expected unset keys to keep defaults, got %q", cfg.DefaultMaterial)
			}
			level, err := cfg.Level()
			if err != nil || level != slog.LevelDebug {
				t.Errorf("Level() = %v, %v; want debug", level, err)
			}
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown toml key", "quarry.toml", "colour = \"red\"\n"},
		{"unknown yaml key", "quarry.yml", "colour: red\n"},
		{"bad level", "quarry.toml", "log_level = \"loud\"\n"},
		{"bad kernel", "quarry.yaml", "preview_kernel: voxels\n"},
		{"bad syntax", "quarry.toml", "log_level = \n"},
		{"unsupported extension", "quarry.ini", "log_level=debug\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeFile(t, tt.file, tt.content)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
