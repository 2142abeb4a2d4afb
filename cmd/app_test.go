package cmd

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/df07/go-pathtracer/pkg/scene"
)

func TestLoadScene(t *testing.T) {
	tests := []struct {
		name        string
		ref         string
		expectError bool
	}{
		{"default scene", "default", false},
		{"single sphere", "single-sphere", false},
		{"glass scene", "glass", false},
		{"random spheres", "random-spheres", false},
		{"sphere grid", "sphere-grid", false},
		{"unknown scene", "nonexistent", true},
		{"missing json file", "scenes/nonexistent.json", true},
		{"empty scene name", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := loadScene(tt.ref, 42)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for %q", tt.ref)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if sc.World.Len() == 0 {
				t.Error("Scene has no objects")
			}
		})
	}

	if _, err := loadScene("", 42); !errors.Is(err, scene.ErrUnknownScene) {
		t.Errorf("Expected ErrUnknownScene, got %v", err)
	}
}

func TestDefaultOutputPath(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		ref      string
		expected string
	}{
		{"default", filepath.Join("output", "default", "render_20240309_140507.png")},
		{"scenes/mirror.json", filepath.Join("output", "mirror", "render_20240309_140507.png")},
	}

	for _, tt := range tests {
		if got := defaultOutputPath(tt.ref, now); got != tt.expected {
			t.Errorf("defaultOutputPath(%q): expected %q, got %q", tt.ref, tt.expected, got)
		}
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "sphere.ppm")

	err := NewApp().Run([]string{"pathtracer", "render",
		"--scene", "single-sphere",
		"--width", "16", "--aspect", "2", "--spp", "1", "--depth", "2",
		"--workers", "2", "--tile", "4", "--thumbnail", "8",
		"--out", out,
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	if !strings.HasPrefix(string(data), "P3\n16 8\n255\n") {
		t.Errorf("Unexpected PPM header: %q", string(data[:12]))
	}
	if _, err := os.Stat(filepath.Join(dir, "sphere_thumb.png")); err != nil {
		t.Errorf("Expected thumbnail: %v", err)
	}
}

func TestRenderCommand_Progressive(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sphere.png")

	err := NewApp().Run([]string{"pathtracer", "render",
		"--scene", "single-sphere",
		"--width", "16", "--aspect", "2", "--spp", "3", "--depth", "2",
		"--workers", "2", "--passes", "3",
		"--out", out,
	})
	if err != nil {
		t.Fatalf("Progressive render failed: %v", err)
	}

	file, err := os.Open(out)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	defer file.Close()

	config, err := png.DecodeConfig(file)
	if err != nil {
		t.Fatal(err)
	}
	if config.Width != 16 || config.Height != 8 {
		t.Errorf("Unexpected image size %dx%d", config.Width, config.Height)
	}
}

func TestRenderCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"unknown scene", []string{"--scene", "nonexistent"}},
		{"unsupported format", []string{"--scene", "single-sphere", "--width", "8", "--spp", "1", "--out", filepath.Join(dir, "x.gif")}},
		{"negative spp", []string{"--scene", "single-sphere", "--spp", "-1"}},
		{"zero passes", []string{"--scene", "single-sphere", "--passes", "0"}},
		{"negative spp progressive", []string{"--scene", "single-sphere", "--spp", "-1", "--passes", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"pathtracer", "render"}, tt.args...)
			if err := NewApp().Run(args); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestExportCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "glass.json")

	if err := NewApp().Run([]string{"pathtracer", "export", "--out", out, "glass"}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	sc, err := scene.LoadFile(out)
	if err != nil {
		t.Fatalf("Exported scene does not load: %v", err)
	}
	original, _ := scene.NewBuiltin("glass", 42)
	if sc.World.Len() != original.World.Len() {
		t.Errorf("Expected %d spheres, got %d", original.World.Len(), sc.World.Len())
	}
}

func TestWriteSceneTable(t *testing.T) {
	response, err := scene.ListAllScenes("")
	if err != nil {
		t.Fatalf("ListAllScenes failed: %v", err)
	}

	var buf bytes.Buffer
	writeSceneTable(&buf, response)

	for _, info := range scene.BuiltinScenes() {
		if !strings.Contains(buf.String(), info.ID) {
			t.Errorf("Expected %q in the table:\n%s", info.ID, buf.String())
		}
	}
}
