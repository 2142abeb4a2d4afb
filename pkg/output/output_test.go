package output

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-pathtracer/pkg/renderer"
)

func testImage() *renderer.Image {
	img := renderer.NewImage(2, 2)
	img.Set(0, 0, renderer.RGB8{R: 255, G: 0, B: 0})
	img.Set(1, 0, renderer.RGB8{R: 0, G: 255, B: 0})
	img.Set(0, 1, renderer.RGB8{R: 0, G: 0, B: 255})
	img.Set(1, 1, renderer.RGB8{R: 12, G: 34, B: 56})
	return img
}

func TestWritePPM(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePPM(&buf, testImage()); err != nil {
		t.Fatalf("WritePPM() error: %v", err)
	}

	expected := "P3\n2 2\n255\n255 0 0\n0 255 0\n0 0 255\n12 34 56\n"
	if buf.String() != expected {
		t.Errorf("WritePPM() =\n%s\nwant\n%s", buf.String(), expected)
	}
}

func TestWritePPM_LineCount(t *testing.T) {
	img := renderer.NewImage(7, 3)
	var buf bytes.Buffer
	if err := WritePPM(&buf, img); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 3+7*3 {
		t.Errorf("Expected %d lines, got %d", 3+7*3, len(lines))
	}
	if lines[1] != "7 3" {
		t.Errorf("Expected dimensions line \"7 3\", got %q", lines[1])
	}
}

func TestWritePNG(t *testing.T) {
	data, err := EncodePNG(testImage())
	if err != nil {
		t.Fatalf("EncodePNG() error: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error: %v", err)
	}
	if decoded.Bounds().Dx() != 2 || decoded.Bounds().Dy() != 2 {
		t.Fatalf("Unexpected bounds %v", decoded.Bounds())
	}

	r, g, b, a := decoded.At(1, 1).RGBA()
	if r>>8 != 12 || g>>8 != 34 || b>>8 != 56 || a>>8 != 255 {
		t.Errorf("Unexpected pixel (%d, %d, %d, %d)", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		name             string
		width, height    int
		maxSize          uint
		expectW, expectH int
	}{
		{"landscape", 400, 200, 100, 100, 50},
		{"portrait", 90, 300, 60, 18, 60},
		{"already small", 40, 20, 100, 40, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thumb := Thumbnail(renderer.NewImage(tt.width, tt.height), tt.maxSize)
			if thumb.Bounds().Dx() != tt.expectW || thumb.Bounds().Dy() != tt.expectH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.expectW, tt.expectH, thumb.Bounds().Dx(), thumb.Bounds().Dy())
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
		wantErr  bool
	}{
		{"out/render.ppm", FormatPPM, false},
		{"render.PNG", FormatPNG, false},
		{"render.jpg", "", true},
		{"render", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, err := FormatFromPath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil || format != tt.expected {
				t.Errorf("Expected %q, got %q (%v)", tt.expected, format, err)
			}
		})
	}
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	img := testImage()

	ppmPath := filepath.Join(dir, "nested", "render.ppm")
	if err := SaveFile(ppmPath, img); err != nil {
		t.Fatalf("SaveFile(ppm) error: %v", err)
	}
	data, err := os.ReadFile(ppmPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "P3\n2 2\n255\n") {
		t.Errorf("Unexpected PPM header in %q", data)
	}

	pngPath := filepath.Join(dir, "render.png")
	if err := SaveFile(pngPath, img); err != nil {
		t.Fatalf("SaveFile(png) error: %v", err)
	}
	file, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if _, err := png.Decode(file); err != nil {
		t.Errorf("Saved PNG does not decode: %v", err)
	}

	if err := SaveFile(filepath.Join(dir, "render.gif"), img); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}
