package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/df07/go-pathtracer/pkg/log"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

var logger = log.New("output")

var ErrUnsupportedFormat = errors.New("output: unsupported image format")

// Format is an image encoding selected by file extension
type Format string

const (
	FormatPPM Format = "ppm"
	FormatPNG Format = "png"
)

// FormatFromPath picks the encoding from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ppm":
		return FormatPPM, nil
	case ".png":
		return FormatPNG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Write encodes img to w in the given format
func Write(w io.Writer, img *renderer.Image, format Format) error {
	switch format {
	case FormatPPM:
		return WritePPM(w, img)
	case FormatPNG:
		return WritePNG(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// SaveFile writes img to path, creating parent directories as needed
func SaveFile(path string, img *renderer.Image) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Write(file, img, format); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	logger.Infof("wrote %dx%d image to %s", img.Width, img.Height, path)
	return nil
}
