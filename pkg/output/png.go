package output

import (
	"bytes"
	"image"
	"image/png"
	"io"

	"github.com/nfnt/resize"

	"github.com/df07/go-pathtracer/pkg/renderer"
)

// WritePNG writes img as a PNG
func WritePNG(w io.Writer, img *renderer.Image) error {
	return png.Encode(w, img.ToRGBA())
}

// EncodePNG returns the PNG encoding of img
func EncodePNG(img *renderer.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Thumbnail scales img down to fit within maxSize x maxSize, keeping the
// aspect ratio. Images that already fit are returned unscaled.
func Thumbnail(img *renderer.Image, maxSize uint) image.Image {
	return resize.Thumbnail(maxSize, maxSize, img.ToRGBA(), resize.Lanczos3)
}

// WriteThumbnail writes a PNG thumbnail of img that fits within maxSize x maxSize
func WriteThumbnail(w io.Writer, img *renderer.Image, maxSize uint) error {
	return png.Encode(w, Thumbnail(img, maxSize))
}
