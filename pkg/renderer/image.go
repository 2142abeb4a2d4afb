package renderer

import (
	"image"
	"image/color"

	"github.com/df07/go-pathtracer/pkg/core"
)

// RGB8 is one 8-bit output pixel
type RGB8 struct {
	R, G, B uint8
}

// Image is a row-major raster; row 0 is the top of the picture
type Image struct {
	Width  int
	Height int
	Pix    []RGB8
}

// NewImage allocates a black image
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]RGB8, width*height),
	}
}

// At returns the pixel at column x, row y
func (img *Image) At(x, y int) RGB8 {
	return img.Pix[y*img.Width+x]
}

// Set stores the pixel at column x, row y
func (img *Image) Set(x, y int, c RGB8) {
	img.Pix[y*img.Width+x] = c
}

// ToRGBA converts the raster to an opaque image.RGBA for encoders
func (img *Image) ToRGBA() *image.RGBA {
	rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			p := img.At(x, y)
			rgba.SetRGBA(x, y, color.RGBA{R: p.R, G: p.G, B: p.B, A: 255})
		}
	}
	return rgba
}

// ToRGB8 converts a sum of samplesPerPixel radiance samples to an output pixel:
// average, gamma 2 (square root), clamp to [0, 0.999] and scale by 256
func ToRGB8(sum core.Vec3, samplesPerPixel int) RGB8 {
	c := sum.Multiply(1.0 / float64(samplesPerPixel)).Sqrt()
	return RGB8{
		R: toByte(c.X),
		G: toByte(c.Y),
		B: toByte(c.Z),
	}
}

// toByte scales a gamma-encoded channel. NaN, which negative energy
// becomes under Sqrt, maps to black.
func toByte(channel float64) uint8 {
	if !(channel > 0) {
		return 0
	}
	if channel > 0.999 {
		channel = 0.999
	}
	return uint8(256 * channel)
}
