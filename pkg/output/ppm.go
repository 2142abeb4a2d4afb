package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/df07/go-pathtracer/pkg/renderer"
)

// WritePPM writes img as a plain-text PPM (P3): a "P3\n{w} {h}\n255\n" header
// followed by one "r g b" line per pixel, top row first
func WritePPM(w io.Writer, img *renderer.Image) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "P3\n%d %d\n255\n", img.Width, img.Height); err != nil {
		return err
	}
	for _, p := range img.Pix {
		if _, err := fmt.Fprintf(bw, "%d %d %d\n", p.R, p.G, p.B); err != nil {
			return err
		}
	}

	return bw.Flush()
}
