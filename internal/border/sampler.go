// Package border samples the pixel rings just inside and just outside an
// annotation's bounding box and reduces them to a mean colour.
package border

import (
	"fmt"
	"image"

	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/coco"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/pixels"
)

// Measurement is the result of sampling one annotation.
type Measurement struct {
	Mean   Color
	Inset  int
	Outset int
}

// Samples returns the total number of pixels averaged.
func (m Measurement) Samples() int {
	return m.Inset + m.Outset
}

// Sample averages the inset and outset rings of ann over src. Every sample
// weighs the same; the mean is truncated per channel.
func Sample(ann coco.Annotation, src pixels.Source) (Measurement, error) {
	box, err := BoxFromBBox(ann.BBox)
	if err != nil {
		return Measurement{}, fmt.Errorf("annotation %q: %w", ann.ID, err)
	}
	width, height := src.Width(), src.Height()
	if err := Validate(box, width, height); err != nil {
		return Measurement{}, fmt.Errorf("annotation %q: %w", ann.ID, err)
	}

	inset := InsetRing(box)
	outset := OutsetRing(box, width, height)

	var rSum, gSum, bSum uint64
	for _, ring := range [][]image.Point{inset, outset} {
		for _, p := range ring {
			r, g, b := src.RGB(p.X, p.Y)
			rSum += uint64(r)
			gSum += uint64(g)
			bSum += uint64(b)
		}
	}

	n := uint64(len(inset) + len(outset))
	return Measurement{
		Mean: Color{
			R: uint8(rSum / n),
			G: uint8(gSum / n),
			B: uint8(bSum / n),
		},
		Inset:  len(inset),
		Outset: len(outset),
	}, nil
}
