package border

import (
	"image"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/errors"
)

// Box is a bounding box truncated to whole pixels.
type Box struct {
	X, Y, W, H int
}

// maxCoord bounds every bbox value so the truncated ints stay well clear of
// overflow.
const maxCoord = 1 << 31

// BoxFromBBox truncates [x, y, w, h] toward zero.
func BoxFromBBox(bbox []float64) (Box, error) {
	if len(bbox) != 4 {
		return Box{}, apperrors.Newf(apperrors.ErrInvalidGeometry, "bbox has %d values, want 4", len(bbox))
	}
	for _, v := range bbox {
		if math.IsNaN(v) || math.Abs(v) >= maxCoord {
			return Box{}, apperrors.Newf(apperrors.ErrInvalidGeometry, "bbox value %v out of range", v)
		}
	}
	return Box{
		X: int(bbox[0]),
		Y: int(bbox[1]),
		W: int(bbox[2]),
		H: int(bbox[3]),
	}, nil
}

// Validate checks that both rings can be built for an image of the given
// size: the box must not touch the top or left edge, must be at least 2×2,
// and its inset ring must lie inside the image.
func Validate(b Box, width, height int) error {
	switch {
	case b.X < 1 || b.Y < 1:
		return apperrors.Newf(apperrors.ErrInvalidGeometry,
			"box %+v touches the top or left image edge", b)
	case b.W < 2 || b.H < 2:
		return apperrors.Newf(apperrors.ErrInvalidGeometry,
			"box %+v is smaller than 2x2", b)
	case b.W-1 >= width-b.X || b.H-1 >= height-b.Y:
		return apperrors.Newf(apperrors.ErrInvalidGeometry,
			"inset ring of box %+v falls outside %dx%d image", b, width, height)
	}
	return nil
}

// InsetRing returns the perimeter of b shrunk by one pixel on every side.
// Corners appear twice. The caller must Validate b first.
func InsetRing(b Box) []image.Point {
	return perimeter(b.X+1, b.Y+1, b.W-2, b.H-2, nil)
}

// OutsetRing returns the perimeter of b grown by one pixel on every side,
// skipping points outside [0, width) × [0, height).
func OutsetRing(b Box, width, height int) []image.Point {
	bounds := image.Rect(0, 0, width, height)
	return perimeter(b.X-1, b.Y-1, b.W+2, b.H+2, func(p image.Point) bool {
		return p.In(bounds)
	})
}

// perimeter walks rows y0 and y0+h over [x0, x0+w], then columns x0 and
// x0+w over [y0, y0+h], both ranges inclusive.
func perimeter(x0, y0, w, h int, keep func(image.Point) bool) []image.Point {
	pts := make([]image.Point, 0, 2*(w+1)+2*(h+1))
	add := func(p image.Point) {
		if keep == nil || keep(p) {
			pts = append(pts, p)
		}
	}
	for x := x0; x <= x0+w; x++ {
		add(image.Point{X: x, Y: y0})
		add(image.Point{X: x, Y: y0 + h})
	}
	for y := y0; y <= y0+h; y++ {
		add(image.Point{X: x0, Y: y})
		add(image.Point{X: x0 + w, Y: y})
	}
	return pts
}
