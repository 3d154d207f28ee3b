// Package pixels turns image files into read-only 8-bit RGB pixel sources.
package pixels

import (
	"image"
	"image/color"
)

// Source is a width×height grid of 8-bit RGB pixels addressed from (0, 0).
type Source interface {
	Width() int
	Height() int
	RGB(x, y int) (r, g, b uint8)
}

// RGBImage stores three bytes per pixel, row-major. Alpha is discarded.
type RGBImage struct {
	width  int
	height int
	pix    []uint8
}

func NewRGBImage(width, height int) *RGBImage {
	return &RGBImage{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height*3),
	}
}

// FromImage copies img into an RGBImage. The image origin is moved to
// (0, 0) and colours are converted without alpha premultiplication.
func FromImage(img image.Image) *RGBImage {
	b := img.Bounds()
	out := NewRGBImage(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.RGBA:
		// Fully opaque RGBA is already non-premultiplied.
		if src.Opaque() {
			for y := 0; y < out.height; y++ {
				row := src.Pix[y*src.Stride:]
				for x := 0; x < out.width; x++ {
					out.Set(x, y, row[x*4], row[x*4+1], row[x*4+2])
				}
			}
			return out
		}
	case *image.NRGBA:
		for y := 0; y < out.height; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < out.width; x++ {
				out.Set(x, y, row[x*4], row[x*4+1], row[x*4+2])
			}
		}
		return out
	}

	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			out.Set(x, y, c.R, c.G, c.B)
		}
	}
	return out
}

func (m *RGBImage) Width() int  { return m.width }
func (m *RGBImage) Height() int { return m.height }

// RGB panics when (x, y) is outside the image, like slice indexing.
func (m *RGBImage) RGB(x, y int) (r, g, b uint8) {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		panic(image.Point{X: x, Y: y}.String() + " outside " + image.Rect(0, 0, m.width, m.height).String())
	}
	i := (y*m.width + x) * 3
	return m.pix[i], m.pix[i+1], m.pix[i+2]
}

func (m *RGBImage) Set(x, y int, r, g, b uint8) {
	i := (y*m.width + x) * 3
	m.pix[i] = r
	m.pix[i+1] = g
	m.pix[i+2] = b
}

// Fill paints every pixel with one colour.
func (m *RGBImage) Fill(r, g, b uint8) {
	for i := 0; i < len(m.pix); i += 3 {
		m.pix[i] = r
		m.pix[i+1] = g
		m.pix[i+2] = b
	}
}
