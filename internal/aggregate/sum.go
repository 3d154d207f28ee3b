package aggregate

import (
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/border"
	apperrors "github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/errors"
)

// Sum is a per-channel running total of colours. The zero value is the
// identity; Add and Merge commute, so any grouping or order of the same
// colours gives the same Sum.
type Sum struct {
	R uint64 `json:"r"`
	G uint64 `json:"g"`
	B uint64 `json:"b"`
}

func (s Sum) Add(c border.Color) Sum {
	return Sum{
		R: s.R + uint64(c.R),
		G: s.G + uint64(c.G),
		B: s.B + uint64(c.B),
	}
}

func (s Sum) Merge(o Sum) Sum {
	return Sum{R: s.R + o.R, G: s.G + o.G, B: s.B + o.B}
}

// Mean divides each channel by n, truncating.
func (s Sum) Mean(n int) (border.Color, error) {
	if n <= 0 {
		return border.Color{}, apperrors.ErrNoAnnotations
	}
	d := uint64(n)
	return border.Color{
		R: uint8(s.R / d),
		G: uint8(s.G / d),
		B: uint8(s.B / d),
	}, nil
}

// Reduce folds colours into a Sum.
func Reduce(colors []border.Color) Sum {
	var s Sum
	for _, c := range colors {
		s = s.Add(c)
	}
	return s
}
