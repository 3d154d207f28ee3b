package coco

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/errors"
)

// Load reads a COCO dataset file.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidDataset, "opening %s: %v", path, err)
	}
	defer f.Close()

	ds, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return ds, nil
}

// Decode parses one COCO JSON document from r. Unknown fields such as info,
// licenses and segmentation are ignored.
func Decode(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidDataset, "decoding json: %v", err)
	}
	for i, ann := range ds.Annotations {
		if len(ann.BBox) != 4 {
			return nil, apperrors.Newf(apperrors.ErrInvalidDataset,
				"annotation %q (index %d): bbox has %d values, want 4", ann.ID, i, len(ann.BBox))
		}
	}
	return &ds, nil
}
