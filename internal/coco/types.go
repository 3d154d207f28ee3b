package coco

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an image or annotation identifier. COCO exports disagree on whether
// ids are strings or numbers, so both decode to the same literal text.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty id")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be a string or number, got %s", data)
		}
		*id = ID(n.String())
		return nil
	}
}

type Image struct {
	ID       ID     `json:"id"`
	FileName string `json:"file_name"`
}

// Annotation locates one labelled object. BBox is [x, y, w, h] in pixels.
type Annotation struct {
	ID         ID        `json:"id"`
	CategoryID int       `json:"category_id"`
	ImageID    ID        `json:"image_id"`
	BBox       []float64 `json:"bbox"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Dataset is the three flat lists of a COCO document, in file order.
type Dataset struct {
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Categories  []Category   `json:"categories"`
}
