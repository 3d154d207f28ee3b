package coco

import (
	"sort"
)

// Index is the id-keyed view of a Dataset. It is built once and never
// mutated, so any number of goroutines may read it without locking.
//
// When ids repeat, the first occurrence wins in the id tables. The per-image
// grouping keeps every annotation, duplicates included, in input order.
type Index struct {
	images             map[ID]Image
	annotations        map[ID]Annotation
	annotationOrder    []ID
	annotationsByImage map[ID][]Annotation
	categories         map[int]Category
	duplicates         Duplicates
}

// Duplicates counts entries dropped from the id tables because an earlier
// entry had the same id.
type Duplicates struct {
	Images      int
	Annotations int
	Categories  int
}

func (d Duplicates) Any() bool {
	return d.Images > 0 || d.Annotations > 0 || d.Categories > 0
}

// Counts holds the sizes of the id tables.
type Counts struct {
	Images      int
	Annotations int
	Categories  int
}

func BuildIndex(ds *Dataset) *Index {
	idx := &Index{
		images:             make(map[ID]Image, len(ds.Images)),
		annotations:        make(map[ID]Annotation, len(ds.Annotations)),
		annotationOrder:    make([]ID, 0, len(ds.Annotations)),
		annotationsByImage: make(map[ID][]Annotation),
		categories:         make(map[int]Category, len(ds.Categories)),
	}

	for _, img := range ds.Images {
		if _, exists := idx.images[img.ID]; exists {
			idx.duplicates.Images++
			continue
		}
		idx.images[img.ID] = img
	}

	for _, ann := range ds.Annotations {
		if _, exists := idx.annotations[ann.ID]; exists {
			idx.duplicates.Annotations++
		} else {
			idx.annotations[ann.ID] = ann
			idx.annotationOrder = append(idx.annotationOrder, ann.ID)
		}
		idx.annotationsByImage[ann.ImageID] = append(idx.annotationsByImage[ann.ImageID], ann)
	}

	for _, cat := range ds.Categories {
		if _, exists := idx.categories[cat.ID]; exists {
			idx.duplicates.Categories++
			continue
		}
		idx.categories[cat.ID] = cat
	}
	return idx
}

func (idx *Index) Image(id ID) (Image, bool) {
	img, ok := idx.images[id]
	return img, ok
}

func (idx *Index) Annotation(id ID) (Annotation, bool) {
	ann, ok := idx.annotations[id]
	return ann, ok
}

// AnnotationsForImage returns every annotation referencing the image,
// including ones whose id lost a collision in the annotation table.
func (idx *Index) AnnotationsForImage(id ID) ([]Annotation, bool) {
	anns, ok := idx.annotationsByImage[id]
	return anns, ok
}

func (idx *Index) Category(id int) (Category, bool) {
	cat, ok := idx.categories[id]
	return cat, ok
}

// Annotations returns the annotation table in first-occurrence order.
func (idx *Index) Annotations() []Annotation {
	out := make([]Annotation, 0, len(idx.annotationOrder))
	for _, id := range idx.annotationOrder {
		out = append(out, idx.annotations[id])
	}
	return out
}

// Categories returns the category table sorted by id.
func (idx *Index) Categories() []Category {
	out := make([]Category, 0, len(idx.categories))
	for _, cat := range idx.categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (idx *Index) Counts() Counts {
	return Counts{
		Images:      len(idx.images),
		Annotations: len(idx.annotations),
		Categories:  len(idx.categories),
	}
}

func (idx *Index) Duplicates() Duplicates {
	return idx.duplicates
}
