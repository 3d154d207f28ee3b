// Package report formats the outcome of a run for the console and hands the
// final aggregate to the configured result sinks.
package report

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/aggregate"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/border"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/coco"
)

// Summary is the final aggregate of one run. It is the only result that
// leaves the process.
type Summary struct {
	RunID       string       `json:"run_id"`
	Dataset     string       `json:"dataset"`
	ImageDir    string       `json:"image_dir"`
	Images      int          `json:"images"`
	Annotations int          `json:"annotations"`
	Categories  int          `json:"categories"`
	Samples     int64        `json:"samples"`
	Mean        border.Color `json:"mean"`
	Hex         string       `json:"hex"`
	RunAt       time.Time    `json:"run_at"`
}

func NewSummary(runID, dataset, imageDir string, counts coco.Counts, res aggregate.Result, at time.Time) Summary {
	return Summary{
		RunID:       runID,
		Dataset:     dataset,
		ImageDir:    imageDir,
		Images:      counts.Images,
		Annotations: counts.Annotations,
		Categories:  counts.Categories,
		Samples:     res.Samples,
		Mean:        res.Mean,
		Hex:         res.Mean.Hex(),
		RunAt:       at.UTC(),
	}
}

// NewRunID returns a random 16-hex-digit identifier.
func NewRunID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%016x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// WriteDataset prints table sizes and the category listing.
func WriteDataset(w io.Writer, idx *coco.Index) error {
	counts := idx.Counts()
	if _, err := fmt.Fprintf(w, "Images: %d\nAnnotations: %d\nCategories: %d\n",
		counts.Images, counts.Annotations, counts.Categories); err != nil {
		return err
	}
	for _, cat := range idx.Categories() {
		if _, err := fmt.Fprintf(w, "Category: %d - %s\n", cat.ID, cat.Name); err != nil {
			return err
		}
	}
	return nil
}

// WriteMean prints the dataset mean in decimal and hex form.
func WriteMean(w io.Writer, mean border.Color) error {
	_, err := fmt.Fprintf(w, "Mean: %s\nMean: %s\n", mean, mean.Hex())
	return err
}
