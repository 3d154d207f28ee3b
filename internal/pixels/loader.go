package pixels

import (
	"bufio"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/metrics"
)

// Loader yields a pixel source for an image file path.
type Loader interface {
	Load(ctx context.Context, path string) (Source, error)
}

// FileLoader decodes images from disk. Every call decodes the file again.
type FileLoader struct {
	metrics *metrics.Metrics
}

func NewFileLoader(m *metrics.Metrics) *FileLoader {
	return &FileLoader{metrics: m}
}

func (l *FileLoader) Load(ctx context.Context, path string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	src, err := decodeFile(path)
	l.metrics.ObserveDecode(start, err)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func decodeFile(path string) (*RGBImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrDecodeFailure, "opening %s: %v", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrDecodeFailure, "decoding %s: %v", path, err)
	}
	return FromImage(img), nil
}
