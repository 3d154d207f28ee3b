// Package aggregate runs the border sampler over every annotation of an index
// in parallel and reduces the per-annotation means to one dataset mean.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/border"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/coco"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/pixels"
	apperrors "github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Result is the dataset-wide outcome of a run.
type Result struct {
	Mean        border.Color `json:"mean"`
	Sum         Sum          `json:"sum"`
	Annotations int          `json:"annotations"`
	Samples     int64        `json:"samples"`
}

type Aggregator struct {
	index            *coco.Index
	loader           pixels.Loader
	imageDir         string
	workers          int
	progressInterval time.Duration
	metrics          *metrics.Metrics
	logger           *slog.Logger
}

type Option func(*Aggregator)

// WithWorkers sets the number of annotations sampled concurrently.
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithProgressInterval sets how often progress is logged; zero disables it.
func WithProgressInterval(d time.Duration) Option {
	return func(a *Aggregator) { a.progressInterval = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func New(index *coco.Index, loader pixels.Loader, imageDir string, opts ...Option) *Aggregator {
	a := &Aggregator{
		index:    index,
		loader:   loader,
		imageDir: imageDir,
		workers:  runtime.NumCPU(),
		logger:   slog.Default().With("component", "aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run samples every annotation in the index. The first failing annotation
// cancels the remaining work and its error is returned; there is no
// partial result.
func (a *Aggregator) Run(ctx context.Context) (Result, error) {
	anns := a.index.Annotations()
	if len(anns) == 0 {
		return Result{}, apperrors.ErrNoAnnotations
	}

	start := time.Now()
	means := make([]border.Color, len(anns))
	var done, samples atomic.Int64

	stopProgress := a.startProgress(&done, len(anns))
	defer stopProgress()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, ann := range anns {
		i, ann := i, ann
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.metrics.TaskStarted()
			defer a.metrics.TaskDone()

			m, err := a.sampleOne(gctx, ann)
			if err != nil {
				a.metrics.TaskFailed(apperrors.Kind(err))
				return err
			}
			means[i] = m.Mean
			samples.Add(int64(m.Samples()))
			a.metrics.ObserveSample(m.Inset, m.Outset)
			done.Add(1)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		// Cancellation may have stopped the loop before any task failed.
		err = ctx.Err()
	}
	if err != nil {
		a.logger.Error("sampling aborted",
			"completed", done.Load(),
			"total", len(anns),
			"error", err,
		)
		return Result{}, err
	}

	sum := Reduce(means)
	mean, err := sum.Mean(len(anns))
	if err != nil {
		return Result{}, err
	}
	elapsed := time.Since(start)
	a.metrics.ObserveRun(elapsed)
	a.logger.Info("sampling complete",
		"annotations", len(anns),
		"samples", samples.Load(),
		"workers", a.workers,
		"duration_ms", elapsed.Milliseconds(),
	)
	return Result{
		Mean:        mean,
		Sum:         sum,
		Annotations: len(anns),
		Samples:     samples.Load(),
	}, nil
}

func (a *Aggregator) sampleOne(ctx context.Context, ann coco.Annotation) (border.Measurement, error) {
	img, ok := a.index.Image(ann.ImageID)
	if !ok {
		return border.Measurement{}, apperrors.Newf(apperrors.ErrMissingImage,
			"annotation %q references image %q", ann.ID, ann.ImageID)
	}
	src, err := a.loader.Load(ctx, filepath.Join(a.imageDir, img.FileName))
	if err != nil {
		return border.Measurement{}, fmt.Errorf("annotation %q: %w", ann.ID, err)
	}
	return border.Sample(ann, src)
}

func (a *Aggregator) startProgress(done *atomic.Int64, total int) (stop func()) {
	if a.progressInterval <= 0 {
		return func() {}
	}
	quit := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(a.progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				a.logger.Info("sampling progress",
					"completed", done.Load(),
					"total", total,
				)
			}
		}
	}()
	return func() {
		close(quit)
		<-finished
	}
}
