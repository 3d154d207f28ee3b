package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/aggregate"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/coco"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/pixels"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/report"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/tracing"
)

const usage = `Usage: bordercolor [-config path] <image_dir> <coco_path>

Calculate the mean colour of 1px inset and outset boxes around each object
in a COCO dataset.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

// newMetrics is replaced in tests so each run gets a private registry.
var newMetrics = metrics.New

type options struct {
	configPath string
	imageDir   string
	cocoPath   string
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("bordercolor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return options{}, &apperrors.AppError{Err: err, Message: "parsing flags", ExitCode: apperrors.ExitUsage}
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return options{}, &apperrors.AppError{
			Err:      fmt.Errorf("expected 2 positional arguments, got %d", fs.NArg()),
			Message:  "usage",
			ExitCode: apperrors.ExitUsage,
		}
	}
	return options{
		configPath: *configPath,
		imageDir:   fs.Arg(0),
		cocoPath:   fs.Arg(1),
	}, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return &apperrors.AppError{Err: err, Message: "loading config", ExitCode: apperrors.ExitUsage}
	}
	logger.Setup(stderr, cfg.Logging.Level, cfg.Logging.Format)

	runID := report.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)
	log.Info("starting border colour run",
		"image_dir", opts.imageDir,
		"dataset", opts.cocoPath,
		"workers", cfg.Sampling.Workers,
		"cache_images", cfg.Sampling.CacheImages,
	)

	ctx, root := tracing.StartSpan(ctx, "run", runID)
	defer func() {
		root.End()
		root.Log()
	}()

	m := newMetrics()
	checker := health.NewChecker()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, map[string]http.Handler{
			"/readyz": checker.ReadyHandler(),
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Warn("metrics server shutdown", "error", err)
			}
		}()
	}

	sinks, closeSinks, err := buildSinks(cfg, checker)
	if err != nil {
		return err
	}
	defer closeSinks()

	if err := tracing.Phase(ctx, "preflight", func(ctx context.Context) error {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		rep := checker.Run(checkCtx)
		if rep.Status == health.StatusDown {
			return apperrors.Newf(apperrors.ErrSinkUnavailable, "%s", rep.Summary())
		}
		return nil
	}); err != nil {
		return err
	}

	var ds *coco.Dataset
	if err := tracing.Phase(ctx, "load", func(ctx context.Context) error {
		ds, err = coco.Load(opts.cocoPath)
		return err
	}); err != nil {
		return err
	}

	var idx *coco.Index
	if err := tracing.Phase(ctx, "index", func(ctx context.Context) error {
		idx = coco.BuildIndex(ds)
		if dup := idx.Duplicates(); dup.Any() {
			log.Warn("duplicate ids dropped, first occurrence kept",
				"images", dup.Images,
				"annotations", dup.Annotations,
				"categories", dup.Categories,
			)
		}
		if err := report.WriteDataset(stdout, idx); err != nil {
			return fmt.Errorf("writing dataset summary: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	var loader pixels.Loader = pixels.NewFileLoader(m)
	if cfg.Sampling.CacheImages {
		loader = pixels.NewCache(loader, m)
	}
	agg := aggregate.New(idx, loader, opts.imageDir,
		aggregate.WithWorkers(cfg.Sampling.Workers),
		aggregate.WithProgressInterval(cfg.Sampling.ProgressInterval),
		aggregate.WithMetrics(m),
	)

	var res aggregate.Result
	if err := tracing.Phase(ctx, "sample", func(ctx context.Context) error {
		res, err = agg.Run(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := report.WriteMean(stdout, res.Mean); err != nil {
		return fmt.Errorf("writing mean: %w", err)
	}

	summary := report.NewSummary(runID, opts.cocoPath, opts.imageDir, idx.Counts(), res, time.Now())
	return tracing.Phase(ctx, "publish", func(ctx context.Context) error {
		if err := report.Publish(ctx, sinks, summary); err != nil {
			return apperrors.New(apperrors.ErrSinkUnavailable, err.Error())
		}
		return nil
	})
}
