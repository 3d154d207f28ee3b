package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/report"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/metrics"
)

func init() {
	newMetrics = func() *metrics.Metrics {
		return metrics.NewWithRegisterer(prometheus.NewRegistry())
	}
}

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const dataset = `{
  "images": [{"id": 1, "file_name": "red.png"}],
  "annotations": [{"id": 10, "image_id": 1, "category_id": 3, "bbox": [1, 1, 4, 4]}],
  "categories": [{"id": 3, "name": "box"}]
}`

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "red.png"), 6, 6, color.NRGBA{R: 255, A: 255})
	cocoPath := filepath.Join(dir, "instances.json")
	writeFile(t, cocoPath, dataset)

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{dir, cocoPath}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr:\n%s", err, stderr.String())
	}

	want := strings.Join([]string{
		"Images: 1",
		"Annotations: 1",
		"Categories: 1",
		"Category: 3 - box",
		"Mean: rgb(255, 0, 0)",
		"Mean: #ff0000",
		"",
	}, "\n")
	if got := stdout.String(); got != want {
		t.Errorf("stdout:\n%s\nwant:\n%s", got, want)
	}
	if strings.Contains(stderr.String(), "Mean:") {
		t.Error("results must not be written to stderr")
	}
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "red.png"), 6, 6, color.NRGBA{R: 255, A: 255})

	missing := filepath.Join(dir, "missing.json")
	writeFile(t, missing, `{
  "images": [{"id": 1, "file_name": "red.png"}],
  "annotations": [{"id": 10, "image_id": 2, "category_id": 3, "bbox": [1, 1, 4, 4]}],
  "categories": []
}`)
	geometry := filepath.Join(dir, "geometry.json")
	writeFile(t, geometry, `{
  "images": [{"id": 1, "file_name": "red.png"}],
  "annotations": [{"id": 10, "image_id": 1, "category_id": 3, "bbox": [0, 1, 4, 4]}],
  "categories": []
}`)
	malformed := filepath.Join(dir, "malformed.json")
	writeFile(t, malformed, `{"images": [`)
	empty := filepath.Join(dir, "empty.json")
	writeFile(t, empty, `{"images": [], "annotations": [], "categories": []}`)
	badConfig := filepath.Join(dir, "config.yaml")
	writeFile(t, badConfig, "sampling:\n  workers: 0\n")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no arguments", nil, apperrors.ExitUsage},
		{"one argument", []string{dir}, apperrors.ExitUsage},
		{"unknown flag", []string{"-nope", dir, missing}, apperrors.ExitUsage},
		{"invalid config", []string{"-config", badConfig, dir, missing}, apperrors.ExitUsage},
		{"dataset not found", []string{dir, filepath.Join(dir, "absent.json")}, apperrors.ExitDataset},
		{"malformed dataset", []string{dir, malformed}, apperrors.ExitDataset},
		{"missing image", []string{dir, missing}, apperrors.ExitMissing},
		{"invalid geometry", []string{dir, geometry}, apperrors.ExitGeometry},
		{"no annotations", []string{dir, empty}, apperrors.ExitNoSamples},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := apperrors.ExitCode(err); got != tt.want {
				t.Errorf("exit code = %d, want %d (err: %v)", got, tt.want, err)
			}
			if strings.Contains(stdout.String(), "Mean:") {
				t.Errorf("no mean may be printed on failure, stdout:\n%s", stdout.String())
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	var stderr bytes.Buffer
	opts, err := parseArgs([]string{"-config", "c.yaml", "imgs", "ann.json"}, &stderr)
	if err != nil {
		t.Fatal(err)
	}
	if opts.configPath != "c.yaml" || opts.imageDir != "imgs" || opts.cocoPath != "ann.json" {
		t.Errorf("opts = %+v", opts)
	}

	if _, err := parseArgs([]string{"imgs"}, &stderr); err == nil {
		t.Fatal("expected usage error")
	}
	if !strings.Contains(stderr.String(), "Usage: bordercolor") {
		t.Errorf("usage not printed, stderr:\n%s", stderr.String())
	}
}

type stalledSink struct{}

func (stalledSink) Name() string { return "stalled" }

func (stalledSink) Save(ctx context.Context, s report.Summary) error {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)
	return nil
}

func TestBoundedSinkTimesOut(t *testing.T) {
	sink := boundedSink{Sink: stalledSink{}, timeout: 10 * time.Millisecond}
	err := sink.Save(context.Background(), report.Summary{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if !strings.Contains(err.Error(), "stalled") {
		t.Errorf("error should name the sink: %v", err)
	}
}

func TestBuildSinksDisabled(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Redis.Enabled, cfg.Postgres.Enabled, cfg.Kafka.Enabled = false, false, false
	sinks, closeAll, err := buildSinks(cfg, health.NewChecker())
	if err != nil {
		t.Fatal(err)
	}
	defer closeAll()
	if len(sinks) != 0 {
		t.Errorf("sinks = %d, want 0", len(sinks))
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write(p []byte) (int, error) { return 0, w.err }

func TestRunStopsWhenReportCannotBeWritten(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "red.png"), 6, 6, color.NRGBA{R: 255, A: 255})
	cocoPath := filepath.Join(dir, "instances.json")
	writeFile(t, cocoPath, dataset)

	closed := errors.New("broken pipe")
	var stderr bytes.Buffer
	err := run(context.Background(), []string{dir, cocoPath}, failingWriter{err: closed}, &stderr)
	if !errors.Is(err, closed) {
		t.Fatalf("err = %v, want the stdout write error", err)
	}
	if got := apperrors.ExitCode(err); got != apperrors.ExitInternal {
		t.Errorf("exit code = %d, want %d", got, apperrors.ExitInternal)
	}
	if !strings.Contains(stderr.String(), "span=index") || !strings.Contains(stderr.String(), "broken pipe") {
		t.Errorf("index phase should record the failure, stderr:\n%s", stderr.String())
	}
}
