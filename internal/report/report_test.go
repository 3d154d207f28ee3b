package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/aggregate"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/border"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/coco"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/redis"
)

func testSummary() Summary {
	res := aggregate.Result{Mean: border.Color{R: 150, G: 7, B: 255}, Annotations: 2, Samples: 24}
	counts := coco.Counts{Images: 2, Annotations: 2, Categories: 1}
	return NewSummary("run-1", "/data/instances.json", "/data/images", counts, res,
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestWriteDatasetAndMean(t *testing.T) {
	idx := coco.BuildIndex(&coco.Dataset{
		Images:      []coco.Image{{ID: "i", FileName: "i.png"}},
		Annotations: []coco.Annotation{{ID: "a", ImageID: "i", BBox: []float64{1, 1, 2, 2}}},
		Categories:  []coco.Category{{ID: 2, Name: "dog"}, {ID: 1, Name: "cat"}},
	})

	var buf bytes.Buffer
	if err := WriteDataset(&buf, idx); err != nil {
		t.Fatal(err)
	}
	if err := WriteMean(&buf, border.Color{R: 150, G: 0, B: 10}); err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"Images: 1",
		"Annotations: 1",
		"Categories: 2",
		"Category: 1 - cat",
		"Category: 2 - dog",
		"Mean: rgb(150, 0, 10)",
		"Mean: #96000a",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}
}

func TestNewSummary(t *testing.T) {
	s := testSummary()
	if s.Hex != "#9607ff" {
		t.Errorf("hex = %q", s.Hex)
	}
	if s.Images != 2 || s.Annotations != 2 || s.Categories != 1 || s.Samples != 24 {
		t.Errorf("summary = %+v", s)
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if len(a) != 16 || a == b {
		t.Errorf("run ids %q, %q", a, b)
	}
}

type fakeSink struct {
	name  string
	err   error
	saved []Summary
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Save(ctx context.Context, s Summary) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, s)
	return nil
}

func TestPublishStopsAtFirstFailure(t *testing.T) {
	first := &fakeSink{name: "first"}
	broken := &fakeSink{name: "broken", err: errors.New("connection refused")}
	last := &fakeSink{name: "last"}

	err := Publish(context.Background(), []Sink{first, broken, last}, testSummary())
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("err = %v, want failure naming the broken sink", err)
	}
	if len(first.saved) != 1 {
		t.Error("first sink should have been saved")
	}
	if len(last.saved) != 0 {
		t.Error("sinks after a failure should not run")
	}
}

type fakeStore struct {
	key   string
	value []byte
	ttl   time.Duration
}

func (f *fakeStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.key = key
	f.value = value.([]byte)
	f.ttl = ttl
	return nil
}

func TestRedisSink(t *testing.T) {
	store := &fakeStore{}
	s := testSummary()
	if err := NewRedisSink(store, time.Hour).Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if store.key != ResultKey(s.Dataset) || !strings.HasPrefix(store.key, "bordercolor:result:") {
		t.Errorf("key = %q", store.key)
	}
	if store.ttl != time.Hour {
		t.Errorf("ttl = %v", store.ttl)
	}
	var decoded Summary
	if err := json.Unmarshal(store.value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Mean != s.Mean || decoded.RunID != "run-1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestResultKeyStable(t *testing.T) {
	if ResultKey("a.json") != ResultKey("a.json") {
		t.Error("key must be deterministic")
	}
	if ResultKey("a.json") == ResultKey("b.json") {
		t.Error("different datasets must not share a key")
	}
}

type fakePublisher struct {
	events []kafka.Event
}

func (f *fakePublisher) Publish(ctx context.Context, event kafka.Event) error {
	f.events = append(f.events, event)
	return nil
}

func TestKafkaSink(t *testing.T) {
	pub := &fakePublisher{}
	s := testSummary()
	if err := NewKafkaSink(pub).Save(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Key != s.Dataset {
		t.Errorf("key = %q", ev.Key)
	}
	rc, ok := ev.Value.(RunCompleted)
	if !ok || rc.Summary.Mean != s.Mean || rc.Type != "bordercolor.run_completed" {
		t.Errorf("value = %#v", ev.Value)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// TestPostgresSinkIntegration skips when PostgreSQL is unavailable.
func TestPostgresSinkIntegration(t *testing.T) {
	db, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "bordercolor_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "bordercolor"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := testSummary()
	s.RunID = NewRunID()
	if err := NewPostgresSink(db).Save(context.Background(), s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	var r, g, b int
	err = db.DB.QueryRow(`SELECT mean_r, mean_g, mean_b FROM border_color_runs WHERE run_id = $1`, s.RunID).
		Scan(&r, &g, &b)
	if err != nil {
		t.Fatalf("reading back run: %v", err)
	}
	if r != 150 || g != 7 || b != 255 {
		t.Errorf("stored mean = %d,%d,%d", r, g, b)
	}
}

// TestRedisSinkIntegration skips when Redis is unavailable.
func TestRedisSinkIntegration(t *testing.T) {
	client, err := pkgredis.NewClient(config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		PoolSize: 2,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	s := testSummary()
	s.Dataset = "integration-" + NewRunID()
	ctx := context.Background()
	if err := NewRedisSink(client, time.Minute).Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Cleanup(func() { client.Del(ctx, ResultKey(s.Dataset)) })

	raw, err := client.Get(ctx, ResultKey(s.Dataset))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	var decoded Summary
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Hex != s.Hex {
		t.Errorf("stored hex = %q, want %q", decoded.Hex, s.Hex)
	}

	if _, err := client.Get(ctx, ResultKey("never-written-"+NewRunID())); !pkgredis.IsNilError(err) {
		t.Errorf("missing key err = %v, want redis nil", err)
	}
}
