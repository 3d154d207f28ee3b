package report

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/kafka"
)

// Sink receives the final Summary of a run.
type Sink interface {
	Name() string
	Save(ctx context.Context, s Summary) error
}

// Publish saves s to every sink in order and stops at the first failure.
func Publish(ctx context.Context, sinks []Sink, s Summary) error {
	logger := slog.Default().With("component", "report", "run_id", s.RunID)
	for _, sink := range sinks {
		start := time.Now()
		if err := sink.Save(ctx, s); err != nil {
			return fmt.Errorf("saving to %s: %w", sink.Name(), err)
		}
		logger.Info("result saved",
			"sink", sink.Name(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return nil
}

const resultKeyPrefix = "bordercolor:result:"

// ResultKey is the Redis key holding the latest result for a dataset path.
func ResultKey(dataset string) string {
	sum := sha256.Sum256([]byte(dataset))
	return fmt.Sprintf("%s%x", resultKeyPrefix, sum[:16])
}

type keyValueStore interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RedisSink stores the latest Summary per dataset as JSON.
type RedisSink struct {
	store keyValueStore
	ttl   time.Duration
}

func NewRedisSink(store keyValueStore, ttl time.Duration) *RedisSink {
	return &RedisSink{store: store, ttl: ttl}
}

func (r *RedisSink) Name() string { return "redis" }

func (r *RedisSink) Save(ctx context.Context, s Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	return r.store.Set(ctx, ResultKey(s.Dataset), data, r.ttl)
}

type txRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// PostgresSink appends each Summary to the border_color_runs table:
//
//	CREATE TABLE border_color_runs (
//	    id          BIGSERIAL PRIMARY KEY,
//	    run_id      TEXT NOT NULL,
//	    dataset     TEXT NOT NULL,
//	    mean_r      SMALLINT NOT NULL,
//	    mean_g      SMALLINT NOT NULL,
//	    mean_b      SMALLINT NOT NULL,
//	    data        JSONB NOT NULL,
//	    run_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PostgresSink struct {
	db txRunner
}

func NewPostgresSink(db txRunner) *PostgresSink {
	return &PostgresSink{db: db}
}

func (p *PostgresSink) Name() string { return "postgres" }

const createRunsTable = `CREATE TABLE IF NOT EXISTS border_color_runs (
    id          BIGSERIAL PRIMARY KEY,
    run_id      TEXT NOT NULL,
    dataset     TEXT NOT NULL,
    mean_r      SMALLINT NOT NULL,
    mean_g      SMALLINT NOT NULL,
    mean_b      SMALLINT NOT NULL,
    data        JSONB NOT NULL,
    run_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func (p *PostgresSink) Save(ctx context.Context, s Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	return p.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, createRunsTable); err != nil {
			return fmt.Errorf("creating border_color_runs: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO border_color_runs (run_id, dataset, mean_r, mean_g, mean_b, data, run_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.RunID, s.Dataset, int(s.Mean.R), int(s.Mean.G), int(s.Mean.B), data, s.RunAt,
		)
		if err != nil {
			return fmt.Errorf("inserting run %s: %w", s.RunID, err)
		}
		return nil
	})
}

type eventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// RunCompleted is the event published to Kafka when a run finishes.
type RunCompleted struct {
	Type    string  `json:"type"`
	Summary Summary `json:"summary"`
}

// KafkaSink publishes a RunCompleted event keyed by dataset path.
type KafkaSink struct {
	producer eventPublisher
}

func NewKafkaSink(producer eventPublisher) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Save(ctx context.Context, s Summary) error {
	return k.producer.Publish(ctx, kafka.Event{
		Key:   s.Dataset,
		Value: RunCompleted{Type: "bordercolor.run_completed", Summary: s},
	})
}
