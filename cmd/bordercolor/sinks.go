package main

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/internal/report"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/bbox-border-color/pkg/resilience"
)

// boundedSink caps how long a single Save may block.
type boundedSink struct {
	report.Sink
	timeout time.Duration
}

func (b boundedSink) Save(ctx context.Context, s report.Summary) error {
	return resilience.WithTimeout(ctx, b.timeout, b.Name(), func(ctx context.Context) error {
		return b.Sink.Save(ctx, s)
	})
}

// buildSinks connects every enabled result sink and registers its health
// check. The returned close func releases all connections that were opened.
func buildSinks(cfg *config.Config, checker *health.Checker) ([]report.Sink, func(), error) {
	var (
		sinks   []report.Sink
		closers []func() error
		log     = logger.WithComponent("sinks")
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("closing sink", "error", err)
			}
		}
	}

	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			closeAll()
			return nil, nil, apperrors.Newf(apperrors.ErrSinkUnavailable, "redis: %v", err)
		}
		closers = append(closers, client.Close)
		checker.Register("redis", health.PingCheck(client.Ping))
		sinks = append(sinks, report.NewRedisSink(client, cfg.Redis.ResultTTL))
		log.Info("connected to redis", "addr", cfg.Redis.Addr)
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			closeAll()
			return nil, nil, apperrors.Newf(apperrors.ErrSinkUnavailable, "postgres: %v", err)
		}
		closers = append(closers, db.Close)
		checker.Register("postgres", health.PingCheck(db.Ping))
		sinks = append(sinks, report.NewPostgresSink(db))
		log.Info("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RunCompleted)
		closers = append(closers, producer.Close)
		kcfg := cfg.Kafka
		checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
			return kafka.Ping(ctx, kcfg)
		}))
		sinks = append(sinks, report.NewKafkaSink(producer))
		log.Info("kafka producer ready", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topics.RunCompleted)
	}

	for i, sink := range sinks {
		sinks[i] = boundedSink{Sink: sink, timeout: cfg.Sinks.Timeout}
	}
	return sinks, closeAll, nil
}
