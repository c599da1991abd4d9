package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaSourceConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string
	BatchSize    int
	BatchTimeout time.Duration
	BackoffMin   time.Duration
	BackoffMax   time.Duration
}

func (c KafkaSourceConfig) withDefaults() KafkaSourceConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 200 * time.Millisecond
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 100 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 10 * time.Second
	}
	return c
}

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StartKafkaConsumer reads the audit topic in a consumer group until ctx is
// done. A batch is committed only after it is stored.
func (w *Worker) StartKafkaConsumer(ctx context.Context, cfg KafkaSourceConfig) error {
	cfg = cfg.withDefaults()
	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})
	defer rd.Close() // nolint

	return w.consumeKafka(ctx, rd, cfg)
}

func (w *Worker) consumeKafka(ctx context.Context, rd kafkaReader, cfg KafkaSourceConfig) error {
	for {
		msgs, err := fetchKafkaBatch(ctx, rd, cfg.BatchSize, cfg.BatchTimeout)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			w.logger.Warn(ctx, "fetch audit events failed", zap.Error(err))
			time.Sleep(200 * time.Millisecond)
			continue
		}
		if len(msgs) == 0 {
			continue
		}

		payloads := make([][]byte, len(msgs))
		for i, m := range msgs {
			payloads[i] = m.Value
		}

		// retry until stored, offsets stay uncommitted meanwhile
		boff := backoff.NewExponentialBackOff()
		boff.InitialInterval = cfg.BackoffMin
		boff.MaxInterval = cfg.BackoffMax
		boff.MaxElapsedTime = 0
		err = backoff.Retry(func() error {
			err := w.handleBatch(ctx, payloads)
			if err != nil {
				w.logger.Error(ctx, "store audit events failed", zap.Error(err), zap.Int("count", len(msgs)))
			}
			return err
		}, backoff.WithContext(boff, ctx))
		if err != nil {
			return err
		}

		if err := rd.CommitMessages(ctx, msgs...); err != nil {
			w.logger.Warn(ctx, "commit audit offsets failed", zap.Error(err))
		}
	}
}

// fetchKafkaBatch collects up to size messages or whatever arrived within timeout.
func fetchKafkaBatch(ctx context.Context, rd kafkaReader, size int, timeout time.Duration) ([]kafka.Message, error) {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out []kafka.Message
	for len(out) < size {
		m, err := rd.FetchMessage(fctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return out, nil
			}
			return out, err
		}
		out = append(out, m)
	}
	return out, nil
}
