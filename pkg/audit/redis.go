package audit

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type RedisStreamConfig struct {
	Stream string `yaml:"stream"`
	MaxLen int64  `yaml:"max_len"`
}

// RedisSink appends events to a capped Redis stream.
type RedisSink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewRedisSink(rdb *redis.Client, cfg RedisStreamConfig) *RedisSink {
	if cfg.Stream == "" {
		cfg.Stream = "exposure-gate:admissions"
	}
	if cfg.MaxLen == 0 {
		cfg.MaxLen = 100_000
	}
	return &RedisSink{rdb: rdb, stream: cfg.Stream, maxLen: cfg.MaxLen}
}

func (s *RedisSink) Name() string { return SinkRedis }

func (s *RedisSink) Publish(ctx context.Context, ev *AdmissionEvent) error {
	b, err := encode(ev)
	if err != nil {
		return err
	}
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_id": ev.EventID,
			"symbol":   ev.Symbol,
			"payload":  b,
		},
	}).Err()
}

func (s *RedisSink) Close() error {
	return s.rdb.Close()
}
