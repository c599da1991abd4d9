package audit

import (
	"context"
	"errors"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// KafkaSink writes events keyed by symbol so one symbol's events stay ordered
// within a partition.
type KafkaSink struct {
	w     *kafka.Writer
	topic string
}

func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka sink needs brokers and topic")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}

	wr := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchBytes:             1 << 20,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	return &KafkaSink{w: wr, topic: cfg.Topic}, nil
}

func (s *KafkaSink) Name() string { return SinkKafka }

func (s *KafkaSink) Publish(ctx context.Context, ev *AdmissionEvent) error {
	b, err := encode(ev)
	if err != nil {
		return err
	}
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Symbol),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.EventID)},
		},
		Time: ev.Timestamp,
	})
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}
