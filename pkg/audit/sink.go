package audit

import (
	"context"
	"encoding/json"
	"fmt"
)

// Sink delivers events to an external system.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev *AdmissionEvent) error
	Close() error
}

const (
	SinkNone  = "none"
	SinkKafka = "kafka"
	SinkNats  = "nats"
	SinkRedis = "redis"
)

type nopSink struct{}

func NewNopSink() Sink { return nopSink{} }

func (nopSink) Name() string                                   { return SinkNone }
func (nopSink) Publish(context.Context, *AdmissionEvent) error { return nil }
func (nopSink) Close() error                                   { return nil }

func encode(ev *AdmissionEvent) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal admission event %s: %w", ev.EventID, err)
	}
	return b, nil
}
