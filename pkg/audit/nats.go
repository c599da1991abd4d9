package audit

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

type NatsConfig struct {
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
}

// NatsSink publishes to a JetStream subject, creating the stream when missing.
type NatsSink struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
}

func NewNatsSink(cfg NatsConfig) (*NatsSink, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	js, err := EnsureStream(nc, cfg)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return &NatsSink{nc: nc, js: js, subject: cfg.Subject}, nil
}

// EnsureStream returns a JetStream context with the audit stream in place.
func EnsureStream(nc *nats.Conn, cfg NatsConfig) (nats.JetStreamContext, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(cfg.Stream); err == nil {
		return js, nil
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject},
	})
	if err != nil {
		return nil, fmt.Errorf("add stream %s: %w", cfg.Stream, err)
	}
	return js, nil
}

func (s *NatsSink) Name() string { return SinkNats }

func (s *NatsSink) Publish(ctx context.Context, ev *AdmissionEvent) error {
	b, err := encode(ev)
	if err != nil {
		return err
	}
	_, err = s.js.Publish(s.subject, b, nats.Context(ctx), nats.MsgId(ev.EventID))
	return err
}

func (s *NatsSink) Close() error {
	return s.nc.Drain()
}
