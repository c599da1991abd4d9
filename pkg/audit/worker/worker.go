package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/joripage/exposure-gate/pkg/audit"
	"github.com/joripage/exposure-gate/pkg/audit/repo"
	"github.com/joripage/exposure-gate/pkg/logging"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	fetchBatch   = 50
	fetchMaxWait = time.Second

	defaultReportLimit = 20
	maxReportLimit     = 1000
)

// Worker drains the audit stream into the admission_events table.
type Worker struct {
	admissionEvent repo.IAdmissionEvent
	logger         *logging.Logger
}

func NewWorker(r repo.IRepo, logger *logging.Logger) *Worker {
	return &Worker{
		admissionEvent: r.AdmissionEvent(),
		logger:         logger,
	}
}

// StartConsumer pulls from a durable JetStream consumer until ctx is done.
func (w *Worker) StartConsumer(ctx context.Context, js nats.JetStreamContext, subject, durable string) error {
	sub, err := js.PullSubscribe(subject, durable)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe() // nolint

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchMaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.logger.Warn(ctx, "fetch audit events failed", zap.Error(err))
			continue
		}

		payloads := make([][]byte, len(msgs))
		for i, msg := range msgs {
			payloads[i] = msg.Data
		}

		if err := w.handleBatch(ctx, payloads); err != nil {
			w.logger.Error(ctx, "store audit events failed", zap.Error(err), zap.Int("count", len(msgs)))
			for _, msg := range msgs {
				_ = msg.Nak()
			}
			continue
		}
		for _, msg := range msgs {
			_ = msg.Ack()
		}
	}
}

// handleBatch decodes payloads and stores them in one insert. Undecodable
// payloads are logged and skipped since redelivery cannot fix them.
func (w *Worker) handleBatch(ctx context.Context, payloads [][]byte) error {
	events := make([]*audit.AdmissionEvent, 0, len(payloads))
	for _, p := range payloads {
		var ev audit.AdmissionEvent
		if err := json.Unmarshal(p, &ev); err != nil {
			w.logger.Warn(ctx, "unmarshal audit event failed", zap.Error(err))
			continue
		}
		events = append(events, &ev)
	}

	_, err := w.admissionEvent.BulkCreate(ctx, events)
	return err
}

// RecentEvents returns up to limit stored decisions for symbol, newest first.
func (w *Worker) RecentEvents(ctx context.Context, symbol string, limit int) ([]*audit.AdmissionEvent, error) {
	if symbol == "" {
		return nil, errors.New("symbol is required")
	}
	if limit <= 0 {
		limit = defaultReportLimit
	}
	if limit > maxReportLimit {
		limit = maxReportLimit
	}
	return w.admissionEvent.ListBySymbol(ctx, symbol, limit)
}
