package audit

import (
	"context"
	"sync"
	"time"

	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/joripage/exposure-gate/pkg/idgen"
	"github.com/joripage/exposure-gate/pkg/logging"
	"github.com/joripage/exposure-gate/pkg/metrics"
	"go.uber.org/zap"
)

type DispatcherConfig struct {
	QueueSize      int
	PublishTimeout time.Duration
}

// Dispatcher implements admission.Recorder. Record never blocks: events go to a
// bounded queue drained by one goroutine, and are dropped when the queue is full.
type Dispatcher struct {
	cfg     DispatcherConfig
	sink    Sink
	ids     idgen.Generator
	logger  *logging.Logger
	queue   chan *AdmissionEvent
	stopCh  chan struct{}
	doneCh  chan struct{}
	now     func() time.Time

	// mu guards closed. Record enqueues under the read lock, so once Stop has
	// set closed every accepted event is already in the queue for the drain.
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(cfg DispatcherConfig, sink Sink, ids idgen.Generator, logger *logging.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 65_536
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		ids:    ids,
		logger: logger,
		queue:  make(chan *AdmissionEvent, cfg.QueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		now:    time.Now,
	}
}

func (d *Dispatcher) Start() {
	go d.run()
}

// Stop flushes queued events and closes the sink.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.stopCh)
	}
	d.mu.Unlock()

	<-d.doneCh
	return d.sink.Close()
}

func (d *Dispatcher) Record(_ context.Context, req model.OrderRequest, res model.AdmissionResult, elapsed time.Duration) {
	ev := NewAdmissionEvent(d.ids.Next(), req, res, elapsed, d.now())

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- ev:
	default:
		metrics.AuditDropped.Inc()
		d.logger.Warn(context.Background(), "audit queue full, dropping event",
			zap.String("event_id", ev.EventID),
			zap.String("symbol", ev.Symbol),
		)
	}
}

func (d *Dispatcher) run() {
	defer close(d.doneCh)
	for {
		select {
		case ev := <-d.queue:
			d.publish(ev)
		case <-d.stopCh:
			for {
				select {
				case ev := <-d.queue:
					d.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) publish(ev *AdmissionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.PublishTimeout)
	defer cancel()

	if err := d.sink.Publish(ctx, ev); err != nil {
		metrics.AuditPublishErrors.WithLabelValues(d.sink.Name()).Inc()
		d.logger.Error(ctx, "publish audit event failed",
			zap.String("sink", d.sink.Name()),
			zap.String("event_id", ev.EventID),
			zap.Error(err),
		)
	}
}
