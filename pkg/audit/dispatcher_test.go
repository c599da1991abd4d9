package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joripage/exposure-gate/pkg/admission/model"
	"github.com/joripage/exposure-gate/pkg/idgen"
	"github.com/shopspring/decimal"
)

type memorySink struct {
	mu     sync.Mutex
	events []*AdmissionEvent
	block  chan struct{}
	fail   bool
	closed bool
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Publish(ctx context.Context, ev *AdmissionEvent) error {
	if s.block != nil {
		<-s.block
	}
	if s.fail {
		return errors.New("unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func sampleOrder() (model.OrderRequest, model.AdmissionResult) {
	req := model.OrderRequest{
		ClOrdID:  "C1",
		Symbol:   "PETR4",
		Side:     model.OrderSideBuy,
		Quantity: decimal.NewFromInt(1000),
		Price:    decimal.NewFromInt(100),
	}
	res := model.AdmissionResult{
		Accepted:          true,
		ResultingExposure: decimal.NewFromInt(100_000),
		Notional:          decimal.NewFromInt(100_000),
	}
	return req, res
}

func TestDispatcherDeliversAndFlushesOnStop(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(DispatcherConfig{QueueSize: 16}, sink, idgen.NewSequence("EV"), nil)
	d.Start()

	req, res := sampleOrder()
	for i := 0; i < 10; i++ {
		d.Record(context.Background(), req, res, time.Microsecond)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if sink.len() != 10 {
		t.Fatalf("expected 10 events, got %d", sink.len())
	}
	if !sink.closed {
		t.Errorf("sink not closed")
	}
	first := sink.events[0]
	if first.EventID != "EV-000001" || first.Symbol != "PETR4" || !first.Accepted {
		t.Errorf("unexpected event %+v", first)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	d := NewDispatcher(DispatcherConfig{QueueSize: 2}, sink, idgen.NewSequence("EV"), nil)
	d.Start()

	req, res := sampleOrder()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			d.Record(context.Background(), req, res, time.Microsecond)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(sink.block)
	_ = d.Stop()
	if n := sink.len(); n == 0 || n > 3 {
		t.Errorf("expected between 1 and 3 delivered events, got %d", n)
	}
}

func TestDispatcherRecordRacingStopLosesNothing(t *testing.T) {
	sink := &memorySink{}
	d := NewDispatcher(DispatcherConfig{QueueSize: 10_000}, sink, idgen.NewSequence("EV"), nil)
	d.Start()

	req, res := sampleOrder()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				d.Record(context.Background(), req, res, time.Microsecond)
			}
		}()
	}

	time.Sleep(time.Millisecond)
	if err := d.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	wg.Wait()

	if n := len(d.queue); n != 0 {
		t.Errorf("%d events left in the queue after stop", n)
	}
	delivered := sink.len()
	d.Record(context.Background(), req, res, time.Microsecond)
	if sink.len() != delivered || len(d.queue) != 0 {
		t.Errorf("record after stop must be ignored")
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestDispatcherSurvivesSinkErrors(t *testing.T) {
	sink := &memorySink{fail: true}
	d := NewDispatcher(DispatcherConfig{QueueSize: 4}, sink, idgen.UUID{}, nil)
	d.Start()

	req, res := sampleOrder()
	d.Record(context.Background(), req, res, time.Microsecond)
	if err := d.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sink.len() != 0 {
		t.Errorf("failed publishes must not be stored")
	}
}

func TestNewAdmissionEventCopiesDecision(t *testing.T) {
	req, _ := sampleOrder()
	res := model.AdmissionResult{
		ResultingExposure: decimal.NewFromInt(100_100_000),
		Notional:          decimal.NewFromInt(100_000),
		Reason:            "exposure limit exceeded",
		RejectKind:        model.RejectKindLimit,
	}
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	ev := NewAdmissionEvent("E1", req, res, 1500*time.Nanosecond, ts)
	if ev.Accepted || ev.RejectKind != "limit" || ev.Reason != res.Reason {
		t.Errorf("unexpected decision fields %+v", ev)
	}
	if ev.ElapsedMicros != 1 || !ev.Timestamp.Equal(ts) || ev.TableName() != "admission_events" {
		t.Errorf("unexpected metadata %+v", ev)
	}
}
