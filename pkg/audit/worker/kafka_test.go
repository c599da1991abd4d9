package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/joripage/exposure-gate/pkg/logging"
	kafka "github.com/segmentio/kafka-go"
)

type fakeReader struct {
	ch        chan kafka.Message
	mu        sync.Mutex
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.ch:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func TestConsumeKafkaStoresThenCommits(t *testing.T) {
	events := &fakeEventRepo{failures: 2}
	w := NewWorker(fakeRepo{events: events}, logging.NewNop())
	rd := &fakeReader{ch: make(chan kafka.Message, 8)}

	for _, id := range []string{"K1", "K2", "K3"} {
		rd.ch <- kafka.Message{Key: []byte("PETR4"), Value: payload(t, id)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.consumeKafka(ctx, rd, KafkaSourceConfig{
			BatchSize:    3,
			BatchTimeout: 50 * time.Millisecond,
			BackoffMin:   time.Millisecond,
			BackoffMax:   5 * time.Millisecond,
		})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for rd.committedCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	if got := rd.committedCount(); got != 3 {
		t.Fatalf("expected 3 committed offsets, got %d", got)
	}
	if got := events.count(); got != 3 {
		t.Errorf("expected 3 stored events, got %d", got)
	}
}

func TestFetchKafkaBatchReturnsPartialOnTimeout(t *testing.T) {
	rd := &fakeReader{ch: make(chan kafka.Message, 2)}
	rd.ch <- kafka.Message{Value: []byte("a")}

	msgs, err := fetchKafkaBatch(context.Background(), rd, 10, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("expected 1 message, got %d", len(msgs))
	}
}
