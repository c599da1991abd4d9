package exposure

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testLimit = decimal.NewFromInt(100_000_000)

func TestEvaluateAndApplyAccept(t *testing.T) {
	l := NewLedger()

	ok, exp := l.EvaluateAndApply("PETR4", decimal.NewFromInt(100_000), testLimit)
	if !ok {
		t.Fatalf("expected accept")
	}
	if !exp.Equal(decimal.NewFromInt(100_000)) {
		t.Errorf("expected exposure 100000, got %s", exp)
	}

	ok, exp = l.EvaluateAndApply("PETR4", decimal.NewFromInt(-100_000), testLimit)
	if !ok || !exp.IsZero() {
		t.Errorf("expected accept with zero exposure, got %v %s", ok, exp)
	}
}

func TestEvaluateAndApplyRejectLeavesExposure(t *testing.T) {
	l := NewLedger()
	l.EvaluateAndApply("VALE3", decimal.NewFromInt(99_900_000), testLimit)

	ok, exp := l.EvaluateAndApply("VALE3", decimal.NewFromInt(200_000), testLimit)
	if ok {
		t.Fatalf("expected reject")
	}
	if !exp.Equal(decimal.NewFromInt(100_100_000)) {
		t.Errorf("expected candidate 100100000, got %s", exp)
	}
	if got := l.Exposure("VALE3"); !got.Equal(decimal.NewFromInt(99_900_000)) {
		t.Errorf("stored exposure changed on reject: %s", got)
	}
}

func TestEvaluateAndApplyLimitIsInclusive(t *testing.T) {
	l := NewLedger()

	ok, _ := l.EvaluateAndApply("X", testLimit, testLimit)
	if !ok {
		t.Fatalf("exposure equal to the limit must be accepted")
	}

	ok, _ = l.EvaluateAndApply("Y", testLimit.Neg(), testLimit)
	if !ok {
		t.Fatalf("short exposure equal to the limit must be accepted")
	}

	ok, _ = l.EvaluateAndApply("Y", decimal.NewFromFloat(-0.01), testLimit)
	if ok {
		t.Fatalf("short exposure beyond the limit must be rejected")
	}
}

func TestExposureUnknownSymbolIsZero(t *testing.T) {
	l := NewLedger()
	if !l.Exposure("NONE").IsZero() {
		t.Errorf("expected zero exposure")
	}
	if len(l.Snapshot()) != 0 {
		t.Errorf("read must not create entries")
	}
}

func TestSnapshotSorted(t *testing.T) {
	l := NewLedger()
	l.EvaluateAndApply("VIIA4", decimal.NewFromInt(3), testLimit)
	l.EvaluateAndApply("PETR4", decimal.NewFromInt(1), testLimit)
	l.EvaluateAndApply("VALE3", decimal.NewFromInt(-2), testLimit)

	snap := l.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap))
	}
	if snap[0].Symbol != "PETR4" || snap[1].Symbol != "VALE3" || snap[2].Symbol != "VIIA4" {
		t.Errorf("unexpected order: %+v", snap)
	}
	if !snap[1].NetExposure.Equal(decimal.NewFromInt(-2)) {
		t.Errorf("unexpected VALE3 exposure %s", snap[1].NetExposure)
	}
}

func TestConcurrentNoOvershoot(t *testing.T) {
	l := NewLedger()
	delta := decimal.NewFromInt(2_000_000)

	var accepted, rejected int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := l.EvaluateAndApply("PETR4", delta, testLimit); ok {
				atomic.AddInt64(&accepted, 1)
			} else {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if accepted != 50 || rejected != 50 {
		t.Fatalf("expected 50/50, got accepted=%d rejected=%d", accepted, rejected)
	}
	if got := l.Exposure("PETR4"); !got.Equal(testLimit) {
		t.Errorf("expected final exposure %s, got %s", testLimit, got)
	}
}

func TestConcurrentConservation(t *testing.T) {
	l := NewLedger()
	limit := decimal.NewFromInt(1_000)

	var mu sync.Mutex
	sum := decimal.Zero
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				delta := decimal.NewFromInt(int64((i*31+j*17)%97 - 40))
				ok, exp := l.EvaluateAndApply("MIX", delta, limit)
				if exp.Abs().GreaterThan(limit) && ok {
					t.Errorf("accepted exposure %s beyond limit", exp)
				}
				if ok {
					mu.Lock()
					sum = sum.Add(delta)
					mu.Unlock()
				}
			}
		}(i)
	}
	wg.Wait()

	if got := l.Exposure("MIX"); !got.Equal(sum) {
		t.Errorf("expected exposure %s to equal sum of accepted deltas %s", got, sum)
	}
	if l.Exposure("MIX").Abs().GreaterThan(limit) {
		t.Errorf("final exposure beyond limit")
	}
}

func TestDistinctSymbolsDoNotBlock(t *testing.T) {
	l := NewLedger()
	l.EvaluateAndApply("HELD", decimal.NewFromInt(1), testLimit)

	val, _ := l.entries.Load("HELD")
	held := val.(*symbolExposure)
	held.mu.Lock()
	defer held.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			l.EvaluateAndApply(fmt.Sprintf("FREE%d", i), decimal.NewFromInt(1), testLimit)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("updates on other symbols blocked behind a held symbol")
	}
}

func BenchmarkEvaluateAndApplyParallel(b *testing.B) {
	l := NewLedger()
	symbols := []string{"PETR4", "VALE3", "VIIA4", "ITUB4"}
	delta := decimal.NewFromInt(1)
	var n int64

	b.RunParallel(func(pb *testing.PB) {
		i := atomic.AddInt64(&n, 1)
		for pb.Next() {
			l.EvaluateAndApply(symbols[i%int64(len(symbols))], delta, testLimit)
		}
	})
}
