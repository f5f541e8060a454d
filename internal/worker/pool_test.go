package worker

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	upper := func(_ context.Context, s string) string { return strings.ToUpper(s) }

	if p := NewPool(5, upper); p.workers != 5 {
		t.Errorf("expected 5 workers, got %d", p.workers)
	}
	if p := NewPool(0, upper); p.workers != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p.workers)
	}
	if p := NewPool(-1, upper); p.workers != 1 {
		t.Errorf("expected default 1 worker for negative input, got %d", p.workers)
	}
}

func TestPool_RunKeepsInputOrder(t *testing.T) {
	pool := NewPool(3, func(_ context.Context, n int) int {
		// Later items finish first
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		return n * n
	})

	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	out, started := pool.Run(context.Background(), items)

	if len(out) != len(items) {
		t.Fatalf("expected %d outputs, got %d", len(items), len(out))
	}
	for i, n := range items {
		if !started[i] {
			t.Errorf("item %d was not started", i)
		}
		if out[i] != n*n {
			t.Errorf("expected %d at index %d, got %d", n*n, i, out[i])
		}
	}
}

func TestPool_Empty(t *testing.T) {
	pool := NewPool(2, func(_ context.Context, s string) string { return s })
	out, started := pool.Run(context.Background(), nil)
	if len(out) != 0 || len(started) != 0 {
		t.Errorf("expected empty outputs, got %v %v", out, started)
	}
}

func TestPool_Concurrency(t *testing.T) {
	workers := 4
	var current, maxConcurrent, completed int32

	pool := NewPool(workers, func(_ context.Context, _ int) bool {
		curr := atomic.AddInt32(&current, 1)
		for {
			seen := atomic.LoadInt32(&maxConcurrent)
			if curr <= seen || atomic.CompareAndSwapInt32(&maxConcurrent, seen, curr) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		atomic.AddInt32(&completed, 1)
		return true
	})

	pool.Run(context.Background(), make([]int, 30))

	if got := atomic.LoadInt32(&completed); got != 30 {
		t.Errorf("expected 30 completed items, got %d", got)
	}
	if max := atomic.LoadInt32(&maxConcurrent); max > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", max, workers)
	}
}

func TestPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	pool := NewPool(2, func(_ context.Context, _ string) int {
		atomic.AddInt32(&calls, 1)
		return 1
	})

	done := make(chan struct{})
	var started []bool
	go func() {
		_, started = pool.Run(ctx, []string{"a.yaml", "b.yaml", "c.yaml"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run after cancel blocked")
	}

	for i, s := range started {
		if s {
			t.Errorf("item %d started after cancellation", i)
		}
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no calls, got %d", calls)
	}
}

func TestPool_CancelMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewPool(1, func(ctx context.Context, n int) int {
		if n == 2 {
			cancel()
		}
		return n
	})
	_, started := pool.Run(ctx, []int{0, 1, 2, 3, 4, 5})

	if !started[0] || !started[1] || !started[2] {
		t.Errorf("expected the first three items to start, got %v", started)
	}
	if started[5] {
		t.Errorf("expected the last item to be dropped, got %v", started)
	}
}
