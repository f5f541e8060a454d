// Package worker provides the bounded fan-out used to load corpora and the
// per-host rate limiter shared by remote clients.
package worker

import (
	"context"
	"sync"
)

// Pool applies one function to many items on a fixed number of goroutines
type Pool[T, R any] struct {
	workers int
	fn      func(ctx context.Context, item T) R
}

// NewPool creates a pool; fewer than one worker means one
func NewPool[T, R any](workers int, fn func(ctx context.Context, item T) R) *Pool[T, R] {
	if workers <= 0 {
		workers = 1
	}
	return &Pool[T, R]{workers: workers, fn: fn}
}

// Run applies the function to every item and returns the outputs in input
// order. started[i] is false for items that were never handed to a worker
// because ctx was cancelled first; their output is the zero value.
func (p *Pool[T, R]) Run(ctx context.Context, items []T) (out []R, started []bool) {
	out = make([]R, len(items))
	started = make([]bool, len(items))
	if len(items) == 0 {
		return out, started
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(p.workers, len(items)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				// Each index is owned by exactly one worker
				started[i] = true
				out[i] = p.fn(ctx, items[i])
			}
		}()
	}

feed:
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	return out, started
}
