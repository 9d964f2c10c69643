package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// sweep runs fn for every item on at most workers goroutines. fn handles its own errors;
// sweep only stops early when ctx is cancelled.
func sweep[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T)) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, item := range items {
		if err := gctx.Err(); err != nil {
			break
		}
		item := item
		g.Go(func() error {
			fn(gctx, item)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// tally is a set of named counters shared by sweep workers.
type tally struct {
	mu sync.Mutex
	n  map[string]int
}

func newTally() *tally {
	return &tally{n: make(map[string]int)}
}

func (t *tally) inc(name string) {
	t.mu.Lock()
	t.n[name]++
	t.mu.Unlock()
}

func (t *tally) get(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n[name]
}
