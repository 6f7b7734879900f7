package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// inflightTracker counts running fetches so Close can wait for them.
type inflightTracker struct {
	count  atomic.Int64
	mu     sync.Mutex
	zeroCh chan struct{}
}

func newInflightTracker() *inflightTracker {
	zeroCh := make(chan struct{})
	close(zeroCh)
	return &inflightTracker{zeroCh: zeroCh}
}

func (t *inflightTracker) Inc() {
	t.mu.Lock()
	if t.count.Add(1) == 1 {
		t.zeroCh = make(chan struct{})
	}
	t.mu.Unlock()
}

func (t *inflightTracker) Dec() {
	t.mu.Lock()
	if t.count.Add(-1) == 0 {
		close(t.zeroCh)
	}
	t.mu.Unlock()
}

func (t *inflightTracker) Count() int64 {
	return t.count.Load()
}

func (t *inflightTracker) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.mu.Lock()
	waitCh := t.zeroCh
	t.mu.Unlock()
	select {
	case <-waitCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
