package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fetchResult struct {
	value any
	err   error
}

// gatedFetcher blocks the i-th call until release(i) is called.
type gatedFetcher struct {
	mu      sync.Mutex
	calls   atomic.Int32
	gates   []chan fetchResult
	started chan int
}

func newGatedFetcher(n int) *gatedFetcher {
	g := &gatedFetcher{started: make(chan int, n)}
	for i := 0; i < n; i++ {
		g.gates = append(g.gates, make(chan fetchResult, 1))
	}
	return g
}

func (g *gatedFetcher) Fetch(ctx context.Context) (any, error) {
	idx := int(g.calls.Add(1)) - 1
	g.started <- idx
	select {
	case result := <-g.gates[idx]:
		return result.value, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedFetcher) release(idx int, value any, err error) {
	g.gates[idx] <- fetchResult{value: value, err: err}
}

func (g *gatedFetcher) waitStarted(t *testing.T, idx int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-g.started:
			if got == idx {
				return
			}
		case <-deadline:
			t.Fatalf("fetch %d never started", idx)
		}
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 7, 31, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	client := New(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = client.Close(ctx)
	})
	return client
}

func waitForState(t *testing.T, client *Client, key string, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, ok := client.Peek(key); ok && cond(state) {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	state, _ := client.Peek(key)
	t.Fatalf("condition not met for %s, last state %+v", key, state)
	return State{}
}

func isSuccess(state State) bool {
	return state.Status == StatusSuccess && !state.Fetching
}
