package cache

import (
	"sync"
	"time"
)

const DefaultMaxFlights = 10000

// flight is one dispatched fetch. seq orders flights of the same key.
type flight struct {
	seq       uint64
	done      chan struct{}
	value     any
	err       error
	applied   bool
	startedAt time.Time
}

// coalescer tracks the current flight per key. Callers that find a
// current flight attach to it instead of fetching again.
type coalescer struct {
	mu         sync.Mutex
	flights    map[string]*flight
	maxFlights int
}

func newCoalescer(maxFlights int) *coalescer {
	if maxFlights <= 0 {
		maxFlights = DefaultMaxFlights
	}
	return &coalescer{flights: make(map[string]*flight), maxFlights: maxFlights}
}

func (c *coalescer) Current(key string) (*flight, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	return f, ok
}

// Begin registers a new flight for key, superseding any current one. When
// the table is full the flight still runs but is not joinable.
func (c *coalescer) Begin(key string, seq uint64) *flight {
	f := &flight{seq: seq, done: make(chan struct{}), startedAt: time.Now()}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.flights[key]; !exists && len(c.flights) >= c.maxFlights {
		return f
	}
	c.flights[key] = f
	return f
}

// Detach makes f unjoinable without resolving it.
func (c *coalescer) Detach(key string, f *flight) {
	c.mu.Lock()
	if current, exists := c.flights[key]; exists && current == f {
		delete(c.flights, key)
	}
	c.mu.Unlock()
}

func (c *coalescer) Finish(key string, f *flight, value any, err error, applied bool) {
	if f == nil {
		return
	}
	c.Detach(key, f)
	f.value = value
	f.err = err
	f.applied = applied
	close(f.done)
}

func (c *coalescer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.flights)
}
