package cache

import (
	"context"
	"sync"
	"time"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Fetcher loads the current server value for one key.
type Fetcher func(ctx context.Context) (any, error)

// State is what a view sees for a key. Fetching is set while a fetch is
// outstanding for an entry that already holds a value.
type State struct {
	Value     any
	Status    Status
	Err       error
	UpdatedAt time.Time
	Stale     bool
	Fetching  bool
}

// Value returns the state's value as T.
func Value[T any](state State) (T, bool) {
	value, ok := state.Value.(T)
	return value, ok
}

// entry guards the value/status/error triple of a key with its own mutex.
type entry struct {
	key string

	mu            sync.Mutex
	value         any
	hasValue      bool
	status        Status
	err           error
	updatedAt     time.Time
	invalidated   bool
	invalidSeq    uint64
	fetcher       Fetcher
	opts          Options
	subscribers   map[uint64]*Subscription
	inactiveSince time.Time
	nextSeq       uint64
	appliedSeq    uint64
	fetching      int
	version       uint64
	removed       bool
}

func newEntry(key string, now time.Time) *entry {
	return &entry{
		key:           key,
		subscribers:   make(map[uint64]*Subscription),
		inactiveSince: now,
	}
}

func (e *entry) staleLocked(now time.Time, staleTime time.Duration) bool {
	if !e.hasValue || e.invalidated {
		return true
	}
	if staleTime == NeverStale {
		return false
	}
	return now.Sub(e.updatedAt) >= staleTime
}

func (e *entry) stateLocked(now time.Time) State {
	return State{
		Value:     e.value,
		Status:    e.status,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Stale:     e.staleLocked(now, e.opts.StaleTime),
		Fetching:  e.fetching > 0 && e.hasValue,
	}
}

// notice is a state change captured under the entry lock and delivered
// to subscribers after it is released.
type notice struct {
	state   State
	version uint64
	subs    []*Subscription
}

func (e *entry) noticeLocked(now time.Time) notice {
	e.version++
	n := notice{state: e.stateLocked(now), version: e.version}
	if len(e.subscribers) == 0 {
		return n
	}
	n.subs = make([]*Subscription, 0, len(e.subscribers))
	for _, sub := range e.subscribers {
		n.subs = append(n.subs, sub)
	}
	return n
}

func (e *entry) activeSubscribersLocked() int {
	active := 0
	for _, sub := range e.subscribers {
		if sub.enabled {
			active++
		}
	}
	return active
}

func (n notice) deliver() {
	for _, sub := range n.subs {
		sub.deliver(n.state, n.version)
	}
}
