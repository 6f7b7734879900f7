package cache

import (
	"sync"
	"sync/atomic"
)

// Subscription is a view's registration on a key. Listeners receive
// states in the order they were produced; older states are dropped.
type Subscription struct {
	client   *Client
	entry    *entry
	key      string
	id       uint64
	enabled  bool
	listener func(State)
	initial  State

	deliverMu   sync.Mutex
	lastVersion uint64
	closed      atomic.Bool
}

// Subscribe registers listener on key and applies the same fetch policy
// as Read. The subscription keeps the entry alive until Unsubscribe.
func (c *Client) Subscribe(key string, fetcher Fetcher, opts Options, listener func(State)) *Subscription {
	opts = c.resolve(opts)
	sub := &Subscription{
		client:   c,
		key:      key,
		id:       c.subIDs.Add(1),
		enabled:  opts.enabled(),
		listener: listener,
	}

	e := c.lockEntry(key)
	sub.entry = e
	e.subscribers[sub.id] = sub
	now := c.now()
	var n notice
	if sub.enabled {
		c.rememberLocked(e, fetcher, opts)
		if e.fetcher != nil && !c.isClosed() && e.staleLocked(now, opts.StaleTime) {
			_, _, n = c.dispatchLocked(e, e.fetcher, opts, false)
		}
	}
	sub.initial = e.stateLocked(now)
	if !sub.enabled {
		sub.initial.Status = StatusIdle
	}
	e.mu.Unlock()
	n.deliver()
	return sub
}

func (s *Subscription) Key() string {
	return s.key
}

// Initial is the state observed when the subscription was registered.
func (s *Subscription) Initial() State {
	return s.initial
}

// State returns the entry's current state.
func (s *Subscription) State() State {
	state, _ := s.client.Peek(s.key)
	if !s.enabled {
		state.Status = StatusIdle
	}
	return state
}

func (s *Subscription) Unsubscribe() {
	if s == nil || !s.closed.CompareAndSwap(false, true) {
		return
	}
	e := s.entry
	e.mu.Lock()
	delete(e.subscribers, s.id)
	if len(e.subscribers) == 0 {
		e.inactiveSince = s.client.now()
	}
	e.mu.Unlock()
}

func (s *Subscription) deliver(state State, version uint64) {
	if s.listener == nil {
		return
	}
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.closed.Load() || version <= s.lastVersion {
		return
	}
	s.lastVersion = version
	if !s.enabled {
		state.Status = StatusIdle
	}
	s.listener(state)
}
