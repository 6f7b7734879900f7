package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"taxclient/internal/obs"
	"taxclient/internal/retry"
)

// Read returns the cached state of key. When the entry is missing or
// stale it dispatches fetcher in the background, joining any fetch that
// is already running for key. Read never blocks on the network.
func (c *Client) Read(key string, fetcher Fetcher, opts Options) State {
	opts = c.resolve(opts)
	e := c.lockEntry(key)
	now := c.now()
	if len(e.subscribers) == 0 {
		e.inactiveSince = now
	}

	if !opts.enabled() {
		state := e.stateLocked(now)
		e.mu.Unlock()
		state.Status = StatusIdle
		c.metrics.RecordRead(key, "disabled")
		return state
	}

	c.rememberLocked(e, fetcher, opts)
	result := "hit"
	var n notice
	if fetcher != nil && !c.isClosed() && e.staleLocked(now, opts.StaleTime) {
		var started bool
		_, started, n = c.dispatchLocked(e, fetcher, opts, false)
		result = "coalesced"
		if started {
			result = "miss"
		}
	}
	state := e.stateLocked(now)
	e.mu.Unlock()
	n.deliver()
	c.metrics.RecordRead(key, result)
	return state
}

// Fetch is the blocking form of Read: it waits for the fetch it started
// or joined and returns the resulting state. The returned error is the
// fetch error, or ctx's error if ctx ends first.
func (c *Client) Fetch(ctx context.Context, key string, fetcher Fetcher, opts Options) (State, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.isClosed() {
		return State{}, ErrClosed
	}
	opts = c.resolve(opts)
	e := c.lockEntry(key)
	now := c.now()
	if len(e.subscribers) == 0 {
		e.inactiveSince = now
	}

	if !opts.enabled() || fetcher == nil {
		state := e.stateLocked(now)
		e.mu.Unlock()
		if !opts.enabled() {
			state.Status = StatusIdle
			c.metrics.RecordRead(key, "disabled")
		}
		return state, nil
	}

	c.rememberLocked(e, fetcher, opts)
	if !e.staleLocked(now, opts.StaleTime) {
		state := e.stateLocked(now)
		e.mu.Unlock()
		c.metrics.RecordRead(key, "hit")
		return state, nil
	}
	f, started, n := c.dispatchLocked(e, fetcher, opts, false)
	e.mu.Unlock()
	n.deliver()
	if started {
		c.metrics.RecordRead(key, "miss")
	} else {
		c.metrics.RecordRead(key, "coalesced")
	}

	f, err := c.await(ctx, key, f)
	if err != nil {
		return State{}, err
	}
	state, ok := c.Peek(key)
	if !ok {
		state = State{Value: f.value, Status: StatusSuccess, Err: f.err}
		if f.err != nil {
			state.Status = StatusError
		}
	}
	if f.applied {
		return state, f.err
	}
	return state, state.Err
}

// await waits for f and, when f's result was superseded, for the flight
// that replaced it.
func (c *Client) await(ctx context.Context, key string, f *flight) (*flight, error) {
	for {
		select {
		case <-f.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if f.applied {
			return f, nil
		}
		next, ok := c.flights.Current(key)
		if !ok || next == f {
			return f, nil
		}
		f = next
	}
}

func (c *Client) rememberLocked(e *entry, fetcher Fetcher, opts Options) {
	if fetcher != nil {
		e.fetcher = fetcher
	}
	e.opts = opts
}

// dispatchLocked starts a fetch for e, or returns the current flight when
// one is running and force is false. A flight dispatched before the last
// invalidation of e is never joined. The returned notice must be
// delivered after e is unlocked.
func (c *Client) dispatchLocked(e *entry, fetcher Fetcher, opts Options, force bool) (*flight, bool, notice) {
	if !force {
		if f, ok := c.flights.Current(e.key); ok && !(e.invalidated && f.seq <= e.invalidSeq) {
			c.metrics.RecordCoalesced(e.key)
			return f, false, notice{}
		}
	}

	e.nextSeq++
	seq := e.nextSeq
	e.fetching++
	if !e.hasValue {
		e.status = StatusLoading
		e.err = nil
	}
	f := c.flights.Begin(e.key, seq)
	c.inflight.Inc()
	n := e.noticeLocked(c.now())
	go c.run(e, f, fetcher, opts)
	return f, true, n
}

func (c *Client) run(e *entry, f *flight, fetcher Fetcher, opts Options) {
	defer c.inflight.Dec()

	ctx, span := obs.StartSpan(c.ctx, c.tracer, "cache.fetch",
		attribute.String("cache.key", e.key),
		attribute.Int64("cache.seq", int64(f.seq)),
	)
	start := time.Now()
	var value any
	result := retry.Execute(ctx, retry.Policy{
		MaxAttempts:   opts.Retry + 1,
		Backoff:       c.cfg.RetryBackoff,
		BackoffJitter: c.cfg.RetryJitter,
		Budget:        c.cfg.RetryBudget,
		OnRetry: func(reason string, attempt int) {
			c.metrics.RecordRetry(e.key, reason)
			c.logger.Debug("retrying fetch",
				zap.String("key", e.key),
				zap.String("reason", reason),
				zap.Int("attempt", attempt),
			)
		},
	}, func(ctx context.Context) error {
		v, err := fetcher(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	err := result.Err
	c.metrics.ObserveFetch(e.key, err, time.Since(start))
	if err != nil {
		c.logger.Warn("fetch failed",
			zap.String("key", e.key),
			zap.Uint64("seq", f.seq),
			zap.Int("attempts", result.Attempts),
			zap.Error(err),
		)
	}

	applied := c.apply(e, f, value, err)
	c.flights.Finish(e.key, f, value, err, applied)
	obs.EndSpan(span, err)
}

// apply stores a fetch result unless a later-dispatched fetch has already
// been applied to the entry. f stops being joinable before e is unlocked,
// so a read that observes the result dispatches its own fetch.
func (c *Client) apply(e *entry, f *flight, value any, err error) bool {
	seq := f.seq
	e.mu.Lock()
	e.fetching--
	c.flights.Detach(e.key, f)
	if seq <= e.appliedSeq {
		applied := e.appliedSeq
		e.mu.Unlock()
		c.metrics.RecordStaleDiscard(e.key)
		c.logger.Debug("discarded stale response",
			zap.String("key", e.key),
			zap.Uint64("seq", seq),
			zap.Uint64("applied_seq", applied),
		)
		return false
	}

	now := c.now()
	e.appliedSeq = seq
	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.value = value
		e.hasValue = true
		e.status = StatusSuccess
		e.err = nil
		e.updatedAt = now
		if seq > e.invalidSeq {
			e.invalidated = false
		}
	}
	n := e.noticeLocked(now)
	e.mu.Unlock()
	n.deliver()
	return true
}
