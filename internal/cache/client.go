package cache

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"taxclient/internal/obs"
	"taxclient/internal/retry"
)

const (
	// NeverStale disables age-based staleness; only invalidation makes
	// such an entry stale.
	NeverStale time.Duration = math.MaxInt64

	DefaultGCTime          = 5 * time.Minute
	DefaultJanitorInterval = time.Minute
	DefaultRetryBackoff    = 250 * time.Millisecond

	NoRetry = -1
)

var ErrClosed = errors.New("cache client closed")

// Options tune a single read or subscription. The zero value reads with
// the client's defaults.
type Options struct {
	// Enabled gates fetching entirely; nil means enabled.
	Enabled *bool
	// Retry is the number of extra attempts after a network failure. Zero
	// uses the client default; NoRetry disables retries.
	Retry int
	// StaleTime is how long a successful value stays fresh. Zero uses the
	// client default.
	StaleTime time.Duration
}

func (o Options) enabled() bool {
	return o.Enabled == nil || *o.Enabled
}

func Bool(value bool) *bool {
	return &value
}

type Config struct {
	DefaultStaleTime time.Duration
	DefaultRetry     int
	GCTime           time.Duration
	JanitorInterval  time.Duration
	RetryBackoff     time.Duration
	RetryJitter      time.Duration
	// RetryBudget, when set, caps retries across all keys.
	RetryBudget *retry.Budget
	MaxFlights  int
	Logger      *zap.Logger
	Metrics     *obs.Metrics
	Tracer      trace.Tracer
	// OnMutationError receives every failed mutation. The cache itself
	// performs no side effects for failures.
	OnMutationError func(mutation string, err error)
	Now             func() time.Time
}

// Client is the resource cache: a constructible store shared by every
// view of the application.
type Client struct {
	cfg      Config
	logger   *zap.Logger
	metrics  *obs.Metrics
	tracer   trace.Tracer
	store    *memoryStore
	flights  *coalescer
	inflight *inflightTracker
	subIDs   atomic.Uint64
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	closed      bool
	janitorStop context.CancelFunc
	janitorDone chan struct{}
}

func New(cfg Config) *Client {
	if cfg.DefaultStaleTime <= 0 {
		cfg.DefaultStaleTime = NeverStale
	}
	if cfg.DefaultRetry < 0 {
		cfg.DefaultRetry = 0
	}
	if cfg.GCTime <= 0 {
		cfg.GCTime = DefaultGCTime
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = DefaultJanitorInterval
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:      cfg,
		logger:   obs.Logger(cfg.Logger).Named("cache"),
		metrics:  cfg.Metrics,
		tracer:   obs.Tracer(cfg.Tracer),
		store:    newMemoryStore(),
		flights:  newCoalescer(cfg.MaxFlights),
		inflight: newInflightTracker(),
		now:      now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs the garbage collection janitor until ctx is done or Close
// is called.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.janitorStop != nil {
		return
	}
	janitorCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	c.janitorStop = stop
	c.janitorDone = done
	go func() {
		defer close(done)
		c.runJanitor(janitorCtx, c.cfg.JanitorInterval)
	}()
}

// Close stops the janitor and waits for outstanding fetches. Fetches
// still running when ctx expires are canceled.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	stop, done := c.janitorStop, c.janitorDone
	c.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}
	err := c.inflight.Wait(ctx)
	c.cancel()
	if err != nil {
		return err
	}
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Clear drops every entry. Subscriptions stay registered on the dropped
// entries but receive no further updates.
func (c *Client) Clear() {
	c.store.Clear()
	c.metrics.SetEntries(0)
}

func (c *Client) Len() int {
	return c.store.Len()
}

// Peek returns the state of key without triggering a fetch.
func (c *Client) Peek(key string) (State, bool) {
	e, ok := c.store.Get(key)
	if !ok {
		return State{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked(c.now()), true
}

// Subscribers returns the number of live subscriptions on key.
func (c *Client) Subscribers(key string) int {
	e, ok := c.store.Get(key)
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subscribers)
}

func (c *Client) resolve(opts Options) Options {
	if opts.StaleTime <= 0 {
		opts.StaleTime = c.cfg.DefaultStaleTime
	}
	if opts.Retry == 0 {
		opts.Retry = c.cfg.DefaultRetry
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	return opts
}

// lockEntry returns the live entry for key, locked.
func (c *Client) lockEntry(key string) *entry {
	for {
		e := c.store.GetOrCreate(key, c.now())
		c.metrics.SetEntries(c.store.Len())
		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}
