package breaker

import (
	"sync"
	"time"
)

type State int32

const (
	StateClosed State = iota + 1
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

const (
	DefaultMinimumRequests = 5
	DefaultWindow          = 10 * time.Second
	DefaultOpenDuration    = 5 * time.Second
)

// Config controls when the breaker opens. A zero FailureRatePercent
// disables it.
type Config struct {
	FailureRatePercent int
	MinimumRequests    int
	Window             time.Duration
	OpenDuration       time.Duration
	HalfOpenProbes     int
	Now                func() time.Time
	OnStateChange      func(from State, to State)
}

// Breaker counts failures in a rolling window. Once the failure rate
// crosses the threshold it rejects calls for OpenDuration, then lets
// HalfOpenProbes calls through; all probes succeeding closes it again and
// any probe failing reopens it.
type Breaker struct {
	cfg Config

	mu             sync.Mutex
	state          State
	requests       int
	failures       int
	windowStart    time.Time
	openUntil      time.Time
	probesInFlight int
	probeSuccesses int
}

func New(cfg Config) *Breaker {
	if cfg.MinimumRequests <= 0 {
		cfg.MinimumRequests = DefaultMinimumRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = DefaultOpenDuration
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{cfg: cfg, state: StateClosed, windowStart: cfg.Now()}
}

func (b *Breaker) enabled() bool {
	return b != nil && b.cfg.FailureRatePercent > 0
}

func (b *Breaker) State() State {
	if b == nil {
		return StateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. Every allowed call must be
// followed by Report or Abandon.
func (b *Breaker) Allow() bool {
	if !b.enabled() {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.cfg.Now()
	if b.state == StateOpen {
		if now.Before(b.openUntil) {
			return false
		}
		b.transitionLocked(StateHalfOpen)
		b.probesInFlight = 0
		b.probeSuccesses = 0
	}
	if b.state == StateHalfOpen {
		if b.probesInFlight >= b.cfg.HalfOpenProbes {
			return false
		}
		b.probesInFlight++
	}
	return true
}

func (b *Breaker) Report(success bool) {
	if !b.enabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.cfg.Now()
	switch b.state {
	case StateClosed:
		if now.Sub(b.windowStart) > b.cfg.Window {
			b.windowStart = now
			b.requests = 0
			b.failures = 0
		}
		b.requests++
		if !success {
			b.failures++
		}
		if b.requests >= b.cfg.MinimumRequests && b.failures*100/b.requests >= b.cfg.FailureRatePercent {
			b.openLocked(now)
		}
	case StateHalfOpen:
		if b.probesInFlight > 0 {
			b.probesInFlight--
		}
		if !success {
			b.openLocked(now)
			return
		}
		b.probeSuccesses++
		if b.probeSuccesses >= b.cfg.HalfOpenProbes {
			b.transitionLocked(StateClosed)
			b.windowStart = now
			b.requests = 0
			b.failures = 0
		}
	}
}

// Abandon releases an allowed call whose outcome says nothing about the
// backend, such as one canceled by its caller.
func (b *Breaker) Abandon() {
	if !b.enabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen && b.probesInFlight > 0 {
		b.probesInFlight--
	}
}

func (b *Breaker) openLocked(now time.Time) {
	b.openUntil = now.Add(b.cfg.OpenDuration)
	b.transitionLocked(StateOpen)
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	b.state = to
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
