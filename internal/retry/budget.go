package retry

import "sync"

// Budget caps retries across every key sharing it. It starts with burst
// tokens; each retry spends one and every percent successes earn one back.
type Budget struct {
	mu          sync.Mutex
	percent     float64
	burst       int
	tokens      int
	accumulator float64
}

func NewBudget(percent int, burst int) *Budget {
	if burst < 0 {
		burst = 0
	}
	return &Budget{
		percent: float64(percent) / 100,
		burst:   burst,
		tokens:  burst,
	}
}

func (b *Budget) RecordSuccess() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.percent <= 0 || b.burst <= 0 {
		return
	}
	b.accumulator += b.percent
	if b.accumulator < 1 {
		return
	}
	add := int(b.accumulator)
	b.accumulator -= float64(add)
	b.tokens += add
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
}

// Consume spends a token. A nil budget never runs out.
func (b *Budget) Consume() bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

func (b *Budget) Remaining() int {
	if b == nil {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}
