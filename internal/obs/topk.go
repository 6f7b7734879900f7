package obs

import (
	"sort"
	"sync"
	"time"
)

const (
	defaultKeyTopK           = 100
	defaultRecomputeInterval = 10 * time.Second
)

// TopK bounds the label cardinality of cache keys: only the most used keys
// keep their own label, the rest report as "other".
type TopK struct {
	mu            sync.Mutex
	counts        map[string]int64
	top           map[string]struct{}
	limit         int
	interval      time.Duration
	lastRecompute time.Time
}

func NewTopK(limit int, interval time.Duration) *TopK {
	if limit <= 0 {
		limit = defaultKeyTopK
	}
	if interval <= 0 {
		interval = defaultRecomputeInterval
	}
	return &TopK{
		counts:   make(map[string]int64),
		top:      make(map[string]struct{}),
		limit:    limit,
		interval: interval,
	}
}

func (t *TopK) ObserveHit(key string) {
	if t == nil || key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[key]++
	if len(t.top) < t.limit {
		t.top[key] = struct{}{}
	}
	if time.Since(t.lastRecompute) >= t.interval {
		t.top = buildTop(t.counts, t.limit)
		t.lastRecompute = time.Now()
	}
}

func (t *TopK) Canon(key string) string {
	if key == "" {
		return "none"
	}
	if t == nil {
		return "other"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.top[key]; ok {
		return key
	}
	return "other"
}

func buildTop(counts map[string]int64, limit int) map[string]struct{} {
	type pair struct {
		key   string
		count int64
	}
	items := make([]pair, 0, len(counts))
	for key, count := range counts {
		items = append(items, pair{key: key, count: count})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].count == items[j].count {
			return items[i].key < items[j].key
		}
		return items[i].count > items[j].count
	})

	if limit > len(items) {
		limit = len(items)
	}
	result := make(map[string]struct{}, limit)
	for i := 0; i < limit; i++ {
		result[items[i].key] = struct{}{}
	}
	return result
}
