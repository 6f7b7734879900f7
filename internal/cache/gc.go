package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reap removes entries that have had no subscribers and no running fetch
// for at least GCTime.
func (c *Client) Reap(now time.Time) int {
	gcTime := c.cfg.GCTime
	removed := c.store.DeleteIf(func(e *entry) bool {
		if len(e.subscribers) > 0 || e.fetching > 0 {
			return false
		}
		return now.Sub(e.inactiveSince) >= gcTime
	})
	if removed > 0 {
		c.metrics.RecordEviction(removed)
		c.logger.Debug("collected idle entries", zap.Int("removed", removed))
	}
	c.metrics.SetEntries(c.store.Len())
	return removed
}

func (c *Client) runJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Reap(c.now())
		}
	}
}
