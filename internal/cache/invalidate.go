package cache

import (
	"go.uber.org/zap"
)

// Invalidate marks every entry matching keyOrPrefix stale. Entries with
// at least one enabled subscriber are refetched immediately; the fetch is
// a new flight, so it never joins a request dispatched before the call.
// Invalidate returns the number of refetches scheduled without waiting
// for them.
func (c *Client) Invalidate(keyOrPrefix string) int {
	return c.invalidate([]string{keyOrPrefix})
}

func (c *Client) invalidate(keysOrPrefixes []string) int {
	seen := make(map[*entry]struct{})
	matched := make([]*entry, 0, len(keysOrPrefixes))
	for _, keyOrPrefix := range keysOrPrefixes {
		for _, e := range c.store.Match(keyOrPrefix) {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			matched = append(matched, e)
		}
	}

	closed := c.isClosed()
	refetches := 0
	for _, e := range matched {
		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		e.invalidated = true
		e.invalidSeq = e.nextSeq
		refetch := !closed && e.fetcher != nil && e.opts.enabled() && e.activeSubscribersLocked() > 0
		var n notice
		if refetch {
			_, _, n = c.dispatchLocked(e, e.fetcher, e.opts, true)
			refetches++
		} else {
			n = e.noticeLocked(c.now())
		}
		e.mu.Unlock()
		n.deliver()
		c.metrics.RecordInvalidation(e.key, refetch)
	}

	if len(matched) > 0 {
		c.logger.Debug("invalidated entries",
			zap.Strings("keys", keysOrPrefixes),
			zap.Int("matched", len(matched)),
			zap.Int("refetches", refetches),
		)
	}
	return refetches
}
