package testutil

import (
	"fmt"
	"testing"
	"time"

	"taxclient/internal/cache"
)

func Eventually(t *testing.T, timeout time.Duration, interval time.Duration, fn func() error) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error

	for time.Now().Before(deadline) {
		if err := fn(); err == nil {
			return
		} else {
			lastErr = err
		}
		time.Sleep(interval)
	}

	if lastErr != nil {
		t.Fatalf("condition not met: %v", lastErr)
	}
	t.Fatalf("condition not met before timeout")
}

// WaitForState polls key in client until cond holds and returns the
// matching state.
func WaitForState(t *testing.T, client *cache.Client, key string, cond func(cache.State) bool) cache.State {
	t.Helper()
	var matched cache.State
	Eventually(t, 2*time.Second, 5*time.Millisecond, func() error {
		state, ok := client.Peek(key)
		if !ok {
			return fmt.Errorf("%s not cached", key)
		}
		if !cond(state) {
			return fmt.Errorf("%s is %s (fetching=%t)", key, state.Status, state.Fetching)
		}
		matched = state
		return nil
	})
	return matched
}

// Settled reports a successful state with no fetch outstanding.
func Settled(state cache.State) bool {
	return state.Status == cache.StatusSuccess && !state.Fetching
}
