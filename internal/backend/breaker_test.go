package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"taxclient/internal/apperr"
	"taxclient/internal/breaker"
)

type backendFunc func(ctx context.Context, method string, path string, body any) ([]byte, error)

func (f backendFunc) Do(ctx context.Context, method string, path string, body any) ([]byte, error) {
	return f(ctx, method, path, body)
}

func newGuarded(err error, calls *int) *Guarded {
	next := backendFunc(func(context.Context, string, string, any) ([]byte, error) {
		*calls++
		return nil, err
	})
	b := breaker.New(breaker.Config{
		FailureRatePercent: 100,
		MinimumRequests:    2,
		OpenDuration:       time.Hour,
	})
	return WithBreaker(next, b, nil)
}

func TestGuardedFailsFastAfterTransportFailures(t *testing.T) {
	calls := 0
	g := newGuarded(io.ErrUnexpectedEOF, &calls)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := g.Do(ctx, http.MethodGet, "/api/itr-forms", nil); !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("expected backend error, got %v", err)
		}
	}
	_, err := g.Do(ctx, http.MethodGet, "/api/itr-forms", nil)
	if !errors.Is(err, apperr.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected open circuit to skip the backend, got %d calls", calls)
	}
}

func TestGuardedIgnoresClientErrors(t *testing.T) {
	for _, err := range []error{
		apperr.NewStatusError(http.StatusUnauthorized, "Unauthorized"),
		apperr.NewStatusError(http.StatusBadRequest, "bad input"),
		context.Canceled,
	} {
		calls := 0
		g := newGuarded(err, &calls)
		for i := 0; i < 5; i++ {
			_, _ = g.Do(context.Background(), http.MethodGet, "/api/itr-forms", nil)
		}
		if calls != 5 {
			t.Fatalf("%v opened the circuit after %d calls", err, calls)
		}
	}
}

func TestGuardedCountsServerErrors(t *testing.T) {
	calls := 0
	g := newGuarded(apperr.NewStatusError(http.StatusBadGateway, "bad gateway"), &calls)
	for i := 0; i < 4; i++ {
		_, _ = g.Do(context.Background(), http.MethodGet, "/api/dashboard-stats", nil)
	}
	if calls != 2 {
		t.Fatalf("expected 5xx to open the circuit after 2 calls, got %d", calls)
	}
}
