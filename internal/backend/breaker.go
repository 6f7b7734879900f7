package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"taxclient/internal/apperr"
	"taxclient/internal/breaker"
	"taxclient/internal/obs"
)

// Guarded fails calls fast while the breaker considers the backend down.
// Only transport failures and 5xx answers count against it; auth and
// validation errors are the caller's problem, not the backend's.
type Guarded struct {
	next    Backend
	breaker *breaker.Breaker
	logger  *zap.Logger
}

func WithBreaker(next Backend, b *breaker.Breaker, logger *zap.Logger) *Guarded {
	return &Guarded{next: next, breaker: b, logger: obs.Logger(logger).Named("backend.breaker")}
}

func (g *Guarded) Do(ctx context.Context, method string, path string, body any) ([]byte, error) {
	if !g.breaker.Allow() {
		g.logger.Debug("rejected by open circuit", zap.String("method", method), zap.String("path", path))
		return nil, fmt.Errorf("%s %s: %w", method, path, apperr.ErrCircuitOpen)
	}
	data, err := g.next.Do(ctx, method, path, body)
	switch {
	case err == nil:
		g.breaker.Report(true)
	case errors.Is(err, context.Canceled):
		g.breaker.Abandon()
	default:
		g.breaker.Report(!backendFault(err))
	}
	return data, err
}

func backendFault(err error) bool {
	classification := apperr.Classify(err)
	switch classification.Kind {
	case apperr.KindNetwork:
		return true
	case apperr.KindApp:
		return classification.Status >= http.StatusInternalServerError
	default:
		return false
	}
}
