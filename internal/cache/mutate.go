package cache

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"taxclient/internal/apperr"
	"taxclient/internal/obs"
)

// Mutation is a write through the backend plus the keys it makes stale.
type Mutation struct {
	Name        string
	Do          func(ctx context.Context) (any, error)
	Invalidates []string
}

// Mutate performs m. Only after Do succeeds are the declared keys
// invalidated; on failure the cache is left untouched, OnMutationError is
// called once and the error is returned.
func (c *Client) Mutate(ctx context.Context, m Mutation) (any, error) {
	if m.Do == nil {
		return nil, errors.New("mutation has no operation")
	}
	if c.isClosed() {
		return nil, ErrClosed
	}

	ctx, span := obs.StartSpan(ctx, c.tracer, "cache.mutate", attribute.String("mutation", m.Name))
	result, err := m.Do(ctx)
	if err != nil {
		classification := apperr.Classify(err)
		c.metrics.RecordMutation(m.Name, classification.Kind.String())
		c.logger.Warn("mutation failed",
			zap.String("mutation", m.Name),
			zap.String("kind", classification.Kind.String()),
			zap.String("reason", classification.Reason),
			zap.Error(err),
		)
		obs.EndSpan(span, err)
		if c.cfg.OnMutationError != nil {
			c.cfg.OnMutationError(m.Name, err)
		}
		return nil, err
	}

	c.metrics.RecordMutation(m.Name, apperr.KindNone.String())
	refetches := c.invalidate(m.Invalidates)
	span.SetAttributes(attribute.Int("cache.refetches", refetches))
	obs.EndSpan(span, nil)
	return result, nil
}
