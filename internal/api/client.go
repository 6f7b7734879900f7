package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taxclient/internal/authflow"
	"taxclient/internal/backend"
	"taxclient/internal/cache"
	"taxclient/internal/model"
	"taxclient/internal/obs"
	"taxclient/internal/session"
)

type Config struct {
	Cache   *cache.Client
	Backend backend.Backend
	Session session.Provider
	// Auth receives read failures. Mutation failures reach it through the
	// cache's OnMutationError.
	Auth   *authflow.Handler
	Logger *zap.Logger
}

// Client is the typed resource layer used by views and commands. Reads go
// through the shared cache; writes go through cache mutations so the
// invalidation table is applied after every acknowledged write.
type Client struct {
	cache   *cache.Client
	backend backend.Backend
	session session.Provider
	auth    *authflow.Handler
	logger  *zap.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.Cache == nil {
		return nil, errors.New("api: cache is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("api: backend is required")
	}
	return &Client{
		cache:   cfg.Cache,
		backend: cfg.Backend,
		session: cfg.Session,
		auth:    cfg.Auth,
		logger:  obs.Logger(cfg.Logger).Named("api"),
	}, nil
}

func (c *Client) Cache() *cache.Client {
	return c.cache
}

// Authenticated reports the session flag. Without a provider the client
// assumes a signed-in user.
func (c *Client) Authenticated(ctx context.Context) bool {
	if c.session == nil {
		return true
	}
	return c.session.Authenticated(ctx)
}

func (c *Client) CurrentUser(ctx context.Context) (model.User, bool) {
	if c.session == nil {
		return model.User{}, false
	}
	return c.session.CurrentUser(ctx)
}

// Options gates protected keys on the session.
func (c *Client) Options(ctx context.Context, key string) cache.Options {
	opts := cache.Options{}
	if key == KeyAuthUser {
		opts.Retry = cache.NoRetry
	}
	if !publicKeys[key] {
		opts.Enabled = cache.Bool(c.Authenticated(ctx))
	}
	return opts
}

// Fetcher loads key from the backend and decodes it into its typed value.
func (c *Client) Fetcher(key string) cache.Fetcher {
	decode, ok := decoders[cache.BuildKey(key, nil)]
	if !ok {
		decode = decodeRaw
	}
	return func(ctx context.Context) (any, error) {
		data, err := c.backend.Do(ctx, http.MethodGet, key, nil)
		if err != nil {
			if c.auth != nil {
				c.auth.HandleQueryError(key, err)
			}
			return nil, err
		}
		return decode(data)
	}
}

// Read returns the cached state of key, fetching in the background when
// needed.
func (c *Client) Read(key string) cache.State {
	return c.cache.Read(key, c.Fetcher(key), c.Options(context.Background(), key))
}

func (c *Client) Subscribe(key string, listener func(cache.State)) *cache.Subscription {
	return c.cache.Subscribe(key, c.Fetcher(key), c.Options(context.Background(), key), listener)
}

// Invalidate marks keyOrPrefix stale.
func (c *Client) Invalidate(keyOrPrefix string) int {
	return c.cache.Invalidate(keyOrPrefix)
}

// Get waits for key and returns its typed value.
func Get[T any](ctx context.Context, c *Client, key string) (T, cache.State, error) {
	var zero T
	state, err := c.cache.Fetch(ctx, key, c.Fetcher(key), c.Options(ctx, key))
	if err != nil {
		return zero, state, err
	}
	if state.Status != cache.StatusSuccess {
		return zero, state, nil
	}
	value, ok := cache.Value[T](state)
	if !ok {
		return zero, state, fmt.Errorf("api: %s holds %T", key, state.Value)
	}
	return value, state, nil
}

// Prefetch warms several keys concurrently and returns the first error.
func (c *Client) Prefetch(ctx context.Context, keys ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		g.Go(func() error {
			_, err := c.cache.Fetch(ctx, key, c.Fetcher(key), c.Options(ctx, key))
			if err != nil {
				return fmt.Errorf("prefetch %s: %w", key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Client) mutate(ctx context.Context, name string, method string, path string, body any, out any) error {
	result, err := c.cache.Mutate(ctx, cache.Mutation{
		Name: name,
		Do: func(ctx context.Context) (any, error) {
			return c.backend.Do(ctx, method, path, body)
		},
		Invalidates: Invalidations[name],
	})
	if err != nil {
		return err
	}
	if data, ok := result.([]byte); ok && out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", name, err)
		}
	}
	if c.auth != nil {
		c.auth.Succeeded(name)
	}
	c.logger.Debug("mutation applied", zap.String("mutation", name))
	return nil
}
