package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"taxclient/internal/api"
	"taxclient/internal/authflow"
	"taxclient/internal/backend"
	"taxclient/internal/breaker"
	"taxclient/internal/cache"
	"taxclient/internal/config"
	"taxclient/internal/obs"
	"taxclient/internal/retry"
	"taxclient/internal/session"
)

const shutdownTimeout = 5 * time.Second

// app is the wired client: one cache, one auth handler and one backend
// shared by whatever command runs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *obs.Metrics
	session *session.Mock
	auth    *authflow.Handler
	cache   *cache.Client
	client  *api.Client
	closers []func(context.Context) error
}

func (g *Globals) load() (*config.Config, *zap.Logger, error) {
	cfg, warnings, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	logger, err := obs.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	for _, warning := range warnings {
		logger.Warn("config warning", zap.String("warning", warning))
	}
	return cfg, logger, nil
}

// open loads configuration and wires the client. stderr receives toasts
// and login redirects.
func (g *Globals) open(ctx context.Context, stderr io.Writer) (*app, error) {
	cfg, logger, err := g.load()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, logger, stderr)
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, stderr io.Writer) (*app, error) {
	metrics := obs.NewMetrics(obs.MetricsConfig{})
	obs.SetDefaultMetrics(metrics)
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		session: session.NewMock(session.MockConfig{Secret: cfg.Auth.TokenSecret}),
	}

	a.auth = authflow.New(authflow.Config{
		LoginPath:     cfg.Auth.LoginPath,
		RedirectDelay: cfg.Auth.RedirectDelay,
		Notifier: authflow.NotifierFunc(func(toast authflow.Toast) {
			fmt.Fprintf(stderr, "%s: %s\n", toast.Title, toast.Description)
		}),
		Navigator: authflow.NavigatorFunc(func(path string) {
			fmt.Fprintf(stderr, "Redirecting to %s\n", path)
		}),
		Logger:          logger,
		Metrics:         metrics,
		FailureMessages: api.FailureMessages,
		SuccessMessages: api.SuccessMessages,
	})

	var budget *retry.Budget
	if cfg.Cache.RetryBudgetBurst > 0 {
		budget = retry.NewBudget(cfg.Cache.RetryBudgetPercent, cfg.Cache.RetryBudgetBurst)
	}
	a.cache = cache.New(cache.Config{
		DefaultStaleTime: cfg.Cache.StaleTime,
		DefaultRetry:     cfg.Cache.Retry,
		GCTime:           cfg.Cache.GCTime,
		RetryBackoff:     cfg.Cache.RetryBackoff,
		RetryBudget:      budget,
		MaxFlights:       cfg.Cache.MaxFlights,
		Logger:           logger,
		Metrics:          metrics,
		OnMutationError:  a.auth.HandleMutationError,
	})
	a.cache.Start(ctx)
	a.closers = append(a.closers, a.cache.Close)

	b, err := a.dialBackend(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if cfg.Backend.Breaker.FailureRatePercent > 0 {
		b = backend.WithBreaker(b, a.newBreaker(), logger)
	}
	a.client, err = api.New(api.Config{
		Cache:   a.cache,
		Backend: b,
		Session: a.session,
		Auth:    a.auth,
		Logger:  logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr)
	}
	return a, nil
}

func (a *app) dialBackend(ctx context.Context) (backend.Backend, error) {
	switch a.cfg.Backend.Transport {
	case config.TransportGRPC:
		b, err := backend.DialGRPC(ctx, a.cfg.Backend.GRPCAddr, a.cfg.Backend.Timeout, backend.GRPCConfig{
			Tokens:  a.session,
			Logger:  a.logger,
			Metrics: a.metrics,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return b.Close() })
		return b, nil
	case config.TransportMemory:
		return backend.NewMemory(backend.MemoryConfig{Logger: a.logger}), nil
	default:
		b, err := backend.NewHTTP(backend.HTTPConfig{
			BaseURL: a.cfg.Backend.BaseURL,
			Timeout: a.cfg.Backend.Timeout,
			Tokens:  a.session,
			Logger:  a.logger,
			Metrics: a.metrics,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

func (a *app) newBreaker() *breaker.Breaker {
	cfg := a.cfg.Backend.Breaker
	return breaker.New(breaker.Config{
		FailureRatePercent: cfg.FailureRatePercent,
		MinimumRequests:    cfg.MinimumRequests,
		Window:             cfg.Window,
		OpenDuration:       cfg.OpenDuration,
		OnStateChange: func(from breaker.State, to breaker.State) {
			a.logger.Warn("backend circuit changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.closers = append(a.closers, server.Shutdown)
}

// Close lets a pending login redirect run, then releases everything in
// reverse order of acquisition.
func (a *app) Close() error {
	deadline := time.Now().Add(a.cfg.Auth.RedirectDelay + 100*time.Millisecond)
	for a.auth != nil && a.auth.Pending() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
