package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Validate rejects configurations the client cannot run with and returns
// warnings for ones that work but are probably unintended.
func Validate(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	warnings := []string{}
	if err := validateBackend(cfg, &warnings); err != nil {
		return warnings, err
	}
	if err := validateCache(cfg, &warnings); err != nil {
		return warnings, err
	}
	if err := validateAuth(cfg, &warnings); err != nil {
		return warnings, err
	}
	if err := validateLog(cfg); err != nil {
		return warnings, err
	}
	return warnings, nil
}

func validateBackend(cfg *Config, warnings *[]string) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend.Transport)) {
	case TransportHTTP:
		parsed, err := url.Parse(cfg.Backend.BaseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("backend.base_url %q must be an absolute url", cfg.Backend.BaseURL)
		}
		if parsed.Scheme == "http" && !isLoopback(parsed.Hostname()) {
			*warnings = append(*warnings, "backend.base_url uses plain http to a remote host")
		}
	case TransportGRPC:
		if strings.TrimSpace(cfg.Backend.GRPCAddr) == "" {
			return errors.New("backend.grpc_addr is required for grpc transport")
		}
	case TransportMemory:
		*warnings = append(*warnings, "backend.transport memory serves fixture data only")
	default:
		return fmt.Errorf("backend.transport %q must be http, grpc or memory", cfg.Backend.Transport)
	}
	if cfg.Backend.Timeout < 0 {
		return errors.New("backend.timeout must be >= 0")
	}
	breaker := cfg.Backend.Breaker
	if breaker.FailureRatePercent < 0 || breaker.FailureRatePercent > 100 {
		return errors.New("backend.breaker.failure_rate_percent must be within 0..100")
	}
	if breaker.MinimumRequests < 0 || breaker.Window < 0 || breaker.OpenDuration < 0 {
		return errors.New("backend.breaker values must be >= 0")
	}
	return nil
}

func validateCache(cfg *Config, warnings *[]string) error {
	if cfg.Cache.StaleTime < 0 {
		return errors.New("cache.stale_time must be >= 0")
	}
	if cfg.Cache.GCTime < 0 {
		return errors.New("cache.gc_time must be >= 0")
	}
	if cfg.Cache.Retry < -1 {
		return errors.New("cache.retry must be >= -1")
	}
	if cfg.Cache.RetryBackoff < 0 {
		return errors.New("cache.retry_backoff must be >= 0")
	}
	if cfg.Cache.MaxFlights < 0 {
		return errors.New("cache.max_flights must be >= 0")
	}
	if cfg.Cache.RetryBudgetBurst < 0 {
		return errors.New("cache.retry_budget_burst must be >= 0")
	}
	if cfg.Cache.RetryBudgetPercent < 0 || cfg.Cache.RetryBudgetPercent > 100 {
		return errors.New("cache.retry_budget_percent must be within 0..100")
	}
	if cfg.Cache.RetryBudgetBurst > 0 && cfg.Cache.RetryBudgetPercent == 0 {
		*warnings = append(*warnings, "cache.retry_budget_percent 0 never refills the retry budget")
	}
	if cfg.Cache.Retry > 10 {
		*warnings = append(*warnings, fmt.Sprintf("cache.retry %d delays error states for a long time", cfg.Cache.Retry))
	}
	if cfg.Cache.StaleTime > 0 && cfg.Cache.GCTime > 0 && cfg.Cache.StaleTime > cfg.Cache.GCTime {
		*warnings = append(*warnings, "cache.stale_time exceeds cache.gc_time")
	}
	return nil
}

func validateAuth(cfg *Config, warnings *[]string) error {
	if !strings.HasPrefix(cfg.Auth.LoginPath, "/") {
		return fmt.Errorf("auth.login_path %q must start with /", cfg.Auth.LoginPath)
	}
	if cfg.Auth.RedirectDelay < 0 {
		return errors.New("auth.redirect_delay must be >= 0")
	}
	if cfg.Auth.RedirectDelay > 5*time.Second {
		*warnings = append(*warnings, "auth.redirect_delay above 5s keeps logged-out users waiting")
	}
	if cfg.Auth.TokenSecret != "" && len(cfg.Auth.TokenSecret) < 32 {
		*warnings = append(*warnings, "auth.token_secret shorter than 32 bytes")
	}
	return nil
}

func validateLog(cfg *Config) error {
	if cfg.Log.Level != "" {
		if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "json", "console":
		return nil
	default:
		return fmt.Errorf("log.format %q must be json or console", cfg.Log.Format)
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
