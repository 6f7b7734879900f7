package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"taxclient/internal/apperr"
	"taxclient/internal/obs"
)

const (
	DefaultTimeout  = 15 * time.Second
	maxResponseSize = 8 << 20
)

var ErrResponseTooLarge = errors.New("backend response too large")

type HTTPConfig struct {
	BaseURL   string
	Timeout   time.Duration
	Transport TransportOptions
	// Client overrides the http.Client built from Transport.
	Client  *http.Client
	Tokens  TokenSource
	Logger  *zap.Logger
	Metrics *obs.Metrics
	Tracer  trace.Tracer
}

// HTTP talks REST/JSON to the tax service.
type HTTP struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	logger  *zap.Logger
	metrics *obs.Metrics
	tracer  trace.Tracer
}

func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Transport: NewTransport(cfg.Transport), Timeout: timeout}
	}
	return &HTTP{
		baseURL: baseURL,
		client:  client,
		tokens:  cfg.Tokens,
		logger:  obs.Logger(cfg.Logger).Named("backend.http"),
		metrics: cfg.Metrics,
		tracer:  obs.Tracer(cfg.Tracer),
	}, nil
}

func (h *HTTP) Do(ctx context.Context, method string, path string, body any) (data []byte, err error) {
	ctx, span := obs.StartSpan(ctx, h.tracer, "backend.http",
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)
	defer func() { obs.EndSpan(span, err) }()

	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if h.tokens != nil {
		token, err := h.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("session token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.metrics.RecordBackendCall("http", method, 0)
		return nil, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	h.metrics.RecordBackendCall("http", method, resp.StatusCode)

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxResponseSize {
		return nil, fmt.Errorf("%s %s: %w (limit %d bytes)", method, path, ErrResponseTooLarge, maxResponseSize)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.logger.Debug("backend returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, apperr.NewStatusError(resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
