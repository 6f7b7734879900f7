package backend

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"time"
)

// TransportOptions tune the connection pool of the HTTP backend. The
// client only ever talks to one host, so idle connections are capped per
// host. Zero fields fall back to the defaults in NewTransport.
type TransportOptions struct {
	DialTimeout           time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	MaxIdleConns          int
	// RootCAs replaces the system pool, e.g. for a staging CA.
	RootCAs *x509.CertPool
}

func NewTransport(opts TransportOptions) *http.Transport {
	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 16
	}
	dialer := &net.Dialer{
		Timeout:   orDefault(opts.DialTimeout, 2*time.Second),
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12, RootCAs: opts.RootCAs},
		TLSHandshakeTimeout:   orDefault(opts.TLSHandshakeTimeout, 5*time.Second),
		ResponseHeaderTimeout: orDefault(opts.ResponseHeaderTimeout, 10*time.Second),
		IdleConnTimeout:       orDefault(opts.IdleConnTimeout, 90*time.Second),
		MaxIdleConns:          maxIdle,
		MaxIdleConnsPerHost:   maxIdle,
		ForceAttemptHTTP2:     true,
	}
}

func orDefault(value time.Duration, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
