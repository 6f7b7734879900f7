package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	warnings, err := Validate(&cfg)
	if err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestParseYAMLOverlaysDefaults(t *testing.T) {
	cfg, err := ParseYAML([]byte(`
backend:
  transport: grpc
  grpc_addr: 127.0.0.1:7000
cache:
  stale_time: 30s
  retry: -1
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Backend.Transport != TransportGRPC || cfg.Backend.GRPCAddr != "127.0.0.1:7000" {
		t.Fatalf("backend not applied: %+v", cfg.Backend)
	}
	if cfg.Cache.StaleTime != 30*time.Second {
		t.Fatalf("expected stale_time 30s, got %s", cfg.Cache.StaleTime)
	}
	if cfg.Cache.Retry != -1 {
		t.Fatalf("expected retry -1, got %d", cfg.Cache.Retry)
	}
	if cfg.Auth.LoginPath != "/api/login" {
		t.Fatalf("expected default login path kept, got %q", cfg.Auth.LoginPath)
	}
}

func TestParseYAMLRejectsGarbage(t *testing.T) {
	if _, err := ParseYAML([]byte("backend: [")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyEnvOverridesFile(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, map[string]string{
		"TAXDESK_BACKEND_BASE_URL":    "https://api.example.in",
		"TAXDESK_CACHE_RETRY":         "1",
		"TAXDESK_AUTH_REDIRECT_DELAY": "2s",
		"TAXDESK_LOG_FORMAT":          "console",
		"UNRELATED_BACKEND_BASE_URL":  "http://ignored",
	})
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Backend.BaseURL != "https://api.example.in" {
		t.Fatalf("base url not overridden: %q", cfg.Backend.BaseURL)
	}
	if cfg.Cache.Retry != 1 {
		t.Fatalf("expected retry 1, got %d", cfg.Cache.Retry)
	}
	if cfg.Auth.RedirectDelay != 2*time.Second {
		t.Fatalf("expected redirect delay 2s, got %s", cfg.Auth.RedirectDelay)
	}
	if cfg.Log.Format != "console" {
		t.Fatalf("expected console format, got %q", cfg.Log.Format)
	}
}

func TestApplyEnvBadDuration(t *testing.T) {
	cfg := Default()
	if err := ApplyEnv(&cfg, map[string]string{"TAXDESK_CACHE_GC_TIME": "soon"}); err == nil {
		t.Fatalf("expected error for bad duration")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxdesk.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  transport: memory\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Transport != TransportMemory {
		t.Fatalf("expected memory transport, got %q", cfg.Backend.Transport)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "fixture") {
		t.Fatalf("expected fixture warning, got %v", warnings)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown transport", func(c *Config) { c.Backend.Transport = "smtp" }, "backend.transport"},
		{"relative base url", func(c *Config) { c.Backend.BaseURL = "/api" }, "backend.base_url"},
		{"grpc without addr", func(c *Config) { c.Backend.Transport = TransportGRPC; c.Backend.GRPCAddr = "" }, "grpc_addr"},
		{"negative stale time", func(c *Config) { c.Cache.StaleTime = -time.Second }, "stale_time"},
		{"retry below none", func(c *Config) { c.Cache.Retry = -2 }, "cache.retry"},
		{"login path", func(c *Config) { c.Auth.LoginPath = "login" }, "login_path"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Validate(&cfg)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %v", tc.want, err)
			}
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.Backend.BaseURL = "http://tax.example.in"
	cfg.Cache.StaleTime = time.Hour
	cfg.Cache.GCTime = time.Minute
	cfg.Auth.TokenSecret = "short"

	warnings, err := Validate(&cfg)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %v", warnings)
	}
}

func TestValidateNil(t *testing.T) {
	if _, err := Validate(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestValidateRetryBudget(t *testing.T) {
	cfg := Default()
	cfg.Cache.RetryBudgetBurst = 20
	warnings, err := Validate(&cfg)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "retry_budget_percent") {
		t.Fatalf("expected refill warning, got %v", warnings)
	}

	cfg.Cache.RetryBudgetPercent = 150
	if _, err := Validate(&cfg); err == nil {
		t.Fatalf("expected error for percent above 100")
	}
}
