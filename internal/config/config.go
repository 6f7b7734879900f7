package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// TAXDESK_BACKEND_BASE_URL.
const EnvPrefix = "TAXDESK_"

const (
	TransportHTTP   = "http"
	TransportGRPC   = "grpc"
	TransportMemory = "memory"
)

type Config struct {
	Backend BackendConfig `yaml:"backend" envPrefix:"BACKEND_"`
	Cache   CacheConfig   `yaml:"cache" envPrefix:"CACHE_"`
	Auth    AuthConfig    `yaml:"auth" envPrefix:"AUTH_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
}

type BackendConfig struct {
	Transport string        `yaml:"transport" env:"TRANSPORT"`
	BaseURL   string        `yaml:"base_url" env:"BASE_URL"`
	GRPCAddr  string        `yaml:"grpc_addr" env:"GRPC_ADDR"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Breaker   BreakerConfig `yaml:"breaker" envPrefix:"BREAKER_"`
}

// BreakerConfig of zero FailureRatePercent sends every call through.
type BreakerConfig struct {
	FailureRatePercent int           `yaml:"failure_rate_percent" env:"FAILURE_RATE_PERCENT"`
	MinimumRequests    int           `yaml:"minimum_requests" env:"MINIMUM_REQUESTS"`
	Window             time.Duration `yaml:"window" env:"WINDOW"`
	OpenDuration       time.Duration `yaml:"open_duration" env:"OPEN_DURATION"`
}

type CacheConfig struct {
	// StaleTime of zero keeps successful values fresh until invalidated.
	StaleTime    time.Duration `yaml:"stale_time" env:"STALE_TIME"`
	GCTime       time.Duration `yaml:"gc_time" env:"GC_TIME"`
	Retry        int           `yaml:"retry" env:"RETRY"`
	RetryBackoff time.Duration `yaml:"retry_backoff" env:"RETRY_BACKOFF"`
	MaxFlights   int           `yaml:"max_flights" env:"MAX_FLIGHTS"`
	// RetryBudgetBurst of zero leaves retries unbudgeted.
	RetryBudgetBurst   int `yaml:"retry_budget_burst" env:"RETRY_BUDGET_BURST"`
	RetryBudgetPercent int `yaml:"retry_budget_percent" env:"RETRY_BUDGET_PERCENT"`
}

type AuthConfig struct {
	LoginPath     string        `yaml:"login_path" env:"LOGIN_PATH"`
	RedirectDelay time.Duration `yaml:"redirect_delay" env:"REDIRECT_DELAY"`
	TokenSecret   string        `yaml:"token_secret" env:"TOKEN_SECRET"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

func Default() Config {
	return Config{
		Backend: BackendConfig{
			Transport: TransportHTTP,
			BaseURL:   "http://127.0.0.1:5000",
			GRPCAddr:  "127.0.0.1:5001",
			Timeout:   15 * time.Second,
		},
		Cache: CacheConfig{
			GCTime:       5 * time.Minute,
			Retry:        3,
			RetryBackoff: 250 * time.Millisecond,
		},
		Auth: AuthConfig{
			LoginPath:     "/api/login",
			RedirectDelay: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ParseYAML overlays data on top of the defaults.
func ParseYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides cfg with TAXDESK_* variables from environ.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load builds the configuration from defaults, the optional YAML file at
// path and the process environment, then validates it.
func Load(path string) (*Config, []string, error) {
	cfg := Default()
	loaded := &cfg
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
		if loaded, err = ParseYAML(data); err != nil {
			return nil, nil, err
		}
	}
	if err := ApplyEnv(loaded, nil); err != nil {
		return nil, nil, err
	}
	warnings, err := Validate(loaded)
	if err != nil {
		return nil, warnings, err
	}
	return loaded, warnings, nil
}
