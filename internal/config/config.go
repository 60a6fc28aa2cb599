package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	TestingMode bool

	ServerPort string

	UpstreamAPIKey  string
	UpstreamURL     string
	UpstreamTimeout time.Duration

	RequestTimeout time.Duration

	CacheBackend string // "in_memory" or "memcached"
	CacheTTL     time.Duration
	StaleTTL     time.Duration
	Coalesce     bool
	WarmCache    bool
	WarmInterval time.Duration

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int

	AllowIncludeHidden bool
	ModelIDMaxLength   int
}

type fileConfig struct {
	TestingMode *bool `yaml:"testing_mode"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Upstream struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"upstream"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend      string `yaml:"backend"`
		TTL          string `yaml:"ttl"`
		StaleTTL     string `yaml:"stale_ttl"`
		Coalesce     *bool  `yaml:"coalesce"`
		Warm         bool   `yaml:"warm"`
		WarmInterval string `yaml:"warm_interval"`
		Memcached    struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
		CircuitBreaker   struct {
			Enabled          bool   `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`

	Listing struct {
		AllowIncludeHidden bool `yaml:"allow_include_hidden"`
		ModelIDMaxLength   int  `yaml:"model_id_max_length"`
	} `yaml:"listing"`
}

type secretsFile struct {
	UpstreamAPIKey string `yaml:"upstream_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml.
// The upstream key comes from UPSTREAM_API_KEY env or the secrets file and may be empty
// for upstreams that need no auth. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}
	if fc.TestingMode != nil {
		cfg.TestingMode = *fc.TestingMode
	}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.UpstreamAPIKey = os.Getenv("UPSTREAM_API_KEY")
	if cfg.UpstreamAPIKey == "" {
		key, err := readSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
		if err != nil {
			return nil, err
		}
		cfg.UpstreamAPIKey = key
	}

	cfg.UpstreamURL = strings.TrimSpace(os.Getenv("UPSTREAM_URL"))
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = strings.TrimSpace(fc.Upstream.URL)
	}
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = "http://localhost:11434/v1/models"
	}
	cfg.UpstreamTimeout = parseDurationOrZero(fc.Upstream.Timeout, 5*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, time.Minute)
	cfg.StaleTTL = parseDurationOrZero(fc.Cache.StaleTTL, 10*time.Minute)
	if cfg.StaleTTL < 0 {
		cfg.StaleTTL = 0
	}
	cfg.Coalesce = true
	if fc.Cache.Coalesce != nil {
		cfg.Coalesce = *fc.Cache.Coalesce
	}
	cfg.WarmCache = fc.Cache.Warm
	cfg.WarmInterval = parseDurationOrZero(fc.Cache.WarmInterval, 0)

	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cb := fc.Reliability.CircuitBreaker
	cfg.CircuitBreakerEnabled = cb.Enabled
	cfg.CircuitBreakerFailureThreshold = cb.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = cb.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 1
	}
	cfg.CircuitBreakerTimeout = parseDuration(cb.Timeout, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.OverloadWindow = parseDuration(fc.Lifecycle.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Lifecycle.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 5
	}

	cfg.AllowIncludeHidden = fc.Listing.AllowIncludeHidden
	cfg.ModelIDMaxLength = fc.Listing.ModelIDMaxLength
	if cfg.ModelIDMaxLength <= 0 {
		cfg.ModelIDMaxLength = 256
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readSecrets returns upstream_api_key from path, or "" when the file does not exist.
func readSecrets(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.UpstreamAPIKey), nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. RequestTimeout is raised above
// UpstreamTimeout when needed so a request can outlive one upstream call.
func validate(cfg *Config) error {
	if cfg.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	u, err := url.Parse(cfg.UpstreamURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream.url must be an absolute http(s) URL, got %q", cfg.UpstreamURL)
	}
	if cfg.RequestTimeout <= cfg.UpstreamTimeout {
		cfg.RequestTimeout = cfg.UpstreamTimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.StaleTTL > 0 && cfg.StaleTTL < cfg.CacheTTL {
		return fmt.Errorf("cache.stale_ttl (%s) must be >= cache.ttl (%s)", cfg.StaleTTL, cfg.CacheTTL)
	}
	return nil
}
