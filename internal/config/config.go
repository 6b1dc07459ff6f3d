// Package config assembles the server configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML file
// named by DIGEST_CONFIG_FILE, then environment variables (a .env file is loaded
// first and never overrides variables already set). Invalid environment values
// fall back to the layer below with a warning instead of failing startup.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	pkgconfig "daily-digest/internal/pkg/config"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	TianAPI TianAPIConfig `yaml:"tianapi"`
	Bing    BingConfig    `yaml:"bing"`
	Digest  DigestConfig  `yaml:"digest"`
	Prewarm PrewarmConfig `yaml:"prewarm"`
	Log     LogConfig     `yaml:"log"`
}

// HTTPConfig configures the listener and middleware.
type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	RateLimit         int           `yaml:"rate_limit"`
	RateWindow        time.Duration `yaml:"rate_window"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
}

// TianAPIConfig configures the almanac, horoscope and quote upstream.
type TianAPIConfig struct {
	Key           string        `yaml:"key"`
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

// LogValue keeps the credential out of logs.
func (c TianAPIConfig) LogValue() slog.Value {
	key := "unset"
	if strings.TrimSpace(c.Key) != "" {
		key = "set"
	}
	return slog.GroupValue(
		slog.String("key", key),
		slog.String("base_url", c.BaseURL),
		slog.Duration("timeout", c.Timeout),
		slog.Float64("rate_per_second", c.RatePerSecond),
		slog.Int("burst", c.Burst),
	)
}

// BingConfig configures the background image upstream.
type BingConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Market     string        `yaml:"market"`
	Resolution string        `yaml:"resolution"`
	Timeout    time.Duration `yaml:"timeout"`
}

// RetryConfig is a bounded linear backoff policy.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
}

// DigestConfig configures the aggregator and its caches.
type DigestConfig struct {
	Timezone         string        `yaml:"timezone"`
	CacheExpiry      time.Duration `yaml:"cache_expiry"`
	InterCallSpacing time.Duration `yaml:"inter_call_spacing"`
	SweepRetry       RetryConfig   `yaml:"sweep_retry"`
	ClientRetry      RetryConfig   `yaml:"client_retry"`
}

// PrewarmConfig configures the scheduled cache warm-up.
type PrewarmConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			RequestTimeout:    60 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimit:         60,
			RateWindow:        time.Minute,
		},
		TianAPI: TianAPIConfig{
			BaseURL:       "https://apis.tianapi.com",
			Timeout:       10 * time.Second,
			RatePerSecond: 1,
			Burst:         1,
		},
		Bing: BingConfig{
			BaseURL:    "https://www.bing.com",
			Market:     "zh-CN",
			Resolution: "1920x1080",
			Timeout:    10 * time.Second,
		},
		Digest: DigestConfig{
			Timezone:         "Asia/Shanghai",
			CacheExpiry:      24 * time.Hour,
			InterCallSpacing: 1100 * time.Millisecond,
			SweepRetry:       RetryConfig{MaxRetries: 1, BaseDelay: 500 * time.Millisecond},
			ClientRetry:      RetryConfig{MaxRetries: 2, BaseDelay: time.Second},
		},
		Prewarm: PrewarmConfig{
			Enabled:  true,
			Schedule: "5 0 * * *",
			Timeout:  5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Configured reports whether the upstream credential is present.
func (c *Config) Configured() bool {
	return strings.TrimSpace(c.TianAPI.Key) != ""
}

// Location resolves the digest timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Digest.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadFile overlays the YAML file at path onto base.
// Keys missing from the file keep base's value.
func LoadFile(path string, base Config) (Config, error) {
	// #nosec G304 -- path comes from the operator's environment
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load resolves the configuration from defaults, the optional YAML file and the environment.
// Only an unreadable or invalid YAML file, or a result that fails Validate, is an error.
func Load(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	envFile := pkgconfig.LoadEnvString("DIGEST_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else {
		logger.Debug("environment file loaded", slog.String("path", envFile))
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("DIGEST_CONFIG_FILE")); path != "" {
		var err error
		if cfg, err = LoadFile(path, cfg); err != nil {
			return nil, err
		}
		logger.Info("config file loaded", slog.String("path", path))
	}

	t := pkgconfig.NewTracker(logger, metrics)
	applyEnv(t, &cfg)
	t.Finish()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Configured() {
		logger.Warn("TIANAPI_KEY is not set; lunar, horoscope and quote feeds will report not configured")
	}
	return &cfg, nil
}

func applyEnv(t *pkgconfig.Tracker, cfg *Config) {
	positive := pkgconfig.ValidatePositiveDuration
	retries := func(v int) error { return pkgconfig.ValidateIntRange(v, 0, 10) }
	delay := func(d time.Duration) error { return pkgconfig.ValidateDuration(d, 0, time.Minute) }

	cfg.HTTP.Addr = pkgconfig.LoadEnvString("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.RequestTimeout = pkgconfig.Apply(t, "request_timeout",
		pkgconfig.LoadEnvDuration("REQUEST_TIMEOUT", cfg.HTTP.RequestTimeout, positive))
	cfg.HTTP.RateLimit = pkgconfig.Apply(t, "http_rate_limit",
		pkgconfig.LoadEnvInt("HTTP_RATE_LIMIT", cfg.HTTP.RateLimit, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 0, 100000)
		}))
	cfg.HTTP.RateWindow = pkgconfig.Apply(t, "http_rate_window",
		pkgconfig.LoadEnvDuration("HTTP_RATE_WINDOW", cfg.HTTP.RateWindow, positive))
	cfg.HTTP.TrustProxyHeaders = pkgconfig.Apply(t, "trust_proxy_headers",
		pkgconfig.LoadEnvBool("TRUST_PROXY_HEADERS", cfg.HTTP.TrustProxyHeaders))
	cfg.HTTP.AllowedOrigins = pkgconfig.LoadEnvStringList("CORS_ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins)

	cfg.TianAPI.Key = strings.TrimSpace(pkgconfig.LoadEnvString("TIANAPI_KEY", cfg.TianAPI.Key))
	cfg.TianAPI.BaseURL = pkgconfig.Apply(t, "tianapi_base_url",
		pkgconfig.LoadEnvWithFallback("TIANAPI_BASE_URL", cfg.TianAPI.BaseURL, pkgconfig.ValidateBaseURL))
	cfg.TianAPI.Timeout = pkgconfig.Apply(t, "upstream_timeout",
		pkgconfig.LoadEnvDuration("UPSTREAM_TIMEOUT", cfg.TianAPI.Timeout, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, 100*time.Millisecond, 2*time.Minute)
		}))
	if os.Getenv("UPSTREAM_TIMEOUT") != "" {
		cfg.Bing.Timeout = cfg.TianAPI.Timeout
	}
	cfg.TianAPI.RatePerSecond = pkgconfig.Apply(t, "upstream_rate_per_second",
		pkgconfig.LoadEnvFloat("UPSTREAM_RATE_PER_SECOND", cfg.TianAPI.RatePerSecond, func(v float64) error {
			return pkgconfig.ValidateFloatRange(v, 0, 100)
		}))

	cfg.Bing.BaseURL = pkgconfig.Apply(t, "bing_base_url",
		pkgconfig.LoadEnvWithFallback("BING_BASE_URL", cfg.Bing.BaseURL, pkgconfig.ValidateBaseURL))

	cfg.Digest.Timezone = pkgconfig.Apply(t, "timezone",
		pkgconfig.LoadEnvWithFallback("DIGEST_TIMEZONE", cfg.Digest.Timezone, pkgconfig.ValidateTimezone))
	cfg.Digest.CacheExpiry = pkgconfig.Apply(t, "cache_expiry",
		pkgconfig.LoadEnvDuration("CACHE_EXPIRY_DURATION", cfg.Digest.CacheExpiry, positive))
	cfg.Digest.InterCallSpacing = pkgconfig.Apply(t, "inter_call_spacing",
		pkgconfig.LoadEnvDuration("INTER_CALL_SPACING", cfg.Digest.InterCallSpacing, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, 0, 10*time.Second)
		}))
	cfg.Digest.SweepRetry.MaxRetries = pkgconfig.Apply(t, "sweep_max_retries",
		pkgconfig.LoadEnvInt("SWEEP_MAX_RETRIES", cfg.Digest.SweepRetry.MaxRetries, retries))
	cfg.Digest.SweepRetry.BaseDelay = pkgconfig.Apply(t, "sweep_retry_delay",
		pkgconfig.LoadEnvDuration("SWEEP_RETRY_DELAY", cfg.Digest.SweepRetry.BaseDelay, delay))
	cfg.Digest.ClientRetry.MaxRetries = pkgconfig.Apply(t, "client_max_retries",
		pkgconfig.LoadEnvInt("CLIENT_MAX_RETRIES", cfg.Digest.ClientRetry.MaxRetries, retries))
	cfg.Digest.ClientRetry.BaseDelay = pkgconfig.Apply(t, "client_retry_delay",
		pkgconfig.LoadEnvDuration("CLIENT_RETRY_DELAY", cfg.Digest.ClientRetry.BaseDelay, delay))

	cfg.Prewarm.Enabled = pkgconfig.Apply(t, "prewarm_enabled",
		pkgconfig.LoadEnvBool("PREWARM_ENABLED", cfg.Prewarm.Enabled))
	cfg.Prewarm.Schedule = pkgconfig.Apply(t, "prewarm_schedule",
		pkgconfig.LoadEnvWithFallback("PREWARM_SCHEDULE", cfg.Prewarm.Schedule, pkgconfig.ValidateCronSchedule))
	cfg.Prewarm.Timeout = pkgconfig.Apply(t, "prewarm_timeout",
		pkgconfig.LoadEnvDuration("PREWARM_TIMEOUT", cfg.Prewarm.Timeout, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, 10*time.Second, time.Hour)
		}))

	cfg.Log.Level = pkgconfig.LoadEnvString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = pkgconfig.LoadEnvString("LOG_FORMAT", cfg.Log.Format)
}

// Validate checks the values the environment layer cannot repair,
// mostly those that came from the YAML file.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, fmt.Errorf("http addr: cannot be empty"))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.HTTP.RequestTimeout); err != nil {
		errs = append(errs, fmt.Errorf("request timeout: %w", err))
	}
	if err := pkgconfig.ValidateBaseURL(c.TianAPI.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("tianapi base url: %w", err))
	}
	if err := pkgconfig.ValidateBaseURL(c.Bing.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("bing base url: %w", err))
	}
	if err := pkgconfig.ValidateTimezone(c.Digest.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("digest timezone: %w", err))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Digest.CacheExpiry); err != nil {
		errs = append(errs, fmt.Errorf("cache expiry: %w", err))
	}
	if c.Digest.InterCallSpacing < 0 {
		errs = append(errs, fmt.Errorf("inter call spacing: cannot be negative"))
	}
	for name, r := range map[string]RetryConfig{"sweep": c.Digest.SweepRetry, "client": c.Digest.ClientRetry} {
		if r.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("%s retry: max retries cannot be negative", name))
		}
		if r.BaseDelay < 0 {
			errs = append(errs, fmt.Errorf("%s retry: base delay cannot be negative", name))
		}
	}
	if c.Prewarm.Enabled {
		if err := pkgconfig.ValidateCronSchedule(c.Prewarm.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("prewarm schedule: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}
	return nil
}
