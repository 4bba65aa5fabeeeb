// Package config provides configuration loading and validation for the dashboard server.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Environment names recognised by APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Defaults applied when neither the config file nor the environment sets a value.
const (
	DefaultPort           = 3000
	DefaultBackendURL     = "http://localhost:8005"
	DefaultBackendTimeout = 30 * time.Second
	DefaultPageSize       = 20
	DefaultPagerCacheSize = 1024
	MaxPageSize           = 100
)

// Config holds the server configuration.
type Config struct {
	Port            int
	BackendURL      string
	Environment     string
	LocalDevBypass  bool
	BackendTimeout  time.Duration
	BackendRetryMax int
	SessionSecret   string
	PageSize        int
	PagerCacheSize  int
	LogJSON         bool
	Debug           bool
	RateLimit       RateLimitConfig
}

// RateLimitConfig configures request throttling.
type RateLimitConfig struct {
	Enabled       bool
	DefaultLimit  int
	DefaultWindow time.Duration
	Whitelist     []string
}

// Load reads configuration from the environment and, when path is non-empty,
// from a config file (yaml, toml or json by extension). Environment variables
// win over file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	cfg := &Config{
		Port:            v.GetInt("port"),
		BackendURL:      v.GetString("backend_url"),
		Environment:     strings.ToLower(strings.TrimSpace(v.GetString("app_env"))),
		LocalDevBypass:  v.GetBool("local_dev_bypass"),
		BackendTimeout:  v.GetDuration("backend_timeout"),
		BackendRetryMax: v.GetInt("backend_retry_max"),
		SessionSecret:   v.GetString("session_secret"),
		PageSize:        v.GetInt("page_size"),
		PagerCacheSize:  v.GetInt("pager_cache_size"),
		LogJSON:         v.GetBool("log_json"),
		Debug:           v.GetBool("debug"),
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("rate_limit.enabled"),
			DefaultLimit:  v.GetInt("rate_limit.default_limit"),
			DefaultWindow: v.GetDuration("rate_limit.default_window"),
			Whitelist:     splitList(v.GetString("rate_limit.whitelist")),
		},
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("backend_url", DefaultBackendURL)
	v.SetDefault("app_env", EnvDevelopment)
	v.SetDefault("local_dev_bypass", false)
	v.SetDefault("backend_timeout", DefaultBackendTimeout)
	v.SetDefault("backend_retry_max", 0)
	v.SetDefault("session_secret", "")
	v.SetDefault("page_size", DefaultPageSize)
	v.SetDefault("pager_cache_size", DefaultPagerCacheSize)
	v.SetDefault("log_json", false)
	v.SetDefault("debug", false)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_limit", 600)
	v.SetDefault("rate_limit.default_window", time.Minute)
	v.SetDefault("rate_limit.whitelist", "")
}

// normalize validates the configuration and fills derived values.
func (c *Config) normalize() error {
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Newf("config error: invalid BACKEND_URL %q", c.BackendURL)
	}

	if c.Port < 1 || c.Port > 65535 {
		return errors.Newf("config error: PORT must be between 1 and 65535, got: %d", c.Port)
	}
	if c.BackendTimeout <= 0 {
		return errors.Newf("config error: BACKEND_TIMEOUT must be positive, got: %s", c.BackendTimeout)
	}
	if c.BackendRetryMax < 0 {
		return errors.Newf("config error: BACKEND_RETRY_MAX must be non-negative, got: %d", c.BackendRetryMax)
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return errors.Newf("config error: PAGE_SIZE must be between 1 and %d, got: %d", MaxPageSize, c.PageSize)
	}
	if c.PagerCacheSize < 1 {
		return errors.Newf("config error: PAGER_CACHE_SIZE must be at least 1, got: %d", c.PagerCacheSize)
	}
	if c.RateLimit.Enabled && (c.RateLimit.DefaultLimit < 1 || c.RateLimit.DefaultWindow <= 0) {
		return errors.New("config error: rate limit requires a positive default limit and window")
	}

	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}

	if c.SessionSecret == "" {
		if c.IsProduction() {
			return errors.WithHint(
				errors.New("config error: SESSION_SECRET is required in production"),
				"set SESSION_SECRET to a random string of at least 32 characters",
			)
		}
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		c.SessionSecret = secret
	}
	return nil
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// BypassEnabled reports whether the local development auth bypass is active.
// The bypass is never honoured in production.
func (c *Config) BypassEnabled() bool {
	return c.LocalDevBypass && !c.IsProduction()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate session secret")
	}
	return hex.EncodeToString(b), nil
}

func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
