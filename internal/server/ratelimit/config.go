package ratelimit

import (
	"time"

	"github.com/jonathan/job-dashboard/internal/config"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern: exact, prefix ending in "/", or with "*" segments
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// DefaultCleanupInterval is how often idle buckets are swept.
const DefaultCleanupInterval = 5 * time.Minute

// FromConfig builds the limiter configuration from the server config.
func FromConfig(c config.RateLimitConfig) *Config {
	if !c.Enabled {
		return &Config{Enabled: false}
	}

	whitelist := make(map[string]bool, len(c.Whitelist))
	for _, ip := range c.Whitelist {
		whitelist[ip] = true
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    c.DefaultLimit,
		DefaultWindow:   c.DefaultWindow,
		CleanupInterval: DefaultCleanupInterval,
		Whitelist:       whitelist,
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: AI-backed backend work
		{Path: "/api/jobs/*/analyze", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/api/jobs/*/cover-letter", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/api/jobs/ingest", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		// Tier 2: key verification
		{Path: "/api/auth/verify", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},

		// Tier 3: writes
		{Path: "/api/jobs", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/api/jobs/", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/api/jobs/", Method: "PATCH", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/api/jobs/", Method: "DELETE", Limit: 60, Window: time.Minute, Burst: 10},

		// Reads use the default limit; /health and /static/ are unlimited.
	}
}
