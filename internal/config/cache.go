package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// Caching is disabled when Enabled is false or no Redis client is
// configured.  Only GET requests to one of Paths are cached; the cell
// catalog is the sole default since availability changes on every lease.
type CacheConfig struct {
	Enabled      bool
	Paths        map[string]bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Paths:        splitSet(envStr("CACHE_PATHS", "/v1/cell_types")),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func splitSet(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			m[p] = true
		}
	}
	return m
}
