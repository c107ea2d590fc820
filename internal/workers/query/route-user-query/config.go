// internal/workers/query/route-user-query/config.go
package routeuserquery

import (
	"time"

	"query-router/internal/common/config"
)

type Config struct {
	Timeout        time.Duration
	CacheTTL       time.Duration
	CacheKeyPrefix string
	MaxQueryLength int
}

func LoadConfig(wc config.WorkerConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Config{
		Timeout:        timeout,
		CacheTTL:       time.Duration(wc.CacheTTL) * time.Second,
		CacheKeyPrefix: "query-router:route:",
		MaxQueryLength: 2000,
	}
}
