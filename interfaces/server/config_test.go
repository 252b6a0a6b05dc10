package server

import (
	"time"

	domainconfig "github.com/felixgeelhaar/hoopstats/domain/config"
)

func testServerConfig() domainconfig.ServerConfig {
	return domainconfig.ServerConfig{
		Addr:         ":8000",
		WriteTimeout: domainconfig.Duration(2 * time.Minute),
		RateLimit:    domainconfig.RateLimitConfig{Enabled: true, Rate: 2, Burst: 10},
	}
}
