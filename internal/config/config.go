package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                int    `env:"PORT" envDefault:"8080"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	RedisURL            string `env:"REDIS_URL,required"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigin       string `env:"ALLOWED_ORIGIN" envDefault:""`
	BroadcastIntervalMS int    `env:"BROADCAST_INTERVAL_MS" envDefault:"1000"`
	LeaderboardTTLSecs  int    `env:"LEADERBOARD_CACHE_TTL_SECONDS" envDefault:"10"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) BroadcastInterval() time.Duration {
	return time.Duration(c.BroadcastIntervalMS) * time.Millisecond
}

func (c *Config) LeaderboardTTL() time.Duration {
	return time.Duration(c.LeaderboardTTLSecs) * time.Second
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
