package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment with the CHAT_ prefix; cmd/main loads
// a local .env file first when present.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:"host=localhost user=user password=password dbname=fadechat port=5432 sslmode=disable"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// PendingTTL bounds how long an unpersisted message stays staged in the
	// cache before expiring on its own.
	PendingTTL time.Duration `envconfig:"PENDING_TTL" default:"5m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("chat", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
