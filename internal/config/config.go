package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Store backend selectors for SessionStore.
const (
	StoreBolt  = "bolt"
	StoreRedis = "redis"
)

// Config holds all application configuration.
type Config struct {
	AppName          string        `env:"APP_NAME" envDefault:"Admin Console"`
	ListenAddr       string        `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	DirectoryBaseURL string        `env:"DIRECTORY_BASE_URL,required"`
	DirectoryTimeout time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"10s"`
	StoreBackend     string        `env:"SESSION_STORE" envDefault:"bolt"`
	BoltPath         string        `env:"SESSION_BOLT_PATH" envDefault:"./data/session.db"`
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisKeyPrefix   string        `env:"REDIS_KEY_PREFIX" envDefault:"console"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// .env file is optional, mainly for local development
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
