package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const Prefix = "threadline"

type Config struct {
	Addr string `envconfig:"ADDR" default:":8787"`
	// Content API
	ContentAPIURL     string        `envconfig:"CONTENT_API_URL" default:"http://localhost:8000/api/"`
	ContentAPITimeout time.Duration `envconfig:"CONTENT_API_TIMEOUT" default:"10s"`
	// Redis keeps the session blobs
	RedisURL      string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	SessionSecret string        `envconfig:"SESSION_SECRET" default:"threadline-dev-secret"`
	CORSOrigin    string        `envconfig:"CORS_ORIGIN" default:"*"`
	// Thread views
	ViewTTL         time.Duration `envconfig:"VIEW_TTL" default:"30m"`
	GuestName       string        `envconfig:"GUEST_NAME" default:"An danh"`
	CreatedAtPolicy string        `envconfig:"CREATED_AT_POLICY" default:"now"`
}

// Load reads THREADLINE_* variables on top of the defaults.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.ContentAPIURL == "" {
		return Config{}, fmt.Errorf("load config: content api url is required")
	}
	return cfg, nil
}
