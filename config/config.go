// Package config loads server configuration from the environment.
package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// Server governs the HTTP listener and store paths.
type Server struct {
	ListenAddr string `env:"LISTEN_ADDR, default=0.0.0.0:8080"`
	DBPath     string `env:"DB_PATH, default=punchclock.db"`

	// JWTSecret signs bearer tokens. Required outside of dev.
	JWTSecret string `env:"JWT_SECRET, default=dev-secret-change-me"`

	// AllowedOrigins is the CORS allow-list for browser clients.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=http://localhost:5173"`

	// DailyTargetSeconds is the per-day work target used for balance math.
	DailyTargetSeconds int64 `env:"DAILY_TARGET_SECONDS, default=28800"`
}

// Logging controls structured logging settings.
type Logging struct {
	Level  string `env:"LOG_LEVEL, default=info"`
	Format string `env:"LOG_FORMAT, default=text"` // text|json
}

// Config aggregates application configuration values.
type Config struct {
	Server  Server  `env:",prefix=PUNCH_"`
	Logging Logging `env:",prefix=PUNCH_"`
}

// Load reads configuration from environment variables, applying defaults.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
