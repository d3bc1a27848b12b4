package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"lightning-rounds"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Bank     Bank
	Supabase Supabase
	Postgres Postgres
	Redis    Redis
	Live     Live
	CORS     CORS
}

// Bank configures the local file-backed question store.
type Bank struct {
	Path      string `env:"BANK_PATH" envDefault:"data/questions.json"`
	Persist   string `env:"BANK_PERSIST" envDefault:"none"`
	StatePath string `env:"BANK_STATE_PATH"`
}

// Supabase points at the hosted PostgREST endpoint. Both URL and key must be
// set for the remote backend to be selected.
type Supabase struct {
	URL        string        `env:"SUPABASE_URL"`
	ServiceKey string        `env:"SUPABASE_SERVICE_KEY"`
	Table      string        `env:"SUPABASE_TABLE" envDefault:"questions"`
	Timeout    time.Duration `env:"SUPABASE_HTTP_TIMEOUT" envDefault:"5s"`
}

// Postgres captures direct connection info for the SQL database.
type Postgres struct {
	URL             string        `env:"DATABASE_URL"`
	MaxConns        int32         `env:"PG_MAX_CONNS" envDefault:"10"`
	MaxConnLifetime time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`
}

// Redis holds asked-state persistence and live fan-out configuration.
// Redis is optional; an empty address disables it.
type Redis struct {
	Addr      string `env:"REDIS_ADDR"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize  int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"lightning"`
	Channel   string `env:"REDIS_SUMMARY_CHANNEL" envDefault:"lightning:summary"`
}

// Live controls summary pushes to WebSocket viewers.
type Live struct {
	// PollInterval re-checks the summary for changes made outside this
	// process. Zero disables polling.
	PollInterval time.Duration `env:"LIVE_POLL_INTERVAL" envDefault:"0s"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,X-Request-ID"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Backend names the question store chosen from which credentials are present.
func (c *App) Backend() string {
	switch {
	case c.Postgres.URL != "":
		return "postgres"
	case c.Supabase.URL != "" && c.Supabase.ServiceKey != "":
		return "supabase"
	default:
		return "local"
	}
}

// AskedKey is the Redis set holding asked ids for the local bank.
func (r Redis) AskedKey() string {
	return strings.TrimSuffix(r.KeyPrefix, ":") + ":asked"
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) validate() error {
	switch c.Bank.Persist {
	case "none", "file":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("BANK_PERSIST=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("BANK_PERSIST must be one of none, file, redis (got %q)", c.Bank.Persist)
	}
	return nil
}
