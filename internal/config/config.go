package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quiz-allocator"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres   Postgres
	Redis      Redis
	Security   Security
	Allocation Allocation
}

// Postgres captures connection info for the question bank and ledger database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders a pgx keyword/value connection string without pool settings,
// suitable for database/sql.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// ConnString is DSN plus pgxpool sizing.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("%s pool_max_conns=%d", p.DSN(), p.MaxConns)
}

// Redis holds lock + cache configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets shared with the platform's auth service.
type Security struct {
	JWTSecret string `env:"JWT_SECRET" envDefault:""`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:""`
}

// Allocation tunes the allocation engine.
type Allocation struct {
	DefaultPolicy string        `env:"ALLOCATION_DEFAULT_POLICY" envDefault:"strict"`
	MaxAttempts   int           `env:"ALLOCATION_MAX_ATTEMPTS" envDefault:"3"`
	LockBackend   string        `env:"ALLOCATION_LOCK_BACKEND" envDefault:"local"`
	LockTTL       time.Duration `env:"ALLOCATION_LOCK_TTL" envDefault:"10s"`
	LockWait      time.Duration `env:"ALLOCATION_LOCK_WAIT" envDefault:"5s"`
	LockPoll      time.Duration `env:"ALLOCATION_LOCK_POLL" envDefault:"25ms"`
	CacheTTL      time.Duration `env:"ALLOCATION_CACHE_TTL" envDefault:"30m"`
}

// Lock backends.
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPostgres parses only the Postgres settings, for tools like the migrator
// that do not need Redis or allocation config.
func LoadPostgres() (Postgres, error) {
	var pg Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return Postgres{}, fmt.Errorf("parse postgres config: %w", err)
	}
	return pg, nil
}

func (c *App) validate() error {
	switch c.Allocation.LockBackend {
	case LockBackendLocal, LockBackendRedis:
	default:
		return fmt.Errorf("ALLOCATION_LOCK_BACKEND must be %q or %q, got %q", LockBackendLocal, LockBackendRedis, c.Allocation.LockBackend)
	}
	if c.Allocation.MaxAttempts < 1 {
		return fmt.Errorf("ALLOCATION_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
