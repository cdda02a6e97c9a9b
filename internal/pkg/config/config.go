package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// DefaultJWTSecret signs tokens when JWT_SECRET is unset. It exists so a fresh
// checkout runs without setup; deployments must override it.
const DefaultJWTSecret = "lms-insecure-development-secret"

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`

	JWT       JWTConfig
	Password  PasswordConfig
	Store     StoreConfig
	Mongo     MongoConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Seed      SeedConfig
	Audit     AuditConfig
}

type JWTConfig struct {
	Secret        string        `env:"JWT_SECRET"`
	Issuer        string        `env:"JWT_ISSUER,    default=lms-api"`
	LoginTTL      time.Duration `env:"JWT_LOGIN_TTL, default=168h"`
	ShortLivedTTL time.Duration `env:"JWT_SHORT_TTL, default=60m"`
}

type PasswordConfig struct {
	Algorithm  string `env:"PASSWORD_ALGORITHM, default=bcrypt"`
	BcryptCost int    `env:"BCRYPT_COST,        default=10"`
}

type StoreConfig struct {
	Backend string `env:"CREDENTIAL_STORE, default=mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=lms"`
}

type PostgresConfig struct {
	URL string `env:"DATABASE_URL"`
}

type RedisConfig struct {
	// Addr enables Redis when non-empty.
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
	// IdentityCacheTTL > 0 caches resolved identities; 0 reads the store on every request.
	IdentityCacheTTL time.Duration `env:"IDENTITY_CACHE_TTL, default=0s"`
}

type RateLimitConfig struct {
	LoginPerMinute float64 `env:"LOGIN_RATE_PER_MINUTE, default=10"`
	LoginBurst     int     `env:"LOGIN_RATE_BURST,      default=5"`
}

type SeedConfig struct {
	AdminEmail    string `env:"SEED_ADMIN_EMAIL"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = DefaultJWTSecret
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// UsingDefaultSecret reports whether tokens are signed with DefaultJWTSecret.
func (c *Config) UsingDefaultSecret() bool {
	return c.JWT.Secret == DefaultJWTSecret
}

// IsDevelopment reports whether ENV selects the development profile.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) validate() error {
	var errs []error

	switch c.Store.Backend {
	case StoreMongo, StoreMemory:
	case StorePostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when CREDENTIAL_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("CREDENTIAL_STORE must be one of mongo, postgres, memory; got %q", c.Store.Backend))
	}

	switch c.Password.Algorithm {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_ALGORITHM must be bcrypt or argon2id; got %q", c.Password.Algorithm))
	}

	if c.JWT.LoginTTL <= 0 || c.JWT.ShortLivedTTL <= 0 {
		errs = append(errs, errors.New("JWT_LOGIN_TTL and JWT_SHORT_TTL must be positive"))
	}
	if c.Redis.IdentityCacheTTL > 0 && c.Redis.Addr == "" {
		errs = append(errs, errors.New("IDENTITY_CACHE_TTL requires REDIS_ADDR"))
	}
	if (c.Seed.AdminEmail == "") != (c.Seed.AdminPassword == "") {
		errs = append(errs, errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}
