package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func loadMap(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return load(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Env != "development" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.JWT.LoginTTL != 7*24*time.Hour || cfg.JWT.ShortLivedTTL != 60*time.Minute {
		t.Fatalf("unexpected ttls: %+v", cfg.JWT)
	}
	if !cfg.UsingDefaultSecret() {
		t.Fatalf("expected the development secret when JWT_SECRET is unset")
	}
	if cfg.Store.Backend != StoreMongo || cfg.Redis.IdentityCacheTTL != 0 {
		t.Fatalf("unexpected store defaults: %+v %+v", cfg.Store, cfg.Redis)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := loadMap(t, map[string]string{
		"JWT_SECRET":            "prod-secret",
		"JWT_SHORT_TTL":         "15m",
		"CREDENTIAL_STORE":      "postgres",
		"DATABASE_URL":          "postgres://lms@localhost/lms",
		"REDIS_ADDR":            "localhost:6379",
		"IDENTITY_CACHE_TTL":    "30s",
		"LOGIN_RATE_PER_MINUTE": "2.5",
		"PASSWORD_ALGORITHM":    "argon2id",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UsingDefaultSecret() || cfg.JWT.Secret != "prod-secret" {
		t.Fatalf("secret not applied")
	}
	if cfg.JWT.ShortLivedTTL != 15*time.Minute || cfg.Redis.IdentityCacheTTL != 30*time.Second {
		t.Fatalf("durations not applied: %+v %+v", cfg.JWT, cfg.Redis)
	}
	if cfg.RateLimit.LoginPerMinute != 2.5 {
		t.Fatalf("unexpected rate %v", cfg.RateLimit.LoginPerMinute)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown store":        {"CREDENTIAL_STORE": "sqlite"},
		"postgres without url": {"CREDENTIAL_STORE": "postgres"},
		"bad algorithm":        {"PASSWORD_ALGORITHM": "md5"},
		"cache without redis":  {"IDENTITY_CACHE_TTL": "1m"},
		"half seed":            {"SEED_ADMIN_EMAIL": "root@x.com"},
		"zero ttl":             {"JWT_LOGIN_TTL": "0s"},
		"bad duration":         {"JWT_LOGIN_TTL": "a week"},
	}
	for name, env := range cases {
		_, err := loadMap(t, env)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !strings.HasPrefix(err.Error(), "config:") {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}
}
