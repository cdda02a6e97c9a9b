// @title           LMS API
// @version         1.0
// @description     Authentication and role-authorization gate of the learning platform.
// @BasePath        /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	_ "github.com/learnpath/lms-api/docs"
	"github.com/learnpath/lms-api/internal/api"
	"github.com/learnpath/lms-api/internal/api/handler"
	"github.com/learnpath/lms-api/internal/api/middleware"
	"github.com/learnpath/lms-api/internal/core/ports"
	"github.com/learnpath/lms-api/internal/core/service"
	"github.com/learnpath/lms-api/internal/infrastructure/db/memory"
	"github.com/learnpath/lms-api/internal/infrastructure/db/mongo"
	"github.com/learnpath/lms-api/internal/infrastructure/db/postgres"
	"github.com/learnpath/lms-api/internal/infrastructure/db/redis"
	"github.com/learnpath/lms-api/internal/infrastructure/queue"
	"github.com/learnpath/lms-api/internal/pkg/config"
	"github.com/learnpath/lms-api/pkg/logger"
)

const memoryEventLimit = 10000

// stores groups the persistence adapters selected by configuration.
type stores struct {
	users  ports.UserRepository
	events ports.AuthEventRepository
	ping   handler.Checker
	close  func(context.Context)
}

func main() {
	envErr := godotenv.Load()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "lms-api",
	})
	if envErr != nil {
		log.Debug().Msg("no .env file found; relying on existing environment")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.UsingDefaultSecret() {
		log.Warn().
			Str("env", cfg.Env).
			Msg("JWT_SECRET is not set; signing tokens with the built-in development secret. Set JWT_SECRET before exposing this service.")
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	readiness := map[string]handler.Checker{cfg.Store.Backend: st.ping}

	var cache ports.IdentityCache
	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		readiness["redis"] = redis.Pinger(rdb)

		if cfg.Redis.IdentityCacheTTL > 0 {
			cache = redis.NewIdentityCache(rdb, cfg.Redis.IdentityCacheTTL)
			log.Info().Dur("ttl", cfg.Redis.IdentityCacheTTL).Msg("identity cache enabled")
		}
	}

	hasher := service.NewPasswordHasher(cfg.Password.Algorithm, cfg.Password.BcryptCost)
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, service.TokenTTLs{
		Login:      cfg.JWT.LoginTTL,
		ShortLived: cfg.JWT.ShortLivedTTL,
	})
	resolver := service.NewIdentityResolver(tokens, st.users, cache, logger.Component("identity"))

	dispatcher := queue.NewDispatcher(
		cfg.Audit.Workers,
		service.NewAuditService(st.events, logger.Component("audit")),
		logger.Component("dispatcher"),
	)
	dispatcher.Start()

	authService := service.NewAuthService(st.users, hasher, tokens, dispatcher, logger.Component("auth"))
	userService := service.NewUserService(st.users, hasher, cache, dispatcher, logger.Component("users"))

	if cfg.Seed.AdminEmail != "" && cfg.Seed.AdminPassword != "" {
		created, err := userService.EnsureSeedAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		if created {
			log.Info().Msg("seed administrator created")
		}
	}

	e := api.NewRouter(api.Dependencies{
		Log:       log,
		Auth:      authService,
		Users:     userService,
		Resolver:  resolver,
		Readiness: readiness,
		LoginRate: middleware.RateLimitConfig{
			PerMinute: cfg.RateLimit.LoginPerMinute,
			Burst:     cfg.RateLimit.LoginBurst,
		},
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Backend).Msg("LMS API listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		_ = dispatcher.Close(context.Background())
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("audit queue not fully drained")
	}
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.Store.Backend {
	case config.StoreMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, err
		}
		users := mongo.NewUserRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")
		return &stores{
			users:  users,
			events: mongo.NewAuthEventRepository(db),
			ping:   mongo.Pinger(db),
			close:  func(ctx context.Context) { _ = client.Disconnect(ctx) },
		}, nil

	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("connected to Postgres")
		return &stores{
			users:  store,
			events: store,
			ping:   store.Ping,
			close:  func(context.Context) { store.Close() },
		}, nil

	case config.StoreMemory:
		store := memory.NewStore(memoryEventLimit)
		log.Warn().Msg("using in-memory credential store; accounts are lost on restart")
		return &stores{
			users:  store,
			events: store,
			ping:   store.Ping,
			close:  func(context.Context) {},
		}, nil
	}
	return nil, fmt.Errorf("unknown credential store %q", cfg.Store.Backend)
}
