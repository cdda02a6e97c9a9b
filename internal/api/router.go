package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/learnpath/lms-api/internal/api/handler"
	"github.com/learnpath/lms-api/internal/api/middleware"
	"github.com/learnpath/lms-api/internal/core/domain"
	"github.com/learnpath/lms-api/internal/core/ports"
)

// Dependencies are the collaborators NewRouter wires into routes.
type Dependencies struct {
	Log       zerolog.Logger
	Auth      ports.AuthService
	Users     ports.UserService
	Resolver  ports.IdentityResolver
	Readiness map[string]handler.Checker
	LoginRate middleware.RateLimitConfig

	// Registerer and Gatherer enable HTTP metrics and GET /metrics when set.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	if deps.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  "lms",
			Subsystem:  "http",
			Registerer: deps.Registerer,
		}))
	}

	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Users)
	limit := middleware.RateLimit(deps.LoginRate)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register, limit)
	e.POST("/auth/login", authHandler.Login, limit)
	e.GET("/auth/me", authHandler.Me, middleware.Gate(deps.Resolver))
	e.POST("/auth/token", authHandler.Token, middleware.Gate(deps.Resolver))

	// --- Account administration ---
	admin := e.Group("/admin", middleware.Gate(deps.Resolver, domain.RoleAdmin))
	admin.POST("/users", userHandler.Create)
	admin.GET("/users/:id", userHandler.Get)
	admin.PATCH("/users/:id/role", userHandler.ChangeRole)
	admin.DELETE("/users/:id", userHandler.Delete)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Readiness, deps.Log)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	if deps.Gatherer != nil {
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			userID, _ := c.Get(middleware.ContextKeyUserID).(string)
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Str("user_id", userID).
				Msg("request")
			return nil
		},
	})
}
