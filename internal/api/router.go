package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/deathkiller/api/internal/api/docs"
	"github.com/deathkiller/api/internal/api/handler"
	"github.com/deathkiller/api/internal/api/middleware"
	"github.com/deathkiller/api/internal/core/domain"
	"github.com/deathkiller/api/internal/core/ports"
)

// Deps are the collaborators the HTTP layer needs. Everything is built by the
// caller; the router only wires routes.
type Deps struct {
	AuthService ports.AuthService
	Tokens      ports.TokenService
	// Store is pinged by the readiness probe under StoreName.
	Store     handler.Pinger
	StoreName string
	Logger    zerolog.Logger
	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string
	// Registry receives the HTTP request metrics. A fresh registry is used
	// when nil.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: deps.CORSOrigins,
	}))
	e.Use(echomiddleware.Gzip())
	e.Use(echomiddleware.BodyLimit("10M"))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registry,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, registry},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	adminHandler := handler.NewAdminHandler(deps.AuthService)
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(map[string]handler.Pinger{
		storeName(deps.StoreName): deps.Store,
	})

	authenticated := middleware.Protect(deps.Tokens, deps.Logger)
	adminOnly := middleware.Protect(deps.Tokens, deps.Logger, domain.RoleAdmin)

	g := e.Group("/api")

	// --- Health probes (no auth required) ---
	g.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	g.GET("/health/ready", healthDepsHandler.Readiness) // readiness – is the store up?

	// --- Auth routes ---
	g.POST("/auth/register", authHandler.Register)
	g.POST("/auth/login", authHandler.Login)
	g.GET("/auth/profile", authHandler.Profile, authenticated)

	// --- Admin routes ---
	g.GET("/admin/users/:id", adminHandler.UserByID, adminOnly)

	return e
}

func storeName(name string) string {
	if name == "" {
		return "store"
	}
	return name
}

// requestLogger writes one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
