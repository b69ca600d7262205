package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/Sajadaliismail/gatekeeper/docs"
	"github.com/Sajadaliismail/gatekeeper/internal/api/handler"
	"github.com/Sajadaliismail/gatekeeper/internal/api/middleware"
	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
	"github.com/Sajadaliismail/gatekeeper/internal/core/ports"
	"github.com/Sajadaliismail/gatekeeper/internal/infrastructure/config"
)

// Services are the collaborators the HTTP layer needs. Registerer and
// Gatherer default to the global Prometheus registry when nil.
type Services struct {
	Users      ports.UserService
	Tokens     ports.TokenService
	Checks     map[string]handler.DependencyCheck
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg *config.Config, svc Services, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log)

	registerer, gatherer := svc.Registerer, svc.Gatherer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "gatekeeper",
		Registerer: registerer,
	}))

	// --- Operational endpoints (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(svc.Checks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- User routes ---
	users := handler.NewUserHandler(svc.Users, cfg.Security.CookieSecure)
	authn := middleware.Authenticate(svc.Tokens, svc.Users, log)

	api := e.Group(cfg.APIPrefix)
	api.POST("/signup", users.CreateUser)
	api.POST("/login", users.LoginUser)

	anyRole := middleware.RequireRoles(domain.RoleAdmin, domain.RoleModerator, domain.RoleUser)
	api.GET("", users.GetUser, authn, anyRole)
	api.GET("/", users.GetUser, authn, anyRole)
	api.PATCH("/change-role", users.ChangeRole, authn, middleware.RequireRoles(domain.RoleAdmin))
	api.PATCH("/change-status", users.ChangeStatus, authn, middleware.RequireRoles(domain.RoleAdmin, domain.RoleModerator))
	api.DELETE("/delete-user", users.RemoveUser, authn, middleware.RequireRoles(domain.RoleAdmin, domain.RoleUser))
	api.PATCH("/edit-user", users.EditUser, authn, middleware.RequireRoles(domain.RoleUser))

	return e
}
