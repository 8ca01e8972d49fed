// Package router wires the HTTP routes to their handlers and
// middleware chains.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/event-registration/internal/handler"
	"github.com/iliyamo/event-registration/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// the health probe and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the admin account endpoints. Register, login,
// refresh and logout live under /v1/auth without a session; /v1/me
// requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	me := e.Group("/v1")
	me.Use(middleware.JWTAuth(jwtSecret))
	me.GET("/me", a.Me)
}

// RegisterAdmin registers the registration desk endpoints. Everything
// here requires a valid access token with the ADMIN role; cacheMW, when
// non-nil, fronts the read-only counts endpoint.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, cacheMW echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(handler.RoleAdmin))

	g.POST("/events/:id/applicants", h.CreateApplicant)
	g.GET("/applicants/:id", h.GetApplicant)
	g.PUT("/applicants/:id/selections", h.ReplaceSelection)
	g.DELETE("/applicants/:id", h.DeleteApplicant)
	g.POST("/applicants/:id/confirm", h.Confirm)
	g.DELETE("/applicants/:id/confirmations", h.Unconfirm)
	g.POST("/events/:id/reconcile", h.Reconcile)

	if cacheMW != nil {
		g.GET("/events/:id/counts", h.Counts, cacheMW)
	} else {
		g.GET("/events/:id/counts", h.Counts)
	}
}
