// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"sopmaker/internal/delivery/http/middleware"
	"sopmaker/internal/delivery/http/router/handler"
	"sopmaker/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler   *handler.AuthHandler
	AdminHandler  *handler.AdminHandler
	SOPHandler    *handler.SOPHandler
	HealthHandler *handler.HealthHandler
	Metrics       *metrics.Collector
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler   *handler.AuthHandler
	adminHandler  *handler.AdminHandler
	sopHandler    *handler.SOPHandler
	healthHandler *handler.HealthHandler
	metrics       *metrics.Collector
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:   params.AuthHandler,
		adminHandler:  params.AdminHandler,
		sopHandler:    params.SOPHandler,
		healthHandler: params.HealthHandler,
		metrics:       params.Metrics,
	}
}

// RegisterRoutes sets up all the API routes for the application.
// Access rules by path are enforced by the route guard before routing;
// the group middleware below re-checks roles for the handlers that need them.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", r.healthHandler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(r.metrics.Handler()))

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/exchange-token", r.authHandler.ExchangeToken)
		authGroup.GET("/status", r.authHandler.Status)
		authGroup.POST("/signout", r.authHandler.SignOut)
		authGroup.POST("/signup", r.authHandler.SignUp)
		authGroup.POST("/signin", r.authHandler.SignIn)

		authGroup.GET("/sessions", r.authHandler.ListSessions, middleware.RequireSession)
		authGroup.DELETE("/sessions", r.authHandler.RevokeSessions, middleware.RequireSession)
	}

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin)
	{
		adminGroup.GET("/users", r.adminHandler.ListUsers)
		adminGroup.PUT("/users/:id/role", r.adminHandler.SetRole)
		adminGroup.POST("/roles/sync", r.adminHandler.SyncRole)
	}

	sopsGroup := api.Group("/sops")
	sopsGroup.Use(middleware.RequireSession)
	{
		sopsGroup.GET("", r.sopHandler.List)
		sopsGroup.GET("/:id", r.sopHandler.Get)

		sopsGroup.POST("", r.sopHandler.Create, middleware.RequireEditor)
		sopsGroup.PUT("/:id", r.sopHandler.Update, middleware.RequireEditor)
		sopsGroup.DELETE("/:id", r.sopHandler.Delete, middleware.RequireEditor)
		sopsGroup.POST("/:id/steps", r.sopHandler.AddStep, middleware.RequireEditor)
		sopsGroup.PUT("/:id/steps/order", r.sopHandler.ReorderSteps, middleware.RequireEditor)
		sopsGroup.POST("/:id/share", r.sopHandler.Share, middleware.RequireEditor)
		sopsGroup.GET("/:id/share/qrcode", r.sopHandler.ShareQRCode, middleware.RequireEditor)
	}

	api.GET("/share/:token", r.sopHandler.GetShared)
}
