package server

import (
	"github.com/labstack/echo/v4"

	"github.com/selmo/Tagdstiller-sub001/internal/server/middleware"
	"github.com/selmo/Tagdstiller-sub001/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Analysis routes
	apiRoutes.POST("/analyses", routes.CreateAnalysisHandler, middleware.RequirePermission("analysis.create"))
	apiRoutes.GET("/analyses/:id", routes.GetAnalysisHandler, middleware.RequirePermission("analysis.view"))
	apiRoutes.GET("/analyses/:id/result", routes.GetAnalysisResultHandler, middleware.RequirePermission("analysis.view"))
}
