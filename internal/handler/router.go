package handler

import (
	"github.com/gofiber/fiber/v2"

	"repolens/internal/middleware"
	"repolens/internal/service"
)

// RegisterRoutes mounts every API handler under /api/v1, behind the
// access-token requirement.
func RegisterRoutes(app *fiber.App,
	analysisSvc service.AnalysisService,
	routeSvc service.RouteService,
	issueSvc service.IssueService,
) {
	v1 := app.Group("/api/v1", middleware.RequireToken())
	NewAnalysisHandler(analysisSvc).Register(v1)
	NewRouteHandler(routeSvc).Register(v1)
	NewIssueHandler(issueSvc).Register(v1)
}
