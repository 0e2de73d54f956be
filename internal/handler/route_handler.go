package handler

import (
	"github.com/gofiber/fiber/v2"

	"repolens/internal/middleware"
	"repolens/internal/service"
)

// RouteHandler wires HTTP → RouteService.
type RouteHandler struct {
	svc service.RouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(svc service.RouteService) *RouteHandler {
	return &RouteHandler{svc: svc}
}

// Register mounts POST /analysis/route on the supplied router group.
func (h *RouteHandler) Register(r fiber.Router) {
	r.Post("/analysis/route", h.analyzeRoute)
}

type routeRequest struct {
	RepoURL     string `json:"repo_url"`
	RoutePath   string `json:"route_path"`
	RouteIndex  int    `json:"route_index"` // ordinal position; drives credential alternation
	ForceReload bool   `json:"force_reload"`
}

// analyzeRoute handles POST /analysis/route
func (h *RouteHandler) analyzeRoute(c *fiber.Ctx) error {
	var req routeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code": "invalid_input", "message": "malformed request body",
		})
	}

	result, err := h.svc.Analyze(c.UserContext(), req.RepoURL, req.RoutePath, req.RouteIndex, req.ForceReload, middleware.Token(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
