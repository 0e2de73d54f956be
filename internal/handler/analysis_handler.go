package handler

import (
	"github.com/gofiber/fiber/v2"

	"repolens/internal/middleware"
	"repolens/internal/service"
)

// AnalysisHandler wires HTTP → AnalysisService.
type AnalysisHandler struct {
	svc service.AnalysisService
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(svc service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

// Register mounts the analysis endpoints on the supplied router group.
func (h *AnalysisHandler) Register(r fiber.Router) {
	r.Post("/analysis", h.analyze)
	r.Get("/analysis/exists", h.exists)
}

type analyzeRequest struct {
	RepoURL      string `json:"repo_url"`
	ForceRefresh bool   `json:"force_refresh"`
}

// analyze handles POST /analysis
func (h *AnalysisHandler) analyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code": "invalid_input", "message": "malformed request body",
		})
	}

	result, err := h.svc.Analyze(c.UserContext(), req.RepoURL, req.ForceRefresh, middleware.Token(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// exists handles GET /analysis/exists?repo_url=
func (h *AnalysisHandler) exists(c *fiber.Ctx) error {
	result, err := h.svc.Lookup(c.UserContext(), c.Query("repo_url"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
