package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"repolens/internal/llm"
	"repolens/internal/service"
)

// respondError maps the service error taxonomy to a status and a stable
// machine-readable code. Model exhaustion gets its own code so the frontend
// can show a "come back later / upgrade" state instead of a generic banner.
func respondError(c *fiber.Ctx, err error) error {
	type mapping struct {
		target  error
		status  int
		code    string
		message string
	}

	mappings := []mapping{
		{service.ErrInvalidInput, fiber.StatusBadRequest, "invalid_input", err.Error()},
		{service.ErrUnauthenticated, fiber.StatusUnauthorized, "unauthenticated", "an access token is required"},
		{service.ErrUpstreamNotFound, fiber.StatusNotFound, "upstream_not_found",
			"repository not found — if it is private, make sure your token has access"},
		{service.ErrUpstreamRateLimited, fiber.StatusForbidden, "upstream_rate_limited",
			"GitHub rate limit reached — add or rotate an access token and try again"},
		{llm.ErrExhausted, fiber.StatusTooManyRequests, "model_exhausted",
			"the analysis model is out of quota — come back later"},
		{service.ErrNotAnalyzed, fiber.StatusPreconditionRequired, "repo_not_analyzed",
			"analyze the repository first"},
	}

	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return c.Status(m.status).JSON(fiber.Map{"code": m.code, "message": m.message})
		}
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":    "internal",
		"message": "something went wrong",
	})
}
