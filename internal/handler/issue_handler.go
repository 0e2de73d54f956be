package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"repolens/internal/middleware"
	"repolens/internal/service"
)

// IssueHandler wires HTTP → IssueService.
type IssueHandler struct {
	svc service.IssueService
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(svc service.IssueService) *IssueHandler {
	return &IssueHandler{svc: svc}
}

// Register mounts GET /issues on the supplied router group.
func (h *IssueHandler) Register(r fiber.Router) {
	r.Get("/issues", h.list)
}

// list handles GET /issues?repo_url=&labels=bug,help&type=issue&sort=comments-desc
func (h *IssueHandler) list(c *fiber.Ctx) error {
	var labels []string
	if raw := c.Query("labels"); raw != "" {
		for _, l := range strings.Split(raw, ",") {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, l)
			}
		}
	}

	items, err := h.svc.List(c.UserContext(), c.Query("repo_url"), labels, c.Query("type"), c.Query("sort"), middleware.Token(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"items": items})
}
