package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthHandler reports process and database liveness.
type HealthHandler struct {
	db *mongo.Client
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *mongo.Client) *HealthHandler {
	return &HealthHandler{db: db}
}

// Register mounts GET /health on the app (outside the authenticated group).
func (h *HealthHandler) Register(r fiber.Router) {
	r.Get("/health", h.health)
}

func (h *HealthHandler) health(c *fiber.Ctx) error {
	dbStatus := "connected"
	if h.db == nil {
		dbStatus = "not_configured"
	} else if err := h.db.Ping(c.UserContext(), nil); err != nil {
		dbStatus = "error"
	}

	return c.JSON(fiber.Map{
		"status": "ok",
		"db":     dbStatus,
	})
}
