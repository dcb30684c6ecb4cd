package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/plans"
)

// RegisterPlanRoutes wires the plan catalog and subscription endpoints.
func RegisterPlanRoutes(r fiber.Router, h *plans.Handler) {
	r.Get("/plans", h.List)
	r.Post("/plans/:planId/subscribe", h.Subscribe)
	r.Get("/plans/subscriptions", h.Subscriptions)
}
