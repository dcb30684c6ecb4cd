package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/identity"
	"github.com/coinvault/coinvault/internal/plans"
	"github.com/coinvault/coinvault/internal/settlement"
)

// RegisterAdminRoutes wires the admin console: the settlement queue, direct
// wallet adjustments, the user listing, and plan eligibility flags.
func RegisterAdminRoutes(r fiber.Router, settle *settlement.Handler, users *identity.Handler, planLimits *plans.Handler) {
	r.Get("/transactions", settle.List)
	r.Patch("/transactions/:id", settle.Settle)
	r.Post("/wallet/adjust", settle.Adjust)
	r.Post("/profit/adjust", settle.ProfitAdjust)
	r.Get("/users", users.ListUsers)
	r.Get("/users/:userId/plan-limits", planLimits.Eligibility)
	r.Put("/users/:userId/plan-limits", planLimits.SetEligibility)
}
