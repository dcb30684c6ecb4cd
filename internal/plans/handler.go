package plans

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/middleware"
	"github.com/coinvault/coinvault/internal/wallet"
)

// Handler exposes the plan catalog and subscription endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a plans HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type planResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	MinDepositCents int64  `json:"min_deposit_cents"`
	Terms           string `json:"terms"`
}

// List returns the catalog.
func (h *Handler) List(c *fiber.Ctx) error {
	catalog, err := h.service.List(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]planResponse, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, planResponse{ID: p.ID, Name: p.Name, MinDepositCents: p.MinDepositCents, Terms: p.Terms})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"plans": out})
}

type subscriptionResponse struct {
	ID            string    `json:"id"`
	PlanID        string    `json:"plan_id"`
	StartedAt     time.Time `json:"started_at"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id,omitempty"`
}

// Subscribe charges the plan's minimum deposit and activates the
// subscription for the authenticated user.
func (h *Handler) Subscribe(c *fiber.Ctx) error {
	id, ok := middleware.CallerIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	sub, tx, err := h.service.Subscribe(c.UserContext(), id.ID, c.Params("planId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrPlanNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotEligible):
			return fiber.NewError(http.StatusForbidden, err.Error())
		case errors.Is(err, wallet.ErrInsufficientFunds),
			errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(subscriptionResponse{
		ID:            sub.ID,
		PlanID:        sub.PlanID,
		StartedAt:     sub.StartedAt,
		Status:        sub.Status,
		TransactionID: tx.ID,
	})
}

// Subscriptions lists the authenticated user's subscriptions.
func (h *Handler) Subscriptions(c *fiber.Ctx) error {
	id, ok := middleware.CallerIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}
	subs, err := h.service.Subscriptions(c.UserContext(), id.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, subscriptionResponse{ID: s.ID, PlanID: s.PlanID, StartedAt: s.StartedAt, Status: s.Status})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"subscriptions": out})
}

type eligibilityResponse struct {
	UserID          string `json:"user_id"`
	DisallowStarter bool   `json:"disallow_starter"`
	DisallowGrowth  bool   `json:"disallow_growth"`
	DisallowPro     bool   `json:"disallow_pro"`
}

type eligibilityRequest struct {
	DisallowStarter *bool `json:"disallow_starter"`
	DisallowGrowth  *bool `json:"disallow_growth"`
	DisallowPro     *bool `json:"disallow_pro"`
}

// Eligibility returns a user's tier restrictions, for the admin console.
func (h *Handler) Eligibility(c *fiber.Ctx) error {
	e, err := h.service.EligibilityFor(c.UserContext(), c.Params("userId"))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toEligibilityResponse(e, c.Params("userId")))
}

// SetEligibility patches a user's tier restrictions. Absent fields keep
// their current value.
func (h *Handler) SetEligibility(c *fiber.Ctx) error {
	var req eligibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	e, err := h.service.UpdateEligibility(c.UserContext(), c.Params("userId"), EligibilityPatch{
		DisallowStarter: req.DisallowStarter,
		DisallowGrowth:  req.DisallowGrowth,
		DisallowPro:     req.DisallowPro,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toEligibilityResponse(e, c.Params("userId")))
}

func toEligibilityResponse(e Eligibility, userID string) eligibilityResponse {
	return eligibilityResponse{
		UserID:          userID,
		DisallowStarter: e.DisallowStarter,
		DisallowGrowth:  e.DisallowGrowth,
		DisallowPro:     e.DisallowPro,
	}
}
