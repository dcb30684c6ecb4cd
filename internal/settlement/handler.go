package settlement

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/wallet"
)

// UserResolver maps a user id or email to the canonical user id. Admin
// requests may name the target either way.
type UserResolver func(ctx context.Context, idOrEmail string) (string, error)

// Handler exposes the admin settlement endpoints.
type Handler struct {
	engine   *Engine
	store    ledger.Store
	resolve  UserResolver
	currency string
}

// NewHandler builds a settlement HTTP handler. resolve may be nil, in which
// case adjust targets are taken as user ids verbatim.
func NewHandler(engine *Engine, store ledger.Store, resolve UserResolver, currency string) *Handler {
	return &Handler{engine: engine, store: store, resolve: resolve, currency: currency}
}

// List returns transactions across all users, for the admin review queue.
// Filters: user_id, status, kind. Keyset pagination via cursor/limit.
func (h *Handler) List(c *fiber.Ctx) error {
	f := ledger.Filter{UserID: c.Query("user_id")}
	if raw := c.Query("status"); raw != "" {
		status, err := ledger.ParseStatus(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		f.Status = status
	}
	if raw := c.Query("kind"); raw != "" {
		kind, err := ledger.ParseKind(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		f.Kind = kind
	}

	page, err := h.store.List(c.UserContext(), f, ledger.PageSize(c.Query("limit")), c.Query("cursor"))
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidCursor) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(ledger.PageJSON(page))
}

type settleRequest struct {
	Status string `json:"status"`
}

type settleResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Status       string `json:"status"`
	Changed      bool   `json:"changed"`
	BalanceCents int64  `json:"balance_cents"`
}

// Settle resolves one pending transaction. A repeat call for an entry that
// is already terminal succeeds with changed=false and the current state.
func (h *Handler) Settle(c *fiber.Ctx) error {
	var req settleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	decision, err := ledger.ParseStatus(req.Status)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	out, err := h.engine.Settle(c.UserContext(), c.Params("id"), decision)
	if err != nil {
		return settleError(err)
	}
	return c.Status(http.StatusOK).JSON(settleResponse{
		ID:           out.Transaction.ID,
		UserID:       out.Transaction.UserID,
		Status:       string(out.Transaction.Status),
		Changed:      out.Changed,
		BalanceCents: out.BalanceCents,
	})
}

type adjustRequest struct {
	UserID     string `json:"user_id"`
	DeltaCents int64  `json:"delta_cents"`
	Currency   string `json:"currency"`
	Note       string `json:"note"`
}

type adjustResponse struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`
	BalanceCents  int64  `json:"balance_cents"`
	Currency      string `json:"currency"`
}

// Adjust credits or debits a user's wallet directly, with a settled audit
// row. The delta sign picks the direction; the target may be named by user
// id or email.
func (h *Handler) Adjust(c *fiber.Ctx) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" {
		return fiber.NewError(http.StatusBadRequest, "user_id is required")
	}
	userID := req.UserID
	if h.resolve != nil {
		resolved, err := h.resolve(c.UserContext(), req.UserID)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		userID = resolved
	}
	currency := req.Currency
	if currency == "" {
		currency = h.currency
	}

	res, err := h.engine.AdminAdjust(c.UserContext(), AdjustInput{
		UserID:     userID,
		DeltaCents: req.DeltaCents,
		Currency:   currency,
		Note:       req.Note,
	})
	if err != nil {
		return settleError(err)
	}
	return c.Status(http.StatusOK).JSON(adjustResponse{
		TransactionID: res.Transaction.ID,
		UserID:        res.Transaction.UserID,
		BalanceCents:  res.BalanceCents,
		Currency:      res.Currency,
	})
}

type profitRequest struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Note        string `json:"note"`
}

// ProfitAdjust records a settled bookkeeping row with no balance effect.
// The target may be named by user id or email.
func (h *Handler) ProfitAdjust(c *fiber.Ctx) error {
	var req profitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" {
		return fiber.NewError(http.StatusBadRequest, "user_id is required")
	}
	userID := req.UserID
	if h.resolve != nil {
		resolved, err := h.resolve(c.UserContext(), req.UserID)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		userID = resolved
	}
	currency := req.Currency
	if currency == "" {
		currency = h.currency
	}

	tx, err := h.engine.ProfitAdjust(c.UserContext(), ProfitInput{
		UserID:      userID,
		AmountCents: req.AmountCents,
		Currency:    currency,
		Note:        req.Note,
	})
	if err != nil {
		return settleError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction_id": tx.ID,
		"user_id":        tx.UserID,
		"kind":           string(tx.Kind),
		"amount_cents":   tx.AmountCents,
		"status":         string(tx.Status),
	})
}

func settleError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ErrZeroDelta),
		errors.Is(err, wallet.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
