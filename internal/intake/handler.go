package intake

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/middleware"
)

// Handler exposes the deposit and withdrawal request endpoints.
type Handler struct {
	service  *Service
	currency string
}

// NewHandler builds an intake HTTP handler. currency is applied when the
// request does not name one.
func NewHandler(service *Service, currency string) *Handler {
	return &Handler{service: service, currency: currency}
}

type depositRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Network     string `json:"network"`
	TxID        string `json:"tx_id"`
}

type withdrawRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Network     string `json:"network"`
	Address     string `json:"address"`
}

type transactionResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Ref         string    `json:"ref"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTransactionResponse(tx ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Kind:        string(tx.Kind),
		AmountCents: tx.AmountCents,
		Currency:    tx.Currency,
		Status:      string(tx.Status),
		Ref:         tx.Ref,
		CreatedAt:   tx.CreatedAt,
	}
}

// Deposit records a pending deposit claim for the authenticated user.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	id, ok := middleware.CallerIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	tx, err := h.service.RequestDeposit(c.UserContext(), DepositInput{
		UserID:      id.ID,
		AmountCents: req.AmountCents,
		Currency:    h.resolveCurrency(req.Currency),
		Network:     req.Network,
		TxID:        req.TxID,
	})
	if err != nil {
		return intakeError(err)
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(tx))
}

// Withdraw records a pending withdrawal request for the authenticated user.
// No funds are held; the balance check happens at settlement.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	id, ok := middleware.CallerIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	tx, err := h.service.RequestWithdraw(c.UserContext(), WithdrawInput{
		UserID:      id.ID,
		AmountCents: req.AmountCents,
		Currency:    h.resolveCurrency(req.Currency),
		Network:     req.Network,
		Address:     req.Address,
	})
	if err != nil {
		return intakeError(err)
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(tx))
}

func (h *Handler) resolveCurrency(requested string) string {
	if requested != "" {
		return requested
	}
	return h.currency
}

func intakeError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ErrMissingTxID),
		errors.Is(err, ErrMissingAddress):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
