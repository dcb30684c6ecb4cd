package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/middleware"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	store    Store
	balances *BalanceCache
	currency string
}

// NewHandler builds a wallet HTTP handler. balances may be nil when no
// cache is configured.
func NewHandler(store Store, balances *BalanceCache, currency string) *Handler {
	return &Handler{store: store, balances: balances, currency: currency}
}

type balanceResponse struct {
	UserID       string    `json:"user_id"`
	BalanceCents int64     `json:"balance_cents"`
	Currency     string    `json:"currency"`
	AsOf         time.Time `json:"as_of"`
}

// Balance returns the authenticated user's balance. A user who has never
// transacted gets a zero balance rather than an error; the wallet row is
// created lazily elsewhere.
func (h *Handler) Balance(c *fiber.Ctx) error {
	id, ok := middleware.CallerIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	if b, ok := h.balances.Get(c.UserContext(), id.ID); ok {
		return c.Status(http.StatusOK).JSON(toBalanceResponse(b))
	}

	b, err := h.store.GetBalance(c.UserContext(), id.ID)
	if errors.Is(err, ErrNotFound) {
		b = Balance{UserID: id.ID, BalanceCents: 0, Currency: h.currency, AsOf: time.Now().UTC()}
	} else if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	h.balances.Put(c.UserContext(), b)
	return c.Status(http.StatusOK).JSON(toBalanceResponse(b))
}

func toBalanceResponse(b Balance) balanceResponse {
	return balanceResponse{
		UserID:       b.UserID,
		BalanceCents: b.BalanceCents,
		Currency:     b.Currency,
		AsOf:         b.AsOf,
	}
}
