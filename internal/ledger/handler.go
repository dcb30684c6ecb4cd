package ledger

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/middleware"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler exposes the user-facing transaction history endpoint.
type Handler struct {
	store Store
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type transactionJSON struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Ref         string    `json:"ref"`
	CreatedAt   time.Time `json:"created_at"`
}

type pageJSON struct {
	Transactions []transactionJSON `json:"transactions"`
	NextCursor   string            `json:"next_cursor,omitempty"`
}

// History lists the authenticated user's transactions, newest first, with
// optional status and kind filters and keyset pagination.
func (h *Handler) History(c *fiber.Ctx) error {
	id, ok := middleware.CallerIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}

	f := Filter{UserID: id.ID}
	var err error
	if f.Status, err = parseStatusQuery(c.Query("status")); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if f.Kind, err = parseKindQuery(c.Query("kind")); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	page, err := h.store.List(c.UserContext(), f, PageSize(c.Query("limit")), c.Query("cursor"))
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(PageJSON(page))
}

// PageSize parses a limit query value, clamping to the allowed window.
func PageSize(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}

// PageJSON converts a result page to its wire shape. Shared with the admin
// listing endpoint.
func PageJSON(p Page) any {
	out := pageJSON{Transactions: make([]transactionJSON, 0, len(p.Transactions)), NextCursor: p.NextCursor}
	for _, tx := range p.Transactions {
		out.Transactions = append(out.Transactions, transactionJSON{
			ID:          tx.ID,
			UserID:      tx.UserID,
			Kind:        string(tx.Kind),
			AmountCents: tx.AmountCents,
			Currency:    tx.Currency,
			Status:      string(tx.Status),
			Ref:         tx.Ref,
			CreatedAt:   tx.CreatedAt,
		})
	}
	return out
}

func parseStatusQuery(raw string) (Status, error) {
	if raw == "" {
		return "", nil
	}
	return ParseStatus(raw)
}

func parseKindQuery(raw string) (Kind, error) {
	if raw == "" {
		return "", nil
	}
	return ParseKind(raw)
}
