package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/middleware"
	"github.com/coinvault/coinvault/internal/session"
	"github.com/coinvault/coinvault/internal/wallet"
)

// Handler exposes signup, login, logout, profile and the admin user listing.
type Handler struct {
	service    *Service
	sessions   *session.Manager
	wallets    wallet.Store
	currency   string
	sessionTTL time.Duration
}

// NewHandler builds an identity HTTP handler. The wallet store is used to
// provision a zero-balance wallet on signup.
func NewHandler(service *Service, sessions *session.Manager, wallets wallet.Store, currency string, sessionTTL time.Duration) *Handler {
	return &Handler{
		service:    service,
		sessions:   sessions,
		wallets:    wallets,
		currency:   currency,
		sessionTTL: sessionTTL,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// Signup registers a user, provisions their wallet and opens a session.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.service.Register(c.UserContext(), Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	// Wallet provisioning is best effort; the first transaction ensures it
	// again.
	if _, err := h.wallets.Ensure(c.UserContext(), user.ID, h.currency); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	if err := h.openSession(c, user); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toUserResponse(user))
}

// Login verifies credentials and opens a session.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.service.Authenticate(c.UserContext(), Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	if err := h.openSession(c, user); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toUserResponse(user))
}

// Logout destroys the current session and clears the cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	token := middleware.SessionToken(c)
	if err := h.sessions.Destroy(c.UserContext(), token); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.SendStatus(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	id, ok := middleware.CallerIdentity(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing session")
	}
	user, err := h.service.Get(c.UserContext(), id.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toUserResponse(user))
}

type userPageResponse struct {
	Users      []userResponse `json:"users"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ListUsers pages all users for the admin console, keyset paginated by id
// and optionally filtered by an email substring.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	page, err := h.service.ListUsers(c.UserContext(), c.Query("cursor"), c.Query("search"), ledger.PageSize(c.Query("limit")))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := userPageResponse{Users: make([]userResponse, 0, len(page.Users)), NextCursor: page.NextCursor}
	for _, u := range page.Users {
		out.Users = append(out.Users, toUserResponse(u))
	}
	return c.Status(http.StatusOK).JSON(out)
}

func (h *Handler) openSession(c *fiber.Ctx, user User) error {
	token, err := h.sessions.Create(c.UserContext(), session.Identity{ID: user.ID, Role: user.Role})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Expires:  time.Now().Add(h.sessionTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}
