package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/coinvault/coinvault/internal/session"
)

const identityLocal = "identity"

// SessionAuth resolves the caller's session token, from the session cookie
// or an Authorization bearer header, and stores the resulting identity in
// the request locals. Requests without a valid session are rejected.
func SessionAuth(sessions session.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(session.CookieName)
		if token == "" {
			authz := c.Get(fiber.HeaderAuthorization)
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("Bearer "):])
			}
		}
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing session")
		}

		id, err := sessions.Resolve(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return fiber.NewError(http.StatusUnauthorized, "invalid or expired session")
			}
			return fiber.NewError(http.StatusInternalServerError, "session lookup failed")
		}

		c.Locals(identityLocal, id)
		c.Locals(sessionTokenLocal, token)
		return c.Next()
	}
}

const sessionTokenLocal = "session_token"

// RequireAdmin gates a route group to admin identities. It must run after
// SessionAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CallerIdentity(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "missing session")
		}
		if !id.Admin() {
			return fiber.NewError(http.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

// CallerIdentity returns the identity resolved by SessionAuth, if any.
func CallerIdentity(c *fiber.Ctx) (session.Identity, bool) {
	id, ok := c.Locals(identityLocal).(session.Identity)
	return id, ok
}

// SessionToken returns the raw token resolved by SessionAuth, for logout.
func SessionToken(c *fiber.Ctx) string {
	token, _ := c.Locals(sessionTokenLocal).(string)
	return token
}
