// Package session resolves opaque bearer tokens to an authenticated
// identity. Tokens live in Redis with a sliding TTL; the rest of the
// application consumes only the resolved Identity and never inspects the
// token itself.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "session:v1:"

	// RoleUser and RoleAdmin are the only recognized roles.
	RoleUser  = "user"
	RoleAdmin = "admin"

	// CookieName is the session cookie issued on login.
	CookieName = "cv_session"
)

// ErrNotFound indicates an unknown or expired session token.
var ErrNotFound = errors.New("session not found")

// Identity is the resolved caller: who is calling and whether they are an
// admin. It is all the core components ever learn about the session layer.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Admin reports whether the identity carries the admin role.
func (i Identity) Admin() bool {
	return i.Role == RoleAdmin
}

// Resolver looks up the identity behind a session token.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// Manager issues, resolves, and destroys Redis-backed sessions.
type Manager struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewManager builds a session manager with the given token lifetime.
func NewManager(cache *redis.Client, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Manager{cache: cache, ttl: ttl}
}

// Create issues a fresh opaque token for the identity.
func (m *Manager) Create(ctx context.Context, id Identity) (string, error) {
	payload, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	token := uuid.NewString()
	if err := m.cache.Set(ctx, keyPrefix+token, payload, m.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve returns the identity behind the token and slides its expiry.
func (m *Manager) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNotFound
	}
	payload, err := m.cache.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, fmt.Errorf("load session: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(payload, &id); err != nil {
		return Identity{}, fmt.Errorf("decode session: %w", err)
	}
	// Best effort: active sessions stay alive.
	m.cache.Expire(ctx, keyPrefix+token, m.ttl)
	return id, nil
}

// Destroy invalidates a token. Destroying an unknown token is a no-op.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.cache.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}
