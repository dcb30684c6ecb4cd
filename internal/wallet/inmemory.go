package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryStore struct {
	mu      sync.Mutex
	wallets map[string]*Wallet
}

// NewInMemory creates a concurrency-safe in-memory wallet store for unit
// tests and for running the API without Postgres in development.
func NewInMemory() Store {
	return &inMemoryStore{wallets: make(map[string]*Wallet)}
}

func (s *inMemoryStore) Ensure(_ context.Context, userID, currency string) (string, error) {
	if currency == "" {
		currency = "USD"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.wallets[userID]; ok {
		return w.ID, nil
	}
	now := time.Now().UTC()
	w := &Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.wallets[userID] = w
	return w.ID, nil
}

func (s *inMemoryStore) Adjust(_ context.Context, userID string, deltaCents int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return 0, ErrNotFound
	}
	w.BalanceCents += deltaCents
	w.UpdatedAt = time.Now().UTC()
	return w.BalanceCents, nil
}

func (s *inMemoryStore) Debit(_ context.Context, userID string, amountCents int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return 0, ErrNotFound
	}
	if w.BalanceCents < amountCents {
		return 0, ErrInsufficientFunds
	}
	w.BalanceCents -= amountCents
	w.UpdatedAt = time.Now().UTC()
	return w.BalanceCents, nil
}

func (s *inMemoryStore) GetBalance(_ context.Context, userID string) (Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return Balance{}, ErrNotFound
	}
	return Balance{
		UserID:       userID,
		BalanceCents: w.BalanceCents,
		Currency:     w.Currency,
		AsOf:         time.Now().UTC(),
	}, nil
}
