package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Transaction
	seq     int64
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and for running the API without Postgres in development.
func NewInMemory() Store {
	return &inMemoryStore{entries: make(map[string]Transaction)}
}

func (s *inMemoryStore) Create(_ context.Context, userID string, kind Kind, amountCents int64, currency, ref string) (Transaction, error) {
	if err := validateCreate(userID, kind, amountCents); err != nil {
		return Transaction{}, err
	}
	if currency == "" {
		currency = "USD"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Monotonic nanosecond offsets keep created_at strictly increasing even
	// when the wall clock does not advance between inserts.
	s.seq++
	tx := Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      initialStatus(kind),
		Ref:         ref,
		CreatedAt:   time.Now().UTC().Add(time.Duration(s.seq)),
	}
	s.entries[tx.ID] = tx
	return tx, nil
}

func (s *inMemoryStore) Get(_ context.Context, id string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.entries[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return tx, nil
}

func (s *inMemoryStore) List(_ context.Context, f Filter, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = 50
	}

	var afterAt time.Time
	var afterID string
	if cursor != "" {
		at, id, err := decodeCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		afterAt, afterID = at, id
	}

	s.mu.RLock()
	matched := make([]Transaction, 0, len(s.entries))
	for _, tx := range s.entries {
		if f.UserID != "" && tx.UserID != f.UserID {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		if f.Kind != "" && tx.Kind != f.Kind {
			continue
		}
		matched = append(matched, tx)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if cursor != "" {
		keep := matched[:0]
		for _, tx := range matched {
			if tx.CreatedAt.Before(afterAt) || (tx.CreatedAt.Equal(afterAt) && tx.ID < afterID) {
				keep = append(keep, tx)
			}
		}
		matched = keep
	}

	page := Page{}
	if len(matched) > limit {
		page.Transactions = matched[:limit]
		last := page.Transactions[limit-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	} else {
		page.Transactions = matched
	}
	return page, nil
}

func (s *inMemoryStore) SetStatus(_ context.Context, id string, status Status) (bool, error) {
	if !status.Terminal() {
		return false, ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.entries[id]
	if !ok {
		return false, ErrNotFound
	}
	if tx.Status != StatusPending {
		return false, nil
	}
	tx.Status = status
	s.entries[id] = tx
	return true, nil
}

func (s *inMemoryStore) Reopen(_ context.Context, id string, from Status) error {
	if !from.Terminal() {
		return ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.entries[id]
	if !ok || tx.Status != from {
		return ErrNotFound
	}
	tx.Status = StatusPending
	s.entries[id] = tx
	return nil
}
