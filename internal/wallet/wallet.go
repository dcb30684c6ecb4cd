package wallet

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound occurs when an adjustment targets a user with no wallet
	// row. Callers must Ensure the wallet first.
	ErrNotFound = errors.New("wallet not found")

	// ErrInsufficientFunds occurs when a conditional debit would drive the
	// balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Wallet is the durable per-user balance record. Exactly one exists per
// user; it is created lazily on first reference and never deleted.
type Wallet struct {
	ID           string
	UserID       string
	BalanceCents int64
	Currency     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Balance is a point-in-time read of a wallet. It may race with concurrent
// adjustments; callers must not assume it reflects a specific transaction's
// after-state unless serialized with that transaction.
type Balance struct {
	UserID       string
	BalanceCents int64
	Currency     string
	AsOf         time.Time
}

// Store is the contract implemented by wallet backends.
type Store interface {
	// Ensure creates a zero-balance wallet row if none exists and returns
	// the wallet id. Idempotent and safe under concurrent calls for the
	// same user: the uniqueness constraint on user_id provides
	// insert-if-absent semantics, not a read-then-write race.
	Ensure(ctx context.Context, userID, currency string) (string, error)

	// Adjust atomically adds deltaCents (positive or negative) to the
	// balance and returns the new value from the same atomic step. It
	// never checks overdraft; that policy belongs to the settlement
	// engine, because admin credits are allowed to ignore it.
	Adjust(ctx context.Context, userID string, deltaCents int64) (int64, error)

	// Debit atomically subtracts amountCents only if the balance covers
	// it, returning ErrInsufficientFunds otherwise. The check and the
	// write are one conditional update scoped to the wallet row, so
	// concurrent debits against the same wallet cannot both pass a stale
	// balance check.
	Debit(ctx context.Context, userID string, amountCents int64) (int64, error)

	// GetBalance reads the current balance and currency.
	GetBalance(ctx context.Context, userID string) (Balance, error)
}
