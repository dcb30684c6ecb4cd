package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps wallet rows in PostgreSQL. Every mutation is a single
// UPDATE with RETURNING so the new balance comes back from the same atomic
// statement that produced it.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed wallet store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ensure inserts a zero-balance row unless one already exists, relying on
// UNIQUE(user_id) rather than a read-then-write check.
func (s *PostgresStore) Ensure(ctx context.Context, userID, currency string) (string, error) {
	if currency == "" {
		currency = "USD"
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO wallets (id, user_id, balance_cents, currency, created_at, updated_at)
        VALUES ($1, $2, 0, $3, $4, $4)
        ON CONFLICT (user_id) DO NOTHING`,
		uuid.NewString(), userID, currency, now)
	if err != nil {
		return "", fmt.Errorf("ensure wallet: %w", err)
	}

	var id string
	if err := s.db.QueryRow(ctx, `SELECT id FROM wallets WHERE user_id = $1`, userID).Scan(&id); err != nil {
		return "", fmt.Errorf("load wallet id: %w", err)
	}
	return id, nil
}

// Adjust applies an unconditional signed delta.
func (s *PostgresStore) Adjust(ctx context.Context, userID string, deltaCents int64) (int64, error) {
	var balance int64
	err := s.db.QueryRow(ctx, `UPDATE wallets
        SET balance_cents = balance_cents + $1, updated_at = $2
        WHERE user_id = $3
        RETURNING balance_cents`,
		deltaCents, time.Now().UTC(), userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("adjust wallet: %w", err)
	}
	return balance, nil
}

// Debit applies a conditional debit. The balance guard lives in the WHERE
// clause, so two concurrent debits can never both read a pre-debit balance
// and both pass.
func (s *PostgresStore) Debit(ctx context.Context, userID string, amountCents int64) (int64, error) {
	var balance int64
	err := s.db.QueryRow(ctx, `UPDATE wallets
        SET balance_cents = balance_cents - $1, updated_at = $2
        WHERE user_id = $3 AND balance_cents >= $1
        RETURNING balance_cents`,
		amountCents, time.Now().UTC(), userID).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("debit wallet: %w", err)
	}

	// No row updated: either the wallet is missing or the guard failed.
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check wallet: %w", err)
	}
	if !exists {
		return 0, ErrNotFound
	}
	return 0, ErrInsufficientFunds
}

// GetBalance reads the current balance row.
func (s *PostgresStore) GetBalance(ctx context.Context, userID string) (Balance, error) {
	var b Balance
	err := s.db.QueryRow(ctx, `SELECT balance_cents, currency FROM wallets WHERE user_id = $1`, userID).
		Scan(&b.BalanceCents, &b.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, fmt.Errorf("load balance: %w", err)
	}
	b.UserID = userID
	b.AsOf = time.Now().UTC()
	return b, nil
}
