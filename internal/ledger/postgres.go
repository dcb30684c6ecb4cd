package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists ledger entries in PostgreSQL. Status transitions
// are single-statement conditional updates so the database's own atomicity
// provides the compare-and-swap.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const txColumns = `id, user_id, kind, amount_cents, currency, status, ref, created_at`

// Create appends a new ledger entry with the kind-derived initial status.
func (s *PostgresStore) Create(ctx context.Context, userID string, kind Kind, amountCents int64, currency, ref string) (Transaction, error) {
	if err := validateCreate(userID, kind, amountCents); err != nil {
		return Transaction{}, err
	}
	if currency == "" {
		currency = "USD"
	}

	tx := Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        kind,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      initialStatus(kind),
		Ref:         ref,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.Exec(ctx, `INSERT INTO transactions (`+txColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.UserID, string(tx.Kind), tx.AmountCents, tx.Currency, string(tx.Status), tx.Ref, tx.CreatedAt)
	if err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// Get loads one entry by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, fmt.Errorf("load transaction: %w", err)
	}
	return tx, nil
}

// List pages through entries newest first. The cursor carries the last seen
// (created_at, id) pair; rows strictly before it in the sort order are
// returned, which stays stable under concurrent inserts.
func (s *PostgresStore) List(ctx context.Context, f Filter, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + txColumns + ` FROM transactions`
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != "" {
		where = append(where, "user_id = "+arg(f.UserID))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.Kind != "" {
		where = append(where, "kind = "+arg(string(f.Kind)))
	}
	if cursor != "" {
		at, id, err := decodeCursor(cursor)
		if err != nil {
			return Page{}, err
		}
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", arg(at), arg(id)))
	}

	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + arg(limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return Page{}, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return Page{}, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("list transactions: %w", err)
	}

	page := Page{Transactions: out}
	if len(out) > limit {
		page.Transactions = out[:limit]
		last := page.Transactions[limit-1]
		page.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// SetStatus performs the pending→terminal compare-and-swap in a single
// conditional UPDATE. The affected-row count distinguishes a won swap from
// an entry another caller already settled.
func (s *PostgresStore) SetStatus(ctx context.Context, id string, status Status) (bool, error) {
	if !status.Terminal() {
		return false, ErrInvalidStatus
	}

	cmd, err := s.db.Exec(ctx, `UPDATE transactions SET status = $1
        WHERE id = $2 AND status = $3`,
		string(status), id, string(StatusPending))
	if err != nil {
		return false, fmt.Errorf("set status: %w", err)
	}
	if cmd.RowsAffected() > 0 {
		return true, nil
	}

	// Lost the swap, or no such entry at all.
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check transaction: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// Reopen reverts a just-settled entry to pending, conditioned on the
// terminal status the caller wrote, so the compensation itself cannot race.
func (s *PostgresStore) Reopen(ctx context.Context, id string, from Status) error {
	if !from.Terminal() {
		return ErrInvalidStatus
	}
	cmd, err := s.db.Exec(ctx, `UPDATE transactions SET status = $1
        WHERE id = $2 AND status = $3`,
		string(StatusPending), id, string(from))
	if err != nil {
		return fmt.Errorf("reopen transaction: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		tx        Transaction
		kind      string
		status    string
		createdAt time.Time
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &kind, &tx.AmountCents, &tx.Currency, &status, &tx.Ref, &createdAt); err != nil {
		return Transaction{}, err
	}
	tx.Kind = Kind(kind)
	tx.Status = Status(status)
	tx.CreatedAt = createdAt.UTC()
	return tx, nil
}
