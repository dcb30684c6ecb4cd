package ledger

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidAmount occurs when a caller submits a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	// ErrNotFound indicates the referenced transaction does not exist.
	ErrNotFound = errors.New("transaction not found")

	// ErrInvalidKind indicates a transaction kind outside the closed set.
	ErrInvalidKind = errors.New("invalid transaction kind")

	// ErrInvalidStatus indicates a status outside the canonical vocabulary.
	ErrInvalidStatus = errors.New("invalid transaction status")

	// ErrInvalidCursor indicates a pagination cursor that cannot be decoded.
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// Kind classifies a ledger entry. The set is closed; direction is derived
// from the kind via Sign, never stored as a negative amount.
type Kind string

const (
	KindDeposit     Kind = "deposit"
	KindWithdraw    Kind = "withdraw"
	KindAdminCredit Kind = "admin_credit"
	KindAdminDebit  Kind = "admin_debit"
	KindAdminAdjust Kind = "admin_adjust"
	KindPlanCharge  Kind = "plan_charge"
)

// kindSigns is the explicit sign lookup table. admin_adjust rows are
// record-only audit entries and carry no balance effect.
var kindSigns = map[Kind]int{
	KindDeposit:     +1,
	KindWithdraw:    -1,
	KindAdminCredit: +1,
	KindAdminDebit:  -1,
	KindAdminAdjust: 0,
	KindPlanCharge:  -1,
}

// Sign reports the balance direction for the kind: +1 credit, -1 debit,
// 0 for record-only rows.
func (k Kind) Sign() int {
	return kindSigns[k]
}

// Valid reports whether the kind belongs to the closed set.
func (k Kind) Valid() bool {
	_, ok := kindSigns[k]
	return ok
}

// SettledOnCreate reports whether entries of this kind are recorded as
// already settled. User-initiated kinds start pending and wait for an
// admin decision; admin one-shot kinds and plan charges are written
// alongside the balance change they describe.
func (k Kind) SettledOnCreate() bool {
	switch k {
	case KindDeposit, KindWithdraw:
		return false
	default:
		return true
	}
}

// ParseKind validates a wire-format kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// Status is the lifecycle state of a ledger entry. Once a status leaves
// pending it is terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus normalizes a wire-format status to the canonical vocabulary.
// The legacy aliases "completed" and "failed" are accepted as input.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "approved", "completed":
		return StatusApproved, nil
	case "rejected", "failed":
		return StatusRejected, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Transaction is one immutable record of a requested or settled monetary
// movement. AmountCents is always a positive magnitude.
type Transaction struct {
	ID          string
	UserID      string
	Kind        Kind
	AmountCents int64
	Currency    string
	Status      Status
	Ref         string
	CreatedAt   time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	UserID string
	Status Status
	Kind   Kind
}

// Page is one window of List results ordered by (created_at, id)
// descending. NextCursor is empty when no further rows exist.
type Page struct {
	Transactions []Transaction
	NextCursor   string
}

// Store is the contract implemented by ledger backends.
type Store interface {
	// Create appends a ledger entry. The initial status is derived from
	// the kind: pending for user-initiated kinds, approved for admin
	// one-shot kinds. Fails with ErrInvalidAmount for non-positive
	// amounts and ErrInvalidKind for kinds outside the closed set.
	Create(ctx context.Context, userID string, kind Kind, amountCents int64, currency, ref string) (Transaction, error)

	// Get loads a single entry, ErrNotFound if absent.
	Get(ctx context.Context, id string) (Transaction, error)

	// List returns entries newest first using keyset pagination. Offset
	// pagination is deliberately not offered: it skips or repeats rows
	// under concurrent inserts.
	List(ctx context.Context, f Filter, limit int, cursor string) (Page, error)

	// SetStatus flips a pending entry to the given terminal status.
	// It is a compare-and-swap: changed=false with a nil error means a
	// concurrent caller already settled the entry. At most one caller
	// can ever flip a given entry out of pending.
	SetStatus(ctx context.Context, id string, status Status) (changed bool, err error)

	// Reopen reverts the terminal status written by SetStatus back to
	// pending. It is the compensation step for a settlement whose
	// balance mutation could not be applied, and only succeeds while the
	// entry still holds the expected terminal status.
	Reopen(ctx context.Context, id string, from Status) error
}

// Cursors encode "<unix-nanos>|<id>" with URL-safe base64 so the ordering
// key survives round-trips through query strings unchanged.

func encodeCursor(t time.Time, id string) string {
	raw := strconv.FormatInt(t.UnixNano(), 10) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", ErrInvalidCursor
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, "", ErrInvalidCursor
	}
	return time.Unix(0, nanos).UTC(), parts[1], nil
}

func validateCreate(userID string, kind Kind, amountCents int64) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if !kind.Valid() {
		return ErrInvalidKind
	}
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func initialStatus(kind Kind) Status {
	if kind.SettledOnCreate() {
		return StatusApproved
	}
	return StatusPending
}
