// Package settlement ties ledger status transitions to wallet balance
// mutations. The engine is the only writer of balance changes in the
// system: approvals, admin adjustments, and plan charges all move money
// through it.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/notification"
	"github.com/coinvault/coinvault/internal/wallet"
)

// ErrZeroDelta occurs when an admin adjustment carries no amount.
var ErrZeroDelta = errors.New("delta must be a non-zero integer")

// Engine applies settlement decisions. The status CAS in the ledger is the
// mutual-exclusion point per entry; the wallet store's conditional debit is
// the mutual-exclusion point per wallet.
type Engine struct {
	ledger   ledger.Store
	wallets  wallet.Store
	balances *wallet.BalanceCache
	notifier notification.Notifier
	logger   *slog.Logger
}

// New builds a settlement engine. The balance cache and notifier are
// optional.
func New(ledgerStore ledger.Store, wallets wallet.Store, balances *wallet.BalanceCache, notifier notification.Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		ledger:   ledgerStore,
		wallets:  wallets,
		balances: balances,
		notifier: notifier,
		logger:   logger,
	}
}

// Outcome describes a settlement attempt. Changed=false means the entry was
// already terminal and nothing moved; callers may retry Settle blindly
// without double-crediting.
//
// On the Changed=false path BalanceCents is a best-effort read: if the
// wallet cannot be reached it is reported as 0 rather than failing an
// otherwise-informational response.
type Outcome struct {
	Transaction  ledger.Transaction
	BalanceCents int64
	Changed      bool
}

// Settle resolves a pending entry to the given terminal decision and, on
// approval, applies the balance effect. The decision is normalized first,
// so the legacy "completed"/"failed" aliases are accepted.
//
// The flip-first shape is deliberate: the status CAS is won by at most one
// caller, every loser observes changed=false and exits cleanly, and only
// the winner ever reaches the balance step. If that step cannot be applied,
// the flip is compensated back to pending so the entry stays actionable.
func (e *Engine) Settle(ctx context.Context, txID string, decision ledger.Status) (Outcome, error) {
	if !decision.Terminal() {
		return Outcome{}, ledger.ErrInvalidStatus
	}

	tx, err := e.ledger.Get(ctx, txID)
	if err != nil {
		return Outcome{}, err
	}

	changed, err := e.ledger.SetStatus(ctx, txID, decision)
	if err != nil {
		return Outcome{}, err
	}
	if !changed {
		// Already processed: report the current state, not an error.
		current, err := e.ledger.Get(ctx, txID)
		if err != nil {
			return Outcome{}, err
		}
		balance, err := e.currentBalance(ctx, tx.UserID)
		if err != nil && e.logger != nil {
			e.logger.Warn("balance read failed for settled entry",
				"transaction_id", txID, "user_id", tx.UserID, "error", err)
		}
		return Outcome{Transaction: current, BalanceCents: balance, Changed: false}, nil
	}
	tx.Status = decision

	if decision == ledger.StatusRejected {
		e.notify(ctx, tx, notification.KindSettlementRejected)
		return Outcome{Transaction: tx, BalanceCents: e.balanceOrZero(ctx, tx.UserID), Changed: true}, nil
	}

	newBalance, err := e.applyApproval(ctx, tx)
	if err != nil {
		// Compensate the flip so the entry remains retryable. An approved
		// entry with no corresponding balance change must never survive.
		if reopenErr := e.ledger.Reopen(ctx, txID, decision); reopenErr != nil && e.logger != nil {
			e.logger.Error("settlement compensation failed",
				"transaction_id", txID, "error", reopenErr)
		}
		return Outcome{}, err
	}

	e.balances.Invalidate(ctx, tx.UserID)
	e.notify(ctx, tx, notification.KindSettlementApproved)
	return Outcome{Transaction: tx, BalanceCents: newBalance, Changed: true}, nil
}

// applyApproval moves the wallet balance for an approved entry and returns
// the post-settlement balance.
func (e *Engine) applyApproval(ctx context.Context, tx ledger.Transaction) (int64, error) {
	sign := tx.Kind.Sign()
	if sign == 0 {
		// Record-only kinds settle without a balance effect.
		return e.balanceOrZero(ctx, tx.UserID), nil
	}

	if _, err := e.wallets.Ensure(ctx, tx.UserID, tx.Currency); err != nil {
		return 0, err
	}

	if sign < 0 {
		// The overdraft guard and the write are one conditional update on
		// the wallet row. Two approvals racing on the same wallet cannot
		// both pass a stale balance check.
		return e.wallets.Debit(ctx, tx.UserID, tx.AmountCents)
	}
	return e.wallets.Adjust(ctx, tx.UserID, tx.AmountCents)
}

// AdjustInput describes a one-shot admin wallet adjustment.
type AdjustInput struct {
	UserID     string
	DeltaCents int64
	Currency   string
	Note       string
}

// AdjustResult carries the audit row and the post-adjustment balance.
type AdjustResult struct {
	Transaction  ledger.Transaction
	BalanceCents int64
	Currency     string
}

// AdminAdjust credits or debits a wallet directly and records the movement
// as an already-settled audit row in the same call. Operator adjustments
// ignore the overdraft guard: a corrective debit may take a balance
// negative.
func (e *Engine) AdminAdjust(ctx context.Context, in AdjustInput) (AdjustResult, error) {
	if in.DeltaCents == 0 {
		return AdjustResult{}, ErrZeroDelta
	}

	kind := ledger.KindAdminCredit
	amount := in.DeltaCents
	if in.DeltaCents < 0 {
		kind = ledger.KindAdminDebit
		amount = -in.DeltaCents
	}

	tx, err := e.ledger.Create(ctx, in.UserID, kind, amount, in.Currency, in.Note)
	if err != nil {
		return AdjustResult{}, err
	}

	if _, err := e.wallets.Ensure(ctx, in.UserID, in.Currency); err != nil {
		e.reopenQuietly(ctx, tx.ID)
		return AdjustResult{}, err
	}
	balance, err := e.wallets.Adjust(ctx, in.UserID, in.DeltaCents)
	if err != nil {
		// Leave the audit row pending rather than settled-but-unbalanced;
		// a later Settle can retry it.
		e.reopenQuietly(ctx, tx.ID)
		return AdjustResult{}, err
	}

	e.balances.Invalidate(ctx, in.UserID)
	e.notify(ctx, tx, notification.KindAdminAdjustment)

	currency := in.Currency
	if currency == "" {
		currency = tx.Currency
	}
	return AdjustResult{Transaction: tx, BalanceCents: balance, Currency: currency}, nil
}

// ProfitInput describes a record-only bookkeeping entry.
type ProfitInput struct {
	UserID      string
	AmountCents int64
	Currency    string
	Note        string
}

// ProfitAdjust writes a settled admin_adjust row. These entries are pure
// bookkeeping: the kind carries sign 0, so the wallet balance is never
// touched and reconciliation over signed settled amounts is unaffected.
func (e *Engine) ProfitAdjust(ctx context.Context, in ProfitInput) (ledger.Transaction, error) {
	tx, err := e.ledger.Create(ctx, in.UserID, ledger.KindAdminAdjust, in.AmountCents, in.Currency, in.Note)
	if err != nil {
		return ledger.Transaction{}, err
	}
	e.notify(ctx, tx, notification.KindAdminAdjustment)
	return tx, nil
}

// ChargePlan debits a plan subscription fee and records it as a settled
// plan_charge row. Unlike admin adjustments the charge respects the
// overdraft guard: a wallet that cannot cover the fee is not charged and no
// row is written.
func (e *Engine) ChargePlan(ctx context.Context, userID string, amountCents int64, currency, ref string) (ledger.Transaction, int64, error) {
	if amountCents <= 0 {
		return ledger.Transaction{}, 0, ledger.ErrInvalidAmount
	}

	if _, err := e.wallets.Ensure(ctx, userID, currency); err != nil {
		return ledger.Transaction{}, 0, err
	}
	balance, err := e.wallets.Debit(ctx, userID, amountCents)
	if err != nil {
		return ledger.Transaction{}, 0, err
	}

	tx, err := e.ledger.Create(ctx, userID, ledger.KindPlanCharge, amountCents, currency, ref)
	if err != nil {
		// The debit landed but the audit row did not; put the money back.
		if _, compErr := e.wallets.Adjust(ctx, userID, amountCents); compErr != nil && e.logger != nil {
			e.logger.Error("plan charge compensation failed",
				"user_id", userID, "amount_cents", amountCents, "error", compErr)
		}
		return ledger.Transaction{}, 0, err
	}

	e.balances.Invalidate(ctx, userID)
	return tx, balance, nil
}

func (e *Engine) currentBalance(ctx context.Context, userID string) (int64, error) {
	b, err := e.wallets.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return b.BalanceCents, nil
}

func (e *Engine) balanceOrZero(ctx context.Context, userID string) int64 {
	balance, err := e.currentBalance(ctx, userID)
	if err != nil {
		return 0
	}
	return balance
}

func (e *Engine) reopenQuietly(ctx context.Context, txID string) {
	if err := e.ledger.Reopen(ctx, txID, ledger.StatusApproved); err != nil && e.logger != nil {
		e.logger.Error("adjustment compensation failed", "transaction_id", txID, "error", err)
	}
}

func (e *Engine) notify(ctx context.Context, tx ledger.Transaction, kind string) {
	if e.notifier == nil {
		return
	}
	_ = e.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: tx.UserID,
		Body:        fmt.Sprintf("%s of %d %s is %s", tx.Kind, tx.AmountCents, tx.Currency, tx.Status),
	})
}
