// Package intake validates and records user-initiated deposit and
// withdrawal requests. Requests only ever create pending ledger entries;
// balances move later, when an admin settles them.
package intake

import (
	"context"
	"errors"
	"strings"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/wallet"
)

const (
	maxNetworkLen = 32
	maxDetailLen  = 120
)

var (
	// ErrMissingTxID occurs when a deposit request omits the on-chain
	// transaction id the operator needs to verify it.
	ErrMissingTxID = errors.New("txid is required")

	// ErrMissingAddress occurs when a withdrawal request omits the
	// destination address.
	ErrMissingAddress = errors.New("address is required")
)

// Service records deposit/withdraw requests against the ledger.
type Service struct {
	ledger  ledger.Store
	wallets wallet.Store
}

// NewService constructs the intake service.
func NewService(ledgerStore ledger.Store, wallets wallet.Store) *Service {
	return &Service{ledger: ledgerStore, wallets: wallets}
}

// DepositInput captures a user's deposit claim. Network and TxID are opaque
// audit strings; nothing is verified on-chain.
type DepositInput struct {
	UserID      string
	AmountCents int64
	Currency    string
	Network     string
	TxID        string
}

// WithdrawInput captures a withdrawal request to an external destination.
type WithdrawInput struct {
	UserID      string
	AmountCents int64
	Currency    string
	Network     string
	Address     string
}

// RequestDeposit validates the claim and records a pending deposit entry.
// No balance effect happens here; the deposit credits the wallet only once
// an admin approves it.
func (s *Service) RequestDeposit(ctx context.Context, in DepositInput) (ledger.Transaction, error) {
	if in.AmountCents <= 0 {
		return ledger.Transaction{}, ledger.ErrInvalidAmount
	}
	txid := clip(in.TxID, maxDetailLen)
	if txid == "" {
		return ledger.Transaction{}, ErrMissingTxID
	}

	if _, err := s.wallets.Ensure(ctx, in.UserID, in.Currency); err != nil {
		return ledger.Transaction{}, err
	}

	ref := buildRef(in.Network, "txid", txid)
	return s.ledger.Create(ctx, in.UserID, ledger.KindDeposit, in.AmountCents, in.Currency, ref)
}

// RequestWithdraw validates the request and records a pending withdraw
// entry. No hold is placed on funds: a user may accumulate pending
// withdrawal requests exceeding their balance, and only the first one
// settled will succeed. The overdraft check runs at settlement, where it is
// atomic with the debit.
func (s *Service) RequestWithdraw(ctx context.Context, in WithdrawInput) (ledger.Transaction, error) {
	if in.AmountCents <= 0 {
		return ledger.Transaction{}, ledger.ErrInvalidAmount
	}
	address := clip(in.Address, maxDetailLen)
	if address == "" {
		return ledger.Transaction{}, ErrMissingAddress
	}

	if _, err := s.wallets.Ensure(ctx, in.UserID, in.Currency); err != nil {
		return ledger.Transaction{}, err
	}

	ref := buildRef(in.Network, "addr", address)
	return s.ledger.Create(ctx, in.UserID, ledger.KindWithdraw, in.AmountCents, in.Currency, ref)
}

// buildRef assembles the audit memo, e.g. "net=erc20 | txid=0xabc".
func buildRef(network, key, value string) string {
	network = clip(network, maxNetworkLen)
	if network == "" {
		network = "manual"
	}
	return "net=" + network + " | " + key + "=" + value
}

func clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max]
	}
	return s
}
