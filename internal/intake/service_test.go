package intake

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/wallet"
)

func newTestService() (*Service, ledger.Store, wallet.Store) {
	ledgerStore := ledger.NewInMemory()
	wallets := wallet.NewInMemory()
	return NewService(ledgerStore, wallets), ledgerStore, wallets
}

func TestRequestDepositCreatesPendingEntry(t *testing.T) {
	svc, _, wallets := newTestService()
	ctx := context.Background()

	tx, err := svc.RequestDeposit(ctx, DepositInput{
		UserID:      "user-1",
		AmountCents: 500,
		Network:     "erc20",
		TxID:        "0xabc123",
	})
	if err != nil {
		t.Fatalf("request deposit: %v", err)
	}
	if tx.Kind != ledger.KindDeposit || tx.Status != ledger.StatusPending {
		t.Fatalf("unexpected entry: %+v", tx)
	}
	if tx.Ref != "net=erc20 | txid=0xabc123" {
		t.Fatalf("unexpected ref: %q", tx.Ref)
	}
	if tx.Currency != "USD" {
		t.Fatalf("expected default USD, got %s", tx.Currency)
	}

	// The wallet row exists lazily, still at zero.
	b, err := wallets.GetBalance(ctx, "user-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.BalanceCents != 0 {
		t.Fatalf("deposit request must not move balance, got %d", b.BalanceCents)
	}
}

func TestRequestDepositValidation(t *testing.T) {
	svc, ledgerStore, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.RequestDeposit(ctx, DepositInput{UserID: "user-1", AmountCents: 0, TxID: "0xabc"}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.RequestDeposit(ctx, DepositInput{UserID: "user-1", AmountCents: -5, TxID: "0xabc"}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
	if _, err := svc.RequestDeposit(ctx, DepositInput{UserID: "user-1", AmountCents: 500}); !errors.Is(err, ErrMissingTxID) {
		t.Fatalf("expected ErrMissingTxID, got %v", err)
	}

	page, err := ledgerStore.List(ctx, ledger.Filter{UserID: "user-1"}, 10, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Transactions) != 0 {
		t.Fatalf("rejected requests must create no rows, got %d", len(page.Transactions))
	}
}

func TestRequestWithdrawPlacesNoHold(t *testing.T) {
	svc, ledgerStore, wallets := newTestService()
	ctx := context.Background()

	if _, err := wallets.Ensure(ctx, "user-1", "USD"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := wallets.Adjust(ctx, "user-1", 300); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Two requests of 300 against a 300 balance are both accepted; only
	// settlement enforces funds.
	for i := 0; i < 2; i++ {
		tx, err := svc.RequestWithdraw(ctx, WithdrawInput{
			UserID:      "user-1",
			AmountCents: 300,
			Network:     "trc20",
			Address:     "TAbCdEf",
		})
		if err != nil {
			t.Fatalf("request withdraw %d: %v", i, err)
		}
		if tx.Status != ledger.StatusPending {
			t.Fatalf("expected pending, got %s", tx.Status)
		}
		if tx.Ref != "net=trc20 | addr=TAbCdEf" {
			t.Fatalf("unexpected ref: %q", tx.Ref)
		}
	}

	b, _ := wallets.GetBalance(ctx, "user-1")
	if b.BalanceCents != 300 {
		t.Fatalf("withdraw requests must not move balance, got %d", b.BalanceCents)
	}

	page, err := ledgerStore.List(ctx, ledger.Filter{UserID: "user-1", Status: ledger.StatusPending}, 10, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Transactions) != 2 {
		t.Fatalf("expected 2 pending entries, got %d", len(page.Transactions))
	}
}

func TestRequestWithdrawValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.RequestWithdraw(ctx, WithdrawInput{UserID: "user-1", AmountCents: 100}); !errors.Is(err, ErrMissingAddress) {
		t.Fatalf("expected ErrMissingAddress, got %v", err)
	}
	if _, err := svc.RequestWithdraw(ctx, WithdrawInput{UserID: "user-1", Address: "x"}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRefFieldsAreClipped(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	longAddr := strings.Repeat("a", 500)
	tx, err := svc.RequestWithdraw(ctx, WithdrawInput{
		UserID:      "user-1",
		AmountCents: 100,
		Network:     strings.Repeat("n", 100),
		Address:     longAddr,
	})
	if err != nil {
		t.Fatalf("request withdraw: %v", err)
	}
	want := "net=" + strings.Repeat("n", 32) + " | addr=" + strings.Repeat("a", 120)
	if tx.Ref != want {
		t.Fatalf("ref not clipped: %d chars", len(tx.Ref))
	}

	// Empty network defaults to manual.
	tx, err = svc.RequestDeposit(ctx, DepositInput{UserID: "user-1", AmountCents: 100, TxID: "0xdef"})
	if err != nil {
		t.Fatalf("request deposit: %v", err)
	}
	if tx.Ref != "net=manual | txid=0xdef" {
		t.Fatalf("unexpected ref: %q", tx.Ref)
	}
}
