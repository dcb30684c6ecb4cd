package wallet

import (
	"context"
	"sync"
	"testing"
)

func TestEnsureIsIdempotent(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	first, err := s.Ensure(ctx, "user-1", "USD")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := s.Ensure(ctx, "user-1", "EUR")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first != second {
		t.Fatalf("expected one wallet per user, got ids %s and %s", first, second)
	}

	b, err := s.GetBalance(ctx, "user-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.BalanceCents != 0 || b.Currency != "USD" {
		t.Fatalf("expected zero USD balance, got %d %s", b.BalanceCents, b.Currency)
	}
}

func TestEnsureConcurrentCallersShareOneWallet(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	const workers = 16
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Ensure(ctx, "user-1", "USD")
			if err != nil {
				t.Errorf("ensure: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
			continue
		}
		if id != first {
			t.Fatalf("concurrent ensure produced distinct wallets: %s vs %s", first, id)
		}
	}
}

func TestAdjustRequiresWallet(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if _, err := s.Adjust(ctx, "nobody", 100); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s.Ensure(ctx, "user-1", "USD")
	bal, err := s.Adjust(ctx, "user-1", 500)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if bal != 500 {
		t.Fatalf("expected 500, got %d", bal)
	}

	// Adjust never enforces overdraft; admin debits may go negative.
	bal, err = s.Adjust(ctx, "user-1", -700)
	if err != nil {
		t.Fatalf("negative adjust: %v", err)
	}
	if bal != -200 {
		t.Fatalf("expected -200, got %d", bal)
	}
}

func TestDebitGuardsOverdraft(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	s.Ensure(ctx, "user-1", "USD")
	s.Adjust(ctx, "user-1", 300)

	if _, err := s.Debit(ctx, "user-1", 1000); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := s.Debit(ctx, "nobody", 100); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	bal, err := s.Debit(ctx, "user-1", 300)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if bal != 0 {
		t.Fatalf("expected 0, got %d", bal)
	}
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	s.Ensure(ctx, "user-1", "USD")
	s.Adjust(ctx, "user-1", 1000)

	// Ten concurrent debits of 300 against 1000: exactly three can land.
	const workers = 10
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Debit(ctx, "user-1", 300)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch err {
		case nil:
			ok++
		case ErrInsufficientFunds:
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 3 || insufficient != 7 {
		t.Fatalf("expected 3 successes and 7 refusals, got %d/%d", ok, insufficient)
	}

	b, err := s.GetBalance(ctx, "user-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.BalanceCents != 100 {
		t.Fatalf("expected 100 remaining, got %d", b.BalanceCents)
	}
	if b.BalanceCents < 0 {
		t.Fatal("balance went negative")
	}
}
