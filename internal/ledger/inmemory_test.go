package ledger

import (
	"context"
	"sync"
	"testing"
)

func TestCreateValidation(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if _, err := s.Create(ctx, "user-1", KindDeposit, 0, "USD", ""); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if _, err := s.Create(ctx, "user-1", KindDeposit, -500, "USD", ""); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
	if _, err := s.Create(ctx, "user-1", Kind("transfer"), 500, "USD", ""); err != ErrInvalidKind {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}

	// No rows may exist after rejected creates.
	page, err := s.List(ctx, Filter{UserID: "user-1"}, 10, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Transactions) != 0 {
		t.Fatalf("expected no entries, got %d", len(page.Transactions))
	}
}

func TestCreateInitialStatusByKind(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	cases := []struct {
		kind Kind
		want Status
	}{
		{KindDeposit, StatusPending},
		{KindWithdraw, StatusPending},
		{KindAdminCredit, StatusApproved},
		{KindAdminDebit, StatusApproved},
		{KindAdminAdjust, StatusApproved},
		{KindPlanCharge, StatusApproved},
	}
	for _, tc := range cases {
		tx, err := s.Create(ctx, "user-1", tc.kind, 100, "USD", "")
		if err != nil {
			t.Fatalf("create %s: %v", tc.kind, err)
		}
		if tx.Status != tc.want {
			t.Fatalf("kind %s: expected status %s, got %s", tc.kind, tc.want, tx.Status)
		}
	}
}

func TestSetStatusCAS(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	tx, err := s.Create(ctx, "user-1", KindDeposit, 500, "USD", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	changed, err := s.SetStatus(ctx, tx.ID, StatusApproved)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if !changed {
		t.Fatal("expected first SetStatus to win")
	}

	// A second flip must report changed=false without error.
	changed, err = s.SetStatus(ctx, tx.ID, StatusRejected)
	if err != nil {
		t.Fatalf("second set status: %v", err)
	}
	if changed {
		t.Fatal("terminal entry must not change again")
	}

	got, err := s.Get(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}

	if _, err := s.SetStatus(ctx, "missing", StatusApproved); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.SetStatus(ctx, tx.ID, StatusPending); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus for pending target, got %v", err)
	}
}

func TestSetStatusSingleWinnerUnderConcurrency(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	tx, err := s.Create(ctx, "user-1", KindWithdraw, 300, "USD", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := s.SetStatus(ctx, tx.ID, StatusApproved)
			if err != nil {
				t.Errorf("set status: %v", err)
				return
			}
			wins <- changed
		}()
	}
	wg.Wait()
	close(wins)

	var won int
	for changed := range wins {
		if changed {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one winner, got %d", won)
	}
}

func TestReopenRevertsOnlyExpectedStatus(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	tx, err := s.Create(ctx, "user-1", KindWithdraw, 300, "USD", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.SetStatus(ctx, tx.ID, StatusApproved); err != nil {
		t.Fatalf("set status: %v", err)
	}

	if err := s.Reopen(ctx, tx.ID, StatusRejected); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for mismatched status, got %v", err)
	}
	if err := s.Reopen(ctx, tx.ID, StatusApproved); err != nil {
		t.Fatalf("reopen: %v", err)
	}

	got, err := s.Get(ctx, tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("expected pending after reopen, got %s", got.Status)
	}
}

func TestListKeysetPagination(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	ids := make(map[string]bool)
	for i := 0; i < 7; i++ {
		tx, err := s.Create(ctx, "user-1", KindDeposit, 100, "USD", "")
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		ids[tx.ID] = true
	}

	var seen []Transaction
	cursor := ""
	for {
		page, err := s.List(ctx, Filter{UserID: "user-1"}, 3, cursor)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		seen = append(seen, page.Transactions...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if len(seen) != 7 {
		t.Fatalf("expected 7 entries across pages, got %d", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		prev, cur := seen[i-1], seen[i]
		if cur.CreatedAt.After(prev.CreatedAt) {
			t.Fatal("entries not in created_at descending order")
		}
		delete(ids, cur.ID)
	}
	delete(ids, seen[0].ID)
	if len(ids) != 0 {
		t.Fatalf("pagination skipped %d entries", len(ids))
	}

	if _, err := s.List(ctx, Filter{}, 10, "not-a-cursor"); err != ErrInvalidCursor {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	dep, _ := s.Create(ctx, "user-1", KindDeposit, 100, "USD", "")
	s.Create(ctx, "user-1", KindWithdraw, 200, "USD", "")
	s.Create(ctx, "user-2", KindDeposit, 300, "USD", "")
	if _, err := s.SetStatus(ctx, dep.ID, StatusApproved); err != nil {
		t.Fatalf("set status: %v", err)
	}

	page, err := s.List(ctx, Filter{UserID: "user-1", Status: StatusPending}, 10, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Transactions) != 1 || page.Transactions[0].Kind != KindWithdraw {
		t.Fatalf("unexpected pending filter result: %+v", page.Transactions)
	}

	page, err = s.List(ctx, Filter{Kind: KindDeposit}, 10, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Transactions) != 2 {
		t.Fatalf("expected 2 deposits, got %d", len(page.Transactions))
	}
}

func TestParseStatusAliases(t *testing.T) {
	cases := map[string]Status{
		"approved":  StatusApproved,
		"completed": StatusApproved,
		"REJECTED":  StatusRejected,
		"failed":    StatusRejected,
		"pending":   StatusPending,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", in, want, got)
		}
	}
	if _, err := ParseStatus("cleared"); err != ErrInvalidStatus {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
