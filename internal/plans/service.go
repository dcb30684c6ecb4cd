package plans

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/settlement"
)

// Service exposes the plan catalog and handles paid subscriptions.
type Service struct {
	repo     Repository
	engine   *settlement.Engine
	currency string
}

// NewService wires the plan repository to the settlement engine used for
// charging the minimum deposit.
func NewService(repo Repository, engine *settlement.Engine, currency string) *Service {
	return &Service{repo: repo, engine: engine, currency: currency}
}

// List returns the catalog ordered by minimum deposit.
func (s *Service) List(ctx context.Context) ([]Plan, error) {
	return s.repo.ListPlans(ctx)
}

// EligibilityFor returns the user's tier restrictions.
func (s *Service) EligibilityFor(ctx context.Context, userID string) (Eligibility, error) {
	return s.repo.Eligibility(ctx, userID)
}

// UpdateEligibility applies an admin patch on top of the user's current
// flags and stores the result.
func (s *Service) UpdateEligibility(ctx context.Context, userID string, patch EligibilityPatch) (Eligibility, error) {
	e, err := s.repo.Eligibility(ctx, userID)
	if err != nil {
		return Eligibility{}, err
	}
	if patch.DisallowStarter != nil {
		e.DisallowStarter = *patch.DisallowStarter
	}
	if patch.DisallowGrowth != nil {
		e.DisallowGrowth = *patch.DisallowGrowth
	}
	if patch.DisallowPro != nil {
		e.DisallowPro = *patch.DisallowPro
	}
	e.UserID = userID
	if err := s.repo.SetEligibility(ctx, e); err != nil {
		return Eligibility{}, err
	}
	return e, nil
}

// Subscribe charges the plan's minimum deposit from the user's wallet and
// records the subscription. The charge respects the overdraft guard, so an
// underfunded wallet refuses the subscription without writing anything.
func (s *Service) Subscribe(ctx context.Context, userID, planID string) (Subscription, ledger.Transaction, error) {
	plan, err := s.repo.GetPlan(ctx, planID)
	if err != nil {
		return Subscription{}, ledger.Transaction{}, err
	}

	elig, err := s.repo.Eligibility(ctx, userID)
	if err != nil {
		return Subscription{}, ledger.Transaction{}, err
	}
	if elig.Blocks(plan.ID) {
		return Subscription{}, ledger.Transaction{}, ErrNotEligible
	}

	ref := "plan=" + plan.ID
	tx, _, err := s.engine.ChargePlan(ctx, userID, plan.MinDepositCents, s.currency, ref)
	if err != nil {
		return Subscription{}, ledger.Transaction{}, err
	}

	sub := Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		PlanID:    plan.ID,
		StartedAt: time.Now().UTC(),
		Status:    "active",
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		// The charge already settled; surface the failure with the
		// transaction id so an operator can reconcile.
		return Subscription{}, tx, fmt.Errorf("record subscription after charge %s: %w", tx.ID, err)
	}
	return sub, tx, nil
}

// Subscriptions lists the user's subscriptions, newest first.
func (s *Service) Subscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	return s.repo.ListSubscriptions(ctx, userID)
}
