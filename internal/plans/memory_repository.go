package plans

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory Repository used in tests and when no
// database is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	plans map[string]Plan
	elig  map[string]Eligibility
	subs  []Subscription
}

// NewMemoryRepository creates an empty in-memory plan repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		plans: make(map[string]Plan),
		elig:  make(map[string]Eligibility),
	}
}

// NewMemoryRepositoryWithDefaults seeds the standard catalog so a dev
// server has something to serve.
func NewMemoryRepositoryWithDefaults() *MemoryRepository {
	r := NewMemoryRepository()
	r.SeedPlan(Plan{ID: TierStarter, Name: "Starter", MinDepositCents: 10_000, Terms: "Entry tier"})
	r.SeedPlan(Plan{ID: TierGrowth, Name: "Growth", MinDepositCents: 100_000, Terms: "Mid tier"})
	r.SeedPlan(Plan{ID: TierPro, Name: "Pro", MinDepositCents: 1_000_000, Terms: "Top tier"})
	return r
}

// SeedPlan adds or replaces a catalog entry.
func (r *MemoryRepository) SeedPlan(p Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = p
}

func (r *MemoryRepository) ListPlans(ctx context.Context) ([]Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinDepositCents < out[j].MinDepositCents })
	return out, nil
}

func (r *MemoryRepository) GetPlan(ctx context.Context, id string) (Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

func (r *MemoryRepository) Eligibility(ctx context.Context, userID string) (Eligibility, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.elig[userID]; ok {
		return e, nil
	}
	return Eligibility{UserID: userID}, nil
}

func (r *MemoryRepository) SetEligibility(ctx context.Context, e Eligibility) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.elig[e.UserID] = e
	return nil
}

func (r *MemoryRepository) CreateSubscription(ctx context.Context, sub Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub)
	return nil
}

func (r *MemoryRepository) ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Subscription
	for i := len(r.subs) - 1; i >= 0; i-- {
		if r.subs[i].UserID == userID {
			out = append(out, r.subs[i])
		}
	}
	return out, nil
}
