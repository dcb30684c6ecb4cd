package plans

import (
	"errors"
	"time"
)

var (
	// ErrPlanNotFound indicates an unknown plan id.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrNotEligible indicates the user is barred from the plan tier.
	ErrNotEligible = errors.New("user is not eligible for this plan")
)

// Canonical plan tiers. Eligibility flags are keyed to these ids.
const (
	TierStarter = "starter"
	TierGrowth  = "growth"
	TierPro     = "pro"
)

// Plan is one investment plan offering.
type Plan struct {
	ID              string
	Name            string
	MinDepositCents int64
	Terms           string
}

// Subscription records a user's active plan membership.
type Subscription struct {
	ID        string
	UserID    string
	PlanID    string
	StartedAt time.Time
	Status    string
}

// Eligibility carries per-user tier restrictions set by an admin. The zero
// value allows everything.
type Eligibility struct {
	UserID          string
	DisallowStarter bool
	DisallowGrowth  bool
	DisallowPro     bool
}

// Blocks reports whether the flags bar the user from the given plan.
// Unknown tiers are never blocked.
func (e Eligibility) Blocks(planID string) bool {
	switch planID {
	case TierStarter:
		return e.DisallowStarter
	case TierGrowth:
		return e.DisallowGrowth
	case TierPro:
		return e.DisallowPro
	default:
		return false
	}
}

// EligibilityPatch updates a subset of the flags; nil fields are left
// untouched.
type EligibilityPatch struct {
	DisallowStarter *bool
	DisallowGrowth  *bool
	DisallowPro     *bool
}
