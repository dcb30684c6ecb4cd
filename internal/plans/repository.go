package plans

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the plan catalog, per-user eligibility flags and
// subscriptions.
type Repository interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlan(ctx context.Context, id string) (Plan, error)
	Eligibility(ctx context.Context, userID string) (Eligibility, error)
	SetEligibility(ctx context.Context, e Eligibility) error
	CreateSubscription(ctx context.Context, sub Subscription) error
	ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error)
}

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a plan repository backed by Postgres.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, min_deposit_cents, terms
		FROM plans
		ORDER BY min_deposit_cents ASC`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.MinDepositCents, &p.Terms); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetPlan(ctx context.Context, id string) (Plan, error) {
	var p Plan
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, min_deposit_cents, terms
		FROM plans
		WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.MinDepositCents, &p.Terms)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, ErrPlanNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Eligibility(ctx context.Context, userID string) (Eligibility, error) {
	e := Eligibility{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		SELECT disallow_starter, disallow_growth, disallow_pro
		FROM plan_limits
		WHERE user_id = $1`, userID).
		Scan(&e.DisallowStarter, &e.DisallowGrowth, &e.DisallowPro)
	if errors.Is(err, pgx.ErrNoRows) {
		// No row means no restrictions.
		return e, nil
	}
	if err != nil {
		return Eligibility{}, fmt.Errorf("get eligibility: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) SetEligibility(ctx context.Context, e Eligibility) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO plan_limits (user_id, disallow_starter, disallow_growth, disallow_pro)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			disallow_starter = EXCLUDED.disallow_starter,
			disallow_growth  = EXCLUDED.disallow_growth,
			disallow_pro     = EXCLUDED.disallow_pro`,
		e.UserID, e.DisallowStarter, e.DisallowGrowth, e.DisallowPro)
	if err != nil {
		return fmt.Errorf("set eligibility: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateSubscription(ctx context.Context, sub Subscription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO plan_subscriptions (id, user_id, plan_id, started_at, status)
		VALUES ($1, $2, $3, $4, $5)`,
		sub.ID, sub.UserID, sub.PlanID, sub.StartedAt, sub.Status)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, plan_id, started_at, status
		FROM plan_subscriptions
		WHERE user_id = $1
		ORDER BY started_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.PlanID, &s.StartedAt, &s.Status); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
