package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/activeaging/internal/planning"
)

// PlanRepository stores plans as JSON documents scoped to their owner by row-level security.
type PlanRepository struct {
	pool *pgxpool.Pool
}

var _ planning.Repository = (*PlanRepository)(nil)

// NewPlanRepository constructs a PlanRepository.
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// SavePlan inserts or replaces the plan document.
//
// TODO: make the update conditional on the stored updated_at so two concurrent completions of
// the same plan cannot silently overwrite each other.
func (r *PlanRepository) SavePlan(ctx context.Context, plan planning.Plan) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", plan.ID, err)
	}

	const stmt = `INSERT INTO plans (plan_id, user_id, created_at, updated_at, document)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (plan_id) DO UPDATE SET updated_at = EXCLUDED.updated_at, document = EXCLUDED.document`

	return r.withUser(ctx, plan.UserID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, stmt, plan.ID, plan.UserID, plan.CreatedAt, plan.UpdatedAt, doc)
		return err
	})
}

// GetPlan returns the plan, or nil when the user owns no plan with that id.
func (r *PlanRepository) GetPlan(ctx context.Context, userID, planID string) (*planning.Plan, error) {
	const query = `SELECT document FROM plans WHERE user_id=$1 AND plan_id=$2`

	var plan *planning.Plan
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		var doc []byte
		if err := tx.QueryRow(ctx, query, userID, planID).Scan(&doc); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		var decoded planning.Plan
		if err := json.Unmarshal(doc, &decoded); err != nil {
			return fmt.Errorf("decode plan %s: %w", planID, err)
		}
		plan = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ListPlansByUser returns the user's plans, newest first.
func (r *PlanRepository) ListPlansByUser(ctx context.Context, userID string, limit int) ([]planning.Plan, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `SELECT document FROM plans WHERE user_id=$1 ORDER BY created_at DESC, plan_id DESC LIMIT $2`

	plans := make([]planning.Plan, 0, limit)
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var doc []byte
			if err := rows.Scan(&doc); err != nil {
				return err
			}
			var plan planning.Plan
			if err := json.Unmarshal(doc, &plan); err != nil {
				return fmt.Errorf("decode plan: %w", err)
			}
			plans = append(plans, plan)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// withUser runs fn in a transaction with app.user_id set for the row-level security policy.
func (r *PlanRepository) withUser(ctx context.Context, userID string, fn func(pgx.Tx) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.user_id', $1, true)", userID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
