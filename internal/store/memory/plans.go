// Package memory provides in-process repositories for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"example.com/activeaging/internal/planning"
)

// PlanRepository stores plans in memory. Values are cloned on the way in and out so callers
// never share slices with the store.
type PlanRepository struct {
	mu    sync.RWMutex
	plans map[string]planning.Plan
}

var _ planning.Repository = (*PlanRepository)(nil)

// NewPlanRepository constructs an empty repository.
func NewPlanRepository() *PlanRepository {
	return &PlanRepository{plans: make(map[string]planning.Plan)}
}

// SavePlan inserts or replaces the plan.
func (r *PlanRepository) SavePlan(_ context.Context, plan planning.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.ID] = plan.Clone()
	return nil
}

// GetPlan returns the plan when it exists and belongs to userID.
func (r *PlanRepository) GetPlan(_ context.Context, userID, planID string) (*planning.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[planID]
	if !ok || plan.UserID != userID {
		return nil, nil
	}
	out := plan.Clone()
	return &out, nil
}

// ListPlansByUser returns the user's plans, newest first.
func (r *PlanRepository) ListPlansByUser(_ context.Context, userID string, limit int) ([]planning.Plan, error) {
	r.mu.RLock()
	var out []planning.Plan
	for _, plan := range r.plans {
		if plan.UserID == userID {
			out = append(out, plan.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
