package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/activeaging/internal/planning"
)

func TestPlanRepositoryScopesByUser(t *testing.T) {
	repo := NewPlanRepository()
	ctx := context.Background()
	base := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, repo.SavePlan(ctx, planning.Plan{ID: id, UserID: "user-1", CreatedAt: base.AddDate(0, 0, i), Cautions: []string{"x"}}))
	}
	require.NoError(t, repo.SavePlan(ctx, planning.Plan{ID: "other", UserID: "user-2", CreatedAt: base}))

	plan, err := repo.GetPlan(ctx, "user-1", "p2")
	require.NoError(t, err)
	require.NotNil(t, plan)
	plan.Cautions[0] = "mutated"

	again, err := repo.GetPlan(ctx, "user-1", "p2")
	require.NoError(t, err)
	require.Equal(t, "x", again.Cautions[0])

	missing, err := repo.GetPlan(ctx, "user-2", "p2")
	require.NoError(t, err)
	require.Nil(t, missing)

	plans, err := repo.ListPlansByUser(ctx, "user-1", 2)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	require.Equal(t, "p3", plans[0].ID)
	require.Equal(t, "p2", plans[1].ID)
}
