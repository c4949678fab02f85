//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/activeaging/internal/audit"
	"example.com/activeaging/internal/catalog"
	"example.com/activeaging/internal/planning"
	"example.com/activeaging/internal/testsupport"
)

func TestAuditStoreAppendIsIdempotentAndPages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pool := testsupport.StartPostgres(ctx, t)
	store := NewAuditStore(pool)

	userID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := range 3 {
		rec := audit.Record{
			ID:        fmt.Sprintf("rec-%d", i),
			Type:      audit.TypeRecommendation,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			UserID:    userID,
			Payload:   json.RawMessage(fmt.Sprintf(`{"source":"chat","content":"tip %d"}`, i)),
		}
		require.NoError(t, store.Append(ctx, rec))
		require.NoError(t, store.Append(ctx, rec))
	}
	require.NoError(t, store.Append(ctx, audit.Record{ID: "sys", Type: audit.TypeEngineCall, Timestamp: base, Payload: json.RawMessage(`{}`)}))

	page, err := store.ListByUser(ctx, audit.Query{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	require.Equal(t, "rec-2", page.Records[0].ID)
	require.Equal(t, "rec-1", page.Records[1].ID)
	require.NotEmpty(t, page.NextCursor)

	var rec audit.Recommendation
	require.NoError(t, json.Unmarshal(page.Records[0].Payload, &rec))
	require.Equal(t, "tip 2", rec.Content)

	page, err = store.ListByUser(ctx, audit.Query{UserID: userID, Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, "rec-0", page.Records[0].ID)
	require.Empty(t, page.NextCursor)

	page, err = store.ListByUser(ctx, audit.Query{UserID: userID, Type: audit.TypeSafetyIntervention})
	require.NoError(t, err)
	require.Empty(t, page.Records)
}

func TestPlanRepositoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pool := testsupport.StartPostgres(ctx, t)
	repo := NewPlanRepository(pool)

	cat, err := catalog.Default()
	require.NoError(t, err)
	engine := planning.NewEngine(cat)
	profile := planning.Profile{Age: 72, MobilityLimitations: []string{"knee pain"}}

	userID := uuid.NewString()
	plan, err := engine.BuildStarterPlan(userID, profile, "garden again")
	require.NoError(t, err)
	require.NoError(t, repo.SavePlan(ctx, plan))

	stored, err := repo.GetPlan(ctx, userID, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, plan.ID, stored.ID)
	require.Len(t, stored.Sessions, len(plan.Sessions))

	updated, err := engine.UpdatePlanOnCompletion(*stored, stored.Sessions[0].ID, planning.Feedback{Difficulty: planning.DifficultyTooHard}, &profile, nil)
	require.NoError(t, err)
	require.NoError(t, repo.SavePlan(ctx, updated))

	stored, err = repo.GetPlan(ctx, userID, plan.ID)
	require.NoError(t, err)
	require.Equal(t, planning.StatusCompleted, stored.Sessions[0].Status)
	require.NotNil(t, stored.Sessions[0].Feedback)

	other, err := repo.GetPlan(ctx, uuid.NewString(), plan.ID)
	require.NoError(t, err)
	require.Nil(t, other, "plans are only visible to their owner")

	plans, err := repo.ListPlansByUser(ctx, userID, 5)
	require.NoError(t, err)
	require.Len(t, plans, 1)
}
