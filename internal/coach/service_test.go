package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/activeaging/internal/audit"
	"example.com/activeaging/internal/catalog"
	"example.com/activeaging/internal/coaching"
	"example.com/activeaging/internal/errs"
	"example.com/activeaging/internal/planning"
	"example.com/activeaging/internal/safety"
	"example.com/activeaging/internal/store/memory"
)

var fixedNow = time.Date(2025, 10, 27, 15, 30, 0, 0, time.UTC)

type stubDrafter struct {
	draft coaching.Draft
	err   error

	mu        sync.Mutex
	messages  []string
	explained []string
}

func (s *stubDrafter) Chat(_ context.Context, message string, _ coaching.Context) (coaching.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	return s.draft, s.err
}

func (s *stubDrafter) ExplainPlan(_ context.Context, plan planning.Plan, _ coaching.Context) (coaching.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explained = append(s.explained, plan.ID)
	return s.draft, s.err
}

type recorder struct {
	mu              sync.Mutex
	recommendations []audit.Recommendation
	engineCalls     []audit.EngineCall
	interventions   []audit.SafetyIntervention
}

func (r *recorder) LogRecommendation(_ context.Context, _ string, rec audit.Recommendation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recommendations = append(r.recommendations, rec)
}

func (r *recorder) LogEngineCall(_ context.Context, _ string, call audit.EngineCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engineCalls = append(r.engineCalls, call)
}

func (r *recorder) LogLLMInteraction(context.Context, string, audit.LLMInteraction) {}

func (r *recorder) LogSafetyIntervention(_ context.Context, _ string, si audit.SafetyIntervention) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interventions = append(r.interventions, si)
}

func newTestService(t *testing.T, drafter Drafter) (*Service, *recorder, *memory.PlanRepository) {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	seq := 0
	engine := planning.NewEngine(cat,
		planning.WithClock(func() time.Time { return fixedNow }),
		planning.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	rec := &recorder{}
	plans := memory.NewPlanRepository()
	svc, err := NewService(engine, drafter, plans,
		WithRecorder(rec),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	return svc, rec, plans
}

func TestChatPassesCleanDraftThrough(t *testing.T) {
	drafter := &stubDrafter{draft: coaching.Draft{
		Message: "A short walk after lunch is a lovely way to start.",
		Sources: []coaching.Source{{Collection: "guidelines", Title: "Walking basics"}},
	}}
	svc, rec, _ := newTestService(t, drafter)

	reply, err := svc.Chat(context.Background(), "user-1", ChatInput{Message: "How do I start?", Profile: planning.Profile{Age: 68}})
	require.NoError(t, err)
	require.Equal(t, drafter.draft.Message, reply.Message)
	require.Equal(t, safety.ActionAllow, reply.Safety.Action)
	require.Len(t, reply.Sources, 1)

	require.Empty(t, rec.interventions)
	require.Len(t, rec.recommendations, 1)
	require.Equal(t, "chat", rec.recommendations[0].Source)
	require.Equal(t, []string{"Walking basics"}, rec.recommendations[0].Sources)
}

func TestChatRewritesOverPromisingDraft(t *testing.T) {
	drafter := &stubDrafter{draft: coaching.Draft{Message: "This will definitely cure your arthritis, guaranteed"}}
	svc, rec, _ := newTestService(t, drafter)

	reply, err := svc.Chat(context.Background(), "user-1", ChatInput{Message: "Will this help?"})
	require.NoError(t, err)
	require.Equal(t, safety.ActionModify, reply.Safety.Action)
	require.NotContains(t, strings.ToLower(reply.Message), "guaranteed")
	require.Contains(t, reply.Message, safety.Disclaimer)

	require.Len(t, rec.interventions, 1)
	require.Equal(t, "modify", rec.interventions[0].Action)
	require.Equal(t, drafter.draft.Message, rec.interventions[0].OriginalContent)
	require.Equal(t, reply.Message, rec.recommendations[0].Content)
}

func TestChatBlocksMedicalAdviceAndDropsSources(t *testing.T) {
	drafter := &stubDrafter{draft: coaching.Draft{
		Message: "You have osteoarthritis and should take 200mg of the medication daily",
		Sources: []coaching.Source{{Title: "Joint health"}},
	}}
	svc, rec, _ := newTestService(t, drafter)

	reply, err := svc.Chat(context.Background(), "user-1", ChatInput{Message: "My knee hurts", Profile: planning.Profile{Age: 74}})
	require.NoError(t, err)
	require.Equal(t, safety.ActionBlock, reply.Safety.Action)
	require.Equal(t, safety.SeverityCritical, reply.Safety.Severity)
	require.True(t, reply.Safety.Escalated)
	require.NotContains(t, reply.Message, "200mg")
	require.Empty(t, reply.Sources)

	require.Len(t, rec.interventions, 1)
	require.True(t, rec.interventions[0].Escalate)
	require.Contains(t, rec.interventions[0].RedFlags, string(safety.CategoryMedicalDiagnosis))
}

func TestChatSurfacesModelFailure(t *testing.T) {
	drafter := &stubDrafter{err: fmt.Errorf("%w: model down", errs.ErrUpstream)}
	svc, rec, _ := newTestService(t, drafter)

	_, err := svc.Chat(context.Background(), "user-1", ChatInput{Message: "hello"})
	require.ErrorIs(t, err, errs.ErrUpstream)
	require.Empty(t, rec.recommendations)
}

func TestBuildPlanStoresAndAudits(t *testing.T) {
	svc, rec, plans := newTestService(t, &stubDrafter{})
	ctx := context.Background()

	plan, err := svc.BuildPlan(ctx, "user-1", planning.Profile{Age: 70}, "play with grandchildren")
	require.NoError(t, err)
	require.Len(t, plan.Sessions, 5)

	stored, err := plans.GetPlan(ctx, "user-1", plan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, plan, *stored)

	require.Len(t, rec.engineCalls, 1)
	require.Equal(t, "build_starter_plan", rec.engineCalls[0].Operation)
	require.Empty(t, rec.engineCalls[0].Error)
	require.Len(t, rec.recommendations, 1)
	require.Equal(t, "starter_plan", rec.recommendations[0].Source)
	require.Contains(t, rec.recommendations[0].Content, "day 1")
}

func TestBuildPlanRejectsInvalidProfile(t *testing.T) {
	svc, rec, _ := newTestService(t, &stubDrafter{})

	_, err := svc.BuildPlan(context.Background(), "user-1", planning.Profile{Age: -4}, "")
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Len(t, rec.engineCalls, 1)
	require.NotEmpty(t, rec.engineCalls[0].Error)
}

func TestGetPlanIsScopedToOwner(t *testing.T) {
	svc, _, _ := newTestService(t, &stubDrafter{})
	ctx := context.Background()

	plan, err := svc.BuildPlan(ctx, "user-1", planning.Profile{Age: 70}, "")
	require.NoError(t, err)

	_, err = svc.GetPlan(ctx, "user-2", plan.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCompleteSessionAdaptsAndPersists(t *testing.T) {
	svc, rec, plans := newTestService(t, &stubDrafter{})
	ctx := context.Background()
	profile := planning.Profile{Age: 70}

	plan, err := svc.BuildPlan(ctx, "user-1", profile, "")
	require.NoError(t, err)

	result, err := svc.CompleteSession(ctx, "user-1", plan.ID, plan.Sessions[0].ID,
		planning.Feedback{Difficulty: planning.DifficultyTooHard, Pain: true}, &profile)
	require.NoError(t, err)
	require.Equal(t, planning.StatusCompleted, result.Plan.Sessions[0].Status)
	require.NotEmpty(t, result.Substitutions)
	for _, sub := range result.Substitutions {
		require.NotEqual(t, plan.Sessions[0].ID, sub.SessionID)
	}

	stored, err := plans.GetPlan(ctx, "user-1", plan.ID)
	require.NoError(t, err)
	require.Equal(t, planning.StatusCompleted, stored.Sessions[0].Status)

	last := rec.engineCalls[len(rec.engineCalls)-1]
	require.Equal(t, "update_plan_on_completion", last.Operation)
	require.Equal(t, len(result.Substitutions), last.Substitutions)
	require.Equal(t, "plan_adaptation", rec.recommendations[len(rec.recommendations)-1].Source)
}

func TestCompleteSessionErrors(t *testing.T) {
	svc, rec, _ := newTestService(t, &stubDrafter{})
	ctx := context.Background()

	_, err := svc.CompleteSession(ctx, "user-1", "missing", "s", planning.Feedback{Difficulty: planning.DifficultyJustRight}, nil)
	require.ErrorIs(t, err, errs.ErrNotFound)

	plan, err := svc.BuildPlan(ctx, "user-1", planning.Profile{Age: 70}, "")
	require.NoError(t, err)

	_, err = svc.CompleteSession(ctx, "user-1", plan.ID, plan.Sessions[0].ID, planning.Feedback{Difficulty: "meh"}, nil)
	require.ErrorIs(t, err, errs.ErrValidation)
	require.NotEmpty(t, rec.engineCalls[len(rec.engineCalls)-1].Error)

	_, err = svc.CompleteSession(ctx, "user-1", plan.ID, plan.Sessions[0].ID, planning.Feedback{Difficulty: planning.DifficultyJustRight}, nil)
	require.NoError(t, err)
	_, err = svc.CompleteSession(ctx, "user-1", plan.ID, plan.Sessions[0].ID, planning.Feedback{Difficulty: planning.DifficultyJustRight}, nil)
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestExplainPlanGatesDraft(t *testing.T) {
	drafter := &stubDrafter{draft: coaching.Draft{Message: "Day one eases you in with seated work."}}
	svc, rec, _ := newTestService(t, drafter)
	ctx := context.Background()

	plan, err := svc.BuildPlan(ctx, "user-1", planning.Profile{Age: 70}, "")
	require.NoError(t, err)

	reply, err := svc.ExplainPlan(ctx, "user-1", plan.ID, ChatInput{})
	require.NoError(t, err)
	require.Equal(t, drafter.draft.Message, reply.Message)
	require.Equal(t, []string{plan.ID}, drafter.explained)
	require.Equal(t, plan.ID, rec.recommendations[len(rec.recommendations)-1].PlanID)

	_, err = svc.ExplainPlan(ctx, "user-2", plan.ID, ChatInput{})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAdherenceCoversStoredPlans(t *testing.T) {
	svc, _, _ := newTestService(t, &stubDrafter{})
	ctx := context.Background()

	plan, err := svc.BuildPlan(ctx, "user-1", planning.Profile{Age: 70}, "")
	require.NoError(t, err)
	_, err = svc.CompleteSession(ctx, "user-1", plan.ID, plan.Sessions[0].ID, planning.Feedback{Difficulty: planning.DifficultyJustRight}, nil)
	require.NoError(t, err)

	summary, err := svc.Adherence(ctx, "user-1", planning.DefaultAdherenceWindow)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Completed)
}

type failingPlans struct{ planning.Repository }

func (failingPlans) ListPlansByUser(context.Context, string, int) ([]planning.Plan, error) {
	return nil, errors.New("store offline")
}

func TestAdherencePropagatesStoreErrors(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	svc, err := NewService(planning.NewEngine(cat), &stubDrafter{}, failingPlans{})
	require.NoError(t, err)

	_, err = svc.Adherence(context.Background(), "user-1", time.Hour)
	require.Error(t, err)
}
