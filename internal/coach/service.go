// Package coach runs the coaching pipeline for request handlers: drafts go through the safety
// validator before anyone sees them, plans go through the planning engine, and every step lands
// in the audit trail.
package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/activeaging/internal/audit"
	"example.com/activeaging/internal/coaching"
	"example.com/activeaging/internal/errs"
	"example.com/activeaging/internal/llm"
	"example.com/activeaging/internal/observability"
	"example.com/activeaging/internal/planning"
	"example.com/activeaging/internal/safety"
)

// adherencePlanLimit bounds how many recent plans feed the adherence summary.
const adherencePlanLimit = 10

// Drafter produces unfiltered coaching drafts.
type Drafter interface {
	Chat(ctx context.Context, message string, c coaching.Context) (coaching.Draft, error)
	ExplainPlan(ctx context.Context, plan planning.Plan, c coaching.Context) (coaching.Draft, error)
}

// ChatInput is what a caller knows about the user for one conversational turn.
type ChatInput struct {
	Message  string           `json:"message"`
	Persona  string           `json:"persona,omitempty"`
	UserName string           `json:"user_name,omitempty"`
	Profile  planning.Profile `json:"profile"`
	History  []llm.Message    `json:"history,omitempty"`
}

// SafetySummary is the part of a verdict returned to clients.
type SafetySummary struct {
	Action    safety.Action   `json:"action"`
	Severity  safety.Severity `json:"severity"`
	Escalated bool            `json:"escalated"`
}

// Reply is what the user sees.
type Reply struct {
	Message string            `json:"message"`
	Sources []coaching.Source `json:"sources"`
	Safety  SafetySummary     `json:"safety"`
}

// Completion is the result of completing a session.
type Completion struct {
	Plan          planning.Plan           `json:"plan"`
	Substitutions []planning.Substitution `json:"substitutions"`
}

// Option configures a Service.
type Option func(*Service)

// WithValidator replaces the default safety validator.
func WithValidator(v *safety.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithRecorder sets the audit recorder.
func WithRecorder(r audit.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for adherence windows and timings.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service wires the engine, the drafter, the validator, plan storage and the audit trail.
type Service struct {
	engine    *planning.Engine
	drafter   Drafter
	plans     planning.Repository
	validator *safety.Validator
	recorder  audit.Recorder
	log       *zap.Logger
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(engine *planning.Engine, drafter Drafter, plans planning.Repository, opts ...Option) (*Service, error) {
	validator, err := safety.NewValidator()
	if err != nil {
		return nil, err
	}
	s := &Service{
		engine:    engine,
		drafter:   drafter,
		plans:     plans,
		validator: validator,
		recorder:  audit.NopRecorder{},
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Engine returns the planning engine, mainly for catalog reads.
func (s *Service) Engine() *planning.Engine {
	return s.engine
}

// Chat answers a user message. The returned text has always passed the safety validator.
func (s *Service) Chat(ctx context.Context, userID string, in ChatInput) (Reply, error) {
	draft, err := s.drafter.Chat(ctx, in.Message, s.coachingContext(userID, in, ""))
	if err != nil {
		return Reply{}, err
	}
	return s.gate(ctx, userID, "chat", "", draft, in.Profile), nil
}

// BuildPlan creates and stores a starter plan.
func (s *Service) BuildPlan(ctx context.Context, userID string, profile planning.Profile, motivation string) (planning.Plan, error) {
	start := s.now()
	plan, err := s.engine.BuildStarterPlan(userID, profile, motivation)
	call := audit.EngineCall{
		Operation:  "build_starter_plan",
		PlanID:     plan.ID,
		Input:      profileInput(profile),
		DurationMS: s.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		call.Error = err.Error()
		s.recorder.LogEngineCall(ctx, userID, call)
		return planning.Plan{}, err
	}
	s.recorder.LogEngineCall(ctx, userID, call)

	if err := s.plans.SavePlan(ctx, plan); err != nil {
		return planning.Plan{}, fmt.Errorf("save plan: %w", err)
	}
	s.recorder.LogRecommendation(ctx, userID, audit.Recommendation{
		Source:  "starter_plan",
		Content: planSummary(plan),
		PlanID:  plan.ID,
	})
	return plan, nil
}

// GetPlan loads a plan owned by userID.
func (s *Service) GetPlan(ctx context.Context, userID, planID string) (planning.Plan, error) {
	plan, err := s.plans.GetPlan(ctx, userID, planID)
	if err != nil {
		return planning.Plan{}, err
	}
	if plan == nil {
		return planning.Plan{}, fmt.Errorf("%w: plan %s", errs.ErrNotFound, planID)
	}
	return *plan, nil
}

// ExplainPlan asks the drafter to explain a stored plan and gates the reply.
func (s *Service) ExplainPlan(ctx context.Context, userID, planID string, in ChatInput) (Reply, error) {
	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return Reply{}, err
	}
	draft, err := s.drafter.ExplainPlan(ctx, plan, s.coachingContext(userID, in, plan.Motivation))
	if err != nil {
		return Reply{}, err
	}
	return s.gate(ctx, userID, "explain_plan", plan.ID, draft, in.Profile), nil
}

// CompleteSession records feedback on a session and adapts the rest of the plan.
func (s *Service) CompleteSession(ctx context.Context, userID, planID, sessionID string, feedback planning.Feedback, profile *planning.Profile) (Completion, error) {
	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return Completion{}, err
	}

	summary, err := s.Adherence(ctx, userID, planning.DefaultAdherenceWindow)
	if err != nil {
		s.log.Warn("adherence summary unavailable", zap.String("user_id", userID), zap.Error(err))
	}
	var adherence *planning.AdherenceSummary
	if err == nil {
		adherence = &summary
	}

	start := s.now()
	updated, err := s.engine.UpdatePlanOnCompletion(plan, sessionID, feedback, profile, adherence)
	call := audit.EngineCall{
		Operation:  "update_plan_on_completion",
		PlanID:     planID,
		SessionID:  sessionID,
		Input:      map[string]any{"difficulty": feedback.Difficulty, "pain": feedback.Pain, "energy": feedback.Energy, "profile_supplied": profile != nil},
		DurationMS: s.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		call.Error = err.Error()
		s.recorder.LogEngineCall(ctx, userID, call)
		return Completion{}, err
	}

	subs := planning.Substitutions(plan, updated)
	call.Substitutions = len(subs)
	s.recorder.LogEngineCall(ctx, userID, call)
	observability.RecordSessionCompletion(feedback.Difficulty, len(subs))

	if err := s.plans.SavePlan(ctx, updated); err != nil {
		return Completion{}, fmt.Errorf("save plan: %w", err)
	}
	if len(subs) > 0 {
		s.recorder.LogRecommendation(ctx, userID, audit.Recommendation{
			Source:  "plan_adaptation",
			Content: substitutionSummary(subs),
			PlanID:  planID,
		})
	}
	if subs == nil {
		subs = []planning.Substitution{}
	}
	return Completion{Plan: updated, Substitutions: subs}, nil
}

// Adherence summarises the user's recent sessions.
func (s *Service) Adherence(ctx context.Context, userID string, window time.Duration) (planning.AdherenceSummary, error) {
	plans, err := s.plans.ListPlansByUser(ctx, userID, adherencePlanLimit)
	if err != nil {
		return planning.AdherenceSummary{}, err
	}
	var sessions []planning.Session
	for _, p := range plans {
		sessions = append(sessions, p.Sessions...)
	}
	return planning.Summarize(sessions, window, s.now()), nil
}

// Validate runs the safety validator without any model call. It backs the reviewer tool.
func (s *Service) Validate(text string, ctx *safety.Context) safety.Verdict {
	verdict := s.validator.Validate(text, ctx)
	observability.RecordSafetyVerdict(string(verdict.Action), string(verdict.Severity), verdict.Escalate)
	return verdict
}

// gate validates a draft, records the outcome and returns only what the user may see.
func (s *Service) gate(ctx context.Context, userID, source, planID string, draft coaching.Draft, profile planning.Profile) Reply {
	verdict := s.Validate(draft.Message, safetyContext(profile))

	if verdict.Intervened() || verdict.Escalate {
		s.recorder.LogSafetyIntervention(ctx, userID, audit.SafetyIntervention{
			Action:          string(verdict.Action),
			Severity:        string(verdict.Severity),
			TriggeredRules:  verdict.TriggeredRules,
			RedFlags:        categories(verdict.RedFlags),
			Reason:          verdict.Reason,
			Escalate:        verdict.Escalate,
			OriginalContent: verdict.OriginalContent,
			SafeContent:     verdict.SafeContent,
		})
	}
	if verdict.Escalate {
		s.log.Warn("safety intervention escalated for review",
			zap.String("user_id", userID),
			zap.String("source", source),
			zap.Strings("rules", verdict.TriggeredRules),
		)
	}

	sources := draft.Sources
	if verdict.Action == safety.ActionBlock || sources == nil {
		sources = []coaching.Source{}
	}

	titles := make([]string, 0, len(sources))
	for _, src := range sources {
		titles = append(titles, src.Title)
	}
	s.recorder.LogRecommendation(ctx, userID, audit.Recommendation{
		Source:       source,
		Content:      verdict.SafeContent,
		PlanID:       planID,
		SafetyAction: string(verdict.Action),
		Sources:      titles,
	})

	return Reply{
		Message: verdict.SafeContent,
		Sources: sources,
		Safety: SafetySummary{
			Action:    verdict.Action,
			Severity:  verdict.Severity,
			Escalated: verdict.Escalate,
		},
	}
}

func (s *Service) coachingContext(userID string, in ChatInput, motivation string) coaching.Context {
	return coaching.Context{
		UserID:      userID,
		Persona:     in.Persona,
		UserName:    in.UserName,
		Age:         in.Profile.Age,
		Limitations: in.Profile.Limitations(),
		Motivation:  motivation,
		History:     in.History,
	}
}

func safetyContext(p planning.Profile) *safety.Context {
	if p.Age <= 0 && p.ActivityLevel == "" && len(p.Limitations()) == 0 {
		return nil
	}
	return &safety.Context{Age: p.Age, ActivityLevel: p.ActivityLevel, Limitations: p.Limitations()}
}

func profileInput(p planning.Profile) map[string]any {
	return map[string]any{
		"age":                  p.Age,
		"activity_level":       p.ActivityLevel,
		"health_conditions":    len(p.HealthConditions),
		"mobility_limitations": len(p.MobilityLimitations),
	}
}

func categories(in []safety.Category) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		out = append(out, string(c))
	}
	return out
}

func planSummary(plan planning.Plan) string {
	parts := make([]string, 0, len(plan.Sessions))
	for _, sess := range plan.Sessions {
		ids := make([]string, 0, len(sess.Movements))
		for _, m := range sess.Movements {
			ids = append(ids, m.MovementID)
		}
		parts = append(parts, fmt.Sprintf("day %d %s: %s", sess.DayIndex+1, sess.Focus, strings.Join(ids, ",")))
	}
	return strings.Join(parts, "; ")
}

func substitutionSummary(subs []planning.Substitution) string {
	parts := make([]string, 0, len(subs))
	for _, sub := range subs {
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", sub.SessionID, sub.From, sub.To))
	}
	return strings.Join(parts, "; ")
}
