// Package audit keeps the append-only trail of recommendations, engine calls, model interactions
// and safety interventions.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Type is the record variant. Records are stored under the key {type, id}.
type Type string

const (
	TypeRecommendation     Type = "recommendation"
	TypeEngineCall         Type = "engine_call"
	TypeLLMInteraction     Type = "llm_interaction"
	TypeSafetyIntervention Type = "safety_intervention"
)

// Valid reports whether t is a known variant.
func (t Type) Valid() bool {
	switch t {
	case TypeRecommendation, TypeEngineCall, TypeLLMInteraction, TypeSafetyIntervention:
		return true
	default:
		return false
	}
}

// Record is one stored audit entry.
type Record struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	UserID    string          `json:"user_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Key is the storage key of the record.
func (r Record) Key() string {
	return string(r.Type) + ":" + r.ID
}

// Recommendation records content shown to a user.
type Recommendation struct {
	Source       string   `json:"source"`
	Content      string   `json:"content"`
	PlanID       string   `json:"plan_id,omitempty"`
	SafetyAction string   `json:"safety_action,omitempty"`
	Sources      []string `json:"sources,omitempty"`
}

// EngineCall records one planning-engine invocation.
type EngineCall struct {
	Operation     string         `json:"operation"`
	PlanID        string         `json:"plan_id,omitempty"`
	SessionID     string         `json:"session_id,omitempty"`
	Input         map[string]any `json:"input,omitempty"`
	Substitutions int            `json:"substitutions"`
	DurationMS    int64          `json:"duration_ms"`
	Error         string         `json:"error,omitempty"`
}

// LLMInteraction records one language-model call.
type LLMInteraction struct {
	Purpose          string `json:"purpose"`
	Model            string `json:"model,omitempty"`
	Persona          string `json:"persona,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	RetrievedSources int    `json:"retrieved_sources"`
	Grounded         bool   `json:"grounded"`
	DurationMS       int64  `json:"duration_ms"`
	Success          bool   `json:"success"`
	Error            string `json:"error,omitempty"`
}

// SafetyIntervention records a verdict that changed, or escalated, what the user sees.
type SafetyIntervention struct {
	Action          string   `json:"action"`
	Severity        string   `json:"severity"`
	TriggeredRules  []string `json:"triggered_rules"`
	RedFlags        []string `json:"red_flags"`
	Reason          string   `json:"reason"`
	Escalate        bool     `json:"escalate"`
	OriginalContent string   `json:"original_content"`
	SafeContent     string   `json:"safe_content"`
}

// Sink appends records. Appending the same {type, id} twice must not create a duplicate.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// Query selects a user's records, newest first.
type Query struct {
	UserID string
	Type   Type
	Cursor string
	Limit  int
}

// Page is one slice of a listing.
type Page struct {
	Records    []Record `json:"records"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// Reader lists stored records for compliance review.
type Reader interface {
	ListByUser(ctx context.Context, q Query) (Page, error)
}

// Recorder is the write side the pipeline depends on. Implementations never return errors.
type Recorder interface {
	LogRecommendation(ctx context.Context, userID string, p Recommendation)
	LogEngineCall(ctx context.Context, userID string, p EngineCall)
	LogLLMInteraction(ctx context.Context, userID string, p LLMInteraction)
	LogSafetyIntervention(ctx context.Context, userID string, p SafetyIntervention)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) LogRecommendation(context.Context, string, Recommendation)         {}
func (NopRecorder) LogEngineCall(context.Context, string, EngineCall)                 {}
func (NopRecorder) LogLLMInteraction(context.Context, string, LLMInteraction)         {}
func (NopRecorder) LogSafetyIntervention(context.Context, string, SafetyIntervention) {}
