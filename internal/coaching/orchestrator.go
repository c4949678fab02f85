// Package coaching produces draft coaching replies from a hosted language model grounded in
// retrieved reference content. Drafts are never safety filtered here; callers must pass them
// through the safety validator before display.
package coaching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/activeaging/internal/audit"
	"example.com/activeaging/internal/errs"
	"example.com/activeaging/internal/llm"
	"example.com/activeaging/internal/observability"
	"example.com/activeaging/internal/planning"
	"example.com/activeaging/internal/retrieval"
)

// Fixed retrieval and decoding parameters.
const (
	TopK          = 3
	MinSimilarity = 0.7
	MaxTokens     = 1024
	Temperature   = float32(0.6)

	excerptLength = 240
)

// Context is the per-request conversation context.
type Context struct {
	UserID      string        `json:"-"`
	Persona     string        `json:"persona,omitempty"`
	UserName    string        `json:"user_name,omitempty"`
	Age         int           `json:"age,omitempty"`
	Limitations []string      `json:"limitations,omitempty"`
	Motivation  string        `json:"motivation,omitempty"`
	History     []llm.Message `json:"history,omitempty"`
}

// Source is the provenance of a passage folded into the prompt.
type Source struct {
	Collection string `json:"collection"`
	Title      string `json:"title"`
	Excerpt    string `json:"excerpt"`
}

// Draft is the model's unfiltered reply.
type Draft struct {
	Message        string    `json:"message"`
	Sources        []Source  `json:"sources"`
	SafetyFiltered bool      `json:"safety_filtered"`
	Model          string    `json:"model,omitempty"`
	Usage          llm.Usage `json:"usage"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetriever sets the grounding source. Without one the orchestrator never grounds.
func WithRetriever(r retrieval.Client) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.retriever = r
		}
	}
}

// WithRecorder sets the audit recorder for model interactions.
func WithRecorder(r audit.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the operational logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock overrides the time source used for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator builds prompts, grounds them and calls the model.
type Orchestrator struct {
	model     llm.Client
	retriever retrieval.Client
	recorder  audit.Recorder
	log       *zap.Logger
	now       func() time.Time
}

// NewOrchestrator constructs an Orchestrator around model.
func NewOrchestrator(model llm.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		model:     model,
		retriever: retrieval.NoopClient{},
		recorder:  audit.NopRecorder{},
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Chat answers a free-text user message.
func (o *Orchestrator) Chat(ctx context.Context, message string, c Context) (Draft, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Draft{}, fmt.Errorf("%w: message is required", errs.ErrValidation)
	}
	return o.converse(ctx, "chat", message, message, c)
}

// ExplainPlan asks the model to walk the user through plan.
func (o *Orchestrator) ExplainPlan(ctx context.Context, plan planning.Plan, c Context) (Draft, error) {
	if len(plan.Sessions) == 0 {
		return Draft{}, fmt.Errorf("%w: plan has no sessions", errs.ErrValidation)
	}
	if c.Motivation == "" {
		c.Motivation = plan.Motivation
	}
	return o.converse(ctx, "explain_plan", explainPlanMessage(plan), planQuery(plan), c)
}

func (o *Orchestrator) converse(ctx context.Context, purpose, message, query string, c Context) (Draft, error) {
	passages := o.ground(ctx, query)

	messages := make([]llm.Message, 0, len(c.History)+1)
	messages = append(messages, c.History...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Text: message})

	req := llm.Request{
		System:      BuildSystemPrompt(c, passages),
		Messages:    messages,
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
	}

	start := o.now()
	reply, err := o.model.Converse(ctx, req)
	elapsed := o.now().Sub(start)

	interaction := audit.LLMInteraction{
		Purpose:          purpose,
		Model:            reply.Model,
		Persona:          personaName(c.Persona),
		PromptTokens:     reply.Usage.PromptTokens,
		CompletionTokens: reply.Usage.CompletionTokens,
		RetrievedSources: len(passages),
		Grounded:         len(passages) > 0,
		DurationMS:       elapsed.Milliseconds(),
		Success:          err == nil,
	}
	if err != nil {
		interaction.Error = err.Error()
		o.recorder.LogLLMInteraction(ctx, c.UserID, interaction)
		observability.RecordModelCall("error", elapsed)
		o.log.Error("model call failed", zap.String("purpose", purpose), zap.String("user_id", c.UserID), zap.Error(err))
		return Draft{}, fmt.Errorf("%w: model call: %v", errs.ErrUpstream, err)
	}
	o.recorder.LogLLMInteraction(ctx, c.UserID, interaction)
	observability.RecordModelCall("ok", elapsed)

	return Draft{
		Message:        reply.Text,
		Sources:        toSources(passages),
		SafetyFiltered: false,
		Model:          reply.Model,
		Usage:          reply.Usage,
	}, nil
}

// ground searches for reference passages. Failure leaves the turn ungrounded.
func (o *Orchestrator) ground(ctx context.Context, query string) []retrieval.Passage {
	passages, err := o.retriever.Search(ctx, retrieval.Query{
		Text:          query,
		Limit:         TopK,
		MinSimilarity: MinSimilarity,
	})
	if err != nil {
		observability.RecordRetrievalFailure()
		o.log.Warn("retrieval failed, continuing without grounding", zap.Error(err))
		return nil
	}
	if len(passages) > TopK {
		passages = passages[:TopK]
	}
	return passages
}

func toSources(passages []retrieval.Passage) []Source {
	out := make([]Source, 0, len(passages))
	for _, p := range passages {
		out = append(out, Source{
			Collection: p.Collection,
			Title:      p.SourceTitle,
			Excerpt:    excerpt(p.Content),
		})
	}
	return out
}

func excerpt(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= excerptLength {
		return content
	}
	return strings.TrimSpace(string(runes[:excerptLength])) + "…"
}
