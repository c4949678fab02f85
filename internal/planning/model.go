// Package planning builds and adapts movement plans against the catalog and a user profile.
// It is the only component allowed to decide which catalog entries appear in a plan.
package planning

import (
	"context"
	"slices"
	"time"

	"example.com/activeaging/internal/catalog"
)

// Session statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Self-reported session difficulty.
const (
	DifficultyTooEasy   = "too_easy"
	DifficultyJustRight = "just_right"
	DifficultyTooHard   = "too_hard"
)

// Profile is the slice of the account profile the engine reads. It is passed in per call and
// never stored by the engine.
type Profile struct {
	Age                 int      `json:"age"`
	ActivityLevel       string   `json:"activity_level"`
	Goals               []string `json:"goals"`
	HealthConditions    []string `json:"health_conditions"`
	MobilityLimitations []string `json:"mobility_limitations"`
	Equipment           []string `json:"equipment"`
}

// Limitations returns health conditions followed by mobility limitations.
func (p Profile) Limitations() []string {
	out := make([]string, 0, len(p.HealthConditions)+len(p.MobilityLimitations))
	out = append(out, p.HealthConditions...)
	return append(out, p.MobilityLimitations...)
}

// Feedback is what a user reports after finishing a session. Energy is 1..5, 0 when unreported.
type Feedback struct {
	Difficulty string `json:"difficulty"`
	Pain       bool   `json:"pain"`
	Notes      string `json:"notes,omitempty"`
	Energy     int    `json:"energy,omitempty"`
}

// MovementInstance is a catalog movement as scheduled inside a session.
type MovementInstance struct {
	MovementID   string               `json:"movement_id"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Prescription catalog.Prescription `json:"prescription"`
	Cautions     []string             `json:"cautions,omitempty"`
}

// Session is one scheduled day of a plan.
type Session struct {
	ID            string             `json:"id"`
	PlanID        string             `json:"plan_id"`
	DayIndex      int                `json:"day_index"`
	Focus         string             `json:"focus"`
	Status        string             `json:"status"`
	ScheduledDate time.Time          `json:"scheduled_date"`
	Movements     []MovementInstance `json:"movements"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	Feedback      *Feedback          `json:"feedback,omitempty"`
}

// Plan is a user's movement program.
type Plan struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	StartDate  time.Time `json:"start_date"`
	Motivation string    `json:"motivation,omitempty"`
	Sessions   []Session `json:"sessions"`
	Cautions   []string  `json:"cautions"`
}

// Session returns the session with the given id.
func (p Plan) Session(id string) (Session, bool) {
	for _, s := range p.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return Session{}, false
}

// Clone returns a deep copy so adaptations never alias the caller's plan.
func (p Plan) Clone() Plan {
	out := p
	out.Cautions = slices.Clone(p.Cautions)
	out.Sessions = make([]Session, len(p.Sessions))
	for i, s := range p.Sessions {
		out.Sessions[i] = s.clone()
	}
	return out
}

func (s Session) clone() Session {
	out := s
	out.Movements = make([]MovementInstance, len(s.Movements))
	for i, m := range s.Movements {
		m.Cautions = slices.Clone(m.Cautions)
		out.Movements[i] = m
	}
	if s.CompletedAt != nil {
		ts := *s.CompletedAt
		out.CompletedAt = &ts
	}
	if s.Feedback != nil {
		fb := *s.Feedback
		out.Feedback = &fb
	}
	return out
}

// Repository persists plans. Implementations are owned by the host application; Get returns
// nil without error when the plan does not exist.
type Repository interface {
	SavePlan(ctx context.Context, plan Plan) error
	GetPlan(ctx context.Context, userID, planID string) (*Plan, error)
	ListPlansByUser(ctx context.Context, userID string, limit int) ([]Plan, error)
}
