package planning

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/activeaging/internal/catalog"
	"example.com/activeaging/internal/errs"
)

// MaxMovementsPerSession caps how many movements a starter session holds.
const MaxMovementsPerSession = 5

// DayTemplate names the catalog movements a starter-plan day draws from.
type DayTemplate struct {
	Focus    string
	Required []string
	Optional []string
}

var starterTemplates = []DayTemplate{
	{
		Focus:    "Gentle Strength",
		Required: []string{"chair-sit-to-stand", "wall-push-up", "seated-march"},
		Optional: []string{"heel-raise", "glute-bridge"},
	},
	{
		Focus:    "Balance & Stability",
		Required: []string{"supported-single-leg-stand", "heel-to-toe-walk"},
		Optional: []string{"side-leg-raise", "seated-march"},
	},
	{
		Focus:    "Mobility & Flexibility",
		Required: []string{"seated-hamstring-stretch", "shoulder-rolls", "ankle-circles"},
		Optional: []string{"seated-cat-cow", "neck-stretch"},
	},
	{
		Focus:    "Functional Strength",
		Required: []string{"step-up", "mini-squat"},
		Optional: []string{"band-row", "wall-push-up", "glute-bridge"},
	},
	{
		Focus:    "Active Recovery",
		Required: []string{"brisk-walk", "diaphragmatic-breathing"},
		Optional: []string{"shoulder-rolls", "ankle-circles"},
	},
}

// fallbackMovements fill a session whose template was filtered down to nothing.
var fallbackMovements = []string{"diaphragmatic-breathing", "shoulder-rolls", "ankle-circles", "seated-march"}

// StarterTemplates returns the fixed day sequence used by BuildStarterPlan.
func StarterTemplates() []DayTemplate {
	out := make([]DayTemplate, len(starterTemplates))
	for i, tpl := range starterTemplates {
		out[i] = DayTemplate{Focus: tpl.Focus, Required: slices.Clone(tpl.Required), Optional: slices.Clone(tpl.Optional)}
	}
	return out
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides plan and session id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// Engine builds and adapts plans. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
	now     func() time.Time
	newID   func() string
}

// NewEngine constructs an Engine over an immutable catalog.
func NewEngine(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{catalog: cat, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog exposes the catalog the engine selects from.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// BuildStarterPlan creates the first plan for a user. Every movement in the result passed
// CheckMovementSafety for profile at construction time.
func (e *Engine) BuildStarterPlan(userID string, profile Profile, motivation string) (Plan, error) {
	if strings.TrimSpace(userID) == "" {
		return Plan{}, fmt.Errorf("%w: user_id is required", errs.ErrValidation)
	}
	if err := validateProfile(profile); err != nil {
		return Plan{}, err
	}

	now := e.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	plan := Plan{
		ID:         e.newID(),
		UserID:     userID,
		CreatedAt:  now,
		UpdatedAt:  now,
		StartDate:  start,
		Motivation: strings.TrimSpace(motivation),
		Sessions:   make([]Session, 0, len(starterTemplates)),
		Cautions:   []string{},
	}

	for _, tpl := range starterTemplates {
		ids := make([]string, 0, len(tpl.Required)+len(tpl.Optional))
		ids = append(ids, tpl.Required...)
		ids = append(ids, tpl.Optional...)

		movements := e.selectMovements(ids, profile)
		if len(movements) == 0 {
			movements = e.selectMovements(fallbackMovements, profile)
		}
		if len(movements) == 0 {
			continue
		}

		day := len(plan.Sessions)
		plan.Sessions = append(plan.Sessions, Session{
			ID:            e.newID(),
			PlanID:        plan.ID,
			DayIndex:      day,
			Focus:         tpl.Focus,
			Status:        StatusPending,
			ScheduledDate: start.AddDate(0, 0, day),
			Movements:     movements,
		})
		for _, m := range movements {
			plan.Cautions = appendUnique(plan.Cautions, m.Cautions...)
		}
	}
	return plan, nil
}

func (e *Engine) selectMovements(ids []string, profile Profile) []MovementInstance {
	out := make([]MovementInstance, 0, MaxMovementsPerSession)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if len(out) == MaxMovementsPerSession {
			break
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		def, ok := e.catalog.Get(id)
		if !ok || !HasEquipment(def, profile) {
			continue
		}
		check := CheckMovementSafety(def, profile)
		if !check.Safe {
			continue
		}
		out = append(out, MovementInstance{
			MovementID:   def.ID,
			Name:         def.Name,
			Description:  def.Description,
			Prescription: def.Prescription,
			Cautions:     check.Cautions,
		})
	}
	return out
}

func validateProfile(p Profile) error {
	if p.Age < 0 || p.Age > 120 {
		return fmt.Errorf("%w: age %d out of range", errs.ErrValidation, p.Age)
	}
	return nil
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
