package planning

import (
	"fmt"
	"strings"

	"example.com/activeaging/internal/errs"
)

// ProgressionRiskCeiling is the adherence risk score at which progressions are withheld.
const ProgressionRiskCeiling = 0.7

// Substitution records one movement swapped during adaptation.
type Substitution struct {
	SessionID string `json:"session_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// UpdatePlanOnCompletion marks sessionID completed with feedback and, when the session felt too
// easy or too hard, swaps movements in the remaining pending sessions for a safe progression or
// regression. The input plan is left untouched; the adapted copy is returned.
//
// Substitution only replaces id, name, description and prescription; the instance's cautions
// are carried over as they were when the session was built. Without a profile no substitution
// is attempted, since candidates cannot be safety checked.
func (e *Engine) UpdatePlanOnCompletion(plan Plan, sessionID string, feedback Feedback, profile *Profile, adherence *AdherenceSummary) (Plan, error) {
	if err := validateFeedback(feedback); err != nil {
		return Plan{}, err
	}

	updated := plan.Clone()
	idx := -1
	for i := range updated.Sessions {
		if updated.Sessions[i].ID == sessionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Plan{}, fmt.Errorf("%w: session %s in plan %s", errs.ErrNotFound, sessionID, plan.ID)
	}
	if updated.Sessions[idx].Status == StatusCompleted {
		return Plan{}, fmt.Errorf("%w: session %s is already completed", errs.ErrValidation, sessionID)
	}

	now := e.now().UTC()
	fb := feedback
	fb.Notes = strings.TrimSpace(fb.Notes)
	updated.Sessions[idx].Status = StatusCompleted
	updated.Sessions[idx].CompletedAt = &now
	updated.Sessions[idx].Feedback = &fb
	updated.UpdatedAt = now

	if feedback.Difficulty == DifficultyJustRight || profile == nil {
		return updated, nil
	}
	if feedback.Difficulty == DifficultyTooEasy && adherence != nil && adherence.RiskScore >= ProgressionRiskCeiling {
		return updated, nil
	}

	for i := range updated.Sessions {
		session := &updated.Sessions[i]
		if i == idx || session.Status != StatusPending {
			continue
		}
		for j := range session.Movements {
			e.substitute(&session.Movements[j], feedback.Difficulty, *profile)
		}
	}
	return updated, nil
}

func (e *Engine) substitute(m *MovementInstance, difficulty string, profile Profile) {
	def, ok := e.catalog.Get(m.MovementID)
	if !ok {
		return
	}
	candidates := def.Progressions
	if difficulty == DifficultyTooHard {
		candidates = def.Regressions
	}
	for _, id := range candidates {
		next, ok := e.catalog.Get(id)
		if !ok || !HasEquipment(next, profile) || !CheckMovementSafety(next, profile).Safe {
			continue
		}
		m.MovementID = next.ID
		m.Name = next.Name
		m.Description = next.Description
		m.Prescription = next.Prescription
		return
	}
}

// Substitutions lists the movements that differ between two versions of the same plan.
func Substitutions(before, after Plan) []Substitution {
	var out []Substitution
	for _, prev := range before.Sessions {
		next, ok := after.Session(prev.ID)
		if !ok {
			continue
		}
		for i := range prev.Movements {
			if i >= len(next.Movements) {
				break
			}
			if prev.Movements[i].MovementID != next.Movements[i].MovementID {
				out = append(out, Substitution{
					SessionID: prev.ID,
					From:      prev.Movements[i].MovementID,
					To:        next.Movements[i].MovementID,
				})
			}
		}
	}
	return out
}

func validateFeedback(fb Feedback) error {
	switch fb.Difficulty {
	case DifficultyTooEasy, DifficultyJustRight, DifficultyTooHard:
	default:
		return fmt.Errorf("%w: unknown difficulty %q", errs.ErrValidation, fb.Difficulty)
	}
	if fb.Energy < 0 || fb.Energy > 5 {
		return fmt.Errorf("%w: energy must be between 0 and 5", errs.ErrValidation)
	}
	return nil
}
