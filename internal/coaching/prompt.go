package coaching

import (
	"fmt"
	"strings"

	"example.com/activeaging/internal/planning"
	"example.com/activeaging/internal/retrieval"
)

// Personas selectable per conversation.
const (
	PersonaEncouragingCoach = "encouraging_coach"
	PersonaGentleGuide      = "gentle_guide"
	PersonaPracticalTrainer = "practical_trainer"
)

const basePrompt = `
You are a movement coach for adults aged 50 and over.

Your role:
- Help the user stay active with safe, gentle, realistic exercise.
- Explain movements in plain language and suggest small next steps.
- You are NOT a doctor or physiotherapist. You do not diagnose conditions, recommend medication, or promise results.

Boundaries:
- If the user mentions chest pain, dizziness, fainting, or sudden severe pain, tell them to stop and seek medical help.
- Encourage them to talk to their doctor before starting anything new when they have a health condition.
- Never suggest pushing through pain, holding the breath, or working to exhaustion.

Style:
- Warm and respectful. Never patronising about age.
- Short answers: 2 to 5 short paragraphs or a brief list.
- Suggest support (a chair, counter or wall) for any balance work.
`

var personaInstructions = map[string]string{
	PersonaEncouragingCoach: `
Persona: encouraging coach
- Celebrate effort and consistency, not intensity.
- End with one small, specific suggestion for today.
`,
	PersonaGentleGuide: `
Persona: gentle guide
- Calm and patient. Reassure the user that going slowly is fine.
- Offer an easier option alongside any suggestion.
`,
	PersonaPracticalTrainer: `
Persona: practical trainer
- Clear and concrete: sets, reps, rest, and how it should feel.
- Keep the tone friendly but get to the point.
`,
}

// KnownPersona reports whether name has a template.
func KnownPersona(name string) bool {
	_, ok := personaInstructions[name]
	return ok
}

func personaName(name string) string {
	if KnownPersona(name) {
		return name
	}
	return PersonaEncouragingCoach
}

// BuildSystemPrompt assembles the persona template, the user's context and any retrieved passages.
func BuildSystemPrompt(c Context, passages []retrieval.Passage) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString(personaInstructions[personaName(c.Persona)])

	var about []string
	if c.UserName != "" {
		about = append(about, "- Name: "+c.UserName)
	}
	if c.Age > 0 {
		about = append(about, fmt.Sprintf("- Age: %d", c.Age))
	}
	if len(c.Limitations) > 0 {
		about = append(about, "- Health conditions and limitations: "+strings.Join(c.Limitations, ", "))
	}
	if c.Motivation != "" {
		about = append(about, "- What motivates them: "+c.Motivation)
	}
	if len(about) > 0 {
		b.WriteString("\nAbout the user:\n")
		b.WriteString(strings.Join(about, "\n"))
		b.WriteString("\n")
	}

	if len(passages) > 0 {
		b.WriteString("\nRelevant Context:\n")
		for i, p := range passages {
			fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n", i+1, p.SourceTitle, p.Collection, strings.TrimSpace(p.Content))
		}
		b.WriteString("Use the context above when it helps and do not invent sources.\n")
	}
	return b.String()
}

// explainPlanMessage is the user turn sent when asking the model to walk through a plan.
func explainPlanMessage(plan planning.Plan) string {
	var b strings.Builder
	b.WriteString("Please explain my movement plan in an encouraging tone. Describe how the days fit together and why the plan starts gently.\n\nMy plan:\n")
	for _, s := range plan.Sessions {
		names := make([]string, 0, len(s.Movements))
		for _, m := range s.Movements {
			names = append(names, m.Name)
		}
		fmt.Fprintf(&b, "Day %d (%s): %s\n", s.DayIndex+1, s.Focus, strings.Join(names, ", "))
	}
	if len(plan.Cautions) > 0 {
		b.WriteString("\nCautions:\n")
		for _, c := range plan.Cautions {
			b.WriteString("- " + c + "\n")
		}
	}
	if plan.Motivation != "" {
		b.WriteString("\nWhy I'm doing this: " + plan.Motivation + "\n")
	}
	return b.String()
}

func planQuery(plan planning.Plan) string {
	focuses := make([]string, 0, len(plan.Sessions))
	for _, s := range plan.Sessions {
		focuses = append(focuses, s.Focus)
	}
	return "exercise plan for older adults: " + strings.Join(focuses, ", ")
}
