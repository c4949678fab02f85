package safety

import (
	"regexp"
	"strings"
)

// Category groups red-flag rules by the kind of harm they guard against.
type Category string

const (
	CategoryMedicalDiagnosis Category = "medical-diagnosis"
	CategoryUnsafeExercise   Category = "unsafe-exercise"
	CategoryOverPromising    Category = "over-promising"
	CategoryFearBased        Category = "fear-based"
	CategoryInappropriate    Category = "inappropriate"
)

// Severity is ordered low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

func maxSeverity(a, b Severity) Severity {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Rule is one red-flag pattern. Medium rules must carry a Replacement so the flagged phrase can
// be rewritten instead of blocked.
type Rule struct {
	ID          string
	Pattern     *regexp.Regexp
	Category    Category
	Severity    Severity
	Replacement string
}

// Pattern is a named expression used by medical-advice detection.
type Pattern struct {
	ID      string
	Pattern *regexp.Regexp
}

// ContextRule applies only when the caller supplies a user context. Trigger must match and
// Unless, when set, must not match for the rule to fail.
type ContextRule struct {
	ID       string
	Reason   string
	Category Category
	Severity Severity
	Applies  func(Context) bool
	Trigger  *regexp.Regexp
	Unless   *regexp.Regexp
}

// DefaultRedFlags is evaluated in order; replacements of medium rules are applied in the same order.
var DefaultRedFlags = []Rule{
	{
		ID:       "dosage_instruction",
		Pattern:  regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s?(mg|milligrams?|mcg|micrograms?|iu)\b`),
		Category: CategoryMedicalDiagnosis,
		Severity: SeverityCritical,
	},
	{
		ID:       "diagnosis_statement",
		Pattern:  regexp.MustCompile(`(?i)\byou (probably |likely |clearly |definitely )?(have|are suffering from|suffer from) (an? )?(osteoarthritis|arthritis|osteoporosis|diabetes|hypertension|sciatica|tendonitis|bursitis|neuropathy|heart disease|torn|herniated|fracture)`),
		Category: CategoryMedicalDiagnosis,
		Severity: SeverityCritical,
	},
	{
		ID:       "stop_medication",
		Pattern:  regexp.MustCompile(`(?i)\b(stop|quit|skip) taking (your |the )?(medication|medicine|pills|tablets|insulin|blood pressure)`),
		Category: CategoryMedicalDiagnosis,
		Severity: SeverityCritical,
	},
	{
		ID:       "ignore_warning_signs",
		Pattern:  regexp.MustCompile(`(?i)\b(ignore|push past|work through) (the |any |your )?(chest pain|dizziness|shortness of breath|numbness|fainting)`),
		Category: CategoryUnsafeExercise,
		Severity: SeverityCritical,
	},
	{
		ID:       "push_through_pain",
		Pattern:  regexp.MustCompile(`(?i)\b(push|work|power|fight) through (the |any )?pain\b`),
		Category: CategoryUnsafeExercise,
		Severity: SeverityHigh,
	},
	{
		ID:       "breath_holding",
		Pattern:  regexp.MustCompile(`(?i)\bhold your breath\b`),
		Category: CategoryUnsafeExercise,
		Severity: SeverityHigh,
	},
	{
		ID:       "skip_warm_up",
		Pattern:  regexp.MustCompile(`(?i)\bskip (the |your )?warm[- ]?up\b`),
		Category: CategoryUnsafeExercise,
		Severity: SeverityHigh,
	},
	{
		ID:       "max_effort_lift",
		Pattern:  regexp.MustCompile(`(?i)\b(one|1)[- ]rep max\b|\bmax(imum)?[- ]effort lifts?\b`),
		Category: CategoryUnsafeExercise,
		Severity: SeverityHigh,
	},
	{
		ID:       "fear_wheelchair",
		Pattern:  regexp.MustCompile(`(?i)\b(end up|wind up) in a (wheelchair|nursing home)\b`),
		Category: CategoryFearBased,
		Severity: SeverityHigh,
	},
	{
		ID:       "fear_decline",
		Pattern:  regexp.MustCompile(`(?i)\byou('ll| will) (lose your independence|become frail|fall and break)`),
		Category: CategoryFearBased,
		Severity: SeverityHigh,
	},
	{
		ID:       "insult",
		Pattern:  regexp.MustCompile(`(?i)\byou('re| are) (so |just )?(lazy|pathetic|hopeless|too old|useless)\b`),
		Category: CategoryInappropriate,
		Severity: SeverityHigh,
	},
	{
		ID:          "guarantee",
		Pattern:     regexp.MustCompile(`(?i)\bguarantee(d|s)?\b`),
		Category:    CategoryOverPromising,
		Severity:    SeverityMedium,
		Replacement: "may help",
	},
	{
		ID:          "will_definitely",
		Pattern:     regexp.MustCompile(`(?i)\bwill definitely\b`),
		Category:    CategoryOverPromising,
		Severity:    SeverityMedium,
		Replacement: "may",
	},
	{
		ID:          "definitely",
		Pattern:     regexp.MustCompile(`(?i)\bdefinitely\b`),
		Category:    CategoryOverPromising,
		Severity:    SeverityMedium,
		Replacement: "likely",
	},
	{
		ID:          "cure_claim",
		Pattern:     regexp.MustCompile(`(?i)\bcure(s|d)?\b`),
		Category:    CategoryOverPromising,
		Severity:    SeverityMedium,
		Replacement: "ease",
	},
	{
		ID:          "absolute_claim",
		Pattern:     regexp.MustCompile(`(?i)\b100\s?%`),
		Category:    CategoryOverPromising,
		Severity:    SeverityMedium,
		Replacement: "often",
	},
	{
		ID:          "reverse_aging",
		Pattern:     regexp.MustCompile(`(?i)\b(reverse|stop) (aging|ageing)\b`),
		Category:    CategoryOverPromising,
		Severity:    SeverityMedium,
		Replacement: "support healthy aging",
	},
	{
		ID:          "miracle",
		Pattern:     regexp.MustCompile(`(?i)\bmiracle\b`),
		Category:    CategoryOverPromising,
		Severity:    SeverityMedium,
		Replacement: "helpful",
	},
	{
		ID:          "no_pain_no_gain",
		Pattern:     regexp.MustCompile(`(?i)\bno pain,? no gain\b`),
		Category:    CategoryUnsafeExercise,
		Severity:    SeverityMedium,
		Replacement: "listen to your body",
	},
	{
		ID:          "fear_deadline",
		Pattern:     regexp.MustCompile(`(?i)\bbefore it'?s too late\b`),
		Category:    CategoryFearBased,
		Severity:    SeverityMedium,
		Replacement: "when you feel ready",
	},
	{
		ID:          "act_your_age",
		Pattern:     regexp.MustCompile(`(?i)\bact your age\b`),
		Category:    CategoryInappropriate,
		Severity:    SeverityMedium,
		Replacement: "move at your own pace",
	},
	{
		ID:       "feel_the_burn",
		Pattern:  regexp.MustCompile(`(?i)\bfeel the burn\b`),
		Category: CategoryUnsafeExercise,
		Severity: SeverityLow,
	},
	{
		ID:       "no_excuses",
		Pattern:  regexp.MustCompile(`(?i)\bno excuses\b`),
		Category: CategoryInappropriate,
		Severity: SeverityLow,
	},
}

// DefaultMedicalDisallowed matches diagnostic or prescriptive phrasing.
var DefaultMedicalDisallowed = []Pattern{
	{ID: "diagnosis", Pattern: regexp.MustCompile(`(?i)\bdiagnos(e|es|ed|is|ing)\b`)},
	{ID: "condition_statement", Pattern: regexp.MustCompile(`(?i)\byou (probably |likely |clearly |definitely )?(have|are suffering from|suffer from) (an? )?[a-z]+(itis|osis|pathy)\b`)},
	{ID: "numeric_dose", Pattern: regexp.MustCompile(`(?i)\btake \d+(\.\d+)?\s?(of (your |the )?)?` + drugUnit)},
	{ID: "prescription", Pattern: regexp.MustCompile(`(?i)\b(prescrib(e|ed|ing)|prescription|dosage|dose of)\b`)},
	{ID: "medication_change", Pattern: regexp.MustCompile(`(?i)\b(should|must|need to) (take|stop taking|start taking|increase|reduce|skip) (your |the |a |an )?(medication|medicine|pills?|tablets?|insulin|painkillers?|ibuprofen|aspirin|\d+(\.\d+)?\s?(of (your |the )?)?` + drugUnit + `)`)},
	{ID: "treatment_claim", Pattern: regexp.MustCompile(`(?i)\bwill (heal|treat|fix|repair) your\b`)},
}

// drugUnit scopes numeric phrasing to medication quantities so exercise counts such as
// "take 5 minutes" or "take 10 breaths" are not read as doses.
const drugUnit = `(mg|mcg|milligrams?|micrograms?|tablets?|pills?|capsules?|doses?|puffs?|units? of insulin)\b`

// DefaultMedicalAllowed matches safety-oriented phrasing that may mention medical topics.
var DefaultMedicalAllowed = []Pattern{
	{ID: "refer_to_professional", Pattern: regexp.MustCompile(`(?i)\b(consult|talk to|check with|ask|speak (with|to)) (your |a )?(doctor|physician|gp|physiotherapist|physical therapist|healthcare provider|pharmacist|care team)\b`)},
	{ID: "may_help_exercises", Pattern: regexp.MustCompile(`(?i)\bexercises? that may help (reduce|ease|relieve)\b`)},
	{ID: "may_help", Pattern: regexp.MustCompile(`(?i)\bmay help (reduce|ease|relieve)\b`)},
}

var (
	balanceLimitation = regexp.MustCompile(`(?i)balance|fall|vertigo|dizz|unsteady`)
	jointLimitation   = regexp.MustCompile(`(?i)knee|hip|ankle|joint|arthritis|back|shoulder|replacement`)
)

// DefaultContextRules are the age-aware checks.
var DefaultContextRules = []ContextRule{
	{
		ID:       "high_intensity_unconditioned",
		Reason:   "intensity too high for a deconditioned user aged 60+",
		Category: CategoryUnsafeExercise,
		Severity: SeverityHigh,
		Applies: func(c Context) bool {
			return c.Age >= 60 && unconditioned(c.ActivityLevel)
		},
		Trigger: regexp.MustCompile(`(?i)\b(high[- ]intensity|hiit|all[- ]out|max(imum)? effort|as hard as you can|sprint(s|ing)?|vigorous)\b`),
	},
	{
		ID:       "unsupported_balance",
		Reason:   "unsafe balance work without support for a user aged 65+ with balance concerns",
		Category: CategoryUnsafeExercise,
		Severity: SeverityHigh,
		Applies: func(c Context) bool {
			return c.Age >= 65 && c.hasLimitation(balanceLimitation)
		},
		Trigger: regexp.MustCompile(`(?i)\b(single[- ]leg|one leg|balance|tandem|heel[- ]to[- ]toe|eyes closed)\b`),
		Unless:  regexp.MustCompile(`(?i)\b(chair|counter|wall|rail|support|hold(ing)? on|within reach|sturdy)\b`),
	},
	{
		ID:       "high_impact_joint",
		Reason:   "unsafe high-impact movement for a user with joint limitations",
		Category: CategoryUnsafeExercise,
		Severity: SeverityHigh,
		Applies: func(c Context) bool {
			return c.hasLimitation(jointLimitation)
		},
		Trigger: regexp.MustCompile(`(?i)\b(jump(s|ing)?|jumping jacks|jog(s|ging)?|running|go(ing)? for a run|runs? (a |your )?(mile|lap|km)s?|burpees?|plyometrics?|hop(s|ping)?|skipping rope)\b`),
	},
}

func unconditioned(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "sedentary", "low", "inactive", "none", "unknown":
		return true
	default:
		return false
	}
}
