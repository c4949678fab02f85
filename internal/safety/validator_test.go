package safety

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateOverPromisingIsModified(t *testing.T) {
	verdict := Validate("This will definitely cure your arthritis, guaranteed", nil)

	require.Equal(t, ActionModify, verdict.Action)
	require.Equal(t, SeverityMedium, verdict.Severity)
	require.False(t, verdict.Escalate)
	require.Equal(t, []Category{CategoryOverPromising}, verdict.RedFlags)
	require.ElementsMatch(t, []string{"guarantee", "will_definitely", "definitely", "cure_claim"}, verdict.TriggeredRules)

	require.NotContains(t, strings.ToLower(verdict.SafeContent), "guaranteed")
	require.NotContains(t, strings.ToLower(verdict.SafeContent), "definitely")
	require.True(t, strings.HasPrefix(verdict.SafeContent, "This may ease your arthritis, may help"))
	require.True(t, strings.HasSuffix(verdict.SafeContent, Disclaimer))
	require.Equal(t, "This will definitely cure your arthritis, guaranteed", verdict.OriginalContent)
}

func TestValidateDiagnosisAndDosageIsBlocked(t *testing.T) {
	verdict := Validate("You have osteoarthritis and should take 200mg of the medication daily", nil)

	require.Equal(t, ActionBlock, verdict.Action)
	require.Equal(t, SeverityCritical, verdict.Severity)
	require.True(t, verdict.Escalate)
	require.True(t, verdict.MedicalAdvice)
	require.Contains(t, verdict.TriggeredRules, "dosage_instruction")
	require.Contains(t, verdict.TriggeredRules, "diagnosis_statement")
	require.Contains(t, verdict.RedFlags, CategoryMedicalDiagnosis)
	require.Equal(t, fallbackMedical, verdict.SafeContent)
}

func TestValidateCriticalBlocksRegardlessOfContext(t *testing.T) {
	contexts := []*Context{
		nil,
		{},
		{Age: 55, ActivityLevel: "active"},
		{Age: 88, ActivityLevel: "sedentary", Limitations: []string{"balance", "knee replacement"}},
	}
	texts := []string{
		"Just ignore the chest pain and keep going.",
		"Stop taking your medication before the class.",
		"A 5 mg dose before bed helps.",
	}

	for _, text := range texts {
		for _, ctx := range contexts {
			verdict := Validate(text, ctx)
			require.Equal(t, ActionBlock, verdict.Action, text)
			require.Equal(t, SeverityCritical, verdict.Severity, text)
			require.True(t, verdict.Escalate, text)
			require.NotEqual(t, text, verdict.SafeContent)
		}
	}
}

func TestValidateMediumOnlyRewritesEveryFlaggedPhrase(t *testing.T) {
	for _, rule := range DefaultRedFlags {
		if rule.Severity != SeverityMedium {
			continue
		}
		t.Run(rule.ID, func(t *testing.T) {
			text := mediumSamples[rule.ID]
			require.NotEmpty(t, text, "add a sample for %s", rule.ID)

			verdict := Validate(text, nil)
			require.Equal(t, ActionModify, verdict.Action)
			require.Equal(t, SeverityMedium, verdict.Severity)
			require.Contains(t, verdict.TriggeredRules, rule.ID)
			require.False(t, rule.Pattern.MatchString(verdict.SafeContent), verdict.SafeContent)
			require.Contains(t, verdict.SafeContent, Disclaimer)
		})
	}
}

var mediumSamples = map[string]string{
	"guarantee":       "Guaranteed results in two weeks.",
	"will_definitely": "You will definitely sleep better.",
	"definitely":      "This is definitely the right routine.",
	"cure_claim":      "Walking cures stiffness.",
	"absolute_claim":  "This stretch is 100% effective.",
	"reverse_aging":   "These moves reverse aging.",
	"miracle":         "It is a miracle routine.",
	"no_pain_no_gain": "Remember, no pain no gain.",
	"fear_deadline":   "Start now before it's too late.",
	"act_your_age":    "Come on, act your age.",
}

func TestValidateCapitalizesSentenceStart(t *testing.T) {
	verdict := Validate("Guaranteed to help.", nil)
	require.True(t, strings.HasPrefix(verdict.SafeContent, "May help to help."), verdict.SafeContent)
}

func TestValidateAllowsCleanAndLowSeverityText(t *testing.T) {
	clean := "Great job today! Try three gentle chair stands and rest when you need to."
	verdict := Validate(clean, &Context{Age: 70})
	require.Equal(t, ActionAllow, verdict.Action)
	require.Equal(t, clean, verdict.SafeContent)
	require.Empty(t, verdict.TriggeredRules)
	require.Equal(t, SeverityLow, verdict.Severity)

	low := "You might feel the burn a little in your calves."
	verdict = Validate(low, nil)
	require.Equal(t, ActionAllow, verdict.Action)
	require.Equal(t, low, verdict.SafeContent)
	require.Equal(t, []string{"feel_the_burn"}, verdict.TriggeredRules)
}

func TestValidateMedicalAdviceAllowList(t *testing.T) {
	allowed := "If your doctor diagnosed a condition, talk to your doctor about exercises that may help reduce discomfort."
	verdict := Validate(allowed, nil)
	require.False(t, verdict.MedicalAdvice)
	require.Equal(t, ActionAllow, verdict.Action)

	disallowed := "That sounds like bursitis. I would diagnose it as overuse."
	verdict = Validate(disallowed, nil)
	require.True(t, verdict.MedicalAdvice)
	require.Equal(t, ActionBlock, verdict.Action)
	require.Equal(t, SeverityHigh, verdict.Severity)
	require.True(t, verdict.Escalate)
	require.Equal(t, fallbackMedical, verdict.SafeContent)
	require.Contains(t, verdict.TriggeredRules, "medical_advice:diagnosis")
}

func TestValidateMedicalAdviceIsCheckedPerSentence(t *testing.T) {
	text := "Consult your doctor regularly. You should take 2 of your pills before walking."
	verdict := Validate(text, nil)
	require.True(t, verdict.MedicalAdvice)
	require.Equal(t, ActionBlock, verdict.Action)
}

func TestValidateAgeAwareRules(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		ctx      *Context
		rule     string
		fallback string
	}{
		{
			name:     "intensity",
			text:     "Try a high-intensity interval round today.",
			ctx:      &Context{Age: 67, ActivityLevel: "Sedentary"},
			rule:     "high_intensity_unconditioned",
			fallback: fallbackIntensity,
		},
		{
			name:     "balance",
			text:     "Stand on one leg with your eyes closed for thirty seconds.",
			ctx:      &Context{Age: 72, Limitations: []string{"poor balance"}},
			rule:     "unsupported_balance",
			fallback: fallbackUnsafe,
		},
		{
			name:     "impact",
			text:     "Add some jumping jacks between sets.",
			ctx:      &Context{Age: 58, Limitations: []string{"knee replacement"}},
			rule:     "high_impact_joint",
			fallback: fallbackUnsafe,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := Validate(tc.text, tc.ctx)
			require.Equal(t, ActionBlock, verdict.Action)
			require.Equal(t, SeverityHigh, verdict.Severity)
			require.False(t, verdict.Escalate)
			require.Contains(t, verdict.TriggeredRules, tc.rule)
			require.Equal(t, tc.fallback, verdict.SafeContent)

			withoutContext := Validate(tc.text, nil)
			require.Equal(t, ActionAllow, withoutContext.Action)
		})
	}
}

func TestValidateBalanceWithSupportPasses(t *testing.T) {
	verdict := Validate("Stand on one leg while holding on to a sturdy chair.", &Context{Age: 72, Limitations: []string{"balance"}})
	require.Equal(t, ActionAllow, verdict.Action)
}

func TestValidateIntensityAllowedForActiveUsers(t *testing.T) {
	verdict := Validate("Try a high-intensity interval round today.", &Context{Age: 67, ActivityLevel: "active"})
	require.Equal(t, ActionAllow, verdict.Action)
}

func TestValidateIsPure(t *testing.T) {
	inputs := []struct {
		text string
		ctx  *Context
	}{
		{"This will definitely cure your arthritis, guaranteed", nil},
		{"You have osteoarthritis and should take 200mg of the medication daily", nil},
		{"Stand on one leg with your eyes closed.", &Context{Age: 72, Limitations: []string{"balance"}}},
		{"Nice work, see you tomorrow.", &Context{Age: 61}},
		{"", nil},
	}
	for _, in := range inputs {
		first := Validate(in.text, in.ctx)
		for range 5 {
			require.Equal(t, first, Validate(in.text, in.ctx))
		}
	}
}

func TestValidateRecoversFromRuleFailure(t *testing.T) {
	v, err := NewValidator(WithContextRules([]ContextRule{{
		ID:      "broken",
		Applies: func(Context) bool { panic("boom") },
		Trigger: regexp.MustCompile(`.`),
	}}))
	require.NoError(t, err)

	verdict := v.Validate("Nice work today.", &Context{Age: 70})
	require.Equal(t, ActionBlock, verdict.Action)
	require.Equal(t, SeverityCritical, verdict.Severity)
	require.True(t, verdict.Escalate)
	require.Equal(t, []string{"internal_error"}, verdict.TriggeredRules)
	require.NotEqual(t, "Nice work today.", verdict.SafeContent)
}

func TestNewValidatorRejectsMalformedRules(t *testing.T) {
	_, err := NewValidator(WithRedFlags([]Rule{
		{ID: "soft", Pattern: regexp.MustCompile(`maybe`), Category: CategoryOverPromising, Severity: SeverityMedium},
		{ID: "soft", Pattern: regexp.MustCompile(`perhaps`), Category: CategoryOverPromising, Severity: "extreme", Replacement: "x"},
	}))
	require.ErrorIs(t, err, ErrInvalidRules)
	require.ErrorContains(t, err, "medium rules need a replacement")
	require.ErrorContains(t, err, "duplicate rule id")
	require.ErrorContains(t, err, "unknown severity")
}

func TestFallbackForKeywordOrder(t *testing.T) {
	require.Equal(t, fallbackMedical, FallbackFor("medical-diagnosis content; unsafe-exercise content"))
	require.Equal(t, fallbackUnsafe, FallbackFor("unsafe-exercise content"))
	require.Equal(t, fallbackOverPromising, FallbackFor("over-promising content"))
	require.Equal(t, fallbackInappropriate, FallbackFor("inappropriate content"))
	require.Equal(t, fallbackIntensity, FallbackFor("intensity too high"))
	require.Equal(t, fallbackGeneric, FallbackFor("fear-based content"))
}

func TestValidateAllowsExerciseQuantities(t *testing.T) {
	ctx := &Context{Age: 70, Limitations: []string{"knee pain"}}
	texts := []string{
		"Take 5 minutes to warm up before you start.",
		"You should take 2 minutes of rest between sets.",
		"Take 10 slow breaths and relax your shoulders.",
		"Do 2 sets of 10 reps and rest 60 seconds.",
		"Sip 250 ml of water after your walk.",
		"Let's run through today's plan together.",
	}

	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			verdict := Validate(text, ctx)
			require.Equal(t, ActionAllow, verdict.Action, verdict.TriggeredRules)
			require.False(t, verdict.MedicalAdvice)
			require.False(t, verdict.Escalate)
			require.Equal(t, text, verdict.SafeContent)
		})
	}
}

func TestValidateMedicationQuantitiesAreBlocked(t *testing.T) {
	texts := []string{
		"Take 2 tablets before your walk.",
		"You should take 400 mg of ibuprofen first.",
		"You need to increase 1 dose before class.",
	}

	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			verdict := Validate(text, nil)
			require.Equal(t, ActionBlock, verdict.Action)
			require.True(t, verdict.MedicalAdvice)
			require.True(t, verdict.Escalate)
		})
	}
}

func TestValidateRunningStillFlaggedForJointLimitations(t *testing.T) {
	ctx := &Context{Age: 62, Limitations: []string{"hip replacement"}}
	for _, text := range []string{"Go for a run after lunch.", "Try some running intervals."} {
		verdict := Validate(text, ctx)
		require.Equal(t, ActionBlock, verdict.Action, text)
		require.Contains(t, verdict.TriggeredRules, "high_impact_joint", text)
	}
}
