package planning

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/activeaging/internal/catalog"
)

func TestCheckMovementSafetyAvoidShortCircuits(t *testing.T) {
	def := movement("step-up", catalog.DifficultyModerate,
		catalog.Contraindication{Condition: "balance", Severity: catalog.SeverityCaution, Note: "Hold a rail."},
		catalog.Contraindication{Condition: "knee", Severity: catalog.SeverityAvoid, Note: "Too much load."},
		catalog.Contraindication{Condition: "hip", Severity: catalog.SeverityCaution},
	)
	profile := Profile{Age: 85, MobilityLimitations: []string{"knee pain", "poor balance", "hip stiffness"}}

	check := CheckMovementSafety(def, profile)
	require.False(t, check.Safe)
	require.Equal(t, []string{"step-up: avoid with knee (Too much load.)"}, check.Cautions)
}

func TestCheckMovementSafetyNormalizesConditions(t *testing.T) {
	def := movement("glute-bridge", catalog.DifficultyEasy,
		catalog.Contraindication{Condition: "back pain", Severity: catalog.SeverityCaution, Note: "Keep the lift small."},
	)

	for _, entry := range []string{"Back-Pain", "lower back_pain", "BACK  PAIN"} {
		check := CheckMovementSafety(def, Profile{Age: 60, HealthConditions: []string{entry}})
		require.True(t, check.Safe, entry)
		require.Equal(t, []string{"glute-bridge: Keep the lift small."}, check.Cautions, entry)
	}

	check := CheckMovementSafety(def, Profile{Age: 60, HealthConditions: []string{"back"}})
	require.True(t, check.Safe)
	require.Empty(t, check.Cautions, "condition must be contained in the profile entry, not the reverse")
}

func TestCheckMovementSafetyDeduplicatesCautions(t *testing.T) {
	def := movement("heel-raise", catalog.DifficultyEasy,
		catalog.Contraindication{Condition: "ankle", Severity: catalog.SeverityCaution, Note: "Go slowly."},
		catalog.Contraindication{Condition: "balance", Severity: catalog.SeverityCaution, Note: "Go slowly."},
	)

	check := CheckMovementSafety(def, Profile{Age: 70, MobilityLimitations: []string{"weak ankle", "balance"}})
	require.True(t, check.Safe)
	require.Equal(t, []string{"heel-raise: Go slowly."}, check.Cautions)
}

func TestCheckMovementSafetyAgeAdvisory(t *testing.T) {
	moderate := movement("mini-squat", catalog.DifficultyModerate)
	easy := movement("seated-march", catalog.DifficultyGentle)

	check := CheckMovementSafety(moderate, Profile{Age: 82})
	require.True(t, check.Safe)
	require.Len(t, check.Cautions, 1)
	require.Contains(t, check.Cautions[0], "mini-squat: moderate effort at age 80+")

	require.Empty(t, CheckMovementSafety(moderate, Profile{Age: 79}).Cautions)
	require.Empty(t, CheckMovementSafety(easy, Profile{Age: 95}).Cautions)
}

func TestCheckMovementSafetyIsDeterministic(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	profile := Profile{Age: 81, HealthConditions: []string{"osteoporosis", "knee replacement"}, MobilityLimitations: []string{"balance"}}

	for _, def := range cat.All() {
		first := CheckMovementSafety(def, profile)
		for range 3 {
			require.Equal(t, first, CheckMovementSafety(def, profile))
		}
	}
}
