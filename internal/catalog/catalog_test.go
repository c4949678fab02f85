package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLoads(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, cat.Version())
	require.Greater(t, cat.Len(), 20)

	def, ok := cat.Get("chair-sit-to-stand")
	require.True(t, ok)
	require.Equal(t, DifficultyEasy, def.Difficulty)
	require.Contains(t, def.Regressions, "assisted-sit-to-stand")
	require.Equal(t, PrescriptionReps, def.Prescription.Type)

	ids := cat.IDs()
	require.Equal(t, "chair-sit-to-stand", ids[0])
	ids[0] = "mutated"
	require.Equal(t, "chair-sit-to-stand", cat.IDs()[0], "IDs must return a copy")
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	doc := `
version: "1"
movements:
  - id: shoulder-rolls
    name: Shoulder Rolls
    categories: [mobility]
    difficulty: gentle
    colour: blue
    prescription: {type: reps, sets: 1, reps_min: 5, reps_max: 5, rest_seconds: 0}
`
	_, err := Load(strings.NewReader(doc))
	require.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestNewReportsEverySchemaViolation(t *testing.T) {
	defs := []Definition{
		{
			ID:         "step-up",
			Name:       "Step Up",
			Categories: []string{"strength"},
			Difficulty: "brutal",
			Contraindications: []Contraindication{
				{Condition: "knee", Severity: "never"},
			},
			Regressions:  []string{"missing-move"},
			Progressions: []string{"step-up"},
			Prescription: Prescription{Type: PrescriptionReps, Sets: 2, RepsMin: 10, RepsMax: 5},
		},
		{
			ID:           "step-up",
			Name:         "Duplicate",
			Categories:   []string{"strength"},
			Difficulty:   DifficultyEasy,
			Prescription: Prescription{Type: PrescriptionTime, Sets: 1},
		},
		{ID: "Bad ID"},
	}

	_, err := New("1", defs)
	require.ErrorIs(t, err, ErrInvalidCatalog)
	msg := err.Error()
	for _, want := range []string{
		`unknown difficulty "brutal"`,
		`unknown severity "never"`,
		`unknown movement "missing-move"`,
		"progression cannot reference itself",
		"0 < reps_min <= reps_max",
		"duplicate id",
		"time prescription needs seconds or hold_seconds",
		`invalid id "Bad ID"`,
	} {
		require.Contains(t, msg, want)
	}
}

func TestNewRequiresVersion(t *testing.T) {
	_, err := New("", []Definition{{
		ID:           "ankle-circles",
		Name:         "Ankle Circles",
		Categories:   []string{"mobility"},
		Difficulty:   DifficultyGentle,
		Prescription: Prescription{Type: PrescriptionReps, Sets: 1, RepsMin: 5, RepsMax: 8},
	}})
	require.ErrorIs(t, err, ErrInvalidCatalog)
	require.Contains(t, err.Error(), "version is required")
}
