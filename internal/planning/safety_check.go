package planning

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"example.com/activeaging/internal/catalog"
)

// AdvisoryAge is the age from which moderate movements carry an advisory caution.
const AdvisoryAge = 80

// SafetyCheck is the outcome of evaluating one movement against one profile.
type SafetyCheck struct {
	Safe     bool
	Cautions []string
}

// CheckMovementSafety evaluates the movement's contraindications against the profile's health
// conditions and mobility limitations. An avoid match excludes the movement and is reported on
// its own; caution matches accumulate without excluding it.
func CheckMovementSafety(def catalog.Definition, profile Profile) SafetyCheck {
	entries := normalizedEntries(profile)

	var cautions []string
	for _, contra := range def.Contraindications {
		condition := normalize(contra.Condition)
		if condition == "" || !containsAny(entries, condition) {
			continue
		}
		switch contra.Severity {
		case catalog.SeverityAvoid:
			return SafetyCheck{Safe: false, Cautions: []string{avoidCaution(def, contra)}}
		case catalog.SeverityCaution:
			text := cautionText(def, contra)
			if !slices.Contains(cautions, text) {
				cautions = append(cautions, text)
			}
		}
	}

	if profile.Age >= AdvisoryAge && def.Difficulty == catalog.DifficultyModerate {
		cautions = append(cautions, fmt.Sprintf("%s: moderate effort at age %d+, move slowly and keep support within reach", def.Name, AdvisoryAge))
	}
	return SafetyCheck{Safe: true, Cautions: cautions}
}

// HasEquipment reports whether the profile lists every item the movement needs. A profile with
// no equipment only gets movements that need none.
func HasEquipment(def catalog.Definition, profile Profile) bool {
	for _, need := range def.Equipment {
		n := normalize(need)
		if !slices.ContainsFunc(profile.Equipment, func(have string) bool { return normalize(have) == n }) {
			return false
		}
	}
	return true
}

func avoidCaution(def catalog.Definition, contra catalog.Contraindication) string {
	if contra.Note == "" {
		return fmt.Sprintf("%s: avoid with %s", def.Name, contra.Condition)
	}
	return fmt.Sprintf("%s: avoid with %s (%s)", def.Name, contra.Condition, contra.Note)
}

func cautionText(def catalog.Definition, contra catalog.Contraindication) string {
	if contra.Note == "" {
		return fmt.Sprintf("%s: take care with %s", def.Name, contra.Condition)
	}
	return fmt.Sprintf("%s: %s", def.Name, contra.Note)
}

func normalizedEntries(profile Profile) []string {
	raw := profile.Limitations()
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if n := normalize(entry); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsAny(entries []string, condition string) bool {
	for _, entry := range entries {
		if strings.Contains(entry, condition) {
			return true
		}
	}
	return false
}

// normalize lowercases s and drops whitespace, hyphens and underscores so "Knee-Pain",
// "knee pain" and "knee_pain" compare equal.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
