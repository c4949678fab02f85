package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var idPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ErrInvalidCatalog wraps every schema violation found while loading a catalog.
var ErrInvalidCatalog = errors.New("invalid movement catalog")

func validate(version string, defs []Definition) error {
	var problems []error
	if strings.TrimSpace(version) == "" {
		problems = append(problems, errors.New("version is required"))
	}
	if len(defs) == 0 {
		problems = append(problems, errors.New("catalog has no movements"))
	}

	ids := make(map[string]struct{}, len(defs))
	for i, def := range defs {
		if !idPattern.MatchString(def.ID) {
			problems = append(problems, fmt.Errorf("movement[%d]: invalid id %q", i, def.ID))
			continue
		}
		if _, dup := ids[def.ID]; dup {
			problems = append(problems, fmt.Errorf("movement %s: duplicate id", def.ID))
		}
		ids[def.ID] = struct{}{}
	}

	for _, def := range defs {
		if !idPattern.MatchString(def.ID) {
			continue
		}
		problems = append(problems, validateDefinition(def, ids)...)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(problems...))
}

func validateDefinition(def Definition, ids map[string]struct{}) []error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf("movement %s: "+format, append([]any{def.ID}, args...)...))
	}

	if strings.TrimSpace(def.Name) == "" {
		fail("name is required")
	}
	if len(def.Categories) == 0 {
		fail("at least one category is required")
	}
	switch def.Difficulty {
	case DifficultyGentle, DifficultyEasy, DifficultyModerate:
	default:
		fail("unknown difficulty %q", def.Difficulty)
	}

	for i, contra := range def.Contraindications {
		if strings.TrimSpace(contra.Condition) == "" {
			fail("contraindication[%d]: condition is required", i)
		}
		if contra.Severity != SeverityAvoid && contra.Severity != SeverityCaution {
			fail("contraindication[%d]: unknown severity %q", i, contra.Severity)
		}
	}

	checkRefs := func(kind string, refs []string) {
		for _, ref := range refs {
			if ref == def.ID {
				fail("%s cannot reference itself", kind)
				continue
			}
			if _, ok := ids[ref]; !ok {
				fail("%s references unknown movement %q", kind, ref)
			}
		}
	}
	checkRefs("regression", def.Regressions)
	checkRefs("progression", def.Progressions)

	p := def.Prescription
	if p.Sets <= 0 {
		fail("prescription sets must be positive")
	}
	if p.RestSeconds < 0 {
		fail("prescription rest_seconds must not be negative")
	}
	switch p.Type {
	case PrescriptionReps:
		if p.RepsMin <= 0 || p.RepsMax < p.RepsMin {
			fail("reps prescription needs 0 < reps_min <= reps_max")
		}
	case PrescriptionTime:
		if p.Seconds <= 0 && p.HoldSeconds <= 0 {
			fail("time prescription needs seconds or hold_seconds")
		}
	default:
		fail("unknown prescription type %q", p.Type)
	}
	return problems
}
