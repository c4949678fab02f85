// Package catalog holds the static movement library the planning engine selects from.
package catalog

import (
	"slices"
)

// Difficulty tiers used by catalog entries.
const (
	DifficultyGentle   = "gentle"
	DifficultyEasy     = "easy"
	DifficultyModerate = "moderate"
)

// Contraindication severities.
const (
	SeverityAvoid   = "avoid"
	SeverityCaution = "caution"
)

// Prescription types.
const (
	PrescriptionReps = "reps"
	PrescriptionTime = "time"
)

// Contraindication links a health or mobility condition to an exclusion or a warning.
type Contraindication struct {
	Condition string `yaml:"condition" json:"condition"`
	Severity  string `yaml:"severity" json:"severity"`
	Note      string `yaml:"note" json:"note,omitempty"`
}

// Prescription describes the dose of a movement, either reps-based or time-based.
type Prescription struct {
	Type        string `yaml:"type" json:"type"`
	Sets        int    `yaml:"sets" json:"sets"`
	RepsMin     int    `yaml:"reps_min" json:"reps_min,omitempty"`
	RepsMax     int    `yaml:"reps_max" json:"reps_max,omitempty"`
	Seconds     int    `yaml:"seconds" json:"seconds,omitempty"`
	HoldSeconds int    `yaml:"hold_seconds" json:"hold_seconds,omitempty"`
	RestSeconds int    `yaml:"rest_seconds" json:"rest_seconds"`
}

// Definition is a single catalog entry. Definitions are shared read-only values;
// callers must not modify the slices they carry.
type Definition struct {
	ID                string             `yaml:"id" json:"id"`
	Name              string             `yaml:"name" json:"name"`
	Description       string             `yaml:"description" json:"description"`
	Categories        []string           `yaml:"categories" json:"categories"`
	Difficulty        string             `yaml:"difficulty" json:"difficulty"`
	Joints            []string           `yaml:"joints" json:"joints,omitempty"`
	Muscles           []string           `yaml:"muscles" json:"muscles,omitempty"`
	Equipment         []string           `yaml:"equipment" json:"equipment,omitempty"`
	Contraindications []Contraindication `yaml:"contraindications" json:"contraindications,omitempty"`
	Regressions       []string           `yaml:"regressions" json:"regressions,omitempty"`
	Progressions      []string           `yaml:"progressions" json:"progressions,omitempty"`
	Prescription      Prescription       `yaml:"prescription" json:"prescription"`
}

// Catalog is an immutable, validated set of movement definitions keyed by id.
type Catalog struct {
	version string
	byID    map[string]Definition
	order   []string
}

// New validates the definitions and builds a catalog preserving their order.
func New(version string, defs []Definition) (*Catalog, error) {
	if err := validate(version, defs); err != nil {
		return nil, err
	}
	c := &Catalog{
		version: version,
		byID:    make(map[string]Definition, len(defs)),
		order:   make([]string, 0, len(defs)),
	}
	for _, def := range defs {
		c.byID[def.ID] = def
		c.order = append(c.order, def.ID)
	}
	return c, nil
}

// Version returns the data file version the catalog was loaded from.
func (c *Catalog) Version() string {
	return c.version
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (Definition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// Len reports the number of definitions.
func (c *Catalog) Len() int {
	return len(c.order)
}

// IDs returns the movement ids in file order.
func (c *Catalog) IDs() []string {
	return slices.Clone(c.order)
}

// All returns every definition in file order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
