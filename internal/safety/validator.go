// Package safety decides what coaching text a user is allowed to see. Evaluation is a pure
// function of the text, the optional user context and the rule tables: no I/O, no clock, no
// randomness.
package safety

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Action is what happens to the evaluated text.
type Action string

const (
	ActionAllow  Action = "allow"
	ActionModify Action = "modify"
	ActionBlock  Action = "block"
)

// Context carries the user facts the age-aware rules read. A zero Age skips those rules.
type Context struct {
	Age           int      `json:"age"`
	ActivityLevel string   `json:"activity_level,omitempty"`
	Limitations   []string `json:"limitations,omitempty"`
}

func (c Context) hasLimitation(re *regexp.Regexp) bool {
	for _, l := range c.Limitations {
		if re.MatchString(l) {
			return true
		}
	}
	return false
}

// Verdict is the outcome of one validation. Escalate marks the intervention for human review and
// never changes SafeContent.
type Verdict struct {
	Action          Action     `json:"action"`
	OriginalContent string     `json:"original_content"`
	SafeContent     string     `json:"safe_content"`
	TriggeredRules  []string   `json:"triggered_rules"`
	RedFlags        []Category `json:"red_flags"`
	Severity        Severity   `json:"severity"`
	Reason          string     `json:"reason"`
	Escalate        bool       `json:"escalate"`
	MedicalAdvice   bool       `json:"medical_advice"`
}

// Intervened reports whether the user sees something other than the original text.
func (v Verdict) Intervened() bool {
	return v.Action != ActionAllow
}

// ErrInvalidRules is returned by NewValidator for malformed rule tables.
var ErrInvalidRules = errors.New("invalid safety rules")

// Option configures a Validator.
type Option func(*Validator)

// WithRedFlags replaces the red-flag table.
func WithRedFlags(rules []Rule) Option {
	return func(v *Validator) { v.redFlags = rules }
}

// WithMedicalPatterns replaces the disallowed and allowed medical-advice sets.
func WithMedicalPatterns(disallowed, allowed []Pattern) Option {
	return func(v *Validator) {
		v.disallowed = disallowed
		v.allowed = allowed
	}
}

// WithContextRules replaces the age-aware rules.
func WithContextRules(rules []ContextRule) Option {
	return func(v *Validator) { v.contextRules = rules }
}

// Validator evaluates text against its rule tables. It is immutable and safe for concurrent use.
type Validator struct {
	redFlags     []Rule
	disallowed   []Pattern
	allowed      []Pattern
	contextRules []ContextRule
}

// NewValidator builds a validator over the default tables unless options replace them.
func NewValidator(opts ...Option) (*Validator, error) {
	v := &Validator{
		redFlags:     DefaultRedFlags,
		disallowed:   DefaultMedicalDisallowed,
		allowed:      DefaultMedicalAllowed,
		contextRules: DefaultContextRules,
	}
	for _, opt := range opts {
		opt(v)
	}
	if err := v.check(); err != nil {
		return nil, err
	}
	return v, nil
}

var defaultValidator = mustValidator()

func mustValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate evaluates text with the default rule tables. ctx may be nil.
func Validate(text string, ctx *Context) Verdict {
	return defaultValidator.Validate(text, ctx)
}

func (v *Validator) check() error {
	var problems []error
	seen := make(map[string]struct{})
	dup := func(id string) {
		if _, ok := seen[id]; ok {
			problems = append(problems, fmt.Errorf("duplicate rule id %q", id))
		}
		seen[id] = struct{}{}
	}
	for _, r := range v.redFlags {
		dup(r.ID)
		if r.Pattern == nil {
			problems = append(problems, fmt.Errorf("rule %s: pattern is required", r.ID))
		}
		if r.Severity.rank() == 0 {
			problems = append(problems, fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity))
		}
		if r.Severity == SeverityMedium && r.Replacement == "" {
			problems = append(problems, fmt.Errorf("rule %s: medium rules need a replacement", r.ID))
		}
	}
	for _, p := range append(append([]Pattern{}, v.disallowed...), v.allowed...) {
		dup(p.ID)
		if p.Pattern == nil {
			problems = append(problems, fmt.Errorf("pattern %s: expression is required", p.ID))
		}
	}
	for _, r := range v.contextRules {
		dup(r.ID)
		if r.Trigger == nil || r.Applies == nil {
			problems = append(problems, fmt.Errorf("context rule %s: trigger and applies are required", r.ID))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidRules, errors.Join(problems...))
}

// Validate evaluates text. It never panics: an internal failure is reported as a blocked,
// escalated verdict so nothing unchecked reaches the user.
func (v *Validator) Validate(text string, ctx *Context) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{
				Action:          ActionBlock,
				OriginalContent: text,
				SafeContent:     fallbackGeneric,
				TriggeredRules:  []string{"internal_error"},
				RedFlags:        []Category{},
				Severity:        SeverityCritical,
				Reason:          fmt.Sprintf("validator failure: %v", r),
				Escalate:        true,
			}
		}
	}()
	return v.evaluate(text, ctx)
}

type blockCause struct {
	severity Severity
	reason   string
}

func (v *Validator) evaluate(text string, ctx *Context) Verdict {
	verdict := Verdict{
		OriginalContent: text,
		TriggeredRules:  []string{},
		RedFlags:        []Category{},
		Severity:        SeverityLow,
	}
	var causes []blockCause
	var modifiers []Rule

	for _, rule := range v.redFlags {
		if !rule.Pattern.MatchString(text) {
			continue
		}
		verdict.TriggeredRules = append(verdict.TriggeredRules, rule.ID)
		verdict.RedFlags = appendCategory(verdict.RedFlags, rule.Category)
		verdict.Severity = maxSeverity(verdict.Severity, rule.Severity)
		switch {
		case rule.Severity.AtLeast(SeverityHigh):
			causes = append(causes, blockCause{rule.Severity, string(rule.Category) + " content"})
		case rule.Severity == SeverityMedium:
			modifiers = append(modifiers, rule)
		}
	}

	if ids := v.detectMedicalAdvice(text); len(ids) > 0 {
		verdict.MedicalAdvice = true
		verdict.TriggeredRules = append(verdict.TriggeredRules, ids...)
		verdict.Severity = maxSeverity(verdict.Severity, SeverityHigh)
		causes = append(causes, blockCause{SeverityHigh, "non-acceptable medical advice"})
	}

	if ctx != nil && ctx.Age > 0 {
		for _, rule := range v.contextRules {
			if !rule.Applies(*ctx) || !rule.Trigger.MatchString(text) {
				continue
			}
			if rule.Unless != nil && rule.Unless.MatchString(text) {
				continue
			}
			verdict.TriggeredRules = append(verdict.TriggeredRules, rule.ID)
			verdict.RedFlags = appendCategory(verdict.RedFlags, rule.Category)
			verdict.Severity = maxSeverity(verdict.Severity, rule.Severity)
			if rule.Severity.AtLeast(SeverityHigh) {
				causes = append(causes, blockCause{rule.Severity, rule.Reason})
			} else if rule.Severity == SeverityMedium {
				verdict.Reason = joinReason(verdict.Reason, rule.Reason)
			}
		}
	}

	switch {
	case len(causes) > 0:
		verdict.Action = ActionBlock
		verdict.Reason = blockReason(causes)
		verdict.SafeContent = FallbackFor(verdict.Reason)
	case len(modifiers) > 0:
		verdict.Action = ActionModify
		safe := text
		for _, rule := range modifiers {
			safe = rule.Pattern.ReplaceAllStringFunc(safe, func(match string) string {
				return matchCase(match, rule.Replacement)
			})
		}
		verdict.SafeContent = withDisclaimer(safe)
		verdict.Reason = joinReason("softened "+joinCategories(modifiers)+" language", verdict.Reason)
	default:
		verdict.Action = ActionAllow
		verdict.SafeContent = text
		if verdict.Reason == "" {
			verdict.Reason = "no safety concerns"
		}
	}

	verdict.Escalate = verdict.Severity == SeverityCritical ||
		(verdict.Severity == SeverityHigh && verdict.MedicalAdvice)
	return verdict
}

var sentenceBreak = regexp.MustCompile(`[.!?;\n]+`)

// detectMedicalAdvice returns the disallowed pattern ids found in sentences that carry no
// allow-listed phrasing.
func (v *Validator) detectMedicalAdvice(text string) []string {
	var ids []string
	for _, sentence := range sentenceBreak.Split(text, -1) {
		if strings.TrimSpace(sentence) == "" {
			continue
		}
		var hits []string
		for _, p := range v.disallowed {
			if p.Pattern.MatchString(sentence) {
				hits = append(hits, p.ID)
			}
		}
		if len(hits) == 0 || v.allowListed(sentence) {
			continue
		}
		for _, id := range hits {
			ids = appendID(ids, "medical_advice:"+id)
		}
	}
	return ids
}

func (v *Validator) allowListed(sentence string) bool {
	for _, p := range v.allowed {
		if p.Pattern.MatchString(sentence) {
			return true
		}
	}
	return false
}

// blockReason lists the causes, most severe first, keeping table order within a severity.
func blockReason(causes []blockCause) string {
	var parts []string
	for _, sev := range []Severity{SeverityCritical, SeverityHigh} {
		for _, c := range causes {
			if c.severity == sev {
				parts = appendID(parts, c.reason)
			}
		}
	}
	return strings.Join(parts, "; ")
}

func joinCategories(rules []Rule) string {
	var names []string
	for _, r := range rules {
		names = appendID(names, string(r.Category))
	}
	return strings.Join(names, ", ")
}

func joinReason(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}

func appendCategory(dst []Category, c Category) []Category {
	for _, existing := range dst {
		if existing == c {
			return dst
		}
	}
	return append(dst, c)
}

func appendID(dst []string, id string) []string {
	for _, existing := range dst {
		if existing == id {
			return dst
		}
	}
	return append(dst, id)
}

// matchCase capitalizes the replacement when the matched phrase starts a sentence.
func matchCase(match, replacement string) string {
	if match == "" || replacement == "" {
		return replacement
	}
	first := []rune(match)[0]
	if !unicode.IsUpper(first) {
		return replacement
	}
	r := []rune(replacement)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
