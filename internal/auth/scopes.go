package auth

// Scopes checked by the API.
const (
	ScopeCoachUse     = "coach:use"
	ScopeSafetyReview = "safety:review"
	ScopeAuditRead    = "audit:read"
)
